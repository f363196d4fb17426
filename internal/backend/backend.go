// Package backend defines the contract of the auth + data service behind
// the store, and the pieces shared by its drivers.
package backend

import (
	"context"
	"time"

	"github.com/BruksfildServices01/medease/internal/models"
)

type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type Session struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	User         User      `json:"user"`
}

// Expired reports whether the access token is past, or within margin of,
// its expiry.
func (s *Session) Expired(now time.Time, margin time.Duration) bool {
	if s.ExpiresAt.IsZero() {
		return false
	}
	return !now.Add(margin).Before(s.ExpiresAt)
}

type AuthEvent string

const (
	EventSignedIn       AuthEvent = "SIGNED_IN"
	EventSignedOut      AuthEvent = "SIGNED_OUT"
	EventTokenRefreshed AuthEvent = "TOKEN_REFRESHED"
	EventUserUpdated    AuthEvent = "USER_UPDATED"
)

// AuthChangeFunc receives every session change. session is nil after a
// sign-out. Callbacks run on the goroutine that caused the change and must
// not block.
type AuthChangeFunc func(event AuthEvent, session *Session)

type Subscription interface {
	Unsubscribe()
}

type Auth interface {
	GetSession(ctx context.Context) (*Session, error)
	OnAuthStateChange(fn AuthChangeFunc) Subscription
	SignInWithPassword(ctx context.Context, email, password string) (*Session, error)
	SignUp(ctx context.Context, email, password string) (*User, error)
	SignOut(ctx context.Context) error
}

// ConflictQuery selects Pending appointments occupying one slot.
type ConflictQuery struct {
	UserID     string
	DoctorName string
	Date       string
	Time       string
}

// Data is the row-filtered table access. Every call runs as the signed-in
// user; rows owned by anyone else are invisible.
type Data interface {
	GetProfile(ctx context.Context, userID string) (*models.Profile, error)
	UpsertProfile(ctx context.Context, p models.Profile) error

	// ListAppointments returns the user's appointments, newest first.
	ListAppointments(ctx context.Context, userID string) ([]models.Appointment, error)
	FindPendingAppointments(ctx context.Context, q ConflictQuery) ([]int64, error)
	InsertAppointment(ctx context.Context, ap *models.Appointment) error
	UpdateAppointmentStatus(ctx context.Context, id int64, userID, status string) error
}

// Client is one visitor's configured handle to the backend.
type Client interface {
	Auth
	Data
}

// Driver creates per-visitor clients. key identifies the visitor whose
// session the client reads and writes.
type Driver interface {
	NewClient(key string) Client
	Close() error
}
