// Package memory is an in-process backend used for local demos and tests.
// It applies the same row filters as the hosted service: a client only
// sees rows owned by its signed-in user.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/BruksfildServices01/medease/internal/backend"
	"github.com/BruksfildServices01/medease/internal/models"
)

type account struct {
	user     backend.User
	password string
}

type Driver struct {
	mu sync.Mutex

	accounts     map[string]account // by lower-cased email
	access       map[string]accessGrant
	refresh      map[string]string // refresh token -> user id
	profiles     map[string]models.Profile
	appointments []models.Appointment
	nextID       int64

	storage backend.SessionStorage
	ttl     time.Duration
	now     func() time.Time
}

type accessGrant struct {
	user    backend.User
	expires time.Time
}

type Option func(*Driver)

// WithClock replaces time.Now for created_at and token expiry.
func WithClock(now func() time.Time) Option {
	return func(d *Driver) { d.now = now }
}

func WithTokenTTL(ttl time.Duration) Option {
	return func(d *Driver) { d.ttl = ttl }
}

func New(storage backend.SessionStorage, opts ...Option) *Driver {
	if storage == nil {
		storage = backend.NewMemoryStorage()
	}
	d := &Driver{
		accounts: make(map[string]account),
		access:   make(map[string]accessGrant),
		refresh:  make(map[string]string),
		profiles: make(map[string]models.Profile),
		storage:  storage,
		ttl:      time.Hour,
		now:      time.Now,
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

func (d *Driver) NewClient(key string) backend.Client {
	return &Client{d: d, state: backend.NewSessionState(key, d.storage)}
}

func (d *Driver) Close() error { return nil }

// Appointments returns every stored row regardless of owner.
func (d *Driver) Appointments() []models.Appointment {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := make([]models.Appointment, len(d.appointments))
	copy(out, d.appointments)
	return out
}

func (d *Driver) issue(u backend.User) *backend.Session {
	s := &backend.Session{
		AccessToken:  uuid.NewString(),
		RefreshToken: uuid.NewString(),
		ExpiresAt:    d.now().Add(d.ttl),
		User:         u,
	}
	d.access[s.AccessToken] = accessGrant{user: u, expires: s.ExpiresAt}
	d.refresh[s.RefreshToken] = u.ID
	return s
}

type Client struct {
	d     *Driver
	state *backend.SessionState
}

func (c *Client) GetSession(ctx context.Context) (*backend.Session, error) {
	sess, err := c.state.Load(ctx)
	if err != nil || sess == nil {
		return nil, err
	}

	c.d.mu.Lock()
	grant, ok := c.d.access[sess.AccessToken]
	now := c.d.now()
	if ok && now.Before(grant.expires) {
		c.d.mu.Unlock()
		return sess, nil
	}

	delete(c.d.access, sess.AccessToken)
	userID, refreshable := c.d.refresh[sess.RefreshToken]
	var next *backend.Session
	if refreshable && userID == sess.User.ID {
		delete(c.d.refresh, sess.RefreshToken)
		next = c.d.issue(sess.User)
	}
	c.d.mu.Unlock()

	if next == nil {
		return nil, c.state.Clear(ctx)
	}
	if err := c.state.Set(ctx, next, backend.EventTokenRefreshed); err != nil {
		return nil, err
	}
	return next, nil
}

func (c *Client) OnAuthStateChange(fn backend.AuthChangeFunc) backend.Subscription {
	return c.state.Subscribe(fn)
}

func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*backend.Session, error) {
	c.d.mu.Lock()
	acc, ok := c.d.accounts[strings.ToLower(email)]
	if !ok || acc.password != password {
		c.d.mu.Unlock()
		return nil, backend.ErrInvalidCredentials
	}
	sess := c.d.issue(acc.user)
	c.d.mu.Unlock()

	if err := c.state.Set(ctx, sess, backend.EventSignedIn); err != nil {
		return nil, err
	}
	return sess, nil
}

func (c *Client) SignUp(_ context.Context, email, password string) (*backend.User, error) {
	c.d.mu.Lock()
	defer c.d.mu.Unlock()

	key := strings.ToLower(email)
	if _, exists := c.d.accounts[key]; exists {
		return nil, backend.ErrAlreadyRegistered
	}
	u := backend.User{ID: uuid.NewString(), Email: key}
	c.d.accounts[key] = account{user: u, password: password}
	return &u, nil
}

func (c *Client) SignOut(ctx context.Context) error {
	sess, _ := c.state.Load(ctx)
	if sess != nil {
		c.d.mu.Lock()
		delete(c.d.access, sess.AccessToken)
		delete(c.d.refresh, sess.RefreshToken)
		c.d.mu.Unlock()
	}
	return c.state.Clear(ctx)
}

// owner is the user every data call runs as, or "" when signed out.
func (c *Client) owner(ctx context.Context) string {
	sess, err := c.GetSession(ctx)
	if err != nil || sess == nil {
		return ""
	}
	return sess.User.ID
}

func (c *Client) GetProfile(ctx context.Context, userID string) (*models.Profile, error) {
	owner := c.owner(ctx)

	c.d.mu.Lock()
	defer c.d.mu.Unlock()

	p, ok := c.d.profiles[userID]
	if !ok || owner == "" || p.ID != owner {
		return nil, backend.ErrNotFound
	}
	return &p, nil
}

func (c *Client) UpsertProfile(ctx context.Context, p models.Profile) error {
	owner := c.owner(ctx)
	if owner == "" || p.ID != owner {
		return backend.ErrForbidden
	}

	c.d.mu.Lock()
	defer c.d.mu.Unlock()

	c.d.profiles[p.ID] = p
	return nil
}

func (c *Client) ListAppointments(ctx context.Context, userID string) ([]models.Appointment, error) {
	owner := c.owner(ctx)

	c.d.mu.Lock()
	defer c.d.mu.Unlock()

	out := []models.Appointment{}
	if owner == "" || owner != userID {
		return out, nil
	}
	for _, ap := range c.d.appointments {
		if ap.UserID == userID {
			out = append(out, ap)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (c *Client) FindPendingAppointments(ctx context.Context, q backend.ConflictQuery) ([]int64, error) {
	owner := c.owner(ctx)

	c.d.mu.Lock()
	defer c.d.mu.Unlock()

	var ids []int64
	for _, ap := range c.d.appointments {
		if ap.UserID != owner || ap.UserID != q.UserID {
			continue
		}
		if ap.DoctorName == q.DoctorName && ap.Date == q.Date && ap.Time == q.Time && ap.Status == "Pending" {
			ids = append(ids, ap.ID)
		}
	}
	return ids, nil
}

func (c *Client) InsertAppointment(ctx context.Context, ap *models.Appointment) error {
	owner := c.owner(ctx)
	if owner == "" || ap.UserID != owner {
		return backend.ErrForbidden
	}

	c.d.mu.Lock()
	defer c.d.mu.Unlock()

	c.d.nextID++
	row := *ap
	row.ID = c.d.nextID
	row.CreatedAt = c.d.now()
	if row.Status == "" {
		row.Status = "Pending"
	}
	c.d.appointments = append(c.d.appointments, row)
	*ap = row
	return nil
}

func (c *Client) UpdateAppointmentStatus(ctx context.Context, id int64, userID, status string) error {
	owner := c.owner(ctx)

	c.d.mu.Lock()
	defer c.d.mu.Unlock()

	for i := range c.d.appointments {
		ap := &c.d.appointments[i]
		if ap.ID == id && ap.UserID == userID && ap.UserID == owner {
			ap.Status = status
		}
	}
	return nil
}
