package store

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/BruksfildServices01/medease/internal/audit"
	"github.com/BruksfildServices01/medease/internal/backend"
	"github.com/BruksfildServices01/medease/internal/backend/memory"
	"github.com/BruksfildServices01/medease/internal/models"
)

// spyClient counts backend calls and can fail selected ones.
type spyClient struct {
	backend.Client

	calls        atomic.Int32
	unsubscribed atomic.Bool

	mu         sync.Mutex
	signOutErr error
	insertErr  error
}

func (c *spyClient) count() int { return int(c.calls.Load()) }

func (c *spyClient) GetSession(ctx context.Context) (*backend.Session, error) {
	c.calls.Add(1)
	return c.Client.GetSession(ctx)
}

func (c *spyClient) OnAuthStateChange(fn backend.AuthChangeFunc) backend.Subscription {
	return &spySub{Subscription: c.Client.OnAuthStateChange(fn), c: c}
}

func (c *spyClient) SignInWithPassword(ctx context.Context, email, password string) (*backend.Session, error) {
	c.calls.Add(1)
	return c.Client.SignInWithPassword(ctx, email, password)
}

func (c *spyClient) SignUp(ctx context.Context, email, password string) (*backend.User, error) {
	c.calls.Add(1)
	return c.Client.SignUp(ctx, email, password)
}

func (c *spyClient) SignOut(ctx context.Context) error {
	c.calls.Add(1)
	err := c.Client.SignOut(ctx)
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.signOutErr != nil {
		return c.signOutErr
	}
	return err
}

func (c *spyClient) GetProfile(ctx context.Context, userID string) (*models.Profile, error) {
	c.calls.Add(1)
	return c.Client.GetProfile(ctx, userID)
}

func (c *spyClient) UpsertProfile(ctx context.Context, p models.Profile) error {
	c.calls.Add(1)
	return c.Client.UpsertProfile(ctx, p)
}

func (c *spyClient) ListAppointments(ctx context.Context, userID string) ([]models.Appointment, error) {
	c.calls.Add(1)
	return c.Client.ListAppointments(ctx, userID)
}

func (c *spyClient) FindPendingAppointments(ctx context.Context, q backend.ConflictQuery) ([]int64, error) {
	c.calls.Add(1)
	return c.Client.FindPendingAppointments(ctx, q)
}

func (c *spyClient) InsertAppointment(ctx context.Context, ap *models.Appointment) error {
	c.calls.Add(1)
	c.mu.Lock()
	err := c.insertErr
	c.mu.Unlock()
	if err != nil {
		return err
	}
	return c.Client.InsertAppointment(ctx, ap)
}

func (c *spyClient) UpdateAppointmentStatus(ctx context.Context, id int64, userID, status string) error {
	c.calls.Add(1)
	return c.Client.UpdateAppointmentStatus(ctx, id, userID, status)
}

type spySub struct {
	backend.Subscription
	c *spyClient
}

func (s *spySub) Unsubscribe() {
	s.c.unsubscribed.Store(true)
	s.Subscription.Unsubscribe()
}

type fixture struct {
	driver  *memory.Driver
	storage *backend.MemoryStorage
	clock   *testClock
}

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newFixture() *fixture {
	clk := &testClock{t: time.Date(2024, 5, 3, 9, 0, 0, 0, time.UTC)}
	storage := backend.NewMemoryStorage()
	return &fixture{
		driver:  memory.New(storage, memory.WithClock(clk.now), memory.WithTokenTTL(24*time.Hour)),
		storage: storage,
		clock:   clk,
	}
}

// newStore builds an initialized store for key on the fixture's driver.
func (f *fixture) newStore(t *testing.T, key string) (*Store, *spyClient) {
	t.Helper()
	spy := &spyClient{Client: f.driver.NewClient(key)}
	s := New(key, spy, Options{Logger: zerolog.Nop()})
	t.Cleanup(s.Close)
	s.Initialize(context.Background())
	return s, spy
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func bookingInput(doctor, date, clock string) models.AppointmentInput {
	return models.AppointmentInput{
		PatientName: "Ali Raza",
		Phone:       "03001234567",
		Department:  "Cardiology",
		DoctorName:  doctor,
		Date:        date,
		Time:        clock,
		Symptoms:    "chest pain",
	}
}

const minute = time.Minute

func mustRegister(t *testing.T, s *Store, email string) {
	t.Helper()
	if err := s.Register(context.Background(), "Test Patient", email, "03001234567", "password1"); err != nil {
		t.Fatalf("register %s: %v", email, err)
	}
}

type recordingAuditor struct {
	mu     sync.Mutex
	events []audit.Event
}

func (r *recordingAuditor) Dispatch(ev audit.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recordingAuditor) actions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.Action)
	}
	return out
}
