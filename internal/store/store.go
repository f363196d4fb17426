// Package store holds one visitor's session, profile and appointments and
// the operations that change them.
//
// All state writes are applied by a single consumer goroutine in the order
// their commands were posted, so a refetch started by an auth event can
// never overwrite the result of a later login or booking.
package store

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/BruksfildServices01/medease/internal/audit"
	"github.com/BruksfildServices01/medease/internal/backend"
	domain "github.com/BruksfildServices01/medease/internal/domain/appointment"
	"github.com/BruksfildServices01/medease/internal/models"
)

const (
	defaultMinPassword  = 8
	defaultFetchTimeout = 30 * time.Second
	commandBuffer       = 16
)

type Auditor interface {
	Dispatch(ev audit.Event)
}

type Options struct {
	MinPasswordLength int
	Logger            zerolog.Logger
	Audit             Auditor
	// OnChange is called with the visitor key after every applied state
	// change. It runs on the consumer goroutine and must not block.
	OnChange        func(key string)
	NewTicketNumber func(date string) string
	FetchTimeout    time.Duration
}

func (o Options) withDefaults() Options {
	if o.MinPasswordLength <= 0 {
		o.MinPasswordLength = defaultMinPassword
	}
	if o.NewTicketNumber == nil {
		o.NewTicketNumber = domain.NewTicketNumber
	}
	if o.FetchTimeout <= 0 {
		o.FetchTimeout = defaultFetchTimeout
	}
	return o
}

// Snapshot is a copy of the store state at one instant.
type Snapshot struct {
	User         *backend.User
	Profile      *models.Profile
	Appointments []models.Appointment
	Loading      bool
}

type command struct {
	ctx   context.Context
	apply func(ctx context.Context)
	done  chan struct{}
}

type Store struct {
	key    string
	client backend.Client
	opts   Options
	logger zerolog.Logger

	mu    sync.RWMutex
	state Snapshot

	cmds      chan command
	quit      chan struct{}
	done      chan struct{}
	ready     chan struct{}
	readyOnce sync.Once
	closeOnce sync.Once
	sub       backend.Subscription
	lastUsed  atomic.Int64
}

// New builds the store and subscribes to the client's session changes.
// Call Initialize once and Close when the visitor goes away.
func New(key string, client backend.Client, opts Options) *Store {
	opts = opts.withDefaults()
	s := &Store{
		key:    key,
		client: client,
		opts:   opts,
		logger: opts.Logger.With().Str("visitor", shortKey(key)).Logger(),
		state:  Snapshot{Loading: true, Appointments: []models.Appointment{}},
		cmds:   make(chan command, commandBuffer),
		quit:   make(chan struct{}),
		done:   make(chan struct{}),
		ready:  make(chan struct{}),
	}
	s.touch()
	s.sub = client.OnAuthStateChange(s.onAuthChange)

	go s.run()
	return s
}

func shortKey(key string) string {
	if len(key) > 8 {
		return key[:8]
	}
	return key
}

func (s *Store) Key() string { return s.key }

func (s *Store) touch() {
	s.lastUsed.Store(time.Now().UnixNano())
}

func (s *Store) idleSince() time.Time {
	return time.Unix(0, s.lastUsed.Load())
}

func (s *Store) run() {
	defer close(s.done)
	for {
		select {
		case cmd := <-s.cmds:
			cmd.apply(cmd.ctx)
			if cmd.done != nil {
				close(cmd.done)
			}
			if s.opts.OnChange != nil {
				s.opts.OnChange(s.key)
			}
		case <-s.quit:
			return
		}
	}
}

// post queues fn without waiting for it.
func (s *Store) post(fn func(ctx context.Context)) {
	ctx, cancel := context.WithTimeout(context.Background(), s.opts.FetchTimeout)
	cmd := command{ctx: ctx, apply: func(ctx context.Context) {
		defer cancel()
		fn(ctx)
	}}
	select {
	case s.cmds <- cmd:
	case <-s.quit:
		cancel()
	}
}

// postAndWait queues fn and blocks until the consumer has applied it.
func (s *Store) postAndWait(ctx context.Context, fn func(ctx context.Context)) error {
	cmd := command{ctx: context.WithoutCancel(ctx), apply: fn, done: make(chan struct{})}
	select {
	case s.cmds <- cmd:
	case <-s.quit:
		return &Error{Kind: KindBackend, Message: MsgStoreClosed}
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-cmd.done:
		return nil
	case <-s.done:
		return &Error{Kind: KindBackend, Message: MsgStoreClosed}
	case <-ctx.Done():
		return ctx.Err()
	}
}

// onAuthChange runs on whichever goroutine changed the session, possibly
// the consumer itself, so it must never block on the queue.
func (s *Store) onAuthChange(event backend.AuthEvent, sess *backend.Session) {
	var user *backend.User
	if sess != nil && sess.User.ID != "" {
		u := sess.User
		user = &u
	}
	s.logger.Debug().Str("event", string(event)).Bool("signed_in", user != nil).Msg("auth state change")

	fn := func(ctx context.Context) { s.applyUser(ctx, user) }
	ctx, cancel := context.WithTimeout(context.Background(), s.opts.FetchTimeout)
	cmd := command{ctx: ctx, apply: func(ctx context.Context) {
		defer cancel()
		fn(ctx)
	}}
	select {
	case s.cmds <- cmd:
	case <-s.quit:
		cancel()
	default:
		go func() {
			select {
			case s.cmds <- cmd:
			case <-s.quit:
				cancel()
			}
		}()
	}
}

// applyUser sets the user and reloads profile and appointments, or clears
// everything when u is nil. Consumer goroutine only.
func (s *Store) applyUser(ctx context.Context, u *backend.User) {
	s.mu.Lock()
	s.state.User = u
	if u == nil {
		s.state.Profile = nil
		s.state.Appointments = []models.Appointment{}
	}
	s.mu.Unlock()

	if u != nil {
		s.refetch(ctx, u.ID, true)
	}
}

// refetch reloads the appointments, and the profile when withProfile is
// set, in parallel. A failed fetch keeps the previous value. Results for a
// user who is no longer signed in are dropped.
func (s *Store) refetch(ctx context.Context, userID string, withProfile bool) {
	// Refresh an expired token once, before the fetches share it.
	sess, err := s.client.GetSession(ctx)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("error resolving session before fetch")
		return
	}
	if sess == nil {
		return
	}

	var (
		wg      sync.WaitGroup
		profile *models.Profile
		apps    []models.Appointment
		pErr    error
		aErr    error
	)

	if withProfile {
		wg.Add(1)
		go func() {
			defer wg.Done()
			profile, pErr = s.client.GetProfile(ctx, userID)
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		apps, aErr = s.client.ListAppointments(ctx, userID)
	}()
	wg.Wait()

	log := s.logger.With().Str("user_id", userID).Logger()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.User == nil || s.state.User.ID != userID {
		return
	}
	if withProfile {
		switch {
		case backend.IsNotFound(pErr):
			log.Debug().Msg("no profile yet")
		case pErr != nil:
			log.Error().Err(pErr).Msg("error fetching profile")
		default:
			s.state.Profile = profile
		}
	}
	if aErr != nil {
		log.Error().Err(aErr).Msg("error fetching appointments")
	} else {
		if apps == nil {
			apps = []models.Appointment{}
		}
		s.state.Appointments = apps
	}
}

func (s *Store) markReady() {
	s.readyOnce.Do(func() {
		s.mu.Lock()
		s.state.Loading = false
		s.mu.Unlock()
		close(s.ready)
		if s.opts.OnChange != nil {
			s.opts.OnChange(s.key)
		}
	})
}

// Initialize checks for an existing session. Loading ends whatever the
// outcome; profile and appointments then load in the background.
func (s *Store) Initialize(ctx context.Context) {
	defer s.markReady()

	sess, err := s.client.GetSession(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("error getting session")
		return
	}
	if sess == nil || sess.User.ID == "" {
		return
	}

	u := sess.User
	if err := s.postAndWait(ctx, func(context.Context) {
		s.mu.Lock()
		s.state.User = &u
		s.mu.Unlock()
	}); err != nil {
		s.logger.Error().Err(err).Msg("error restoring session")
		return
	}
	s.post(func(ctx context.Context) { s.refetch(ctx, u.ID, true) })
}

func (s *Store) Login(ctx context.Context, email, password string) error {
	s.touch()
	email = strings.TrimSpace(email)
	password = strings.TrimSpace(password)
	if email == "" || password == "" {
		return validation(MsgMissingCredentials)
	}

	sess, err := s.client.SignInWithPassword(ctx, email, password)
	if err != nil {
		s.logger.Warn().Err(err).Msg("login failed")
		return backendErr(err)
	}
	if sess == nil || sess.User.ID == "" {
		return &Error{Kind: KindBackend, Message: MsgNoUserAfterLogin}
	}

	u := sess.User
	if err := s.postAndWait(ctx, func(ctx context.Context) { s.applyUser(ctx, &u) }); err != nil {
		return err
	}
	s.audit(audit.Event{UserID: u.ID, Action: audit.ActionLogin, Entity: "user", EntityID: u.ID})
	s.logger.Info().Str("user_id", u.ID).Msg("login successful")
	return nil
}

// Register signs up, signs in and stores the profile. An email that is
// already registered is treated as a login attempt.
func (s *Store) Register(ctx context.Context, name, email, phone, password string) error {
	s.touch()
	email = strings.TrimSpace(email)
	password = strings.TrimSpace(password)
	if email == "" || password == "" {
		return validation(MsgMissingCredentials)
	}
	if utf8.RuneCountInString(password) < s.opts.MinPasswordLength {
		return validation(MsgPasswordTooShort, s.opts.MinPasswordLength)
	}

	if _, err := s.client.SignUp(ctx, email, password); err != nil {
		if errors.Is(err, backend.ErrAlreadyRegistered) {
			s.logger.Info().Msg("already registered, logging in")
			return s.Login(ctx, email, password)
		}
		return backendErr(err)
	}

	sess, err := s.client.SignInWithPassword(ctx, email, password)
	if err != nil {
		return backendErr(err)
	}
	if sess == nil || sess.User.ID == "" {
		return &Error{Kind: KindBackend, Message: MsgNoUserAfterSignUp}
	}

	u := sess.User
	profile := models.Profile{
		ID:       u.ID,
		FullName: strings.TrimSpace(name),
		Phone:    strings.TrimSpace(phone),
		Email:    email,
	}
	if err := s.client.UpsertProfile(ctx, profile); err != nil {
		return backendErr(err)
	}

	if err := s.postAndWait(ctx, func(ctx context.Context) { s.applyUser(ctx, &u) }); err != nil {
		return err
	}
	s.audit(audit.Event{UserID: u.ID, Action: audit.ActionRegister, Entity: "profile", EntityID: u.ID})
	return nil
}

// Logout forgets the user locally even when the backend call fails.
func (s *Store) Logout(ctx context.Context) {
	s.touch()
	var userID string
	if u := s.user(); u != nil {
		userID = u.ID
	}

	if err := s.client.SignOut(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("backend sign out failed")
	}
	if err := s.postAndWait(ctx, func(ctx context.Context) { s.applyUser(ctx, nil) }); err != nil {
		s.logger.Error().Err(err).Msg("error clearing session")
	}
	if userID != "" {
		s.audit(audit.Event{UserID: userID, Action: audit.ActionLogout, Entity: "user", EntityID: userID})
	}
	s.logger.Info().Msg("user logged out")
}

func (s *Store) BookAppointment(ctx context.Context, in models.AppointmentInput) error {
	s.touch()
	u := s.user()
	if u == nil {
		return &Error{Kind: KindUnauthenticated, Message: MsgNotLoggedIn}
	}

	existing, err := s.client.FindPendingAppointments(ctx, backend.ConflictQuery{
		UserID:     u.ID,
		DoctorName: in.DoctorName,
		Date:       in.Date,
		Time:       in.Time,
	})
	if err != nil {
		return backendErr(err)
	}
	if len(existing) > 0 {
		return &Error{Kind: KindConflict, Message: MsgSlotTaken}
	}

	ap := models.Appointment{
		UserID:      u.ID,
		PatientName: in.PatientName,
		Phone:       in.Phone,
		Department:  in.Department,
		DoctorName:  in.DoctorName,
		Date:        in.Date,
		Time:        in.Time,
		Symptoms:    in.Symptoms,
		TicketNo:    s.opts.NewTicketNumber(in.Date),
		Status:      string(domain.InitialStatus()),
	}
	if err := s.client.InsertAppointment(ctx, &ap); err != nil {
		if errors.Is(err, backend.ErrConflict) {
			return &Error{Kind: KindConflict, Message: MsgSlotTaken, Err: err}
		}
		return backendErr(err)
	}

	if err := s.postAndWait(ctx, func(ctx context.Context) { s.refetch(ctx, u.ID, false) }); err != nil {
		return err
	}
	s.audit(audit.Event{
		UserID:   u.ID,
		Action:   audit.ActionBook,
		Entity:   "appointment",
		EntityID: strconv.FormatInt(ap.ID, 10),
		Metadata: map[string]string{"ticket_no": ap.TicketNo, "doctor_name": ap.DoctorName},
	})
	s.logger.Info().Str("user_id", u.ID).Str("ticket_no", ap.TicketNo).Msg("appointment booked")
	return nil
}

// CancelAppointment marks one of the user's appointments Cancelled. It
// does nothing without a user; failures are only logged.
func (s *Store) CancelAppointment(ctx context.Context, id int64) {
	s.touch()
	u := s.user()
	if u == nil {
		return
	}
	log := s.logger.With().Str("user_id", u.ID).Int64("appointment_id", id).Logger()

	if ap, ok := s.Appointment(id); ok {
		if err := domain.CanCancel(domain.Status(ap.Status)); err != nil {
			log.Warn().Err(err).Msg("cancel rejected")
			return
		}
	}

	if err := s.client.UpdateAppointmentStatus(ctx, id, u.ID, string(domain.StatusCancelled)); err != nil {
		log.Error().Err(err).Msg("error cancelling appointment")
		return
	}
	if err := s.postAndWait(ctx, func(ctx context.Context) { s.refetch(ctx, u.ID, false) }); err != nil {
		log.Error().Err(err).Msg("error refreshing appointments")
		return
	}
	s.audit(audit.Event{UserID: u.ID, Action: audit.ActionCancel, Entity: "appointment", EntityID: strconv.FormatInt(id, 10)})
}

func (s *Store) audit(ev audit.Event) {
	if s.opts.Audit != nil {
		s.opts.Audit.Dispatch(ev)
	}
}

func (s *Store) user() *backend.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state.User == nil {
		return nil
	}
	u := *s.state.User
	return &u
}

func (s *Store) Snapshot() Snapshot {
	s.touch()
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{Loading: s.state.Loading}
	if s.state.User != nil {
		u := *s.state.User
		snap.User = &u
	}
	if s.state.Profile != nil {
		p := *s.state.Profile
		snap.Profile = &p
	}
	snap.Appointments = make([]models.Appointment, len(s.state.Appointments))
	copy(snap.Appointments, s.state.Appointments)
	return snap
}

// Appointment looks id up in the cached list.
func (s *Store) Appointment(id int64) (models.Appointment, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, ap := range s.state.Appointments {
		if ap.ID == id {
			return ap, true
		}
	}
	return models.Appointment{}, false
}

func (s *Store) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Loading
}

// Ready is closed once the initial session check has finished.
func (s *Store) Ready() <-chan struct{} {
	return s.ready
}

// Close releases the auth subscription and stops the consumer. Pending
// commands are dropped.
func (s *Store) Close() {
	s.closeOnce.Do(func() {
		s.sub.Unsubscribe()
		close(s.quit)
		<-s.done
	})
}
