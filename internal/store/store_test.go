package store

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/BruksfildServices01/medease/internal/audit"
	"github.com/BruksfildServices01/medease/internal/backend"
)

func TestRegisterShortPasswordMakesNoBackendCalls(t *testing.T) {
	f := newFixture()
	s, spy := f.newStore(t, "v1")
	before := spy.count()

	err := s.Register(context.Background(), "Ali", "ali@example.com", "03001234567", " short7 ")
	if KindOf(err) != KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	if err.Error() != "Password must be at least 8 characters." {
		t.Fatalf("message = %q", err.Error())
	}
	if spy.count() != before {
		t.Fatalf("backend called %d times", spy.count()-before)
	}
}

func TestLoginRequiresBothFields(t *testing.T) {
	f := newFixture()
	s, spy := f.newStore(t, "v1")
	before := spy.count()

	for _, tc := range [][2]string{{"", "password1"}, {"ali@example.com", ""}, {"   ", "password1"}} {
		err := s.Login(context.Background(), tc[0], tc[1])
		if KindOf(err) != KindValidation || err.Error() != MsgMissingCredentials {
			t.Fatalf("Login(%q, %q) = %v", tc[0], tc[1], err)
		}
	}
	if spy.count() != before {
		t.Fatal("validation failures must not reach the backend")
	}
}

func TestLoginPassesBackendMessage(t *testing.T) {
	f := newFixture()
	s, _ := f.newStore(t, "v1")

	err := s.Login(context.Background(), "nobody@example.com", "password1")
	if KindOf(err) != KindBackend || err.Error() != "Invalid login credentials" {
		t.Fatalf("got %v", err)
	}
	if !errors.Is(err, backend.ErrInvalidCredentials) {
		t.Fatal("backend error should stay wrapped")
	}
}

func TestRegisterBookCancelFlow(t *testing.T) {
	f := newFixture()
	rec := &recordingAuditor{}
	spy := &spyClient{Client: f.driver.NewClient("v1")}
	s := New("v1", spy, Options{Logger: zerolog.Nop(), Audit: rec})
	defer s.Close()
	s.Initialize(context.Background())
	ctx := context.Background()

	if err := s.Register(ctx, "  Ali Raza ", "ali@example.com", " 03001234567 ", "password1"); err != nil {
		t.Fatalf("register: %v", err)
	}
	snap := s.Snapshot()
	if snap.User == nil || snap.Profile == nil {
		t.Fatalf("snapshot after register = %+v", snap)
	}
	if snap.Profile.FullName != "Ali Raza" || snap.Profile.Phone != "03001234567" || snap.Profile.Email != "ali@example.com" {
		t.Fatalf("profile = %+v", snap.Profile)
	}

	if err := s.BookAppointment(ctx, bookingInput("Dr. Ayesha Malik", "2030-01-02", "09:00:00")); err != nil {
		t.Fatalf("book: %v", err)
	}
	snap = s.Snapshot()
	if len(snap.Appointments) != 1 {
		t.Fatalf("appointments = %d", len(snap.Appointments))
	}
	ap := snap.Appointments[0]
	if ap.Status != "Pending" || ap.UserID != snap.User.ID {
		t.Fatalf("appointment = %+v", ap)
	}
	if !regexp.MustCompile(`^APT-20300102-\d{4}$`).MatchString(ap.TicketNo) {
		t.Fatalf("ticket = %q", ap.TicketNo)
	}

	s.CancelAppointment(ctx, ap.ID)
	got, ok := s.Appointment(ap.ID)
	if !ok || got.Status != "Cancelled" {
		t.Fatalf("after cancel = %+v", got)
	}

	actions := rec.actions()
	want := []string{audit.ActionRegister, audit.ActionBook, audit.ActionCancel}
	if len(actions) != len(want) {
		t.Fatalf("audit = %v", actions)
	}
	for i := range want {
		if actions[i] != want[i] {
			t.Fatalf("audit = %v", actions)
		}
	}
}

func TestBookSameSlotTwiceConflicts(t *testing.T) {
	f := newFixture()
	s, _ := f.newStore(t, "v1")
	ctx := context.Background()
	mustRegister(t, s, "ali@example.com")

	in := bookingInput("Dr. Hamza Qureshi", "2030-01-02", "10:00:00")
	if err := s.BookAppointment(ctx, in); err != nil {
		t.Fatalf("first booking: %v", err)
	}
	err := s.BookAppointment(ctx, in)
	if KindOf(err) != KindConflict || err.Error() != MsgSlotTaken {
		t.Fatalf("second booking = %v", err)
	}

	s.CancelAppointment(ctx, s.Snapshot().Appointments[0].ID)
	if err := s.BookAppointment(ctx, in); err != nil {
		t.Fatalf("booking after cancel: %v", err)
	}
	if n := len(s.Snapshot().Appointments); n != 2 {
		t.Fatalf("appointments = %d", n)
	}
}

func TestInsertUniqueViolationIsConflict(t *testing.T) {
	f := newFixture()
	s, spy := f.newStore(t, "v1")
	mustRegister(t, s, "ali@example.com")

	spy.mu.Lock()
	spy.insertErr = backend.ErrConflict
	spy.mu.Unlock()

	err := s.BookAppointment(context.Background(), bookingInput("Dr. Sana Tariq", "2030-01-02", "11:00:00"))
	if KindOf(err) != KindConflict || err.Error() != MsgSlotTaken {
		t.Fatalf("got %v", err)
	}
}

func TestBookRequiresUser(t *testing.T) {
	f := newFixture()
	s, _ := f.newStore(t, "v1")

	err := s.BookAppointment(context.Background(), bookingInput("Dr. Sana Tariq", "2030-01-02", "11:00:00"))
	if KindOf(err) != KindUnauthenticated || err.Error() != MsgNotLoggedIn {
		t.Fatalf("got %v", err)
	}
}

func TestCancelOtherUsersAppointmentHasNoEffect(t *testing.T) {
	f := newFixture()
	alice, _ := f.newStore(t, "alice")
	bob, _ := f.newStore(t, "bob")
	ctx := context.Background()
	mustRegister(t, alice, "alice@example.com")
	mustRegister(t, bob, "bob@example.com")

	if err := alice.BookAppointment(ctx, bookingInput("Dr. Bilal Ahmed", "2030-01-02", "14:00:00")); err != nil {
		t.Fatalf("book: %v", err)
	}
	id := alice.Snapshot().Appointments[0].ID

	bob.CancelAppointment(ctx, id)

	for _, ap := range f.driver.Appointments() {
		if ap.ID == id && ap.Status != "Pending" {
			t.Fatalf("bob changed alice's appointment to %s", ap.Status)
		}
	}
	if n := len(bob.Snapshot().Appointments); n != 0 {
		t.Fatalf("bob sees %d appointments", n)
	}
}

func TestCancelWithoutUserIsSilent(t *testing.T) {
	f := newFixture()
	s, spy := f.newStore(t, "v1")
	before := spy.count()

	s.CancelAppointment(context.Background(), 1)
	if spy.count() != before {
		t.Fatal("cancel without a user must not reach the backend")
	}
}

func TestLoginLoadsOwnAppointmentsNewestFirst(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	alice, _ := f.newStore(t, "alice")
	mustRegister(t, alice, "alice@example.com")
	bob, _ := f.newStore(t, "bob")
	mustRegister(t, bob, "bob@example.com")

	for _, clock := range []string{"09:00:00", "10:00:00", "11:00:00"} {
		if err := alice.BookAppointment(ctx, bookingInput("Dr. Ayesha Malik", "2030-01-02", clock)); err != nil {
			t.Fatalf("book: %v", err)
		}
		f.clock.advance(minute)
	}
	if err := bob.BookAppointment(ctx, bookingInput("Dr. Ayesha Malik", "2030-01-02", "09:00:00")); err != nil {
		t.Fatalf("bob book: %v", err)
	}
	alice.Logout(ctx)

	again, _ := f.newStore(t, "alice-laptop")
	if err := again.Login(ctx, "alice@example.com", "password1"); err != nil {
		t.Fatalf("login: %v", err)
	}
	snap := again.Snapshot()
	if len(snap.Appointments) != 3 {
		t.Fatalf("appointments = %d", len(snap.Appointments))
	}
	for i, want := range []string{"11:00:00", "10:00:00", "09:00:00"} {
		if snap.Appointments[i].Time != want || snap.Appointments[i].UserID != snap.User.ID {
			t.Fatalf("appointment %d = %+v", i, snap.Appointments[i])
		}
	}
}

func TestRegisterExistingEmailLogsIn(t *testing.T) {
	f := newFixture()
	first, _ := f.newStore(t, "v1")
	mustRegister(t, first, "ali@example.com")

	second, _ := f.newStore(t, "v2")
	if err := second.Register(context.Background(), "Ali", "ali@example.com", "03001234567", "password1"); err != nil {
		t.Fatalf("re-register: %v", err)
	}
	if u := second.Snapshot().User; u == nil || u.Email != "ali@example.com" {
		t.Fatalf("user = %+v", u)
	}

	third, _ := f.newStore(t, "v3")
	err := third.Register(context.Background(), "Ali", "ali@example.com", "03001234567", "wrongpass1")
	if KindOf(err) != KindBackend {
		t.Fatalf("wrong password on re-register = %v", err)
	}
}

func TestLogoutClearsEvenWhenBackendFails(t *testing.T) {
	f := newFixture()
	s, spy := f.newStore(t, "v1")
	mustRegister(t, s, "ali@example.com")
	if err := s.BookAppointment(context.Background(), bookingInput("Dr. Sana Tariq", "2030-01-02", "09:00:00")); err != nil {
		t.Fatalf("book: %v", err)
	}

	spy.mu.Lock()
	spy.signOutErr = errors.New("network down")
	spy.mu.Unlock()

	s.Logout(context.Background())
	snap := s.Snapshot()
	if snap.User != nil || snap.Profile != nil || len(snap.Appointments) != 0 {
		t.Fatalf("snapshot after logout = %+v", snap)
	}
}

func TestRefetchAfterTokenExpiryKeepsSession(t *testing.T) {
	f := newFixture()
	s, _ := f.newStore(t, "v1")
	mustRegister(t, s, "ali@example.com")
	if err := s.BookAppointment(context.Background(), bookingInput("Dr. Sana Tariq", "2030-01-02", "09:00:00")); err != nil {
		t.Fatalf("book: %v", err)
	}
	uid := s.Snapshot().User.ID
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		f.clock.advance(25 * time.Hour)
		if err := s.postAndWait(ctx, func(ctx context.Context) { s.refetch(ctx, uid, true) }); err != nil {
			t.Fatalf("refetch %d: %v", i, err)
		}
		// flush any auth change the refresh queued
		if err := s.postAndWait(ctx, func(context.Context) {}); err != nil {
			t.Fatalf("flush %d: %v", i, err)
		}
		sess, _ := f.storage.Load(ctx, "v1")
		if sess == nil {
			t.Fatalf("round %d: stored session cleared by refresh", i)
		}
		snap := s.Snapshot()
		if snap.User == nil || snap.Profile == nil || len(snap.Appointments) != 1 {
			t.Fatalf("round %d: snapshot = %+v", i, snap)
		}
	}
}

func TestBackendSignOutEventClearsState(t *testing.T) {
	f := newFixture()
	s, spy := f.newStore(t, "v1")
	mustRegister(t, s, "ali@example.com")

	if err := spy.Client.SignOut(context.Background()); err != nil {
		t.Fatalf("sign out: %v", err)
	}
	waitFor(t, "user cleared", func() bool { return s.Snapshot().User == nil })
}

func TestInitializeRestoresStoredSession(t *testing.T) {
	f := newFixture()
	first, _ := f.newStore(t, "v1")
	mustRegister(t, first, "ali@example.com")
	if err := first.BookAppointment(context.Background(), bookingInput("Dr. Sana Tariq", "2030-01-02", "09:00:00")); err != nil {
		t.Fatalf("book: %v", err)
	}
	first.Close()

	restored := New("v1", f.driver.NewClient("v1"), Options{Logger: zerolog.Nop()})
	defer restored.Close()
	if !restored.Loading() {
		t.Fatal("a new store starts loading")
	}

	restored.Initialize(context.Background())
	<-restored.Ready()
	snap := restored.Snapshot()
	if snap.Loading || snap.User == nil {
		t.Fatalf("after ready = %+v", snap)
	}
	waitFor(t, "background fetch", func() bool {
		snap := restored.Snapshot()
		return snap.Profile != nil && len(snap.Appointments) == 1
	})
}

func TestInitializeWithoutSession(t *testing.T) {
	f := newFixture()
	s, _ := f.newStore(t, "v1")

	select {
	case <-s.Ready():
	default:
		t.Fatal("ready not closed after Initialize")
	}
	snap := s.Snapshot()
	if snap.Loading || snap.User != nil {
		t.Fatalf("snapshot = %+v", snap)
	}
}

func TestCloseReleasesSubscription(t *testing.T) {
	f := newFixture()
	s, spy := f.newStore(t, "v1")
	s.Close()
	s.Close()

	if !spy.unsubscribed.Load() {
		t.Fatal("subscription still active after Close")
	}
	if err := s.Login(context.Background(), "a@example.com", "password1"); KindOf(err) != KindBackend {
		t.Fatalf("login on closed store = %v", err)
	}
}

func TestKindOf(t *testing.T) {
	if KindOf(nil) != "" {
		t.Fatal("nil has no kind")
	}
	if KindOf(errors.New("x")) != KindBackend {
		t.Fatal("foreign errors are backend errors")
	}
	if KindOf(validation("bad")) != KindValidation {
		t.Fatal("validation kind lost")
	}
}
