package supabase

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/BruksfildServices01/medease/internal/backend"
	"github.com/BruksfildServices01/medease/internal/models"
)

type recorded struct {
	method string
	path   string
	query  string
	auth   string
	apikey string
	accept string
	prefer string
	body   map[string]interface{}
}

type fakeService struct {
	mu       sync.Mutex
	requests []recorded
	handler  func(w http.ResponseWriter, r *http.Request)
}

func (f *fakeService) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rec := recorded{
		method: r.Method,
		path:   r.URL.Path,
		query:  r.URL.RawQuery,
		auth:   r.Header.Get("Authorization"),
		apikey: r.Header.Get("apikey"),
		accept: r.Header.Get("Accept"),
		prefer: r.Header.Get("Prefer"),
	}
	_ = json.NewDecoder(r.Body).Decode(&rec.body)
	f.mu.Lock()
	f.requests = append(f.requests, rec)
	f.mu.Unlock()
	f.handler(w, r)
}

func (f *fakeService) last() recorded {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}

func newTestClient(t *testing.T, h func(w http.ResponseWriter, r *http.Request)) (*Client, *fakeService) {
	t.Helper()
	svc := &fakeService{handler: h}
	srv := httptest.NewServer(svc)
	t.Cleanup(srv.Close)

	d := New(Config{URL: srv.URL + "/", AnonKey: "anon-key", Timeout: time.Second}, nil, zerolog.Nop())
	return d.NewClient("visitor").(*Client), svc
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func tokenBody(access string) map[string]interface{} {
	return map[string]interface{}{
		"access_token":  access,
		"refresh_token": "refresh-1",
		"expires_in":    3600,
		"user":          map[string]string{"id": "u1", "email": "ali@example.com"},
	}
}

func TestSignInStoresSessionAndEmits(t *testing.T) {
	c, svc := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, tokenBody("access-1"))
	})

	var events []backend.AuthEvent
	c.OnAuthStateChange(func(ev backend.AuthEvent, _ *backend.Session) { events = append(events, ev) })

	sess, err := c.SignInWithPassword(context.Background(), "ali@example.com", "password1")
	if err != nil {
		t.Fatalf("sign in: %v", err)
	}
	if sess.User.ID != "u1" || sess.AccessToken != "access-1" {
		t.Fatalf("session = %+v", sess)
	}

	req := svc.last()
	if req.path != "/auth/v1/token" || req.query != "grant_type=password" {
		t.Fatalf("request = %s?%s", req.path, req.query)
	}
	if req.apikey != "anon-key" || req.auth != "Bearer anon-key" {
		t.Fatalf("headers apikey=%q auth=%q", req.apikey, req.auth)
	}
	if req.body["email"] != "ali@example.com" {
		t.Fatalf("body = %v", req.body)
	}
	if len(events) != 1 || events[0] != backend.EventSignedIn {
		t.Fatalf("events = %v", events)
	}

	stored, _ := c.GetSession(context.Background())
	if stored == nil || stored.AccessToken != "access-1" {
		t.Fatalf("stored = %+v", stored)
	}
}

func TestSignUpAlreadyRegistered(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"code": 400, "msg": "User already registered"})
	})

	_, err := c.SignUp(context.Background(), "ali@example.com", "password1")
	if !errors.Is(err, backend.ErrAlreadyRegistered) {
		t.Fatalf("expected already registered, got %v", err)
	}
	if err.Error() != "User already registered" {
		t.Fatalf("message = %q", err.Error())
	}
}

func TestSignInInvalidGrant(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_grant", "error_description": "Invalid login credentials"})
	})
	_, err := c.SignInWithPassword(context.Background(), "ali@example.com", "nope")
	if !errors.Is(err, backend.ErrInvalidCredentials) {
		t.Fatalf("got %v", err)
	}
}

func TestSignUpUnwrapsUser(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, tokenBody("access-1"))
	})
	u, err := c.SignUp(context.Background(), "ali@example.com", "password1")
	if err != nil || u == nil || u.ID != "u1" {
		t.Fatalf("user = %+v, err = %v", u, err)
	}
}

func TestExpiredSessionRefreshes(t *testing.T) {
	c, svc := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, tokenBody("access-2"))
	})
	ctx := context.Background()
	old := &backend.Session{
		AccessToken:  "access-1",
		RefreshToken: "refresh-0",
		ExpiresAt:    time.Now().Add(-time.Minute),
		User:         backend.User{ID: "u1"},
	}
	if err := c.d.storage.Save(ctx, "visitor", old); err != nil {
		t.Fatal(err)
	}

	var events []backend.AuthEvent
	c.OnAuthStateChange(func(ev backend.AuthEvent, _ *backend.Session) { events = append(events, ev) })

	sess, err := c.GetSession(ctx)
	if err != nil || sess == nil || sess.AccessToken != "access-2" {
		t.Fatalf("session = %+v, err = %v", sess, err)
	}
	req := svc.last()
	if req.query != "grant_type=refresh_token" || req.body["refresh_token"] != "refresh-0" {
		t.Fatalf("refresh request = %+v", req)
	}
	if len(events) != 1 || events[0] != backend.EventTokenRefreshed {
		t.Fatalf("events = %v", events)
	}
}

func TestRejectedRefreshSignsOut(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error_code": "refresh_token_not_found", "msg": "Invalid Refresh Token"})
	})
	ctx := context.Background()
	_ = c.d.storage.Save(ctx, "visitor", &backend.Session{AccessToken: "a", RefreshToken: "r", ExpiresAt: time.Now().Add(-time.Hour)})

	sess, err := c.GetSession(ctx)
	if err != nil || sess != nil {
		t.Fatalf("session = %+v, err = %v", sess, err)
	}
	if stored, _ := c.d.storage.Load(ctx, "visitor"); stored != nil {
		t.Fatal("rejected session was kept")
	}
}

func signIn(t *testing.T, c *Client) {
	t.Helper()
	_ = c.d.storage.Save(context.Background(), "visitor", &backend.Session{
		AccessToken: "user-token",
		ExpiresAt:   time.Now().Add(time.Hour),
		User:        backend.User{ID: "u1"},
	})
}

func TestGetProfileNotFound(t *testing.T) {
	c, svc := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotAcceptable, map[string]string{"code": "PGRST116", "message": "JSON object requested, multiple (or no) rows returned"})
	})
	signIn(t, c)

	_, err := c.GetProfile(context.Background(), "u1")
	if !backend.IsNotFound(err) {
		t.Fatalf("got %v", err)
	}
	req := svc.last()
	if req.accept != "application/vnd.pgrst.object+json" || req.auth != "Bearer user-token" {
		t.Fatalf("headers = %+v", req)
	}
	if req.query != "id=eq.u1&select=%2A" {
		t.Fatalf("query = %s", req.query)
	}
}

func TestListAppointments(t *testing.T) {
	c, svc := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, []map[string]interface{}{
			{"id": 2, "user_id": "u1", "date": "2030-01-02", "time": "10:00:00", "status": "Pending", "created_at": "2024-05-03T10:00:00.123456+00:00"},
			{"id": 1, "user_id": "u1", "date": "2030-01-01", "time": "09:00:00", "status": "Cancelled", "created_at": "2024-05-02T10:00:00+00:00"},
		})
	})
	signIn(t, c)

	rows, err := c.ListAppointments(context.Background(), "u1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rows) != 2 || rows[0].ID != 2 || rows[1].Status != "Cancelled" {
		t.Fatalf("rows = %+v", rows)
	}
	if q := svc.last().query; q != "order=created_at.desc&select=%2A&user_id=eq.u1" {
		t.Fatalf("query = %s", q)
	}
}

func TestInsertConflict(t *testing.T) {
	c, svc := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusConflict, map[string]string{"code": "23505", "message": "duplicate key value violates unique constraint \"appointments_pending_slot_uniq\""})
	})
	signIn(t, c)

	err := c.InsertAppointment(context.Background(), &models.Appointment{UserID: "u1", Status: "Pending"})
	if !errors.Is(err, backend.ErrConflict) {
		t.Fatalf("got %v", err)
	}
	req := svc.last()
	if req.prefer != "return=representation" {
		t.Fatalf("prefer = %q", req.prefer)
	}
	if _, ok := req.body["id"]; ok {
		t.Fatal("insert must not send id")
	}
}

func TestUpdateStatusFiltersByOwner(t *testing.T) {
	c, svc := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	signIn(t, c)

	if err := c.UpdateAppointmentStatus(context.Background(), 7, "u1", "Cancelled"); err != nil {
		t.Fatalf("update: %v", err)
	}
	req := svc.last()
	if req.method != http.MethodPatch || req.query != "id=eq.7&user_id=eq.u1" || req.body["status"] != "Cancelled" {
		t.Fatalf("request = %+v", req)
	}
}

func TestSignOutClearsEvenOnFailure(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "boom"})
	})
	signIn(t, c)

	var signedOut bool
	c.OnAuthStateChange(func(ev backend.AuthEvent, s *backend.Session) {
		signedOut = ev == backend.EventSignedOut && s == nil
	})

	if err := c.SignOut(context.Background()); err == nil {
		t.Fatal("expected the backend error")
	}
	if !signedOut {
		t.Fatal("expected SIGNED_OUT")
	}
	if sess, _ := c.GetSession(context.Background()); sess != nil {
		t.Fatal("session kept after sign out")
	}
}
