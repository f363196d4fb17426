package handlers

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/BruksfildServices01/medease/internal/catalog"
	"github.com/BruksfildServices01/medease/internal/models"
	"github.com/BruksfildServices01/medease/internal/router"
	"github.com/BruksfildServices01/medease/internal/store"
	"github.com/BruksfildServices01/medease/internal/ticket"
)

// TicketArchiver uploads a rendered ticket and returns a download link.
type TicketArchiver interface {
	Archive(ctx context.Context, ap models.Appointment, f ticket.Format) (string, error)
}

type PageConfig struct {
	Location    *time.Location
	LoadingWait time.Duration
	MinPassword int
	// Archiver is optional; without it tickets can only be downloaded.
	Archiver TicketArchiver
	Logger   zerolog.Logger
	Now      func() time.Time
}

// ======================================================
// HANDLER
// ======================================================

type PageHandler struct {
	cfg PageConfig
}

func NewPageHandler(cfg PageConfig) *PageHandler {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	cfg.Logger = cfg.Logger.With().Str("component", "pages").Logger()
	return &PageHandler{cfg: cfg}
}

var titles = map[string]string{
	"loading":                         "Loading",
	string(router.PageHome):           "Home",
	string(router.PageLogin):          "Login",
	string(router.PageRegister):       "Register",
	string(router.PageBook):           "Book Appointment",
	string(router.PageDepartments):    "Departments",
	string(router.PageMyAppointments): "My Appointments",
	string(router.PageAbout):          "About",
	string(router.PageTicket):         "Ticket",
}

func (h *PageHandler) render(c *gin.Context, status int, page string, snap store.Snapshot, data gin.H) {
	if data == nil {
		data = gin.H{}
	}
	data["Page"] = page
	data["Title"] = titles[page]
	data["User"] = snap.User
	data["Profile"] = snap.Profile
	c.HTML(status, "base", data)
}

// resolve rebuilds the navigation state from the URL and applies the
// guard. It writes the response itself and returns false when the page
// must not be rendered: unknown path, loading or redirect to login.
func (h *PageHandler) resolve(c *gin.Context) (router.View, store.Snapshot, bool) {
	s := mustStore(c)
	waitReady(c, s, h.cfg.LoadingWait)

	state, ok := router.FromURL(c.Request.URL)
	snap := s.Snapshot()
	if !ok {
		h.render(c, http.StatusNotFound, "not-found", snap, nil)
		return router.View{}, snap, false
	}

	v := state.Resolve(snap.Loading, snap.User != nil)
	switch {
	case v.Loading:
		h.render(c, http.StatusOK, "loading", snap, gin.H{"Refresh": true, "Live": true})
		return v, snap, false
	case v.Guarded:
		redirectToLogin(c)
		return v, snap, false
	}
	return v, snap, true
}

func redirectToLogin(c *gin.Context) {
	c.Redirect(http.StatusSeeOther, router.PageLogin.Path(0)+"?next="+url.QueryEscape(c.Request.URL.RequestURI()))
}

// requireUser guards form submissions, which have no page state of their
// own.
func (h *PageHandler) requireUser(c *gin.Context) (*store.Store, store.Snapshot, bool) {
	s := mustStore(c)
	waitReady(c, s, h.cfg.LoadingWait)
	snap := s.Snapshot()
	if snap.User == nil {
		redirectToLogin(c)
		return s, snap, false
	}
	return s, snap, true
}

// ======================================================
// STATIC PAGES
// ======================================================

func (h *PageHandler) Home(c *gin.Context) {
	v, snap, ok := h.resolve(c)
	if !ok {
		return
	}
	h.render(c, http.StatusOK, string(v.Page), snap, nil)
}

func (h *PageHandler) About(c *gin.Context) {
	h.Home(c)
}

type doctorCard struct {
	catalog.Doctor
	BookURL string
}

// Departments lists every department; ?department= opens one of them.
func (h *PageHandler) Departments(c *gin.Context) {
	_, snap, ok := h.resolve(c)
	if !ok {
		return
	}

	data := gin.H{"Departments": catalog.Departments()}
	if dep, found := catalog.FindDepartment(c.Query("department")); found {
		cards := make([]doctorCard, 0, len(dep.Doctors))
		for _, doc := range dep.Doctors {
			prefill := router.Prefill{Department: dep.Name, Doctor: doc.Name}
			book := router.PageBook.Path(0) + prefill.Query()
			if snap.User == nil {
				book = router.PageLogin.Path(0) + "?next=" + url.QueryEscape(book)
			}
			cards = append(cards, doctorCard{Doctor: doc, BookURL: book})
		}
		data["Selected"] = dep
		data["Doctors"] = cards
	}
	h.render(c, http.StatusOK, string(router.PageDepartments), snap, data)
}
