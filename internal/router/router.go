// Package router holds the page navigation state and the guard that keeps
// signed-out visitors away from protected pages.
package router

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

type Page string

const (
	PageHome           Page = "home"
	PageLogin          Page = "login"
	PageRegister       Page = "register"
	PageBook           Page = "book"
	PageDepartments    Page = "departments"
	PageMyAppointments Page = "my-appointments"
	PageAbout          Page = "about"
	PageTicket         Page = "ticket"
)

var paths = map[Page]string{
	PageHome:           "/",
	PageLogin:          "/login",
	PageRegister:       "/register",
	PageBook:           "/book",
	PageDepartments:    "/departments",
	PageMyAppointments: "/my-appointments",
	PageAbout:          "/about",
	PageTicket:         "/ticket",
}

var protected = map[Page]bool{
	PageBook:           true,
	PageMyAppointments: true,
	PageTicket:         true,
}

func IsProtected(p Page) bool {
	return protected[p]
}

// Path is the URL of p. The ticket page needs an appointment id.
func (p Page) Path(appointmentID int64) string {
	if p == PageTicket && appointmentID > 0 {
		return fmt.Sprintf("/ticket/%d", appointmentID)
	}
	if path, ok := paths[p]; ok {
		return path
	}
	return "/"
}

type Prefill struct {
	Department string
	Doctor     string
}

// Query encodes the prefill for a /book link.
func (p *Prefill) Query() string {
	if p == nil {
		return ""
	}
	v := url.Values{}
	v.Set("department", p.Department)
	v.Set("doctor", p.Doctor)
	return "?" + v.Encode()
}

type State struct {
	Current       Page
	AppointmentID int64
	Prefill       *Prefill
}

func NewState() *State {
	return &State{Current: PageHome}
}

type navOptions struct {
	appointmentID *int64
	prefill       *Prefill
}

type NavOption func(*navOptions)

func WithAppointment(id int64) NavOption {
	return func(o *navOptions) { o.appointmentID = &id }
}

func WithPrefill(p Prefill) NavOption {
	return func(o *navOptions) { o.prefill = &p }
}

// Navigate switches to p. The selected appointment is kept unless a new
// one is given; the prefill is replaced every time.
func (s *State) Navigate(p Page, opts ...NavOption) {
	var o navOptions
	for _, opt := range opts {
		opt(&o)
	}
	if o.appointmentID != nil {
		s.AppointmentID = *o.appointmentID
	}
	s.Prefill = o.prefill
	s.Current = p
}

// View is what to render for the current state.
type View struct {
	Page          Page
	Loading       bool
	AppointmentID int64
	Prefill       *Prefill
	// Guarded is set when a protected page was replaced by login.
	Guarded bool
}

// Resolve applies the guard. While loading nothing is decided and the
// loading view is shown. A protected page without a user becomes login.
func (s *State) Resolve(loading, authed bool) View {
	if loading {
		return View{Page: s.Current, Loading: true, AppointmentID: s.AppointmentID, Prefill: s.Prefill}
	}

	v := View{AppointmentID: s.AppointmentID, Prefill: s.Prefill}
	switch {
	case IsProtected(s.Current) && !authed:
		s.Current = PageLogin
		v.Page = PageLogin
		v.Guarded = true
	case s.Current == PageTicket && s.AppointmentID == 0:
		v.Page = PageMyAppointments
	default:
		v.Page = s.Current
	}
	return v
}

// FromURL rebuilds the navigation state for a page request.
func FromURL(u *url.URL) (*State, bool) {
	p, id, ok := pageFromPath(u.Path)
	if !ok {
		return nil, false
	}

	s := NewState()
	var opts []NavOption
	if id > 0 {
		opts = append(opts, WithAppointment(id))
	}
	q := u.Query()
	if p == PageBook && (q.Get("department") != "" || q.Get("doctor") != "") {
		opts = append(opts, WithPrefill(Prefill{Department: q.Get("department"), Doctor: q.Get("doctor")}))
	}
	s.Navigate(p, opts...)
	return s, true
}

func pageFromPath(path string) (Page, int64, bool) {
	path = strings.TrimSuffix(path, "/")
	if path == "" {
		return PageHome, 0, true
	}
	if rest, ok := strings.CutPrefix(path, "/ticket"); ok && (rest == "" || rest[0] == '/') {
		if rest == "" {
			return PageTicket, 0, true
		}
		id, err := strconv.ParseInt(strings.TrimPrefix(rest, "/"), 10, 64)
		if err != nil || id <= 0 || strings.Count(rest, "/") != 1 {
			return PageTicket, 0, true
		}
		return PageTicket, id, true
	}
	for p, pp := range paths {
		if pp == path {
			return p, 0, true
		}
	}
	return "", 0, false
}

// SafeNext accepts only local page paths for post-login redirects.
func SafeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") {
		return PageHome.Path(0)
	}
	u, err := url.Parse(next)
	if err != nil {
		return PageHome.Path(0)
	}
	if _, _, ok := pageFromPath(u.Path); !ok {
		return PageHome.Path(0)
	}
	return next
}
