package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/BruksfildServices01/medease/internal/booking"
	domain "github.com/BruksfildServices01/medease/internal/domain/appointment"
	"github.com/BruksfildServices01/medease/internal/dto"
	"github.com/BruksfildServices01/medease/internal/httperr"
	"github.com/BruksfildServices01/medease/internal/httpresp"
	"github.com/BruksfildServices01/medease/internal/store"
)

// ======================================================
// HANDLER
// ======================================================

// APIHandler is the JSON surface over the same visitor store as the
// pages.
type APIHandler struct {
	loc         *time.Location
	loadingWait time.Duration
	minPassword int
	now         func() time.Time
}

func NewAPIHandler(loc *time.Location, loadingWait time.Duration, minPassword int, now func() time.Time) *APIHandler {
	if loc == nil {
		loc = time.UTC
	}
	if now == nil {
		now = time.Now
	}
	return &APIHandler{loc: loc, loadingWait: loadingWait, minPassword: minPassword, now: now}
}

// authed waits for the session check and answers 401 without a user.
func (h *APIHandler) authed(c *gin.Context) (*store.Store, store.Snapshot, bool) {
	s := mustStore(c)
	waitReady(c, s, h.loadingWait)
	snap := s.Snapshot()
	if snap.User == nil {
		httperr.Unauthorized(c, "not_logged_in", store.MsgNotLoggedIn)
		return s, snap, false
	}
	return s, snap, true
}

// ======================================================
// AUTH
// ======================================================

func (h *APIHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.BadRequest(c, "invalid_request", "Invalid request body.")
		return
	}

	s := mustStore(c)
	if err := s.Login(c.Request.Context(), req.Email, req.Password); err != nil {
		writeError(c, err)
		return
	}
	snap := s.Snapshot()
	httpresp.OK(c, dto.FromUser(snap.User, snap.Profile))
}

func (h *APIHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.BadRequest(c, "invalid_request", "Invalid request body.")
		return
	}
	if msg := req.check(h.minPassword); msg != "" {
		httperr.BadRequest(c, "validation_error", msg)
		return
	}

	s := mustStore(c)
	if err := s.Register(c.Request.Context(), req.FullName, req.Email, req.Phone, req.Password); err != nil {
		writeError(c, err)
		return
	}
	snap := s.Snapshot()
	if snap.User == nil {
		httperr.BadGateway(c, "backend_error", store.MsgNoUserAfterSignUp)
		return
	}
	httpresp.Created(c, dto.FromUser(snap.User, snap.Profile))
}

func (h *APIHandler) Logout(c *gin.Context) {
	mustStore(c).Logout(c.Request.Context())
	httpresp.NoContent(c)
}

func (h *APIHandler) Me(c *gin.Context) {
	_, snap, ok := h.authed(c)
	if !ok {
		return
	}
	httpresp.OK(c, dto.FromUser(snap.User, snap.Profile))
}

// ======================================================
// APPOINTMENTS
// ======================================================

func (h *APIHandler) ListAppointments(c *gin.Context) {
	_, snap, ok := h.authed(c)
	if !ok {
		return
	}
	httpresp.List(c, dto.FromAppointments(snap.Appointments))
}

func (h *APIHandler) CreateAppointment(c *gin.Context) {
	s, _, ok := h.authed(c)
	if !ok {
		return
	}

	var form booking.Form
	if err := c.ShouldBindJSON(&form); err != nil {
		httperr.BadRequest(c, "invalid_request", "Invalid request body.")
		return
	}
	if err := form.Validate(h.now(), h.loc); err != nil {
		writeError(c, err)
		return
	}

	in := form.Input()
	if err := s.BookAppointment(c.Request.Context(), in); err != nil {
		writeError(c, err)
		return
	}

	// The store refetches after booking; the new row is the pending one
	// in the booked slot.
	snap := s.Snapshot()
	if snap.User == nil {
		c.JSON(http.StatusCreated, gin.H{"message": booking.MsgBooked})
		return
	}
	key := domain.SlotKey{UserID: snap.User.ID, DoctorName: in.DoctorName, Date: in.Date, Time: in.Time}
	for _, ap := range snap.Appointments {
		if key.Conflicts(ap) {
			httpresp.Created(c, dto.FromAppointment(ap))
			return
		}
	}
	c.JSON(http.StatusCreated, gin.H{"message": booking.MsgBooked})
}

func (h *APIHandler) CancelAppointment(c *gin.Context) {
	s, _, ok := h.authed(c)
	if !ok {
		return
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		httperr.BadRequest(c, "invalid_id", "Invalid appointment id.")
		return
	}

	ap, found := s.Appointment(id)
	if !found {
		httperr.NotFound(c, "appointment_not_found", "Appointment not found.")
		return
	}
	if err := domain.CanCancel(domain.Status(ap.Status)); err != nil {
		httperr.Conflict(c, "invalid_state", err.Error())
		return
	}

	s.CancelAppointment(c.Request.Context(), id)

	ap, _ = s.Appointment(id)
	if ap.Status != string(domain.StatusCancelled) {
		httperr.BadGateway(c, "backend_error", "The appointment could not be cancelled.")
		return
	}
	httpresp.OK(c, dto.FromAppointment(ap))
}
