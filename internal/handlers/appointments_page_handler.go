package handlers

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/BruksfildServices01/medease/internal/dto"
	"github.com/BruksfildServices01/medease/internal/models"
	"github.com/BruksfildServices01/medease/internal/router"
	"github.com/BruksfildServices01/medease/internal/store"
	"github.com/BruksfildServices01/medease/internal/ticket"
)

const MsgArchiveFailed = "Could not save a copy of the ticket. Please try again."

func (h *PageHandler) MyAppointments(c *gin.Context) {
	_, snap, ok := h.resolve(c)
	if !ok {
		return
	}
	h.renderMyAppointments(c, snap)
}

func (h *PageHandler) renderMyAppointments(c *gin.Context, snap store.Snapshot) {
	h.render(c, http.StatusOK, string(router.PageMyAppointments), snap, gin.H{
		"Appointments": dto.FromAppointments(snap.Appointments),
		"Live":         true,
	})
}

func (h *PageHandler) Cancel(c *gin.Context) {
	s, _, ok := h.requireUser(c)
	if !ok {
		return
	}
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err == nil && id > 0 {
		s.CancelAppointment(c.Request.Context(), id)
	}
	c.Redirect(http.StatusSeeOther, router.PageMyAppointments.Path(0))
}

// Ticket shows one appointment from the cached list. Without an id the
// router falls back to the appointment list.
func (h *PageHandler) Ticket(c *gin.Context) {
	v, snap, ok := h.resolve(c)
	if !ok {
		return
	}
	if v.Page == router.PageMyAppointments {
		h.renderMyAppointments(c, snap)
		return
	}
	h.renderTicket(c, v.AppointmentID, snap, nil)
}

func (h *PageHandler) renderTicket(c *gin.Context, id int64, snap store.Snapshot, data gin.H) {
	if data == nil {
		data = gin.H{}
	}
	status := http.StatusOK
	data["Live"] = true
	data["ArchiveEnabled"] = h.cfg.Archiver != nil
	if ap, found := findAppointment(snap, id); found {
		d := dto.FromAppointment(ap)
		data["Appointment"] = &d
	} else {
		status = http.StatusNotFound
	}
	h.render(c, status, string(router.PageTicket), snap, data)
}

func findAppointment(snap store.Snapshot, id int64) (models.Appointment, bool) {
	for _, ap := range snap.Appointments {
		if ap.ID == id {
			return ap, true
		}
	}
	return models.Appointment{}, false
}

// ticketFor resolves the appointment of a /ticket/:id/* request or writes
// the error response.
func (h *PageHandler) ticketFor(c *gin.Context) (*store.Store, models.Appointment, bool) {
	s, _, ok := h.requireUser(c)
	if !ok {
		return nil, models.Appointment{}, false
	}
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.String(http.StatusNotFound, "Appointment not found.")
		return nil, models.Appointment{}, false
	}
	ap, found := s.Appointment(id)
	if !found {
		c.String(http.StatusNotFound, "Appointment not found.")
		return nil, models.Appointment{}, false
	}
	return s, ap, true
}

func formatParam(c *gin.Context) (ticket.Format, bool) {
	f, err := ticket.ParseFormat(c.DefaultQuery("format", string(ticket.FormatPNG)))
	if err != nil {
		c.String(http.StatusBadRequest, err.Error())
		return "", false
	}
	return f, true
}

// TicketImage streams the rendered ticket as a download.
func (h *PageHandler) TicketImage(c *gin.Context) {
	_, ap, ok := h.ticketFor(c)
	if !ok {
		return
	}
	f, ok := formatParam(c)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := ticket.Encode(&buf, ticket.Render(ap), f); err != nil {
		h.cfg.Logger.Error().Err(err).Int64("appointment_id", ap.ID).Msg("ticket encode failed")
		c.String(http.StatusInternalServerError, "Could not render the ticket.")
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.%s"`, ap.TicketNo, f.Ext()))
	c.Data(http.StatusOK, f.ContentType(), buf.Bytes())
}

// TicketArchive stores a copy of the ticket and sends the browser to a
// time-limited download link.
func (h *PageHandler) TicketArchive(c *gin.Context) {
	if h.cfg.Archiver == nil {
		c.String(http.StatusNotFound, "Ticket archive is not configured.")
		return
	}
	s, ap, ok := h.ticketFor(c)
	if !ok {
		return
	}
	f, ok := formatParam(c)
	if !ok {
		return
	}

	link, err := h.cfg.Archiver.Archive(c.Request.Context(), ap, f)
	if err != nil {
		h.cfg.Logger.Error().Err(err).Int64("appointment_id", ap.ID).Msg("ticket archive failed")
		h.renderTicket(c, ap.ID, s.Snapshot(), gin.H{"Error": MsgArchiveFailed})
		return
	}
	c.Redirect(http.StatusSeeOther, link)
}
