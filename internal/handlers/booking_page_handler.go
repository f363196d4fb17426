package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/BruksfildServices01/medease/internal/booking"
	"github.com/BruksfildServices01/medease/internal/catalog"
	"github.com/BruksfildServices01/medease/internal/router"
	"github.com/BruksfildServices01/medease/internal/store"
)

const errBadBookingForm = booking.Error(MsgBadForm)

type slotOption struct {
	Value string
	Label string
}

func slotOptions() []slotOption {
	slots := catalog.TimeSlots()
	out := make([]slotOption, 0, len(slots))
	for _, t := range slots {
		out = append(out, slotOption{Value: t, Label: catalog.FormatTime(t)})
	}
	return out
}

func (h *PageHandler) bookData(f booking.Form) gin.H {
	return gin.H{
		"Form":         f,
		"Departments":  catalog.DepartmentNames(),
		"Doctors":      f.AvailableDoctors(),
		"Slots":        slotOptions(),
		"SelectedSlot": f.SelectedSlot(),
		"MinDate":      h.cfg.Now().In(h.cfg.Location).Format("2006-01-02"),
		"AutoDismiss":  true,
	}
}

func (h *PageHandler) BookPage(c *gin.Context) {
	v, snap, ok := h.resolve(c)
	if !ok {
		return
	}
	form := booking.NewForm(snap.Profile, v.Prefill)
	h.render(c, http.StatusOK, string(router.PageBook), snap, h.bookData(form))
}

// Book handles both the department switch, which only re-renders the
// doctor list, and the actual booking.
func (h *PageHandler) Book(c *gin.Context) {
	s, snap, ok := h.requireUser(c)
	if !ok {
		return
	}

	var form booking.Form
	bindErr := c.ShouldBind(&form)

	fail := func(err error) {
		status, _ := statusFor(err)
		data := h.bookData(form)
		data["Error"] = err.Error()
		h.render(c, status, string(router.PageBook), s.Snapshot(), data)
	}

	if bindErr != nil {
		h.cfg.Logger.Warn().Err(bindErr).Msg("booking form bind failed")
		fail(errBadBookingForm)
		return
	}
	if c.PostForm("step") == "department" {
		form.SelectDepartment(form.Department)
		h.render(c, http.StatusOK, string(router.PageBook), snap, h.bookData(form))
		return
	}

	if err := form.Validate(h.cfg.Now(), h.cfg.Location); err != nil {
		fail(err)
		return
	}
	if err := s.BookAppointment(c.Request.Context(), form.Input()); err != nil {
		fail(err)
		return
	}

	h.renderBooked(c, s.Snapshot())
}

func (h *PageHandler) renderBooked(c *gin.Context, snap store.Snapshot) {
	data := h.bookData(booking.NewForm(snap.Profile, nil))
	data["Success"] = booking.MsgBooked
	data["RedirectTo"] = router.PageMyAppointments.Path(0)
	h.render(c, http.StatusOK, string(router.PageBook), snap, data)
}
