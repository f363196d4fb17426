package handlers

import (
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/gin-gonic/gin"

	"github.com/BruksfildServices01/medease/internal/router"
	"github.com/BruksfildServices01/medease/internal/validators"
)

const (
	MsgFillAllFields = "Please fill in all fields."
	MsgInvalidEmail  = "Please enter a valid email address."
	MsgInvalidPhone  = "Phone number must be numeric and between 11-13 digits."
	MsgRegistered    = "Registration successful! Redirecting to your dashboard..."
	MsgBadForm       = "We could not read the submitted form. Please try again."

	msgPasswordLength = "Password must be at least %d characters long."
)

// --------- Requests ---------

type LoginRequest struct {
	Email    string `form:"email" json:"email"`
	Password string `form:"password" json:"password"`
	Next     string `form:"next" json:"-"`
}

type RegisterRequest struct {
	FullName string `form:"full_name" json:"full_name"`
	Email    string `form:"email" json:"email"`
	Phone    string `form:"phone" json:"phone"`
	Password string `form:"password" json:"password"`
}

// check runs the register page's own field checks before the store's.
// A minPassword of zero leaves the length check to the store.
func (r RegisterRequest) check(minPassword int) string {
	if strings.TrimSpace(r.FullName) == "" ||
		strings.TrimSpace(r.Email) == "" ||
		strings.TrimSpace(r.Phone) == "" ||
		r.Password == "" {
		return MsgFillAllFields
	}
	if !validators.IsEmail(strings.TrimSpace(r.Email)) {
		return MsgInvalidEmail
	}
	if !validators.IsPhone(strings.TrimSpace(r.Phone)) {
		return MsgInvalidPhone
	}
	if minPassword > 0 && utf8.RuneCountInString(r.Password) < minPassword {
		return fmt.Sprintf(msgPasswordLength, minPassword)
	}
	return ""
}

// --------- Handlers ---------

func (h *PageHandler) LoginPage(c *gin.Context) {
	_, snap, ok := h.resolve(c)
	if !ok {
		return
	}
	next := c.Query("next")
	if snap.User != nil {
		c.Redirect(http.StatusSeeOther, router.SafeNext(next))
		return
	}
	h.render(c, http.StatusOK, string(router.PageLogin), snap, gin.H{"Next": next})
}

func (h *PageHandler) Login(c *gin.Context) {
	s := mustStore(c)

	var req LoginRequest
	if err := c.ShouldBind(&req); err != nil {
		h.cfg.Logger.Warn().Err(err).Msg("login form bind failed")
		h.render(c, http.StatusBadRequest, string(router.PageLogin), s.Snapshot(), gin.H{
			"Error": MsgBadForm,
			"Next":  c.Query("next"),
		})
		return
	}

	if err := s.Login(c.Request.Context(), req.Email, req.Password); err != nil {
		status, _ := statusFor(err)
		h.render(c, status, string(router.PageLogin), s.Snapshot(), gin.H{
			"Error": err.Error(),
			"Email": req.Email,
			"Next":  req.Next,
		})
		return
	}
	c.Redirect(http.StatusSeeOther, router.SafeNext(req.Next))
}

func (h *PageHandler) RegisterPage(c *gin.Context) {
	_, snap, ok := h.resolve(c)
	if !ok {
		return
	}
	h.render(c, http.StatusOK, string(router.PageRegister), snap, gin.H{
		"Form":        RegisterRequest{},
		"MinPassword": h.cfg.MinPassword,
	})
}

func (h *PageHandler) Register(c *gin.Context) {
	s := mustStore(c)

	var req RegisterRequest
	bindErr := c.ShouldBind(&req)

	fail := func(status int, msg string) {
		req.Password = ""
		h.render(c, status, string(router.PageRegister), s.Snapshot(), gin.H{
			"Form":        req,
			"MinPassword": h.cfg.MinPassword,
			"Error":       msg,
		})
	}

	if bindErr != nil {
		h.cfg.Logger.Warn().Err(bindErr).Msg("register form bind failed")
		fail(http.StatusBadRequest, MsgBadForm)
		return
	}
	if msg := req.check(h.cfg.MinPassword); msg != "" {
		fail(http.StatusBadRequest, msg)
		return
	}
	if err := s.Register(c.Request.Context(), req.FullName, req.Email, req.Phone, req.Password); err != nil {
		status, _ := statusFor(err)
		fail(status, err.Error())
		return
	}

	h.render(c, http.StatusOK, string(router.PageRegister), s.Snapshot(), gin.H{
		"Form":        RegisterRequest{},
		"MinPassword": h.cfg.MinPassword,
		"Success":     MsgRegistered,
		"RedirectTo":  router.PageMyAppointments.Path(0),
	})
}

func (h *PageHandler) Logout(c *gin.Context) {
	mustStore(c).Logout(c.Request.Context())
	c.Redirect(http.StatusSeeOther, router.PageHome.Path(0))
}
