package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/BruksfildServices01/medease/internal/backend"
	"github.com/BruksfildServices01/medease/internal/booking"
	"github.com/BruksfildServices01/medease/internal/httperr"
	"github.com/BruksfildServices01/medease/internal/store"
)

// statusFor maps an operation error to an HTTP status and error code.
func statusFor(err error) (int, string) {
	var formErr booking.Error
	if errors.As(err, &formErr) {
		return http.StatusBadRequest, "validation_error"
	}
	if errors.Is(err, backend.ErrInvalidCredentials) {
		return http.StatusUnauthorized, "invalid_credentials"
	}

	switch store.KindOf(err) {
	case store.KindValidation:
		return http.StatusBadRequest, "validation_error"
	case store.KindConflict:
		return http.StatusConflict, "slot_taken"
	case store.KindUnauthenticated:
		return http.StatusUnauthorized, "not_logged_in"
	default:
		return http.StatusBadGateway, "backend_error"
	}
}

func writeError(c *gin.Context, err error) {
	status, code := statusFor(err)
	httperr.Write(c, status, code, err.Error())
}
