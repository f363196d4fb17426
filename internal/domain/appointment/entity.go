package appointment

import (
	"github.com/BruksfildServices01/medease/internal/models"
)

// Cancellable is the template-facing form of CanCancel.
func Cancellable(ap models.Appointment) bool {
	return CanCancel(Status(ap.Status)) == nil
}
