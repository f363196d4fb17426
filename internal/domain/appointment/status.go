package appointment

import "github.com/BruksfildServices01/medease/internal/httperr"

// ===============================
// Appointment Status
// ===============================

type Status string

const (
	StatusPending   Status = "Pending"
	StatusCancelled Status = "Cancelled"
)

// ===============================
// Validations
// ===============================

// CanCancel reports whether an appointment may still be cancelled.
// Pending -> Cancelled is the only transition.
func CanCancel(current Status) error {
	if current != StatusPending {
		return httperr.ErrBusinessMessage("invalid_state", "This appointment can no longer be cancelled.")
	}
	return nil
}

func InitialStatus() Status {
	return StatusPending
}
