package appointment

import "github.com/BruksfildServices01/medease/internal/models"

// SlotKey identifies a booked slot for one patient account. Two Pending
// appointments with the same key conflict.
type SlotKey struct {
	UserID     string
	DoctorName string
	Date       string
	Time       string
}

func KeyOf(ap models.Appointment) SlotKey {
	return SlotKey{
		UserID:     ap.UserID,
		DoctorName: ap.DoctorName,
		Date:       ap.Date,
		Time:       ap.Time,
	}
}

// Conflicts reports whether ap occupies the slot identified by k.
func (k SlotKey) Conflicts(ap models.Appointment) bool {
	return Status(ap.Status) == StatusPending && KeyOf(ap) == k
}
