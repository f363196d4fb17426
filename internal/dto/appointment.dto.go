package dto

import (
	"time"

	"github.com/BruksfildServices01/medease/internal/backend"
	"github.com/BruksfildServices01/medease/internal/catalog"
	domain "github.com/BruksfildServices01/medease/internal/domain/appointment"
	"github.com/BruksfildServices01/medease/internal/models"
)

type AppointmentDTO struct {
	ID          int64     `json:"id"`
	TicketNo    string    `json:"ticket_no"`
	PatientName string    `json:"patient_name"`
	Phone       string    `json:"phone"`
	Department  string    `json:"department"`
	DoctorName  string    `json:"doctor_name"`
	Date        string    `json:"date"`
	Time        string    `json:"time"`
	DateLabel   string    `json:"date_label"`
	TimeLabel   string    `json:"time_label"`
	Symptoms    string    `json:"symptoms"`
	Status      string    `json:"status"`
	CanCancel   bool      `json:"can_cancel"`
	CreatedAt   time.Time `json:"created_at"`
}

func FromAppointment(ap models.Appointment) AppointmentDTO {
	return AppointmentDTO{
		ID:          ap.ID,
		TicketNo:    ap.TicketNo,
		PatientName: ap.PatientName,
		Phone:       ap.Phone,
		Department:  ap.Department,
		DoctorName:  ap.DoctorName,
		Date:        ap.Date,
		Time:        ap.Time,
		DateLabel:   catalog.FormatDate(ap.Date),
		TimeLabel:   catalog.FormatTime(ap.Time),
		Symptoms:    ap.Symptoms,
		Status:      ap.Status,
		CanCancel:   domain.Cancellable(ap),
		CreatedAt:   ap.CreatedAt,
	}
}

func FromAppointments(aps []models.Appointment) []AppointmentDTO {
	out := make([]AppointmentDTO, 0, len(aps))
	for _, ap := range aps {
		out = append(out, FromAppointment(ap))
	}
	return out
}

type MeDTO struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Phone    string `json:"phone"`
}

// FromUser merges the auth user with the profile, which may still be
// missing right after sign-up.
func FromUser(u *backend.User, p *models.Profile) MeDTO {
	me := MeDTO{ID: u.ID, Email: u.Email}
	if p != nil {
		me.FullName = p.FullName
		me.Phone = p.Phone
	}
	return me
}
