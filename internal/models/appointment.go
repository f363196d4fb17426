package models

import "time"

type Appointment struct {
	ID     int64  `gorm:"primaryKey" json:"id"`
	UserID string `gorm:"type:uuid;index;not null" json:"user_id"`

	PatientName string `gorm:"size:100;not null" json:"patient_name"`
	Phone       string `gorm:"size:20" json:"phone"`

	Department string `gorm:"size:50;not null" json:"department"`
	DoctorName string `gorm:"size:100;not null" json:"doctor_name"`

	// Date is YYYY-MM-DD and Time is HH:MM:SS, kept as text so every
	// backend returns the same representation.
	Date string `gorm:"size:10;not null" json:"date"`
	Time string `gorm:"size:8;not null" json:"time"`

	Symptoms string `gorm:"type:text" json:"symptoms"`
	TicketNo string `gorm:"size:30;index" json:"ticket_no"`
	Status   string `gorm:"size:20;default:'Pending'" json:"status"`

	CreatedAt time.Time `json:"created_at"`
}

func (Appointment) TableName() string {
	return "appointments"
}

// AppointmentInput is what a patient fills in; the rest of the row is
// assigned when booking.
type AppointmentInput struct {
	PatientName string `json:"patient_name"`
	Phone       string `json:"phone"`
	Department  string `json:"department"`
	DoctorName  string `json:"doctor_name"`
	Date        string `json:"date"`
	Time        string `json:"time"`
	Symptoms    string `json:"symptoms"`
}
