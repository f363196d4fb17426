// Package booking is the appointment form: defaults, the department to
// doctor filter and the checks run before anything is sent to the backend.
package booking

import (
	"strings"
	"time"

	"github.com/BruksfildServices01/medease/internal/catalog"
	"github.com/BruksfildServices01/medease/internal/models"
	"github.com/BruksfildServices01/medease/internal/router"
	"github.com/BruksfildServices01/medease/internal/timezone"
)

type Error string

func (e Error) Error() string { return string(e) }

const (
	ErrMissingFields = Error("Please fill out all required fields to book your appointment.")
	ErrInPast        = Error("You cannot book an appointment in the past. Please select a future date and time.")
	ErrBadDateTime   = Error("Please select a valid date and time.")

	MsgBooked = "Appointment booked successfully! Redirecting..."
)

type Form struct {
	PatientName string `form:"patient_name" json:"patient_name"`
	Phone       string `form:"phone" json:"phone"`
	Department  string `form:"department" json:"department"`
	Doctor      string `form:"doctor" json:"doctor_name"`
	Date        string `form:"date" json:"date"`
	Time        string `form:"time" json:"time"`
	Symptoms    string `form:"symptoms" json:"symptoms"`
}

// NewForm starts from the profile's name and phone and the prefilled
// department and doctor, if any.
func NewForm(profile *models.Profile, prefill *router.Prefill) Form {
	var f Form
	if profile != nil {
		f.PatientName = profile.FullName
		f.Phone = profile.Phone
	}
	if prefill != nil {
		f.Department = prefill.Department
		f.Doctor = prefill.Doctor
		f.normalizeDoctor()
	}
	return f
}

// SelectDepartment switches department and drops a doctor who does not
// work there.
func (f *Form) SelectDepartment(department string) {
	f.Department = department
	f.normalizeDoctor()
}

func (f *Form) normalizeDoctor() {
	if f.Doctor != "" && !catalog.HasDoctor(f.Department, f.Doctor) {
		f.Doctor = ""
	}
}

// AvailableDoctors lists the doctors of the selected department.
func (f Form) AvailableDoctors() []string {
	if f.Department == "" {
		return nil
	}
	return catalog.DoctorsFor(f.Department)
}

// Validate checks required fields, that the time is one of the clinic's
// slots and that the slot is in the future in loc. Symptoms are optional.
func (f *Form) Validate(now time.Time, loc *time.Location) error {
	f.normalizeDoctor()
	if strings.TrimSpace(f.PatientName) == "" ||
		strings.TrimSpace(f.Phone) == "" ||
		f.Department == "" ||
		f.Doctor == "" ||
		f.Date == "" ||
		f.Time == "" {
		return ErrMissingFields
	}

	slot, err := timezone.SlotTime(f.Date, f.Time, loc)
	if err != nil || !catalog.IsTimeSlot(fullClock(f.Time)) {
		return ErrBadDateTime
	}
	if slot.Before(now) {
		return ErrInPast
	}
	return nil
}

// fullClock pads HH:MM to HH:MM:SS.
func fullClock(clock string) string {
	if len(clock) == 5 {
		return clock + ":00"
	}
	return clock
}

// SelectedSlot is the form's time in slot notation.
func (f Form) SelectedSlot() string {
	return fullClock(f.Time)
}

func (f Form) Input() models.AppointmentInput {
	return models.AppointmentInput{
		PatientName: strings.TrimSpace(f.PatientName),
		Phone:       strings.TrimSpace(f.Phone),
		Department:  f.Department,
		DoctorName:  f.Doctor,
		Date:        f.Date,
		Time:        fullClock(f.Time),
		Symptoms:    strings.TrimSpace(f.Symptoms),
	}
}
