// Package catalog holds the clinic's static department and doctor table and
// the fixed daily time slots offered for booking.
package catalog

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

type Doctor struct {
	Name         string
	Experience   string
	Availability string
}

type Department struct {
	Name        string
	Description string
	Doctors     []Doctor
}

var departments = []Department{
	{
		Name:        "Cardiology",
		Description: "Specializing in heart and blood vessel disorders.",
		Doctors: []Doctor{
			{Name: "Dr. Ayesha Malik", Experience: "12 years", Availability: "Mon–Fri"},
			{Name: "Dr. Hamza Qureshi", Experience: "8 years", Availability: "Tue–Sat"},
		},
	},
	{
		Name:        "Dermatology",
		Description: "Focused on skin health, from cosmetic to surgical.",
		Doctors: []Doctor{
			{Name: "Dr. Sana Tariq", Experience: "10 years", Availability: "Mon–Thu"},
		},
	},
	{
		Name:        "General Medicine",
		Description: "Comprehensive primary care for adults.",
		Doctors: []Doctor{
			{Name: "Dr. Bilal Ahmed", Experience: "15 years", Availability: "Mon–Fri"},
		},
	},
	{
		Name:        "ENT",
		Description: "Care for ear, nose, and throat conditions.",
		Doctors: []Doctor{
			{Name: "Dr. Hira Nadeem", Experience: "9 years", Availability: "Wed–Sun"},
		},
	},
	{
		Name:        "Pediatrics",
		Description: "Dedicated healthcare for infants, children, and adolescents.",
		Doctors: []Doctor{
			{Name: "Dr. Sameer Khan", Experience: "7 years", Availability: "Mon–Sat"},
		},
	},
	{
		Name:        "Neurology",
		Description: "Treatment of nervous system disorders.",
		Doctors: []Doctor{
			{Name: "Dr. Amna Rehman", Experience: "11 years", Availability: "Tue–Fri"},
		},
	},
}

var timeSlots = []string{"09:00:00", "10:00:00", "11:00:00", "14:00:00", "15:00:00", "16:00:00"}

func Departments() []Department {
	out := make([]Department, len(departments))
	copy(out, departments)
	return out
}

func DepartmentNames() []string {
	names := make([]string, 0, len(departments))
	for _, d := range departments {
		names = append(names, d.Name)
	}
	return names
}

func FindDepartment(name string) (Department, bool) {
	for _, d := range departments {
		if d.Name == name {
			return d, true
		}
	}
	return Department{}, false
}

// DoctorsFor returns the doctor names of a department, or nil when the
// department is unknown.
func DoctorsFor(department string) []string {
	d, ok := FindDepartment(department)
	if !ok {
		return nil
	}
	names := make([]string, 0, len(d.Doctors))
	for _, doc := range d.Doctors {
		names = append(names, doc.Name)
	}
	return names
}

func HasDoctor(department, doctor string) bool {
	for _, name := range DoctorsFor(department) {
		if name == doctor {
			return true
		}
	}
	return false
}

func TimeSlots() []string {
	out := make([]string, len(timeSlots))
	copy(out, timeSlots)
	return out
}

func IsTimeSlot(t string) bool {
	for _, s := range timeSlots {
		if s == t {
			return true
		}
	}
	return false
}

// FormatTime turns "14:00:00" into "2:00 PM".
func FormatTime(t string) string {
	if t == "" {
		return ""
	}
	parts := strings.Split(t, ":")
	if len(parts) < 2 {
		return t
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return t
	}
	period := "AM"
	if h >= 12 {
		period = "PM"
	}
	h12 := h % 12
	if h12 == 0 {
		h12 = 12
	}
	return fmt.Sprintf("%d:%s %s", h12, parts[1], period)
}

// FormatDate turns "2024-05-03" into "Friday, May 3, 2024".
func FormatDate(d string) string {
	t, err := time.Parse("2006-01-02", d)
	if err != nil {
		return d
	}
	return t.Format("Monday, January 2, 2006")
}
