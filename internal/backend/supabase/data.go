package supabase

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/BruksfildServices01/medease/internal/backend"
	"github.com/BruksfildServices01/medease/internal/models"
)

func eq(v string) string { return "eq." + v }

func (c *Client) GetProfile(ctx context.Context, userID string) (*models.Profile, error) {
	token, err := c.accessToken(ctx)
	if err != nil {
		return nil, err
	}
	var p models.Profile
	err = c.do(ctx, request{
		method: http.MethodGet,
		path:   "/rest/v1/profiles",
		query:  url.Values{"select": {"*"}, "id": {eq(userID)}},
		token:  token,
		header: map[string]string{"Accept": "application/vnd.pgrst.object+json"},
	}, &p)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) UpsertProfile(ctx context.Context, p models.Profile) error {
	token, err := c.accessToken(ctx)
	if err != nil {
		return err
	}
	return c.do(ctx, request{
		method: http.MethodPost,
		path:   "/rest/v1/profiles",
		body:   p,
		token:  token,
		header: map[string]string{"Prefer": "resolution=merge-duplicates,return=minimal"},
	}, nil)
}

func (c *Client) ListAppointments(ctx context.Context, userID string) ([]models.Appointment, error) {
	token, err := c.accessToken(ctx)
	if err != nil {
		return nil, err
	}
	var rows []models.Appointment
	err = c.do(ctx, request{
		method: http.MethodGet,
		path:   "/rest/v1/appointments",
		query: url.Values{
			"select":  {"*"},
			"user_id": {eq(userID)},
			"order":   {"created_at.desc"},
		},
		token: token,
	}, &rows)
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []models.Appointment{}
	}
	return rows, nil
}

func (c *Client) FindPendingAppointments(ctx context.Context, q backend.ConflictQuery) ([]int64, error) {
	token, err := c.accessToken(ctx)
	if err != nil {
		return nil, err
	}
	var rows []struct {
		ID int64 `json:"id"`
	}
	err = c.do(ctx, request{
		method: http.MethodGet,
		path:   "/rest/v1/appointments",
		query: url.Values{
			"select":      {"id"},
			"user_id":     {eq(q.UserID)},
			"doctor_name": {eq(q.DoctorName)},
			"date":        {eq(q.Date)},
			"time":        {eq(q.Time)},
			"status":      {eq("Pending")},
		},
		token: token,
	}, &rows)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.ID)
	}
	return ids, nil
}

// appointmentRow leaves id and created_at to the database.
type appointmentRow struct {
	UserID      string `json:"user_id"`
	PatientName string `json:"patient_name"`
	Phone       string `json:"phone"`
	Department  string `json:"department"`
	DoctorName  string `json:"doctor_name"`
	Date        string `json:"date"`
	Time        string `json:"time"`
	Symptoms    string `json:"symptoms"`
	TicketNo    string `json:"ticket_no"`
	Status      string `json:"status"`
}

func (c *Client) InsertAppointment(ctx context.Context, ap *models.Appointment) error {
	token, err := c.accessToken(ctx)
	if err != nil {
		return err
	}
	var rows []models.Appointment
	err = c.do(ctx, request{
		method: http.MethodPost,
		path:   "/rest/v1/appointments",
		body: appointmentRow{
			UserID:      ap.UserID,
			PatientName: ap.PatientName,
			Phone:       ap.Phone,
			Department:  ap.Department,
			DoctorName:  ap.DoctorName,
			Date:        ap.Date,
			Time:        ap.Time,
			Symptoms:    ap.Symptoms,
			TicketNo:    ap.TicketNo,
			Status:      ap.Status,
		},
		token:  token,
		header: map[string]string{"Prefer": "return=representation"},
	}, &rows)
	if err != nil {
		return err
	}
	if len(rows) == 1 {
		*ap = rows[0]
	}
	return nil
}

func (c *Client) UpdateAppointmentStatus(ctx context.Context, id int64, userID, status string) error {
	token, err := c.accessToken(ctx)
	if err != nil {
		return err
	}
	err = c.do(ctx, request{
		method: http.MethodPatch,
		path:   "/rest/v1/appointments",
		query: url.Values{
			"id":      {eq(strconv.FormatInt(id, 10))},
			"user_id": {eq(userID)},
		},
		body:   map[string]string{"status": status},
		token:  token,
		header: map[string]string{"Prefer": "return=minimal"},
	}, nil)
	if err != nil {
		return fmt.Errorf("update appointment %d: %w", id, err)
	}
	return nil
}
