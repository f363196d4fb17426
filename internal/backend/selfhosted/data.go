package selfhosted

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/BruksfildServices01/medease/internal/backend"
	"github.com/BruksfildServices01/medease/internal/models"
)

// owner is the user id data calls run as, "" when signed out.
func (c *Client) owner(ctx context.Context) (string, error) {
	sess, err := c.GetSession(ctx)
	if err != nil {
		return "", err
	}
	if sess == nil {
		return "", nil
	}
	return sess.User.ID, nil
}

func (c *Client) GetProfile(ctx context.Context, userID string) (*models.Profile, error) {
	owner, err := c.owner(ctx)
	if err != nil {
		return nil, err
	}
	if owner == "" {
		return nil, backend.ErrNotFound
	}

	var p models.Profile
	err = c.d.db.WithContext(ctx).
		Where("id = ? AND id = ?", userID, owner).
		First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, backend.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) UpsertProfile(ctx context.Context, p models.Profile) error {
	owner, err := c.owner(ctx)
	if err != nil {
		return err
	}
	if owner == "" || p.ID != owner {
		return backend.ErrForbidden
	}
	return c.d.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"full_name", "phone", "email"}),
		}).
		Create(&p).Error
}

func (c *Client) ListAppointments(ctx context.Context, userID string) ([]models.Appointment, error) {
	owner, err := c.owner(ctx)
	if err != nil {
		return nil, err
	}

	apps := []models.Appointment{}
	if owner == "" {
		return apps, nil
	}
	if err := c.d.db.WithContext(ctx).
		Where("user_id = ? AND user_id = ?", userID, owner).
		Order("created_at DESC, id DESC").
		Find(&apps).Error; err != nil {
		return nil, err
	}
	return apps, nil
}

func (c *Client) FindPendingAppointments(ctx context.Context, q backend.ConflictQuery) ([]int64, error) {
	owner, err := c.owner(ctx)
	if err != nil {
		return nil, err
	}

	var ids []int64
	if owner == "" {
		return ids, nil
	}
	if err := c.d.db.WithContext(ctx).
		Model(&models.Appointment{}).
		Where(
			"user_id = ? AND user_id = ? AND doctor_name = ? AND date = ? AND time = ? AND status = 'Pending'",
			q.UserID, owner, q.DoctorName, q.Date, q.Time,
		).
		Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

func (c *Client) InsertAppointment(ctx context.Context, ap *models.Appointment) error {
	owner, err := c.owner(ctx)
	if err != nil {
		return err
	}
	if owner == "" || ap.UserID != owner {
		return backend.ErrForbidden
	}

	ap.ID = 0
	if err := c.d.db.WithContext(ctx).Create(ap).Error; err != nil {
		if isUniqueViolation(err) {
			return backend.ErrConflict
		}
		return err
	}
	return nil
}

func (c *Client) UpdateAppointmentStatus(ctx context.Context, id int64, userID, status string) error {
	owner, err := c.owner(ctx)
	if err != nil {
		return err
	}
	if owner == "" {
		return nil
	}
	return c.d.db.WithContext(ctx).
		Model(&models.Appointment{}).
		Where("id = ? AND user_id = ? AND user_id = ?", id, userID, owner).
		Update("status", status).Error
}
