package selfhosted

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/BruksfildServices01/medease/internal/backend"
	"github.com/BruksfildServices01/medease/internal/models"
)

func (c *Client) GetSession(ctx context.Context) (*backend.Session, error) {
	sess, err := c.state.Load(ctx)
	if err != nil || sess == nil {
		return nil, err
	}
	if _, err := c.d.tokens.verify(sess.AccessToken); err == nil {
		return sess, nil
	}
	return c.refresh(ctx, sess)
}

func (c *Client) refresh(ctx context.Context, sess *backend.Session) (*backend.Session, error) {
	now := c.d.tokens.now()

	var next *backend.Session
	err := c.d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rt models.RefreshToken
		if err := tx.
			Where("token = ? AND user_id = ? AND revoked_at IS NULL AND expires_at > ?", sess.RefreshToken, sess.User.ID, now).
			First(&rt).Error; err != nil {
			return err
		}
		if err := tx.Model(&rt).Update("revoked_at", now).Error; err != nil {
			return err
		}
		s, err := c.d.issue(tx, sess.User)
		next = s
		return err
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, c.state.Clear(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("refresh session: %w", err)
	}

	if err := c.state.Set(ctx, next, backend.EventTokenRefreshed); err != nil {
		return nil, err
	}
	return next, nil
}

func (d *Driver) issue(tx *gorm.DB, u backend.User) (*backend.Session, error) {
	access, exp, err := d.tokens.sign(u.ID, u.Email)
	if err != nil {
		return nil, err
	}
	rt := models.RefreshToken{
		Token:     strings.ReplaceAll(uuid.NewString(), "-", ""),
		UserID:    u.ID,
		ExpiresAt: d.tokens.now().Add(d.tokens.refreshTTL),
	}
	if err := tx.Create(&rt).Error; err != nil {
		return nil, err
	}
	return &backend.Session{
		AccessToken:  access,
		RefreshToken: rt.Token,
		ExpiresAt:    exp,
		User:         u,
	}, nil
}

func (c *Client) OnAuthStateChange(fn backend.AuthChangeFunc) backend.Subscription {
	return c.state.Subscribe(fn)
}

func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*backend.Session, error) {
	var user models.AuthUser
	err := c.d.db.WithContext(ctx).
		Where("email = ?", strings.ToLower(email)).
		First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, backend.ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, backend.ErrInvalidCredentials
	}

	sess, err := c.d.issue(c.d.db.WithContext(ctx), backend.User{ID: user.ID, Email: user.Email})
	if err != nil {
		return nil, fmt.Errorf("issue session: %w", err)
	}
	if err := c.state.Set(ctx, sess, backend.EventSignedIn); err != nil {
		return nil, err
	}
	return sess, nil
}

func (c *Client) SignUp(ctx context.Context, email, password string) (*backend.User, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	user := models.AuthUser{
		ID:           uuid.NewString(),
		Email:        strings.ToLower(email),
		PasswordHash: string(hashed),
	}
	if err := c.d.db.WithContext(ctx).Create(&user).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, backend.ErrAlreadyRegistered
		}
		return nil, err
	}
	return &backend.User{ID: user.ID, Email: user.Email}, nil
}

func (c *Client) SignOut(ctx context.Context) error {
	sess, _ := c.state.Load(ctx)
	var err error
	if sess != nil {
		err = c.d.db.WithContext(ctx).
			Model(&models.RefreshToken{}).
			Where("token = ? AND revoked_at IS NULL", sess.RefreshToken).
			Update("revoked_at", time.Now()).Error
	}
	if clearErr := c.state.Clear(ctx); err == nil {
		err = clearErr
	}
	return err
}
