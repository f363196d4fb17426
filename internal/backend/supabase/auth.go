package supabase

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/BruksfildServices01/medease/internal/backend"
)

type tokenResponse struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	ExpiresIn    int64        `json:"expires_in"`
	ExpiresAt    int64        `json:"expires_at"`
	User         backend.User `json:"user"`
}

func (c *Client) toSession(t tokenResponse) *backend.Session {
	return &backend.Session{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		ExpiresAt:    c.expiry(t),
		User:         t.User,
	}
}

// expiry prefers expires_at, then expires_in, then the token's exp claim.
func (c *Client) expiry(t tokenResponse) time.Time {
	switch {
	case t.ExpiresAt > 0:
		return time.Unix(t.ExpiresAt, 0)
	case t.ExpiresIn > 0:
		return c.d.now().Add(time.Duration(t.ExpiresIn) * time.Second)
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(t.AccessToken, claims); err != nil {
		return time.Time{}
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}

func (c *Client) GetSession(ctx context.Context) (*backend.Session, error) {
	sess, err := c.state.Load(ctx)
	if err != nil || sess == nil {
		return nil, err
	}
	if !sess.Expired(c.d.now(), refreshMargin) {
		return sess, nil
	}
	return c.refresh(ctx, sess)
}

func (c *Client) refresh(ctx context.Context, sess *backend.Session) (*backend.Session, error) {
	var t tokenResponse
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/auth/v1/token",
		query:  url.Values{"grant_type": {"refresh_token"}},
		body:   map[string]string{"refresh_token": sess.RefreshToken},
	}, &t)
	if err != nil {
		var apiErr *backend.APIError
		if errors.As(err, &apiErr) && apiErr.Status < http.StatusInternalServerError {
			// Refresh token rejected: the session is gone for good.
			return nil, c.state.Clear(ctx)
		}
		return nil, err
	}

	next := c.toSession(t)
	if next.User.ID == "" {
		next.User = sess.User
	}
	if err := c.state.Set(ctx, next, backend.EventTokenRefreshed); err != nil {
		return nil, err
	}
	return next, nil
}

func (c *Client) OnAuthStateChange(fn backend.AuthChangeFunc) backend.Subscription {
	return c.state.Subscribe(fn)
}

func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*backend.Session, error) {
	var t tokenResponse
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/auth/v1/token",
		query:  url.Values{"grant_type": {"password"}},
		body:   map[string]string{"email": email, "password": password},
	}, &t)
	if err != nil {
		return nil, err
	}
	sess := c.toSession(t)
	if err := c.state.Set(ctx, sess, backend.EventSignedIn); err != nil {
		return nil, err
	}
	return sess, nil
}

// signUpResponse is either the user itself (confirmation pending) or a
// session wrapping it (autoconfirm).
type signUpResponse struct {
	backend.User
	Nested *backend.User `json:"user"`
}

func (c *Client) SignUp(ctx context.Context, email, password string) (*backend.User, error) {
	var r signUpResponse
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/auth/v1/signup",
		body:   map[string]string{"email": email, "password": password},
	}, &r)
	if err != nil {
		return nil, err
	}
	if r.Nested != nil && r.Nested.ID != "" {
		return r.Nested, nil
	}
	if r.ID == "" {
		return nil, nil
	}
	return &r.User, nil
}

// SignOut revokes the session remotely and always forgets it locally.
func (c *Client) SignOut(ctx context.Context) error {
	sess, _ := c.state.Load(ctx)
	var err error
	if sess != nil {
		err = c.do(ctx, request{
			method: http.MethodPost,
			path:   "/auth/v1/logout",
			token:  sess.AccessToken,
		}, nil)
		var apiErr *backend.APIError
		if errors.As(err, &apiErr) && (apiErr.Status == http.StatusUnauthorized || apiErr.Status == http.StatusNotFound) {
			err = nil
		}
	}
	if clearErr := c.state.Clear(ctx); err == nil {
		err = clearErr
	}
	return err
}

// accessToken is the bearer for data calls; "" falls back to the anon key.
func (c *Client) accessToken(ctx context.Context) (string, error) {
	sess, err := c.GetSession(ctx)
	if err != nil {
		return "", err
	}
	if sess == nil {
		return "", nil
	}
	return sess.AccessToken, nil
}
