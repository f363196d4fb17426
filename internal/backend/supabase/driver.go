// Package supabase talks to a Supabase-compatible service: GoTrue under
// /auth/v1 and PostgREST under /rest/v1.
package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/BruksfildServices01/medease/internal/backend"
)

// refreshMargin renews access tokens shortly before they expire.
const refreshMargin = 30 * time.Second

type Config struct {
	URL     string
	AnonKey string
	Timeout time.Duration
}

type Driver struct {
	baseURL string
	anonKey string
	http    *http.Client
	storage backend.SessionStorage
	logger  zerolog.Logger
	now     func() time.Time
}

func New(cfg Config, storage backend.SessionStorage, logger zerolog.Logger) *Driver {
	if storage == nil {
		storage = backend.NewMemoryStorage()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Driver{
		baseURL: strings.TrimRight(cfg.URL, "/"),
		anonKey: cfg.AnonKey,
		http:    &http.Client{Timeout: timeout},
		storage: storage,
		logger:  logger.With().Str("component", "supabase").Logger(),
		now:     time.Now,
	}
}

func (d *Driver) NewClient(key string) backend.Client {
	return &Client{d: d, state: backend.NewSessionState(key, d.storage)}
}

func (d *Driver) Close() error {
	d.http.CloseIdleConnections()
	return nil
}

type Client struct {
	d     *Driver
	state *backend.SessionState
}

type request struct {
	method string
	path   string
	query  url.Values
	body   interface{}
	token  string
	header map[string]string
}

// do sends one request. Non-2xx responses come back as *backend.APIError.
func (c *Client) do(ctx context.Context, r request, out interface{}) error {
	u := c.d.baseURL + r.path
	if len(r.query) > 0 {
		u += "?" + r.query.Encode()
	}

	var body io.Reader
	if r.body != nil {
		raw, err := json.Marshal(r.body)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, r.method, u, body)
	if err != nil {
		return err
	}
	token := r.token
	if token == "" {
		token = c.d.anonKey
	}
	req.Header.Set("apikey", c.d.anonKey)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if r.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range r.header {
		req.Header.Set(k, v)
	}

	res, err := c.d.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", r.method, r.path, err)
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return fmt.Errorf("%s %s: read body: %w", r.method, r.path, err)
	}
	if res.StatusCode >= 400 {
		apiErr := decodeError(res.StatusCode, raw)
		c.d.logger.Debug().
			Str("method", r.method).
			Str("path", r.path).
			Int("status", res.StatusCode).
			Str("code", apiErr.Code).
			Msg("backend request failed")
		return apiErr
	}
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%s %s: decode: %w", r.method, r.path, err)
	}
	return nil
}

// errorBody covers both GoTrue and PostgREST error shapes.
type errorBody struct {
	Code             json.RawMessage `json:"code"`
	ErrorCode        string          `json:"error_code"`
	Msg              string          `json:"msg"`
	Message          string          `json:"message"`
	Error            string          `json:"error"`
	ErrorDescription string          `json:"error_description"`
}

func decodeError(status int, raw []byte) *backend.APIError {
	var b errorBody
	_ = json.Unmarshal(raw, &b)

	e := &backend.APIError{Status: status}

	var code string
	if len(b.Code) > 0 && b.Code[0] == '"' {
		_ = json.Unmarshal(b.Code, &code)
	}
	switch {
	case b.ErrorCode != "":
		e.Code = b.ErrorCode
	case code != "":
		e.Code = code
	case b.Error != "":
		e.Code = b.Error
	}

	for _, m := range []string{b.Msg, b.Message, b.ErrorDescription, b.Error} {
		if m != "" {
			e.Message = m
			break
		}
	}
	if e.Message == "" {
		e.Message = http.StatusText(status)
	}

	// Older GoTrue releases only carry a message for these two cases.
	lower := strings.ToLower(e.Message)
	switch {
	case strings.Contains(lower, "already registered") || strings.Contains(lower, "already been registered"):
		e.Code = backend.ErrAlreadyRegistered.Code
	case e.Code == "invalid_grant" && strings.Contains(lower, "invalid login credentials"):
		e.Code = backend.ErrInvalidCredentials.Code
	}
	return e
}
