// Package client is the HTTP client for the document portal API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/fruitsalade/docportal/internal/logging"
	"github.com/fruitsalade/docportal/internal/pinflow"
	"github.com/fruitsalade/docportal/internal/records"
	"github.com/fruitsalade/docportal/pkg/models"
	"github.com/fruitsalade/docportal/pkg/protocol"
	"github.com/fruitsalade/docportal/pkg/retry"
)

var (
	_ records.Source   = (*Client)(nil)
	_ records.Deleter  = (*Client)(nil)
	_ pinflow.Verifier = (*Client)(nil)
)

// Client talks to a portal server on behalf of one user.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	retryConfig retry.Config

	mu        sync.RWMutex
	authToken string
}

// Config holds client configuration.
type Config struct {
	BaseURL     string
	Timeout     time.Duration
	RetryConfig retry.Config
	AuthToken   string
}

// New creates a new client.
func New(cfg Config) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.RetryConfig.MaxAttempts == 0 {
		cfg.RetryConfig = retry.DefaultConfig()
	}
	return &Client{
		baseURL: cfg.BaseURL,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout:   10 * time.Second,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				MaxIdleConns:        20,
				IdleConnTimeout:     90 * time.Second,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		},
		retryConfig: cfg.RetryConfig,
		authToken:   cfg.AuthToken,
	}
}

// SetAuthToken sets the bearer token sent with every request.
func (c *Client) SetAuthToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.authToken = token
}

func (c *Client) applyAuth(req *http.Request) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.authToken)
	}
}

// APIError is a non-2xx answer from the server.
type APIError struct {
	StatusCode int
	Response   protocol.ErrorResponse
}

func (e *APIError) Error() string {
	msg := e.Response.Error
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	if e.Response.Details != "" {
		return fmt.Sprintf("server returned %d: %s (%s)", e.StatusCode, msg, e.Response.Details)
	}
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, msg)
}

// AsAPIError extracts an APIError from err.
func AsAPIError(err error) (*APIError, bool) {
	var ae *APIError
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}

// IsNotFound reports whether err is a 404 from the server.
func IsNotFound(err error) bool {
	ae, ok := AsAPIError(err)
	return ok && ae.StatusCode == http.StatusNotFound
}

// do sends one JSON request and decodes a 2xx body into out. GET, PUT and
// DELETE are retried on transport errors and 5xx answers.
func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
	}
	idempotent := method == http.MethodGet || method == http.MethodPut || method == http.MethodDelete

	_, err := retry.Do(ctx, c.retryConfig, func() (struct{}, error) {
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(payload))
		if err != nil {
			return struct{}{}, err
		}
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		c.applyAuth(req)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if idempotent && ctx.Err() == nil {
				return struct{}{}, retry.Retryable(err)
			}
			return struct{}{}, err
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 300 {
			apiErr := decodeError(resp)
			if idempotent && resp.StatusCode >= 500 {
				logging.Debug("retrying request",
					zap.String("method", method),
					zap.String("path", path),
					zap.Int("status", resp.StatusCode))
				return struct{}{}, retry.Retryable(apiErr)
			}
			return struct{}{}, apiErr
		}
		if out == nil || resp.StatusCode == http.StatusNoContent {
			return struct{}{}, nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return struct{}{}, fmt.Errorf("decode response: %w", err)
		}
		return struct{}{}, nil
	})
	return err
}

func decodeError(resp *http.Response) *APIError {
	apiErr := &APIError{StatusCode: resp.StatusCode}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if json.Unmarshal(data, &apiErr.Response) != nil {
		apiErr.Response.Error = string(bytes.TrimSpace(data))
	}
	return apiErr
}

// Health calls GET /health.
func (c *Client) Health(ctx context.Context) (*protocol.HealthResponse, error) {
	var out protocol.HealthResponse
	if err := c.do(ctx, http.MethodGet, "/health", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ─── Records ────────────────────────────────────────────────────────────────

// FetchEmployees lists the employees visible to the caller.
func (c *Client) FetchEmployees(ctx context.Context) ([]models.Employee, error) {
	var out protocol.EmployeesResponse
	if err := c.do(ctx, http.MethodGet, "/api/v1/employees", nil, &out); err != nil {
		return nil, fmt.Errorf("fetch employees: %w", err)
	}
	return out.Employees, nil
}

// FetchDocuments lists the documents visible to the caller.
func (c *Client) FetchDocuments(ctx context.Context) ([]models.Document, error) {
	var out protocol.DocumentsResponse
	if err := c.do(ctx, http.MethodGet, "/api/v1/documents", nil, &out); err != nil {
		return nil, fmt.Errorf("fetch documents: %w", err)
	}
	return out.Documents, nil
}

// DeleteDocument deletes a document in the caller's default view. A 404
// maps to records.ErrNotFound.
func (c *Client) DeleteDocument(ctx context.Context, id string) error {
	err := c.do(ctx, http.MethodDelete, "/api/v1/documents/"+url.PathEscape(id), nil, nil)
	if IsNotFound(err) {
		return records.ErrNotFound
	}
	return err
}

// ─── Document PIN ───────────────────────────────────────────────────────────

// PinStatus returns the caller's PIN status.
func (c *Client) PinStatus(ctx context.Context) (*protocol.PinStatusResponse, error) {
	var out protocol.PinStatusResponse
	if err := c.do(ctx, http.MethodGet, "/api/v1/document-pin", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SetPin sets or changes the caller's PIN. currentPin is required when a
// PIN already exists.
func (c *Client) SetPin(ctx context.Context, pin, currentPin string) (string, error) {
	var out protocol.MessageResponse
	err := c.do(ctx, http.MethodPost, "/api/v1/document-pin",
		protocol.SetPinRequest{Pin: pin, CurrentPin: currentPin}, &out)
	return out.Message, err
}

// VerifyPin checks pin. Wrong PINs and lockouts are results, not errors.
func (c *Client) VerifyPin(ctx context.Context, pin string) (pinflow.VerifyResult, error) {
	var out protocol.MessageResponse
	err := c.do(ctx, http.MethodPatch, "/api/v1/document-pin", protocol.VerifyPinRequest{Pin: pin}, &out)
	if err == nil {
		return pinflow.VerifyResult{OK: true}, nil
	}
	ae, ok := AsAPIError(err)
	if !ok || (ae.StatusCode != http.StatusForbidden && ae.StatusCode != http.StatusTooManyRequests) {
		return pinflow.VerifyResult{}, err
	}
	return pinflow.VerifyResult{
		Error:        ae.Response.Error,
		AttemptsLeft: ae.Response.AttemptsLeft,
		Locked:       ae.Response.Locked || ae.StatusCode == http.StatusTooManyRequests,
		LockedUntil:  ae.Response.LockedUntil,
	}, nil
}

// CheckLockStatus reports whether the caller's PIN is locked.
func (c *Client) CheckLockStatus(ctx context.Context) (pinflow.LockStatus, error) {
	st, err := c.PinStatus(ctx)
	if err != nil {
		return pinflow.LockStatus{}, err
	}
	return pinflow.LockStatus{IsLocked: st.IsLocked, LockedUntil: st.LockedUntil}, nil
}

// ResetPins clears the PINs of userIDs. Admin only.
func (c *Client) ResetPins(ctx context.Context, userIDs ...string) error {
	if len(userIDs) == 1 {
		return c.do(ctx, http.MethodDelete, "/api/v1/admin/document-pin/"+url.PathEscape(userIDs[0]), nil, nil)
	}
	return c.do(ctx, http.MethodPost, "/api/v1/admin/document-pin/reset",
		protocol.ResetPinRequest{UserIDs: userIDs}, nil)
}

// ─── Navigator sessions ─────────────────────────────────────────────────────

// Session is a handle on a server-side navigator session.
type Session struct {
	c  *Client
	ID string
}

// OpenSession creates a navigator session. userID deep-links admins to an
// employee and may be empty.
func (c *Client) OpenSession(ctx context.Context, explorer, userID string) (*Session, *protocol.SessionResponse, error) {
	var out protocol.SessionResponse
	err := c.do(ctx, http.MethodPost, "/api/v1/navigator/sessions",
		protocol.CreateSessionRequest{Explorer: explorer, UserID: userID}, &out)
	if err != nil {
		return nil, nil, err
	}
	return &Session{c: c, ID: out.ID}, &out, nil
}

// ResumeSession returns a handle for an existing session ID.
func (c *Client) ResumeSession(id string) *Session {
	return &Session{c: c, ID: id}
}

func (s *Session) path(suffix string) string {
	return "/api/v1/navigator/sessions/" + url.PathEscape(s.ID) + suffix
}

// View returns the current view.
func (s *Session) View(ctx context.Context) (*protocol.SessionResponse, error) {
	var out protocol.SessionResponse
	if err := s.c.do(ctx, http.MethodGet, s.path(""), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Send applies a navigator event.
func (s *Session) Send(ctx context.Context, ev protocol.NavigatorEvent) (*protocol.SessionResponse, error) {
	var out protocol.SessionResponse
	if err := s.c.do(ctx, http.MethodPost, s.path("/events"), ev, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Request asks for action on a document. Deletes happen at once; view and
// download leave the PIN gate pending.
func (s *Session) Request(ctx context.Context, action models.Action, documentID string) (*protocol.ActionResponse, error) {
	var out protocol.ActionResponse
	err := s.c.do(ctx, http.MethodPost, s.path("/actions"),
		protocol.ActionRequest{Action: action, DocumentID: documentID}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// OpenPin refreshes the PIN gate's lock status.
func (s *Session) OpenPin(ctx context.Context) (*protocol.ActionResponse, error) {
	var out protocol.ActionResponse
	if err := s.c.do(ctx, http.MethodGet, s.path("/pin"), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SubmitPin submits a PIN for the pending action. On success the
// response carries the document URL.
func (s *Session) SubmitPin(ctx context.Context, pin string) (*protocol.ActionResponse, error) {
	var out protocol.ActionResponse
	if err := s.c.do(ctx, http.MethodPost, s.path("/pin"), protocol.VerifyPinRequest{Pin: pin}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Cancel discards the pending action.
func (s *Session) Cancel(ctx context.Context) (*protocol.ActionResponse, error) {
	var out protocol.ActionResponse
	if err := s.c.do(ctx, http.MethodPost, s.path("/cancel"), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Close ends the session.
func (s *Session) Close(ctx context.Context) error {
	return s.c.do(ctx, http.MethodDelete, s.path(""), nil, nil)
}

// ─── Settings ───────────────────────────────────────────────────────────────

// Settings returns every stored setting.
func (c *Client) Settings(ctx context.Context) (map[string]string, error) {
	var out protocol.SettingsResponse
	if err := c.do(ctx, http.MethodGet, "/api/v1/settings", nil, &out); err != nil {
		return nil, err
	}
	return out.Settings, nil
}

// Setting returns one setting.
func (c *Client) Setting(ctx context.Context, key string) (string, error) {
	var out protocol.SettingResponse
	if err := c.do(ctx, http.MethodGet, "/api/v1/settings/"+url.PathEscape(key), nil, &out); err != nil {
		return "", err
	}
	return out.Value, nil
}

// PutSetting stores a setting. Admin only.
func (c *Client) PutSetting(ctx context.Context, key, value string) error {
	return c.do(ctx, http.MethodPut, "/api/v1/settings/"+url.PathEscape(key),
		protocol.SettingRequest{Value: value}, nil)
}
