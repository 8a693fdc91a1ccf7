// Package protocol defines the API request/response types.
package protocol

import (
	"time"

	"github.com/fruitsalade/docportal/internal/navigator"
	"github.com/fruitsalade/docportal/pkg/models"
)

// ErrorResponse is returned on API errors. The PIN fields are set only
// by the PIN endpoints.
type ErrorResponse struct {
	Error        string     `json:"error"`
	Code         int        `json:"code"`
	Details      string     `json:"details,omitempty"`
	AttemptsLeft *int       `json:"attempts_left,omitempty"`
	Locked       bool       `json:"locked,omitempty"`
	LockedUntil  *time.Time `json:"locked_until,omitempty"`
}

// HealthResponse is returned by GET /health
type HealthResponse struct {
	Status    string    `json:"status"`
	Employees int       `json:"employees"`
	Documents int       `json:"documents"`
	LoadedAt  time.Time `json:"loaded_at"`
}

// EmployeesResponse is returned by GET /api/v1/employees
type EmployeesResponse struct {
	Employees []models.Employee `json:"employees"`
}

// DocumentsResponse is returned by GET /api/v1/documents
type DocumentsResponse struct {
	Documents []models.Document `json:"documents"`
}

// ─── Document PIN ───────────────────────────────────────────────────────────

// PinStatusResponse is returned by GET /api/v1/document-pin
type PinStatusResponse struct {
	PinSet         bool       `json:"pin_set"`
	IsLocked       bool       `json:"is_locked"`
	LockedUntil    *time.Time `json:"locked_until,omitempty"`
	FailedAttempts int        `json:"failed_attempts"`
}

// SetPinRequest is the body for POST /api/v1/document-pin.
// CurrentPin is required when a PIN is already set.
type SetPinRequest struct {
	Pin        string `json:"pin"`
	CurrentPin string `json:"current_pin,omitempty"`
}

// VerifyPinRequest is the body for PATCH /api/v1/document-pin and
// POST /api/v1/navigator/sessions/{id}/pin.
type VerifyPinRequest struct {
	Pin string `json:"pin"`
}

// ResetPinRequest is the body for POST /api/v1/admin/document-pin/reset.
type ResetPinRequest struct {
	UserID  string   `json:"user_id,omitempty"`
	UserIDs []string `json:"user_ids,omitempty"`
}

// MessageResponse acknowledges a mutation.
type MessageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// ─── Navigator sessions ─────────────────────────────────────────────────────

// CreateSessionRequest is the body for POST /api/v1/navigator/sessions.
// UserID is the deep-link target for the organization explorer; the
// single-owner explorers ignore it unless the caller is an admin.
type CreateSessionRequest struct {
	Explorer string `json:"explorer"`
	UserID   string `json:"user_id,omitempty"`
}

// NavigatorEvent is the body for POST /api/v1/navigator/sessions/{id}/events.
// Type is one of enter_folder, enter_user, jump_to, back, set_filters,
// search, reset; the other fields are read according to Type.
type NavigatorEvent struct {
	Type        string `json:"type"`
	ID          string `json:"id,omitempty"`
	Name        string `json:"name,omitempty"`
	SegmentType string `json:"segment_type,omitempty"`
	Index       int    `json:"index,omitempty"`
	Year        string `json:"year,omitempty"`
	Month       string `json:"month,omitempty"`
	Query       string `json:"query,omitempty"`
}

// SessionResponse is returned by the session endpoints. The view is
// resolved against the record snapshot current at the time of the call.
type SessionResponse struct {
	ID   string         `json:"id"`
	View navigator.View `json:"view"`
	Pin  PinFlowState   `json:"pin"`
}

// ActionRequest is the body for POST /api/v1/navigator/sessions/{id}/actions.
type ActionRequest struct {
	Action     models.Action `json:"action"`
	DocumentID string        `json:"document_id"`
}

// PinFlowState mirrors the PIN gate of a session.
type PinFlowState struct {
	Phase        string           `json:"phase"`
	AttemptsLeft *int             `json:"attempts_left,omitempty"`
	LockedUntil  *time.Time       `json:"locked_until,omitempty"`
	Action       models.Action    `json:"action,omitempty"`
	Document     *models.Document `json:"document,omitempty"`
	Countdown    string           `json:"countdown,omitempty"`
	URL          string           `json:"url,omitempty"`
}

// ActionResponse is returned by the action, PIN and cancel endpoints.
type ActionResponse struct {
	Pin     PinFlowState `json:"pin"`
	Deleted bool         `json:"deleted,omitempty"`
}

// ─── Settings ───────────────────────────────────────────────────────────────

// SettingRequest is the body for PUT /api/v1/settings/{key}.
type SettingRequest struct {
	Value string `json:"value"`
}

// SettingResponse is returned by GET and PUT /api/v1/settings/{key}.
type SettingResponse struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// SettingsResponse is returned by GET /api/v1/settings
type SettingsResponse struct {
	Settings map[string]string `json:"settings"`
}
