// Package api provides the HTTP server and handlers of the document portal.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/fruitsalade/docportal/internal/access"
	"github.com/fruitsalade/docportal/internal/auth"
	"github.com/fruitsalade/docportal/internal/events"
	"github.com/fruitsalade/docportal/internal/logging"
	"github.com/fruitsalade/docportal/internal/metrics"
	"github.com/fruitsalade/docportal/internal/navigator"
	"github.com/fruitsalade/docportal/internal/pin"
	"github.com/fruitsalade/docportal/internal/pinflow"
	"github.com/fruitsalade/docportal/internal/quota"
	"github.com/fruitsalade/docportal/internal/records"
	"github.com/fruitsalade/docportal/internal/settings"
	"github.com/fruitsalade/docportal/pkg/models"
	"github.com/fruitsalade/docportal/pkg/protocol"
)

// Config wires the server to its collaborators. Limiter may be nil.
type Config struct {
	Records  *records.Loader
	Deleter  records.Deleter
	Pins     *pin.Service
	Resolver pinflow.URLResolver
	Settings settings.Store
	Profiles navigator.Profiles
	Events   *events.Broadcaster
	Auth     *auth.Auth
	Limiter  *quota.RateLimiter

	SessionIdleTimeout time.Duration
	Now                func() time.Time
}

// Server is the portal HTTP server.
type Server struct {
	cfg      Config
	sessions *sessionStore
}

// softDeleter is implemented by stores that record who deleted a document.
type softDeleter interface {
	SoftDeleteDocument(ctx context.Context, id, deletedBy string) error
}

// NewServer creates a new server.
func NewServer(cfg Config) *Server {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.SessionIdleTimeout <= 0 {
		cfg.SessionIdleTimeout = 30 * time.Minute
	}
	if cfg.Profiles == nil {
		cfg.Profiles = navigator.DefaultProfiles()
	}
	return &Server{
		cfg:      cfg,
		sessions: newSessionStore(),
	}
}

// Handler returns the HTTP handler with auth and metrics middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Public endpoints (no auth required)
	mux.HandleFunc("GET /health", s.handleHealth)

	protected := http.NewServeMux()

	// Record collections
	protected.HandleFunc("GET /api/v1/employees", s.handleEmployees)
	protected.HandleFunc("GET /api/v1/documents", s.handleDocuments)
	protected.HandleFunc("DELETE /api/v1/documents/{id}", s.handleDeleteDocument)

	// Document PIN
	protected.HandleFunc("GET /api/v1/document-pin", s.handlePinStatus)
	protected.HandleFunc("POST /api/v1/document-pin", s.handleSetPin)
	protected.HandleFunc("PATCH /api/v1/document-pin", s.handleVerifyPin)
	protected.Handle("DELETE /api/v1/admin/document-pin/{userID}", auth.RequireAdmin(http.HandlerFunc(s.handleResetPin)))
	protected.Handle("POST /api/v1/admin/document-pin/reset", auth.RequireAdmin(http.HandlerFunc(s.handleResetPins)))

	// Settings
	protected.HandleFunc("GET /api/v1/settings", s.handleListSettings)
	protected.HandleFunc("GET /api/v1/settings/{key}", s.handleGetSetting)
	protected.Handle("PUT /api/v1/settings/{key}", auth.RequireAdmin(http.HandlerFunc(s.handlePutSetting)))

	// Navigator sessions
	protected.HandleFunc("POST /api/v1/navigator/sessions", s.handleCreateSession)
	protected.HandleFunc("GET /api/v1/navigator/sessions/{id}", s.handleGetSession)
	protected.HandleFunc("DELETE /api/v1/navigator/sessions/{id}", s.handleCloseSession)
	protected.HandleFunc("POST /api/v1/navigator/sessions/{id}/events", s.handleSessionEvent)
	protected.HandleFunc("POST /api/v1/navigator/sessions/{id}/actions", s.handleSessionAction)
	protected.HandleFunc("GET /api/v1/navigator/sessions/{id}/pin", s.handleOpenPin)
	protected.HandleFunc("POST /api/v1/navigator/sessions/{id}/pin", s.handleSubmitPin)
	protected.HandleFunc("POST /api/v1/navigator/sessions/{id}/cancel", s.handleCancelPin)

	var api http.Handler = protected
	if s.cfg.Limiter != nil {
		api = quota.RateLimitMiddleware(s.cfg.Limiter, userFromContext)(api)
	}
	mux.Handle("/api/v1/", s.cfg.Auth.Middleware(api))

	return metrics.Middleware(routeLabel)(logging.Middleware(mux))
}

// SweepSessions closes sessions idle for longer than the configured
// timeout and returns how many were closed.
func (s *Server) SweepSessions() int {
	n := s.sessions.sweep(s.cfg.Now().Add(-s.cfg.SessionIdleTimeout))
	if n > 0 {
		logging.Info("expired idle navigator sessions", zap.Int("count", n))
	}
	return n
}

// SessionCount returns the number of open navigator sessions.
func (s *Server) SessionCount() int {
	return s.sessions.count()
}

func userFromContext(ctx context.Context) (string, bool) {
	claims := auth.GetClaims(ctx)
	if claims == nil {
		return "", false
	}
	return claims.UserID, true
}

// routeLabel keeps the metrics path label bounded by replacing IDs.
func routeLabel(r *http.Request) string {
	parts := strings.Split(r.URL.Path, "/")
	for i := 1; i < len(parts); i++ {
		switch parts[i-1] {
		case "sessions", "documents", "settings", "document-pin":
			if parts[i] != "" && parts[i] != "reset" {
				parts[i] = "{id}"
			}
		}
	}
	return strings.Join(parts, "/")
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ix := s.cfg.Records.Index()
	writeJSON(w, http.StatusOK, protocol.HealthResponse{
		Status:    "ok",
		Employees: len(ix.Employees()),
		Documents: len(ix.Documents()),
		LoadedAt:  s.cfg.Records.LoadedAt(),
	})
}

// ─── Record collections ─────────────────────────────────────────────────────

func (s *Server) handleEmployees(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetClaims(r.Context())
	ix := s.cfg.Records.Index()

	list := []models.Employee{}
	if claims.IsAdmin {
		list = append(list, ix.Employees()...)
	} else if e, ok := ix.Employee(claims.UserID); ok {
		list = append(list, e)
	}
	writeJSON(w, http.StatusOK, protocol.EmployeesResponse{Employees: list})
}

func (s *Server) handleDocuments(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetClaims(r.Context())
	ix := s.cfg.Records.Index()

	list := []models.Document{}
	if claims.IsAdmin {
		list = append(list, ix.Documents()...)
	} else {
		list = append(list, ix.DocumentsOf(claims.UserID)...)
	}
	writeJSON(w, http.StatusOK, protocol.DocumentsResponse{Documents: list})
}

// handleDeleteDocument handles DELETE /api/v1/documents/{id}?view=...
// The view defaults to organization for admins and self otherwise.
func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetClaims(r.Context())
	view := models.View(r.URL.Query().Get("view"))
	if view == "" {
		view = models.ViewSelf
		if claims.IsAdmin {
			view = models.ViewOrganization
		}
	}
	if view != models.ViewSelf && view != models.ViewOrganization {
		s.sendError(w, http.StatusBadRequest, "unknown view: "+string(view))
		return
	}
	if view == models.ViewOrganization && !claims.IsAdmin {
		s.sendError(w, http.StatusForbidden, "admin access required")
		return
	}

	if err := s.deleteDocument(r.Context(), claims.Actor(view), r.PathValue("id")); err != nil {
		s.sendDeleteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, protocol.MessageResponse{Success: true, Message: "document deleted"})
}

// deleteDocument runs the permission gate, deletes and publishes a
// revalidation event.
func (s *Server) deleteDocument(ctx context.Context, actor models.Actor, id string) error {
	doc, ok := s.cfg.Records.Index().Document(id)
	if !ok {
		return records.ErrNotFound
	}
	if err := access.Check(doc, models.ActionDelete, actor); err != nil {
		return err
	}

	var err error
	if sd, ok := s.cfg.Deleter.(softDeleter); ok {
		err = sd.SoftDeleteDocument(ctx, id, actor.UserID)
	} else {
		err = s.cfg.Deleter.DeleteDocument(ctx, id)
	}
	if err != nil {
		return err
	}

	logging.WithContext(ctx).Info("document deleted",
		zap.String("document", id),
		zap.String("user_id", actor.UserID),
		zap.String("view", string(actor.View)))
	if s.cfg.Events != nil {
		s.cfg.Events.Publish(events.Event{
			Type:       events.EventDocumentDeleted,
			DocumentID: id,
			UserID:     doc.OwnerID,
		})
	}
	return nil
}

func (s *Server) sendDeleteError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, records.ErrNotFound):
		s.sendError(w, http.StatusNotFound, "document not found")
	case errors.Is(err, access.ErrPermissionDenied):
		s.sendError(w, http.StatusForbidden, "you do not have permission to delete this document")
	default:
		logging.Error("delete document failed", zap.Error(err))
		s.sendErrorDetails(w, http.StatusBadGateway, "failed to delete document", err.Error())
	}
}

// ─── Settings ───────────────────────────────────────────────────────────────

func (s *Server) handleListSettings(w http.ResponseWriter, r *http.Request) {
	all, err := s.cfg.Settings.All(r.Context())
	if err != nil {
		logging.Error("list settings failed", zap.Error(err))
		s.sendError(w, http.StatusInternalServerError, "failed to list settings")
		return
	}
	writeJSON(w, http.StatusOK, protocol.SettingsResponse{Settings: all})
}

func (s *Server) handleGetSetting(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	v, err := s.cfg.Settings.Get(r.Context(), key)
	switch {
	case errors.Is(err, settings.ErrNotFound):
		s.sendError(w, http.StatusNotFound, "setting not found: "+key)
	case err != nil:
		logging.Error("get setting failed", zap.String("key", key), zap.Error(err))
		s.sendError(w, http.StatusInternalServerError, "failed to read setting")
	default:
		writeJSON(w, http.StatusOK, protocol.SettingResponse{Key: key, Value: v})
	}
}

func (s *Server) handlePutSetting(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	var req protocol.SettingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	err := s.cfg.Settings.Set(r.Context(), key, req.Value)
	switch {
	case errors.Is(err, settings.ErrInvalidKey):
		s.sendError(w, http.StatusBadRequest, err.Error())
	case err != nil:
		logging.Error("set setting failed", zap.String("key", key), zap.Error(err))
		s.sendError(w, http.StatusInternalServerError, "failed to save setting")
	default:
		logging.WithContext(r.Context()).Info("setting updated", zap.String("key", key))
		writeJSON(w, http.StatusOK, protocol.SettingResponse{Key: key, Value: req.Value})
	}
}

// ─── Helpers ────────────────────────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func (s *Server) sendError(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, protocol.ErrorResponse{
		Error: message,
		Code:  code,
	})
}

func (s *Server) sendErrorDetails(w http.ResponseWriter, code int, message, details string) {
	writeJSON(w, code, protocol.ErrorResponse{
		Error:   message,
		Code:    code,
		Details: details,
	})
}
