package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fruitsalade/docportal/internal/access"
	"github.com/fruitsalade/docportal/internal/auth"
	"github.com/fruitsalade/docportal/internal/logging"
	"github.com/fruitsalade/docportal/internal/metrics"
	"github.com/fruitsalade/docportal/internal/navigator"
	"github.com/fruitsalade/docportal/internal/pin"
	"github.com/fruitsalade/docportal/internal/pinflow"
	"github.com/fruitsalade/docportal/internal/records"
	"github.com/fruitsalade/docportal/pkg/models"
	"github.com/fruitsalade/docportal/pkg/protocol"
)

// session is one open explorer together with its PIN gate. Sessions are
// private to the user that created them.
type session struct {
	nav    *navigator.Session
	flow   *pinflow.Flow
	userID string
	actor  models.Actor
	used   time.Time
}

type sessionStore struct {
	mu   sync.Mutex
	byID map[string]*session
}

func newSessionStore() *sessionStore {
	return &sessionStore{byID: make(map[string]*session)}
}

func (st *sessionStore) add(s *session) {
	st.mu.Lock()
	st.byID[s.nav.ID()] = s
	n := len(st.byID)
	st.mu.Unlock()
	metrics.SetNavigatorSessionsActive(n)
}

// get returns the session if it exists and belongs to userID.
func (st *sessionStore) get(id, userID string, now time.Time) (*session, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	s, ok := st.byID[id]
	if !ok || s.userID != userID {
		return nil, false
	}
	s.used = now
	return s, true
}

func (st *sessionStore) remove(id, userID string) bool {
	st.mu.Lock()
	s, ok := st.byID[id]
	if ok && s.userID == userID {
		delete(st.byID, id)
	}
	n := len(st.byID)
	st.mu.Unlock()
	metrics.SetNavigatorSessionsActive(n)
	return ok && s.userID == userID
}

// sweep drops sessions not used since cutoff.
func (st *sessionStore) sweep(cutoff time.Time) int {
	st.mu.Lock()
	removed := 0
	for id, s := range st.byID {
		last := s.used
		if t := s.nav.Touched(); t.After(last) {
			last = t
		}
		if last.Before(cutoff) {
			s.flow.Cancel()
			delete(st.byID, id)
			removed++
		}
	}
	n := len(st.byID)
	st.mu.Unlock()
	metrics.SetNavigatorSessionsActive(n)
	return removed
}

func (st *sessionStore) count() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.byID)
}

// handleCreateSession handles POST /api/v1/navigator/sessions
//
// Explorers with an employee level browse the whole organization and are
// reserved for admins; user_id deep-links to that employee. Single-owner
// explorers show the caller's documents, or for admins those of user_id.
func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetClaims(r.Context())
	var req protocol.CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Explorer == "" {
		req.Explorer = navigator.ProfileEmployee
	}
	g, err := s.cfg.Profiles.Get(req.Explorer)
	if err != nil {
		s.sendError(w, http.StatusBadRequest, err.Error())
		return
	}

	now := s.cfg.Now()
	var st navigator.State
	var actor models.Actor
	if _, _, org := g.Level(navigator.User); org {
		if !claims.IsAdmin {
			s.sendError(w, http.StatusForbidden, "admin access required")
			return
		}
		st = g.Initial("", now)
		if req.UserID != "" {
			if p, ok := g.DeepLink(s.cfg.Records.Index(), req.UserID); ok {
				st.Path = p
			}
		}
		actor = claims.Actor(models.ViewOrganization)
	} else {
		owner := claims.UserID
		actor = claims.Actor(models.ViewSelf)
		if req.UserID != "" && req.UserID != claims.UserID {
			if !claims.IsAdmin {
				s.sendError(w, http.StatusForbidden, "admin access required")
				return
			}
			owner = req.UserID
			actor = claims.Actor(models.ViewOrganization)
		}
		st = g.Initial(owner, now)
	}

	sess := &session{
		nav: navigator.NewSession(uuid.NewString(), g, s.cfg.Records.Index, st, s.cfg.Now),
		flow: pinflow.New(pinflow.Config{
			Verifier: s.cfg.Pins.ForUser(claims.UserID),
			Resolver: s.cfg.Resolver,
			Now:      s.cfg.Now,
		}),
		userID: claims.UserID,
		actor:  actor,
		used:   now,
	}
	s.sessions.add(sess)

	ctx := logging.WithFields(r.Context(), zap.String("session", sess.nav.ID()))
	logging.WithContext(ctx).Info("navigator session opened",
		zap.String("explorer", g.Name),
		zap.String("owner", st.Owner))
	writeJSON(w, http.StatusCreated, s.sessionResponse(sess, sess.nav.View()))
}

// handleGetSession handles GET /api/v1/navigator/sessions/{id}
func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, r, ok := s.lookupSession(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.sessionResponse(sess, sess.nav.View()))
}

// handleCloseSession handles DELETE /api/v1/navigator/sessions/{id}
func (s *Server) handleCloseSession(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetClaims(r.Context())
	if !s.sessions.remove(r.PathValue("id"), claims.UserID) {
		s.sendError(w, http.StatusNotFound, "session not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleSessionEvent handles POST /api/v1/navigator/sessions/{id}/events
func (s *Server) handleSessionEvent(w http.ResponseWriter, r *http.Request) {
	sess, r, ok := s.lookupSession(w, r)
	if !ok {
		return
	}
	var req protocol.NavigatorEvent
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	ev, err := decodeEvent(req)
	if err != nil {
		s.sendError(w, http.StatusBadRequest, err.Error())
		return
	}

	view, err := sess.nav.Apply(ev)
	if err != nil {
		s.sendError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	logging.WithContext(r.Context()).Debug("navigator event",
		zap.String("event", req.Type),
		zap.Int("depth", len(view.State.Path)))
	writeJSON(w, http.StatusOK, s.sessionResponse(sess, view))
}

// handleSessionAction handles POST /api/v1/navigator/sessions/{id}/actions
//
// Every action passes the permission gate first. Deletes run at once;
// view and download wait for the PIN.
func (s *Server) handleSessionAction(w http.ResponseWriter, r *http.Request) {
	sess, r, ok := s.lookupSession(w, r)
	if !ok {
		return
	}
	var req protocol.ActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	doc, found := s.cfg.Records.Index().Document(req.DocumentID)
	if owner := sess.nav.State().Owner; !found || (owner != "" && doc.OwnerID != owner) {
		s.sendError(w, http.StatusNotFound, "document not found")
		return
	}

	if req.Action == models.ActionDelete {
		if err := s.deleteDocument(r.Context(), sess.actor, doc.ID); err != nil {
			s.sendDeleteError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, protocol.ActionResponse{Pin: pinState(sess.flow.State()), Deleted: true})
		return
	}

	if err := access.Check(doc, req.Action, sess.actor); err != nil {
		s.sendFlowError(w, r, err)
		return
	}
	st, err := sess.flow.Request(req.Action, doc)
	if err != nil {
		s.sendFlowError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, protocol.ActionResponse{Pin: pinState(st)})
}

// handleOpenPin handles GET /api/v1/navigator/sessions/{id}/pin. It
// refreshes the lock status, as the PIN prompt does when it appears.
func (s *Server) handleOpenPin(w http.ResponseWriter, r *http.Request) {
	sess, r, ok := s.lookupSession(w, r)
	if !ok {
		return
	}
	st, err := sess.flow.Open(r.Context())
	if err != nil {
		s.sendFlowError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, protocol.ActionResponse{Pin: pinState(st)})
}

// handleSubmitPin handles POST /api/v1/navigator/sessions/{id}/pin
func (s *Server) handleSubmitPin(w http.ResponseWriter, r *http.Request) {
	sess, r, ok := s.lookupSession(w, r)
	if !ok {
		return
	}
	var req protocol.VerifyPinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	st, err := sess.flow.Submit(r.Context(), req.Pin)
	if err != nil {
		s.sendFlowError(w, r, err)
		return
	}
	logging.WithContext(r.Context()).Info("document unlocked")
	writeJSON(w, http.StatusOK, protocol.ActionResponse{Pin: pinState(st)})
}

// handleCancelPin handles POST /api/v1/navigator/sessions/{id}/cancel
func (s *Server) handleCancelPin(w http.ResponseWriter, r *http.Request) {
	sess, r, ok := s.lookupSession(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, protocol.ActionResponse{Pin: pinState(sess.flow.Cancel())})
}

// lookupSession finds the caller's session. The returned request logs
// with the session ID.
func (s *Server) lookupSession(w http.ResponseWriter, r *http.Request) (*session, *http.Request, bool) {
	claims := auth.GetClaims(r.Context())
	sess, ok := s.sessions.get(r.PathValue("id"), claims.UserID, s.cfg.Now())
	if !ok {
		s.sendError(w, http.StatusNotFound, "session not found")
		return nil, r, false
	}
	ctx := logging.WithFields(r.Context(), zap.String("session", sess.nav.ID()))
	return sess, r.WithContext(ctx), true
}

func (s *Server) sessionResponse(sess *session, view navigator.View) protocol.SessionResponse {
	return protocol.SessionResponse{
		ID:   sess.nav.ID(),
		View: view,
		Pin:  pinState(sess.flow.State()),
	}
}

func pinState(st pinflow.State) protocol.PinFlowState {
	return protocol.PinFlowState{
		Phase:        string(st.Phase),
		AttemptsLeft: st.AttemptsLeft,
		LockedUntil:  st.LockedUntil,
		Action:       st.Action,
		Document:     st.Document,
		Countdown:    st.Countdown,
		URL:          st.URL,
	}
}

// sendFlowError maps permission and PIN gate errors to responses.
func (s *Server) sendFlowError(w http.ResponseWriter, r *http.Request, err error) {
	var incorrect *pinflow.PinIncorrectError
	var locked *pinflow.PinLockedError
	var netErr *pinflow.NetworkError

	switch {
	case errors.As(err, &incorrect):
		writeJSON(w, http.StatusForbidden, protocol.ErrorResponse{
			Error:        err.Error(),
			Code:         http.StatusForbidden,
			AttemptsLeft: incorrect.AttemptsLeft,
		})
	case errors.As(err, &locked):
		until := locked.Until
		writeJSON(w, http.StatusTooManyRequests, protocol.ErrorResponse{
			Error:       err.Error(),
			Code:        http.StatusTooManyRequests,
			Locked:      true,
			LockedUntil: &until,
		})
	case errors.Is(err, pin.ErrNotSet):
		s.sendError(w, http.StatusBadRequest, pin.ErrNotSet.Error())
	case errors.As(err, &netErr):
		logging.WithContext(r.Context()).Warn("document action failed", zap.String("op", netErr.Op), zap.Error(netErr.Err))
		s.sendErrorDetails(w, http.StatusBadGateway, netErr.Op+" failed", netErr.Err.Error())
	case errors.Is(err, access.ErrPermissionDenied):
		s.sendError(w, http.StatusForbidden, "you do not have permission to perform this action")
	case errors.Is(err, records.ErrNotFound):
		s.sendError(w, http.StatusNotFound, "document not found")
	case errors.Is(err, pinflow.ErrInvalidPin), errors.Is(err, pinflow.ErrUnsupportedAction):
		s.sendError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, pinflow.ErrBusy), errors.Is(err, pinflow.ErrNoPendingAction):
		s.sendError(w, http.StatusConflict, err.Error())
	default:
		logging.WithContext(r.Context()).Error("document action failed", zap.Error(err))
		s.sendError(w, http.StatusInternalServerError, "internal error")
	}
}

// decodeEvent converts a wire event into a navigator event.
func decodeEvent(ev protocol.NavigatorEvent) (navigator.Event, error) {
	switch ev.Type {
	case "enter_folder":
		if ev.ID == "" {
			return nil, fmt.Errorf("enter_folder requires id")
		}
		return navigator.EnterFolder{ID: ev.ID, Name: ev.Name, Type: navigator.SegmentType(ev.SegmentType)}, nil
	case "enter_user":
		if ev.ID == "" {
			return nil, fmt.Errorf("enter_user requires id")
		}
		return navigator.EnterUser{ID: ev.ID}, nil
	case "jump_to":
		return navigator.JumpTo{Index: ev.Index}, nil
	case "back":
		return navigator.Back{}, nil
	case "set_filters":
		return navigator.SetFilters{Year: ev.Year, Month: ev.Month}, nil
	case "search":
		return navigator.Search{Query: ev.Query}, nil
	case "reset":
		return navigator.Reset{}, nil
	}
	return nil, fmt.Errorf("unknown event type %q", ev.Type)
}
