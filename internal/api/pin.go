package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/fruitsalade/docportal/internal/auth"
	"github.com/fruitsalade/docportal/internal/logging"
	"github.com/fruitsalade/docportal/internal/pin"
	"github.com/fruitsalade/docportal/pkg/protocol"
)

// handlePinStatus handles GET /api/v1/document-pin
func (s *Server) handlePinStatus(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetClaims(r.Context())
	st, err := s.cfg.Pins.Status(r.Context(), claims.UserID)
	if err != nil {
		logging.Error("pin status failed", zap.String("user_id", claims.UserID), zap.Error(err))
		s.sendError(w, http.StatusInternalServerError, "failed to check PIN status")
		return
	}
	writeJSON(w, http.StatusOK, protocol.PinStatusResponse{
		PinSet:         st.PinSet,
		IsLocked:       st.IsLocked,
		LockedUntil:    st.LockedUntil,
		FailedAttempts: st.FailedAttempts,
	})
}

// handleSetPin handles POST /api/v1/document-pin
func (s *Server) handleSetPin(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetClaims(r.Context())
	var req protocol.SetPinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	replaced, err := s.cfg.Pins.Set(r.Context(), claims.UserID, req.Pin, req.CurrentPin)
	switch {
	case errors.Is(err, pin.ErrInvalidFormat), errors.Is(err, pin.ErrCurrentPinRequired):
		s.sendError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, pin.ErrCurrentPinIncorrect):
		s.sendError(w, http.StatusForbidden, err.Error())
		return
	case err != nil:
		logging.Error("set pin failed", zap.String("user_id", claims.UserID), zap.Error(err))
		s.sendError(w, http.StatusInternalServerError, "failed to set PIN")
		return
	}

	msg := "PIN set successfully"
	if replaced {
		msg = "PIN updated successfully"
	}
	writeJSON(w, http.StatusOK, protocol.MessageResponse{Success: true, Message: msg})
}

// handleVerifyPin handles PATCH /api/v1/document-pin. Failures answer 403
// with the attempts left, or 429 once the PIN is locked.
func (s *Server) handleVerifyPin(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetClaims(r.Context())
	var req protocol.VerifyPinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	res, err := s.cfg.Pins.Verify(r.Context(), claims.UserID, req.Pin)
	switch {
	case errors.Is(err, pin.ErrInvalidFormat), errors.Is(err, pin.ErrNotSet):
		s.sendError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		logging.Error("verify pin failed", zap.String("user_id", claims.UserID), zap.Error(err))
		s.sendError(w, http.StatusInternalServerError, "failed to verify PIN")
		return
	}

	switch {
	case res.OK:
		writeJSON(w, http.StatusOK, protocol.MessageResponse{Success: true, Message: "PIN verified successfully"})
	case res.Locked:
		writeJSON(w, http.StatusTooManyRequests, protocol.ErrorResponse{
			Error:       res.Error,
			Code:        http.StatusTooManyRequests,
			Locked:      true,
			LockedUntil: res.LockedUntil,
		})
	default:
		writeJSON(w, http.StatusForbidden, protocol.ErrorResponse{
			Error:        res.Error,
			Code:         http.StatusForbidden,
			AttemptsLeft: res.AttemptsLeft,
		})
	}
}

// handleResetPin handles DELETE /api/v1/admin/document-pin/{userID}
func (s *Server) handleResetPin(w http.ResponseWriter, r *http.Request) {
	s.resetPins(w, r, []string{r.PathValue("userID")})
}

// handleResetPins handles POST /api/v1/admin/document-pin/reset
func (s *Server) handleResetPins(w http.ResponseWriter, r *http.Request) {
	var req protocol.ResetPinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	ids := req.UserIDs
	if len(ids) == 0 && req.UserID != "" {
		ids = []string{req.UserID}
	}
	if len(ids) == 0 {
		s.sendError(w, http.StatusBadRequest, "user_id or user_ids is required")
		return
	}
	s.resetPins(w, r, ids)
}

func (s *Server) resetPins(w http.ResponseWriter, r *http.Request, ids []string) {
	if err := s.cfg.Pins.Reset(r.Context(), ids...); err != nil {
		logging.Error("reset pin failed", zap.Strings("user_ids", ids), zap.Error(err))
		s.sendError(w, http.StatusInternalServerError, "failed to reset PIN")
		return
	}
	logging.WithContext(r.Context()).Info("document PIN reset by admin",
		zap.String("admin", auth.GetClaims(r.Context()).UserID),
		zap.Strings("user_ids", ids))
	writeJSON(w, http.StatusOK, protocol.MessageResponse{
		Success: true,
		Message: "PIN reset successfully. The user will be prompted to set a new PIN.",
	})
}
