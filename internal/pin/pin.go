// Package pin manages the per-user document PIN: a bcrypt-hashed 4-digit
// secret with attempt counting and a timed lockout.
package pin

import (
	"context"
	"errors"
	"fmt"
	"math"
	"regexp"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/fruitsalade/docportal/internal/logging"
	"github.com/fruitsalade/docportal/internal/metrics"
	"github.com/fruitsalade/docportal/internal/pinflow"
)

var (
	ErrInvalidFormat       = errors.New("PIN must be exactly 4 digits")
	ErrNotSet              = errors.New("PIN not set, please set your PIN first")
	ErrCurrentPinRequired  = errors.New("current PIN required to change PIN")
	ErrCurrentPinIncorrect = errors.New("current PIN is incorrect")
)

var pinPattern = regexp.MustCompile(`^\d{4}$`)

// Credential is the stored PIN state of one user. An empty Hash means no
// PIN has been set.
type Credential struct {
	Hash           string
	FailedAttempts int
	LockedUntil    *time.Time
}

// Store persists credentials. Unknown users have a zero Credential.
type Store interface {
	Credential(ctx context.Context, userID string) (Credential, error)
	SaveCredential(ctx context.Context, userID string, c Credential) error
	ResetCredentials(ctx context.Context, userIDs []string) error
}

// Config holds the lockout policy.
type Config struct {
	MaxAttempts  int
	LockDuration time.Duration
	// Cost is the bcrypt cost; zero means bcrypt.DefaultCost.
	Cost int
	Now  func() time.Time
}

// Status is what a user may learn about their PIN.
type Status struct {
	PinSet         bool       `json:"pin_set"`
	IsLocked       bool       `json:"is_locked"`
	LockedUntil    *time.Time `json:"locked_until,omitempty"`
	FailedAttempts int        `json:"failed_attempts"`
}

// Service implements the PIN lifecycle on top of a Store.
type Service struct {
	store Store
	cfg   Config
	mu    sync.Mutex // serializes read-modify-write of attempt counters
}

// NewService creates a PIN service.
func NewService(store Store, cfg Config) *Service {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 5
	}
	if cfg.LockDuration <= 0 {
		cfg.LockDuration = 15 * time.Minute
	}
	if cfg.Cost == 0 {
		cfg.Cost = bcrypt.DefaultCost
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Service{store: store, cfg: cfg}
}

// Status reports whether userID has a PIN and whether it is locked.
func (s *Service) Status(ctx context.Context, userID string) (Status, error) {
	c, err := s.store.Credential(ctx, userID)
	if err != nil {
		return Status{}, fmt.Errorf("pin status: %w", err)
	}
	st := Status{PinSet: c.Hash != "", FailedAttempts: c.FailedAttempts}
	if c.LockedUntil != nil && s.cfg.Now().Before(*c.LockedUntil) {
		st.IsLocked = true
		st.LockedUntil = c.LockedUntil
	}
	return st, nil
}

// Set stores a new PIN. Changing an existing PIN requires the current
// one. It reports whether an existing PIN was replaced.
func (s *Service) Set(ctx context.Context, userID, pin, currentPin string) (bool, error) {
	if !pinPattern.MatchString(pin) {
		return false, ErrInvalidFormat
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.store.Credential(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("set pin: %w", err)
	}
	replaced := c.Hash != ""
	if replaced {
		if currentPin == "" {
			return false, ErrCurrentPinRequired
		}
		if bcrypt.CompareHashAndPassword([]byte(c.Hash), []byte(currentPin)) != nil {
			return false, ErrCurrentPinIncorrect
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(pin), s.cfg.Cost)
	if err != nil {
		return false, fmt.Errorf("hash pin: %w", err)
	}
	if err := s.store.SaveCredential(ctx, userID, Credential{Hash: string(hash)}); err != nil {
		return false, fmt.Errorf("set pin: %w", err)
	}
	logging.Info("document PIN set", zap.String("user_id", userID), zap.Bool("replaced", replaced))
	return replaced, nil
}

// Verify checks pin for userID. A wrong PIN counts towards the lockout; a
// correct one clears the counter. Locked accounts are refused without
// comparing the PIN.
func (s *Service) Verify(ctx context.Context, userID, pin string) (pinflow.VerifyResult, error) {
	if !pinPattern.MatchString(pin) {
		return pinflow.VerifyResult{}, ErrInvalidFormat
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.store.Credential(ctx, userID)
	if err != nil {
		return pinflow.VerifyResult{}, fmt.Errorf("verify pin: %w", err)
	}
	if c.Hash == "" {
		return pinflow.VerifyResult{}, ErrNotSet
	}

	now := s.cfg.Now()
	if c.LockedUntil != nil && now.Before(*c.LockedUntil) {
		metrics.RecordPinVerification("locked")
		minutes := int(math.Ceil(c.LockedUntil.Sub(now).Minutes()))
		return pinflow.VerifyResult{
			Error:       fmt.Sprintf("Too many failed attempts. Try again in %d minute(s).", minutes),
			Locked:      true,
			LockedUntil: c.LockedUntil,
		}, nil
	}

	expired := c.LockedUntil != nil
	if expired {
		// An expired lock starts a fresh round of attempts.
		c.FailedAttempts = 0
		c.LockedUntil = nil
	}

	if bcrypt.CompareHashAndPassword([]byte(c.Hash), []byte(pin)) == nil {
		if c.FailedAttempts != 0 || expired {
			c.FailedAttempts = 0
			if err := s.store.SaveCredential(ctx, userID, c); err != nil {
				return pinflow.VerifyResult{}, fmt.Errorf("verify pin: %w", err)
			}
		}
		metrics.RecordPinVerification("ok")
		return pinflow.VerifyResult{OK: true}, nil
	}

	c.FailedAttempts++
	if c.FailedAttempts >= s.cfg.MaxAttempts {
		until := now.Add(s.cfg.LockDuration)
		c.LockedUntil = &until
	}
	if err := s.store.SaveCredential(ctx, userID, c); err != nil {
		return pinflow.VerifyResult{}, fmt.Errorf("verify pin: %w", err)
	}

	if c.LockedUntil != nil {
		metrics.RecordPinVerification("locked")
		metrics.RecordPinLockout()
		logging.Warn("document PIN locked",
			zap.String("user_id", userID),
			zap.Int("failed_attempts", c.FailedAttempts),
			zap.Time("until", *c.LockedUntil))
		return pinflow.VerifyResult{
			Error:       fmt.Sprintf("Too many failed attempts. Locked for %d minutes.", int(s.cfg.LockDuration.Minutes())),
			Locked:      true,
			LockedUntil: c.LockedUntil,
		}, nil
	}

	metrics.RecordPinVerification("incorrect")
	left := s.cfg.MaxAttempts - c.FailedAttempts
	return pinflow.VerifyResult{
		Error:        fmt.Sprintf("Incorrect PIN. %d attempt(s) remaining.", left),
		AttemptsLeft: &left,
	}, nil
}

// Reset clears the PIN of every listed user. They will be asked to set a
// new one.
func (s *Service) Reset(ctx context.Context, userIDs ...string) error {
	if len(userIDs) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.store.ResetCredentials(ctx, userIDs); err != nil {
		return fmt.Errorf("reset pin: %w", err)
	}
	logging.Info("document PINs reset", zap.Strings("user_ids", userIDs))
	return nil
}

// ForUser binds the service to one user as a pinflow.Verifier.
func (s *Service) ForUser(userID string) pinflow.Verifier {
	return userVerifier{svc: s, userID: userID}
}

type userVerifier struct {
	svc    *Service
	userID string
}

func (v userVerifier) VerifyPin(ctx context.Context, pin string) (pinflow.VerifyResult, error) {
	return v.svc.Verify(ctx, v.userID, pin)
}

func (v userVerifier) CheckLockStatus(ctx context.Context) (pinflow.LockStatus, error) {
	st, err := v.svc.Status(ctx, v.userID)
	if err != nil {
		return pinflow.LockStatus{}, err
	}
	return pinflow.LockStatus{IsLocked: st.IsLocked, LockedUntil: st.LockedUntil}, nil
}
