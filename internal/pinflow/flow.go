// Package pinflow gates document view and download actions behind the
// user's document PIN. A Flow tracks one pending action from request to
// completion, counting failed attempts and honouring lockouts without
// asking the verifier again.
package pinflow

import (
	"context"
	"fmt"
	"regexp"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/fruitsalade/docportal/internal/logging"
	"github.com/fruitsalade/docportal/pkg/models"
)

// Phase is the state of a Flow.
type Phase string

const (
	Idle       Phase = "idle"
	PendingPin Phase = "pending_pin"
	Locked     Phase = "locked"
	Executing  Phase = "executing"
)

// DefaultLockDuration is assumed when a verifier reports a lockout
// without an end time.
const DefaultLockDuration = 15 * time.Minute

var pinPattern = regexp.MustCompile(`^\d{4}$`)

// VerifyResult is the verifier's answer to a PIN submission.
type VerifyResult struct {
	OK           bool       `json:"ok"`
	Error        string     `json:"error,omitempty"`
	AttemptsLeft *int       `json:"attempts_left,omitempty"`
	Locked       bool       `json:"locked,omitempty"`
	LockedUntil  *time.Time `json:"locked_until,omitempty"`
}

// LockStatus reports an existing lockout.
type LockStatus struct {
	IsLocked    bool       `json:"is_locked"`
	LockedUntil *time.Time `json:"locked_until,omitempty"`
}

// Verifier checks PINs for one user.
type Verifier interface {
	VerifyPin(ctx context.Context, pin string) (VerifyResult, error)
	CheckLockStatus(ctx context.Context) (LockStatus, error)
}

// URLResolver turns a document into a URL suitable for the action.
type URLResolver interface {
	ResolveURL(ctx context.Context, doc models.Document, action models.Action) (string, error)
}

// Opener performs the unlocked action, e.g. hands the URL to a browser.
type Opener interface {
	Open(ctx context.Context, url string) error
}

// OpenerFunc adapts a function to Opener.
type OpenerFunc func(ctx context.Context, url string) error

// Open calls f.
func (f OpenerFunc) Open(ctx context.Context, url string) error { return f(ctx, url) }

// Config wires a Flow to its collaborators.
type Config struct {
	Verifier Verifier
	Resolver URLResolver
	Opener   Opener
	Now      func() time.Time
}

// State is a snapshot of a Flow.
type State struct {
	Phase        Phase            `json:"phase"`
	AttemptsLeft *int             `json:"attempts_left,omitempty"`
	LockedUntil  *time.Time       `json:"locked_until,omitempty"`
	Action       models.Action    `json:"action,omitempty"`
	Document     *models.Document `json:"document,omitempty"`
	Countdown    string           `json:"countdown,omitempty"`
	// URL is the resolved location of the last completed action.
	URL string `json:"url,omitempty"`
}

// Flow is the PIN gate for one navigator. It is safe for concurrent use;
// only one submission runs at a time.
type Flow struct {
	cfg Config

	mu           sync.Mutex
	phase        Phase
	attemptsLeft *int
	lockedUntil  *time.Time
	action       models.Action
	doc          *models.Document
	lastURL      string
	busy         bool
	gen          uint64
}

// New creates an idle Flow.
func New(cfg Config) *Flow {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Flow{cfg: cfg, phase: Idle}
}

// State returns a snapshot.
func (f *Flow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snapshot()
}

// Countdown renders the time left on a lockout as "m:ss", or "" when not
// locked.
func (f *Flow) Countdown() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.countdown()
}

// Request starts the PIN gate for action on doc. Permission checks are the
// caller's job. A lockout that is still running puts the flow straight into
// Locked.
func (f *Flow) Request(action models.Action, doc models.Document) (State, error) {
	if action != models.ActionView && action != models.ActionDownload {
		return f.State(), fmt.Errorf("%w: %s", ErrUnsupportedAction, action)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.busy {
		return f.snapshot(), ErrBusy
	}

	f.gen++
	f.action = action
	f.doc = &doc
	f.attemptsLeft = nil
	f.lastURL = ""
	f.phase = PendingPin
	if f.lockActive() {
		f.phase = Locked
	}
	return f.snapshot(), nil
}

// Open refreshes the lock status from the verifier. It is called when the
// PIN prompt is shown.
func (f *Flow) Open(ctx context.Context) (State, error) {
	status, err := f.cfg.Verifier.CheckLockStatus(ctx)

	f.mu.Lock()
	defer f.mu.Unlock()
	if err != nil {
		return f.snapshot(), &NetworkError{Op: "check lock status", Err: err}
	}

	if status.IsLocked && status.LockedUntil != nil && f.cfg.Now().Before(*status.LockedUntil) {
		until := *status.LockedUntil
		f.lockedUntil = &until
		if f.doc != nil && !f.busy {
			f.phase = Locked
		}
	} else if !f.busy {
		f.clearLock()
		if f.phase == Locked {
			f.phase = PendingPin
		}
	}
	return f.snapshot(), nil
}

// Submit checks pin and, on success, resolves and opens the pending
// document. While a lockout is running the verifier is not called.
func (f *Flow) Submit(ctx context.Context, pin string) (State, error) {
	gen, err := f.begin(pin)
	if err != nil {
		return f.State(), err
	}

	result, err := f.cfg.Verifier.VerifyPin(ctx, pin)

	f.mu.Lock()
	if f.gen != gen {
		// Cancelled while the verifier was running.
		f.mu.Unlock()
		return f.State(), ErrNoPendingAction
	}
	if err != nil || !result.OK {
		defer f.mu.Unlock()
		f.busy = false
		if err != nil {
			return f.snapshot(), &NetworkError{Op: "verify pin", Err: err}
		}
		rerr := f.reject(result)
		return f.snapshot(), rerr
	}
	f.phase = Executing
	f.attemptsLeft = nil
	f.clearLock()
	doc, action := *f.doc, f.action
	f.mu.Unlock()

	url, err := f.execute(ctx, doc, action)

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.gen != gen {
		return f.snapshot(), ErrNoPendingAction
	}
	f.busy = false
	f.reset()
	if err != nil {
		return f.snapshot(), err
	}
	f.lastURL = url
	return f.snapshot(), nil
}

// begin validates a submission and marks the flow busy.
func (f *Flow) begin(pin string) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch {
	case f.doc == nil:
		return 0, ErrNoPendingAction
	case f.busy:
		return 0, ErrBusy
	case f.lockActive():
		f.phase = Locked
		return 0, &PinLockedError{Until: *f.lockedUntil}
	}
	if f.phase == Locked {
		f.clearLock()
		f.phase = PendingPin
	}
	if !pinPattern.MatchString(pin) {
		return 0, ErrInvalidPin
	}
	f.busy = true
	return f.gen, nil
}

// Cancel discards the pending action. A running lockout is remembered.
func (f *Flow) Cancel() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gen++
	f.busy = false
	f.reset()
	return f.snapshot()
}

func (f *Flow) execute(ctx context.Context, doc models.Document, action models.Action) (string, error) {
	url, err := f.cfg.Resolver.ResolveURL(ctx, doc, action)
	if err != nil {
		return "", &NetworkError{Op: "resolve document url", Err: err}
	}
	if f.cfg.Opener != nil {
		if err := f.cfg.Opener.Open(ctx, url); err != nil {
			return "", &NetworkError{Op: "open document", Err: err}
		}
	}
	return url, nil
}

// reject records a failed verification. Caller holds f.mu.
func (f *Flow) reject(result VerifyResult) error {
	if result.Locked {
		until := f.cfg.Now().Add(DefaultLockDuration)
		if result.LockedUntil != nil {
			until = *result.LockedUntil
		}
		f.lockedUntil = &until
		f.attemptsLeft = nil
		f.phase = Locked
		logging.Warn("document PIN locked",
			zap.Time("until", until),
			zap.String("document", f.doc.ID))
		return &PinLockedError{Until: until}
	}
	if result.AttemptsLeft != nil {
		n := *result.AttemptsLeft
		f.attemptsLeft = &n
	}
	f.phase = PendingPin
	return &PinIncorrectError{AttemptsLeft: f.attemptsLeft, Message: result.Error}
}

func (f *Flow) reset() {
	f.phase = Idle
	f.action = ""
	f.doc = nil
	f.attemptsLeft = nil
	if f.lockActive() {
		return
	}
	f.clearLock()
}

func (f *Flow) clearLock() {
	f.lockedUntil = nil
}

func (f *Flow) lockActive() bool {
	return f.lockedUntil != nil && f.cfg.Now().Before(*f.lockedUntil)
}

func (f *Flow) countdown() string {
	if !f.lockActive() {
		return ""
	}
	left := f.lockedUntil.Sub(f.cfg.Now())
	minutes := int(left / time.Minute)
	seconds := int((left % time.Minute) / time.Second)
	return fmt.Sprintf("%d:%02d", minutes, seconds)
}

func (f *Flow) snapshot() State {
	st := State{
		Phase:     f.phase,
		Action:    f.action,
		Countdown: f.countdown(),
		URL:       f.lastURL,
	}
	if f.attemptsLeft != nil {
		n := *f.attemptsLeft
		st.AttemptsLeft = &n
	}
	if f.lockedUntil != nil {
		t := *f.lockedUntil
		st.LockedUntil = &t
	}
	if f.doc != nil {
		d := *f.doc
		st.Document = &d
	}
	return st
}
