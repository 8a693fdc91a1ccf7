package navigator

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/fruitsalade/docportal/internal/icons"
	"github.com/fruitsalade/docportal/internal/records"
)

// ErrInvalidEvent is returned when an event does not fit the current
// position, e.g. entering a folder that is not listed.
var ErrInvalidEvent = errors.New("invalid navigator event")

// View is a resolved navigator position.
type View struct {
	Explorer       string                 `json:"explorer"`
	State          State                  `json:"state"`
	Content        Content                `json:"content"`
	IsEmpty        bool                   `json:"is_empty"`
	ViewMode       string                 `json:"view_mode"`
	Styles         map[string]icons.Style `json:"styles,omitempty"`
	AvailableYears []int                  `json:"available_years"`
}

// Session is one open navigator. Events are applied one at a time; the
// record snapshot is read fresh for every view.
type Session struct {
	id      string
	grammar *Grammar
	index   func() *records.Index
	now     func() time.Time

	mu      sync.Mutex
	state   State
	touched time.Time
}

// NewSession creates a session starting at st.
func NewSession(id string, g *Grammar, index func() *records.Index, st State, now func() time.Time) *Session {
	if now == nil {
		now = time.Now
	}
	return &Session{
		id:      id,
		grammar: g,
		index:   index,
		now:     now,
		state:   st,
		touched: now(),
	}
}

// ID returns the session ID.
func (s *Session) ID() string { return s.id }

// Grammar returns the explorer grammar.
func (s *Session) Grammar() *Grammar { return s.grammar }

// State returns a copy of the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Touched returns when the session was last used.
func (s *Session) Touched() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.touched
}

// View resolves the current position.
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touched = s.now()
	return s.render(s.index())
}

// Apply validates e against the current content, reduces it and returns
// the new view. A rejected event leaves the state untouched.
func (s *Session) Apply(e Event) (View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touched = s.now()

	ix := s.index()
	current := s.grammar.Resolve(ix, s.state)

	switch ev := e.(type) {
	case EnterFolder:
		if current.Kind != KindFolders {
			return View{}, fmt.Errorf("%w: no folders at this level", ErrInvalidEvent)
		}
		if ev.Type == "" {
			ev.Type = current.NextType
		}
		if ev.Type != current.NextType {
			return View{}, fmt.Errorf("%w: expected %s folder, got %s", ErrInvalidEvent, current.NextType, ev.Type)
		}
		if !contains(current.Labels, ev.ID) {
			return View{}, fmt.Errorf("%w: folder %q not listed", ErrInvalidEvent, ev.ID)
		}
		e = ev
	case EnterUser:
		if current.Kind != KindUsers {
			return View{}, fmt.Errorf("%w: no employees at this level", ErrInvalidEvent)
		}
		found := false
		for _, u := range current.Users {
			if u.ID == ev.ID {
				ev.Name = u.Name
				ev.Department, ev.Location = u.DepartmentKey(), u.LocationKey()
				found = true
				break
			}
		}
		if !found {
			return View{}, fmt.Errorf("%w: employee %q not listed", ErrInvalidEvent, ev.ID)
		}
		e = ev
	case JumpTo:
		if ev.Index < 0 || ev.Index >= len(s.state.Path) {
			return View{}, fmt.Errorf("%w: breadcrumb %d out of range", ErrInvalidEvent, ev.Index)
		}
	}

	s.state = s.grammar.Reduce(s.state, e)
	return s.render(ix), nil
}

func (s *Session) render(ix *records.Index) View {
	c := s.grammar.Resolve(ix, s.state)
	v := View{
		Explorer:       s.grammar.Name,
		State:          s.state,
		Content:        c,
		IsEmpty:        c.IsEmpty(),
		ViewMode:       c.ViewMode(),
		AvailableYears: ix.AvailableYears(),
	}
	if s.grammar.userRank() < 0 {
		v.AvailableYears = records.UploadYears(ix.DocumentsOf(s.state.Owner))
	}
	if c.Kind == KindFolders && len(c.Labels) > 0 {
		v.Styles = make(map[string]icons.Style, len(c.Labels))
		for _, l := range c.Labels {
			v.Styles[l] = icons.Classify(l)
		}
	}
	return v
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
