package navigator

import (
	"time"

	"github.com/fruitsalade/docportal/internal/metrics"
)

// State is everything that determines what a navigator shows.
type State struct {
	Path    Path    `json:"path"`
	Filters Filters `json:"filters"`
	Query   string  `json:"query,omitempty"`
	// Owner binds single-owner explorers to one employee. Explorers with a
	// User level take the owner from the path instead.
	Owner string `json:"owner,omitempty"`
	// Leave is set when Back was requested at the root; the caller should
	// close the navigator.
	Leave bool `json:"leave,omitempty"`
}

// Initial returns the starting state: the root segment and both filters
// pinned to the month containing now.
func (g *Grammar) Initial(owner string, now time.Time) State {
	return State{
		Path:    Path{RootSegment(g.RootName)},
		Filters: DefaultFilters(now),
		Owner:   owner,
	}
}

// Event is a user interaction.
type Event interface {
	eventType() string
}

// EnterFolder opens a folder of the given type.
type EnterFolder struct {
	ID   string
	Name string
	Type SegmentType
}

// EnterUser opens an employee. Department and Location place the user
// in the hierarchy when it is entered from a search above the Location
// level.
type EnterUser struct {
	ID         string
	Name       string
	Department string
	Location   string
}

// JumpTo truncates the path at a breadcrumb index.
type JumpTo struct {
	Index int
}

// Back goes up one level, or further with smart back.
type Back struct{}

// SetFilters replaces both filters. Blank values mean All.
type SetFilters struct {
	Year  string
	Month string
}

// Search sets the search query.
type Search struct {
	Query string
}

// Reset returns to the root.
type Reset struct{}

func (EnterFolder) eventType() string { return "enter_folder" }
func (EnterUser) eventType() string   { return "enter_user" }
func (JumpTo) eventType() string      { return "jump_to" }
func (Back) eventType() string        { return "back" }
func (SetFilters) eventType() string  { return "set_filters" }
func (Search) eventType() string      { return "search" }
func (Reset) eventType() string       { return "reset" }

// EventType names an event for logs and metrics.
func EventType(e Event) string {
	return e.eventType()
}

// Reduce applies e to s and returns the new state. It never modifies s.
//
// Every path change clears the query and leaves the filters alone. After
// the event, grammars with Reconcile enabled rewrite the path to the
// canonical Year/Month tail for pinned filters; a rewrite also clears the
// query.
func (g *Grammar) Reduce(s State, e Event) State {
	metrics.RecordNavigatorEvent(e.eventType())
	next := s
	next.Leave = false

	switch ev := e.(type) {
	case EnterFolder:
		seg := Segment{ID: ev.ID, Name: ev.Name, Type: ev.Type}
		if seg.Name == "" {
			seg.Name = seg.ID
		}
		tail := []Segment{seg}
		if g.SmartJump {
			tail = smartJumpTail(seg, s.Filters)
		}
		next.Path = s.Path.Push(tail...)
		next.Query = ""
	case EnterUser:
		user := Segment{ID: ev.ID, Name: ev.Name, Type: User}
		if s.Path.Last().Type != Location && ev.Department != "" && ev.Location != "" && g.hasLevels(Department, Location) {
			next.Path = s.Path.ReplaceFrom(1,
				Segment{ID: ev.Department, Name: ev.Department, Type: Department},
				Segment{ID: ev.Location, Name: ev.Location, Type: Location},
				user)
		} else {
			next.Path = s.Path.Push(user)
		}
		next.Query = ""
	case JumpTo:
		next.Path = s.Path.JumpTo(ev.Index)
		next.Query = ""
	case Back:
		if g.SmartBack {
			if p, ok := smartBack(s.Path, s.Filters); ok {
				next.Path = p
				next.Query = ""
				break
			}
		}
		p, ok := s.Path.Pop()
		if !ok {
			next.Leave = true
			break
		}
		next.Path = p
		next.Query = ""
	case SetFilters:
		next.Filters = Filters{Year: ev.Year, Month: ev.Month}.Normalize()
	case Search:
		next.Query = ev.Query
	case Reset:
		next.Path = Path{RootSegment(g.RootName)}
		next.Query = ""
	}

	if g.Reconcile {
		if p, changed := Reconcile(next.Path, next.Filters); changed {
			metrics.RecordReconcileRewrite()
			next.Path = p
			next.Query = ""
		}
	}
	return next
}
