// Package navigator turns the flat employee and document collections into a
// browsable folder hierarchy. One engine, configured by a declarative
// grammar, serves the organization, employee and embedded explorers.
package navigator

import (
	"strconv"
	"time"

	"github.com/fruitsalade/docportal/pkg/models"
)

// SegmentType is the role of a path segment.
type SegmentType string

const (
	Root       SegmentType = "root"
	Department SegmentType = "department"
	Location   SegmentType = "location"
	User       SegmentType = "user"
	Category   SegmentType = "category"
	Year       SegmentType = "year"
	Month      SegmentType = "month"
)

// RootID is the ID of every root segment.
const RootID = "root"

// Segment is one breadcrumb.
type Segment struct {
	ID   string      `json:"id" yaml:"id"`
	Name string      `json:"name" yaml:"name"`
	Type SegmentType `json:"type" yaml:"type"`
}

// Path is the current position. It always starts with a single Root
// segment; each following segment is a valid child of the one before it.
// Path values are never modified in place.
type Path []Segment

// Last returns the active segment.
func (p Path) Last() Segment {
	return p[len(p)-1]
}

// IndexOf returns the index of the first segment of type t, or -1.
func (p Path) IndexOf(t SegmentType) int {
	for i, s := range p {
		if s.Type == t {
			return i
		}
	}
	return -1
}

// Find returns the first segment of type t.
func (p Path) Find(t SegmentType) (Segment, bool) {
	if i := p.IndexOf(t); i >= 0 {
		return p[i], true
	}
	return Segment{}, false
}

// Equal reports whether both paths hold the same segments.
func (p Path) Equal(q Path) bool {
	if len(p) != len(q) {
		return false
	}
	for i := range p {
		if p[i] != q[i] {
			return false
		}
	}
	return true
}

// Push returns p with seg appended. Grammar validity is the caller's job.
func (p Path) Push(segs ...Segment) Path {
	out := make(Path, 0, len(p)+len(segs))
	out = append(out, p...)
	return append(out, segs...)
}

// JumpTo returns p truncated to p[0..i] inclusive. Out-of-range indexes
// are clamped, so the root always survives.
func (p Path) JumpTo(i int) Path {
	if i < 0 {
		i = 0
	}
	if i >= len(p) {
		i = len(p) - 1
	}
	return append(Path(nil), p[:i+1]...)
}

// Pop drops the last segment. At the root it returns p and false; the
// caller should leave the navigator instead.
func (p Path) Pop() (Path, bool) {
	if len(p) <= 1 {
		return p, false
	}
	return append(Path(nil), p[:len(p)-1]...), true
}

// ReplaceFrom keeps p[0..i) and appends segs.
func (p Path) ReplaceFrom(i int, segs ...Segment) Path {
	if i < 1 {
		i = 1
	}
	if i > len(p) {
		i = len(p)
	}
	out := make(Path, 0, i+len(segs))
	out = append(out, p[:i]...)
	return append(out, segs...)
}

// RootSegment builds the root breadcrumb.
func RootSegment(name string) Segment {
	return Segment{ID: RootID, Name: name, Type: Root}
}

// YearSegment builds a year breadcrumb.
func YearSegment(year string) Segment {
	return Segment{ID: year, Name: year, Type: Year}
}

// MonthSegment builds a month breadcrumb.
func MonthSegment(month string) Segment {
	return Segment{ID: month, Name: month, Type: Month}
}

// All is the filter value meaning "no constraint".
const All = "all"

// Filters are the year and month pickers. They are not part of the path
// but the reconciler keeps Year and Month segments in line with them.
type Filters struct {
	Year  string `json:"year"`
	Month string `json:"month"`
}

// DefaultFilters pins both filters to the month containing now.
func DefaultFilters(now time.Time) Filters {
	return Filters{
		Year:  strconv.Itoa(now.Year()),
		Month: models.Months[now.Month()-1],
	}
}

// Normalize maps blank values to All.
func (f Filters) Normalize() Filters {
	if f.Year == "" {
		f.Year = All
	}
	if f.Month == "" {
		f.Month = All
	}
	return f
}

// YearPinned reports whether a specific year is selected.
func (f Filters) YearPinned() bool { return f.Year != All && f.Year != "" }

// MonthPinned reports whether a specific month is selected.
func (f Filters) MonthPinned() bool { return f.Month != All && f.Month != "" }

// Pinned reports whether both filters are set. Filters only steer the
// path when both are pinned.
func (f Filters) Pinned() bool { return f.YearPinned() && f.MonthPinned() }

// Match reports whether d's upload date satisfies every pinned filter.
func (f Filters) Match(d models.Document) bool {
	if !f.YearPinned() && !f.MonthPinned() {
		return true
	}
	if d.UploadDate.IsZero() {
		return false
	}
	if f.YearPinned() && strconv.Itoa(d.UploadDate.Year()) != f.Year {
		return false
	}
	if f.MonthPinned() && models.Months[d.UploadDate.Month()-1] != f.Month {
		return false
	}
	return true
}
