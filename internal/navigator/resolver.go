package navigator

import (
	"strings"
	"time"

	"github.com/fruitsalade/docportal/internal/metrics"
	"github.com/fruitsalade/docportal/internal/records"
	"github.com/fruitsalade/docportal/pkg/models"
)

// Resolve computes the content at st's position. It is pure: the same
// state and index always give the same content.
//
// A non-blank search query bypasses the hierarchy. Above the User level it
// lists matching employees within the current department and location; at
// User and below, or in explorers bound to one owner, it lists matching
// documents from the owner's full document set.
func (g *Grammar) Resolve(ix *records.Index, st State) Content {
	start := time.Now()
	c := g.resolve(ix, st)
	metrics.RecordResolve(string(c.Kind), time.Since(start))
	return c
}

func (g *Grammar) resolve(ix *records.Index, st State) Content {
	if len(st.Path) == 0 {
		return Failure("unknown path")
	}
	active := st.Path.Last()
	level, rank, ok := g.Level(active.Type)
	if !ok {
		return Failure("unknown path")
	}

	userRank := g.userRank()
	needsOwner := userRank < 0 || rank >= userRank
	owner := st.Owner
	if userRank >= 0 {
		seg, found := st.Path.Find(User)
		owner = ""
		if found {
			owner = seg.ID
		}
	}
	if needsOwner && owner == "" {
		return Failure("user context lost")
	}

	scope := Scope{
		Grammar: g,
		Index:   ix,
		Path:    st.Path,
		Filters: st.Filters.Normalize(),
		Owner:   owner,
	}

	if q := strings.ToLower(strings.TrimSpace(st.Query)); q != "" {
		if needsOwner {
			return g.searchFiles(scope, q)
		}
		return g.searchUsers(scope, q)
	}

	return level.Group(scope, level.Next)
}

func (g *Grammar) searchUsers(s Scope, q string) Content {
	dept, hasDept := s.Path.Find(Department)
	loc, hasLoc := s.Path.Find(Location)

	matched := []models.Employee{}
	for _, e := range s.Index.Employees() {
		if hasDept && e.DepartmentKey() != dept.ID {
			continue
		}
		if hasLoc && e.LocationKey() != loc.ID {
			continue
		}
		if matchName(e.Name, q) {
			matched = append(matched, e)
		}
	}
	return Users(matched)
}

func (g *Grammar) searchFiles(s Scope, q string) Content {
	var matched []models.Document
	for _, d := range s.Documents() {
		if matchName(d.Name, q) {
			matched = append(matched, d)
		}
	}
	return s.files(matched)
}
