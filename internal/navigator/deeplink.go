package navigator

import "github.com/fruitsalade/docportal/internal/records"

// DeepLink builds the path [Root, Department, Location, User] for userID.
// It reports false when the grammar has no such levels or the employee is
// unknown; callers then start at the root.
func (g *Grammar) DeepLink(ix *records.Index, userID string) (Path, bool) {
	if !g.hasLevels(Department, Location, User) {
		return nil, false
	}
	e, ok := ix.Employee(userID)
	if !ok {
		return nil, false
	}
	dept, loc := e.DepartmentKey(), e.LocationKey()
	return Path{
		RootSegment(g.RootName),
		{ID: dept, Name: dept, Type: Department},
		{ID: loc, Name: loc, Type: Location},
		{ID: e.ID, Name: e.Name, Type: User},
	}, true
}

func (g *Grammar) hasLevels(types ...SegmentType) bool {
	for _, t := range types {
		if _, _, ok := g.Level(t); !ok {
			return false
		}
	}
	return true
}
