package navigator

// Reconcile returns the canonical path for p under f and whether it
// differs from p.
//
// The canonical path is p up to its Category segment followed by
// Year(f.Year) and Month(f.Month). Nothing changes unless both filters are
// pinned and p contains a Category. When the Year and Month segments
// already carry the filter values p is returned as is, so applying
// Reconcile to its own output never rewrites again.
func Reconcile(p Path, f Filters) (Path, bool) {
	if !f.Pinned() {
		return p, false
	}
	ci := p.IndexOf(Category)
	if ci < 0 {
		return p, false
	}
	y, _ := p.Find(Year)
	m, _ := p.Find(Month)
	if y.ID == f.Year && m.ID == f.Month {
		return p, false
	}
	return p.ReplaceFrom(ci+1, YearSegment(f.Year), MonthSegment(f.Month)), true
}

// smartJumpTail returns the segments to push when entering seg. With both
// filters pinned, entering a Category goes straight to its Year and Month.
func smartJumpTail(seg Segment, f Filters) []Segment {
	if seg.Type == Category && f.Pinned() {
		return []Segment{seg, YearSegment(f.Year), MonthSegment(f.Month)}
	}
	return []Segment{seg}
}

// smartBack returns the User prefix of p when both filters are pinned and
// p goes deeper than the User segment.
func smartBack(p Path, f Filters) (Path, bool) {
	if !f.Pinned() {
		return p, false
	}
	ui := p.IndexOf(User)
	if ui < 0 || len(p) <= ui+1 {
		return p, false
	}
	return p.JumpTo(ui), true
}
