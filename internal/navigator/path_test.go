package navigator

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/fruitsalade/docportal/pkg/models"
)

func TestPathPushDoesNotAlias(t *testing.T) {
	base := make(Path, 1, 8)
	base[0] = RootSegment("Departments")

	a := base.Push(Segment{ID: "A", Type: Department})
	b := base.Push(Segment{ID: "B", Type: Department})

	if a.Last().ID != "A" || b.Last().ID != "B" {
		t.Errorf("Push shared backing array: a=%v b=%v", a, b)
	}
	if len(base) != 1 {
		t.Errorf("Push modified the receiver: %v", base)
	}
}

func TestPathJumpTo(t *testing.T) {
	p := orgPath(category("Salary Slip"), YearSegment("2024"))

	tests := []struct {
		index int
		want  int
	}{
		{0, 1},
		{3, 4},
		{5, 6},
		{99, 6},
		{-4, 1},
	}
	for _, tt := range tests {
		got := p.JumpTo(tt.index)
		if len(got) != tt.want {
			t.Errorf("JumpTo(%d) len = %d, want %d", tt.index, len(got), tt.want)
		}
		if got[0].Type != Root {
			t.Errorf("JumpTo(%d) lost the root: %v", tt.index, got)
		}
	}
}

func TestPathPop(t *testing.T) {
	p := orgPath()
	popped, ok := p.Pop()
	if !ok || popped.Last().Type != Location {
		t.Errorf("Pop() = %v, %v; want location tail", popped, ok)
	}

	root := Path{RootSegment("Departments")}
	same, ok := root.Pop()
	if ok {
		t.Error("Pop at root should report false")
	}
	if !same.Equal(root) {
		t.Errorf("Pop at root changed the path: %v", same)
	}
}

func TestPathReplaceFrom(t *testing.T) {
	p := orgPath(category("Salary Slip"), YearSegment("2023"), MonthSegment("December"))
	got := p.ReplaceFrom(5, YearSegment("2024"), MonthSegment("June"))
	want := orgPath(category("Salary Slip"), YearSegment("2024"), MonthSegment("June"))
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ReplaceFrom mismatch (-want +got):\n%s", diff)
	}
	if p.Last().ID != "December" {
		t.Error("ReplaceFrom modified the receiver")
	}

	if got := p.ReplaceFrom(0); len(got) != 1 || got[0].Type != Root {
		t.Errorf("ReplaceFrom(0) = %v, want root only", got)
	}
}

func TestPathFind(t *testing.T) {
	p := orgPath(category("Personal"))
	if i := p.IndexOf(Category); i != 4 {
		t.Errorf("IndexOf(Category) = %d, want 4", i)
	}
	if _, ok := p.Find(Year); ok {
		t.Error("Find(Year) should fail")
	}
	if seg, ok := p.Find(User); !ok || seg.ID != "u1" {
		t.Errorf("Find(User) = %v, %v", seg, ok)
	}
}

func TestDefaultFilters(t *testing.T) {
	f := DefaultFilters(testNow)
	if f.Year != "2024" || f.Month != "June" {
		t.Errorf("DefaultFilters = %+v, want 2024/June", f)
	}
	if !f.Pinned() {
		t.Error("default filters should be pinned")
	}
	if (Filters{}).Normalize() != allFilters() {
		t.Errorf("Normalize of blank filters = %+v", Filters{}.Normalize())
	}
}

func TestFiltersMatch(t *testing.T) {
	june := models.Document{UploadDate: date("2024-06-28")}
	undated := models.Document{}

	tests := []struct {
		f    Filters
		doc  models.Document
		want bool
	}{
		{allFilters(), june, true},
		{allFilters(), undated, true},
		{Filters{Year: "2024", Month: All}, june, true},
		{Filters{Year: "2023", Month: All}, june, false},
		{Filters{Year: All, Month: "June"}, june, true},
		{Filters{Year: "2024", Month: "May"}, june, false},
		{Filters{Year: "2024", Month: "June"}, undated, false},
	}
	for _, tt := range tests {
		if got := tt.f.Match(tt.doc); got != tt.want {
			t.Errorf("%+v.Match(%v) = %v, want %v", tt.f, tt.doc.UploadDate, got, tt.want)
		}
	}
}
