package navigator

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestReconcile(t *testing.T) {
	pinned := Filters{Year: "2024", Month: "June"}
	canonical := orgPath(category("Salary Slip"), YearSegment("2024"), MonthSegment("June"))

	tests := []struct {
		name        string
		path        Path
		filters     Filters
		want        Path
		wantChanged bool
	}{
		{"no category", orgPath(), pinned, orgPath(), false},
		{"filters not pinned", orgPath(category("Salary Slip")), Filters{Year: "2024", Month: All}, orgPath(category("Salary Slip")), false},
		{"category only", orgPath(category("Salary Slip")), pinned, canonical, true},
		{"year only", orgPath(category("Salary Slip"), YearSegment("2024")), pinned, canonical, true},
		{"stale year and month", orgPath(category("Salary Slip"), YearSegment("2023"), MonthSegment("December")), pinned, canonical, true},
		{"already canonical", canonical, pinned, canonical, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, changed := Reconcile(tt.path, tt.filters)
			if changed != tt.wantChanged {
				t.Errorf("changed = %v, want %v", changed, tt.wantChanged)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Reconcile mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestReconcileIdempotent(t *testing.T) {
	paths := []Path{
		{RootSegment("Departments")},
		orgPath(),
		orgPath(category("Personal")),
		orgPath(category("Personal"), YearSegment("2021")),
		orgPath(category("Personal"), YearSegment("2021"), MonthSegment("March")),
		{RootSegment("Home"), category("Salary Slip"), MonthSegment("May")},
	}
	filters := []Filters{
		allFilters(),
		{Year: "2024", Month: All},
		{Year: All, Month: "June"},
		{Year: "2024", Month: "June"},
		{Year: "2021", Month: "March"},
	}

	for _, p := range paths {
		for _, f := range filters {
			once, _ := Reconcile(p, f)
			twice, changed := Reconcile(once, f)
			if changed {
				t.Errorf("Reconcile(%v, %+v) rewrote its own output", p, f)
			}
			if !twice.Equal(once) {
				t.Errorf("Reconcile(%v, %+v) not idempotent: %v then %v", p, f, once, twice)
			}
		}
	}
}

func TestSmartJumpMatchesManualDescent(t *testing.T) {
	smart := mustProfile(t, ProfileOrganization)
	manual := *smart
	manual.SmartJump = false
	manual.Reconcile = false

	start := State{Path: orgPath(), Filters: Filters{Year: "2024", Month: "June"}}

	jumped := smart.Reduce(start, EnterFolder{ID: "Salary Slip", Type: Category})

	walked := manual.Reduce(start, EnterFolder{ID: "Salary Slip", Type: Category})
	walked = manual.Reduce(walked, EnterFolder{ID: "2024", Type: Year})
	walked = manual.Reduce(walked, EnterFolder{ID: "June", Type: Month})

	if diff := cmp.Diff(walked.Path, jumped.Path); diff != "" {
		t.Errorf("smart jump path mismatch (-walked +jumped):\n%s", diff)
	}

	ix := testIndex()
	got := smart.Resolve(ix, jumped)
	if diff := cmp.Diff([]string{"d1"}, docIDs(got)); diff != "" {
		t.Errorf("files mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(manual.Resolve(ix, walked), got); diff != "" {
		t.Errorf("content mismatch (-walked +jumped):\n%s", diff)
	}
}

func TestSmartJumpNeedsBothFilters(t *testing.T) {
	g := mustProfile(t, ProfileOrganization)
	start := State{Path: orgPath(), Filters: Filters{Year: "2024", Month: All}}
	got := g.Reduce(start, EnterFolder{ID: "Salary Slip", Type: Category})
	if diff := cmp.Diff(orgPath(category("Salary Slip")), got.Path); diff != "" {
		t.Errorf("path mismatch (-want +got):\n%s", diff)
	}
}

func TestBack(t *testing.T) {
	org := mustProfile(t, ProfileOrganization)
	emp := mustProfile(t, ProfileEmployee)
	deep := orgPath(category("Salary Slip"), YearSegment("2024"), MonthSegment("June"))
	pinned := Filters{Year: "2024", Month: "June"}

	tests := []struct {
		name string
		g    *Grammar
		st   State
		want Path
	}{
		{"smart back to the user", org, State{Path: deep, Filters: pinned}, orgPath()},
		{"plain back without pinned filters", org, State{Path: deep, Filters: allFilters()}, deep[:6]},
		{"plain back above the user", org, State{Path: orgPath(), Filters: pinned}, orgPath()[:3]},
		{
			"employee explorer has no smart back",
			emp,
			State{Path: Path{RootSegment("Home"), category("Salary Slip"), YearSegment("2024")}, Filters: pinned, Owner: "u1"},
			Path{RootSegment("Home"), category("Salary Slip")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.g.Reduce(tt.st, Back{})
			if got.Leave {
				t.Error("Leave set below the root")
			}
			if diff := cmp.Diff(tt.want, got.Path); diff != "" {
				t.Errorf("path mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestBackAtRootLeaves(t *testing.T) {
	g := mustProfile(t, ProfileOrganization)
	st := g.Initial("", testNow)
	got := g.Reduce(st, Back{})
	if !got.Leave {
		t.Error("Back at the root should set Leave")
	}
	if !got.Path.Equal(st.Path) {
		t.Errorf("path changed: %v", got.Path)
	}

	again := g.Reduce(got, Search{Query: "x"})
	if again.Leave {
		t.Error("Leave should not survive the next event")
	}
}

func TestReducePathChangesClearQuery(t *testing.T) {
	g := mustProfile(t, ProfileOrganization)
	base := State{Path: orgPath(), Filters: allFilters(), Query: "salary"}

	events := []Event{
		EnterFolder{ID: "Personal", Type: Category},
		JumpTo{Index: 1},
		Back{},
		Reset{},
	}
	for _, e := range events {
		got := g.Reduce(base, e)
		if got.Query != "" {
			t.Errorf("%s kept the query %q", EventType(e), got.Query)
		}
		if got.Filters != base.Filters {
			t.Errorf("%s changed the filters to %+v", EventType(e), got.Filters)
		}
	}

	kept := g.Reduce(base, SetFilters{Year: "2024"})
	if kept.Query != "salary" {
		t.Errorf("SetFilters without a rewrite cleared the query")
	}
	if kept.Filters != (Filters{Year: "2024", Month: All}) {
		t.Errorf("SetFilters = %+v, want 2024/all", kept.Filters)
	}
}

func TestReduceDoesNotModifyInput(t *testing.T) {
	g := mustProfile(t, ProfileOrganization)
	p := orgPath(category("Salary Slip"))
	st := State{Path: p, Filters: allFilters()}
	before := append(Path(nil), p...)

	g.Reduce(st, SetFilters{Year: "2024", Month: "June"})
	g.Reduce(st, EnterFolder{ID: "2024", Type: Year})
	g.Reduce(st, Back{})

	if diff := cmp.Diff(before, st.Path); diff != "" {
		t.Errorf("input path modified (-before +after):\n%s", diff)
	}
}

func TestFilterChangeRewritesPath(t *testing.T) {
	g := mustProfile(t, ProfileOrganization)
	st := State{
		Path:    orgPath(category("Salary Slip"), YearSegment("2024"), MonthSegment("June")),
		Filters: Filters{Year: "2024", Month: "June"},
		Query:   "slip",
	}

	got := g.Reduce(st, SetFilters{Year: "2023", Month: "December"})
	want := orgPath(category("Salary Slip"), YearSegment("2023"), MonthSegment("December"))
	if diff := cmp.Diff(want, got.Path); diff != "" {
		t.Errorf("path mismatch (-want +got):\n%s", diff)
	}
	if got.Query != "" {
		t.Errorf("rewrite kept the query %q", got.Query)
	}
	if diff := cmp.Diff([]string{"d3"}, docIDs(g.Resolve(testIndex(), got))); diff != "" {
		t.Errorf("files mismatch (-want +got):\n%s", diff)
	}

	cleared := g.Reduce(got, SetFilters{})
	if !cleared.Path.Equal(got.Path) {
		t.Errorf("unpinning filters moved the path to %v", cleared.Path)
	}
}

func TestEmployeeExplorerDoesNotReconcile(t *testing.T) {
	g := mustProfile(t, ProfileEmployee)
	p := Path{RootSegment("Home"), category("Salary Slip")}
	st := State{Path: p, Filters: allFilters(), Owner: "u1"}

	got := g.Reduce(st, SetFilters{Year: "2024", Month: "June"})
	if !got.Path.Equal(p) {
		t.Errorf("path rewritten to %v", got.Path)
	}
	if diff := cmp.Diff([]string{"d1"}, docIDs(g.Resolve(testIndex(), got))); diff != "" {
		t.Errorf("files mismatch (-want +got):\n%s", diff)
	}
}

func TestInitial(t *testing.T) {
	g := mustProfile(t, ProfileEmbedded)
	st := g.Initial("u1", testNow)
	want := State{
		Path:    Path{RootSegment("My Documents")},
		Filters: Filters{Year: "2024", Month: "June"},
		Owner:   "u1",
	}
	if diff := cmp.Diff(want, st); diff != "" {
		t.Errorf("Initial mismatch (-want +got):\n%s", diff)
	}
}

func TestDeepLink(t *testing.T) {
	org := mustProfile(t, ProfileOrganization)
	ix := testIndex()

	p, ok := org.DeepLink(ix, "u5")
	if !ok {
		t.Fatal("DeepLink(u5) failed")
	}
	want := Path{
		RootSegment("Departments"),
		{ID: "Unassigned", Name: "Unassigned", Type: Department},
		{ID: "Unknown Location", Name: "Unknown Location", Type: Location},
		{ID: "u5", Name: "Noor Ali", Type: User},
	}
	if diff := cmp.Diff(want, p); diff != "" {
		t.Errorf("DeepLink mismatch (-want +got):\n%s", diff)
	}
	if got := org.Resolve(ix, State{Path: p, Filters: allFilters()}); got.Kind != KindFolders {
		t.Errorf("deep-linked user resolves to %s", got.Kind)
	}

	if _, ok := org.DeepLink(ix, "nobody"); ok {
		t.Error("DeepLink to an unknown employee should fail")
	}
	if _, ok := mustProfile(t, ProfileEmployee).DeepLink(ix, "u1"); ok {
		t.Error("DeepLink in an explorer without a user level should fail")
	}
}
