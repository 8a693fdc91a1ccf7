package records

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/fruitsalade/docportal/pkg/models"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func sampleIndex() *Index {
	employees := []models.Employee{
		{ID: "u1", Name: "Zoe", Department: "Engineering", Location: "HQ"},
		{ID: "u2", Name: "adam", Department: "Engineering", Location: "HQ"},
		{ID: "u3", Name: "Bea", Department: "Engineering"},
		{ID: "u4", Name: "Carl"},
		{ID: "u5", Name: "Dina", Department: "Finance", Location: "Remote"},
	}
	documents := []models.Document{
		{ID: "d1", OwnerID: "u1", Name: "june.pdf", Type: "Salary Slip", UploadDate: day("2024-06-28")},
		{ID: "d2", OwnerID: "u1", Name: "march.pdf", Type: "Salary Slip", UploadDate: day("2024-03-01")},
		{ID: "d3", OwnerID: "u1", Name: "old.pdf", Type: "Salary Slip", UploadDate: day("2022-12-01")},
		{ID: "d4", OwnerID: "u1", Name: "passport.png", Type: "Personal", UploadDate: day("2023-01-10")},
		{ID: "d5", OwnerID: "u1", Name: "badge.png", Type: "Access Card", UploadDate: day("2024-06-01")},
		{ID: "d6", OwnerID: "", Name: "orphan.pdf", Type: "Personal", UploadDate: day("2021-01-01")},
		{ID: "d7", OwnerID: "u1", Name: "untyped.pdf", UploadDate: day("2020-01-01")},
	}
	return NewIndex(employees, documents)
}

func TestDepartmentsUseFallbackKey(t *testing.T) {
	ix := sampleIndex()
	want := []string{"Engineering", "Finance", models.UnassignedDepartment}
	if diff := cmp.Diff(want, ix.Departments()); diff != "" {
		t.Errorf("Departments() mismatch (-want +got):\n%s", diff)
	}
}

func TestLocationsWithin(t *testing.T) {
	ix := sampleIndex()

	tests := []struct {
		department string
		want       []string
	}{
		{"Engineering", []string{"HQ", models.UnknownLocation}},
		{models.UnassignedDepartment, []string{models.UnknownLocation}},
		{"Finance", []string{"Remote"}},
		{"Nope", []string{}},
	}
	for _, tt := range tests {
		got := ix.LocationsWithin(tt.department)
		if diff := cmp.Diff(tt.want, got); diff != "" {
			t.Errorf("LocationsWithin(%q) mismatch (-want +got):\n%s", tt.department, diff)
		}
	}
}

func TestUsersWithinSortedByName(t *testing.T) {
	ix := sampleIndex()

	got := ix.UsersWithin("Engineering", "HQ")
	var names []string
	for _, e := range got {
		names = append(names, e.Name)
	}
	if diff := cmp.Diff([]string{"adam", "Zoe"}, names); diff != "" {
		t.Errorf("UsersWithin names mismatch (-want +got):\n%s", diff)
	}

	fallback := ix.UsersWithin(models.UnassignedDepartment, models.UnknownLocation)
	if len(fallback) != 1 || fallback[0].ID != "u4" {
		t.Errorf("UsersWithin(fallbacks) = %v, want [u4]", fallback)
	}
}

func TestDocumentsOf(t *testing.T) {
	ix := sampleIndex()

	if got := len(ix.DocumentsOf("u1")); got != 6 {
		t.Errorf("DocumentsOf(u1) len = %d, want 6", got)
	}
	if got := ix.DocumentsOf(""); got != nil {
		t.Errorf("DocumentsOf(\"\") = %v, want nil", got)
	}
	if got := ix.DocumentsOf("u9"); len(got) != 0 {
		t.Errorf("DocumentsOf(u9) = %v, want empty", got)
	}
}

func TestTypesOfSkipsUntyped(t *testing.T) {
	ix := sampleIndex()
	want := []string{"Access Card", "Personal", "Salary Slip"}
	if diff := cmp.Diff(want, ix.TypesOf("u1")); diff != "" {
		t.Errorf("TypesOf(u1) mismatch (-want +got):\n%s", diff)
	}
}

func TestYearsOfDescending(t *testing.T) {
	ix := sampleIndex()
	if diff := cmp.Diff([]int{2024, 2022}, ix.YearsOf("u1", "Salary Slip")); diff != "" {
		t.Errorf("YearsOf mismatch (-want +got):\n%s", diff)
	}
	if got := ix.YearsOf("u1", "Medical Report"); len(got) != 0 {
		t.Errorf("YearsOf(no docs) = %v, want empty", got)
	}
}

func TestMonthsOfCalendarOrder(t *testing.T) {
	ix := sampleIndex()
	want := []time.Month{time.March, time.June}
	if diff := cmp.Diff(want, ix.MonthsOf("u1", "Salary Slip", 2024)); diff != "" {
		t.Errorf("MonthsOf mismatch (-want +got):\n%s", diff)
	}
}

func TestAvailableYears(t *testing.T) {
	ix := sampleIndex()
	want := []int{2024, 2023, 2022, 2021, 2020}
	if diff := cmp.Diff(want, ix.AvailableYears()); diff != "" {
		t.Errorf("AvailableYears mismatch (-want +got):\n%s", diff)
	}
}

func TestEmployeeAndDocumentLookup(t *testing.T) {
	ix := sampleIndex()

	if e, ok := ix.Employee("u5"); !ok || e.Name != "Dina" {
		t.Errorf("Employee(u5) = %v, %v", e, ok)
	}
	if _, ok := ix.Employee("missing"); ok {
		t.Error("Employee(missing) should not be found")
	}
	if d, ok := ix.Document("d4"); !ok || d.Name != "passport.png" {
		t.Errorf("Document(d4) = %v, %v", d, ok)
	}
}

func TestNewIndexCopiesInput(t *testing.T) {
	employees := []models.Employee{{ID: "u1", Name: "A"}}
	ix := NewIndex(employees, nil)
	employees[0].Name = "changed"

	e, _ := ix.Employee("u1")
	if e.Name != "A" {
		t.Errorf("index shares caller slice: name = %q", e.Name)
	}
}
