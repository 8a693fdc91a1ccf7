package navigator

import (
	"time"

	"github.com/fruitsalade/docportal/internal/records"
	"github.com/fruitsalade/docportal/pkg/models"
)

var testNow = time.Date(2024, time.June, 15, 10, 0, 0, 0, time.UTC)

func date(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func testIndex() *records.Index {
	employees := []models.Employee{
		{ID: "u1", Name: "Priya Shah", Department: "Engineering", Location: "HQ"},
		{ID: "u2", Name: "Arjun Mehta", Department: "Engineering", Location: "HQ"},
		{ID: "u3", Name: "Lena Ortiz", Department: "Engineering", Location: "Remote"},
		{ID: "u4", Name: "Sam Patel", Department: "Finance", Location: "HQ"},
		{ID: "u5", Name: "Noor Ali"},
	}
	documents := []models.Document{
		{ID: "d1", OwnerID: "u1", Name: "salary-june.pdf", Type: "Salary Slip", UploadDate: date("2024-06-28")},
		{ID: "d2", OwnerID: "u1", Name: "salary-may.pdf", Type: "Salary Slip", UploadDate: date("2024-05-28")},
		{ID: "d3", OwnerID: "u1", Name: "salary-dec.pdf", Type: "Salary Slip", UploadDate: date("2023-12-28")},
		{ID: "d4", OwnerID: "u1", Name: "passport-scan.png", Type: "Personal", UploadDate: date("2024-06-02")},
		{ID: "d5", OwnerID: "u1", Name: "badge.png", Type: "Access Card", UploadDate: date("2024-01-09")},
		{ID: "d6", OwnerID: "u2", Name: "salary-june.pdf", Type: "Salary Slip", UploadDate: date("2024-06-28")},
		{ID: "d7", OwnerID: "u5", Name: "offer.pdf", Type: "Contract", UploadDate: date("2022-03-14")},
		{ID: "d8", OwnerID: "u1", Name: "handbook.pdf", Type: "Resources", UploadDate: date("2024-06-03")},
		{ID: "d9", OwnerID: "u1", Name: "notes.txt", UploadDate: date("2024-06-04")},
		{ID: "d10", OwnerID: "", Name: "stray.pdf", Type: "Personal", UploadDate: date("2024-06-05")},
	}
	return records.NewIndex(employees, documents)
}

func orgPath(tail ...Segment) Path {
	p := Path{
		RootSegment("Departments"),
		{ID: "Engineering", Name: "Engineering", Type: Department},
		{ID: "HQ", Name: "HQ", Type: Location},
		{ID: "u1", Name: "Priya Shah", Type: User},
	}
	return p.Push(tail...)
}

func category(label string) Segment {
	return Segment{ID: label, Name: label, Type: Category}
}

func allFilters() Filters {
	return Filters{Year: All, Month: All}
}

func docIDs(c Content) []string {
	out := []string{}
	for _, d := range c.Files {
		out = append(out, d.ID)
	}
	return out
}

func userIDs(c Content) []string {
	out := []string{}
	for _, u := range c.Users {
		out = append(out, u.ID)
	}
	return out
}
