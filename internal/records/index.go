// Package records holds the read-only, normalized view over the employee
// and document collections that the navigator groups into folders.
package records

import (
	"sort"
	"strings"
	"time"

	"github.com/fruitsalade/docportal/pkg/models"
)

// Index is an immutable view over one fetched pair of collections.
// Every grouping uses Employee.DepartmentKey and Employee.LocationKey, so
// blank values land under "Unassigned" and "Unknown Location".
type Index struct {
	employees []models.Employee
	documents []models.Document
	byID      map[string]int
}

// NewIndex builds an index. The slices are copied.
func NewIndex(employees []models.Employee, documents []models.Document) *Index {
	ix := &Index{
		employees: append([]models.Employee(nil), employees...),
		documents: append([]models.Document(nil), documents...),
		byID:      make(map[string]int, len(employees)),
	}
	for i, e := range ix.employees {
		ix.byID[e.ID] = i
	}
	return ix
}

// Employees returns all employees in source order.
func (ix *Index) Employees() []models.Employee {
	return append([]models.Employee(nil), ix.employees...)
}

// Documents returns all documents in source order.
func (ix *Index) Documents() []models.Document {
	return append([]models.Document(nil), ix.documents...)
}

// Employee looks an employee up by ID.
func (ix *Index) Employee(id string) (models.Employee, bool) {
	i, ok := ix.byID[id]
	if !ok {
		return models.Employee{}, false
	}
	return ix.employees[i], true
}

// Document looks a document up by ID.
func (ix *Index) Document(id string) (models.Document, bool) {
	for _, d := range ix.documents {
		if d.ID == id {
			return d, true
		}
	}
	return models.Document{}, false
}

// DocumentsOf returns the documents owned by ownerID in source order.
// An empty ownerID matches nothing.
func (ix *Index) DocumentsOf(ownerID string) []models.Document {
	if ownerID == "" {
		return nil
	}
	var out []models.Document
	for _, d := range ix.documents {
		if d.OwnerID == ownerID {
			out = append(out, d)
		}
	}
	return out
}

// Departments returns the distinct department keys, sorted.
func (ix *Index) Departments() []string {
	seen := make(map[string]struct{})
	for _, e := range ix.employees {
		seen[e.DepartmentKey()] = struct{}{}
	}
	return sortedKeys(seen)
}

// LocationsWithin returns the distinct location keys of employees in
// department, sorted.
func (ix *Index) LocationsWithin(department string) []string {
	seen := make(map[string]struct{})
	for _, e := range ix.employees {
		if e.DepartmentKey() == department {
			seen[e.LocationKey()] = struct{}{}
		}
	}
	return sortedKeys(seen)
}

// UsersWithin returns the employees in (department, location) sorted by
// name.
func (ix *Index) UsersWithin(department, location string) []models.Employee {
	var out []models.Employee
	for _, e := range ix.employees {
		if e.DepartmentKey() == department && e.LocationKey() == location {
			out = append(out, e)
		}
	}
	SortByName(out)
	return out
}

// TypesOf returns the distinct document types owned by ownerID, sorted.
// Documents without a type are skipped.
func (ix *Index) TypesOf(ownerID string) []string {
	return TypesIn(ix.DocumentsOf(ownerID))
}

// YearsOf returns the distinct upload years of ownerID's documents of the
// given type, newest first.
func (ix *Index) YearsOf(ownerID, docType string) []int {
	return YearsIn(ix.DocumentsOf(ownerID), docType)
}

// MonthsOf returns the distinct upload months of ownerID's documents of the
// given type in year, in calendar order.
func (ix *Index) MonthsOf(ownerID, docType string, year int) []time.Month {
	return MonthsIn(ix.DocumentsOf(ownerID), docType, year)
}

// TypesIn returns the distinct non-empty types in docs, sorted.
func TypesIn(docs []models.Document) []string {
	seen := make(map[string]struct{})
	for _, d := range docs {
		if d.Type != "" {
			seen[d.Type] = struct{}{}
		}
	}
	return sortedKeys(seen)
}

// YearsIn returns the distinct upload years of docs of docType, newest
// first. Documents without an upload date are skipped.
func YearsIn(docs []models.Document, docType string) []int {
	seen := make(map[int]struct{})
	for _, d := range docs {
		if d.Type == docType && !d.UploadDate.IsZero() {
			seen[d.UploadDate.Year()] = struct{}{}
		}
	}
	return descending(seen)
}

// MonthsIn returns the distinct upload months of docs of docType in year,
// in calendar order.
func MonthsIn(docs []models.Document, docType string, year int) []time.Month {
	var present [13]bool
	for _, d := range docs {
		if d.Type == docType && !d.UploadDate.IsZero() && d.UploadDate.Year() == year {
			present[d.UploadDate.Month()] = true
		}
	}
	var months []time.Month
	for m := time.January; m <= time.December; m++ {
		if present[m] {
			months = append(months, m)
		}
	}
	return months
}

// AvailableYears returns every distinct upload year across all documents,
// newest first. It feeds the year filter choices.
func (ix *Index) AvailableYears() []int {
	return UploadYears(ix.documents)
}

// UploadYears returns the distinct upload years in docs, newest first.
func UploadYears(docs []models.Document) []int {
	seen := make(map[int]struct{})
	for _, d := range docs {
		if !d.UploadDate.IsZero() {
			seen[d.UploadDate.Year()] = struct{}{}
		}
	}
	return descending(seen)
}

// SortByName orders employees case-insensitively by name, then by ID.
func SortByName(list []models.Employee) {
	sort.SliceStable(list, func(i, j int) bool {
		a, b := strings.ToLower(list[i].Name), strings.ToLower(list[j].Name)
		if a != b {
			return a < b
		}
		return list[i].ID < list[j].ID
	})
}

// SortLabels orders folder labels case-insensitively.
func SortLabels(labels []string) {
	sort.SliceStable(labels, func(i, j int) bool {
		a, b := strings.ToLower(labels[i]), strings.ToLower(labels[j])
		if a != b {
			return a < b
		}
		return labels[i] < labels[j]
	})
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	SortLabels(out)
	return out
}

func descending(set map[int]struct{}) []int {
	out := make([]int, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(out)))
	return out
}
