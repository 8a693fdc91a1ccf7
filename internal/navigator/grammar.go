package navigator

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/fruitsalade/docportal/internal/records"
	"github.com/fruitsalade/docportal/pkg/models"
)

// GroupFunc computes the content shown while a level is active. next is
// the level's configured child type.
type GroupFunc func(s Scope, next SegmentType) Content

// Level is one row of a grammar: the segment type, how its content is
// grouped and sorted, and the type of the folders it produces.
type Level struct {
	Type  SegmentType
	Group GroupFunc
	Next  SegmentType
}

// Grammar configures one explorer. Levels are ordered from the root down.
type Grammar struct {
	Name        string
	RootName    string
	Priority    []string // category labels always listed first, in order
	Hidden      []string // category labels never listed
	DefaultType string   // type assumed for documents without one
	NewestFirst bool     // file listings sorted by upload date, descending

	SmartJump bool
	SmartBack bool
	Reconcile bool

	Levels []Level
}

// Level returns the row for segment type t.
func (g *Grammar) Level(t SegmentType) (Level, int, bool) {
	for i, l := range g.Levels {
		if l.Type == t {
			return l, i, true
		}
	}
	return Level{}, -1, false
}

// userRank is the position of the User level, or -1 when the explorer is
// bound to a single owner.
func (g *Grammar) userRank() int {
	_, i, _ := g.Level(User)
	return i
}

// Validate checks the structural rules every grammar must satisfy.
func (g *Grammar) Validate() error {
	if len(g.Levels) == 0 || g.Levels[0].Type != Root {
		return fmt.Errorf("grammar %q: first level must be root", g.Name)
	}
	seen := make(map[SegmentType]bool)
	for _, l := range g.Levels {
		if seen[l.Type] {
			return fmt.Errorf("grammar %q: duplicate level %q", g.Name, l.Type)
		}
		seen[l.Type] = true
		if l.Group == nil {
			return fmt.Errorf("grammar %q: level %q has no group", g.Name, l.Type)
		}
	}
	for _, l := range g.Levels {
		if l.Next != "" && !seen[l.Next] {
			return fmt.Errorf("grammar %q: level %q points at missing level %q", g.Name, l.Type, l.Next)
		}
	}
	return nil
}

// Scope is the input to a GroupFunc.
type Scope struct {
	Grammar *Grammar
	Index   *records.Index
	Path    Path
	Filters Filters
	Owner   string
}

// Documents returns the owner's documents with the grammar's default type
// applied.
func (s Scope) Documents() []models.Document {
	docs := s.Index.DocumentsOf(s.Owner)
	if s.Grammar.DefaultType == "" {
		return docs
	}
	out := make([]models.Document, len(docs))
	for i, d := range docs {
		if d.Type == "" {
			d.Type = s.Grammar.DefaultType
		}
		out[i] = d
	}
	return out
}

func (s Scope) files(docs []models.Document) Content {
	if s.Grammar.NewestFirst {
		sort.SliceStable(docs, func(i, j int) bool {
			return docs[i].UploadDate.After(docs[j].UploadDate)
		})
	}
	if docs == nil {
		docs = []models.Document{}
	}
	return Files(docs)
}

// category returns the label of the Category segment in the path.
func (s Scope) category() string {
	seg, _ := s.Path.Find(Category)
	return seg.ID
}

// year returns the year from the path, falling back to the year filter
// when the Year level was skipped. It fails when neither supplies one.
func (s Scope) year() (int, bool) {
	if seg, ok := s.Path.Find(Year); ok {
		y, err := strconv.Atoi(seg.ID)
		return y, err == nil
	}
	if !s.Filters.YearPinned() {
		return 0, false
	}
	y, err := strconv.Atoi(s.Filters.Year)
	return y, err == nil
}

// Groups is the registry of named GroupFuncs that profiles refer to.
var Groups = map[string]GroupFunc{
	"departments":         groupDepartments,
	"locations":           groupLocations,
	"users":               groupUsers,
	"categories":          groupCategories,
	"filtered_categories": groupFilteredCategories,
	"years":               groupYears,
	"filtered_years":      groupFilteredYears,
	"months":              groupMonths,
	"filtered_months":     groupFilteredMonths,
	"files":               groupMonthFiles,
	"filtered_files":      groupFilteredFiles,
}

func groupDepartments(s Scope, next SegmentType) Content {
	labels := s.Index.Departments()
	if len(labels) == 0 {
		return Empty("No departments")
	}
	return Folders(labels, next)
}

func groupLocations(s Scope, next SegmentType) Content {
	labels := s.Index.LocationsWithin(s.Path.Last().ID)
	if len(labels) == 0 {
		return Empty("No locations in this department")
	}
	return Folders(labels, next)
}

func groupUsers(s Scope, _ SegmentType) Content {
	dept, _ := s.Path.Find(Department)
	list := s.Index.UsersWithin(dept.ID, s.Path.Last().ID)
	if list == nil {
		list = []models.Employee{}
	}
	return Users(list)
}

// categoryLabels merges the priority labels with the types found in docs:
// priority labels first in their fixed order, the rest alphabetical.
func (s Scope) categoryLabels(docs []models.Document) []string {
	hidden := make(map[string]bool, len(s.Grammar.Hidden))
	for _, h := range s.Grammar.Hidden {
		hidden[h] = true
	}
	prio := make(map[string]bool, len(s.Grammar.Priority))
	var labels []string
	for _, p := range s.Grammar.Priority {
		prio[p] = true
		if !hidden[p] {
			labels = append(labels, p)
		}
	}
	for _, t := range records.TypesIn(docs) {
		if !prio[t] && !hidden[t] {
			labels = append(labels, t)
		}
	}
	return labels
}

func groupCategories(s Scope, next SegmentType) Content {
	labels := s.categoryLabels(s.Documents())
	if len(labels) == 0 {
		return Empty("No document categories")
	}
	return Folders(labels, next)
}

func groupFilteredCategories(s Scope, next SegmentType) Content {
	var docs []models.Document
	for _, d := range s.Documents() {
		if s.Filters.Match(d) {
			docs = append(docs, d)
		}
	}
	labels := s.categoryLabels(docs)
	if len(labels) == 0 {
		return Empty("No document categories")
	}
	return Folders(labels, next)
}

func yearLabels(years []int) []string {
	out := make([]string, len(years))
	for i, y := range years {
		out[i] = strconv.Itoa(y)
	}
	return out
}

func monthLabels(docs []models.Document, category string, year int) []string {
	var out []string
	for _, m := range records.MonthsIn(docs, category, year) {
		out = append(out, models.Months[m-1])
	}
	return out
}

func groupYears(s Scope, next SegmentType) Content {
	labels := yearLabels(records.YearsIn(s.Documents(), s.Path.Last().ID))
	if len(labels) == 0 {
		return Empty("No documents in this folder")
	}
	return Folders(labels, next)
}

// groupFilteredYears lets pinned filters skip levels: both pinned lists
// files, a pinned year lists that year's months.
func groupFilteredYears(s Scope, next SegmentType) Content {
	category := s.Path.Last().ID
	docs := s.Documents()
	switch {
	case s.Filters.Pinned():
		var out []models.Document
		for _, d := range docs {
			if d.Type == category && s.Filters.Match(d) {
				out = append(out, d)
			}
		}
		return s.files(out)
	case s.Filters.YearPinned():
		year, _ := s.year()
		labels := monthLabels(docs, category, year)
		if len(labels) == 0 {
			return Empty("No documents in this folder")
		}
		return Folders(labels, Month)
	}
	return groupYears(s, next)
}

func groupMonths(s Scope, next SegmentType) Content {
	year, _ := strconv.Atoi(s.Path.Last().ID)
	labels := monthLabels(s.Documents(), s.category(), year)
	if len(labels) == 0 {
		return Empty("No documents in this year")
	}
	return Folders(labels, next)
}

func groupFilteredMonths(s Scope, next SegmentType) Content {
	if !s.Filters.MonthPinned() {
		return groupMonths(s, next)
	}
	category := s.category()
	year, ok := s.year()
	if !ok {
		return Failure("year context lost")
	}
	var out []models.Document
	for _, d := range s.Documents() {
		if d.Type == category && !d.UploadDate.IsZero() && d.UploadDate.Year() == year &&
			models.Months[d.UploadDate.Month()-1] == s.Filters.Month {
			out = append(out, d)
		}
	}
	return s.files(out)
}

func groupMonthFiles(s Scope, _ SegmentType) Content {
	category := s.category()
	year, ok := s.year()
	if !ok {
		return Failure("year context lost")
	}
	month := models.MonthIndex(s.Path.Last().ID)
	var out []models.Document
	for _, d := range s.Documents() {
		if d.Type == category && !d.UploadDate.IsZero() &&
			d.UploadDate.Year() == year && int(d.UploadDate.Month()) == month {
			out = append(out, d)
		}
	}
	return s.files(out)
}

func groupFilteredFiles(s Scope, _ SegmentType) Content {
	category := s.Path.Last().ID
	var out []models.Document
	for _, d := range s.Documents() {
		if d.Type == category && s.Filters.Match(d) {
			out = append(out, d)
		}
	}
	return s.files(out)
}

// matchName reports whether name contains the lowercased query.
func matchName(name, lowerQuery string) bool {
	return strings.Contains(strings.ToLower(name), lowerQuery)
}
