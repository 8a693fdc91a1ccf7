// Package icons picks a folder icon and color for a label. The result is a
// pure function of the label, so a folder renders the same way in every
// session without storing anything.
package icons

import (
	"strings"
	"unicode/utf16"
)

// Icon names follow the lucide icon set used by the web client.
const (
	Banknote          = "banknote"
	Receipt           = "receipt"
	Landmark          = "landmark"
	FileSignature     = "file-signature"
	Scale             = "scale"
	User              = "user"
	Users             = "users"
	BriefcaseBusiness = "briefcase-business"
	GraduationCap     = "graduation-cap"
	Stethoscope       = "stethoscope"
	Image             = "image"
	Film              = "film"
	PaletteIcon       = "palette"
	Music             = "music"
	Cpu               = "cpu"
	Database          = "database"
	Briefcase         = "briefcase"
	Plane             = "plane"
	Shield            = "shield"
	Award             = "award"
	MapPin            = "map-pin"
	Building          = "building-2"
	Folder            = "folder"
)

// Rule maps any of its keywords, matched as case-insensitive substrings,
// to an icon.
type Rule struct {
	Category string
	Keywords []string
	Icon     string
}

// Rules is the ordered rule table. The first matching rule wins.
var Rules = []Rule{
	{"finance", []string{"salary", "pay", "payroll"}, Banknote},
	{"finance", []string{"tax", "invoice", "bill", "receipt"}, Receipt},
	{"finance", []string{"budget", "finance", "account", "bank"}, Landmark},
	{"legal", []string{"contract", "agreement", "nda", "offer", "policy"}, FileSignature},
	{"legal", []string{"legal", "law", "compliance", "court"}, Scale},
	{"hr", []string{"personal", "profile", "identity", "me"}, User},
	{"hr", []string{"team", "group", "hr", "people", "staff"}, Users},
	{"hr", []string{"job", "career", "work", "employ"}, BriefcaseBusiness},
	{"hr", []string{"education", "degree", "certif", "training", "learn"}, GraduationCap},
	{"health", []string{"health", "medical", "doctor", "insur", "medi"}, Stethoscope},
	{"media", []string{"image", "photo", "pic", "gallery", "asset"}, Image},
	{"media", []string{"video", "movie", "record"}, Film},
	{"media", []string{"design", "art", "ux", "ui", "creat"}, PaletteIcon},
	{"media", []string{"audio", "sound", "music"}, Music},
	{"tech", []string{"tech", "code", "dev", "software", "eng"}, Cpu},
	{"tech", []string{"data", "analytic", "report", "stat"}, Database},
	{"other", []string{"project", "task", "plan", "sprint"}, Briefcase},
	{"other", []string{"travel", "trip", "expens", "move"}, Plane},
	{"other", []string{"secur", "pass", "audit", "auth"}, Shield},
	{"other", []string{"appraisal", "award", "bonus", "promot"}, Award},
	{"place", []string{"location", "site", "place", "map", "office", "branch"}, MapPin},
	{"place", []string{"department", "dept", "division"}, Building},
}

// Palette is the fallback color set, indexed by label hash.
var Palette = []string{"emerald", "blue", "rose", "amber", "purple", "cyan", "indigo", "orange"}

// Overrides pins the color of well-known category labels.
var Overrides = map[string]string{
	"Salary Slip":      "emerald",
	"Personal":         "blue",
	"Medical Report":   "rose",
	"Appraisal Letter": "amber",
}

// Style is what the client needs to render a folder.
type Style struct {
	Icon     string `json:"icon"`
	Color    string `json:"color"`
	Category string `json:"category,omitempty"`
}

// Classify returns the style for a folder label.
func Classify(label string) Style {
	s := Style{Icon: Folder}
	if r, ok := Match(label); ok {
		s.Icon = r.Icon
		s.Category = r.Category
	}
	s.Color = Palette[Hash(label)%len(Palette)]
	if c, ok := Overrides[label]; ok {
		s.Color = c
	}
	return s
}

// Match returns the first rule whose keyword appears in label.
func Match(label string) (Rule, bool) {
	n := strings.ToLower(label)
	for _, r := range Rules {
		for _, kw := range r.Keywords {
			if strings.Contains(n, kw) {
				return r, true
			}
		}
	}
	return Rule{}, false
}

// Hash sums the UTF-16 code units of label, matching the web client.
func Hash(label string) int {
	sum := 0
	for _, u := range utf16.Encode([]rune(label)) {
		sum += int(u)
	}
	return sum
}
