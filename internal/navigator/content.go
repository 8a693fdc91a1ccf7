package navigator

import (
	"encoding/json"

	"github.com/fruitsalade/docportal/pkg/models"
)

// Kind tags a Content value.
type Kind string

const (
	KindFolders Kind = "folders"
	KindUsers   Kind = "users"
	KindFiles   Kind = "files"
	KindEmpty   Kind = "empty"
	KindError   Kind = "error"
)

// Content is what the navigator shows at a position. Exactly the fields
// belonging to Kind are set.
type Content struct {
	Kind     Kind              `json:"kind"`
	Labels   []string          `json:"labels,omitempty"`
	NextType SegmentType       `json:"next_type,omitempty"`
	Users    []models.Employee `json:"users,omitempty"`
	Files    []models.Document `json:"files,omitempty"`
	Reason   string            `json:"reason,omitempty"`
}

// MarshalJSON always writes the list belonging to Kind, so an empty
// result arrives as [] rather than a missing key.
func (c Content) MarshalJSON() ([]byte, error) {
	type content Content
	switch c.Kind {
	case KindFolders:
		labels := c.Labels
		if labels == nil {
			labels = []string{}
		}
		return json.Marshal(struct {
			content
			Labels []string `json:"labels"`
		}{content(c), labels})
	case KindUsers:
		users := c.Users
		if users == nil {
			users = []models.Employee{}
		}
		return json.Marshal(struct {
			content
			Users []models.Employee `json:"users"`
		}{content(c), users})
	case KindFiles:
		files := c.Files
		if files == nil {
			files = []models.Document{}
		}
		return json.Marshal(struct {
			content
			Files []models.Document `json:"files"`
		}{content(c), files})
	}
	return json.Marshal(content(c))
}

// Folders lists child folders of type next.
func Folders(labels []string, next SegmentType) Content {
	return Content{Kind: KindFolders, Labels: labels, NextType: next}
}

// Users lists employees.
func Users(list []models.Employee) Content {
	return Content{Kind: KindUsers, Users: list}
}

// Files lists documents.
func Files(list []models.Document) Content {
	return Content{Kind: KindFiles, Files: list}
}

// Empty is a valid position with nothing under it.
func Empty(reason string) Content {
	return Content{Kind: KindEmpty, Reason: reason}
}

// Failure reports a position that cannot be resolved.
func Failure(reason string) Content {
	return Content{Kind: KindError, Reason: reason}
}

// IsEmpty reports whether there is nothing to show.
func (c Content) IsEmpty() bool {
	switch c.Kind {
	case KindFolders:
		return len(c.Labels) == 0
	case KindUsers:
		return len(c.Users) == 0
	case KindFiles:
		return len(c.Files) == 0
	}
	return true
}

// ViewMode is the layout hint for clients: files render as a list,
// everything else as a grid.
func (c Content) ViewMode() string {
	if c.Kind == KindFiles {
		return "list"
	}
	return "grid"
}
