// Package models contains the record types shared by the server, the
// navigator and the HTTP client.
package models

import "time"

// Fallback grouping keys for employees with no department or location.
const (
	UnassignedDepartment = "Unassigned"
	UnknownLocation      = "Unknown Location"
)

// Well-known document category labels.
const (
	TypeSalarySlip      = "Salary Slip"
	TypePersonal        = "Personal"
	TypeMedicalReport   = "Medical Report"
	TypeAppraisalLetter = "Appraisal Letter"
	TypeResources       = "Resources"
)

// Employee status values. Deleted employees never reach the navigator.
const (
	StatusActive   = "active"
	StatusInactive = "inactive"
	StatusPending  = "pending"
	StatusDeleted  = "deleted"
)

// Months lists calendar month names in order; Months[0] is January.
var Months = []string{
	"January", "February", "March", "April", "May", "June",
	"July", "August", "September", "October", "November", "December",
}

// MonthIndex returns the 1-based month number for a month name, or 0.
func MonthIndex(name string) int {
	for i, m := range Months {
		if m == name {
			return i + 1
		}
	}
	return 0
}

// Employee is a person record as seen by the navigator.
type Employee struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Email      string `json:"email,omitempty"`
	Department string `json:"department,omitempty"`
	Location   string `json:"location,omitempty"`
	Status     string `json:"status,omitempty"`
}

// DepartmentKey returns the department used for grouping.
func (e Employee) DepartmentKey() string {
	if e.Department == "" {
		return UnassignedDepartment
	}
	return e.Department
}

// LocationKey returns the location used for grouping.
func (e Employee) LocationKey() string {
	if e.Location == "" {
		return UnknownLocation
	}
	return e.Location
}

// Document is an uploaded employee document. OwnerID may be empty for
// documents that are not assigned to anybody.
type Document struct {
	ID         string    `json:"id"`
	OwnerID    string    `json:"owner_id,omitempty"`
	Name       string    `json:"name"`
	Type       string    `json:"type,omitempty"`
	UploadDate time.Time `json:"upload_date"`
	FileType   string    `json:"file_type,omitempty"`
	Size       int64     `json:"size,omitempty"`
	StorageKey string    `json:"storage_key,omitempty"`
	URL        string    `json:"url,omitempty"`
}

// Action is something a user can do with a document.
type Action string

const (
	ActionView     Action = "view"
	ActionDownload Action = "download"
	ActionDelete   Action = "delete"
)

// View identifies which portal surface an actor is using.
type View string

const (
	ViewOrganization View = "organization"
	ViewSelf         View = "self"
)

// Actor is the caller on whose behalf an action is attempted.
type Actor struct {
	UserID  string `json:"user_id"`
	IsAdmin bool   `json:"is_admin"`
	View    View   `json:"view"`
}
