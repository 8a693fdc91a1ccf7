// Package access decides which document actions an actor may perform.
package access

import (
	"errors"

	"github.com/fruitsalade/docportal/internal/metrics"
	"github.com/fruitsalade/docportal/pkg/models"
)

// ErrPermissionDenied is returned by Check when an action is not allowed.
var ErrPermissionDenied = errors.New("permission denied")

// CanPerform reports whether actor may perform action on doc.
//
// In the organization view any document may be deleted, but only Personal
// documents may be viewed or downloaded. In the self view an actor may view
// or download documents they own and delete only their Personal ones.
// Every other combination is denied.
func CanPerform(doc models.Document, action models.Action, actor models.Actor) bool {
	switch actor.View {
	case models.ViewOrganization:
		switch action {
		case models.ActionDelete:
			return true
		case models.ActionView, models.ActionDownload:
			return doc.Type == models.TypePersonal
		}
	case models.ViewSelf:
		if actor.UserID == "" || doc.OwnerID != actor.UserID {
			return false
		}
		switch action {
		case models.ActionDelete:
			return doc.Type == models.TypePersonal
		case models.ActionView, models.ActionDownload:
			return true
		}
	}
	return false
}

// Check is CanPerform with metrics, returning ErrPermissionDenied on denial.
func Check(doc models.Document, action models.Action, actor models.Actor) error {
	allowed := CanPerform(doc, action, actor)
	metrics.RecordPermissionCheck(string(action), allowed)
	if !allowed {
		return ErrPermissionDenied
	}
	return nil
}
