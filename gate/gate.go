// Package gate is a small capability checker: a subject's profile grants
// "resource:action" permissions, and per-resource policies decide on a
// concrete resource (ownership). It knows nothing about the domain models.
//
// The subject type is generic; the application uses uint user ids.
package gate

import "errors"

// Action describes the kind of operation a subject wants to perform.
type Action string

const (
	ActionView   Action = "view"
	ActionList   Action = "list"
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
	ActionCancel Action = "cancel"
	ActionPay    Action = "pay"
	ActionExport Action = "export"
	ActionStatus Action = "status"
)

var (
	// ErrUnauthorized means the subject is unknown or has no profile.
	ErrUnauthorized = errors.New("gate: unauthorized")
	// ErrForbidden means the subject is known but not allowed.
	ErrForbidden = errors.New("gate: forbidden")
)
