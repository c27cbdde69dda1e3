package gate

import "context"

// Policy decides whether user may perform action on a concrete resource.
// resource is nil for list/create checks.
type Policy[U any] interface {
	Can(ctx context.Context, user U, action Action, resource any) bool
}
