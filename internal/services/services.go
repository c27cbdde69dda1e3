// Package services holds the business operations. Every operation takes the
// request context, checks the caller through an Authorizer and runs its
// writes in one transaction.
package services

import (
	"context"
	"errors"
	"time"

	"github.com/diewo77/go-factures/gate"
	"github.com/diewo77/go-factures/internal/apperr"
	"gorm.io/gorm"
)

// Authorizer checks the caller carried by ctx. policy.AuthGate implements it.
type Authorizer interface {
	Authorize(ctx context.Context, action gate.Action, resourceType string, resource any) error
}

// notFound turns gorm.ErrRecordNotFound into a NotFound error and wraps
// anything else as internal.
func notFound(err error, format string, args ...any) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound(format, args...)
	}
	return apperr.Wrap(err)
}

// dayRange returns [from 00:00:00, to 23:59:59] in loc. Either end may be nil.
func dayRange(from, to *time.Time, loc *time.Location) (start, end *time.Time) {
	if from != nil {
		s := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, loc).UTC()
		start = &s
	}
	if to != nil {
		e := time.Date(to.Year(), to.Month(), to.Day(), 23, 59, 59, 0, loc).UTC()
		end = &e
	}
	return start, end
}

func monthStart(now time.Time) time.Time {
	return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
}
