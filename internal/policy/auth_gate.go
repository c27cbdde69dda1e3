// Package policy wires the gate to the database: profiles come from the
// users' profile rows and orders and invoices are owner-scoped with an admin
// bypass.
package policy

import (
	"context"
	"errors"
	"net/http"

	"github.com/diewo77/go-factures/auth"
	"github.com/diewo77/go-factures/gate"
	"github.com/diewo77/go-factures/httpx"
	"github.com/diewo77/go-factures/internal/apperr"
	"gorm.io/gorm"
)

// Owner-scoped resource types.
const (
	ResourceOrder    = "order"
	ResourceInvoice  = "invoice"
	ResourceProduct  = "product"
	ResourceCategory = "category"
)

// AuthGate is the application's single authorization point.
type AuthGate struct {
	Gate     *gate.HybridGate[uint]
	Resolver *DBProfileResolver
}

// NewAuthGate builds the gate and registers the ownership policies for
// orders and invoices.
func NewAuthGate(db *gorm.DB) *AuthGate {
	resolver := NewDBProfileResolver(db)
	ag := &AuthGate{
		Gate:     gate.NewHybridGate[uint](resolver),
		Resolver: resolver,
	}
	owned := NewAdminBypassPolicy(NewOwnershipPolicy(), ag.IsAdmin)
	ag.RegisterPolicy(ResourceOrder, owned)
	ag.RegisterPolicy(ResourceInvoice, owned)
	return ag
}

func (ag *AuthGate) RegisterPolicy(resourceType string, p gate.Policy[uint]) {
	ag.Gate.Register(resourceType, p)
}

// Authorize checks the caller found in ctx. Gate errors are translated to
// apperr Unauthorized and Forbidden.
func (ag *AuthGate) Authorize(ctx context.Context, action gate.Action, resourceType string, resource any) error {
	userID, _ := auth.UserIDFromContext(ctx)
	err := ag.Gate.Authorize(ctx, userID, action, resourceType, resource)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gate.ErrUnauthorized):
		return apperr.Unauthorized("authentication required")
	default:
		return apperr.Forbidden("not allowed to %s this %s", action, resourceType)
	}
}

// IsAdmin reports whether the user's profile grants "*:*".
func (ag *AuthGate) IsAdmin(ctx context.Context, userID uint) bool {
	profile, err := ag.Gate.Profile(ctx, userID)
	if err != nil {
		return false
	}
	for _, p := range profile.Permissions() {
		if p == gate.PermissionSuperAdmin {
			return true
		}
	}
	return false
}

// RequirePermission answers 401/403 unless the caller's profile grants resourceType:action.
func (ag *AuthGate) RequirePermission(resourceType string, action gate.Action) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := ag.Authorize(r.Context(), action, resourceType, nil); err != nil {
				httpx.Error(w, r, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAdmin only lets superadmin profiles through.
func (ag *AuthGate) RequireAdmin() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := auth.UserIDFromContext(r.Context())
			if !ok {
				httpx.Error(w, r, apperr.Unauthorized("authentication required"))
				return
			}
			if !ag.IsAdmin(r.Context(), userID) {
				httpx.Error(w, r, apperr.Forbidden("admin access required"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
