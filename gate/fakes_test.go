package gate_test

import (
	"context"

	"github.com/diewo77/go-factures/gate"
)

// memProfile is an in-memory gate.Profile.
type memProfile struct {
	id    uint
	name  string
	perms []gate.Permission
}

func (p *memProfile) ID() uint                       { return p.id }
func (p *memProfile) Name() string                   { return p.name }
func (p *memProfile) Permissions() []gate.Permission { return p.perms }

func (p *memProfile) HasPermission(requested gate.Permission) bool {
	for _, perm := range p.perms {
		if perm.Matches(requested) {
			return true
		}
	}
	return false
}

type memResolver map[uint]gate.Profile

func (r memResolver) Resolve(_ context.Context, user uint) (gate.Profile, error) {
	return r[user], nil
}

type policyFunc func(ctx context.Context, user uint, action gate.Action, resource any) bool

func (f policyFunc) Can(ctx context.Context, user uint, action gate.Action, resource any) bool {
	return f(ctx, user, action, resource)
}
