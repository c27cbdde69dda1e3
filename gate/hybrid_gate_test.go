package gate_test

import (
	"context"
	"errors"
	"testing"

	"github.com/diewo77/go-factures/gate"
)

type ownedOrder struct {
	ClientID uint
}

var ownerPolicy = policyFunc(func(_ context.Context, userID uint, _ gate.Action, resource any) bool {
	o, ok := resource.(*ownedOrder)
	return ok && o.ClientID == userID
})

func newClientGate() *gate.HybridGate[uint] {
	client := &memProfile{id: 2, name: "client", perms: []gate.Permission{
		gate.NewPermission("order", gate.ActionView),
		gate.NewPermission("order", gate.ActionUpdate),
	}}
	admin := &memProfile{id: 1, name: "admin", perms: []gate.Permission{gate.PermissionSuperAdmin}}
	g := gate.NewHybridGate[uint](memResolver{10: client, 11: client, 1: admin})
	g.Register("order", ownerPolicy)
	return g
}

func TestHybridGate_ProfileOnly(t *testing.T) {
	g := newClientGate()
	ctx := context.Background()

	if err := g.Authorize(ctx, 10, gate.ActionView, "order", nil); err != nil {
		t.Errorf("expected allowed, got %v", err)
	}
	if err := g.Authorize(ctx, 10, gate.ActionStatus, "order", nil); !errors.Is(err, gate.ErrForbidden) {
		t.Errorf("missing permission should be forbidden, got %v", err)
	}
	if err := g.Authorize(ctx, 1, gate.ActionDelete, "product", nil); err != nil {
		t.Errorf("superadmin should have any permission, got %v", err)
	}
	if err := g.Authorize(ctx, 99, gate.ActionView, "order", nil); !errors.Is(err, gate.ErrUnauthorized) {
		t.Errorf("subject without profile should be unauthorized, got %v", err)
	}
	if err := g.Authorize(ctx, 0, gate.ActionView, "order", nil); !errors.Is(err, gate.ErrUnauthorized) {
		t.Errorf("zero subject should be unauthorized, got %v", err)
	}
}

func TestHybridGate_WithOwnershipPolicy(t *testing.T) {
	g := newClientGate()
	ctx := context.Background()
	order := &ownedOrder{ClientID: 10}

	if err := g.Authorize(ctx, 10, gate.ActionUpdate, "order", order); err != nil {
		t.Errorf("owner should be allowed, got %v", err)
	}
	if err := g.Authorize(ctx, 11, gate.ActionUpdate, "order", order); !errors.Is(err, gate.ErrForbidden) {
		t.Errorf("non-owner should be forbidden, got %v", err)
	}
	if err := g.Authorize(ctx, 10, gate.ActionDelete, "order", order); !errors.Is(err, gate.ErrForbidden) {
		t.Errorf("ownership does not grant missing permissions, got %v", err)
	}
}

func TestHybridGate_Profile(t *testing.T) {
	g := newClientGate()
	ctx := context.Background()

	p, err := g.Profile(ctx, 10)
	if err != nil || p.Name() != "client" || len(p.Permissions()) != 2 {
		t.Fatalf("unexpected profile %v %v", p, err)
	}
	if _, err := g.Profile(ctx, 0); !errors.Is(err, gate.ErrUnauthorized) {
		t.Error("Profile should reject the zero subject")
	}
	if _, err := g.Profile(ctx, 99); !errors.Is(err, gate.ErrUnauthorized) {
		t.Error("Profile should reject subjects without a profile")
	}
}
