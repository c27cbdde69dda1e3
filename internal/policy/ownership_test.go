package policy_test

import (
	"context"
	"testing"

	"github.com/diewo77/go-factures/gate"
	"github.com/diewo77/go-factures/internal/models"
	"github.com/diewo77/go-factures/internal/policy"
)

type notOwnable struct {
	ID uint
}

func TestOwnershipPolicy_NilResource(t *testing.T) {
	p := policy.NewOwnershipPolicy()
	ctx := context.Background()

	if !p.Can(ctx, 1, gate.ActionList, nil) {
		t.Error("expected list without resource to be allowed")
	}
	if !p.Can(ctx, 1, gate.ActionCreate, nil) {
		t.Error("expected create without resource to be allowed")
	}
}

func TestOwnershipPolicy_Owner(t *testing.T) {
	p := policy.NewOwnershipPolicy()
	ctx := context.Background()
	order := &models.Order{ClientID: 42}
	invoice := &models.Invoice{ClientID: 42}

	for _, action := range []gate.Action{gate.ActionView, gate.ActionUpdate, gate.ActionCancel} {
		if !p.Can(ctx, 42, action, order) {
			t.Errorf("owner denied %s on order", action)
		}
		if p.Can(ctx, 99, action, order) {
			t.Errorf("non-owner allowed %s on order", action)
		}
	}
	if !p.Can(ctx, 42, gate.ActionExport, invoice) {
		t.Error("owner denied export on invoice")
	}
	if p.Can(ctx, 99, gate.ActionExport, invoice) {
		t.Error("non-owner allowed export on invoice")
	}
}

func TestOwnershipPolicy_NonOwnableResource(t *testing.T) {
	p := policy.NewOwnershipPolicy()
	if p.Can(context.Background(), 1, gate.ActionView, &notOwnable{ID: 1}) {
		t.Error("expected non-Ownable resource to be denied")
	}
}

func TestAdminBypassPolicy(t *testing.T) {
	isAdmin := func(_ context.Context, userID uint) bool { return userID == 1 }
	p := policy.NewAdminBypassPolicy(policy.NewOwnershipPolicy(), isAdmin)
	ctx := context.Background()
	order := &models.Order{ClientID: 42}

	if !p.Can(ctx, 1, gate.ActionDelete, order) {
		t.Error("expected admin to bypass ownership")
	}
	if !p.Can(ctx, 42, gate.ActionView, order) {
		t.Error("expected owner to have access")
	}
	if p.Can(ctx, 99, gate.ActionView, order) {
		t.Error("expected non-owner non-admin to be denied")
	}
}
