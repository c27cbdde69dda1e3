package gate_test

import (
	"testing"

	"github.com/diewo77/go-factures/gate"
)

func TestPermission_NewPermission(t *testing.T) {
	if perm := gate.NewPermission("order", gate.ActionCancel); perm != "order:cancel" {
		t.Errorf("expected 'order:cancel', got '%s'", perm)
	}
}

func TestPermission_Parse(t *testing.T) {
	res, act := gate.Permission("invoice:pay").Parse()
	if res != "invoice" || act != gate.ActionPay {
		t.Errorf("unexpected parse result %q %q", res, act)
	}
	res, act = gate.Permission("invalid").Parse()
	if res != "" || act != "" {
		t.Errorf("expected empty strings, got '%s' and '%s'", res, act)
	}
}

func TestPermission_Matches(t *testing.T) {
	tests := []struct {
		granted   gate.Permission
		requested gate.Permission
		want      bool
	}{
		{"order:view", "order:view", true},
		{"order:view", "order:update", false},
		{"order:view", "invoice:view", false},
		{"order:*", "order:cancel", true},
		{"order:*", "invoice:cancel", false},
		{gate.PermissionSuperAdmin, "invoice:export", true},
		{"invalid", "invalid", true},
		{"invalid", "order:view", false},
	}
	for _, tt := range tests {
		if got := tt.granted.Matches(tt.requested); got != tt.want {
			t.Errorf("%s.Matches(%s) = %v, want %v", tt.granted, tt.requested, got, tt.want)
		}
	}
}
