package models

import (
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/diewo77/go-factures/internal/apperr"
	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestOrder_GetUserID(t *testing.T) {
	o := &Order{ClientID: 42}
	if got := o.GetUserID(); got != 42 {
		t.Errorf("GetUserID() = %d, want 42", got)
	}
}

func TestInvoice_GetUserID(t *testing.T) {
	inv := &Invoice{ClientID: 7}
	if got := inv.GetUserID(); got != 7 {
		t.Errorf("GetUserID() = %d, want 7", got)
	}
}

func TestOrder_Recalculate(t *testing.T) {
	tests := []struct {
		name    string
		lines   []OrderLine
		vatRate string
		ht      string
		vat     string
		ttc     string
	}{
		{"empty order", nil, "20", "0", "0", "0"},
		{"2 x 10.00 at 20%", []OrderLine{{Quantity: 2, UnitPrice: dec("10.00")}}, "20", "20", "4", "24"},
		{"mixed lines at 19%", []OrderLine{
			{Quantity: 3, UnitPrice: dec("1.10")},
			{Quantity: 1, UnitPrice: dec("0.20")},
		}, "19", "3.5", "0.67", "4.17"},
		{"rounding half up on VAT", []OrderLine{{Quantity: 1, UnitPrice: dec("0.05")}}, "10", "0.05", "0.01", "0.06"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := &Order{VATRate: dec(tt.vatRate), Lines: tt.lines}
			o.Recalculate()
			if !o.TotalHT.Equal(dec(tt.ht)) {
				t.Errorf("HT = %s, want %s", o.TotalHT, tt.ht)
			}
			if !o.TotalVAT.Equal(dec(tt.vat)) {
				t.Errorf("VAT = %s, want %s", o.TotalVAT, tt.vat)
			}
			if !o.TotalTTC.Equal(dec(tt.ttc)) {
				t.Errorf("TTC = %s, want %s", o.TotalTTC, tt.ttc)
			}
			sum := decimal.Zero
			for _, l := range o.Lines {
				sum = sum.Add(l.Subtotal)
			}
			if !sum.Equal(o.TotalHT) {
				t.Errorf("lines sum %s != total %s", sum, o.TotalHT)
			}
			if !o.TotalHT.Add(o.TotalVAT).Equal(o.TotalTTC) {
				t.Errorf("TTC != HT + VAT")
			}
		})
	}
}

func TestOrderStatus_Transitions(t *testing.T) {
	tests := []struct {
		from, to OrderStatus
		want     bool
	}{
		{OrderStatusPending, OrderStatusConfirmed, true},
		{OrderStatusPending, OrderStatusCancelled, true},
		{OrderStatusPending, OrderStatusPaid, false},
		{OrderStatusConfirmed, OrderStatusPreparing, true},
		{OrderStatusPreparing, OrderStatusReady, true},
		{OrderStatusReady, OrderStatusCancelled, false},
		{OrderStatusReady, OrderStatusDelivering, true},
		{OrderStatusDelivering, OrderStatusDelivered, true},
		{OrderStatusDelivered, OrderStatusPaid, true},
		{OrderStatusPaid, OrderStatusCancelled, false},
		{OrderStatusCancelled, OrderStatusPending, false},
	}
	for _, tt := range tests {
		if got := tt.from.CanTransitionTo(tt.to); got != tt.want {
			t.Errorf("%s -> %s = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
	for _, s := range OrderStatuses {
		if s.Terminal() != (len(orderTransitions[s]) == 0) {
			t.Errorf("%s: terminal flag disagrees with transition table", s)
		}
	}
}

func TestOrder_TransitionTo(t *testing.T) {
	o := &Order{Number: "CMD-1", Status: OrderStatusPending}
	if err := o.TransitionTo(OrderStatusConfirmed); !errors.Is(err, apperr.ErrInvalidState) {
		t.Fatalf("confirming an empty order should fail, got %v", err)
	}
	o.Lines = []OrderLine{{Quantity: 1, UnitPrice: dec("5")}}
	if err := o.TransitionTo(OrderStatusConfirmed); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := o.TransitionTo("SHIPPED"); !errors.Is(err, apperr.ErrInvalidState) {
		t.Fatalf("unknown status should fail, got %v", err)
	}
}

func TestInvoice_StateMachine(t *testing.T) {
	now := time.Now()

	inv := &Invoice{Number: "FAC-1", Status: InvoiceStatusPending}
	if err := inv.MarkPaid("", now); !errors.Is(err, apperr.ErrInvalidState) {
		t.Fatalf("paying without a mode should fail, got %v", err)
	}
	if err := inv.MarkPaid(PaymentCard, now); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inv.Status != InvoiceStatusPaid || inv.PaymentDate == nil || inv.PaymentMode != PaymentCard {
		t.Fatalf("unexpected invoice %+v", inv)
	}
	if err := inv.MarkPaid(PaymentCash, now); !errors.Is(err, apperr.ErrInvalidState) {
		t.Fatalf("double payment should fail, got %v", err)
	}
	if err := inv.Cancel(); !errors.Is(err, apperr.ErrInvalidState) {
		t.Fatalf("cancelling a paid invoice should fail, got %v", err)
	}

	cancelled := &Invoice{Number: "FAC-2", Status: InvoiceStatusPending}
	if err := cancelled.Cancel(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := cancelled.MarkPaid(PaymentCash, now); !errors.Is(err, apperr.ErrInvalidState) {
		t.Fatalf("paying a cancelled invoice should fail, got %v", err)
	}
}

func TestNewInvoiceFromOrder(t *testing.T) {
	o := &Order{ID: 5, ClientID: 9, VATRate: dec("20"), Client: &User{FirstName: "Amira", LastName: "Ben Ali"},
		Lines: []OrderLine{{Quantity: 2, UnitPrice: dec("10.00")}}}
	o.Recalculate()
	inv := NewInvoiceFromOrder(o, "FAC-2025-0001", time.Now())
	if inv.Status != InvoiceStatusPending || inv.OrderID != 5 || inv.ClientID != 9 {
		t.Fatalf("unexpected invoice %+v", inv)
	}
	if inv.ClientName != "Amira Ben Ali" {
		t.Errorf("client name = %q", inv.ClientName)
	}
	if !inv.AmountTTC.Equal(inv.AmountHT.Add(inv.AmountVAT)) || !inv.AmountTTC.Equal(dec("24")) {
		t.Errorf("unexpected amounts %s %s %s", inv.AmountHT, inv.AmountVAT, inv.AmountTTC)
	}
}

func TestNewOrderNumber(t *testing.T) {
	n := NewOrderNumber(time.Date(2025, 3, 9, 10, 0, 0, 0, time.UTC))
	if !regexp.MustCompile(`^CMD-20250309-[0-9A-F]{8}$`).MatchString(n) {
		t.Fatalf("unexpected order number %q", n)
	}
}

func TestParsePaymentMode(t *testing.T) {
	if m, ok := ParsePaymentMode(" carte_bancaire "); !ok || m != PaymentCard {
		t.Fatalf("expected CARTE_BANCAIRE, got %q %v", m, ok)
	}
	if _, ok := ParsePaymentMode("BITCOIN"); ok {
		t.Fatalf("unknown mode accepted")
	}
}

func TestUser_FullName(t *testing.T) {
	if got := (&User{Email: "x@y.z"}).FullName(); got != "x@y.z" {
		t.Errorf("FullName() = %q", got)
	}
	if got := (&User{FirstName: "Sami", LastName: "Trabelsi"}).FullName(); got != "Sami Trabelsi" {
		t.Errorf("FullName() = %q", got)
	}
}
