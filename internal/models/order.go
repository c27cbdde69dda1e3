package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/diewo77/go-factures/internal/apperr"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderStatus is the fulfilment state of an order.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "EN_ATTENTE"
	OrderStatusConfirmed  OrderStatus = "CONFIRMEE"
	OrderStatusPreparing  OrderStatus = "EN_PREPARATION"
	OrderStatusReady      OrderStatus = "PRETE"
	OrderStatusDelivering OrderStatus = "EN_LIVRAISON"
	OrderStatusDelivered  OrderStatus = "LIVREE"
	OrderStatusPaid       OrderStatus = "PAYEE"
	OrderStatusCancelled  OrderStatus = "ANNULEE"
)

// orderTransitions lists the legal targets of each status. Terminal
// statuses have no entry.
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:    {OrderStatusConfirmed, OrderStatusCancelled},
	OrderStatusConfirmed:  {OrderStatusPreparing, OrderStatusCancelled},
	OrderStatusPreparing:  {OrderStatusReady, OrderStatusCancelled},
	OrderStatusReady:      {OrderStatusDelivering},
	OrderStatusDelivering: {OrderStatusDelivered},
	OrderStatusDelivered:  {OrderStatusPaid},
}

// OrderStatuses lists every status in lifecycle order.
var OrderStatuses = []OrderStatus{
	OrderStatusPending, OrderStatusConfirmed, OrderStatusPreparing, OrderStatusReady,
	OrderStatusDelivering, OrderStatusDelivered, OrderStatusPaid, OrderStatusCancelled,
}

func (s OrderStatus) Valid() bool {
	for _, v := range OrderStatuses {
		if v == s {
			return true
		}
	}
	return false
}

func (s OrderStatus) Terminal() bool {
	return s == OrderStatusPaid || s == OrderStatusCancelled
}

func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, t := range orderTransitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

// PaymentMode is how an order or invoice was settled. Empty means none yet.
type PaymentMode string

const (
	PaymentCash     PaymentMode = "ESPECES"
	PaymentCard     PaymentMode = "CARTE_BANCAIRE"
	PaymentCheque   PaymentMode = "CHEQUE"
	PaymentTransfer PaymentMode = "VIREMENT"
)

var PaymentModes = []PaymentMode{PaymentCash, PaymentCard, PaymentCheque, PaymentTransfer}

func (m PaymentMode) Valid() bool {
	for _, v := range PaymentModes {
		if v == m {
			return true
		}
	}
	return false
}

// ParsePaymentMode accepts a mode case-insensitively.
func ParsePaymentMode(s string) (PaymentMode, bool) {
	m := PaymentMode(strings.ToUpper(strings.TrimSpace(s)))
	return m, m.Valid()
}

var hundred = decimal.NewFromInt(100)

// Order is a client's basket and its fulfilment state.
type Order struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	CreatedAt   time.Time       `gorm:"index" json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	Number      string          `gorm:"size:50;uniqueIndex;not null" json:"number"`
	Status      OrderStatus     `gorm:"size:20;not null;index" json:"status"`
	PaymentMode PaymentMode     `gorm:"size:20" json:"payment_mode,omitempty"`
	ClientID    uint            `gorm:"index;not null" json:"client_id"`
	Client      *User           `gorm:"foreignKey:ClientID" json:"client,omitempty"`
	VATRate     decimal.Decimal `gorm:"type:decimal(5,2);not null" json:"vat_rate"` // percent
	TotalHT     decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"total_ht"`
	TotalVAT    decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"total_vat"`
	TotalTTC    decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"total_ttc"`
	Lines       []OrderLine     `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"lines"`
}

// GetUserID implements the Ownable interface for authorization.
func (o *Order) GetUserID() uint {
	return o.ClientID
}

// Editable reports whether lines may still change.
func (o *Order) Editable() bool {
	return o.Status == OrderStatusPending
}

// LineFor returns the line holding productID, or nil.
func (o *Order) LineFor(productID uint) *OrderLine {
	for i := range o.Lines {
		if o.Lines[i].ProductID == productID {
			return &o.Lines[i]
		}
	}
	return nil
}

// Recalculate refreshes line subtotals and order totals from the lines.
func (o *Order) Recalculate() {
	ht := decimal.Zero
	for i := range o.Lines {
		o.Lines[i].Recalculate()
		ht = ht.Add(o.Lines[i].Subtotal)
	}
	o.TotalHT = ht
	o.TotalVAT = VATAmount(ht, o.VATRate)
	o.TotalTTC = o.TotalHT.Add(o.TotalVAT)
}

// TransitionTo applies a status change if the table allows it.
func (o *Order) TransitionTo(next OrderStatus) error {
	if !next.Valid() {
		return apperr.InvalidState("unknown order status %q", next)
	}
	if !o.Status.CanTransitionTo(next) {
		return apperr.InvalidState("order %s cannot go from %s to %s", o.Number, o.Status, next)
	}
	if next == OrderStatusConfirmed && len(o.Lines) == 0 {
		return apperr.InvalidState("order %s has no lines", o.Number)
	}
	o.Status = next
	return nil
}

// VATAmount returns ht × rate%, rounded to cents.
func VATAmount(ht, ratePercent decimal.Decimal) decimal.Decimal {
	return ht.Mul(ratePercent).Div(hundred).Round(2)
}

// NewOrderNumber returns CMD-YYYYMMDD-XXXXXXXX.
func NewOrderNumber(now time.Time) string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return fmt.Sprintf("CMD-%s-%s", now.Format("20060102"), strings.ToUpper(id[:8]))
}

// OrderLine is one product and quantity within an order. The unit price and
// product name are captured when the product is added.
type OrderLine struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	OrderID     uint            `gorm:"index;not null" json:"order_id"`
	ProductID   uint            `gorm:"index;not null" json:"product_id"`
	Product     *Product        `gorm:"foreignKey:ProductID" json:"product,omitempty"`
	ProductName string          `gorm:"size:255;not null" json:"product_name"`
	Quantity    int             `gorm:"not null" json:"quantity"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"unit_price"`
	Subtotal    decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"subtotal"`
}

func (l *OrderLine) Recalculate() {
	l.Subtotal = l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}
