package models

import (
	"fmt"
	"time"

	"github.com/diewo77/go-factures/internal/apperr"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// InvoiceStatus represents the status of an invoice.
type InvoiceStatus string

const (
	InvoiceStatusPending   InvoiceStatus = "EN_ATTENTE"
	InvoiceStatusPaid      InvoiceStatus = "PAYEE"
	InvoiceStatusCancelled InvoiceStatus = "ANNULEE"
)

var InvoiceStatuses = []InvoiceStatus{InvoiceStatusPending, InvoiceStatusPaid, InvoiceStatusCancelled}

func (s InvoiceStatus) Valid() bool {
	return s == InvoiceStatusPending || s == InvoiceStatusPaid || s == InvoiceStatusCancelled
}

// Invoice is issued from a confirmed order; one per order.
// Implements the Ownable interface for ownership-based authorization.
type Invoice struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	Number      string          `gorm:"size:50;uniqueIndex;not null" json:"number"`
	IssueDate   time.Time       `gorm:"not null;index" json:"issue_date"`
	Status      InvoiceStatus   `gorm:"size:20;not null;index" json:"status"`
	VATRate     decimal.Decimal `gorm:"type:decimal(5,2);not null" json:"vat_rate"`
	AmountHT    decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount_ht"`
	AmountVAT   decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount_vat"`
	AmountTTC   decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount_ttc"`
	PaymentDate *time.Time      `gorm:"index" json:"payment_date,omitempty"`
	PaymentMode PaymentMode     `gorm:"size:20" json:"payment_mode,omitempty"`
	OrderID     uint            `gorm:"uniqueIndex;not null" json:"order_id"`
	Order       *Order          `gorm:"foreignKey:OrderID" json:"order,omitempty"`
	ClientID    uint            `gorm:"index;not null" json:"client_id"`
	ClientName  string          `gorm:"size:255" json:"client_name"`
}

// GetUserID implements the Ownable interface for authorization.
func (i *Invoice) GetUserID() uint {
	return i.ClientID
}

// NewInvoiceFromOrder copies the order's totals into a pending invoice.
func NewInvoiceFromOrder(o *Order, number string, issued time.Time) *Invoice {
	inv := &Invoice{
		Number:    number,
		IssueDate: issued,
		Status:    InvoiceStatusPending,
		VATRate:   o.VATRate,
		AmountHT:  o.TotalHT,
		AmountVAT: o.TotalVAT,
		AmountTTC: o.TotalHT.Add(o.TotalVAT),
		OrderID:   o.ID,
		ClientID:  o.ClientID,
	}
	if o.Client != nil {
		inv.ClientName = o.Client.FullName()
	}
	return inv
}

// MarkPaid moves a pending invoice to paid.
func (i *Invoice) MarkPaid(mode PaymentMode, at time.Time) error {
	switch i.Status {
	case InvoiceStatusPaid:
		return apperr.InvalidState("invoice %s is already paid", i.Number)
	case InvoiceStatusCancelled:
		return apperr.InvalidState("cannot pay cancelled invoice %s", i.Number)
	}
	if !mode.Valid() {
		return apperr.InvalidState("a payment mode is required to pay invoice %s", i.Number)
	}
	i.Status = InvoiceStatusPaid
	i.PaymentMode = mode
	i.PaymentDate = &at
	return nil
}

// Cancel moves a pending invoice to cancelled.
func (i *Invoice) Cancel() error {
	switch i.Status {
	case InvoiceStatusPaid:
		return apperr.InvalidState("invoice %s is already paid", i.Number)
	case InvoiceStatusCancelled:
		return apperr.InvalidState("invoice %s is already cancelled", i.Number)
	}
	i.Status = InvoiceStatusCancelled
	return nil
}

// GenerateInvoiceNumber generates the next invoice number for the year.
// Format: FAC-YYYY-NNNN (e.g., FAC-2025-0001)
func GenerateInvoiceNumber(db *gorm.DB, year int, loc *time.Location) (string, error) {
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, loc)
	var count int64
	err := db.Model(&Invoice{}).
		Where("issue_date >= ? AND issue_date < ?", start.UTC(), start.AddDate(1, 0, 0).UTC()).
		Count(&count).Error
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("FAC-%d-%04d", year, count+1), nil
}
