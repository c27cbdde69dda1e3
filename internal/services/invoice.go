package services

import (
	"context"
	"errors"
	"time"

	"github.com/diewo77/go-factures/gate"
	"github.com/diewo77/go-factures/internal/apperr"
	"github.com/diewo77/go-factures/internal/models"
	"github.com/diewo77/go-factures/internal/policy"
	"github.com/diewo77/go-factures/validation"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const dashboardRecent = 5

// InvoiceFilter narrows invoice listings. Nil fields do not constrain.
// From and To are calendar days, both inclusive.
type InvoiceFilter struct {
	Status   models.InvoiceStatus
	From     *time.Time
	To       *time.Time
	ClientID *uint
}

type Stats struct {
	Total            int64           `json:"total"`
	Pending          int64           `json:"pending"`
	Paid             int64           `json:"paid"`
	Cancelled        int64           `json:"cancelled"`
	RevenueThisMonth decimal.Decimal `json:"revenue_this_month"`
	RevenueTotal     decimal.Decimal `json:"revenue_total"`
}

type Dashboard struct {
	Stats              Stats            `json:"stats"`
	PendingCount       int              `json:"pending_count"`
	RecentPending      []models.Invoice `json:"recent_pending"`
	PaidThisMonthCount int              `json:"paid_this_month_count"`
	RecentPaid         []models.Invoice `json:"recent_paid"`
}

type InvoiceService struct {
	db   *gorm.DB
	gate Authorizer
	loc  *time.Location
	now  func() time.Time
}

func NewInvoiceService(db *gorm.DB, authz Authorizer) *InvoiceService {
	return &InvoiceService{db: db, gate: authz, loc: time.UTC, now: time.Now}
}

// GenerateForOrder issues the invoice of an order explicitly. A pending order
// is confirmed first so its lines can no longer drift from the invoice.
func (s *InvoiceService) GenerateForOrder(ctx context.Context, orderID uint) (*models.Invoice, error) {
	if err := s.gate.Authorize(ctx, gate.ActionCreate, policy.ResourceInvoice, nil); err != nil {
		return nil, err
	}
	var inv *models.Invoice
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		o, err := loadOrder(tx, orderID)
		if err != nil {
			return err
		}
		if o.Editable() {
			if err := o.TransitionTo(models.OrderStatusConfirmed); err != nil {
				return err
			}
			if err := saveOrder(tx, o); err != nil {
				return err
			}
		}
		inv, err = s.generate(tx, o, false)
		return err
	})
	if err != nil {
		return nil, apperr.Wrap(err)
	}
	return inv, nil
}

// generate creates the pending invoice of o. With skipExisting an existing
// invoice is returned as is instead of failing.
func (s *InvoiceService) generate(tx *gorm.DB, o *models.Order, skipExisting bool) (*models.Invoice, error) {
	var existing models.Invoice
	err := tx.Where("order_id = ?", o.ID).First(&existing).Error
	switch {
	case err == nil && skipExisting:
		return &existing, nil
	case err == nil:
		return nil, apperr.InvalidState("order %s already has invoice %s", o.Number, existing.Number)
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, err
	}
	if len(o.Lines) == 0 {
		return nil, apperr.InvalidState("order %s has no lines", o.Number)
	}
	if o.Status == models.OrderStatusCancelled {
		return nil, apperr.InvalidState("order %s is cancelled", o.Number)
	}
	if o.Editable() {
		return nil, apperr.InvalidState("order %s must be confirmed before it is invoiced", o.Number)
	}
	now := s.now().In(s.loc)
	number, err := models.GenerateInvoiceNumber(tx, now.Year(), s.loc)
	if err != nil {
		return nil, err
	}
	o.Recalculate()
	inv := models.NewInvoiceFromOrder(o, number, now.UTC())
	if err := tx.Omit(clause.Associations).Create(inv).Error; err != nil {
		return nil, err
	}
	return inv, nil
}

func (s *InvoiceService) pendingFor(tx *gorm.DB, orderID uint) (*models.Invoice, error) {
	var inv models.Invoice
	err := tx.Where("order_id = ? AND status = ?", orderID, models.InvoiceStatusPending).First(&inv).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

func (s *InvoiceService) cancelPending(tx *gorm.DB, orderID uint) error {
	inv, err := s.pendingFor(tx, orderID)
	if err != nil || inv == nil {
		return err
	}
	if err := inv.Cancel(); err != nil {
		return err
	}
	return tx.Omit(clause.Associations).Save(inv).Error
}

// payPending settles the pending invoice of the order. An order can only be
// paid when its invoice is pending or already paid.
func (s *InvoiceService) payPending(tx *gorm.DB, orderID uint, mode models.PaymentMode) error {
	inv, err := s.pendingFor(tx, orderID)
	if err != nil {
		return err
	}
	if inv == nil {
		var existing models.Invoice
		err := tx.Where("order_id = ?", orderID).First(&existing).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return apperr.InvalidState("order %d has no invoice to settle", orderID)
		case err != nil:
			return err
		case existing.Status != models.InvoiceStatusPaid:
			return apperr.InvalidState("invoice %s is %s; the order cannot be paid", existing.Number, existing.Status)
		}
		return nil
	}
	if err := inv.MarkPaid(mode, s.now().UTC()); err != nil {
		return err
	}
	return tx.Omit(clause.Associations).Save(inv).Error
}

// applyFilter adds the conditions of f to q.
func (s *InvoiceService) applyFilter(q *gorm.DB, f InvoiceFilter) *gorm.DB {
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	start, end := dayRange(f.From, f.To, s.loc)
	if start != nil {
		q = q.Where("issue_date >= ?", *start)
	}
	if end != nil {
		q = q.Where("issue_date <= ?", *end)
	}
	if f.ClientID != nil {
		q = q.Where("client_id = ?", *f.ClientID)
	}
	return q
}

// ListInvoices applies every set filter, oldest issue date first.
func (s *InvoiceService) ListInvoices(ctx context.Context, f InvoiceFilter) ([]models.Invoice, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, apperr.Invalid(validation.Violations{"status": "invalid_value"})
	}
	if err := s.gate.Authorize(ctx, gate.ActionList, policy.ResourceInvoice, nil); err != nil {
		return nil, err
	}
	var invoices []models.Invoice
	if err := s.applyFilter(s.db.WithContext(ctx), f).Order("issue_date").Order("id").Find(&invoices).Error; err != nil {
		return nil, apperr.Wrap(err)
	}
	return invoices, nil
}

func (s *InvoiceService) load(ctx context.Context, id uint) (*models.Invoice, error) {
	var inv models.Invoice
	err := s.db.WithContext(ctx).
		Preload("Order.Lines", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Preload("Order.Client").
		First(&inv, id).Error
	if err != nil {
		return nil, notFound(err, "invoice %d not found", id)
	}
	return &inv, nil
}

func (s *InvoiceService) GetInvoice(ctx context.Context, id uint) (*models.Invoice, error) {
	inv, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.gate.Authorize(ctx, gate.ActionView, policy.ResourceInvoice, inv); err != nil {
		return nil, err
	}
	return inv, nil
}

// GetClientInvoice is GetInvoice scoped to clientID: another client's invoice is Forbidden.
func (s *InvoiceService) GetClientInvoice(ctx context.Context, clientID, id uint) (*models.Invoice, error) {
	inv, err := s.GetInvoice(ctx, id)
	if err != nil {
		return nil, err
	}
	if inv.ClientID != clientID {
		return nil, apperr.Forbidden("invoice %d does not belong to you", id)
	}
	return inv, nil
}

// ClientHistory returns the client's invoices, newest first.
func (s *InvoiceService) ClientHistory(ctx context.Context, clientID uint) ([]models.Invoice, error) {
	if err := s.gate.Authorize(ctx, gate.ActionList, policy.ResourceInvoice, &models.Invoice{ClientID: clientID}); err != nil {
		return nil, err
	}
	var invoices []models.Invoice
	err := s.db.WithContext(ctx).Where("client_id = ?", clientID).
		Order("issue_date DESC").Order("id DESC").
		Find(&invoices).Error
	if err != nil {
		return nil, apperr.Wrap(err)
	}
	return invoices, nil
}

func (s *InvoiceService) update(ctx context.Context, id uint, action gate.Action, fn func(inv *models.Invoice) error) (*models.Invoice, error) {
	var out models.Invoice
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&out, id).Error; err != nil {
			return notFound(err, "invoice %d not found", id)
		}
		if err := s.gate.Authorize(ctx, action, policy.ResourceInvoice, &out); err != nil {
			return err
		}
		if err := fn(&out); err != nil {
			return err
		}
		return tx.Omit(clause.Associations).Save(&out).Error
	})
	if err != nil {
		return nil, apperr.Wrap(err)
	}
	return &out, nil
}

// MarkPaid settles a pending invoice with mode, stamping the payment date.
func (s *InvoiceService) MarkPaid(ctx context.Context, id uint, mode string) (*models.Invoice, error) {
	pm, ok := models.ParsePaymentMode(mode)
	if !ok {
		return nil, apperr.Invalid(validation.Violations{"payment_mode": "invalid_value"})
	}
	return s.update(ctx, id, gate.ActionPay, func(inv *models.Invoice) error {
		return inv.MarkPaid(pm, s.now().UTC())
	})
}

func (s *InvoiceService) Cancel(ctx context.Context, id uint) (*models.Invoice, error) {
	return s.update(ctx, id, gate.ActionCancel, func(inv *models.Invoice) error {
		return inv.Cancel()
	})
}

// Stats counts invoices by status and sums their TTC: this month by payment
// date, total over every paid invoice.
func (s *InvoiceService) Stats(ctx context.Context) (Stats, error) {
	if err := s.gate.Authorize(ctx, gate.ActionList, policy.ResourceInvoice, nil); err != nil {
		return Stats{}, err
	}
	st, err := s.stats(s.db.WithContext(ctx))
	if err != nil {
		return Stats{}, apperr.Wrap(err)
	}
	return st, nil
}

// month returns the bounds of the current calendar month, in UTC.
func (s *InvoiceService) month() (from, to time.Time) {
	start := monthStart(s.now().In(s.loc))
	return start.UTC(), start.AddDate(0, 1, 0).UTC()
}

func (s *InvoiceService) stats(conn *gorm.DB) (Stats, error) {
	st := Stats{RevenueThisMonth: decimal.Zero, RevenueTotal: decimal.Zero}
	var counts []struct {
		Status models.InvoiceStatus
		N      int64
	}
	err := conn.Model(&models.Invoice{}).Select("status, COUNT(*) AS n").Group("status").Scan(&counts).Error
	if err != nil {
		return st, err
	}
	for _, c := range counts {
		st.Total += c.N
		switch c.Status {
		case models.InvoiceStatusPending:
			st.Pending = c.N
		case models.InvoiceStatusPaid:
			st.Paid = c.N
		case models.InvoiceStatusCancelled:
			st.Cancelled = c.N
		}
	}

	from, to := s.month()
	if st.RevenueTotal, err = sumTTC(conn.Where("status = ?", models.InvoiceStatusPaid)); err != nil {
		return st, err
	}
	st.RevenueThisMonth, err = sumTTC(paidBetween(conn, from, to))
	return st, err
}

func paidBetween(conn *gorm.DB, from, to time.Time) *gorm.DB {
	return conn.Where("status = ? AND payment_date >= ? AND payment_date < ?", models.InvoiceStatusPaid, from, to)
}

// sumTTC returns SUM(amount_ttc) over q, rounded to cents.
func sumTTC(q *gorm.DB) (decimal.Decimal, error) {
	var total decimal.Decimal
	if err := q.Model(&models.Invoice{}).Select("COALESCE(SUM(amount_ttc), 0)").Row().Scan(&total); err != nil {
		return decimal.Zero, err
	}
	return total.Round(2), nil
}

// Dashboard adds the five most recent pending invoices and the five most
// recent invoices paid this month to the statistics.
func (s *InvoiceService) Dashboard(ctx context.Context) (Dashboard, error) {
	if err := s.gate.Authorize(ctx, gate.ActionList, policy.ResourceInvoice, nil); err != nil {
		return Dashboard{}, err
	}
	conn := s.db.WithContext(ctx)
	st, err := s.stats(conn)
	if err != nil {
		return Dashboard{}, apperr.Wrap(err)
	}
	d := Dashboard{Stats: st, PendingCount: int(st.Pending), RecentPending: []models.Invoice{}, RecentPaid: []models.Invoice{}}

	err = conn.Where("status = ?", models.InvoiceStatusPending).
		Order("issue_date DESC").Order("id DESC").Limit(dashboardRecent).
		Find(&d.RecentPending).Error
	if err != nil {
		return Dashboard{}, apperr.Wrap(err)
	}

	from, to := s.month()
	var paidCount int64
	if err := paidBetween(conn.Model(&models.Invoice{}), from, to).Count(&paidCount).Error; err != nil {
		return Dashboard{}, apperr.Wrap(err)
	}
	d.PaidThisMonthCount = int(paidCount)
	err = paidBetween(conn, from, to).
		Order("payment_date DESC").Order("id DESC").Limit(dashboardRecent).
		Find(&d.RecentPaid).Error
	if err != nil {
		return Dashboard{}, apperr.Wrap(err)
	}
	return d, nil
}
