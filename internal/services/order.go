package services

import (
	"context"
	"strings"
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

// OrderItem is one product and quantity of a new order.
type OrderItem struct {
	ProductID uint `json:"product_id"`
	Quantity  int  `json:"quantity"`
}

// OrderService runs the order lifecycle. Status changes that affect the
// invoice (confirm, cancel, pay) go through InvoiceService in the same
// transaction.
type OrderService struct {
	db       *gorm.DB
	gate     Authorizer
	invoices *InvoiceService
	vatRate  decimal.Decimal
	now      func() time.Time
}

func NewOrderService(db *gorm.DB, authz Authorizer, invoices *InvoiceService, vatRate decimal.Decimal) *OrderService {
	return &OrderService{db: db, gate: authz, invoices: invoices, vatRate: vatRate, now: time.Now}
}

func loadOrder(tx *gorm.DB, id uint) (*models.Order, error) {
	var o models.Order
	err := tx.Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Preload("Lines.Product").
		Preload("Client").
		First(&o, id).Error
	if err != nil {
		return nil, notFound(err, "order %d not found", id)
	}
	return &o, nil
}

// saveOrder recomputes the totals and writes the order and its lines.
func saveOrder(tx *gorm.DB, o *models.Order) error {
	o.Recalculate()
	for i := range o.Lines {
		o.Lines[i].OrderID = o.ID
		if err := tx.Omit(clause.Associations).Save(&o.Lines[i]).Error; err != nil {
			return err
		}
	}
	return tx.Omit(clause.Associations).Save(o).Error
}

// mutate loads the order, authorizes action on it and runs fn in one transaction.
func (s *OrderService) mutate(ctx context.Context, orderID uint, action gate.Action, fn func(tx *gorm.DB, o *models.Order) error) (*models.Order, error) {
	var out *models.Order
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		o, err := loadOrder(tx, orderID)
		if err != nil {
			return err
		}
		if err := s.gate.Authorize(ctx, action, policy.ResourceOrder, o); err != nil {
			return err
		}
		if err := fn(tx, o); err != nil {
			return err
		}
		out = o
		return nil
	})
	if err != nil {
		return nil, apperr.Wrap(err)
	}
	return out, nil
}

func requireEditable(o *models.Order) error {
	if !o.Editable() {
		return apperr.InvalidState("order %s is %s and can no longer be modified", o.Number, o.Status)
	}
	return nil
}

func validQuantity(qty int) error {
	v := make(validation.Violations)
	validation.PositiveInt("quantity", qty, v)
	if !v.Empty() {
		return apperr.Invalid(v)
	}
	return nil
}

// CreateOrder opens an empty pending order for clientID.
func (s *OrderService) CreateOrder(ctx context.Context, clientID uint) (*models.Order, error) {
	return s.CreateOrderWithProducts(ctx, clientID, nil)
}

// CreateOrderWithProducts opens an order and adds every item, all or nothing.
func (s *OrderService) CreateOrderWithProducts(ctx context.Context, clientID uint, items []OrderItem) (*models.Order, error) {
	o := &models.Order{
		Number:   models.NewOrderNumber(s.now()),
		Status:   models.OrderStatusPending,
		ClientID: clientID,
		VATRate:  s.vatRate,
	}
	if err := s.gate.Authorize(ctx, gate.ActionCreate, policy.ResourceOrder, o); err != nil {
		return nil, err
	}
	for _, it := range items {
		if err := validQuantity(it.Quantity); err != nil {
			return nil, err
		}
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		o.Recalculate()
		if err := tx.Omit(clause.Associations).Create(o).Error; err != nil {
			return err
		}
		for _, it := range items {
			if err := addLine(tx, o, it.ProductID, it.Quantity); err != nil {
				return err
			}
		}
		return saveOrder(tx, o)
	})
	if err != nil {
		return nil, apperr.Wrap(err)
	}
	return o, nil
}

// addLine merges qty of productID into o. The line takes the product's current price.
func addLine(tx *gorm.DB, o *models.Order, productID uint, qty int) error {
	var p models.Product
	if err := tx.First(&p, productID).Error; err != nil {
		return notFound(err, "product %d not found", productID)
	}
	if !p.Available {
		return apperr.Invalid(validation.Violations{"product_id": "product_unavailable"})
	}
	if line := o.LineFor(productID); line != nil {
		line.Quantity += qty
		line.UnitPrice = p.Price
		line.ProductName = p.Name
		return nil
	}
	o.Lines = append(o.Lines, models.OrderLine{
		OrderID:     o.ID,
		ProductID:   p.ID,
		Product:     &p,
		ProductName: p.Name,
		Quantity:    qty,
		UnitPrice:   p.Price,
	})
	return nil
}

func (s *OrderService) GetOrder(ctx context.Context, id uint) (*models.Order, error) {
	o, err := loadOrder(s.db.WithContext(ctx), id)
	if err != nil {
		return nil, err
	}
	if err := s.gate.Authorize(ctx, gate.ActionView, policy.ResourceOrder, o); err != nil {
		return nil, err
	}
	return o, nil
}

// ListClientOrders returns the client's orders, newest first.
func (s *OrderService) ListClientOrders(ctx context.Context, clientID uint) ([]models.Order, error) {
	if err := s.gate.Authorize(ctx, gate.ActionList, policy.ResourceOrder, &models.Order{ClientID: clientID}); err != nil {
		return nil, err
	}
	var orders []models.Order
	err := s.db.WithContext(ctx).Preload("Lines").
		Where("client_id = ?", clientID).
		Order("created_at DESC").Order("id DESC").
		Find(&orders).Error
	if err != nil {
		return nil, apperr.Wrap(err)
	}
	return orders, nil
}

// ListOrders returns every order, newest first.
func (s *OrderService) ListOrders(ctx context.Context) ([]models.Order, error) {
	if err := s.gate.Authorize(ctx, gate.ActionList, policy.ResourceOrder, nil); err != nil {
		return nil, err
	}
	var orders []models.Order
	err := s.db.WithContext(ctx).Preload("Lines").Preload("Client").
		Order("created_at DESC").Order("id DESC").
		Find(&orders).Error
	if err != nil {
		return nil, apperr.Wrap(err)
	}
	return orders, nil
}

// OrderLines returns the lines of one order.
func (s *OrderService) OrderLines(ctx context.Context, orderID uint) ([]models.OrderLine, error) {
	o, err := s.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return o.Lines, nil
}

func (s *OrderService) AddProduct(ctx context.Context, orderID, productID uint, qty int) (*models.Order, error) {
	return s.mutate(ctx, orderID, gate.ActionUpdate, func(tx *gorm.DB, o *models.Order) error {
		if err := validQuantity(qty); err != nil {
			return err
		}
		if err := requireEditable(o); err != nil {
			return err
		}
		if err := addLine(tx, o, productID, qty); err != nil {
			return err
		}
		return saveOrder(tx, o)
	})
}

func (s *OrderService) RemoveProduct(ctx context.Context, orderID, productID uint) (*models.Order, error) {
	return s.mutate(ctx, orderID, gate.ActionUpdate, func(tx *gorm.DB, o *models.Order) error {
		if err := requireEditable(o); err != nil {
			return err
		}
		line := o.LineFor(productID)
		if line == nil {
			return apperr.NotFound("product %d is not in order %s", productID, o.Number)
		}
		return removeLine(tx, o, line.ID)
	})
}

func removeLine(tx *gorm.DB, o *models.Order, lineID uint) error {
	if err := tx.Delete(&models.OrderLine{}, lineID).Error; err != nil {
		return err
	}
	kept := o.Lines[:0]
	for _, l := range o.Lines {
		if l.ID != lineID {
			kept = append(kept, l)
		}
	}
	o.Lines = kept
	return saveOrder(tx, o)
}

func (s *OrderService) ChangeQuantity(ctx context.Context, orderID, productID uint, qty int) (*models.Order, error) {
	return s.mutate(ctx, orderID, gate.ActionUpdate, func(tx *gorm.DB, o *models.Order) error {
		if err := validQuantity(qty); err != nil {
			return err
		}
		if err := requireEditable(o); err != nil {
			return err
		}
		line := o.LineFor(productID)
		if line == nil {
			return apperr.NotFound("product %d is not in order %s", productID, o.Number)
		}
		line.Quantity = qty
		return saveOrder(tx, o)
	})
}

// ChangeStatus applies a transition from the status table and keeps the
// invoice in step: confirming issues it, cancelling cancels it and paying
// settles it with the order's payment mode.
func (s *OrderService) ChangeStatus(ctx context.Context, orderID uint, status string) (*models.Order, error) {
	next := models.OrderStatus(strings.ToUpper(strings.TrimSpace(status)))
	if !next.Valid() {
		return nil, apperr.Invalid(validation.Violations{"status": "invalid_value"})
	}
	return s.mutate(ctx, orderID, gate.ActionStatus, func(tx *gorm.DB, o *models.Order) error {
		return s.transition(tx, o, next)
	})
}

func (s *OrderService) transition(tx *gorm.DB, o *models.Order, next models.OrderStatus) error {
	if err := o.TransitionTo(next); err != nil {
		return err
	}
	switch next {
	case models.OrderStatusConfirmed:
		if _, err := s.invoices.generate(tx, o, true); err != nil {
			return err
		}
	case models.OrderStatusCancelled:
		if err := s.invoices.cancelPending(tx, o.ID); err != nil {
			return err
		}
	case models.OrderStatusPaid:
		if !o.PaymentMode.Valid() {
			return apperr.Invalid(validation.Violations{"payment_mode": "required"})
		}
		if err := s.invoices.payPending(tx, o.ID, o.PaymentMode); err != nil {
			return err
		}
	}
	return saveOrder(tx, o)
}

// CancelOrder cancels the order and its pending invoice.
func (s *OrderService) CancelOrder(ctx context.Context, orderID uint) (*models.Order, error) {
	return s.mutate(ctx, orderID, gate.ActionCancel, func(tx *gorm.DB, o *models.Order) error {
		if o.Status.Terminal() {
			return apperr.InvalidState("order %s is already %s", o.Number, o.Status)
		}
		return s.transition(tx, o, models.OrderStatusCancelled)
	})
}

func (s *OrderService) ChangePaymentMode(ctx context.Context, orderID uint, mode string) (*models.Order, error) {
	pm, ok := models.ParsePaymentMode(mode)
	if !ok {
		return nil, apperr.Invalid(validation.Violations{"payment_mode": "invalid_value"})
	}
	return s.mutate(ctx, orderID, gate.ActionUpdate, func(tx *gorm.DB, o *models.Order) error {
		if o.Status.Terminal() {
			return apperr.InvalidState("order %s is %s; its payment mode is final", o.Number, o.Status)
		}
		o.PaymentMode = pm
		return saveOrder(tx, o)
	})
}

// Order line administration.

func (s *OrderService) loadLine(ctx context.Context, lineID uint) (*models.OrderLine, error) {
	var line models.OrderLine
	if err := s.db.WithContext(ctx).Preload("Product").First(&line, lineID).Error; err != nil {
		return nil, notFound(err, "order line %d not found", lineID)
	}
	return &line, nil
}

func (s *OrderService) GetLine(ctx context.Context, lineID uint) (*models.OrderLine, error) {
	line, err := s.loadLine(ctx, lineID)
	if err != nil {
		return nil, err
	}
	if _, err := s.GetOrder(ctx, line.OrderID); err != nil {
		return nil, err
	}
	return line, nil
}

func (s *OrderService) ListLines(ctx context.Context) ([]models.OrderLine, error) {
	if err := s.gate.Authorize(ctx, gate.ActionList, policy.ResourceOrder, nil); err != nil {
		return nil, err
	}
	var lines []models.OrderLine
	if err := s.db.WithContext(ctx).Preload("Product").Order("order_id").Order("id").Find(&lines).Error; err != nil {
		return nil, apperr.Wrap(err)
	}
	return lines, nil
}

// UpdateLine changes the quantity of a line and returns the updated order.
func (s *OrderService) UpdateLine(ctx context.Context, lineID uint, qty int) (*models.Order, error) {
	line, err := s.loadLine(ctx, lineID)
	if err != nil {
		return nil, err
	}
	return s.ChangeQuantity(ctx, line.OrderID, line.ProductID, qty)
}

// DeleteLine removes a line and returns the updated order.
func (s *OrderService) DeleteLine(ctx context.Context, lineID uint) (*models.Order, error) {
	line, err := s.loadLine(ctx, lineID)
	if err != nil {
		return nil, err
	}
	return s.mutate(ctx, line.OrderID, gate.ActionUpdate, func(tx *gorm.DB, o *models.Order) error {
		if err := requireEditable(o); err != nil {
			return err
		}
		return removeLine(tx, o, lineID)
	})
}
