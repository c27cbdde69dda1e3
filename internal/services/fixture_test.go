package services

import (
	"context"
	"testing"
	"time"

	"github.com/diewo77/go-factures/auth"
	"github.com/diewo77/go-factures/internal/config"
	"github.com/diewo77/go-factures/internal/db"
	"github.com/diewo77/go-factures/internal/export"
	"github.com/diewo77/go-factures/internal/models"
	"github.com/diewo77/go-factures/internal/policy"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type fixture struct {
	db       *gorm.DB
	gate     *policy.AuthGate
	catalog  *CatalogService
	orders   *OrderService
	invoices *InvoiceService
	exports  *ExportService
	auth     *AuthService

	admin, alice, bob        models.User
	keyboard, mouse, retired models.Product
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newFixture(t *testing.T) *fixture {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.Migrate(conn))
	require.NoError(t, db.Seed(conn, db.SeedOptions{AdminEmail: "admin@shop.tn", AdminPassword: "admin123"}))

	cfg := config.Load()
	cfg.Invoice.DefaultVATRate = decimal.NewFromInt(20)
	cfg.Invoice.Currency = "DT"

	ag := policy.NewAuthGate(conn)
	f := &fixture{db: conn, gate: ag}
	f.catalog = NewCatalogService(conn)
	f.invoices = NewInvoiceService(conn, ag)
	f.orders = NewOrderService(conn, ag, f.invoices, cfg.Invoice.DefaultVATRate)
	f.exports = NewExportService(conn, ag, f.invoices, export.NewPDFRenderer(), cfg)
	f.auth = NewAuthService(conn, auth.NewSigner("test-secret", time.Hour))

	require.NoError(t, conn.Where("email = ?", "admin@shop.tn").First(&f.admin).Error)
	f.alice = f.client(t, "alice@shop.tn", "Alice", "Martin")
	f.bob = f.client(t, "bob@shop.tn", "Bob", "Durand")

	f.keyboard = f.product(t, "Clavier", "10.00", true)
	f.mouse = f.product(t, "Souris", "5.50", true)
	f.retired = f.product(t, "Modem", "3.00", false)
	return f
}

func (f *fixture) client(t *testing.T, email, first, last string) models.User {
	t.Helper()
	profileID, err := db.ProfileIDFor(f.db, models.RoleClient)
	require.NoError(t, err)
	u := models.User{Email: email, FirstName: first, LastName: last, Password: "x", Role: models.RoleClient, ProfileID: &profileID}
	require.NoError(t, f.db.Create(&u).Error)
	return u
}

func (f *fixture) product(t *testing.T, name, price string, available bool) models.Product {
	t.Helper()
	p, err := f.catalog.CreateProduct(context.Background(), ProductInput{Name: name, Price: dec(price), Available: &available})
	require.NoError(t, err)
	return *p
}

func as(u models.User) context.Context {
	return auth.WithPrincipal(context.Background(), auth.Principal{UserID: u.ID, Email: u.Email, Role: string(u.Role)})
}

// confirmedOrder places an order for u and confirms it, issuing its invoice.
func (f *fixture) confirmedOrder(t *testing.T, u models.User, items ...OrderItem) (*models.Order, *models.Invoice) {
	t.Helper()
	o, err := f.orders.CreateOrderWithProducts(as(u), u.ID, items)
	require.NoError(t, err)
	o, err = f.orders.ChangeStatus(as(f.admin), o.ID, string(models.OrderStatusConfirmed))
	require.NoError(t, err)
	var inv models.Invoice
	require.NoError(t, f.db.Where("order_id = ?", o.ID).First(&inv).Error)
	return o, &inv
}
