package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/diewo77/go-factures/internal/config"
	"github.com/diewo77/go-factures/internal/db"
	"github.com/klauspost/compress/zip"
	"github.com/shopspring/decimal"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const (
	adminEmail    = "admin@shop.tn"
	adminPassword = "admin123"
)

func newTestServer(t *testing.T) http.Handler {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), db.GormConfig(false))
	if err != nil {
		t.Fatalf("db open: %v", err)
	}
	if err := db.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if err := db.Seed(conn, db.SeedOptions{AdminEmail: adminEmail, AdminPassword: adminPassword}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	cfg := config.Load()
	cfg.Auth.JWTSecret = "router-test"
	return New(conn, cfg)
}

type client struct {
	t     *testing.T
	h     http.Handler
	token string
}

func (c client) do(method, path string, body any) *httptest.ResponseRecorder {
	c.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			c.t.Fatalf("encode: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	w := httptest.NewRecorder()
	c.h.ServeHTTP(w, req)
	return w
}

func expect(t *testing.T, w *httptest.ResponseRecorder, status int, out any) {
	t.Helper()
	if w.Code != status {
		t.Fatalf("expected %d got %d: %s", status, w.Code, w.Body.String())
	}
	if out != nil {
		if err := json.Unmarshal(w.Body.Bytes(), out); err != nil {
			t.Fatalf("decode: %v (%s)", err, w.Body.String())
		}
	}
}

type session struct {
	ID    uint   `json:"id"`
	Role  string `json:"role"`
	Token string `json:"token"`
}

func login(t *testing.T, h http.Handler, email, password string) client {
	t.Helper()
	var s session
	expect(t, client{t: t, h: h}.do(http.MethodPost, "/api/auth/login", map[string]string{"email": email, "password": password}), http.StatusOK, &s)
	return client{t: t, h: h, token: s.Token}
}

func register(t *testing.T, h http.Handler, email string) client {
	t.Helper()
	var s session
	body := map[string]string{"email": email, "password": "secret1", "first_name": "Test"}
	expect(t, client{t: t, h: h}.do(http.MethodPost, "/api/auth/register", body), http.StatusCreated, &s)
	if s.Role != "CLIENT" {
		t.Fatalf("registered role = %q", s.Role)
	}
	return client{t: t, h: h, token: s.Token}
}

func TestHealth(t *testing.T) {
	h := newTestServer(t)
	anon := client{t: t, h: h}
	expect(t, anon.do(http.MethodGet, "/health", nil), http.StatusOK, nil)
	expect(t, anon.do(http.MethodGet, "/healthz", nil), http.StatusOK, nil)
}

func TestHealthzDegraded(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer sqlDB.Close()
	conn, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), db.GormConfig(false))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	mock.ExpectExec("SELECT 1").WillReturnError(errors.New("connection refused"))

	w := client{t: t, h: New(conn, config.Load())}.do(http.MethodGet, "/healthz", nil)
	var body map[string]string
	expect(t, w, http.StatusServiceUnavailable, &body)
	if body["status"] != "degraded" {
		t.Fatalf("body = %v", body)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestAccessControl(t *testing.T) {
	h := newTestServer(t)
	anon := client{t: t, h: h}

	expect(t, anon.do(http.MethodGet, "/api/client/orders", nil), http.StatusUnauthorized, nil)
	expect(t, anon.do(http.MethodGet, "/api/admin/orders", nil), http.StatusUnauthorized, nil)
	expect(t, anon.do(http.MethodPost, "/api/auth/login", map[string]string{"email": adminEmail, "password": "nope"}), http.StatusUnauthorized, nil)

	alice := register(t, h, "alice@shop.tn")
	expect(t, alice.do(http.MethodGet, "/api/admin/orders", nil), http.StatusForbidden, nil)
	expect(t, alice.do(http.MethodGet, "/api/client/categories", nil), http.StatusOK, nil)

	dup := client{t: t, h: h}.do(http.MethodPost, "/api/auth/register", map[string]string{"email": "alice@shop.tn", "password": "secret1"})
	var errBody struct {
		Error   string            `json:"error"`
		Details map[string]string `json:"details"`
	}
	expect(t, dup, http.StatusBadRequest, &errBody)
	if errBody.Error != "validation_failed" || errBody.Details["email"] != "email_taken" {
		t.Fatalf("duplicate register body = %+v", errBody)
	}

	bad := alice.do(http.MethodGet, "/api/client/orders/abc", nil)
	expect(t, bad, http.StatusBadRequest, nil)
	expect(t, alice.do(http.MethodGet, "/api/client/orders/999", nil), http.StatusNotFound, nil)
}

type orderBody struct {
	ID      uint            `json:"id"`
	Status  string          `json:"status"`
	TotalHT decimal.Decimal `json:"total_ht"`
	Lines   []struct {
		ID       uint `json:"id"`
		Quantity int  `json:"quantity"`
	} `json:"lines"`
}

type invoiceBody struct {
	ID        uint            `json:"id"`
	Number    string          `json:"number"`
	Status    string          `json:"status"`
	AmountTTC decimal.Decimal `json:"amount_ttc"`
}

func TestOrderToInvoiceFlow(t *testing.T) {
	h := newTestServer(t)
	admin := login(t, h, adminEmail, adminPassword)
	alice := register(t, h, "alice@shop.tn")
	bob := register(t, h, "bob@shop.tn")

	var product struct {
		ID uint `json:"id"`
	}
	expect(t, admin.do(http.MethodPost, "/api/admin/products", map[string]any{"name": "Clavier", "price": "10.00"}), http.StatusCreated, &product)

	var products []struct {
		ID uint `json:"id"`
	}
	expect(t, alice.do(http.MethodGet, "/api/client/products?q=clav", nil), http.StatusOK, &products)
	if len(products) != 1 || products[0].ID != product.ID {
		t.Fatalf("search = %+v", products)
	}

	var order orderBody
	expect(t, alice.do(http.MethodPost, "/api/client/orders", nil), http.StatusCreated, &order)
	orderPath := fmt.Sprintf("/api/client/orders/%d", order.ID)
	expect(t, alice.do(http.MethodPost, fmt.Sprintf("%s/products/%d", orderPath, product.ID), map[string]int{"quantity": 2}), http.StatusOK, &order)
	if !order.TotalHT.Equal(decimal.NewFromInt(20)) {
		t.Fatalf("total = %s", order.TotalHT)
	}

	expect(t, bob.do(http.MethodGet, orderPath, nil), http.StatusForbidden, nil)
	expect(t, bob.do(http.MethodPut, orderPath+"/cancel", nil), http.StatusForbidden, nil)

	expect(t, admin.do(http.MethodPatch, fmt.Sprintf("/api/admin/orders/%d/status", order.ID), map[string]string{"status": "CONFIRMEE"}), http.StatusOK, &order)
	if order.Status != "CONFIRMEE" {
		t.Fatalf("status = %s", order.Status)
	}
	expect(t, alice.do(http.MethodPost, fmt.Sprintf("%s/products/%d", orderPath, product.ID), map[string]int{"quantity": 1}), http.StatusConflict, nil)

	var history []invoiceBody
	expect(t, alice.do(http.MethodGet, "/api/client/invoices", nil), http.StatusOK, &history)
	if len(history) != 1 || history[0].Status != "EN_ATTENTE" || !history[0].AmountTTC.Equal(decimal.NewFromInt(24)) {
		t.Fatalf("history = %+v", history)
	}
	inv := history[0]
	invPath := fmt.Sprintf("/api/client/invoices/%d", inv.ID)
	expect(t, bob.do(http.MethodGet, invPath, nil), http.StatusForbidden, nil)

	pdf := alice.do(http.MethodGet, invPath+"/pdf", nil)
	expect(t, pdf, http.StatusOK, nil)
	if pdf.Header().Get("Content-Type") != "application/pdf" || !bytes.HasPrefix(pdf.Body.Bytes(), []byte("%PDF-")) {
		t.Fatalf("pdf headers = %v", pdf.Header())
	}
	want := fmt.Sprintf(`attachment; filename="facture_%d.pdf"`, inv.ID)
	if got := pdf.Header().Get("Content-Disposition"); got != want {
		t.Fatalf("disposition = %q, want %q", got, want)
	}
	preview := alice.do(http.MethodGet, invPath+"/pdf/preview", nil)
	expect(t, preview, http.StatusOK, nil)
	if !strings.HasPrefix(preview.Header().Get("Content-Disposition"), "inline;") {
		t.Fatalf("preview disposition = %q", preview.Header().Get("Content-Disposition"))
	}

	adminInv := fmt.Sprintf("/api/admin/invoices/%d", inv.ID)
	expect(t, admin.do(http.MethodPatch, adminInv+"/pay?mode=CARTE_BANCAIRE", nil), http.StatusOK, &inv)
	if inv.Status != "PAYEE" {
		t.Fatalf("invoice status = %s", inv.Status)
	}
	expect(t, admin.do(http.MethodPatch, adminInv+"/pay", map[string]string{"payment_mode": "ESPECES"}), http.StatusConflict, nil)

	var stats struct {
		Paid             int64           `json:"paid"`
		RevenueThisMonth decimal.Decimal `json:"revenue_this_month"`
	}
	expect(t, admin.do(http.MethodGet, "/api/admin/invoices/stats", nil), http.StatusOK, &stats)
	if stats.Paid != 1 || !stats.RevenueThisMonth.Equal(decimal.NewFromInt(24)) {
		t.Fatalf("stats = %+v", stats)
	}

	var doc struct {
		Number string `json:"number"`
		Blocks []struct {
			Kind string `json:"kind"`
		} `json:"blocks"`
	}
	expect(t, admin.do(http.MethodGet, adminInv+"/document?lang=en", nil), http.StatusOK, &doc)
	if doc.Number != inv.Number || len(doc.Blocks) == 0 || doc.Blocks[len(doc.Blocks)-1].Kind != "footer" {
		t.Fatalf("document = %+v", doc)
	}
}

func TestAdminExports(t *testing.T) {
	h := newTestServer(t)
	admin := login(t, h, adminEmail, adminPassword)
	alice := register(t, h, "alice@shop.tn")

	var product struct {
		ID uint `json:"id"`
	}
	expect(t, admin.do(http.MethodPost, "/api/admin/products", map[string]any{"name": "Souris", "price": 5.5}), http.StatusCreated, &product)

	var ids []uint
	for i := 1; i <= 2; i++ {
		var order orderBody
		items := map[string]any{"items": []map[string]any{{"product_id": product.ID, "quantity": i}}}
		expect(t, alice.do(http.MethodPost, "/api/client/orders", items), http.StatusCreated, &order)
		var inv invoiceBody
		expect(t, admin.do(http.MethodPost, fmt.Sprintf("/api/admin/orders/%d/invoice", order.ID), nil), http.StatusCreated, &inv)
		ids = append(ids, inv.ID)
	}

	var all []invoiceBody
	expect(t, admin.do(http.MethodGet, "/api/admin/invoices?status=en_attente", nil), http.StatusOK, &all)
	if len(all) != 2 {
		t.Fatalf("pending invoices = %d", len(all))
	}
	expect(t, admin.do(http.MethodGet, "/api/admin/invoices?from=2025-13-01", nil), http.StatusBadRequest, nil)
	expect(t, admin.do(http.MethodGet, "/api/admin/invoices?status=BROUILLON", nil), http.StatusBadRequest, nil)

	zipResp := admin.do(http.MethodPost, "/api/admin/invoices/export/zip", map[string]any{"ids": []uint{ids[1], ids[0]}})
	expect(t, zipResp, http.StatusOK, nil)
	if zipResp.Header().Get("Content-Type") != "application/zip" {
		t.Fatalf("content type = %q", zipResp.Header().Get("Content-Type"))
	}
	zr, err := zip.NewReader(bytes.NewReader(zipResp.Body.Bytes()), int64(zipResp.Body.Len()))
	if err != nil {
		t.Fatalf("zip: %v", err)
	}
	if len(zr.File) != 2 || !strings.HasPrefix(zr.File[0].Name, "facture_FAC-") {
		t.Fatalf("entries = %d", len(zr.File))
	}

	pdfResp := admin.do(http.MethodPost, "/api/admin/invoices/export/pdf", map[string]any{"status": "EN_ATTENTE"})
	expect(t, pdfResp, http.StatusOK, nil)
	if !strings.Contains(pdfResp.Header().Get("Content-Disposition"), "factures_export_") {
		t.Fatalf("disposition = %q", pdfResp.Header().Get("Content-Disposition"))
	}

	var errBody struct {
		Error string `json:"error"`
	}
	expect(t, admin.do(http.MethodPost, "/api/admin/invoices/export/pdf", map[string]any{"ids": []uint{999}}), http.StatusNotFound, &errBody)
	if errBody.Error != "not_found" {
		t.Fatalf("error = %q", errBody.Error)
	}
	expect(t, alice.do(http.MethodPost, "/api/admin/invoices/export/zip", map[string]any{"ids": ids}), http.StatusForbidden, nil)
}

func TestAdminProfiles(t *testing.T) {
	h := newTestServer(t)
	admin := login(t, h, adminEmail, adminPassword)
	alice := register(t, h, "alice@shop.tn")

	var profiles []struct {
		ID   uint   `json:"id"`
		Name string `json:"name"`
	}
	expect(t, admin.do(http.MethodGet, "/api/admin/profiles", nil), http.StatusOK, &profiles)
	if len(profiles) != 2 {
		t.Fatalf("profiles = %+v", profiles)
	}
	var adminProfile uint
	for _, p := range profiles {
		if p.Name == db.ProfileAdmin {
			adminProfile = p.ID
		}
	}

	var users []struct {
		ID    uint   `json:"id"`
		Email string `json:"email"`
	}
	expect(t, admin.do(http.MethodGet, "/api/admin/users", nil), http.StatusOK, &users)
	var aliceID uint
	for _, u := range users {
		if u.Email == "alice@shop.tn" {
			aliceID = u.ID
		}
	}

	expect(t, alice.do(http.MethodGet, "/api/admin/orders", nil), http.StatusForbidden, nil)
	expect(t, admin.do(http.MethodPut, fmt.Sprintf("/api/admin/users/%d/profile", aliceID), map[string]uint{"profile_id": adminProfile}), http.StatusOK, nil)
	expect(t, alice.do(http.MethodGet, "/api/admin/orders", nil), http.StatusOK, nil)

	expect(t, admin.do(http.MethodPut, "/api/admin/users/999/profile", map[string]uint{"profile_id": adminProfile}), http.StatusNotFound, nil)
	expect(t, admin.do(http.MethodPut, fmt.Sprintf("/api/admin/profiles/%d/permissions", adminProfile), map[string][]uint{"permission_ids": {9999}}), http.StatusBadRequest, nil)
}
