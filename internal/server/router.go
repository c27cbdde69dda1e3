package server

import (
	"net/http"

	"github.com/diewo77/go-factures/auth"
	"github.com/diewo77/go-factures/gate"
	"github.com/diewo77/go-factures/httpx"
	"github.com/diewo77/go-factures/internal/config"
	"github.com/diewo77/go-factures/internal/export"
	"github.com/diewo77/go-factures/internal/handlers"
	"github.com/diewo77/go-factures/internal/middleware"
	"github.com/diewo77/go-factures/internal/policy"
	"github.com/diewo77/go-factures/internal/services"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"gorm.io/gorm"
)

// New constructs the root http.Handler with all routes and middlewares applied.
func New(db *gorm.DB, cfg *config.Config) http.Handler {
	ag := policy.NewAuthGate(db)
	signer := auth.NewSigner(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)

	catalog := services.NewCatalogService(db)
	invoices := services.NewInvoiceService(db, ag)
	orders := services.NewOrderService(db, ag, invoices, cfg.Invoice.DefaultVATRate)
	exports := services.NewExportService(db, ag, invoices, export.NewPDFRenderer(), cfg)
	authSvc := services.NewAuthService(db, signer)

	// RequireAuth rejects tokens of deleted users.
	auth.SetUserVerifier(authSvc.UserExists)

	ah := handlers.NewAuthHandler(authSvc)
	ch := handlers.NewCatalogHandler(catalog)
	oh := handlers.NewOrderHandler(orders, invoices)
	ih := handlers.NewInvoiceHandler(invoices, exports)
	ph := handlers.NewAdminProfileHandler(db)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(middleware.Logging)
	r.Use(middleware.Recover)
	r.Use(middleware.Prefs)

	// --- Health endpoints ---
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := db.WithContext(r.Context()).Exec("SELECT 1").Error; err != nil {
			httpx.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
			return
		}
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(api chi.Router) {
		api.Use(signer.Middleware)

		api.Post("/auth/register", ah.Register)
		api.Post("/auth/login", ah.Login)

		api.Route("/client", func(c chi.Router) {
			c.Use(auth.RequireAuth)
			can := func(resource string, action gate.Action) func(http.Handler) http.Handler {
				return ag.RequirePermission(resource, action)
			}

			c.With(can(policy.ResourceProduct, gate.ActionList)).Get("/products", ch.AvailableProducts)
			c.With(can(policy.ResourceProduct, gate.ActionView)).Get("/products/{id}", ch.AvailableProduct)
			c.With(can(policy.ResourceCategory, gate.ActionList)).Get("/categories", ch.ListCategories)
			c.With(can(policy.ResourceCategory, gate.ActionView)).Get("/categories/{id}", ch.GetCategory)

			c.Route("/orders", func(o chi.Router) {
				o.Get("/", oh.Mine)
				o.Post("/", oh.Create)
				o.Get("/{id}", oh.Get)
				o.Get("/{id}/lines", oh.Lines("id"))
				o.Put("/{id}/cancel", oh.Cancel)
				o.Post("/{id}/products/{productId}", oh.AddProduct)
				o.Put("/{id}/products/{productId}", oh.ChangeQuantity)
				o.Delete("/{id}/products/{productId}", oh.RemoveProduct)
			})

			c.Route("/invoices", func(i chi.Router) {
				i.Get("/", ih.History)
				i.Get("/{id}", ih.ClientGet)
				i.Get("/{id}/pdf", ih.ClientPDF("attachment"))
				i.Get("/{id}/pdf/preview", ih.ClientPDF("inline"))
			})
		})

		api.Route("/admin", func(a chi.Router) {
			a.Use(auth.RequireAuth)
			a.Use(ag.RequireAdmin())

			a.Route("/categories", func(c chi.Router) {
				c.Get("/", ch.ListCategories)
				c.Post("/", ch.CreateCategory)
				c.Get("/{id}", ch.GetCategory)
				c.Put("/{id}", ch.UpdateCategory)
				c.Delete("/{id}", ch.DeleteCategory)
			})

			a.Route("/products", func(p chi.Router) {
				p.Get("/", ch.ListProducts)
				p.Post("/", ch.CreateProduct)
				p.Get("/stats/average-price", ch.AveragePrice)
				p.Get("/{id}", ch.GetProduct)
				p.Put("/{id}", ch.UpdateProduct)
				p.Delete("/{id}", ch.DeleteProduct)
				p.Patch("/{id}/available", ch.Availability(true))
				p.Patch("/{id}/unavailable", ch.Availability(false))
			})

			a.Route("/orders", func(o chi.Router) {
				o.Get("/", oh.List)
				o.Get("/{id}", oh.Get)
				o.Patch("/{id}/status", oh.ChangeStatus)
				o.Patch("/{id}/payment-mode", oh.ChangePaymentMode)
				o.Post("/{id}/invoice", oh.GenerateInvoice)
			})

			a.Route("/order-lines", func(l chi.Router) {
				l.Get("/", oh.AllLines)
				l.Get("/order/{orderId}", oh.Lines("orderId"))
				l.Get("/{id}", oh.GetLine)
				l.Put("/{id}", oh.UpdateLine)
				l.Delete("/{id}", oh.DeleteLine)
			})

			a.Route("/invoices", func(i chi.Router) {
				i.Get("/", ih.List)
				i.Get("/stats", ih.Stats)
				i.Get("/dashboard", ih.Dashboard)
				i.Post("/export/pdf", ih.ExportPDF())
				i.Post("/export/zip", ih.ExportZIP())
				i.Get("/{id}", ih.Get)
				i.Patch("/{id}/pay", ih.Pay)
				i.Patch("/{id}/cancel", ih.Cancel)
				i.Get("/{id}/pdf", ih.PDF)
				i.Get("/{id}/document", ih.Document)
			})

			a.Get("/profiles", ph.List)
			a.Put("/profiles/{id}/permissions", ph.SavePermissions)
			a.Get("/permissions", ph.ListPermissions)
			a.Get("/users", ph.ListUsers)
			a.Put("/users/{id}/profile", ph.AssignProfile)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		httpx.JSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
	})
	return r
}
