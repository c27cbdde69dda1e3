package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/diewo77/go-factures/httpx"
	"github.com/diewo77/go-factures/internal/apperr"
	"github.com/diewo77/go-factures/internal/export"
	"github.com/diewo77/go-factures/internal/middleware"
	"github.com/diewo77/go-factures/internal/models"
	"github.com/diewo77/go-factures/internal/services"
	"github.com/diewo77/go-factures/validation"
)

type InvoiceHandler struct {
	invoices *services.InvoiceService
	exports  *services.ExportService
}

func NewInvoiceHandler(invoices *services.InvoiceService, exports *services.ExportService) *InvoiceHandler {
	return &InvoiceHandler{invoices: invoices, exports: exports}
}

func sendFile(w http.ResponseWriter, f *export.File, disposition string) {
	httpx.Binary(w, f.ContentType, disposition, f.Name, f.Body)
}

// History lists the caller's invoices, newest first.
func (h *InvoiceHandler) History(w http.ResponseWriter, r *http.Request) {
	uid, err := callerID(r)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	invoices, err := h.invoices.ClientHistory(r.Context(), uid)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, invoices)
}

func (h *InvoiceHandler) ClientGet(w http.ResponseWriter, r *http.Request) {
	uid, err := callerID(r)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	id, err := idParam(r, "id")
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	inv, err := h.invoices.GetClientInvoice(r.Context(), uid, id)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

// ClientPDF serves one of the caller's invoices as attachment or inline.
func (h *InvoiceHandler) ClientPDF(disposition string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, err := callerID(r)
		if err != nil {
			httpx.Error(w, r, err)
			return
		}
		id, err := idParam(r, "id")
		if err != nil {
			httpx.Error(w, r, err)
			return
		}
		f, err := h.exports.ClientPDF(r.Context(), uid, id, middleware.LangFrom(r))
		if err != nil {
			httpx.Error(w, r, err)
			return
		}
		sendFile(w, f, disposition)
	}
}

// filterQuery reads ?status=&from=&to=&client_id=.
func filterQuery(r *http.Request) (services.InvoiceFilter, error) {
	v := make(validation.Violations)
	f := services.InvoiceFilter{
		Status:   models.InvoiceStatus(strings.ToUpper(r.URL.Query().Get("status"))),
		From:     dayQuery(r, "from", v),
		To:       dayQuery(r, "to", v),
		ClientID: uintQuery(r, "client_id", v),
	}
	if !v.Empty() {
		return f, apperr.Invalid(v)
	}
	return f, nil
}

func (h *InvoiceHandler) List(w http.ResponseWriter, r *http.Request) {
	f, err := filterQuery(r)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	invoices, err := h.invoices.ListInvoices(r.Context(), f)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, invoices)
}

func (h *InvoiceHandler) Stats(w http.ResponseWriter, r *http.Request) {
	st, err := h.invoices.Stats(r.Context())
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, st)
}

func (h *InvoiceHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	d, err := h.invoices.Dashboard(r.Context())
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, d)
}

func (h *InvoiceHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	inv, err := h.invoices.GetInvoice(r.Context(), id)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

// Pay takes the mode from {"payment_mode"} or, failing that, ?mode=.
func (h *InvoiceHandler) Pay(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	var body struct {
		PaymentMode string `json:"payment_mode"`
	}
	if err := decodeJSON(r, &body); err != nil {
		httpx.Error(w, r, err)
		return
	}
	mode := body.PaymentMode
	if mode == "" {
		mode = r.URL.Query().Get("mode")
	}
	inv, err := h.invoices.MarkPaid(r.Context(), id, mode)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

func (h *InvoiceHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	inv, err := h.invoices.Cancel(r.Context(), id)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

func (h *InvoiceHandler) PDF(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	f, err := h.exports.InvoicePDF(r.Context(), id, middleware.LangFrom(r))
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	sendFile(w, f, "attachment")
}

// Document serves the layout blocks of an invoice as JSON.
func (h *InvoiceHandler) Document(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	doc, err := h.exports.Document(r.Context(), id, middleware.LangFrom(r))
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, doc)
}

type selectionBody struct {
	IDs      []uint `json:"ids"`
	Status   string `json:"status"`
	From     string `json:"from"`
	To       string `json:"to"`
	ClientID *uint  `json:"client_id"`
}

func (b selectionBody) selection() (services.Selection, error) {
	v := make(validation.Violations)
	day := func(name, raw string) *time.Time {
		if raw == "" {
			return nil
		}
		d, err := time.Parse(dayLayout, raw)
		if err != nil {
			v[name] = "invalid_date"
			return nil
		}
		return &d
	}
	sel := services.Selection{
		IDs: b.IDs,
		Filter: services.InvoiceFilter{
			Status:   models.InvoiceStatus(strings.ToUpper(b.Status)),
			From:     day("from", b.From),
			To:       day("to", b.To),
			ClientID: b.ClientID,
		},
	}
	if sel.Filter.Status != "" && !sel.Filter.Status.Valid() {
		v["status"] = "invalid_value"
	}
	if !v.Empty() {
		return sel, apperr.Invalid(v)
	}
	return sel, nil
}

func (h *InvoiceHandler) exportWith(render func(*services.ExportService, *http.Request, services.Selection) (*export.File, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body selectionBody
		if err := decodeJSON(r, &body); err != nil {
			httpx.Error(w, r, err)
			return
		}
		sel, err := body.selection()
		if err != nil {
			httpx.Error(w, r, err)
			return
		}
		f, err := render(h.exports, r, sel)
		if err != nil {
			httpx.Error(w, r, err)
			return
		}
		sendFile(w, f, "attachment")
	}
}

// ExportPDF merges the selection into one PDF.
func (h *InvoiceHandler) ExportPDF() http.HandlerFunc {
	return h.exportWith(func(s *services.ExportService, r *http.Request, sel services.Selection) (*export.File, error) {
		return s.MultiPDF(r.Context(), sel, middleware.LangFrom(r))
	})
}

// ExportZIP zips one PDF per selected invoice.
func (h *InvoiceHandler) ExportZIP() http.HandlerFunc {
	return h.exportWith(func(s *services.ExportService, r *http.Request, sel services.Selection) (*export.File, error) {
		return s.Archive(r.Context(), sel, middleware.LangFrom(r))
	})
}
