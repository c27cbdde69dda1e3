package services

import (
	"context"
	"time"

	"github.com/diewo77/go-factures/gate"
	"github.com/diewo77/go-factures/internal/apperr"
	"github.com/diewo77/go-factures/internal/config"
	"github.com/diewo77/go-factures/internal/export"
	"github.com/diewo77/go-factures/internal/models"
	"github.com/diewo77/go-factures/internal/policy"
	"gorm.io/gorm"
)

// Selection picks invoices to export. A non-empty IDs list wins over Filter.
type Selection struct {
	IDs    []uint
	Filter InvoiceFilter
}

// ExportService renders invoices to PDF and ZIP downloads.
type ExportService struct {
	db       *gorm.DB
	gate     Authorizer
	invoices *InvoiceService
	renderer *export.PDFRenderer
	issuer   config.IssuerConfig
	currency string
	now      func() time.Time
}

func NewExportService(db *gorm.DB, authz Authorizer, invoices *InvoiceService, renderer *export.PDFRenderer, cfg *config.Config) *ExportService {
	return &ExportService{
		db:       db,
		gate:     authz,
		invoices: invoices,
		renderer: renderer,
		issuer:   cfg.Issuer,
		currency: cfg.Invoice.Currency,
		now:      time.Now,
	}
}

func (s *ExportService) document(inv *models.Invoice, lang string) export.Document {
	return export.Build(export.Source{
		Invoice:  inv,
		Issuer:   s.issuer,
		Lang:     lang,
		Currency: s.currency,
		Location: s.invoices.loc,
	})
}

// Document returns the layout blocks of one invoice.
func (s *ExportService) Document(ctx context.Context, id uint, lang string) (export.Document, error) {
	inv, err := s.invoices.GetInvoice(ctx, id)
	if err != nil {
		return export.Document{}, err
	}
	if err := s.gate.Authorize(ctx, gate.ActionExport, policy.ResourceInvoice, inv); err != nil {
		return export.Document{}, err
	}
	return s.document(inv, lang), nil
}

// InvoicePDF renders one invoice as facture_{id}_{yyyyMMdd}.pdf.
func (s *ExportService) InvoicePDF(ctx context.Context, id uint, lang string) (*export.File, error) {
	doc, err := s.Document(ctx, id, lang)
	if err != nil {
		return nil, err
	}
	body, err := s.renderer.Render(doc)
	if err != nil {
		return nil, apperr.Wrap(err)
	}
	return &export.File{Name: export.SingleFileName(id, s.now()), ContentType: export.ContentTypePDF, Body: body}, nil
}

// ClientPDF renders one of the client's invoices as facture_{id}.pdf.
func (s *ExportService) ClientPDF(ctx context.Context, clientID, id uint, lang string) (*export.File, error) {
	inv, err := s.invoices.GetClientInvoice(ctx, clientID, id)
	if err != nil {
		return nil, err
	}
	if err := s.gate.Authorize(ctx, gate.ActionExport, policy.ResourceInvoice, inv); err != nil {
		return nil, err
	}
	body, err := s.renderer.Render(s.document(inv, lang))
	if err != nil {
		return nil, apperr.Wrap(err)
	}
	return &export.File{Name: export.ClientFileName(id), ContentType: export.ContentTypePDF, Body: body}, nil
}

// Select resolves a selection. Ids are de-duplicated keeping the first
// occurrence, unknown ids are skipped and the input order is kept.
func (s *ExportService) Select(ctx context.Context, sel Selection) ([]models.Invoice, error) {
	if err := s.gate.Authorize(ctx, gate.ActionExport, policy.ResourceInvoice, nil); err != nil {
		return nil, err
	}
	q := s.db.WithContext(ctx).
		Preload("Order.Lines", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Preload("Order.Client")

	if len(sel.IDs) == 0 {
		var invoices []models.Invoice
		if err := s.invoices.applyFilter(q, sel.Filter).Order("issue_date").Order("id").Find(&invoices).Error; err != nil {
			return nil, apperr.Wrap(err)
		}
		return invoices, nil
	}

	ids := make([]uint, 0, len(sel.IDs))
	seen := make(map[uint]bool, len(sel.IDs))
	for _, id := range sel.IDs {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	var found []models.Invoice
	if err := q.Where("id IN ?", ids).Find(&found).Error; err != nil {
		return nil, apperr.Wrap(err)
	}
	byID := make(map[uint]models.Invoice, len(found))
	for _, inv := range found {
		byID[inv.ID] = inv
	}
	out := make([]models.Invoice, 0, len(found))
	for _, id := range ids {
		if inv, ok := byID[id]; ok {
			out = append(out, inv)
		}
	}
	return out, nil
}

func (s *ExportService) documents(ctx context.Context, sel Selection, lang string) ([]export.Document, error) {
	invoices, err := s.Select(ctx, sel)
	if err != nil {
		return nil, err
	}
	if len(invoices) == 0 {
		return nil, export.ErrEmptySelection
	}
	docs := make([]export.Document, len(invoices))
	for i := range invoices {
		docs[i] = s.document(&invoices[i], lang)
	}
	return docs, nil
}

// MultiPDF renders the selection into one PDF, one page group per invoice.
func (s *ExportService) MultiPDF(ctx context.Context, sel Selection, lang string) (*export.File, error) {
	docs, err := s.documents(ctx, sel, lang)
	if err != nil {
		return nil, err
	}
	body, err := s.renderer.Render(docs...)
	if err != nil {
		return nil, apperr.Wrap(err)
	}
	return &export.File{Name: export.MultiFileName(s.now()), ContentType: export.ContentTypePDF, Body: body}, nil
}

// Archive renders the selection as a ZIP of one PDF per invoice.
func (s *ExportService) Archive(ctx context.Context, sel Selection, lang string) (*export.File, error) {
	docs, err := s.documents(ctx, sel, lang)
	if err != nil {
		return nil, err
	}
	body, err := s.renderer.Archive(docs...)
	if err != nil {
		return nil, apperr.Wrap(err)
	}
	return &export.File{Name: export.ArchiveFileName(s.now()), ContentType: export.ContentTypeZIP, Body: body}, nil
}
