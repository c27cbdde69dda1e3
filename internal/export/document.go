// Package export turns invoices into printable documents.
//
// Build maps an invoice, its order and the issuer to an ordered list of
// layout blocks. The same blocks feed the PDF renderer and the JSON preview,
// so the layout is decided in one place.
package export

import (
	"strconv"
	"time"

	"github.com/diewo77/go-factures/i18n"
	"github.com/diewo77/go-factures/internal/config"
	"github.com/diewo77/go-factures/internal/models"
	"github.com/shopspring/decimal"
)

// Kind names a layout block.
type Kind string

const (
	KindTitle    Kind = "title"
	KindIssuer   Kind = "issuer"
	KindMetadata Kind = "metadata"
	KindClient   Kind = "client"
	KindOrder    Kind = "order"
	KindLines    Kind = "lines"
	KindTotals   Kind = "totals"
	KindPayment  Kind = "payment"
	KindFooter   Kind = "footer"
)

const (
	dateLayout     = "02/01/2006"
	dateTimeLayout = "02/01/2006 15:04"
)

type Field struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

type Table struct {
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

// Block is one section of a document. Which of Title, Text, Fields and
// Table are set depends on Kind.
type Block struct {
	Kind   Kind     `json:"kind"`
	Title  string   `json:"title,omitempty"`
	Text   []string `json:"text,omitempty"`
	Fields []Field  `json:"fields,omitempty"`
	Table  *Table   `json:"table,omitempty"`
}

// Document is the block list of one invoice.
type Document struct {
	InvoiceID uint    `json:"invoice_id"`
	Number    string  `json:"number"`
	Blocks    []Block `json:"blocks"`
}

// Source is everything Build needs. Invoice.Order should carry its lines
// and client; without them the order and line blocks are left empty.
type Source struct {
	Invoice  *models.Invoice
	Issuer   config.IssuerConfig
	Lang     string
	Currency string
	Location *time.Location
}

// Build lays out one invoice: title, issuer, metadata, client, order
// details, line table, totals, payment method (when set) and footer.
func Build(src Source) Document {
	inv := src.Invoice
	lang := src.Lang
	if !i18n.Supported(lang) {
		lang = i18n.DefaultLang
	}
	loc := src.Location
	if loc == nil {
		loc = time.Local
	}
	money := func(d decimal.Decimal) string {
		if src.Currency == "" {
			return d.StringFixed(2)
		}
		return d.StringFixed(2) + " " + src.Currency
	}
	t := func(code string) string { return i18n.T(lang, code) }

	blocks := []Block{
		{Kind: KindTitle, Title: t("doc.title")},
		issuerBlock(src.Issuer, t),
	}

	meta := []Field{
		{Label: t("doc.number"), Value: inv.Number},
		{Label: t("doc.date"), Value: inv.IssueDate.In(loc).Format(dateLayout)},
		{Label: t("doc.status"), Value: i18n.Label(lang, "invoice_status", string(inv.Status))},
	}
	if inv.Status == models.InvoiceStatusPaid && inv.PaymentDate != nil {
		meta = append(meta, Field{Label: t("doc.paid_on"), Value: inv.PaymentDate.In(loc).Format(dateLayout)})
	}
	blocks = append(blocks, Block{Kind: KindMetadata, Fields: meta})

	client := Block{Kind: KindClient, Title: t("doc.billed_to")}
	order := inv.Order
	switch {
	case order != nil && order.Client != nil:
		client.Text = []string{order.Client.FullName(), order.Client.Email}
	case inv.ClientName != "":
		client.Text = []string{inv.ClientName}
	}
	blocks = append(blocks, client)

	details := Block{Kind: KindOrder, Title: t("doc.order_details")}
	lines := &Table{Columns: []string{
		t("doc.col_product"), t("doc.col_qty"), t("doc.col_unit_price"), t("doc.col_vat"), t("doc.col_total"),
	}}
	if order != nil {
		details.Fields = []Field{
			{Label: t("doc.order_number"), Value: order.Number},
			{Label: t("doc.order_date"), Value: order.CreatedAt.In(loc).Format(dateTimeLayout)},
			{Label: t("doc.order_status"), Value: i18n.Label(lang, "order_status", string(order.Status))},
		}
		vat := inv.VATRate.String() + "%"
		for _, l := range order.Lines {
			lines.Rows = append(lines.Rows, []string{
				l.ProductName,
				strconv.Itoa(l.Quantity),
				money(l.UnitPrice),
				vat,
				money(l.Subtotal),
			})
		}
	}
	blocks = append(blocks,
		details,
		Block{Kind: KindLines, Table: lines},
		Block{Kind: KindTotals, Fields: []Field{
			{Label: t("doc.subtotal"), Value: money(inv.AmountHT)},
			{Label: t("doc.vat") + " (" + inv.VATRate.String() + "%)", Value: money(inv.AmountVAT)},
			{Label: t("doc.total"), Value: money(inv.AmountTTC)},
		}},
	)
	if inv.PaymentMode != "" {
		blocks = append(blocks, Block{Kind: KindPayment, Fields: []Field{
			{Label: t("doc.payment_mode"), Value: i18n.Label(lang, "payment_mode", string(inv.PaymentMode))},
		}})
	}
	blocks = append(blocks, Block{Kind: KindFooter, Text: []string{t("doc.footer")}})

	return Document{InvoiceID: inv.ID, Number: inv.Number, Blocks: blocks}
}

func issuerBlock(is config.IssuerConfig, t func(string) string) Block {
	b := Block{Kind: KindIssuer, Title: is.Name}
	for _, s := range []string{is.Address, is.City, is.Country} {
		if s != "" {
			b.Text = append(b.Text, s)
		}
	}
	if is.Phone != "" {
		b.Text = append(b.Text, t("doc.phone")+": "+is.Phone)
	}
	if is.Email != "" {
		b.Text = append(b.Text, t("doc.email")+": "+is.Email)
	}
	return b
}

// Kinds returns the block kinds of d in order.
func (d Document) Kinds() []Kind {
	out := make([]Kind, len(d.Blocks))
	for i, b := range d.Blocks {
		out[i] = b.Kind
	}
	return out
}
