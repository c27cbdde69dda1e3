// Package i18n holds translation tables for labels and messages (fr, en).
package i18n

import "strings"

const DefaultLang = "fr"

var messages = map[string]map[string]string{
	"fr": {
		"required":         "Requis",
		"must_be_positive": "Doit être positif",
		"invalid_email":    "Adresse e-mail invalide",
		"too_short":        "Trop court",
		"out_of_range":     "Hors limites",
		"invalid_value":    "Valeur invalide",

		"order_status.EN_ATTENTE":     "En attente",
		"order_status.CONFIRMEE":      "Confirmée",
		"order_status.EN_PREPARATION": "En préparation",
		"order_status.PRETE":          "Prête",
		"order_status.EN_LIVRAISON":   "En livraison",
		"order_status.LIVREE":         "Livrée",
		"order_status.PAYEE":          "Payée",
		"order_status.ANNULEE":        "Annulée",

		"invoice_status.EN_ATTENTE": "En attente",
		"invoice_status.PAYEE":      "Payée",
		"invoice_status.ANNULEE":    "Annulée",

		"payment_mode.ESPECES":        "Espèces",
		"payment_mode.CARTE_BANCAIRE": "Carte bancaire",
		"payment_mode.CHEQUE":         "Chèque",
		"payment_mode.VIREMENT":       "Virement",

		"doc.title":          "FACTURE",
		"doc.number":         "Numéro",
		"doc.date":           "Date",
		"doc.status":         "Statut",
		"doc.paid_on":        "Payée le",
		"doc.billed_to":      "FACTURÉ À:",
		"doc.order_details":  "DÉTAILS DE LA COMMANDE:",
		"doc.order_number":   "Commande N°",
		"doc.order_date":     "Date commande",
		"doc.order_status":   "Statut commande",
		"doc.col_product":    "Produit",
		"doc.col_qty":        "Qté",
		"doc.col_unit_price": "Prix Unit.",
		"doc.col_vat":        "TVA",
		"doc.col_total":      "Total",
		"doc.subtotal":       "Sous-total HT",
		"doc.vat":            "TVA",
		"doc.total":          "TOTAL TTC",
		"doc.payment_mode":   "Mode de paiement",
		"doc.phone":          "Tél",
		"doc.email":          "Email",
		"doc.footer":         "Merci pour votre confiance !",
	},
	"en": {
		"required":         "Required",
		"must_be_positive": "Must be positive",
		"invalid_email":    "Invalid email address",
		"too_short":        "Too short",
		"out_of_range":     "Out of range",
		"invalid_value":    "Invalid value",

		"order_status.EN_ATTENTE":     "Pending",
		"order_status.CONFIRMEE":      "Confirmed",
		"order_status.EN_PREPARATION": "In preparation",
		"order_status.PRETE":          "Ready",
		"order_status.EN_LIVRAISON":   "Out for delivery",
		"order_status.LIVREE":         "Delivered",
		"order_status.PAYEE":          "Paid",
		"order_status.ANNULEE":        "Cancelled",

		"invoice_status.EN_ATTENTE": "Pending",
		"invoice_status.PAYEE":      "Paid",
		"invoice_status.ANNULEE":    "Cancelled",

		"payment_mode.ESPECES":        "Cash",
		"payment_mode.CARTE_BANCAIRE": "Credit card",
		"payment_mode.CHEQUE":         "Cheque",
		"payment_mode.VIREMENT":       "Bank transfer",

		"doc.title":          "INVOICE",
		"doc.number":         "Number",
		"doc.date":           "Date",
		"doc.status":         "Status",
		"doc.paid_on":        "Paid on",
		"doc.billed_to":      "BILLED TO:",
		"doc.order_details":  "ORDER DETAILS:",
		"doc.order_number":   "Order No.",
		"doc.order_date":     "Order date",
		"doc.order_status":   "Order status",
		"doc.col_product":    "Product",
		"doc.col_qty":        "Qty",
		"doc.col_unit_price": "Unit price",
		"doc.col_vat":        "VAT",
		"doc.col_total":      "Total",
		"doc.subtotal":       "Subtotal",
		"doc.vat":            "VAT",
		"doc.total":          "TOTAL",
		"doc.payment_mode":   "Payment method",
		"doc.phone":          "Phone",
		"doc.email":          "Email",
		"doc.footer":         "Thank you for your business!",
	},
}

// DetectLanguage picks a supported language from an Accept-Language header.
func DetectLanguage(header string) string {
	for _, part := range strings.Split(header, ",") {
		tag := strings.TrimSpace(strings.SplitN(part, ";", 2)[0])
		base := strings.ToLower(strings.SplitN(tag, "-", 2)[0])
		if _, ok := messages[base]; ok {
			return base
		}
	}
	return DefaultLang
}

// Supported reports whether lang has a translation table.
func Supported(lang string) bool {
	_, ok := messages[lang]
	return ok
}

// T translates code, falling back to French and then to the code itself.
func T(lang, code string) string {
	if m, ok := messages[lang]; ok {
		if s, ok := m[code]; ok {
			return s
		}
	}
	if s, ok := messages[DefaultLang][code]; ok {
		return s
	}
	return code
}

// Label translates an enumeration value, e.g. Label("fr", "payment_mode", "CHEQUE").
func Label(lang, enum, value string) string {
	if value == "" {
		return ""
	}
	return T(lang, enum+"."+value)
}
