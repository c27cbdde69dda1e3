package export

import (
	"bytes"
	"fmt"
	"time"

	"github.com/klauspost/compress/zip"
)

const (
	ContentTypePDF = "application/pdf"
	ContentTypeZIP = "application/zip"
)

// File is a rendered download.
type File struct {
	Name        string
	ContentType string
	Body        []byte
}

// Archive renders each document as its own PDF and zips them in order.
func (r *PDFRenderer) Archive(docs ...Document) ([]byte, error) {
	if len(docs) == 0 {
		return nil, ErrEmptySelection
	}
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	modified := r.clock()
	for _, doc := range docs {
		body, err := r.Render(doc)
		if err != nil {
			return nil, fmt.Errorf("render %s: %w", doc.Number, err)
		}
		w, err := zw.CreateHeader(&zip.FileHeader{
			Name:     EntryName(doc),
			Method:   zip.Deflate,
			Modified: modified,
		})
		if err != nil {
			return nil, err
		}
		if _, err := w.Write(body); err != nil {
			return nil, err
		}
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// EntryName is the archive entry of one invoice: facture_{number}.pdf.
func EntryName(doc Document) string {
	return "facture_" + doc.Number + ".pdf"
}

func SingleFileName(invoiceID uint, day time.Time) string {
	return fmt.Sprintf("facture_%d_%s.pdf", invoiceID, day.Format("20060102"))
}

func MultiFileName(day time.Time) string {
	return "factures_export_" + day.Format("20060102") + ".pdf"
}

func ArchiveFileName(day time.Time) string {
	return "factures_" + day.Format("20060102") + ".zip"
}

func ClientFileName(invoiceID uint) string {
	return fmt.Sprintf("facture_%d.pdf", invoiceID)
}
