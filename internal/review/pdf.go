package review

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/kylejryan/healthcopilot/internal/models"

	"github.com/go-pdf/fpdf"
)

// PDFFilename is the download name of a record's summary.
func PDFFilename(formID string) string { return "prior_auth_" + formID + ".pdf" }

// SummaryPDF renders the record's details as a one-page PDF. It is generated on
// demand and never stored.
func (s *Service) SummaryPDF(ctx context.Context, formID string) ([]byte, error) {
	rec, err := s.Store.Get(ctx, formID)
	if err != nil {
		return nil, err
	}
	return RenderPDF(rec)
}

// SummaryHTML is the markup rendered into the summary PDF.
func SummaryHTML(rec models.PriorAuthRecord) string {
	var b strings.Builder
	item := func(label, value string) {
		fmt.Fprintf(&b, "<b>%s:</b> %s<br>", label, sanitize(value))
	}
	item("Provider", models.Deref(rec.Provider, "None"))
	item("NPI", models.Deref(rec.NPI, "None"))
	item("Urgency", models.Deref(rec.Urgency, "None"))
	item("Missing Fields", joinOrNone(rec.MissingFields))
	item("Suggested Action", rec.SuggestedAction)
	item("Status", string(rec.Status))
	item("Form ID", rec.FormID)
	if len(rec.AuditLog) > 0 {
		b.WriteString("<br><b>Audit Trail</b><br>")
		for _, e := range rec.AuditLog {
			comment := e.Comment
			if comment == "" {
				comment = "No comment"
			}
			fmt.Fprintf(&b, "%s: %s changed status to <i>%s</i> (%s)<br>",
				sanitize(e.Timestamp), sanitize(e.ChangedBy), e.NewStatus, sanitize(comment))
		}
	}
	return b.String()
}

// RenderPDF produces the summary document for rec.
func RenderPDF(rec models.PriorAuthRecord) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle("Prior Authorization Details", true)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 10, "Prior Authorization Details", "", 1, "L", false, 0, "")
	pdf.Ln(2)

	pdf.SetFont("Helvetica", "", 11)
	html := pdf.HTMLBasicNew()
	html.Write(6, tr(SummaryHTML(rec)))

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf %s: %w", rec.FormID, err)
	}
	return buf.Bytes(), nil
}

// sanitize keeps extracted values from being read as markup.
func sanitize(s string) string {
	return strings.NewReplacer("<", "(", ">", ")").Replace(s)
}
