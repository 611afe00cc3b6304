package report

import (
	"io"

	"github.com/go-pdf/fpdf"
)

const (
	pageMargin  = 40.0
	labelHeight = 14.0
	lineHeight  = 16.0
)

func renderPDF(w io.Writer, doc Document, compress bool) error {
	pdf := fpdf.New("P", "pt", "Letter", "")
	pdf.SetCompression(compress)
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.SetAutoPageBreak(true, pageMargin)
	pdf.SetTitle(doc.Title, true)
	pdf.SetCreator("rightskeeper", true)

	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 22)
	pdf.SetTextColor(0x33, 0x33, 0x33)
	pdf.CellFormat(0, 28, "Incident Report", "", 1, "L", false, 0, "")

	pageWidth, _ := pdf.GetPageSize()
	y := pdf.GetY() + 4
	pdf.SetDrawColor(0xcc, 0xcc, 0xcc)
	pdf.Line(pageMargin, y, pageWidth-pageMargin, y)
	pdf.SetY(y + 12)

	section := func(label string, body string) {
		pdf.SetFont("Helvetica", "B", 9)
		pdf.SetTextColor(0x66, 0x66, 0x66)
		pdf.CellFormat(0, labelHeight, label, "", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 12)
		pdf.SetTextColor(0x11, 0x11, 0x11)
		pdf.MultiCell(0, lineHeight, tr(body), "", "L", false)
		pdf.Ln(10)
	}

	section("TITLE", doc.Title)
	section("DATE & TIME", doc.DateTime)
	section("LOCATION", doc.Location)
	section("AGENCY / OFFICER", doc.AgencyOfficer())
	section("NOTES", doc.Notes)

	evidence := doc.EvidenceSummary()
	for _, rec := range doc.Recordings {
		evidence += "\n" + rec.Name + " (" + rec.Duration + ", recorded " + rec.Recorded + ")"
	}
	section("EVIDENCE", evidence)

	pdf.SetFont("Helvetica", "I", 8)
	pdf.SetTextColor(0x99, 0x99, 0x99)
	pdf.CellFormat(0, labelHeight, tr("Generated "+doc.GeneratedAt), "", 1, "L", false, 0, "")

	if err := pdf.Error(); err != nil {
		return err
	}
	return pdf.Output(w)
}
