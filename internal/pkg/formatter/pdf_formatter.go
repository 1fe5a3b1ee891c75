package formatter

import (
	"bytes"
	"os"

	"github.com/jung-kurt/gofpdf"
)

const (
	pdfContentType   = "application/pdf"
	pdfFileExtension = ".pdf"

	unicodeFamily = "DejaVuSans"
	coreFamily    = "Helvetica"
)

// fontCandidates lists where DejaVuSans.ttf is looked up, container layout first.
var fontCandidates = []string{
	"ttf/DejaVuSans.ttf",
	"internal/pkg/formatter/ttf/DejaVuSans.ttf",
	"/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf",
}

// PDFFormatter renders the summary with a UTF-8 font when one is installed.
// Otherwise it falls back to a core font and cp1252 translation, so non latin text degrades.
type PDFFormatter struct {
	fontPath string
}

func NewPDFFormatter() *PDFFormatter {
	return &PDFFormatter{fontPath: findFont(fontCandidates)}
}

func findFont(paths []string) string {
	for _, p := range paths {
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p
		}
	}
	return ""
}

func (mf *PDFFormatter) Format(doc Document) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	fontName := coreFamily
	text := pdf.UnicodeTranslatorFromDescriptor("")
	if mf.fontPath != "" {
		pdf.AddUTF8Font(unicodeFamily, "", mf.fontPath)
		pdf.AddUTF8Font(unicodeFamily, "B", mf.fontPath)
		fontName = unicodeFamily
		text = func(s string) string { return s }
	}

	pdf.SetFont(fontName, "B", 20)
	pdf.Cell(0, 10, text(doc.Title))
	pdf.Ln(12)

	if doc.Subtitle != "" {
		pdf.SetFont(fontName, "", 11)
		pdf.Cell(0, 8, text(doc.Subtitle))
		pdf.Ln(10)
	}

	for _, s := range doc.Sections {
		pdf.SetFont(fontName, "B", 14)
		pdf.Cell(0, 9, text(s.Heading))
		pdf.Ln(10)

		pdf.SetFont(fontName, "", 11)
		_, lineHeight := pdf.GetFontSize()
		for _, l := range s.Lines {
			pdf.MultiCell(0, lineHeight*1.5, text(l.Label+": "+l.Value), "", "", false)
		}
		pdf.Ln(4)
	}

	if err := pdf.Error(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (mf *PDFFormatter) ContentType() string {
	return pdfContentType
}

func (mf *PDFFormatter) FileExtension() string {
	return pdfFileExtension
}
