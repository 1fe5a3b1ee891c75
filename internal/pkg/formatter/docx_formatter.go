package formatter

import (
	"bytes"

	"github.com/unidoc/unioffice/document"
)

const (
	docxContentType   = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	docxFileExtension = ".docx"
)

type DOCXFormatter struct{}

func NewDOCXFormatter() *DOCXFormatter {
	return &DOCXFormatter{}
}

func (mf *DOCXFormatter) Format(doc Document) ([]byte, error) {
	d := document.New()
	defer d.Close()

	titlePar := d.AddParagraph()
	titlePar.SetStyle("Heading1")
	titlePar.AddRun().AddText(doc.Title)

	if doc.Subtitle != "" {
		sub := d.AddParagraph().AddRun()
		sub.Properties().SetItalic(true)
		sub.AddText(doc.Subtitle)
	}

	for _, s := range doc.Sections {
		heading := d.AddParagraph()
		heading.SetStyle("Heading2")
		heading.AddRun().AddText(s.Heading)

		for _, l := range s.Lines {
			par := d.AddParagraph()
			label := par.AddRun()
			label.Properties().SetBold(true)
			label.AddText(l.Label + ": ")

			value := par.AddRun()
			for i, line := range splitLines(l.Value) {
				if i > 0 {
					value.AddBreak()
				}
				value.AddText(line)
			}
		}
	}

	var buf bytes.Buffer
	if err := d.Save(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (mf *DOCXFormatter) ContentType() string {
	return docxContentType
}

func (mf *DOCXFormatter) FileExtension() string {
	return docxFileExtension
}
