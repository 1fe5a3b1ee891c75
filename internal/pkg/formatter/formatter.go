package formatter

import (
	"fmt"
	"strings"

	"github.com/futig/design-agent/internal/entity"
)

// Section is a titled group of label/value lines.
type Section struct {
	Heading string
	Lines   []Line
}

type Line struct {
	Label string
	Value string
}

// Document is the format independent summary of a session.
type Document struct {
	Title    string
	Subtitle string
	Sections []Section
}

type Formatter interface {
	Format(doc Document) ([]byte, error)
	ContentType() string
	FileExtension() string
}

type Factory struct{}

func NewFactory() *Factory {
	return &Factory{}
}

func (f *Factory) Create(format entity.ResultFormat) (Formatter, error) {
	switch format {
	case entity.FormatMarkdown:
		return NewMarkdownFormatter(), nil
	case entity.FormatDOCX:
		return NewDOCXFormatter(), nil
	case entity.FormatPDF:
		return NewPDFFormatter(), nil
	default:
		return nil, fmt.Errorf("%w: unsupported format %q", entity.ErrInvalidParameter, format)
	}
}

// Export renders the session summary in the requested format.
func (f *Factory) Export(format entity.ResultFormat, session *entity.SessionState) (*entity.Summary, error) {
	fmtr, err := f.Create(format)
	if err != nil {
		return nil, err
	}

	content, err := fmtr.Format(SessionSummary(session))
	if err != nil {
		return nil, fmt.Errorf("format %s summary: %w", format, err)
	}

	return &entity.Summary{
		Filename:    "design-brief-" + session.ID + fmtr.FileExtension(),
		ContentType: fmtr.ContentType(),
		Content:     content,
	}, nil
}

func splitLines(s string) []string {
	return strings.Split(s, "\n")
}
