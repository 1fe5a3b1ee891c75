package formatter

import (
	"bytes"
	"fmt"
	"strings"
)

const (
	markdownContentType   = "text/markdown; charset=utf-8"
	markdownFileExtension = ".md"
)

type MarkdownFormatter struct{}

func NewMarkdownFormatter() *MarkdownFormatter {
	return &MarkdownFormatter{}
}

func (mf *MarkdownFormatter) Format(doc Document) ([]byte, error) {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "# %s\n\n", doc.Title)
	if doc.Subtitle != "" {
		fmt.Fprintf(&buf, "_%s_\n\n", doc.Subtitle)
	}

	for _, s := range doc.Sections {
		fmt.Fprintf(&buf, "## %s\n\n", s.Heading)
		for _, l := range s.Lines {
			value := strings.ReplaceAll(l.Value, "\n", "\n  ")
			fmt.Fprintf(&buf, "- **%s:** %s\n", l.Label, value)
		}
		buf.WriteString("\n")
	}
	return buf.Bytes(), nil
}

func (mf *MarkdownFormatter) ContentType() string {
	return markdownContentType
}

func (mf *MarkdownFormatter) FileExtension() string {
	return markdownFileExtension
}
