package formatter

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/futig/design-agent/internal/entity"
)

func redesignSession() *entity.SessionState {
	s := entity.NewSessionState("1700000000000-abcd1234", "c1", time.Unix(1700000000, 0))
	s.Flow = entity.FlowRedesign
	s.Responses.SetText(entity.FieldRedesignCurrentURL, "https://bakery.example")
	s.Responses.SetBool(entity.FieldRedesignReuseContent, false)
	s.Responses.SetText(entity.FieldRedesignAudience, "Families")
	s.Responses.SetText(entity.FieldRedesignIssues, "Outdated design|Other: slow")
	s.Responses.SetEntries(entity.FieldRedesignReferencesAndCompetitors, nil)
	s.Generation.AuditIssues = []string{"Low contrast"}
	s.Generation.HTML = "<html></html>"
	s.Rating = 4
	s.Email = "owner@bakery.example"
	return s
}

func TestSessionSummary(t *testing.T) {
	doc := SessionSummary(redesignSession())
	assert.Equal(t, "Design Brief", doc.Title)

	values := map[string]string{}
	for _, s := range doc.Sections {
		for _, l := range s.Lines {
			values[s.Heading+"/"+l.Label] = l.Value
		}
	}
	assert.Equal(t, "No", values["Answers/Reuse existing content"])
	assert.Equal(t, "Outdated design, Other: slow", values["Answers/What is not working"])
	assert.Equal(t, "None", values["Answers/References and competitors"])
	assert.Equal(t, "Low contrast", values["UI/UX audit/1"])
	assert.Equal(t, "yes", values["Outcome/Generated page"])
	assert.Equal(t, "4/5", values["Outcome/Rating"])
}

func TestExport_Markdown(t *testing.T) {
	summary, err := NewFactory().Export(entity.FormatMarkdown, redesignSession())
	require.NoError(t, err)

	assert.Equal(t, "design-brief-1700000000000-abcd1234.md", summary.Filename)
	assert.Equal(t, markdownContentType, summary.ContentType)
	assert.Contains(t, string(summary.Content), "# Design Brief")
	assert.Contains(t, string(summary.Content), "- **Current webpage:** https://bakery.example")
}

func TestExport_PDF(t *testing.T) {
	summary, err := NewFactory().Export(entity.FormatPDF, redesignSession())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(summary.Content, []byte("%PDF")))
}

func TestExport_UnknownFormat(t *testing.T) {
	_, err := NewFactory().Export(entity.ResultFormat("json"), redesignSession())
	assert.ErrorIs(t, err, entity.ErrInvalidParameter)
}

func TestFindFont(t *testing.T) {
	dir := t.TempDir()
	font := filepath.Join(dir, "DejaVuSans.ttf")
	require.NoError(t, os.WriteFile(font, []byte("ttf"), 0o600))

	assert.Equal(t, font, findFont([]string{filepath.Join(dir, "missing.ttf"), dir, font}))
	assert.Empty(t, findFont([]string{dir}))
}
