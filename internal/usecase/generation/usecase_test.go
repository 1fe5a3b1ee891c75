package generation

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/futig/design-agent/internal/entity"
	"github.com/futig/design-agent/internal/pkg/retry"
)

const (
	testSpec = `{"page":"landing","sections":["hero","pricing"]}`
	testHTML = "<!DOCTYPE html><html><body><h1>Bakery</h1></body></html>"
)

type llmCall struct {
	vision bool
	model  entity.ModelRef
}

type fakeLLM struct {
	mu    sync.Mutex
	calls []llmCall
	fail  map[entity.ModelRef]error
	audit string
}

func (f *fakeLLM) record(vision bool, model entity.ModelRef) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, llmCall{vision: vision, model: model})
	return f.fail[model]
}

func (f *fakeLLM) GenerateText(_ context.Context, req entity.TextRequest) (string, error) {
	if err := f.record(false, req.Model); err != nil {
		return "", err
	}
	if strings.Contains(req.Prompt, testSpec) {
		return "```html\n" + testHTML + "\n```", nil
	}
	return "Here it is:\n```json\n" + testSpec + "\n```", nil
}

func (f *fakeLLM) AnalyzeImage(_ context.Context, req entity.ImageRequest) (string, error) {
	if err := f.record(true, req.Model); err != nil {
		return "", err
	}
	switch {
	case req.System != "":
		return testSpec, nil
	case f.audit != "":
		return f.audit, nil
	default:
		return `{"website_url":"x","user_likes_about_this":"clean","layout_notes":"grid"}`, nil
	}
}

type fakeScreenshotter struct {
	mu   sync.Mutex
	urls []string
	fail map[string]error
	text string
}

func (f *fakeScreenshotter) Capture(_ context.Context, url string, extractText bool) (*entity.Screenshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.urls = append(f.urls, url)
	if err := f.fail[url]; err != nil {
		return nil, err
	}
	shot := &entity.Screenshot{URL: url, Image: []byte{0x89, 'P', 'N', 'G'}}
	if extractText {
		shot.Text = f.text
	}
	return shot, nil
}

type fakeParser struct{}

func (fakeParser) Parse(string) (*entity.ReferenceAnalysis, error) {
	return &entity.ReferenceAnalysis{UserLikesAboutThis: "clean", LayoutNotes: "grid"}, nil
}

type recordingSink struct {
	mu       sync.Mutex
	progress []entity.Progress
	messages []entity.Message
}

func (s *recordingSink) Progress(_ context.Context, p entity.Progress) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.progress = append(s.progress, p)
}

func (s *recordingSink) Append(_ context.Context, m entity.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, m)
}

func (s *recordingSink) last() entity.Message {
	return s.messages[len(s.messages)-1]
}

type fixture struct {
	uc     *GenerationUsecase
	llm    *fakeLLM
	shots  *fakeScreenshotter
	sleeps []time.Duration
}

func testConfig() Config {
	return Config{
		AuditModel:       entity.ModelRef{Provider: entity.ProviderGemini, Model: "gemini-2.5-flash"},
		ReferenceModel:   entity.ModelRef{Provider: entity.ProviderGemini, Model: "gemini-2.5-flash"},
		SpecModel:        entity.ModelRef{Provider: entity.ProviderAnthropic, Model: "claude-opus-4-1"},
		HTMLPrimary:      entity.ModelRef{Provider: entity.ProviderAnthropic, Model: "claude-opus-4-1"},
		HTMLFallback:     entity.ModelRef{Provider: entity.ProviderAnthropic, Model: "claude-sonnet-4-5"},
		SameModelDelay:   5 * time.Second,
		HTMLDelay:        60 * time.Second,
		ProgressTick:     10 * time.Second,
		ScreenshotNotice: time.Second,
		Retry:            retry.RetryConfig{Attempts: 1},
	}
}

func newFixture(cfg Config) *fixture {
	f := &fixture{
		llm:   &fakeLLM{fail: map[entity.ModelRef]error{}},
		shots: &fakeScreenshotter{fail: map[string]error{}},
	}
	f.uc = NewUsecase(f.llm, f.shots, nil, fakeParser{}, cfg)
	f.uc.sleep = func(_ context.Context, d time.Duration) error {
		f.sleeps = append(f.sleeps, d)
		return nil
	}
	return f
}

func newWebsiteResponses() entity.Responses {
	r := entity.NewResponses()
	r.SetText(entity.FieldBusiness, "Bakery")
	r.SetText(entity.FieldAudience, "Locals")
	r.SetText(entity.FieldGoals, "Orders")
	r.SetText(entity.FieldPageType, "Landing Page")
	r.SetText(entity.FieldBrand, "")
	r.SetText(entity.FieldReferencesAndCompetitors, "")
	return r
}

func redesignResponses(currentURL string) entity.Responses {
	r := entity.NewResponses()
	r.SetText(entity.FieldRedesignCurrentURL, currentURL)
	r.SetBool(entity.FieldRedesignReuseContent, true)
	r.SetText(entity.FieldRedesignAudience, "Developers")
	r.SetText(entity.FieldRedesignIssues, "Slow loading|Other: Checkout breaks")
	r.SetText(entity.FieldRedesignReferencesAndCompetitors, "")
	return r
}

func TestRun_NewWebsiteWithoutReferences(t *testing.T) {
	f := newFixture(testConfig())
	sink := &recordingSink{}

	res := f.uc.Run(context.Background(), Request{SessionID: "s1", Flow: entity.FlowNewWebsite, Responses: newWebsiteResponses()}, sink)

	require.True(t, res.Success)
	assert.Equal(t, entity.StageDone, res.Stage)
	assert.Equal(t, testSpec, res.Specification)
	assert.Equal(t, testHTML, res.HTML)
	assert.Empty(t, f.shots.urls)

	cfg := testConfig()
	assert.Equal(t, []llmCall{
		{model: cfg.SpecModel},
		{model: cfg.HTMLPrimary},
	}, f.llm.calls)

	assert.Equal(t, entity.StageGeneratingSpecification, sink.progress[0].Stage)
	assert.Equal(t, msgReadyNew, sink.last().Text)
	assert.Equal(t, testHTML, sink.last().HTMLContent)
}

func TestRun_Pacing(t *testing.T) {
	f := newFixture(testConfig())
	sink := &recordingSink{}

	res := f.uc.Run(context.Background(), Request{Flow: entity.FlowNewWebsite, Responses: newWebsiteResponses()}, sink)
	require.True(t, res.Success)

	// six countdown ticks, then the same model pause before html
	assert.Equal(t, []time.Duration{
		10 * time.Second, 10 * time.Second, 10 * time.Second,
		10 * time.Second, 10 * time.Second, 10 * time.Second,
		5 * time.Second,
	}, f.sleeps)

	var countdown []string
	for _, p := range sink.progress {
		if p.Stage == entity.StagePreparingHTML {
			countdown = append(countdown, p.Message)
		}
	}
	require.NotEmpty(t, countdown)
	assert.Equal(t, progressPreparingNew+" (60s)", countdown[0])
	assert.Equal(t, progressPreparingNew+" (10s)", countdown[5])
}

func TestRun_HTMLFallback(t *testing.T) {
	cfg := testConfig()
	f := newFixture(cfg)
	f.llm.fail[cfg.HTMLPrimary] = &entity.ProviderError{Provider: "anthropic", Message: "overloaded", Code: "529"}
	// spec uses the primary model too, so route it elsewhere
	f.uc.cfg.SpecModel = entity.ModelRef{Provider: entity.ProviderOpenAI, Model: "gpt-5"}

	res := f.uc.Run(context.Background(), Request{Flow: entity.FlowNewWebsite, Responses: newWebsiteResponses()}, &recordingSink{})

	require.True(t, res.Success)
	require.Len(t, f.llm.calls, 3)
	assert.Equal(t, cfg.HTMLPrimary, f.llm.calls[1].model)
	assert.Equal(t, cfg.HTMLFallback, f.llm.calls[2].model)
}

func TestRun_FailureAsksForEmail(t *testing.T) {
	cfg := testConfig()
	f := newFixture(cfg)
	f.llm.fail[cfg.SpecModel] = errors.New("connection reset")
	sink := &recordingSink{}

	res := f.uc.Run(context.Background(), Request{Flow: entity.FlowNewWebsite, Responses: newWebsiteResponses()}, sink)

	assert.False(t, res.Success)
	var gf *entity.GenerationFailure
	require.ErrorAs(t, res.Err, &gf)
	assert.Equal(t, entity.StageGeneratingSpecification, gf.Stage)
	assert.Equal(t, entity.ErrorKindProvider, entity.KindOf(res.Err))

	last := sink.last()
	assert.Equal(t, msgGenerationFailed, last.Text)
	assert.Equal(t, entity.PromptEmail, last.Prompt)
	assert.NotContains(t, last.Text, "connection reset")
	assert.Equal(t, entity.StageFailed, sink.progress[len(sink.progress)-1].Stage)
}

func TestRun_MissingRequiredAnswer(t *testing.T) {
	f := newFixture(testConfig())
	sink := &recordingSink{}
	r := newWebsiteResponses()
	delete(r.Text, entity.FieldPageType)

	res := f.uc.Run(context.Background(), Request{Flow: entity.FlowNewWebsite, Responses: r}, sink)

	assert.True(t, res.IntegrityFailure)
	assert.Empty(t, f.llm.calls)
	require.Len(t, sink.messages, 1)
	assert.Equal(t, msgMissingInfo, sink.messages[0].Text)
}

func TestRun_RedesignWithoutURL(t *testing.T) {
	f := newFixture(testConfig())
	sink := &recordingSink{}

	res := f.uc.Run(context.Background(), Request{Flow: entity.FlowRedesign, Responses: redesignResponses("")}, sink)

	require.True(t, res.Success)
	assert.Empty(t, f.shots.urls)
	for _, c := range f.llm.calls {
		assert.False(t, c.vision)
	}
	assert.Equal(t, []string{noURLIssue}, res.AuditIssues)

	first := sink.messages[0]
	assert.Equal(t, msgNoURL, first.Text)
	assert.True(t, first.IsAudit)
	assert.Equal(t, msgReadyRedesign, sink.last().Text)
}

func TestRun_RedesignWithURL(t *testing.T) {
	cfg := testConfig()
	f := newFixture(cfg)
	f.llm.audit = "HIGH IMPACT:\n1. Low contrast\n2. No call to action"
	f.shots.text = "Welcome to our shop"
	sink := &recordingSink{}

	res := f.uc.Run(context.Background(), Request{Flow: entity.FlowRedesign, Responses: redesignResponses("https://example.com")}, sink)

	require.True(t, res.Success)
	assert.Equal(t, []string{"https://example.com"}, f.shots.urls)
	assert.Equal(t, []string{"Low contrast", "No call to action"}, res.AuditIssues)
	assert.Equal(t, "Welcome to our shop", res.ExtractedText)

	require.GreaterOrEqual(t, len(f.llm.calls), 3)
	assert.Equal(t, llmCall{vision: true, model: cfg.AuditModel}, f.llm.calls[0])
	assert.Equal(t, llmCall{vision: true, model: cfg.SpecModel}, f.llm.calls[1])

	assert.True(t, sink.progress[0].CapturingScreenshot)
	assert.Equal(t, progressAnalyzingPage, sink.progress[0].ScreenshotMessage)
	assert.Equal(t, progressReviewingPage, sink.progress[1].ScreenshotMessage)
	assert.Equal(t, msgAuditDone, sink.messages[0].Text)
}

func TestRun_ReferencesSkipFailures(t *testing.T) {
	cfg := testConfig()
	f := newFixture(cfg)
	f.shots.fail["https://broken.example"] = errors.New("timeout")

	r := newWebsiteResponses()
	r.SetEntries(entity.FieldReferencesAndCompetitors, []entity.ReferenceEntry{
		{URL: "https://stripe.com", Description: "clean pricing"},
		{URL: "https://broken.example", Description: "hero"},
		{URL: "http://127.0.0.1", Description: "local"},
	})

	res := f.uc.Run(context.Background(), Request{Flow: entity.FlowNewWebsite, Responses: r}, &recordingSink{})

	require.True(t, res.Success)
	require.Len(t, res.ReferenceAnalyses, 1)
	assert.Equal(t, "https://stripe.com", res.ReferenceAnalyses[0].WebsiteURL)
	assert.Equal(t, []string{"https://stripe.com", "https://broken.example"}, f.shots.urls)
	assert.Equal(t, llmCall{vision: true, model: cfg.ReferenceModel}, f.llm.calls[0])
}
