package generation

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"

	"github.com/futig/design-agent/internal/entity"
	"github.com/futig/design-agent/internal/pkg/extractor"
	"github.com/futig/design-agent/internal/pkg/logger"
	"github.com/futig/design-agent/internal/pkg/retry"
	"github.com/futig/design-agent/internal/pkg/validator"
)

const (
	msgNoURL            = "No webpage URL was provided for analysis. You can still proceed to generate a redesigned webpage."
	noURLIssue          = "No URL provided for analysis."
	msgAuditDone        = "I've completed the UI/UX audit of your webpage. Here are the high-impact issues I identified:"
	msgAuditEmpty       = "I've completed the UI/UX audit of your webpage. The analysis didn't identify any critical issues, or the response format was unexpected."
	msgReadyNew         = "Your webpage is ready! Here's a preview:"
	msgReadyRedesign    = "Your redesigned webpage is ready! Here's a preview:"
	msgGenerationFailed = "Our design assistant is overloaded right now. Please leave your email and an engineer will follow up with your design."
	msgMissingInfo      = "I'm missing some information needed to generate your webpage. Please refresh and try again."

	progressAnalyzingPage = "Analyzing your page"
	progressReviewingPage = "Reviewing your page"
	progressConnecting    = "Connecting to AI..."
	progressProcessing    = "Processing HTML..."
	progressPreparingNew  = "Preparing to generate your webpage..."
	progressPreparingRe   = "Preparing to generate your redesigned webpage..."
)

type Config struct {
	AuditModel     entity.ModelRef `env:"AUDIT_MODEL" envDefault:"gemini:gemini-2.5-flash"`
	ReferenceModel entity.ModelRef `env:"REFERENCE_MODEL" envDefault:"gemini:gemini-2.5-flash"`
	SpecModel      entity.ModelRef `env:"SPEC_MODEL" envDefault:"anthropic:claude-opus-4-1"`
	HTMLPrimary    entity.ModelRef `env:"HTML_PRIMARY_MODEL" envDefault:"anthropic:claude-opus-4-1"`
	HTMLFallback   entity.ModelRef `env:"HTML_FALLBACK_MODEL" envDefault:"anthropic:claude-sonnet-4-5"`

	SameModelDelay   time.Duration `env:"SAME_MODEL_DELAY" envDefault:"5s"`
	HTMLDelay        time.Duration `env:"HTML_DELAY" envDefault:"60s"`
	ProgressTick     time.Duration `env:"PROGRESS_TICK" envDefault:"10s"`
	ScreenshotNotice time.Duration `env:"SCREENSHOT_NOTICE" envDefault:"1s"`

	Retry retry.RetryConfig `envPrefix:"RETRY_"`
}

// GenerationUsecase sequences the post-questionnaire work of one session.
type GenerationUsecase struct {
	llm        LLM
	screenshot Screenshotter
	artifacts  ArtifactStore
	references ReferenceParser
	retrier    *retry.Retrier
	cfg        Config
	sleep      sleepFunc
}

func NewUsecase(
	llm LLM,
	screenshot Screenshotter,
	artifacts ArtifactStore,
	references ReferenceParser,
	cfg Config,
) *GenerationUsecase {
	return &GenerationUsecase{
		llm:        llm,
		screenshot: screenshot,
		artifacts:  artifacts,
		references: references,
		retrier:    retry.NewRetrier(&cfg.Retry),
		cfg:        cfg,
		sleep:      sleepContext,
	}
}

// run carries the state of one generation sequence.
type run struct {
	uc     *GenerationUsecase
	req    Request
	sink   Sink
	pacer  *pacer
	result Result
}

// Run executes the sequence of req.Flow. It never returns a raw provider error:
// failures are reported through the sink as the standard failure message.
func (uc *GenerationUsecase) Run(ctx context.Context, req Request, sink Sink) Result {
	ctx = logger.AddFields(ctx,
		zap.String("session_id", req.SessionID),
		zap.String("flow", string(req.Flow)),
	)

	r := &run{
		uc:     uc,
		req:    req,
		sink:   sink,
		pacer:  newPacer(uc.cfg.SameModelDelay, uc.sleep),
		result: Result{Stage: entity.StageIdle},
	}

	if err := r.checkRequired(); err != nil {
		ctxzap.Error(ctx, "generation started without required answers", zap.Error(err))
		r.result.IntegrityFailure = true
		r.result.Err = err
		sink.Append(ctx, entity.Message{Text: msgMissingInfo, Sender: entity.SenderBot})
		return r.result
	}

	var err error
	if req.Flow == entity.FlowRedesign {
		err = r.redesign(ctx)
	} else {
		err = r.newWebsite(ctx)
	}
	if err != nil {
		return r.fail(ctx, err)
	}

	ctxzap.Info(ctx, "generation finished")
	return r.result
}

func (r *run) checkRequired() error {
	resp := r.req.Responses
	switch r.req.Flow {
	case entity.FlowNewWebsite:
		if resp.String(entity.FieldPageType) == "" {
			return &entity.FlowIntegrityError{Flow: r.req.Flow, Index: -1, Reason: "page type is missing"}
		}
	case entity.FlowRedesign:
		if resp.String(entity.FieldRedesignAudience) == "" {
			return &entity.FlowIntegrityError{Flow: r.req.Flow, Index: -1, Reason: "audience is missing"}
		}
	default:
		return &entity.FlowIntegrityError{Flow: r.req.Flow, Index: -1, Reason: "no flow selected"}
	}
	return nil
}

func (r *run) newWebsite(ctx context.Context) error {
	analyses, err := r.analyzeReferences(ctx, entity.FieldReferencesAndCompetitors)
	if err != nil {
		return err
	}

	data := newPromptData(r.req.Responses, analyses)
	spec, err := r.specification(ctx, data, nil, loaderGeneratingSpecNew)
	if err != nil {
		return err
	}

	return r.html(ctx, data, spec, progressPreparingNew, msgReadyNew)
}

func (r *run) redesign(ctx context.Context) error {
	resp := r.req.Responses
	currentURL := resp.String(entity.FieldRedesignCurrentURL)
	reuse, _ := resp.Bool(entity.FieldRedesignReuseContent)

	var shot *entity.Screenshot
	if currentURL == "" {
		r.result.AuditIssues = []string{noURLIssue}
		r.sink.Append(ctx, entity.Message{
			Text:        msgNoURL,
			Sender:      entity.SenderBot,
			AuditIssues: []string{noURLIssue},
			IsAudit:     true,
		})
	} else {
		var err error
		shot, err = r.capturePage(ctx, currentURL, reuse)
		if err != nil {
			return err
		}
		if reuse && shot.Text != "" {
			r.result.ExtractedText = validator.Truncate(validator.SanitizeText(shot.Text), validator.MaxTextLength)
		}
	}

	analyses, err := r.analyzeReferences(ctx, entity.FieldRedesignReferencesAndCompetitors)
	if err != nil {
		return err
	}

	if shot != nil {
		if err := r.audit(ctx, shot); err != nil {
			return err
		}
	}

	data := newRedesignPromptData(resp, analyses, r.result.AuditIssues, r.result.ExtractedText, shot != nil)
	spec, err := r.specification(ctx, data, shot, loaderGeneratingSpecRedesign)
	if err != nil {
		return err
	}

	return r.html(ctx, data, spec, progressPreparingRe, msgReadyRedesign)
}

// capturePage takes the screenshot of the page being redesigned.
func (r *run) capturePage(ctx context.Context, pageURL string, extractText bool) (*entity.Screenshot, error) {
	r.sink.Progress(ctx, entity.Progress{
		Stage:               entity.StageCapturingScreenshot,
		Message:             loaderMessage(loaderReviewingPage, 0),
		CapturingScreenshot: true,
		ScreenshotMessage:   progressAnalyzingPage,
	})
	r.result.Stage = entity.StageCapturingScreenshot

	if err := r.uc.sleep(ctx, r.uc.cfg.ScreenshotNotice); err != nil {
		return nil, err
	}
	r.sink.Progress(ctx, entity.Progress{
		Stage:               entity.StageCapturingScreenshot,
		Message:             loaderMessage(loaderReviewingPage, 1),
		CapturingScreenshot: true,
		ScreenshotMessage:   progressReviewingPage,
	})

	safeURL, err := validator.NormalizeSafeURL(pageURL)
	if err != nil {
		return nil, fmt.Errorf("current page url: %w", err)
	}

	shot, err := retry.WithRetry(ctx, r.uc.retrier, "screenshot", func(ctx context.Context) (*entity.Screenshot, error) {
		return r.uc.screenshot.Capture(ctx, safeURL, extractText)
	})
	if err != nil {
		return nil, err
	}

	r.archiveScreenshot(ctx, "current.png", shot.Image)
	return shot, nil
}

// analyzeReferences runs the reference sites one after another. A failed site is skipped.
func (r *run) analyzeReferences(ctx context.Context, field entity.ResponseField) ([]entity.ReferenceAnalysis, error) {
	entries := r.req.Responses.Entries(field)
	if len(entries) == 0 {
		return nil, nil
	}

	r.result.Stage = entity.StageAnalyzingReferences

	var analyses []entity.ReferenceAnalysis
	for i, e := range entries {
		if e.URL == "" || e.Description == "" {
			continue
		}
		r.sink.Progress(ctx, entity.Progress{
			Stage:   entity.StageAnalyzingReferences,
			Message: loaderMessage(loaderAnalyzingReferences, i),
		})

		analysis, err := r.analyzeReference(ctx, e)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			ctxzap.Warn(ctx, "reference analysis skipped",
				zap.String("url", e.URL),
				zap.Error(err),
			)
			continue
		}
		analyses = append(analyses, *analysis)
	}

	r.result.ReferenceAnalyses = analyses
	return analyses, nil
}

func (r *run) analyzeReference(ctx context.Context, e entity.ReferenceEntry) (*entity.ReferenceAnalysis, error) {
	safeURL, err := validator.NormalizeSafeURL(e.URL)
	if err != nil {
		return nil, err
	}

	shot, err := retry.WithRetry(ctx, r.uc.retrier, "screenshot", func(ctx context.Context) (*entity.Screenshot, error) {
		return r.uc.screenshot.Capture(ctx, safeURL, false)
	})
	if err != nil {
		return nil, err
	}

	prompt, err := referencePrompt(e.Description)
	if err != nil {
		return nil, err
	}

	response, err := r.vision(ctx, r.uc.cfg.ReferenceModel, "", prompt, shot.Image)
	if err != nil {
		return nil, err
	}

	analysis, err := r.uc.references.Parse(response)
	if err != nil {
		return nil, err
	}
	analysis.WebsiteURL = safeURL
	return analysis, nil
}

// audit asks the vision model for the high-impact issues of the captured page.
func (r *run) audit(ctx context.Context, shot *entity.Screenshot) error {
	r.progress(ctx, entity.StageAuditing, loaderMessage(loaderReviewingPage, 2))

	prompt, err := auditPrompt()
	if err != nil {
		return err
	}
	response, err := r.vision(ctx, r.uc.cfg.AuditModel, "", prompt, shot.Image)
	if err != nil {
		return err
	}

	issues := extractor.AuditIssues(response)
	r.result.AuditIssues = issues

	if len(issues) == 0 {
		ctxzap.Warn(ctx, "no issues parsed from audit response")
		r.sink.Append(ctx, entity.Message{Text: msgAuditEmpty, Sender: entity.SenderBot})
		return nil
	}
	r.sink.Append(ctx, entity.Message{
		Text:        msgAuditDone,
		Sender:      entity.SenderBot,
		AuditIssues: issues,
		IsAudit:     true,
	})
	return nil
}

// specification generates the page specification and returns it as a JSON object string.
func (r *run) specification(ctx context.Context, data promptData, shot *entity.Screenshot, loader loaderType) (string, error) {
	r.progress(ctx, entity.StageGeneratingSpecification, loaderMessage(loader, 0))

	system, err := specSystemPrompt()
	if err != nil {
		return "", err
	}
	prompt, err := specPrompt(data)
	if err != nil {
		return "", err
	}

	var response string
	if shot != nil {
		response, err = r.vision(ctx, r.uc.cfg.SpecModel, system, prompt, shot.Image)
	} else {
		response, err = r.text(ctx, r.uc.cfg.SpecModel, system, prompt)
	}
	if err != nil {
		return "", err
	}

	if _, err := extractor.JSONObject(response); err != nil {
		return "", &entity.ProviderError{
			Provider: r.uc.cfg.SpecModel.String(),
			Message:  "specification is not a JSON object",
			Code:     "INVALID_RESPONSE",
			Err:      err,
		}
	}
	spec, _ := extractor.JSON(response)

	r.result.Specification = spec
	return spec, nil
}

// html waits out the pacing interval, generates the page with fallback and extracts the document.
func (r *run) html(ctx context.Context, data promptData, spec, preparing, ready string) error {
	if err := r.countdown(ctx, preparing); err != nil {
		return err
	}

	system, err := htmlSystemPrompt()
	if err != nil {
		return err
	}
	prompt, err := htmlPrompt(data, spec)
	if err != nil {
		return err
	}

	r.progress(ctx, entity.StageGeneratingHTML, progressConnecting)

	primary := func(ctx context.Context) (string, error) {
		return r.text(ctx, r.uc.cfg.HTMLPrimary, system, prompt)
	}

	var raw string
	if fallbackModel := r.uc.cfg.HTMLFallback; fallbackModel.IsZero() || fallbackModel == r.uc.cfg.HTMLPrimary {
		raw, err = primary(ctx)
	} else {
		raw, err = retry.WithFallback(ctx, "html", primary, func(ctx context.Context) (string, error) {
			return r.text(ctx, fallbackModel, system, prompt)
		})
	}
	if err != nil {
		return err
	}

	r.progress(ctx, entity.StageProcessingHTML, progressProcessing)

	page, err := extractor.HTML(raw)
	if err != nil {
		return &entity.ProviderError{
			Provider: "html",
			Message:  "response does not contain an html document",
			Code:     "INVALID_RESPONSE",
			Err:      err,
		}
	}

	r.archiveHTML(ctx, page)

	r.result.HTML = page
	r.result.Success = true
	r.result.Stage = entity.StageDone
	r.sink.Append(ctx, entity.Message{Text: ready, Sender: entity.SenderBot, HTMLContent: page})
	return nil
}

// countdown shows the remaining pacing time, refreshed every progress tick.
func (r *run) countdown(ctx context.Context, label string) error {
	total := r.uc.cfg.HTMLDelay
	tick := r.uc.cfg.ProgressTick
	if tick <= 0 || tick > total {
		tick = total
	}

	for remaining := total; remaining > 0; remaining -= tick {
		secs := int(math.Ceil(remaining.Seconds()))
		r.progress(ctx, entity.StagePreparingHTML, fmt.Sprintf("%s (%ds)", label, secs))
		if err := r.uc.sleep(ctx, min(tick, remaining)); err != nil {
			return err
		}
	}
	r.progress(ctx, entity.StagePreparingHTML, label)
	return nil
}

func (r *run) text(ctx context.Context, model entity.ModelRef, system, prompt string) (string, error) {
	if err := r.pacer.before(ctx, model); err != nil {
		return "", err
	}
	return retry.WithRetry(ctx, r.uc.retrier, model.String(), func(ctx context.Context) (string, error) {
		return r.uc.llm.GenerateText(ctx, entity.TextRequest{Model: model, System: system, Prompt: prompt, Search: true})
	})
}

func (r *run) vision(ctx context.Context, model entity.ModelRef, system, prompt string, image []byte) (string, error) {
	if err := r.pacer.before(ctx, model); err != nil {
		return "", err
	}
	return retry.WithRetry(ctx, r.uc.retrier, model.String(), func(ctx context.Context) (string, error) {
		return r.uc.llm.AnalyzeImage(ctx, entity.ImageRequest{Model: model, System: system, Prompt: prompt, Image: image})
	})
}

func (r *run) progress(ctx context.Context, stage entity.GenerationStage, message string) {
	r.result.Stage = stage
	r.sink.Progress(ctx, entity.Progress{Stage: stage, Message: message})
}

// fail reports any unrecovered error with the standard message. Provider text is only logged.
func (r *run) fail(ctx context.Context, err error) Result {
	failure := &entity.GenerationFailure{Stage: r.result.Stage, Err: err}

	fields := []zap.Field{zap.String("stage", string(r.result.Stage)), zap.Error(err)}
	var pe *entity.ProviderError
	if errors.As(err, &pe) {
		fields = append(fields, zap.String("provider", pe.Provider), zap.String("code", pe.Code))
	}
	ctxzap.Error(ctx, "generation failed", fields...)

	r.result.Success = false
	r.result.Err = failure
	r.sink.Progress(ctx, entity.Progress{Stage: entity.StageFailed})
	r.sink.Append(ctx, entity.Message{Text: msgGenerationFailed, Sender: entity.SenderBot, Prompt: entity.PromptEmail})
	return r.result
}

func (r *run) archiveScreenshot(ctx context.Context, name string, png []byte) {
	if r.uc.artifacts == nil || len(png) == 0 {
		return
	}
	if err := r.uc.artifacts.SaveScreenshot(ctx, r.req.SessionID, name, png); err != nil {
		ctxzap.Warn(ctx, "failed to archive screenshot", zap.Error(err))
	}
}

func (r *run) archiveHTML(ctx context.Context, page string) {
	if r.uc.artifacts == nil {
		return
	}
	if err := r.uc.artifacts.SaveHTML(ctx, r.req.SessionID, page); err != nil {
		ctxzap.Warn(ctx, "failed to archive html", zap.Error(err))
	}
}
