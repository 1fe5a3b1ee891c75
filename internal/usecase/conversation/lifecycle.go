package conversation

import (
	"context"
	"errors"
	"fmt"

	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"github.com/futig/design-agent/internal/entity"
	"github.com/futig/design-agent/internal/pkg/validator"
	"github.com/futig/design-agent/internal/usecase/generation"
)

// SubmitRating records the 1..5 score of the generated design.
func (uc *ConversationUsecase) SubmitRating(ctx context.Context, sessionID string, score int) (*entity.SessionView, error) {
	if score < 1 || score > 5 {
		return nil, fmt.Errorf("%w: rating must be between 1 and 5", entity.ErrInvalidParameter)
	}
	return uc.mutate(ctx, sessionID, "submit_rating", func(ctx context.Context, s *entity.SessionState) error {
		if !s.RatingRequested || s.RatingCompleted {
			return fmt.Errorf("%w: rating was not requested", entity.ErrWrongInput)
		}

		s.RatingCompleted = true
		s.Rating = score
		s.AppendUser(fmt.Sprintf(msgRatingEcho, score))

		if score < 4 {
			s.FeedbackRequested = true
			s.Append(entity.Message{Text: msgAskFeedback, Sender: entity.SenderBot, Prompt: entity.PromptFeedback})
		} else {
			s.EmailRequested = true
			s.Append(entity.Message{Text: msgAskEmail, Sender: entity.SenderBot, Prompt: entity.PromptEmail})
		}

		ctxzap.Info(ctx, "design rated", zap.Int("rating", score))
		return nil
	})
}

// SubmitFeedback records what the user did not like and asks for the email.
func (uc *ConversationUsecase) SubmitFeedback(ctx context.Context, sessionID, text string) (*entity.SessionView, error) {
	return uc.mutate(ctx, sessionID, "submit_feedback", func(ctx context.Context, s *entity.SessionState) error {
		return uc.submitFeedback(s, text)
	})
}

// SubmitEmail closes the session and sends the notification in the background.
func (uc *ConversationUsecase) SubmitEmail(ctx context.Context, sessionID, email string) (*entity.SessionView, error) {
	return uc.mutate(ctx, sessionID, "submit_email", func(ctx context.Context, s *entity.SessionState) error {
		return uc.submitEmail(ctx, s, email)
	})
}

// handleLifecycleText routes typed text after the questionnaire to the pending prompt.
func (uc *ConversationUsecase) handleLifecycleText(ctx context.Context, s *entity.SessionState, text string) error {
	switch {
	case s.FeedbackRequested && s.Feedback == "":
		return uc.submitFeedback(s, text)
	case s.EmailRequested && s.Email == "":
		return uc.submitEmail(ctx, s, text)
	default:
		return fmt.Errorf("%w: nothing is awaited at phase %s", entity.ErrWrongInput, s.Phase)
	}
}

func (uc *ConversationUsecase) submitFeedback(s *entity.SessionState, text string) error {
	if !s.FeedbackRequested || s.Feedback != "" {
		return fmt.Errorf("%w: feedback was not requested", entity.ErrWrongInput)
	}

	clean, err := validator.ValidateText(text, validator.MaxTextLength)
	if errors.Is(err, entity.ErrMissingField) {
		return &entity.ValidationError{Message: msgEmptyFeedback}
	}
	if err != nil {
		return &entity.ValidationError{Message: fmt.Sprintf(msgTooLong, validator.MaxTextLength)}
	}

	s.Feedback = clean
	s.AppendUser(clean)
	s.EmailRequested = true
	s.Append(entity.Message{Text: msgFeedbackThanks, Sender: entity.SenderBot, Prompt: entity.PromptEmail})
	return nil
}

func (uc *ConversationUsecase) submitEmail(ctx context.Context, s *entity.SessionState, raw string) error {
	if !s.EmailRequested || s.Email != "" {
		return fmt.Errorf("%w: email was not requested", entity.ErrWrongInput)
	}
	email, err := validator.ValidateEmail(raw)
	if err != nil {
		return &entity.ValidationError{Message: msgInvalidEmail}
	}

	s.Email = email
	s.AppendUser(email)
	s.AppendBot(msgClosing)
	s.Closed = true

	if _, err := uc.counter.Increment(ctx, s.ClientID); err != nil {
		ctxzap.Error(ctx, "failed to increment session counter",
			zap.Error(&entity.PersistenceError{Op: "increment", SessionID: s.ID, Err: err}))
	}

	record := entity.NewSessionRecord(s)
	uc.detach(ctx, "notify", func(ctx context.Context) {
		if uc.notifier == nil {
			return
		}
		if err := uc.notifier.NotifySessionComplete(ctx, record); err != nil {
			ctxzap.Warn(ctx, "session notification failed",
				zap.Error(&entity.NotificationError{SessionID: record.SessionID, Err: err}))
		}
	})

	ctxzap.Info(ctx, "session closed")
	return nil
}

// startGeneration marks the session busy and runs the generator in the background.
func (uc *ConversationUsecase) startGeneration(ctx context.Context, s *entity.SessionState) {
	s.Busy = true
	s.Progress = entity.Progress{Stage: entity.StageIdle}
	s.Generation = entity.GenerationOutcome{}

	req := generation.Request{
		SessionID: s.ID,
		Flow:      s.Flow,
		Responses: s.Responses.Clone(),
	}
	sink := &sessionSink{uc: uc, session: s}

	ctxzap.Info(ctx, "questionnaire complete, starting generation", zap.String("flow", string(s.Flow)))

	uc.detach(ctx, "generate", func(ctx context.Context) {
		result := uc.generator.Run(ctx, req, sink)
		uc.finishGeneration(ctx, s, result)
	})
}

func (uc *ConversationUsecase) finishGeneration(ctx context.Context, s *entity.SessionState, result generation.Result) {
	unlock := uc.lock(s.ID)
	defer unlock()

	lastID := s.NextMessageID - 1

	s.Busy = false
	s.Responses.ReferenceAnalyses = result.ReferenceAnalyses
	if result.ExtractedText != "" {
		s.Responses.SetText(entity.FieldRedesignExtractedText, result.ExtractedText)
	}
	s.Generation = entity.GenerationOutcome{
		Specification: result.Specification,
		HTML:          result.HTML,
		AuditIssues:   result.AuditIssues,
		Failed:        !result.Success,
	}

	switch {
	case result.Success:
		s.Progress = entity.Progress{Stage: entity.StageDone}
		uc.requestRating(s)
	case result.IntegrityFailure:
		s.Progress = entity.Progress{Stage: entity.StageIdle}
	default:
		s.Progress = entity.Progress{Stage: entity.StageFailed}
		s.EmailRequested = true
		ctxzap.Error(ctx, "generation failed",
			zap.String("stage", string(result.Stage)),
			zap.Error(result.Err),
		)
	}

	uc.commit(ctx, s, lastID)
}

// requestRating enqueues the rating prompt once per completed generation.
func (uc *ConversationUsecase) requestRating(s *entity.SessionState) {
	if s.Closed || s.RatingRequested {
		return
	}
	s.RatingRequested = true
	s.Append(entity.Message{Text: msgRatingPrompt, Sender: entity.SenderBot, Prompt: entity.PromptRating})
}

// sessionSink applies generator callbacks to the session it was started for.
type sessionSink struct {
	uc      *ConversationUsecase
	session *entity.SessionState
}

func (k *sessionSink) Progress(ctx context.Context, p entity.Progress) {
	unlock := k.uc.lock(k.session.ID)
	defer unlock()

	k.session.Progress = p
	k.uc.live.Set(k.session.ID, k.session, cache.DefaultExpiration)

	if k.uc.publisher != nil {
		progress := p
		k.uc.publisher.Publish(entity.SessionEvent{
			Type:      entity.EventProgress,
			SessionID: k.session.ID,
			Progress:  &progress,
			Busy:      k.session.Busy,
		})
	}
}

func (k *sessionSink) Append(ctx context.Context, m entity.Message) {
	unlock := k.uc.lock(k.session.ID)
	defer unlock()

	lastID := k.session.NextMessageID - 1
	k.session.Append(m)
	k.uc.commit(ctx, k.session, lastID)
}
