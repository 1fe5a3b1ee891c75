package conversation

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/futig/design-agent/internal/entity"
	"github.com/futig/design-agent/internal/usecase/generation"
)

type memStore struct {
	mu       sync.Mutex
	sessions map[string]*entity.SessionState
}

func newMemStore() *memStore {
	return &memStore{sessions: make(map[string]*entity.SessionState)}
}

func (m *memStore) Load(_ context.Context, id string) (*entity.SessionState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, entity.ErrSessionNotFound
	}
	return s.Clone(), nil
}

func (m *memStore) Save(_ context.Context, s *entity.SessionState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if prev, ok := m.sessions[s.ID]; ok && prev.UpdatedAt.After(s.UpdatedAt) {
		return nil
	}
	m.sessions[s.ID] = s.Clone()
	return nil
}

func (m *memStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

type memCounter struct {
	mu     sync.Mutex
	counts map[string]int
}

func (c *memCounter) Count(_ context.Context, clientID string) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counts[clientID], nil
}

func (c *memCounter) Increment(_ context.Context, clientID string) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts[clientID]++
	return c.counts[clientID], nil
}

type recordingNotifier struct {
	mu      sync.Mutex
	records []entity.SessionRecord
}

func (n *recordingNotifier) NotifySessionComplete(_ context.Context, r entity.SessionRecord) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.records = append(n.records, r)
	return nil
}

// stubGenerator succeeds or fails without touching any provider.
type stubGenerator struct {
	mu       sync.Mutex
	requests []generation.Request
	fail     bool
	release  chan struct{}
}

func (g *stubGenerator) Run(ctx context.Context, req generation.Request, sink generation.Sink) generation.Result {
	g.mu.Lock()
	g.requests = append(g.requests, req)
	g.mu.Unlock()

	if g.release != nil {
		<-g.release
	}

	sink.Progress(ctx, entity.Progress{Stage: entity.StageGeneratingHTML, Message: "Connecting to AI..."})
	if g.fail {
		sink.Append(ctx, entity.Message{Text: "overloaded", Sender: entity.SenderBot, Prompt: entity.PromptEmail})
		return generation.Result{Stage: entity.StageGeneratingSpecification}
	}
	sink.Append(ctx, entity.Message{Text: "ready", Sender: entity.SenderBot, HTMLContent: "<html></html>"})
	return generation.Result{Success: true, Stage: entity.StageDone, HTML: "<html></html>", Specification: "{}"}
}

type fixture struct {
	uc       *ConversationUsecase
	store    *memStore
	counter  *memCounter
	notifier *recordingNotifier
	gen      *stubGenerator
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:    newMemStore(),
		counter:  &memCounter{counts: make(map[string]int)},
		notifier: &recordingNotifier{},
		gen:      &stubGenerator{},
	}
	f.uc = NewUsecase(nil, f.gen, f.store, f.counter, f.notifier, nil, Config{SessionLimit: 2}, zap.NewNop())
	return f
}

func lastBot(v *entity.SessionView) entity.Message {
	for i := len(v.Messages) - 1; i >= 0; i-- {
		if v.Messages[i].Sender == entity.SenderBot {
			return v.Messages[i]
		}
	}
	return entity.Message{}
}

func (f *fixture) completeNewWebsite(t *testing.T, ctx context.Context, id string) {
	t.Helper()
	steps := []string{"New Webpage from Scratch", "Bakery", "Local families", "More orders", "Landing Page", "I don't have any"}
	for _, s := range steps {
		_, err := f.uc.SubmitFreeText(ctx, id, s)
		require.NoError(t, err, s)
	}
	_, err := f.uc.SubmitStructuredEntries(ctx, id, nil, true)
	require.NoError(t, err)
	f.uc.Wait()
}

func TestStartSession(t *testing.T) {
	f := newFixture(t)

	v, err := f.uc.StartSession(context.Background(), "browser-1")
	require.NoError(t, err)

	require.Len(t, v.Messages, 2)
	assert.Equal(t, msgWelcome, v.Messages[0].Text)
	assert.Equal(t, int64(1), v.Messages[0].ID)
	assert.Equal(t, int64(2), v.Messages[1].ID)
	assert.Equal(t, entity.PhaseInitial, v.Phase)
	assert.Equal(t, QuickActions, v.Options)
	assert.Regexp(t, `^\d+-[0-9a-f]{8}$`, v.SessionID)
}

func TestFlowChoice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	v, err := f.uc.StartSession(ctx, "c")
	require.NoError(t, err)

	v, err = f.uc.SubmitFreeText(ctx, v.SessionID, "hmm, not sure")
	require.NoError(t, err)
	assert.Equal(t, entity.PhaseUserChoice, v.Phase)
	assert.Equal(t, msgChooseFlow, lastBot(v).Text)

	v, err = f.uc.SubmitChoice(ctx, v.SessionID, ActionRedesign)
	require.NoError(t, err)
	assert.Equal(t, entity.FlowRedesign, v.Flow)
	assert.Equal(t, entity.PhaseRedesignCurrentURL, v.Phase)
	assert.Equal(t, "What is your current webpage URL (if you have one)?", lastBot(v).Text)
}

func TestScenarioA_NewWebsiteCompletesAfterSixAnswers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	v, err := f.uc.StartSession(ctx, "c")
	require.NoError(t, err)
	f.completeNewWebsite(t, ctx, v.SessionID)

	require.Len(t, f.gen.requests, 1)
	req := f.gen.requests[0]
	assert.Equal(t, entity.FlowNewWebsite, req.Flow)
	assert.Equal(t, "Bakery", req.Responses.String(entity.FieldBusiness))
	assert.Equal(t, "Landing Page", req.Responses.String(entity.FieldPageType))
	assert.Empty(t, req.Responses.Entries(entity.FieldReferencesAndCompetitors))

	v, err = f.uc.GetSession(ctx, v.SessionID)
	require.NoError(t, err)
	assert.Equal(t, entity.PhaseNewWebsiteComplete, v.Phase)
	assert.False(t, v.IsBusy)
	assert.True(t, v.HasHTML)
	assert.Equal(t, entity.WidgetRating, v.Widget)
	assert.Equal(t, entity.PromptRating, lastBot(v).Prompt)
}

func TestScenarioC_OtherAgainKeepsWaiting(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	v, err := f.uc.StartSession(ctx, "c")
	require.NoError(t, err)
	id := v.SessionID
	for _, s := range []string{"new website", "Bakery", "Families", "Orders", "Other"} {
		v, err = f.uc.SubmitFreeText(ctx, id, s)
		require.NoError(t, err)
	}
	assert.Equal(t, msgOtherPageType, lastBot(v).Text)
	assert.Empty(t, v.Options)
	assert.Equal(t, placeholderOther, v.Placeholder)

	v, err = f.uc.SubmitChoice(ctx, id, "Other")
	require.NoError(t, err)
	assert.Equal(t, msgOtherPageAgain, lastBot(v).Text)
	assert.Equal(t, entity.PhaseNewWebsitePageType, v.Phase)

	snap, err := f.uc.Snapshot(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, entity.FieldPageType, snap.Responses.WaitingForOtherInput)
	_, set := snap.Responses.Get(entity.FieldPageType)
	assert.False(t, set)
}

func TestMultiSelectToggleIsSilent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	v, err := f.uc.StartSession(ctx, "c")
	require.NoError(t, err)
	id := v.SessionID
	for _, s := range []string{"redesign", "", "No", "Busy founders"} {
		v, err = f.uc.SubmitFreeText(ctx, id, s)
		require.NoError(t, err, s)
	}
	require.Equal(t, entity.PhaseRedesignIssues, v.Phase)
	assert.True(t, v.MultiSelect)
	assert.Equal(t, []string{
		"It isn't generating enough leads or sales",
		"The design is outdated or doesn't fit our brand",
		"It provides a poor experience on mobile devices",
		"The site feels slow, clunky, or unresponsive",
		"It is too difficult for us to update content",
		OptionOther,
		OptionDoneIssues,
	}, v.Options)

	option := v.Options[0]
	before := len(v.Messages)
	v, err = f.uc.SubmitChoice(ctx, id, option)
	require.NoError(t, err)
	assert.Len(t, v.Messages, before)
	assert.Equal(t, []string{option}, v.Selected)

	v, err = f.uc.SubmitChoice(ctx, id, option)
	require.NoError(t, err)
	assert.Empty(t, v.Selected)

	v, err = f.uc.SubmitChoice(ctx, id, OptionDoneIssues)
	require.NoError(t, err)
	assert.Equal(t, msgEmptyIssues, lastBot(v).Text)
	assert.Equal(t, entity.PhaseRedesignIssues, v.Phase)
}

func TestReferencesRequireStructuredSubmission(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	v, err := f.uc.StartSession(ctx, "c")
	require.NoError(t, err)
	id := v.SessionID
	for _, s := range []string{"scratch", "Bakery", "Families", "Orders", "Home Page", "Blue and white"} {
		v, err = f.uc.SubmitFreeText(ctx, id, s)
		require.NoError(t, err)
	}
	require.Equal(t, entity.WidgetReferences, v.Widget)

	v, err = f.uc.SubmitFreeText(ctx, id, "")
	require.NoError(t, err)
	assert.Equal(t, msgUseReferences, lastBot(v).Text)
	assert.Equal(t, entity.PhaseNewWebsiteReferencesAndCompetitors, v.Phase)

	_, err = f.uc.SubmitStructuredEntries(ctx, id, nil, false)
	require.NoError(t, err)
	f.uc.Wait()
	assert.Empty(t, f.gen.requests)
}

func TestBusySessionRejectsInput(t *testing.T) {
	f := newFixture(t)
	f.gen.release = make(chan struct{})
	ctx := context.Background()

	v, err := f.uc.StartSession(ctx, "c")
	require.NoError(t, err)
	id := v.SessionID
	for _, s := range []string{"New Webpage from Scratch", "Bakery", "Families", "Orders", "Home Page", "I don't have any"} {
		_, err = f.uc.SubmitFreeText(ctx, id, s)
		require.NoError(t, err)
	}
	v, err = f.uc.SubmitStructuredEntries(ctx, id, nil, true)
	require.NoError(t, err)
	assert.True(t, v.IsBusy)
	assert.Equal(t, entity.WidgetNone, v.Widget)

	_, err = f.uc.SubmitFreeText(ctx, id, "hello?")
	assert.ErrorIs(t, err, entity.ErrSessionBusy)

	close(f.gen.release)
	f.uc.Wait()

	v, err = f.uc.GetSession(ctx, id)
	require.NoError(t, err)
	assert.False(t, v.IsBusy)
}

func TestLifecycle_LowRatingAsksFeedbackThenEmail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	v, err := f.uc.StartSession(ctx, "c")
	require.NoError(t, err)
	id := v.SessionID
	f.completeNewWebsite(t, ctx, id)

	_, err = f.uc.SubmitRating(ctx, id, 9)
	assert.ErrorIs(t, err, entity.ErrInvalidParameter)

	v, err = f.uc.SubmitRating(ctx, id, 2)
	require.NoError(t, err)
	assert.Equal(t, msgAskFeedback, lastBot(v).Text)
	assert.Equal(t, entity.WidgetFeedback, v.Widget)

	_, err = f.uc.SubmitRating(ctx, id, 5)
	assert.ErrorIs(t, err, entity.ErrWrongInput)

	v, err = f.uc.SubmitFreeText(ctx, id, "Too dark")
	require.NoError(t, err)
	assert.Equal(t, msgFeedbackThanks, lastBot(v).Text)
	assert.Equal(t, entity.WidgetEmail, v.Widget)

	_, err = f.uc.SubmitEmail(ctx, id, "nope")
	var verr *entity.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, msgInvalidEmail, verr.Message)

	v, err = f.uc.SubmitEmail(ctx, id, "Owner@Bakery.com")
	require.NoError(t, err)
	f.uc.Wait()

	assert.True(t, v.SessionClosed)
	assert.Equal(t, msgClosing, lastBot(v).Text)
	require.Len(t, f.notifier.records, 1)
	assert.Equal(t, "owner@bakery.com", f.notifier.records[0].Email)
	assert.Equal(t, 2, f.notifier.records[0].Rating)
	assert.Equal(t, "Too dark", f.notifier.records[0].Feedback)

	_, err = f.uc.SubmitFreeText(ctx, id, "more")
	assert.ErrorIs(t, err, entity.ErrSessionClosed)
}

func TestLifecycle_FailureGoesToEmail(t *testing.T) {
	f := newFixture(t)
	f.gen.fail = true
	ctx := context.Background()

	v, err := f.uc.StartSession(ctx, "c")
	require.NoError(t, err)
	f.completeNewWebsite(t, ctx, v.SessionID)

	v, err = f.uc.GetSession(ctx, v.SessionID)
	require.NoError(t, err)
	assert.Equal(t, entity.WidgetEmail, v.Widget)
	assert.False(t, v.HasHTML)

	_, err = f.uc.SubmitRating(ctx, v.SessionID, 5)
	assert.ErrorIs(t, err, entity.ErrWrongInput)

	v, err = f.uc.SubmitEmail(ctx, v.SessionID, "a@b.co")
	require.NoError(t, err)
	assert.True(t, v.SessionClosed)
}

func TestSessionCap(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	v, err := f.uc.StartSession(ctx, "browser")
	require.NoError(t, err)
	for i := 0; i < 2; i++ {
		f.completeNewWebsite(t, ctx, v.SessionID)
		_, err = f.uc.SubmitRating(ctx, v.SessionID, 5)
		require.NoError(t, err)
		v, err = f.uc.SubmitEmail(ctx, v.SessionID, "a@b.co")
		require.NoError(t, err)

		if i == 0 {
			assert.False(t, v.SessionLimitReached)
			v, err = f.uc.NewChat(ctx, v.SessionID)
			require.NoError(t, err)
		}
	}
	f.uc.Wait()

	assert.True(t, v.SessionLimitReached)

	_, err = f.uc.NewChat(ctx, v.SessionID)
	assert.ErrorIs(t, err, entity.ErrSessionLimitReached)
	_, err = f.uc.StartSession(ctx, "browser")
	assert.ErrorIs(t, err, entity.ErrSessionLimitReached)

	_, err = f.uc.StartSession(ctx, "another-browser")
	assert.NoError(t, err)
}

func TestSessionRestoredFromStore(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	v, err := f.uc.StartSession(ctx, "c")
	require.NoError(t, err)
	_, err = f.uc.SubmitFreeText(ctx, v.SessionID, "redesign")
	require.NoError(t, err)
	f.uc.Wait()

	restarted := NewUsecase(nil, f.gen, f.store, f.counter, f.notifier, nil, Config{SessionLimit: 2}, zap.NewNop())
	restored, err := restarted.GetSession(ctx, v.SessionID)
	require.NoError(t, err)
	assert.Equal(t, entity.PhaseRedesignCurrentURL, restored.Phase)

	_, err = restarted.GetSession(ctx, "missing")
	assert.ErrorIs(t, err, entity.ErrSessionNotFound)
}
