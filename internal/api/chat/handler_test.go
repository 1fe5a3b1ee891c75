package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/futig/design-agent/internal/entity"
	"github.com/futig/design-agent/internal/pkg/validator"
)

type fakeUsecase struct {
	view     *entity.SessionView
	state    *entity.SessionState
	err      error
	clientID string
	text     string
	entries  []entity.ReferenceEntry
	none     bool
	score    int
}

func (f *fakeUsecase) StartSession(_ context.Context, clientID string) (*entity.SessionView, error) {
	f.clientID = clientID
	return f.view, f.err
}

func (f *fakeUsecase) NewChat(context.Context, string) (*entity.SessionView, error) {
	return f.view, f.err
}

func (f *fakeUsecase) GetSession(context.Context, string) (*entity.SessionView, error) {
	return f.view, f.err
}

func (f *fakeUsecase) Snapshot(context.Context, string) (*entity.SessionState, error) {
	return f.state, f.err
}

func (f *fakeUsecase) SubmitFreeText(_ context.Context, _, text string) (*entity.SessionView, error) {
	f.text = text
	return f.view, f.err
}

func (f *fakeUsecase) SubmitChoice(_ context.Context, _, label string) (*entity.SessionView, error) {
	f.text = label
	return f.view, f.err
}

func (f *fakeUsecase) SubmitStructuredEntries(_ context.Context, _ string, entries []entity.ReferenceEntry, none bool) (*entity.SessionView, error) {
	f.entries, f.none = entries, none
	return f.view, f.err
}

func (f *fakeUsecase) SubmitRating(_ context.Context, _ string, score int) (*entity.SessionView, error) {
	f.score = score
	return f.view, f.err
}

func (f *fakeUsecase) SubmitFeedback(_ context.Context, _, text string) (*entity.SessionView, error) {
	f.text = text
	return f.view, f.err
}

func (f *fakeUsecase) SubmitEmail(_ context.Context, _, email string) (*entity.SessionView, error) {
	f.text = email
	return f.view, f.err
}

func (f *fakeUsecase) LimitMessage() string {
	return "You have reached the session limit."
}

type fakeExporter struct {
	format entity.ResultFormat
}

func (e *fakeExporter) Export(format entity.ResultFormat, session *entity.SessionState) (*entity.Summary, error) {
	e.format = format
	return &entity.Summary{
		Filename:    "design-brief-" + session.ID + ".md",
		ContentType: "text/markdown; charset=utf-8",
		Content:     []byte("# Design brief"),
	}, nil
}

type fakeEvents struct {
	ch chan entity.SessionEvent
}

func (e *fakeEvents) Subscribe(context.Context, string) (<-chan entity.SessionEvent, error) {
	return e.ch, nil
}

func newTestRouter(uc *fakeUsecase, exp *fakeExporter, events *fakeEvents) http.Handler {
	r := chi.NewRouter()
	RegisterRoutes(r, NewHandler(uc, exp, events, validator.New()), 5*time.Second)
	return r
}

func do(t *testing.T, h http.Handler, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestStartSession(t *testing.T) {
	uc := &fakeUsecase{view: &entity.SessionView{SessionID: "s1", Widget: entity.WidgetChoice}}
	h := newTestRouter(uc, &fakeExporter{}, &fakeEvents{})

	rec := do(t, h, http.MethodPost, "/chat/sessions", "", "X-Client-ID", "browser-1")
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "browser-1", uc.clientID)

	var view entity.SessionView
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&view))
	assert.Equal(t, "s1", view.SessionID)

	rec = do(t, h, http.MethodPost, "/chat/sessions", `{"client_id":"browser-2"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "browser-2", uc.clientID)

	rec = do(t, h, http.MethodPost, "/chat/sessions", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPost, "/chat/sessions", `{"unknown":1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		msg    string
	}{
		{"not found", entity.ErrSessionNotFound, http.StatusNotFound, "session not found"},
		{"validation", &entity.ValidationError{Field: entity.ResponseField("email"), Message: "Please enter a valid email"}, http.StatusBadRequest, "Please enter a valid email"},
		{"limit", entity.ErrSessionLimitReached, http.StatusTooManyRequests, "You have reached the session limit."},
		{"busy", entity.ErrSessionBusy, http.StatusConflict, "generation is in progress"},
		{"closed", fmt.Errorf("submit: %w", entity.ErrSessionClosed), http.StatusConflict, "invalid session state"},
		{"invalid", entity.ErrInvalidParameter, http.StatusBadRequest, "invalid parameter"},
		{"internal", fmt.Errorf("db down"), http.StatusInternalServerError, "internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestRouter(&fakeUsecase{err: tt.err}, &fakeExporter{}, &fakeEvents{})
			rec := do(t, h, http.MethodPost, "/chat/sessions/s1/email", `{"email":"x"}`)
			require.Equal(t, tt.status, rec.Code)

			var body entity.ErrorResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
			assert.Equal(t, tt.msg, body.Message)
			assert.Equal(t, http.StatusText(tt.status), body.Error)
		})
	}
}

func TestSubmitEndpoints(t *testing.T) {
	uc := &fakeUsecase{view: &entity.SessionView{SessionID: "s1"}}
	h := newTestRouter(uc, &fakeExporter{}, &fakeEvents{})

	rec := do(t, h, http.MethodPost, "/chat/sessions/s1/text", `{"text":"We bake bread"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "We bake bread", uc.text)

	rec = do(t, h, http.MethodPost, "/chat/sessions/s1/choice", `{"label":"Redesign"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Redesign", uc.text)

	rec = do(t, h, http.MethodPost, "/chat/sessions/s1/references", `{"entries":[{"url":"stripe.com","description":"pricing"}]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, uc.entries, 1)
	assert.False(t, uc.none)

	rec = do(t, h, http.MethodPost, "/chat/sessions/s1/references", `{"none":true}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, uc.none)

	rec = do(t, h, http.MethodPost, "/chat/sessions/s1/references", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPost, "/chat/sessions/s1/rating", `{"score":4}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 4, uc.score)

	rec = do(t, h, http.MethodPost, "/chat/sessions/s1/rating", `{"score":9}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPost, "/chat/sessions/s1/new", "")
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestGetSummary(t *testing.T) {
	uc := &fakeUsecase{state: &entity.SessionState{ID: "s1", Flow: entity.FlowNewWebsite}}
	exp := &fakeExporter{}
	h := newTestRouter(uc, exp, &fakeEvents{})

	rec := do(t, h, http.MethodGet, "/chat/sessions/s1/summary", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, entity.FormatMarkdown, exp.format)
	assert.Equal(t, "text/markdown; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="design-brief-s1.md"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "# Design brief", rec.Body.String())

	rec = do(t, h, http.MethodGet, "/chat/sessions/s1/summary?format=pdf", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, entity.FormatPDF, exp.format)

	rec = do(t, h, http.MethodGet, "/chat/sessions/s1/summary?format=xml", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	uc.state = &entity.SessionState{ID: "s1"}
	rec = do(t, h, http.MethodGet, "/chat/sessions/s1/summary", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestGetHTML(t *testing.T) {
	uc := &fakeUsecase{state: &entity.SessionState{ID: "s1"}}
	h := newTestRouter(uc, &fakeExporter{}, &fakeEvents{})

	rec := do(t, h, http.MethodGet, "/chat/sessions/s1/html", "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	uc.state.Generation.HTML = "<html>Bakery</html>"
	rec = do(t, h, http.MethodGet, "/chat/sessions/s1/html", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, "<html>Bakery</html>", rec.Body.String())
}

func TestStream(t *testing.T) {
	uc := &fakeUsecase{view: &entity.SessionView{SessionID: "s1", IsBusy: true}}
	events := &fakeEvents{ch: make(chan entity.SessionEvent, 1)}
	srv := httptest.NewServer(newTestRouter(uc, &fakeExporter{}, events))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/chat/sessions/s1/stream"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	var first entity.SessionEvent
	require.NoError(t, conn.ReadJSON(&first))
	assert.Equal(t, entity.EventState, first.Type)
	assert.True(t, first.Busy)

	events.ch <- entity.SessionEvent{Type: entity.EventProgress, SessionID: "s1", Progress: &entity.Progress{Message: "Auditing"}}

	var next entity.SessionEvent
	require.NoError(t, conn.ReadJSON(&next))
	assert.Equal(t, entity.EventProgress, next.Type)
	require.NotNil(t, next.Progress)
	assert.Equal(t, "Auditing", next.Progress.Message)
}

func TestStream_UnknownSession(t *testing.T) {
	h := newTestRouter(&fakeUsecase{err: entity.ErrSessionNotFound}, &fakeExporter{}, &fakeEvents{})
	rec := do(t, h, http.MethodGet, "/chat/sessions/nope/stream", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
