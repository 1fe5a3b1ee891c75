package webhook

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/futig/design-agent/internal/config"
	"github.com/futig/design-agent/internal/entity"
	"github.com/futig/design-agent/internal/pkg/retry"
)

type memoryLog struct {
	mu       sync.Mutex
	notified map[string]bool
}

func newMemoryLog() *memoryLog {
	return &memoryLog{notified: make(map[string]bool)}
}

func (m *memoryLog) IsNotified(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.notified[id], nil
}

func (m *memoryLog) MarkNotified(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notified[id] = true
	return nil
}

func webhookConfig(url string) config.WebhookConfig {
	return config.WebhookConfig{
		HTTPClientConfig: config.HTTPClientConfig{
			RequestTimeout:        5 * time.Second,
			ConnTimeout:           time.Second,
			KeepAlive:             time.Second,
			IdleConnTimeout:       time.Second,
			ResponseHeaderTimeout: 5 * time.Second,
			Url:                   url,
		},
		Retry: retry.RetryConfig{Attempts: 2, Delay: time.Millisecond, MaxDelay: time.Millisecond},
	}
}

func redesignRecord() entity.SessionRecord {
	resp := entity.NewResponses()
	resp.SetText(entity.FieldRedesignCurrentURL, "https://bakery.example")
	resp.SetBool(entity.FieldRedesignReuseContent, true)
	resp.SetText(entity.FieldRedesignAudience, "Local families\x00")
	resp.SetText(entity.FieldRedesignIssues, "Outdated design|Other: slow checkout")
	resp.SetEntries(entity.FieldRedesignReferencesAndCompetitors, []entity.ReferenceEntry{
		{URL: "https://stripe.com", Description: "clean layout"},
	})
	return entity.SessionRecord{
		SessionID:   "1700000000000-abcd1234",
		Flow:        entity.FlowRedesign,
		StartedAt:   time.Unix(1700000000, 0),
		Email:       "owner@bakery.example",
		Responses:   resp,
		AuditIssues: []string{"Low contrast hero text"},
		Rating:      3,
		Feedback:    strings.Repeat("x", 6000),
	}
}

func widgets(msg *entity.ChatCardMessage) map[string]string {
	out := make(map[string]string)
	for _, s := range msg.CardsV2[0].Card.Sections {
		for _, w := range s.Widgets {
			if w.DecoratedText != nil {
				out[w.DecoratedText.TopLabel] = w.DecoratedText.Text
			}
			if w.TextParagraph != nil {
				out[s.Header] = w.TextParagraph.Text
			}
		}
	}
	return out
}

func TestBuildCard_Redesign(t *testing.T) {
	msg := BuildCard(redesignRecord())
	require.Len(t, msg.CardsV2, 1)

	w := widgets(msg)
	assert.Equal(t, "Webpage Redesign", w["Route Type"])
	assert.Equal(t, "2023-11-14T22:13:20Z", w["Session Start"])
	assert.Equal(t, "Local families", w["Audience"])
	assert.Equal(t, "Yes", w["Reuse Content"])
	assert.Equal(t, "Outdated design, Other: slow checkout", w["Issues"])
	assert.Equal(t, "1. https://stripe.com - clean layout", w["Reference Websites"])
	assert.Equal(t, "• Low contrast hero text", w["Audit Results"])
	assert.Equal(t, "3/5", w["Rating"])
	assert.Len(t, []rune(w["Feedback"]), 5000)
	assert.Equal(t, "true", w["Feedback Provided"])
}

func TestBuildCard_NewWebsite(t *testing.T) {
	resp := entity.NewResponses()
	resp.SetText(entity.FieldBusiness, "Bakery")
	resp.SetText(entity.FieldPageType, "Other: menu page")

	w := widgets(BuildCard(entity.SessionRecord{
		SessionID: "s1",
		Flow:      entity.FlowNewWebsite,
		Responses: resp,
	}))
	assert.Equal(t, "New Webpage from Scratch", w["Route Type"])
	assert.Equal(t, "Other", w["Page Type"])
	assert.Equal(t, "menu page", w["Page Type (Other)"])
	assert.Equal(t, "Not provided", w["Brand Guidelines"])
	assert.Equal(t, "Not provided", w["Rating"])
	assert.Equal(t, "false", w["Feedback Provided"])
}

func TestNotify_Idempotent(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		var msg entity.ChatCardMessage
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&msg))
		assert.Equal(t, "session-1700000000000-abcd1234", msg.CardsV2[0].CardID)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	log := newMemoryLog()
	c := NewConnector(webhookConfig(srv.URL), log, zap.NewNop())

	require.NoError(t, c.NotifySessionComplete(context.Background(), redesignRecord()))
	require.NoError(t, c.NotifySessionComplete(context.Background(), redesignRecord()))
	assert.Equal(t, int32(1), hits.Load())
	assert.True(t, log.notified["1700000000000-abcd1234"])

	// a fresh process still honours the persisted flag
	other := NewConnector(webhookConfig(srv.URL), log, zap.NewNop())
	require.NoError(t, other.NotifySessionComplete(context.Background(), redesignRecord()))
	assert.Equal(t, int32(1), hits.Load())
}

func TestNotify_FailureAllowsRetry(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) <= 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	log := newMemoryLog()
	c := NewConnector(webhookConfig(srv.URL), log, zap.NewNop())

	err := c.NotifySessionComplete(context.Background(), redesignRecord())
	require.Error(t, err)
	assert.Equal(t, int32(2), hits.Load())
	assert.False(t, log.notified["1700000000000-abcd1234"])

	require.NoError(t, c.NotifySessionComplete(context.Background(), redesignRecord()))
	assert.True(t, log.notified["1700000000000-abcd1234"])
}

func TestNotify_Disabled(t *testing.T) {
	c := NewConnector(webhookConfig(""), nil, zap.NewNop())
	assert.NoError(t, c.NotifySessionComplete(context.Background(), redesignRecord()))
}
