package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xcro3dile/starbot/internal/domain/entities"
	"github.com/0xcro3dile/starbot/internal/domain/ports"
)

var _ ports.Telemetry = (*Metrics)(nil)

func TestMetrics_ObserveChat(t *testing.T) {
	m := NewMetrics()

	m.ObserveChat(entities.OutcomeAnswered, false, 120*time.Millisecond)
	m.ObserveChat(entities.OutcomeAnswered, true, time.Millisecond)
	m.ObserveChat(entities.OutcomeAnswered, true, time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.ChatRequestsTotal.WithLabelValues("answered", "false")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.ChatRequestsTotal.WithLabelValues("answered", "true")))
}

func TestMetrics_ObserveRetrievalAndGeneration(t *testing.T) {
	m := NewMetrics()

	m.ObserveRetrieval(0, true)
	m.ObserveRetrieval(3, false)
	m.ObserveGeneration(time.Second, entities.FailureTimeout)
	m.ObserveGeneration(time.Second, "")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.RetrievalRetries))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.GenerationFailures.WithLabelValues("timeout")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.GenerationFailures))
}

func TestMetrics_FeedbackAndChunks(t *testing.T) {
	m := NewMetrics()

	m.RecordFeedback(entities.VerdictHelpful)
	m.SetChunksLoaded(42)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.FeedbackTotal.WithLabelValues("helpful")))
	assert.Equal(t, 42.0, testutil.ToFloat64(m.ChunksLoaded))
}

func TestMetrics_Handler(t *testing.T) {
	m := NewMetrics()
	m.RecordHTTPRequest("/api/chat", http.MethodPost, http.StatusOK, 10*time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `starbot_http_requests_total{method="POST",route="/api/chat",status="200"} 1`)
}

func TestMetrics_SeparateRegistries(t *testing.T) {
	a, b := NewMetrics(), NewMetrics()
	a.SetChunksLoaded(1)

	assert.Equal(t, 0.0, testutil.ToFloat64(b.ChunksLoaded))
}

func TestMetrics_RecordRefresh(t *testing.T) {
	m := NewMetrics()

	m.RecordRefresh(7)
	m.RecordRefresh(9)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.SnapshotRefreshes))
	assert.Equal(t, 9.0, testutil.ToFloat64(m.ChunksLoaded))
}

func TestMetrics_RegisterCacheReadsAtScrape(t *testing.T) {
	m := NewMetrics()
	hits := uint64(0)
	m.RegisterCache(func() (uint64, uint64, int) { return hits, 4, 2 })
	hits = 3

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	body := rec.Body.String()
	assert.Contains(t, body, "starbot_cache_hits_total 3")
	assert.Contains(t, body, "starbot_cache_misses_total 4")
	assert.Contains(t, body, "starbot_cache_entries 2")
}
