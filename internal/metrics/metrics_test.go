package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMiddlewareLabelsByRoute(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := New()

	r := gin.New()
	r.Use(Middleware(m))
	r.GET("/blueprints/:id", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	for _, id := range []string{"a", "b"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/blueprints/"+id, nil))
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nowhere", nil))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("GET", "/blueprints/:id", "204")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("GET", "unmatched", "404")))
}

func TestTimerRecordsOutcome(t *testing.T) {
	m := New()

	NewTimer(m, "create").Stop(OutcomeSuccess)
	NewTimer(m, "create").Stop(OutcomeInvalid)
	NewTimer(m, "create").Stop(OutcomeInvalid)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Operations.WithLabelValues("create", OutcomeSuccess)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Operations.WithLabelValues("create", OutcomeInvalid)))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordHTTPRequest("GET", "/", "200", time.Millisecond)
		m.RecordOperation("create", OutcomeSuccess, time.Millisecond)
		m.RecordStatsEvent("view", OutcomeSuccess)
		m.RecordRateLimited()
		NewTimer(m, "update").Stop(OutcomeError)
	})
}

func TestHandlerExposesCollectors(t *testing.T) {
	m := New()
	m.RecordStatsEvent("run", OutcomeDropped)

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.True(t, strings.Contains(body, `blueprints_statistics_events_total{kind="run",outcome="dropped"} 1`))
	assert.Contains(t, body, "go_goroutines")
}
