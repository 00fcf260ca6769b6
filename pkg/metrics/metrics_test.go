package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsRegistered(t *testing.T) {
	FetchTotal.WithLabelValues("ok").Inc()
	ObserveStage("scoring", time.Now().Add(-time.Second))

	mfs, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)

	names := map[string]bool{}
	for _, mf := range mfs {
		names[mf.GetName()] = true
	}
	assert.True(t, names["diamond_fetch_total"])
	assert.True(t, names["diamond_stage_duration_seconds"])
}

func TestSetBool(t *testing.T) {
	SetBool(KillSwitch, true)
	assert.Equal(t, float64(1), testutil.ToFloat64(KillSwitch))

	SetBool(KillSwitch, false)
	assert.Equal(t, float64(0), testutil.ToFloat64(KillSwitch))
}

func TestHandler(t *testing.T) {
	Candidates.Set(3)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "diamond_candidates 3"))
}
