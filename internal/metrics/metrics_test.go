package metrics

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserverCounters(t *testing.T) {
	c := NewCollector(100*time.Millisecond, 500)

	c.RunStarted()
	c.TickObserved(time.Millisecond, false)
	c.TickObserved(time.Millisecond, true)
	c.StepAdvanced()
	c.RunFinished("arrived")
	c.RunStarted()

	assert.Equal(t, 2.0, testutil.ToFloat64(c.SimulationsStarted))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.ActiveSimulations))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.SimulationsFinished.WithLabelValues("arrived")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.NearTicks))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.StepAdvances))
	assert.Equal(t, 0.1, testutil.ToFloat64(c.BaseTick))
	assert.Equal(t, 500.0, testutil.ToFloat64(c.FallbackThreshold))
}

func TestObserveRequestAndHandler(t *testing.T) {
	c := NewCollector(time.Second, 500)
	c.ObserveRequest("osrm", "ok", 20*time.Millisecond)
	c.ObserveRequest("osrm", "cache_hit", time.Millisecond)
	c.ObserveRequest("nominatim", "empty", 5*time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.UpstreamRequests.WithLabelValues("osrm", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.UpstreamRequests.WithLabelValues("nominatim", "empty")))

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), `navsim_upstream_requests_total{outcome="cache_hit",service="osrm"} 1`)
}
