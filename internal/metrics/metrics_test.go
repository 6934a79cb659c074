package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vehicletracker/vehicletracker/internal/animation"
)

var _ animation.Recorder = (*Collector)(nil)

func TestCollector_Recorder(t *testing.T) {
	c := NewCollector(500 * time.Millisecond)

	c.RouteGenerated(animation.OptionToday, 42, 120*time.Millisecond)
	c.RouteFailed(animation.OptionYesterday, animation.ReasonFetch)
	c.RouteFailed(animation.OptionYesterday, animation.ReasonFetch)
	c.TickObserved(time.Millisecond)
	c.SnapshotDropped(3)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.RoutesGenerated.WithLabelValues("today")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.RoutesFailed.WithLabelValues("yesterday", "fetch")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.Ticks))
	assert.Equal(t, 3.0, testutil.ToFloat64(c.SnapshotsDropped))
	assert.Equal(t, 0.5, testutil.ToFloat64(c.TickInterval))
}

func TestCollector_StateGauge(t *testing.T) {
	c := NewCollector(time.Second)
	assert.Equal(t, 1.0, testutil.ToFloat64(c.CurrentState.WithLabelValues("idle")))

	c.StateChanged(animation.StateIdle, animation.StateGenerating)
	c.StateChanged(animation.StateGenerating, animation.StateReady)

	assert.Equal(t, 0.0, testutil.ToFloat64(c.CurrentState.WithLabelValues("idle")))
	assert.Equal(t, 0.0, testutil.ToFloat64(c.CurrentState.WithLabelValues("generating")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.CurrentState.WithLabelValues("ready")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.StateTransitions.WithLabelValues("generating", "ready")))
}

func TestCollector_NATSHooks(t *testing.T) {
	c := NewCollector(time.Second)

	c.NATSSetConnected(true)
	c.NATSPublishedInc()
	c.NATSPublishErrInc()
	c.PublishObserve(time.Millisecond)
	assert.Equal(t, 1.0, testutil.ToFloat64(c.NATSConnected))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.NATSPublished))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.NATSPublishErrs))

	c.NATSSetConnected(false)
	assert.Equal(t, 0.0, testutil.ToFloat64(c.NATSConnected))
}

func TestCollector_Handler(t *testing.T) {
	c := NewCollector(time.Second)
	c.TickObserved(time.Millisecond)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, "tracker_ticks_total 1"), body)
	assert.Contains(t, body, "go_goroutines")
}
