package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweeney/hyst-sensor/internal/logic"
)

func TestObserveEvent(t *testing.T) {
	m := New()
	m.ObserveEvent(logic.Event{Channel: "flame", State: logic.StateOn})
	m.ObserveEvent(logic.Event{Channel: "flame", State: logic.StateOn})
	m.ObserveEvent(logic.Event{Channel: "flame", State: logic.StateOff})

	assert.Equal(t, 2.0, testutil.ToFloat64(m.transitions.WithLabelValues("flame", "ON")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.transitions.WithLabelValues("flame", "OFF")))
}

func TestObserveSample(t *testing.T) {
	m := New()
	m.ObserveSample(
		map[string]float64{"flame": 0.75, "pump": 0.1},
		map[string]logic.State{"flame": logic.StateOn, "pump": logic.StateOff, "fan": ""},
	)

	assert.Equal(t, 0.75, testutil.ToFloat64(m.value.WithLabelValues("flame")))
	assert.Equal(t, 0.1, testutil.ToFloat64(m.value.WithLabelValues("pump")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.state.WithLabelValues("flame")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.state.WithLabelValues("pump")))
	assert.Equal(t, -1.0, testutil.ToFloat64(m.state.WithLabelValues("fan")))
}

func TestObserveRead(t *testing.T) {
	m := New()
	m.ObserveRead(time.Millisecond, nil)
	m.ObserveRead(time.Millisecond, errors.New("line busy"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.readErrors))
	assert.Equal(t, 1, testutil.CollectAndCount(m.readDuration))
}

func TestPublishError(t *testing.T) {
	m := New()
	m.PublishError()
	assert.Equal(t, 1.0, testutil.ToFloat64(m.publishErrors))
}

type bufferStats struct{ buffered, dropped int }

func (b *bufferStats) Buffered() int { return b.buffered }
func (b *bufferStats) Dropped() int  { return b.dropped }

func TestWatchBuffer(t *testing.T) {
	m := New()
	b := &bufferStats{buffered: 3, dropped: 1}
	m.WatchBuffer(b)

	want := `
# HELP hyst_sensor_mqtt_buffered Messages queued while the broker is unreachable.
# TYPE hyst_sensor_mqtt_buffered gauge
hyst_sensor_mqtt_buffered 3
# HELP hyst_sensor_mqtt_dropped_total Queued messages discarded because the buffer was full.
# TYPE hyst_sensor_mqtt_dropped_total counter
hyst_sensor_mqtt_dropped_total 1
`
	require.NoError(t, testutil.GatherAndCompare(m.Registry(), strings.NewReader(want),
		"hyst_sensor_mqtt_buffered", "hyst_sensor_mqtt_dropped_total"))

	b.buffered, b.dropped = 0, 4
	assert.Contains(t, scrape(t, m), "hyst_sensor_mqtt_dropped_total 4")
	assert.Contains(t, scrape(t, m), "hyst_sensor_mqtt_buffered 0")
}

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)
	return rec.Body.String()
}

func TestHandler(t *testing.T) {
	m := New()
	m.ObserveEvent(logic.Event{Channel: "flame", State: logic.StateOn})

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	require.Equal(t, 200, rec.Code)
	body, _ := io.ReadAll(rec.Body)
	assert.Contains(t, string(body), `hyst_sensor_transitions_total{channel="flame",state="ON"} 1`)
	assert.Contains(t, string(body), "hyst_sensor_read_errors_total 0")
	assert.Contains(t, string(body), "go_goroutines")
}
