package metrics

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func snapshotCounters(t *testing.T, r *Registry) []Counter {
	t.Helper()
	counters, ok := r.Snapshot()["counters"].([]Counter)
	require.True(t, ok)
	return counters
}

func TestIncrCounter(t *testing.T) {
	r := NewRegistry()

	r.IncrCounter("events_forwarded", nil)
	r.IncrCounter("events_forwarded", nil)
	r.IncrCounter("events_dropped", nil)

	counters := snapshotCounters(t, r)
	require.Len(t, counters, 2)
	assert.Equal(t, "events_dropped", counters[0].Name)
	assert.EqualValues(t, 1, counters[0].Value)
	assert.Equal(t, "events_forwarded", counters[1].Name)
	assert.EqualValues(t, 2, counters[1].Value)
}

func TestCountersWithDifferentLabelsAreIndependent(t *testing.T) {
	r := NewRegistry()

	r.IncrCounter("http_requests_total", map[string]string{"status": "200"})
	r.IncrCounter("http_requests_total", map[string]string{"status": "200"})
	r.IncrCounter("http_requests_total", map[string]string{"status": "500"})

	counters := snapshotCounters(t, r)
	require.Len(t, counters, 2)
	total := int64(0)
	for _, c := range counters {
		total += c.Value
	}
	assert.EqualValues(t, 3, total)
}

func TestRecordDuration(t *testing.T) {
	r := NewRegistry()

	r.RecordDuration("http_request_duration", 10*time.Millisecond)
	r.RecordDuration("http_request_duration", 20*time.Millisecond)
	r.RecordDuration("http_request_duration", 30*time.Millisecond)

	timers, ok := r.Snapshot()["timers"].(map[string]Timer)
	require.True(t, ok)
	timer, ok := timers["http_request_duration"]
	require.True(t, ok)

	assert.EqualValues(t, 3, timer.Count)
	assert.InDelta(t, 10, timer.Min, 0.5)
	assert.InDelta(t, 30, timer.Max, 0.5)
	assert.InDelta(t, 20, timer.Average, 0.5)
	assert.InDelta(t, 60, timer.Sum, 1.0)
}

func TestTimerSampleWindowIsBounded(t *testing.T) {
	r := NewRegistry()

	for i := 0; i < maxTimerSamples+100; i++ {
		r.RecordDuration("busy", time.Millisecond)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	assert.LessOrEqual(t, len(r.timers["busy"].samples), maxTimerSamples)
}

func TestSnapshotIncludesUptime(t *testing.T) {
	r := NewRegistry()
	uptime, ok := r.Snapshot()["uptimeSeconds"].(float64)
	require.True(t, ok)
	assert.GreaterOrEqual(t, uptime, 0.0)
}

func TestConcurrentUpdates(t *testing.T) {
	r := NewRegistry()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				r.IncrCounter("concurrent", nil)
				r.RecordDuration("concurrent_timer", time.Millisecond)
			}
		}()
	}
	wg.Wait()

	counters := snapshotCounters(t, r)
	require.Len(t, counters, 1)
	assert.EqualValues(t, 800, counters[0].Value)
}

func TestPercentile(t *testing.T) {
	assert.Zero(t, percentile(nil, 0.95))

	samples := make([]float64, 100)
	for i := range samples {
		samples[i] = float64(i + 1)
	}
	assert.InDelta(t, 95, percentile(samples, 0.95), 1.0)
	assert.InDelta(t, 50, percentile(samples, 0.5), 1.0)
}
