package metrics

import (
	"sort"
	"sync"
	"time"
)

const maxTimerSamples = 1000

// Counter is a monotonically increasing value with optional labels.
type Counter struct {
	Name       string            `json:"name"`
	Value      int64             `json:"value"`
	Labels     map[string]string `json:"labels,omitempty"`
	LastUpdate time.Time         `json:"lastUpdate"`
}

// Timer aggregates observed durations in milliseconds.
type Timer struct {
	Count   int64   `json:"count"`
	Sum     float64 `json:"sumMs"`
	Min     float64 `json:"minMs"`
	Max     float64 `json:"maxMs"`
	Average float64 `json:"avgMs"`
	P95     float64 `json:"p95Ms,omitempty"`
	samples []float64
}

// Registry keeps in-process bridge metrics: forwarded/dropped/failed event
// counters and request timings. Exposed as JSON on the metrics endpoint.
type Registry struct {
	mu        sync.RWMutex
	counters  map[string]*Counter
	timers    map[string]*Timer
	startTime time.Time
}

func NewRegistry() *Registry {
	return &Registry{
		counters:  make(map[string]*Counter),
		timers:    make(map[string]*Timer),
		startTime: time.Now(),
	}
}

// IncrCounter increments the named counter by one.
func (r *Registry) IncrCounter(name string, labels map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := name + labelKey(labels)
	c, ok := r.counters[key]
	if !ok {
		c = &Counter{Name: name, Labels: labels}
		r.counters[key] = c
	}
	c.Value++
	c.LastUpdate = time.Now()
}

// RecordDuration adds one observation to the named timer.
func (r *Registry) RecordDuration(name string, d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ms := float64(d.Microseconds()) / 1000.0
	t, ok := r.timers[name]
	if !ok {
		t = &Timer{Min: ms, Max: ms}
		r.timers[name] = t
	}

	t.Count++
	t.Sum += ms
	if ms < t.Min {
		t.Min = ms
	}
	if ms > t.Max {
		t.Max = ms
	}
	t.Average = t.Sum / float64(t.Count)

	t.samples = append(t.samples, ms)
	if len(t.samples) > maxTimerSamples {
		t.samples = t.samples[len(t.samples)-maxTimerSamples:]
	}
	t.P95 = percentile(t.samples, 0.95)
}

// Snapshot returns a copy of every metric plus process uptime.
func (r *Registry) Snapshot() map[string]interface{} {
	r.mu.RLock()
	defer r.mu.RUnlock()

	counters := make([]Counter, 0, len(r.counters))
	for _, c := range r.counters {
		counters = append(counters, *c)
	}
	sort.Slice(counters, func(i, j int) bool { return counters[i].Name < counters[j].Name })

	timers := make(map[string]Timer, len(r.timers))
	for name, t := range r.timers {
		timers[name] = Timer{
			Count: t.Count, Sum: t.Sum, Min: t.Min, Max: t.Max,
			Average: t.Average, P95: t.P95,
		}
	}

	return map[string]interface{}{
		"uptimeSeconds": time.Since(r.startTime).Seconds(),
		"counters":      counters,
		"timers":        timers,
	}
}

func labelKey(labels map[string]string) string {
	if len(labels) == 0 {
		return ""
	}
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	key := "{"
	for _, k := range keys {
		key += k + "=" + labels[k] + ","
	}
	return key + "}"
}

func percentile(samples []float64, p float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	sorted := make([]float64, len(samples))
	copy(sorted, samples)
	sort.Float64s(sorted)

	idx := int(float64(len(sorted)-1) * p)
	return sorted[idx]
}
