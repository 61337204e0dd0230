package monitoring

import (
	"sort"
	"sync"

	"gonum.org/v1/gonum/stat"
)

const defaultLatencySamples = 1024

// latencyWindow keeps a bounded ring of recent request durations so
// the JSON snapshot can report percentiles without scraping Prometheus
type latencyWindow struct {
	mu      sync.Mutex
	samples []float64
	next    int
	full    bool
}

func newLatencyWindow(size int) *latencyWindow {
	return &latencyWindow{samples: make([]float64, size)}
}

// record appends one duration, overwriting the oldest once the window
// is full
func (w *latencyWindow) record(seconds float64) {
	w.mu.Lock()
	w.samples[w.next] = seconds
	w.next++
	if w.next == len(w.samples) {
		w.next = 0
		w.full = true
	}
	w.mu.Unlock()
}

// quantiles returns the requested quantiles over the current window,
// zeros while empty
func (w *latencyWindow) quantiles(qs ...float64) []float64 {
	w.mu.Lock()
	n := w.next
	if w.full {
		n = len(w.samples)
	}
	window := make([]float64, n)
	copy(window, w.samples[:n])
	w.mu.Unlock()

	out := make([]float64, len(qs))
	if n == 0 {
		return out
	}

	sort.Float64s(window)
	for i, q := range qs {
		out[i] = stat.Quantile(q, stat.Empirical, window, nil)
	}
	return out
}
