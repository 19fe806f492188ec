package observability

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

// ------------------------------------------------------------------
// Counter tests
// ------------------------------------------------------------------

func TestCounter(t *testing.T) {
	r := NewMetricsRegistry()
	c := r.GetCounter("test_counter", "A test counter")

	if c.Value() != 0 {
		t.Errorf("expected initial value 0, got %d", c.Value())
	}

	c.Inc()
	if c.Value() != 1 {
		t.Errorf("expected 1, got %d", c.Value())
	}

	c.Add(5)
	if c.Value() != 6 {
		t.Errorf("expected 6, got %d", c.Value())
	}
}

func TestCounter_GetExisting(t *testing.T) {
	r := NewMetricsRegistry()
	c1 := r.GetCounter("test", "desc")
	c1.Inc()
	c2 := r.GetCounter("test", "desc")

	if c1 != c2 {
		t.Fatal("expected same counter instance")
	}
	if c2.Value() != 1 {
		t.Errorf("expected 1, got %d", c2.Value())
	}
}

func TestCounter_Concurrent(t *testing.T) {
	r := NewMetricsRegistry()
	c := r.GetCounter("concurrent", "desc")

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.Inc()
			}
		}()
	}
	wg.Wait()

	if c.Value() != 1000 {
		t.Errorf("expected 1000, got %d", c.Value())
	}
}

// ------------------------------------------------------------------
// Gauge tests
// ------------------------------------------------------------------

func TestGauge(t *testing.T) {
	r := NewMetricsRegistry()
	g := r.GetGauge("test_gauge", "A test gauge")

	if g.Value() != 0 {
		t.Errorf("expected initial value 0, got %g", g.Value())
	}

	g.Set(42)
	if g.Value() != 42 {
		t.Errorf("expected 42, got %g", g.Value())
	}

	g.Add(1)
	if g.Value() != 43 {
		t.Errorf("expected 43, got %g", g.Value())
	}

	g.Add(-2.5)
	if g.Value() != 40.5 {
		t.Errorf("expected 40.5, got %g", g.Value())
	}
}

func TestGauge_ConcurrentAdd(t *testing.T) {
	r := NewMetricsRegistry()
	g := r.GetGauge("concurrent_gauge", "desc")

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				g.Add(1)
			}
		}()
	}
	wg.Wait()

	if g.Value() != 1000 {
		t.Errorf("expected 1000, got %g", g.Value())
	}
}

// ------------------------------------------------------------------
// Histogram tests
// ------------------------------------------------------------------

func TestHistogram(t *testing.T) {
	r := NewMetricsRegistry()
	h := r.GetHistogram("test_hist", "A test histogram", []float64{0.5, 1, 10})

	h.Observe(0.25)
	h.Observe(0.5) // bucket bounds are inclusive
	h.Observe(5)
	h.Observe(50)

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.count != 4 {
		t.Errorf("count = %d, want 4", h.count)
	}
	if h.sum != 55.75 {
		t.Errorf("sum = %g, want 55.75", h.sum)
	}
	// Cumulative buckets: le=0.5 sees two samples, le=1 two, le=10 three.
	want := []int64{2, 2, 3}
	for i, n := range want {
		if h.counts[i] != n {
			t.Errorf("bucket %d = %d, want %d", i, h.counts[i], n)
		}
	}
}

// ------------------------------------------------------------------
// Exposition tests
// ------------------------------------------------------------------

func TestRender(t *testing.T) {
	r := NewMetricsRegistry()
	r.GetCounter("tool_calls_total", "Tool invocations").Add(7)
	r.GetGauge("stream_subscribers", "Attached subscribers").Set(2)
	r.GetHistogram("tool_duration_seconds", "Durations", []float64{1, 5}).Observe(0.5)

	out := r.Render()

	for _, want := range []string{
		"# TYPE tool_calls_total counter",
		"tool_calls_total 7",
		"# TYPE stream_subscribers gauge",
		"stream_subscribers 2",
		"# TYPE tool_duration_seconds histogram",
		`tool_duration_seconds_bucket{le="1"} 1`,
		`tool_duration_seconds_bucket{le="+Inf"} 1`,
		"tool_duration_seconds_sum 0.5",
		"tool_duration_seconds_count 1",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("render output missing %q:\n%s", want, out)
		}
	}
}

func TestRender_Stable(t *testing.T) {
	r := NewMetricsRegistry()
	r.GetCounter("zzz", "last").Inc()
	r.GetCounter("aaa", "first").Inc()

	out := r.Render()
	if strings.Index(out, "aaa") > strings.Index(out, "zzz") {
		t.Error("metrics not sorted by name")
	}
	if out != r.Render() {
		t.Error("render output not stable")
	}
}

func TestHandler(t *testing.T) {
	r := NewMetricsRegistry()
	r.GetCounter("rpc_requests_total", "Requests").Inc()

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	r.Handler()(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("content type = %q", ct)
	}
	if !strings.Contains(w.Body.String(), "rpc_requests_total 1") {
		t.Errorf("body missing counter:\n%s", w.Body.String())
	}
}
