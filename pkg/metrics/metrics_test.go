package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestCounter(t *testing.T) {
	r := New()
	c := r.Counter("claimlens_test_total", "test counter")
	c.Inc()
	c.Add(4)
	if c.Value() != 5 {
		t.Fatalf("value = %d", c.Value())
	}
	if again := r.Counter("claimlens_test_total", ""); again != c {
		t.Fatal("same name should return same counter")
	}
}

func TestGauge(t *testing.T) {
	r := New()
	g := r.Gauge("claimlens_depth", "")
	g.Set(10)
	g.Inc()
	g.Dec()
	g.Dec()
	if g.Value() != 9 {
		t.Fatalf("value = %d", g.Value())
	}
}

func TestHistogramBuckets(t *testing.T) {
	r := New()
	h := r.Histogram("claimlens_latency_seconds", "", []float64{0.1, 1, 10})
	h.Observe(0.05)
	h.Observe(0.5)
	h.Observe(100) // above every bound, lands in +Inf only

	out := r.Render()
	for _, want := range []string{
		`claimlens_latency_seconds_bucket{le="0.1"} 1`,
		`claimlens_latency_seconds_bucket{le="1"} 2`,
		`claimlens_latency_seconds_bucket{le="10"} 2`,
		`claimlens_latency_seconds_bucket{le="+Inf"} 3`,
		`claimlens_latency_seconds_count 3`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in:\n%s", want, out)
		}
	}
}

func TestHistogramSince(t *testing.T) {
	r := New()
	h := r.Histogram("claimlens_elapsed_seconds", "", nil)
	h.Since(time.Now().Add(-time.Millisecond))
	_, _, sum, total := h.snapshot()
	if total != 1 || sum <= 0 {
		t.Fatalf("total=%d sum=%g", total, sum)
	}
}

func TestWithLabels(t *testing.T) {
	got := WithLabels("claimlens_errors_total", "stage", "publish")
	if got != `claimlens_errors_total{stage="publish"}` {
		t.Fatalf("got %q", got)
	}
	if WithLabels("plain") != "plain" {
		t.Fatal("no labels should leave name untouched")
	}
	if WithLabels("odd", "k") != "odd" {
		t.Fatal("odd label pairs should leave name untouched")
	}
}

func TestRenderLabeledSeries(t *testing.T) {
	r := New()
	r.Counter(WithLabels("claimlens_hits_total", "source", "policy"), "hits by source").Add(2)
	r.Counter(WithLabels("claimlens_hits_total", "source", "precedent"), "").Inc()

	out := r.Render()
	if strings.Count(out, "# TYPE claimlens_hits_total counter") != 1 {
		t.Fatalf("type line should appear once:\n%s", out)
	}
	if !strings.Contains(out, `claimlens_hits_total{source="policy"} 2`) ||
		!strings.Contains(out, `claimlens_hits_total{source="precedent"} 1`) {
		t.Fatalf("missing labeled series:\n%s", out)
	}
}

func TestHandler(t *testing.T) {
	r := New()
	r.Counter("claimlens_served_total", "").Inc()

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if !strings.Contains(rec.Header().Get("Content-Type"), "text/plain") {
		t.Fatalf("content type = %q", rec.Header().Get("Content-Type"))
	}
	if !strings.Contains(rec.Body.String(), "claimlens_served_total 1") {
		t.Fatalf("body:\n%s", rec.Body.String())
	}
}
