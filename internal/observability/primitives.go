package observability

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// family is a named set of float series keyed by their rendered label set.
type family struct {
	name   string
	help   string
	kind   string
	labels []string

	mu     sync.RWMutex
	series map[string]float64
}

func newFamily(name, help, kind string, labels []string) family {
	return family{name: name, help: help, kind: kind, labels: labels, series: map[string]float64{}}
}

func (f *family) update(values []string, fn func(float64) float64) {
	key := labelString(f.labels, values)
	f.mu.Lock()
	f.series[key] = fn(f.series[key])
	f.mu.Unlock()
}

func (f *family) get(values []string) float64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.series[labelString(f.labels, values)]
}

func (f *family) WritePrometheus(w io.Writer) error {
	var b strings.Builder
	writeHeader(&b, f.name, f.help, f.kind)
	f.mu.RLock()
	keys := make([]string, 0, len(f.series))
	for k := range f.series {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		b.WriteString(f.name + k + " " + formatFloat(f.series[k]) + "\n")
	}
	f.mu.RUnlock()
	_, err := io.WriteString(w, b.String())
	return err
}

// CounterVec only goes up.
type CounterVec struct{ family }

func NewCounterVec(name, help string, labels []string) *CounterVec {
	return &CounterVec{newFamily(name, help, "counter", labels)}
}

func (c *CounterVec) Inc(values ...string) { c.Add(1, values...) }

func (c *CounterVec) Add(v float64, values ...string) {
	if c == nil || v < 0 {
		return
	}
	c.update(values, func(cur float64) float64 { return cur + v })
}

// Value reads one series; zero when it was never touched.
func (c *CounterVec) Value(values ...string) float64 {
	if c == nil {
		return 0
	}
	return c.get(values)
}

func (c *CounterVec) WritePrometheus(w io.Writer) error {
	if c == nil {
		return nil
	}
	return c.family.WritePrometheus(w)
}

type GaugeVec struct{ family }

func NewGaugeVec(name, help string, labels []string) *GaugeVec {
	return &GaugeVec{newFamily(name, help, "gauge", labels)}
}

func (g *GaugeVec) Set(v float64, values ...string) {
	if g == nil {
		return
	}
	g.update(values, func(float64) float64 { return v })
}

func (g *GaugeVec) WritePrometheus(w io.Writer) error {
	if g == nil {
		return nil
	}
	return g.family.WritePrometheus(w)
}

// Gauge is an unlabelled GaugeVec with increment helpers.
type Gauge struct{ family }

func NewGauge(name, help string) *Gauge {
	return &Gauge{newFamily(name, help, "gauge", nil)}
}

func (g *Gauge) Set(v float64) {
	if g != nil {
		g.update(nil, func(float64) float64 { return v })
	}
}

func (g *Gauge) Inc() { g.add(1) }
func (g *Gauge) Dec() { g.add(-1) }

func (g *Gauge) add(d float64) {
	if g != nil {
		g.update(nil, func(cur float64) float64 { return cur + d })
	}
}

func (g *Gauge) Value() float64 {
	if g == nil {
		return 0
	}
	return g.get(nil)
}

func (g *Gauge) WritePrometheus(w io.Writer) error {
	if g == nil {
		return nil
	}
	return g.family.WritePrometheus(w)
}

var defaultBuckets = []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5}

type HistogramVec struct {
	name    string
	help    string
	labels  []string
	buckets []float64

	mu     sync.Mutex
	series map[string]*histogram
}

// histogram keeps per-bucket (non-cumulative) counts; the exposition sums them.
type histogram struct {
	counts []uint64
	sum    float64
	total  uint64
}

func NewHistogramVec(name, help string, labels []string, buckets []float64) *HistogramVec {
	if len(buckets) == 0 {
		buckets = defaultBuckets
	}
	return &HistogramVec{name: name, help: help, labels: labels, buckets: buckets, series: map[string]*histogram{}}
}

func (h *HistogramVec) Observe(v float64, values ...string) {
	if h == nil {
		return
	}
	key := labelString(h.labels, values)
	idx := sort.SearchFloat64s(h.buckets, v)

	h.mu.Lock()
	defer h.mu.Unlock()
	s := h.series[key]
	if s == nil {
		s = &histogram{counts: make([]uint64, len(h.buckets)+1)}
		h.series[key] = s
	}
	s.counts[idx]++
	s.sum += v
	s.total++
}

func (h *HistogramVec) WritePrometheus(w io.Writer) error {
	if h == nil {
		return nil
	}
	var b strings.Builder
	writeHeader(&b, h.name, h.help, "histogram")

	h.mu.Lock()
	keys := make([]string, 0, len(h.series))
	for k := range h.series {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		s := h.series[k]
		var cum uint64
		for i, le := range h.buckets {
			cum += s.counts[i]
			fmt.Fprintf(&b, "%s_bucket%s %d\n", h.name, withLe(k, formatFloat(le)), cum)
		}
		fmt.Fprintf(&b, "%s_bucket%s %d\n", h.name, withLe(k, "+Inf"), s.total)
		fmt.Fprintf(&b, "%s_sum%s %s\n", h.name, k, formatFloat(s.sum))
		fmt.Fprintf(&b, "%s_count%s %d\n", h.name, k, s.total)
	}
	h.mu.Unlock()

	_, err := io.WriteString(w, b.String())
	return err
}

func writeHeader(b *strings.Builder, name, help, kind string) {
	fmt.Fprintf(b, "# HELP %s %s\n# TYPE %s %s\n", name, help, name, kind)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

var labelEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`)

// labelString renders {k="v",...}; missing values become "unknown".
func labelString(names []string, values []string) string {
	if len(names) == 0 {
		return ""
	}
	parts := make([]string, len(names))
	for i, name := range names {
		val := "unknown"
		if i < len(values) {
			val = values[i]
		}
		parts[i] = name + `="` + labelEscaper.Replace(val) + `"`
	}
	return "{" + strings.Join(parts, ",") + "}"
}

func withLe(labels string, le string) string {
	pair := `le="` + labelEscaper.Replace(le) + `"`
	if labels == "" || labels == "{}" {
		return "{" + pair + "}"
	}
	return strings.TrimSuffix(labels, "}") + "," + pair + "}"
}
