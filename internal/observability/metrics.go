package observability

import (
	"context"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/yungbote/recipes-assistant-backend/internal/platform/logger"
)

// Metrics is the process-wide registry exposed on /metrics.
type Metrics struct {
	apiRequests *CounterVec
	apiLatency  *HistogramVec
	apiInflight *Gauge

	llmRequests *CounterVec
	llmLatency  *HistogramVec
	llmTokens   *CounterVec

	ingestTotal     *CounterVec
	ingestChunks    *CounterVec
	ingestLatency   *HistogramVec
	retrieveTotal   *CounterVec
	retrieveMatches *HistogramVec
	chatTurns       *CounterVec
	toolCalls       *CounterVec

	dbStats *GaugeVec
}

var (
	initOnce sync.Once
	instance *Metrics
)

// Current returns the registry installed by Init, or nil when metrics are off.
// Every method is nil-safe.
func Current() *Metrics {
	return instance
}

func Init(log *logger.Logger, enabled bool) *Metrics {
	if !enabled {
		return nil
	}
	initOnce.Do(func() {
		instance = NewMetrics()
		if log != nil {
			log.Info("metrics initialized")
		}
	})
	return instance
}

// NewMetrics builds an unregistered registry; tests use it directly.
func NewMetrics() *Metrics {
	return &Metrics{
		apiRequests: NewCounterVec("api_requests_total", "HTTP requests", []string{"method", "route", "status"}),
		apiLatency:  NewHistogramVec("api_request_duration_seconds", "HTTP request latency", []string{"method", "route", "status"}, nil),
		apiInflight: NewGauge("api_requests_inflight", "In-flight HTTP requests"),

		llmRequests: NewCounterVec("llm_requests_total", "Model provider requests", []string{"model", "endpoint", "status"}),
		llmLatency:  NewHistogramVec("llm_request_duration_seconds", "Model provider latency", []string{"model", "endpoint", "status"}, []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30}),
		llmTokens:   NewCounterVec("llm_tokens_total", "Model provider tokens", []string{"model", "kind"}),

		ingestTotal:     NewCounterVec("ingest_total", "Ingestion calls", []string{"path", "status"}),
		ingestChunks:    NewCounterVec("ingest_chunks_total", "Chunks embedded and stored", []string{"path"}),
		ingestLatency:   NewHistogramVec("ingest_duration_seconds", "Ingestion latency", []string{"path"}, []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30}),
		retrieveTotal:   NewCounterVec("retrieve_total", "Retrieval calls", []string{"status"}),
		retrieveMatches: NewHistogramVec("retrieve_matches", "Matches returned per retrieval", nil, []float64{0, 1, 2, 3, 4}),
		chatTurns:       NewCounterVec("chat_turns_total", "Chat turns", []string{"status"}),
		toolCalls:       NewCounterVec("chat_tool_calls_total", "Chat tool invocations", []string{"tool", "status"}),

		dbStats: NewGaugeVec("db_pool_stats", "database/sql pool statistics", []string{"stat"}),
	}
}

func (m *Metrics) WriteHTTP(w http.ResponseWriter, r *http.Request) {
	if m == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	_ = m.WritePrometheus(w)
}

func (m *Metrics) WritePrometheus(w io.Writer) error {
	if m == nil {
		return nil
	}
	writers := []interface{ WritePrometheus(io.Writer) error }{
		m.apiRequests, m.apiLatency, m.apiInflight,
		m.llmRequests, m.llmLatency, m.llmTokens,
		m.ingestTotal, m.ingestChunks, m.ingestLatency,
		m.retrieveTotal, m.retrieveMatches,
		m.chatTurns, m.toolCalls,
		m.dbStats,
	}
	for _, mw := range writers {
		if err := mw.WritePrometheus(w); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) ObserveAPI(method, route, status string, dur time.Duration) {
	if m == nil {
		return
	}
	if method == "" {
		method = "UNKNOWN"
	}
	if route == "" {
		route = "unknown"
	}
	if status == "" {
		status = "0"
	}
	m.apiRequests.Inc(method, route, status)
	m.apiLatency.Observe(dur.Seconds(), method, route, status)
}

func (m *Metrics) ApiInflightInc() {
	if m == nil {
		return
	}
	m.apiInflight.Inc()
}

func (m *Metrics) ApiInflightDec() {
	if m == nil {
		return
	}
	m.apiInflight.Dec()
}

func (m *Metrics) ObserveLLMRequest(model, endpoint, status string, dur time.Duration, inputTokens, outputTokens int) {
	if m == nil {
		return
	}
	model = orUnknown(model)
	endpoint = orUnknown(endpoint)
	if status == "" {
		status = "0"
	}
	m.llmRequests.Inc(model, endpoint, status)
	if dur > 0 {
		m.llmLatency.Observe(dur.Seconds(), model, endpoint, status)
	}
	if inputTokens > 0 {
		m.llmTokens.Add(float64(inputTokens), model, "input")
	}
	if outputTokens > 0 {
		m.llmTokens.Add(float64(outputTokens), model, "output")
	}
}

func (m *Metrics) ObserveIngest(path, status string, chunks int, dur time.Duration) {
	if m == nil {
		return
	}
	m.ingestTotal.Inc(orUnknown(path), orUnknown(status))
	if chunks > 0 {
		m.ingestChunks.Add(float64(chunks), orUnknown(path))
	}
	m.ingestLatency.Observe(dur.Seconds(), orUnknown(path))
}

func (m *Metrics) ObserveRetrieve(status string, matches int) {
	if m == nil {
		return
	}
	m.retrieveTotal.Inc(orUnknown(status))
	m.retrieveMatches.Observe(float64(matches))
}

func (m *Metrics) IncChatTurn(status string) {
	if m == nil {
		return
	}
	m.chatTurns.Inc(orUnknown(status))
}

func (m *Metrics) IncToolCall(tool, status string) {
	if m == nil {
		return
	}
	m.toolCalls.Inc(orUnknown(tool), orUnknown(status))
}

// StartDBCollector samples pool statistics until ctx is done.
func (m *Metrics) StartDBCollector(ctx context.Context, log *logger.Logger, db *gorm.DB, interval time.Duration) {
	if m == nil || db == nil {
		return
	}
	if interval <= 0 {
		interval = 10 * time.Second
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				sqlDB, err := db.DB()
				if err != nil {
					if log != nil {
						log.Warn("metrics: db stats unavailable", "error", err)
					}
					continue
				}
				stats := sqlDB.Stats()
				m.dbStats.Set(float64(stats.OpenConnections), "open_connections")
				m.dbStats.Set(float64(stats.InUse), "in_use")
				m.dbStats.Set(float64(stats.Idle), "idle")
				m.dbStats.Set(float64(stats.WaitCount), "wait_count")
				m.dbStats.Set(stats.WaitDuration.Seconds(), "wait_duration_seconds")
			}
		}
	}()
}

func orUnknown(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "unknown"
	}
	return s
}
