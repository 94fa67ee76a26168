package embedder

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/yungbote/recipes-assistant-backend/internal/ingestion/chunker"
	"github.com/yungbote/recipes-assistant-backend/internal/observability"
	"github.com/yungbote/recipes-assistant-backend/internal/platform/logger"
)

const (
	DefaultDimensions  = 1536
	DefaultBatchSize   = 96
	DefaultConcurrency = 4
	DefaultRatePerSec  = 20
)

// Transport sends one batch to the embedding provider.
type Transport interface {
	Embed(ctx context.Context, inputs []string) ([][]float32, error)
}

type Embedder interface {
	EmbedOne(ctx context.Context, text string) ([]float32, error)
	EmbedMany(ctx context.Context, texts []string) ([][]float32, error)
}

type Config struct {
	Dimensions  int
	BatchSize   int
	Concurrency int
	// RatePerSec caps outbound calls; <= 0 disables the limit.
	RatePerSec float64
}

func (c Config) withDefaults() Config {
	if c.Dimensions <= 0 {
		c.Dimensions = DefaultDimensions
	}
	if c.BatchSize <= 0 {
		c.BatchSize = DefaultBatchSize
	}
	if c.Concurrency <= 0 {
		c.Concurrency = DefaultConcurrency
	}
	return c
}

// ProviderError wraps every failure of the embedding provider. It is never
// retried here.
type ProviderError struct {
	Op  string
	Err error
}

func (e *ProviderError) Error() string {
	if e.Err == nil {
		return "embedding provider: " + e.Op
	}
	return fmt.Sprintf("embedding provider %s: %v", e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

type embedder struct {
	log       *logger.Logger
	transport Transport
	cfg       Config
	limiter   *rate.Limiter
}

func New(log *logger.Logger, transport Transport, cfg Config) Embedder {
	cfg = cfg.withDefaults()
	limit := rate.Inf
	if cfg.RatePerSec > 0 {
		limit = rate.Limit(cfg.RatePerSec)
	}
	return &embedder{
		log:       log.With("service", "Embedder"),
		transport: transport,
		cfg:       cfg,
		limiter:   rate.NewLimiter(limit, cfg.Concurrency),
	}
}

func (e *embedder) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EmbedMany(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedMany returns one vector per text, in input order.
func (e *embedder) EmbedMany(ctx context.Context, texts []string) (out [][]float32, err error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	ctx, span := observability.StartSpan(ctx, "embed.many",
		attribute.Int("embed.inputs", len(texts)),
		attribute.Int("embed.batch_size", e.cfg.BatchSize),
	)
	defer func() { observability.EndSpan(span, err) }()

	inputs := make([]string, len(texts))
	for i, t := range texts {
		s := chunker.NormalizeEscapes(t)
		if strings.TrimSpace(s) == "" {
			s = " "
		}
		inputs[i] = s
	}

	out = make([][]float32, len(inputs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.Concurrency)
	for start := 0; start < len(inputs); start += e.cfg.BatchSize {
		end := start + e.cfg.BatchSize
		if end > len(inputs) {
			end = len(inputs)
		}
		offset, batch := start, inputs[start:end]
		g.Go(func() error {
			vecs, err := e.embedBatch(gctx, batch)
			if err != nil {
				return err
			}
			copy(out[offset:], vecs)
			return nil
		})
	}
	if err = g.Wait(); err != nil {
		e.log.Warn("embedding failed", "inputs", len(inputs), "error", err)
		return nil, err
	}
	return out, nil
}

func (e *embedder) embedBatch(ctx context.Context, batch []string) ([][]float32, error) {
	if err := e.limiter.Wait(ctx); err != nil {
		return nil, &ProviderError{Op: "rate_wait", Err: err}
	}
	vecs, err := e.transport.Embed(ctx, batch)
	if err != nil {
		return nil, &ProviderError{Op: "embed", Err: err}
	}
	if len(vecs) != len(batch) {
		return nil, &ProviderError{Op: "embed", Err: fmt.Errorf("got %d vectors for %d inputs", len(vecs), len(batch))}
	}
	for i, v := range vecs {
		if len(v) != e.cfg.Dimensions {
			return nil, &ProviderError{Op: "embed", Err: fmt.Errorf("vector %d has %d dimensions, want %d", i, len(v), e.cfg.Dimensions)}
		}
	}
	return vecs, nil
}
