package embedder

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/recipes-assistant-backend/internal/platform/logger"
)

// fakeTransport encodes each input's length into a fixed-size vector.
type fakeTransport struct {
	mu      sync.Mutex
	dims    int
	batches [][]string
	err     error
	short   bool
}

func (f *fakeTransport) Embed(ctx context.Context, inputs []string) ([][]float32, error) {
	f.mu.Lock()
	f.batches = append(f.batches, append([]string(nil), inputs...))
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(inputs))
	for i, in := range inputs {
		v := make([]float32, f.dims)
		v[0] = float32(len(in))
		out[i] = v
	}
	if f.short {
		out = out[:len(out)-1]
	}
	return out, nil
}

func TestEmbedManyPreservesOrderAcrossBatches(t *testing.T) {
	tr := &fakeTransport{dims: 3}
	e := New(logger.NewNop(), tr, Config{Dimensions: 3, BatchSize: 2, Concurrency: 3})

	texts := []string{"a", "bb", "ccc", "dddd", "eeeee"}
	out, err := e.EmbedMany(context.Background(), texts)
	require.NoError(t, err)
	require.Len(t, out, len(texts))
	for i, txt := range texts {
		assert.Equal(t, float32(len(txt)), out[i][0], "index %d", i)
	}
	assert.Len(t, tr.batches, 3)
}

func TestEmbedManyNormalizesEscapes(t *testing.T) {
	tr := &fakeTransport{dims: 1}
	e := New(logger.NewNop(), tr, Config{Dimensions: 1})

	_, err := e.EmbedMany(context.Background(), []string{`Chop onions\nfinely`})
	require.NoError(t, err)
	require.Len(t, tr.batches, 1)
	assert.Equal(t, []string{"Chop onions finely"}, tr.batches[0])
}

func TestEmbedManyEmpty(t *testing.T) {
	tr := &fakeTransport{dims: 1}
	out, err := New(logger.NewNop(), tr, Config{Dimensions: 1}).EmbedMany(context.Background(), nil)
	require.NoError(t, err)
	assert.NotNil(t, out)
	assert.Empty(t, out)
	assert.Empty(t, tr.batches)
}

func TestEmbedOne(t *testing.T) {
	e := New(logger.NewNop(), &fakeTransport{dims: 2}, Config{Dimensions: 2})
	v, err := e.EmbedOne(context.Background(), "pasta")
	require.NoError(t, err)
	assert.Equal(t, []float32{5, 0}, v)
}

func TestProviderErrors(t *testing.T) {
	cases := map[string]*fakeTransport{
		"transport": {dims: 2, err: errors.New("boom")},
		"count":     {dims: 2, short: true},
		"dims":      {dims: 3},
	}
	for name, tr := range cases {
		t.Run(name, func(t *testing.T) {
			e := New(logger.NewNop(), tr, Config{Dimensions: 2})
			_, err := e.EmbedMany(context.Background(), []string{"a", "b"})
			var pe *ProviderError
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, "embed", pe.Op)
		})
	}
}

func TestProviderErrorNotRetried(t *testing.T) {
	tr := &fakeTransport{dims: 2, err: errors.New("503")}
	_, err := New(logger.NewNop(), tr, Config{Dimensions: 2}).EmbedOne(context.Background(), "x")
	require.Error(t, err)
	assert.Len(t, tr.batches, 1)
}

func TestCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	e := New(logger.NewNop(), &fakeTransport{dims: 1}, Config{Dimensions: 1, RatePerSec: 1})
	_, err := e.EmbedOne(ctx, "x")
	var pe *ProviderError
	require.ErrorAs(t, err, &pe)
}
