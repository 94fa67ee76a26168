package services

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/recipes-assistant-backend/internal/clients/uploader"
	"github.com/yungbote/recipes-assistant-backend/internal/data/repos/testutil"
	"github.com/yungbote/recipes-assistant-backend/internal/platform/filestore"
	"github.com/yungbote/recipes-assistant-backend/internal/platform/httpx"
)

type fakeUploader struct {
	res uploader.Result
	err error
}

func (f fakeUploader) ProcessFile(ctx context.Context, filename string) (uploader.Result, error) {
	return f.res, f.err
}

func (f fakeUploader) ProcessAll(ctx context.Context) ([]uploader.FileSummary, error) {
	return nil, nil
}

func TestUploaderConverter(t *testing.T) {
	c := NewUploaderConverter(testutil.Logger(t), fakeUploader{res: uploader.Result{ProcessedChunks: []string{"a", "b"}, Processed: 2}})
	res, err := c.ProcessFile(context.Background(), "soup.md")
	require.NoError(t, err)
	assert.Equal(t, 2, res.Processed)

	c = NewUploaderConverter(testutil.Logger(t), fakeUploader{err: &httpx.StatusError{Service: "uploader", StatusCode: http.StatusUnsupportedMediaType}})
	_, err = c.ProcessFile(context.Background(), "soup.xyz")
	var ce *CollaboratorError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, http.StatusUnsupportedMediaType, ce.Status)
}

type fakeParser struct {
	paras    []string
	err      error
	mimeType string
}

func (f *fakeParser) Paragraphs(ctx context.Context, data []byte, mimeType string) ([]string, error) {
	f.mimeType = mimeType
	return f.paras, f.err
}

func (f *fakeParser) Close() error { return nil }

func newDocumentConverter(t *testing.T, parser *fakeParser) (Converter, filestore.FileStore, *pipeline) {
	t.Helper()
	p := newPipeline(t)
	fs, err := filestore.NewLocal(testutil.Logger(t), t.TempDir())
	require.NoError(t, err)
	return NewDocumentConverter(testutil.Logger(t), fs, parser, p.ingestion), fs, p
}

func TestDocumentConverterMarkdown(t *testing.T) {
	c, fs, p := newDocumentConverter(t, &fakeParser{})
	ctx := context.Background()
	_, err := fs.Save(ctx, "soup.md", strings.NewReader("# Tomato soup\r\n\r\nChop onions.\n\n\nSimmer 20 minutes.\n"))
	require.NoError(t, err)

	res, err := c.ProcessFile(ctx, "soup.md")
	require.NoError(t, err)
	assert.Equal(t, []string{"# Tomato soup\nChop onions.\nSimmer 20 minutes."}, res.ProcessedChunks)
	assert.Equal(t, 1, res.Processed)

	resources, embeddings := p.counts(t)
	assert.Equal(t, 1, resources)
	assert.EqualValues(t, 1, embeddings)
}

func TestDocumentConverterUsesParserForPDF(t *testing.T) {
	long := strings.Repeat("x", 700)
	parser := &fakeParser{paras: []string{"Ingredients", long}}
	c, fs, p := newDocumentConverter(t, parser)
	ctx := context.Background()
	_, err := fs.Save(ctx, "cake.pdf", strings.NewReader("%PDF-1.4"))
	require.NoError(t, err)

	res, err := c.ProcessFile(ctx, "cake.pdf")
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", parser.mimeType)
	require.Greater(t, res.Processed, 1)
	for _, chunk := range res.ProcessedChunks {
		assert.LessOrEqual(t, len([]rune(chunk)), ConvertChunkMaxChars)
	}
	_, embeddings := p.counts(t)
	assert.EqualValues(t, res.Processed, embeddings)
}

func TestDocumentConverterErrors(t *testing.T) {
	ctx := context.Background()

	c, fs, _ := newDocumentConverter(t, &fakeParser{})
	_, err := fs.Save(ctx, "notes.xyz", strings.NewReader("?"))
	require.NoError(t, err)
	_, err = c.ProcessFile(ctx, "notes.xyz")
	assert.True(t, IsValidation(err))

	_, err = c.ProcessFile(ctx, "missing.md")
	require.Error(t, err)

	c, fs, _ = newDocumentConverter(t, &fakeParser{err: errors.New("quota")})
	_, err = fs.Save(ctx, "a.pdf", strings.NewReader("%PDF"))
	require.NoError(t, err)
	_, err = c.ProcessFile(ctx, "a.pdf")
	var ce *CollaboratorError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "documentai", ce.Service)
}

func TestDocumentConverterEmptyFile(t *testing.T) {
	c, fs, p := newDocumentConverter(t, &fakeParser{})
	ctx := context.Background()
	_, err := fs.Save(ctx, "empty.txt", strings.NewReader("  \n\n "))
	require.NoError(t, err)

	res, err := c.ProcessFile(ctx, "empty.txt")
	require.NoError(t, err)
	assert.Zero(t, res.Processed)
	resources, _ := p.counts(t)
	assert.Zero(t, resources)
}
