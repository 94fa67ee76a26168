package gcp

import (
	"context"
	"fmt"
	"strings"
	"time"

	documentai "cloud.google.com/go/documentai/apiv1"
	"cloud.google.com/go/documentai/apiv1/documentaipb"
	"google.golang.org/api/option"

	"github.com/yungbote/recipes-assistant-backend/internal/platform/ctxutil"
	"github.com/yungbote/recipes-assistant-backend/internal/platform/logger"
)

type DocumentConfig struct {
	ProjectID        string
	Location         string
	ProcessorID      string
	ProcessorVersion string
	Credentials      string
	Timeout          time.Duration
}

// DocumentParser turns an uploaded recipe file into ordered text blocks.
type DocumentParser interface {
	Paragraphs(ctx context.Context, data []byte, mimeType string) ([]string, error)
	Close() error
}

type documentParser struct {
	log       *logger.Logger
	client    *documentai.DocumentProcessorClient
	processor string
	timeout   time.Duration
}

func NewDocumentParser(log *logger.Logger, cfg DocumentConfig) (DocumentParser, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if strings.TrimSpace(cfg.Location) == "" {
		cfg.Location = "us"
	}
	processor := processorName(cfg.ProjectID, cfg.Location, cfg.ProcessorID, cfg.ProcessorVersion)
	if processor == "" {
		return nil, fmt.Errorf("documentai: DOCUMENTAI_PROJECT_ID and DOCUMENTAI_PROCESSOR_ID are required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 3 * time.Minute
	}
	slog := log.With("service", "gcp.DocumentParser")

	endpoint := fmt.Sprintf("%s-documentai.googleapis.com:443", strings.TrimSpace(cfg.Location))
	opts := append([]option.ClientOption{option.WithEndpoint(endpoint)}, ClientOptions(cfg.Credentials)...)
	c, err := documentai.NewDocumentProcessorClient(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("documentai client: %w", err)
	}
	slog.Info("Document AI initialized", "endpoint", endpoint, "processor", processor)

	return &documentParser{log: slog, client: c, processor: processor, timeout: cfg.Timeout}, nil
}

func (p *documentParser) Close() error {
	if p == nil || p.client == nil {
		return nil
	}
	return p.client.Close()
}

func (p *documentParser) Paragraphs(ctx context.Context, data []byte, mimeType string) ([]string, error) {
	if len(data) == 0 {
		return []string{}, nil
	}
	ctx, cancel := context.WithTimeout(ctxutil.Default(ctx), p.timeout)
	defer cancel()

	if mimeType == "" {
		mimeType = "application/pdf"
	}
	resp, err := p.client.ProcessDocument(ctx, &documentaipb.ProcessRequest{
		Name: p.processor,
		Source: &documentaipb.ProcessRequest_RawDocument{
			RawDocument: &documentaipb.RawDocument{Content: data, MimeType: mimeType},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("documentai ProcessDocument: %w", err)
	}
	if resp == nil {
		return []string{}, nil
	}
	out := paragraphsFromDocument(resp.GetDocument())
	p.log.Debug("document parsed", "mime_type", mimeType, "paragraphs", len(out))
	return out, nil
}

// paragraphsFromDocument returns page paragraphs in reading order, then one
// block per table row. It falls back to the full text when the processor
// returned no layout.
func paragraphsFromDocument(doc *documentaipb.Document) []string {
	out := []string{}
	if doc == nil {
		return out
	}
	for _, page := range doc.GetPages() {
		for _, para := range page.GetParagraphs() {
			if t := strings.TrimSpace(textFromAnchor(doc.Text, para.GetLayout().GetTextAnchor())); t != "" {
				out = append(out, t)
			}
		}
		for _, table := range page.GetTables() {
			out = append(out, tableRows(doc.Text, table)...)
		}
	}
	if len(out) == 0 {
		if t := strings.TrimSpace(doc.Text); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func textFromAnchor(full string, anchor *documentaipb.Document_TextAnchor) string {
	if anchor == nil || full == "" {
		return ""
	}
	var b strings.Builder
	for _, seg := range anchor.TextSegments {
		if seg == nil {
			continue
		}
		start, end := int(seg.StartIndex), int(seg.EndIndex)
		if start < 0 {
			start = 0
		}
		if end > len(full) {
			end = len(full)
		}
		if start < end {
			b.WriteString(full[start:end])
		}
	}
	return b.String()
}

// tableRows renders each table row as "cell, cell, ..."; ingredient tables
// read naturally that way.
func tableRows(full string, t *documentaipb.Document_Page_Table) []string {
	if t == nil {
		return nil
	}
	rows := append(append([]*documentaipb.Document_Page_Table_TableRow{}, t.HeaderRows...), t.BodyRows...)
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		cells := make([]string, 0, len(r.GetCells()))
		for _, c := range r.GetCells() {
			if s := strings.TrimSpace(textFromAnchor(full, c.GetLayout().GetTextAnchor())); s != "" {
				cells = append(cells, s)
			}
		}
		if len(cells) > 0 {
			out = append(out, strings.Join(cells, ", "))
		}
	}
	return out
}

func processorName(project, location, processorID, version string) string {
	project = strings.TrimSpace(project)
	location = strings.TrimSpace(location)
	processorID = strings.TrimSpace(processorID)
	version = strings.TrimSpace(version)

	if project == "" || location == "" || processorID == "" {
		return ""
	}
	base := fmt.Sprintf("projects/%s/locations/%s/processors/%s", project, location, processorID)
	if version != "" {
		return base + "/processorVersions/" + version
	}
	return base
}
