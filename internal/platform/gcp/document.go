package gcp

import (
	"context"
	"fmt"
	"strings"
	"time"

	documentai "cloud.google.com/go/documentai/apiv1"
	"cloud.google.com/go/documentai/apiv1/documentaipb"
	"google.golang.org/api/option"
	"google.golang.org/protobuf/types/known/fieldmaskpb"

	"github.com/yungbote/biomarker-backend/internal/platform/envutil"
	"github.com/yungbote/biomarker-backend/internal/platform/logger"
)

// DocumentOCR sends scanned PDFs to a Document AI OCR processor.
type DocumentOCR interface {
	ProcessBytes(ctx context.Context, data []byte, mimeType string) (*DocAIResult, error)
	Close() error
}

type DocAIConfig struct {
	ProjectID   string
	Location    string
	ProcessorID string
}

// DocAIConfigFromEnv reads DOCUMENTAI_*; ok is false when no processor is set.
func DocAIConfigFromEnv() (DocAIConfig, bool) {
	cfg := DocAIConfig{
		ProjectID:   envutil.String("DOCUMENTAI_PROJECT_ID", envutil.String("GOOGLE_CLOUD_PROJECT", "")),
		Location:    envutil.String("DOCUMENTAI_LOCATION", "us"),
		ProcessorID: envutil.String("DOCUMENTAI_PROCESSOR_ID", ""),
	}
	return cfg, cfg.ProcessorID != "" && cfg.ProjectID != ""
}

func (c DocAIConfig) processorName() string {
	return fmt.Sprintf("projects/%s/locations/%s/processors/%s", c.ProjectID, c.Location, c.ProcessorID)
}

type DocAIResult struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
	Pages      int     `json:"pages"`
}

type documentService struct {
	log    *logger.Logger
	cfg    DocAIConfig
	client *documentai.DocumentProcessorClient
}

func NewDocumentOCR(ctx context.Context, log *logger.Logger, cfg DocAIConfig) (DocumentOCR, error) {
	endpoint := fmt.Sprintf("%s-documentai.googleapis.com:443", cfg.Location)
	opts := append([]option.ClientOption{option.WithEndpoint(endpoint)}, ClientOptionsFromEnv()...)
	c, err := documentai.NewDocumentProcessorClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("documentai client: %w", err)
	}
	slog := log.With("service", "gcp.DocumentOCR")
	slog.Info("Document AI initialized", "endpoint", endpoint, "processor", cfg.ProcessorID)
	return &documentService{log: slog, cfg: cfg, client: c}, nil
}

func (s *documentService) Close() error {
	return s.client.Close()
}

func (s *documentService) ProcessBytes(ctx context.Context, data []byte, mimeType string) (*DocAIResult, error) {
	if len(data) == 0 {
		return &DocAIResult{}, nil
	}
	if mimeType == "" {
		mimeType = "application/pdf"
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Minute)
	defer cancel()

	resp, err := s.client.ProcessDocument(ctx, &documentaipb.ProcessRequest{
		Name: s.cfg.processorName(),
		Source: &documentaipb.ProcessRequest_RawDocument{
			RawDocument: &documentaipb.RawDocument{Content: data, MimeType: mimeType},
		},
		FieldMask: &fieldmaskpb.FieldMask{Paths: []string{"text", "pages.page_number", "pages.layout"}},
	})
	if err != nil {
		return nil, fmt.Errorf("documentai ProcessDocument: %w", err)
	}
	if resp == nil || resp.Document == nil {
		return &DocAIResult{}, nil
	}
	return resultFromDocument(resp.Document), nil
}

func resultFromDocument(doc *documentaipb.Document) *DocAIResult {
	out := &DocAIResult{Text: strings.TrimSpace(doc.GetText()), Pages: len(doc.GetPages())}
	var sum float64
	n := 0
	for _, p := range doc.GetPages() {
		if l := p.GetLayout(); l != nil && l.GetConfidence() > 0 {
			sum += float64(l.GetConfidence())
			n++
		}
	}
	if n > 0 {
		out.Confidence = sum / float64(n)
	}
	return out
}
