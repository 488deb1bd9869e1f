package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	pdf "github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"go.opentelemetry.io/otel/attribute"

	"github.com/yungbote/biomarker-backend/internal/observability"
	"github.com/yungbote/biomarker-backend/internal/platform/gcp"
	"github.com/yungbote/biomarker-backend/internal/platform/imaging"
	"github.com/yungbote/biomarker-backend/internal/platform/logger"
)

const (
	OCRMethodPDFText    = "pdf_text"
	OCRMethodDocumentAI = "document_ai"
	OCRMethodVision     = "vision"

	// Text layers shorter than this are treated as scanned pages.
	minPDFTextChars   = 50
	pdfTextConfidence = 0.95
)

type OCRResult struct {
	Text       string         `json:"-"`
	Confidence float64        `json:"confidence"`
	Method     string         `json:"method"`
	Pages      int            `json:"pages,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

type OCRService interface {
	Extract(ctx context.Context, data []byte, mimeType string) (*OCRResult, error)
}

type ocrService struct {
	log    *logger.Logger
	vision gcp.Vision
	docAI  gcp.DocumentOCR
}

// NewOCRService wires the optional providers. A nil vision client fails image
// documents; a nil docAI client fails scanned PDFs.
func NewOCRService(baseLog *logger.Logger, vision gcp.Vision, docAI gcp.DocumentOCR) OCRService {
	return &ocrService{
		log:    baseLog.With("service", "OCRService"),
		vision: vision,
		docAI:  docAI,
	}
}

func (s *ocrService) Extract(ctx context.Context, data []byte, mimeType string) (*OCRResult, error) {
	var (
		res *OCRResult
		err error
	)
	switch {
	case isPDFMIME(mimeType):
		res, err = s.extractPDF(ctx, data)
	case isImageMIME(mimeType):
		res, err = s.extractImage(ctx, data)
	default:
		return nil, fmt.Errorf("%w: unsupported file type %q", ErrInvalidFile, mimeType)
	}
	if err != nil {
		return nil, err
	}
	res.Text = strings.TrimSpace(res.Text)
	if res.Text == "" {
		return nil, ErrNoTextExtracted
	}
	if res.Confidence < 0 {
		res.Confidence = 0
	}
	if res.Confidence > 1 {
		res.Confidence = 1
	}
	observability.Current().ObserveOCRConfidence(res.Method, res.Confidence)
	return res, nil
}

func (s *ocrService) extractPDF(ctx context.Context, data []byte) (*OCRResult, error) {
	pages := pdfPageCount(data)
	text, err := pdfTextLayer(data)
	if err != nil {
		s.log.Warn("pdf text layer unreadable", "error", err)
	}
	if len(strings.TrimSpace(text)) >= minPDFTextChars {
		return &OCRResult{
			Text:       text,
			Confidence: pdfTextConfidence,
			Method:     OCRMethodPDFText,
			Pages:      pages,
			Metadata:   map[string]any{"text_length": len(text)},
		}, nil
	}

	if s.docAI == nil {
		return nil, ErrScannedPDFNeedsSetup
	}
	ctx, span := observability.StartSpan(ctx, "ocr.document_ai", attribute.Int("pdf.pages", pages))
	out, err := s.docAI.ProcessBytes(ctx, data, "application/pdf")
	observability.EndSpan(span, err)
	if err != nil {
		return nil, fmt.Errorf("document ai: %w", err)
	}
	if out.Pages > 0 {
		pages = out.Pages
	}
	return &OCRResult{
		Text:       out.Text,
		Confidence: out.Confidence,
		Method:     OCRMethodDocumentAI,
		Pages:      pages,
		Metadata:   map[string]any{"scanned": true, "text_length": len(out.Text)},
	}, nil
}

func (s *ocrService) extractImage(ctx context.Context, data []byte) (*OCRResult, error) {
	if s.vision == nil {
		return nil, ErrOCRNotConfigured
	}
	meta := map[string]any{}
	img := data
	if norm, err := imaging.Normalize(data); err != nil {
		s.log.Warn("image normalization failed; sending original bytes", "error", err)
		meta["normalized"] = false
	} else {
		img = norm.PNG
		meta["normalized"] = true
		meta["format"] = norm.Format
		meta["original_size"] = fmt.Sprintf("%dx%d", norm.OriginalWidth, norm.OriginalHeight)
		meta["processed_size"] = fmt.Sprintf("%dx%d", norm.Width, norm.Height)
	}

	ctx, span := observability.StartSpan(ctx, "ocr.vision", attribute.Int("image.bytes", len(img)))
	out, err := s.vision.OCRImageBytes(ctx, img)
	observability.EndSpan(span, err)
	if err != nil {
		return nil, fmt.Errorf("vision ocr: %w", err)
	}
	meta["blocks"] = out.Blocks
	meta["text_length"] = len(out.Text)
	return &OCRResult{
		Text:       out.Text,
		Confidence: out.Confidence,
		Method:     OCRMethodVision,
		Pages:      out.Pages,
		Metadata:   meta,
	}, nil
}

func pdfTextLayer(data []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf reader panic: %v", r)
		}
	}()
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("pdf reader: %w", err)
	}
	plain, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("pdf plaintext: %w", err)
	}
	b, err := io.ReadAll(plain)
	if err != nil {
		return "", fmt.Errorf("pdf read: %w", err)
	}
	return collapseWhitespace(string(b)), nil
}

// pdfPageCount returns 0 when pdfcpu cannot parse the file.
func pdfPageCount(data []byte) int {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	n, err := api.PageCount(bytes.NewReader(data), conf)
	if err != nil {
		return 0
	}
	return n
}

func collapseWhitespace(s string) string {
	lines := strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n")
	out := make([]string, 0, len(lines))
	for _, ln := range lines {
		ln = strings.Join(strings.Fields(ln), " ")
		if ln != "" {
			out = append(out, ln)
		}
	}
	return strings.Join(out, "\n")
}
