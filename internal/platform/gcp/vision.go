package gcp

import (
	"context"
	"fmt"
	"strings"
	"time"

	vision "cloud.google.com/go/vision/v2/apiv1"
	visionpb "cloud.google.com/go/vision/v2/apiv1/visionpb"

	"github.com/yungbote/biomarker-backend/internal/platform/logger"
)

// Vision runs document text detection on a single image.
type Vision interface {
	OCRImageBytes(ctx context.Context, img []byte) (*VisionOCRResult, error)
	Close() error
}

type VisionOCRResult struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
	Pages      int     `json:"pages"`
	Blocks     int     `json:"blocks"`
}

type visionService struct {
	log    *logger.Logger
	client *vision.ImageAnnotatorClient
}

func NewVision(ctx context.Context, log *logger.Logger) (Vision, error) {
	c, err := vision.NewImageAnnotatorClient(ctx, ClientOptionsFromEnv()...)
	if err != nil {
		return nil, fmt.Errorf("vision client: %w", err)
	}
	return &visionService{log: log.With("service", "gcp.Vision"), client: c}, nil
}

func (s *visionService) Close() error {
	return s.client.Close()
}

func (s *visionService) OCRImageBytes(ctx context.Context, img []byte) (*VisionOCRResult, error) {
	if len(img) == 0 {
		return &VisionOCRResult{}, nil
	}
	ctx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	resp, err := s.client.BatchAnnotateImages(ctx, &visionpb.BatchAnnotateImagesRequest{
		Requests: []*visionpb.AnnotateImageRequest{{
			Image:    &visionpb.Image{Content: img},
			Features: []*visionpb.Feature{{Type: visionpb.Feature_DOCUMENT_TEXT_DETECTION}},
		}},
	})
	if err != nil {
		return nil, fmt.Errorf("vision BatchAnnotateImages: %w", err)
	}
	if resp == nil || len(resp.Responses) == 0 || resp.Responses[0] == nil {
		return &VisionOCRResult{}, nil
	}
	r0 := resp.Responses[0]
	if r0.Error != nil && r0.Error.Message != "" {
		return nil, fmt.Errorf("vision annotate error: %s", r0.Error.Message)
	}
	return resultFromAnnotation(r0.FullTextAnnotation), nil
}

func resultFromAnnotation(fta *visionpb.TextAnnotation) *VisionOCRResult {
	if fta == nil || strings.TrimSpace(fta.Text) == "" {
		return &VisionOCRResult{}
	}
	var blocks []*visionpb.Block
	for _, pg := range fta.Pages {
		if pg != nil {
			blocks = append(blocks, pg.Blocks...)
		}
	}
	return &VisionOCRResult{
		// Line breaks are kept: lab reports are tabular and the extractor
		// relies on one row per line.
		Text:       strings.TrimSpace(fta.Text),
		Confidence: avgBlockConfidence(blocks),
		Pages:      len(fta.Pages),
		Blocks:     len(blocks),
	}
}

// avgBlockConfidence is the mean of non-zero block confidences, clamped to [0, 1].
func avgBlockConfidence(blocks []*visionpb.Block) float64 {
	var sum float64
	n := 0
	for _, b := range blocks {
		if b == nil || b.Confidence <= 0 {
			continue
		}
		sum += float64(b.Confidence)
		n++
	}
	if n == 0 {
		return 0
	}
	avg := sum / float64(n)
	if avg > 1 {
		return 1
	}
	return avg
}
