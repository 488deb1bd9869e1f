package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	types "github.com/yungbote/biomarker-backend/internal/domain"
	"github.com/yungbote/biomarker-backend/internal/platform/llm"
	"github.com/yungbote/biomarker-backend/internal/platform/logger"
)

const maxExtractionTextChars = 30000

// ExtractedBiomarker is one item the model returned.
type ExtractedBiomarker struct {
	Name           string  `json:"name" validate:"required,max=200"`
	Value          float64 `json:"value"`
	Unit           string  `json:"unit" validate:"max=64"`
	Category       string  `json:"category" validate:"max=100"`
	Confidence     float64 `json:"confidence" validate:"gte=0,lte=1"`
	BiomarkerID    *string `json:"biomarker_id"`
	ReferenceRange *string `json:"reference_range"`
}

// ExtractionResult is either ExtractionParsed or ExtractionMalformed.
type ExtractionResult interface {
	isExtractionResult()
}

type ExtractionParsed struct {
	Readings []*types.BiomarkerReading
	Items    []ExtractedBiomarker
	Dropped  int
	Matched  int
	Provider string
	Model    string
	Usage    llm.Usage
	CostUSD  float64
}

type ExtractionMalformed struct {
	Err error
	Raw string
}

func (ExtractionParsed) isExtractionResult()    {}
func (ExtractionMalformed) isExtractionResult() {}

type BiomarkerExtractor interface {
	// Extract returns an error only when the model call itself failed.
	Extract(ctx context.Context, text string, catalogue []*types.Biomarker) (ExtractionResult, error)
}

var extractionSchema = map[string]any{
	"type":                 "object",
	"additionalProperties": false,
	"required":             []any{"biomarkers"},
	"properties": map[string]any{
		"biomarkers": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type":                 "object",
				"additionalProperties": false,
				"required":             []any{"name", "value", "unit", "category", "confidence", "biomarker_id", "reference_range"},
				"properties": map[string]any{
					"name":            map[string]any{"type": "string"},
					"value":           map[string]any{"type": "number"},
					"unit":            map[string]any{"type": "string"},
					"category":        map[string]any{"type": "string"},
					"confidence":      map[string]any{"type": "number"},
					"biomarker_id":    map[string]any{"type": nullable("string")},
					"reference_range": map[string]any{"type": nullable("string")},
				},
			},
		},
	},
}

var extractionValidator = newCompiledSchema("biomarker_extraction", extractionSchema)

const extractionSystemPrompt = `You extract biomarker results from blood test reports.
Return every measured biomarker with its numeric value, unit and category.
When a result matches an entry in the provided catalogue, set biomarker_id to that entry's id and use its category; otherwise set biomarker_id to null.
confidence is your certainty from 0 to 1 that name, value and unit were read correctly.
Skip values that are not numeric (for example "positive" or "see note").
Return only JSON matching the schema.`

type biomarkerExtractor struct {
	log *logger.Logger
	ai  llm.Client
}

func NewBiomarkerExtractor(baseLog *logger.Logger, ai llm.Client) BiomarkerExtractor {
	return &biomarkerExtractor{log: baseLog.With("service", "BiomarkerExtractor"), ai: ai}
}

func (e *biomarkerExtractor) Extract(ctx context.Context, text string, catalogue []*types.Biomarker) (ExtractionResult, error) {
	if e.ai == nil {
		return nil, llm.ErrNotConfigured
	}
	resp, err := e.ai.GenerateJSON(ctx, llm.Request{
		System:     extractionSystemPrompt,
		User:       buildExtractionPrompt(text, catalogue),
		SchemaName: "biomarker_extraction",
		Schema:     extractionSchema,
	})
	if err != nil {
		return nil, err
	}

	var payload struct {
		Biomarkers []ExtractedBiomarker `json:"biomarkers"`
	}
	if err := extractionValidator.Validate(resp.Object, &payload); err != nil {
		return ExtractionMalformed{Err: err, Raw: resp.Raw}, nil
	}

	idx := newCatalogueIndex(catalogue)
	out := ExtractionParsed{
		Provider: resp.Provider,
		Model:    resp.Model,
		Usage:    resp.Usage,
		CostUSD:  resp.CostUSD,
	}
	for _, item := range payload.Biomarkers {
		item.Name = strings.TrimSpace(item.Name)
		if err := structValidator().Struct(item); err != nil {
			e.log.Warn("dropping invalid extracted biomarker", "name", item.Name, "error", err)
			out.Dropped++
			continue
		}
		reading := &types.BiomarkerReading{
			Name:       item.Name,
			Value:      item.Value,
			Unit:       strings.TrimSpace(item.Unit),
			Category:   strings.TrimSpace(item.Category),
			Confidence: item.Confidence,
		}
		if item.ReferenceRange != nil {
			reading.ReferenceRange = strings.TrimSpace(*item.ReferenceRange)
		}
		if b := idx.match(item); b != nil {
			id := b.ID
			reading.BiomarkerID = &id
			reading.IsMatched = true
			if reading.Category == "" {
				reading.Category = b.Category
			}
			if reading.Unit == "" {
				reading.Unit = b.Unit
			}
			out.Matched++
		}
		if reading.Category == "" {
			reading.Category = "other"
		}
		out.Items = append(out.Items, item)
		out.Readings = append(out.Readings, reading)
	}
	if len(out.Readings) == 0 {
		return ExtractionMalformed{Err: ErrNoBiomarkersExtracted, Raw: resp.Raw}, nil
	}
	return out, nil
}

func buildExtractionPrompt(text string, catalogue []*types.Biomarker) string {
	var b strings.Builder
	b.WriteString("Known biomarkers (id | name | aliases | unit | category):\n")
	for _, bm := range catalogue {
		fmt.Fprintf(&b, "%s | %s | %s | %s | %s\n", bm.ID, bm.Name, strings.Join(aliasesOf(bm), ", "), bm.Unit, bm.Category)
	}
	text = truncateUTF8(text, maxExtractionTextChars)
	b.WriteString("\nReport text:\n")
	b.WriteString(text)
	return b.String()
}

// truncateUTF8 cuts s to at most n bytes without splitting a rune.
func truncateUTF8(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func aliasesOf(b *types.Biomarker) []string {
	if b == nil || len(b.Aliases) == 0 {
		return nil
	}
	var out []string
	if err := json.Unmarshal(b.Aliases, &out); err != nil {
		return nil
	}
	return out
}

type catalogueIndex struct {
	byID   map[uuid.UUID]*types.Biomarker
	byName map[string]*types.Biomarker
}

func newCatalogueIndex(catalogue []*types.Biomarker) *catalogueIndex {
	idx := &catalogueIndex{
		byID:   make(map[uuid.UUID]*types.Biomarker, len(catalogue)),
		byName: make(map[string]*types.Biomarker, len(catalogue)*2),
	}
	for _, b := range catalogue {
		if b == nil {
			continue
		}
		idx.byID[b.ID] = b
		idx.byName[normalizeName(b.Name)] = b
		for _, a := range aliasesOf(b) {
			if k := normalizeName(a); k != "" {
				if _, exists := idx.byName[k]; !exists {
					idx.byName[k] = b
				}
			}
		}
	}
	return idx
}

// match trusts a model-supplied id only when it exists in the catalogue, then
// falls back to case-insensitive name and alias lookup.
func (idx *catalogueIndex) match(item ExtractedBiomarker) *types.Biomarker {
	if item.BiomarkerID != nil {
		if id, err := uuid.Parse(strings.TrimSpace(*item.BiomarkerID)); err == nil {
			if b, ok := idx.byID[id]; ok {
				return b
			}
		}
	}
	return idx.byName[normalizeName(item.Name)]
}

func normalizeName(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// extractionError turns a malformed result into the stage error.
func extractionError(r ExtractionResult) error {
	switch v := r.(type) {
	case ExtractionMalformed:
		if v.Err == nil {
			return errors.New("malformed extraction result")
		}
		return v.Err
	case nil:
		return errors.New("empty extraction result")
	}
	return nil
}
