package services

import (
	"fmt"
	"strings"
)

const analysisSystemPrompt = `You are a functional-medicine analyst reviewing blood test results against optimal ranges.
Score overall health from 0 to 100 and pick health_category: excellent (85+), good (70-84), fair (55-69) or poor (below 55).
Write one insight per biomarker using status deficient, suboptimal, optimal, excess, concerning or unclassified and severity none, mild, moderate or severe.
Group related out-of-range markers into root_causes. Recommend supplements, diet and lifestyle changes.
List urgent findings in warnings. Never diagnose; write for a non-medical reader.
Return only JSON matching the schema.`

var analysisSchema = map[string]any{
	"type":                 "object",
	"additionalProperties": false,
	"required":             []any{"overall_score", "health_category", "summary", "insights", "root_causes", "recommendations", "warnings"},
	"properties": map[string]any{
		"overall_score":   map[string]any{"type": "integer", "minimum": 0, "maximum": 100},
		"health_category": map[string]any{"type": "string", "enum": []any{HealthPoor, HealthFair, HealthGood, HealthExcellent}},
		"summary":         map[string]any{"type": "string"},
		"insights": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type":                 "object",
				"additionalProperties": false,
				"required":             []any{"name", "status", "severity", "interpretation"},
				"properties": map[string]any{
					"name": map[string]any{"type": "string"},
					"status": map[string]any{"type": "string", "enum": []any{
						ReadingDeficient, ReadingSuboptimal, ReadingOptimal, ReadingExcess, ReadingConcerning, ReadingUnclassified,
					}},
					"severity":       map[string]any{"type": "string", "enum": []any{SeverityNone, SeverityMild, SeverityModerate, SeveritySevere}},
					"interpretation": map[string]any{"type": "string"},
				},
			},
		},
		"root_causes": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type":                 "object",
				"additionalProperties": false,
				"required":             []any{"title", "description", "biomarkers"},
				"properties": map[string]any{
					"title":       map[string]any{"type": "string"},
					"description": map[string]any{"type": "string"},
					"biomarkers":  map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
				},
			},
		},
		"recommendations": map[string]any{
			"type":                 "object",
			"additionalProperties": false,
			"required":             []any{"supplements", "diet", "lifestyle"},
			"properties": map[string]any{
				"supplements": map[string]any{
					"type": "array",
					"items": map[string]any{
						"type":                 "object",
						"additionalProperties": false,
						"required":             []any{"name", "reason"},
						"properties": map[string]any{
							"name":   map[string]any{"type": "string"},
							"reason": map[string]any{"type": "string"},
						},
					},
				},
				"diet":      map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
				"lifestyle": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
			},
		},
		"warnings": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
	},
}

var analysisValidator = newCompiledSchema("health_analysis", analysisSchema)

func buildAnalysisPrompt(rows []rangedReading, gender string, age *int) string {
	var b strings.Builder
	b.WriteString("Patient:\n")
	if g := normalizeGender(gender); g != "any" {
		fmt.Fprintf(&b, "- gender: %s\n", g)
	} else {
		b.WriteString("- gender: unknown\n")
	}
	if age != nil {
		fmt.Fprintf(&b, "- age: %d\n", *age)
	} else {
		b.WriteString("- age: unknown\n")
	}
	b.WriteString("\nResults (name | value unit | category | optimal range | rule-based status):\n")
	for _, r := range rows {
		rng, status := "none", ReadingUnclassified
		if r.classified() {
			rng = fmt.Sprintf("%g-%g", r.Range.OptimalMin, r.Range.OptimalMax)
			status = r.Class.Status + "/" + r.Class.Severity
		}
		fmt.Fprintf(&b, "- %s | %g %s | %s | %s | %s\n", r.Reading.Name, r.Reading.Value, r.Reading.Unit, r.Reading.Category, rng, status)
	}
	return b.String()
}
