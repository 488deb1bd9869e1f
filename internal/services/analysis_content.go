package services

import (
	"fmt"
	"sort"
	"strings"

	types "github.com/yungbote/biomarker-backend/internal/domain"
)

// AnalysisContent is the narrative part of a HealthAnalysis, produced by the
// model or by the deterministic fallback.
type AnalysisContent struct {
	OverallScore    int             `json:"overall_score" validate:"gte=0,lte=100"`
	HealthCategory  string          `json:"health_category" validate:"oneof=poor fair good excellent"`
	Summary         string          `json:"summary"`
	Insights        []Insight       `json:"insights" validate:"dive"`
	RootCauses      []RootCause     `json:"root_causes" validate:"dive"`
	Recommendations Recommendations `json:"recommendations"`
	Warnings        []string        `json:"warnings"`
}

type Insight struct {
	BiomarkerID    string   `json:"biomarker_id,omitempty"`
	Name           string   `json:"name" validate:"required"`
	Value          float64  `json:"value"`
	Unit           string   `json:"unit,omitempty"`
	Category       string   `json:"category,omitempty"`
	Status         string   `json:"status" validate:"oneof=deficient suboptimal optimal excess concerning unclassified"`
	Severity       string   `json:"severity" validate:"oneof=none mild moderate severe"`
	OptimalMin     *float64 `json:"optimal_min,omitempty"`
	OptimalMax     *float64 `json:"optimal_max,omitempty"`
	Interpretation string   `json:"interpretation"`
}

type RootCause struct {
	Title       string   `json:"title" validate:"required"`
	Description string   `json:"description"`
	Biomarkers  []string `json:"biomarkers"`
}

type Recommendation struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

type Recommendations struct {
	Supplements []Recommendation `json:"supplements"`
	Diet        []string         `json:"diet"`
	Lifestyle   []string         `json:"lifestyle"`
}

var analysisDisclaimers = []string{
	"This analysis is for informational purposes only and is not medical advice.",
	"Optimal ranges differ from laboratory reference ranges and may not apply to every person.",
	"Talk to a qualified healthcare provider before changing medication, diet or supplements.",
}

var interpretationTemplates = map[string]string{
	ReadingDeficient:    "%s is well below the optimal range (%s). Low levels can affect how you feel day to day and are worth addressing.",
	ReadingSuboptimal:   "%s is slightly below the optimal range (%s). Small changes may bring it back into range.",
	ReadingOptimal:      "%s is within the optimal range (%s).",
	ReadingExcess:       "%s is above the optimal range (%s). Keep an eye on it over the next tests.",
	ReadingConcerning:   "%s is far outside the optimal range (%s). Please review this result with a healthcare provider.",
	ReadingUnclassified: "No optimal range is available for %s, so it was not scored.",
}

type categoryAdvice struct {
	supplements []Recommendation
	diet        []string
	lifestyle   []string
}

var adviceByCategory = map[string]categoryAdvice{
	"vitamins": {
		supplements: []Recommendation{
			{"Vitamin D3 + K2", "Supports vitamin D status and calcium handling."},
			{"Methylated B-complex", "Covers B12 and folate in active forms."},
		},
		diet:      []string{"Eat fatty fish twice a week.", "Add leafy greens and eggs to daily meals."},
		lifestyle: []string{"Get 15-20 minutes of midday sunlight when possible."},
	},
	"minerals": {
		supplements: []Recommendation{
			{"Magnesium glycinate", "Well absorbed form that supports sleep and muscle function."},
			{"Iron bisglycinate", "Gentle on digestion; take only when iron markers are low."},
		},
		diet:      []string{"Include legumes, nuts and seeds.", "Pair iron-rich foods with vitamin C sources."},
		lifestyle: []string{"Avoid tea or coffee with iron-rich meals."},
	},
	"metabolic": {
		supplements: []Recommendation{
			{"Berberine", "Supports healthy glucose metabolism."},
			{"Chromium picolinate", "Supports insulin sensitivity."},
		},
		diet:      []string{"Reduce refined carbohydrates and added sugar.", "Build meals around protein and fibre."},
		lifestyle: []string{"Take a 10 minute walk after meals.", "Aim for 7-9 hours of sleep."},
	},
	"lipids": {
		supplements: []Recommendation{
			{"Omega-3 fish oil", "Supports healthy triglyceride levels."},
			{"Psyllium husk", "Soluble fibre that helps lower LDL."},
		},
		diet:      []string{"Replace saturated fats with olive oil, nuts and avocado.", "Eat oats or beans daily for soluble fibre."},
		lifestyle: []string{"Get at least 150 minutes of moderate cardio per week."},
	},
	"hormones": {
		supplements: []Recommendation{
			{"Zinc", "Supports hormone production."},
			{"Ashwagandha", "May help with stress-related hormone balance."},
		},
		diet:      []string{"Eat enough healthy fats and protein."},
		lifestyle: []string{"Strength train two to three times per week.", "Keep a consistent sleep schedule."},
	},
	"thyroid": {
		supplements: []Recommendation{
			{"Selenium", "Supports thyroid hormone conversion."},
		},
		diet:      []string{"Include iodine sources such as seafood or iodized salt."},
		lifestyle: []string{"Manage stress with daily relaxation practice."},
	},
	"inflammation": {
		supplements: []Recommendation{
			{"Omega-3 fish oil", "Supports a balanced inflammatory response."},
			{"Curcumin", "Anti-inflammatory support."},
		},
		diet:      []string{"Follow a Mediterranean-style diet rich in vegetables and berries."},
		lifestyle: []string{"Prioritise recovery and sleep.", "Limit alcohol."},
	},
	"liver": {
		supplements: []Recommendation{
			{"Milk thistle", "Supports liver function."},
		},
		diet:      []string{"Cut back on alcohol and fried foods.", "Eat cruciferous vegetables."},
		lifestyle: []string{"Stay active and maintain a healthy weight."},
	},
	"kidney": {
		diet:      []string{"Drink enough water through the day.", "Moderate salt and processed meat."},
		lifestyle: []string{"Monitor blood pressure regularly."},
	},
	"blood": {
		supplements: []Recommendation{
			{"Iron bisglycinate", "Supports red blood cell production when iron is low."},
			{"Vitamin B12", "Needed for healthy red blood cells."},
		},
		diet:      []string{"Include red meat, lentils or spinach for iron."},
		lifestyle: []string{"Retest after three months of changes."},
	},
}

var generalAdvice = categoryAdvice{
	diet:      []string{"Eat a varied whole-food diet with plenty of vegetables."},
	lifestyle: []string{"Retest in three to six months to track progress."},
}

// rangedReading is a reading paired with the band it was judged against.
type rangedReading struct {
	Reading *types.BiomarkerReading
	Range   *types.BiomarkerOptimalRange
	Class   Classification
}

func (r rangedReading) classified() bool { return r.Range != nil }

// buildFallbackContent derives the full analysis from classifications alone.
func buildFallbackContent(rows []rangedReading) (AnalysisContent, error) {
	classes := make([]Classification, 0, len(rows))
	for _, r := range rows {
		if r.classified() {
			classes = append(classes, r.Class)
		}
	}
	score, err := Score(classes)
	if err != nil {
		return AnalysisContent{}, err
	}
	content := AnalysisContent{
		OverallScore:   score,
		HealthCategory: CategoryForScore(score),
		Warnings:       []string{},
		RootCauses:     []RootCause{},
	}

	byCategory := map[string][]string{}
	var flagged []string
	for _, r := range rows {
		ins := insightFor(r)
		content.Insights = append(content.Insights, ins)
		if !r.classified() || r.Class.Status == ReadingOptimal {
			continue
		}
		cat := strings.ToLower(r.Reading.Category)
		byCategory[cat] = append(byCategory[cat], r.Reading.Name)
		flagged = append(flagged, r.Reading.Name)
		if r.Class.Severity == SeveritySevere {
			content.Warnings = append(content.Warnings,
				fmt.Sprintf("%s is significantly outside the optimal range. Please consult a healthcare provider.", r.Reading.Name))
		}
	}

	cats := make([]string, 0, len(byCategory))
	for c := range byCategory {
		cats = append(cats, c)
	}
	sort.Strings(cats)
	for _, c := range cats {
		names := byCategory[c]
		content.RootCauses = append(content.RootCauses, RootCause{
			Title:       fmt.Sprintf("%s imbalance", titleCase(c)),
			Description: fmt.Sprintf("%d %s marker(s) sit outside the optimal range: %s.", len(names), c, strings.Join(names, ", ")),
			Biomarkers:  names,
		})
	}
	content.Recommendations = recommendationsFor(cats)
	content.Summary = fallbackSummary(score, content.HealthCategory, len(classes), len(flagged))
	return content, nil
}

func insightFor(r rangedReading) Insight {
	ins := Insight{
		Name:     r.Reading.Name,
		Value:    r.Reading.Value,
		Unit:     r.Reading.Unit,
		Category: r.Reading.Category,
		Status:   ReadingUnclassified,
		Severity: SeverityNone,
	}
	if r.Reading.BiomarkerID != nil {
		ins.BiomarkerID = r.Reading.BiomarkerID.String()
	}
	if !r.classified() {
		ins.Interpretation = fmt.Sprintf(interpretationTemplates[ReadingUnclassified], r.Reading.Name)
		return ins
	}
	lo, hi := r.Range.OptimalMin, r.Range.OptimalMax
	ins.OptimalMin, ins.OptimalMax = &lo, &hi
	ins.Status, ins.Severity = r.Class.Status, r.Class.Severity
	band := fmt.Sprintf("%g-%g", lo, hi)
	if r.Reading.Unit != "" {
		band += " " + r.Reading.Unit
	}
	ins.Interpretation = fmt.Sprintf(interpretationTemplates[r.Class.Status], r.Reading.Name, band)
	return ins
}

func recommendationsFor(categories []string) Recommendations {
	out := Recommendations{Supplements: []Recommendation{}, Diet: []string{}, Lifestyle: []string{}}
	seenSupp := map[string]bool{}
	seen := map[string]bool{}
	add := func(a categoryAdvice) {
		for _, s := range a.supplements {
			if !seenSupp[s.Name] {
				seenSupp[s.Name] = true
				out.Supplements = append(out.Supplements, s)
			}
		}
		for _, d := range a.diet {
			if !seen[d] {
				seen[d] = true
				out.Diet = append(out.Diet, d)
			}
		}
		for _, l := range a.lifestyle {
			if !seen[l] {
				seen[l] = true
				out.Lifestyle = append(out.Lifestyle, l)
			}
		}
	}
	for _, c := range categories {
		if a, ok := adviceByCategory[c]; ok {
			add(a)
		}
	}
	add(generalAdvice)
	return out
}

func fallbackSummary(score int, category string, classified, flagged int) string {
	if flagged == 0 {
		return fmt.Sprintf("All %d scored biomarkers are within their optimal ranges. Overall score %d (%s).", classified, score, category)
	}
	return fmt.Sprintf("%d of %d scored biomarkers are outside their optimal ranges. Overall score %d (%s).", flagged, classified, score, category)
}

func titleCase(s string) string {
	if s == "" {
		return "Other"
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
