package services

import (
	"math"
	"strings"

	types "github.com/yungbote/biomarker-backend/internal/domain"
	"github.com/yungbote/biomarker-backend/internal/pkg/pointers"
)

const (
	ReadingDeficient    = "deficient"
	ReadingSuboptimal   = "suboptimal"
	ReadingOptimal      = "optimal"
	ReadingExcess       = "excess"
	ReadingConcerning   = "concerning"
	ReadingUnclassified = "unclassified"

	SeverityNone     = "none"
	SeverityMild     = "mild"
	SeverityModerate = "moderate"
	SeveritySevere   = "severe"

	HealthExcellent = "excellent"
	HealthGood      = "good"
	HealthFair      = "fair"
	HealthPoor      = "poor"
)

type Classification struct {
	Status   string `json:"status"`
	Severity string `json:"severity"`
}

// Classify places value against the optimal band [min, max]. The first
// matching rule wins.
func Classify(value, min, max float64) Classification {
	switch {
	case value < min*0.7:
		return Classification{ReadingDeficient, SeveritySevere}
	case value < min*0.85:
		return Classification{ReadingDeficient, SeverityModerate}
	case value < min:
		return Classification{ReadingSuboptimal, SeverityMild}
	case value <= max:
		return Classification{ReadingOptimal, SeverityNone}
	case value <= max*1.2:
		return Classification{ReadingExcess, SeverityMild}
	case value <= max*1.5:
		return Classification{ReadingExcess, SeverityModerate}
	default:
		return Classification{ReadingConcerning, SeveritySevere}
	}
}

var statusWeight = map[string]int{
	ReadingOptimal:    100,
	ReadingSuboptimal: 70,
	ReadingDeficient:  40,
	ReadingExcess:     30,
	ReadingConcerning: 0,
}

// Score averages the status weights of classified readings. Unclassified
// entries are skipped; with nothing left it returns ErrNoClassifiableReadings.
func Score(classes []Classification) (int, error) {
	total, sum := 0, 0
	for _, c := range classes {
		w, ok := statusWeight[c.Status]
		if !ok {
			continue
		}
		total++
		sum += w
	}
	if total == 0 {
		return 0, ErrNoClassifiableReadings
	}
	return int(math.Round(float64(sum) / float64(total))), nil
}

func CategoryForScore(score int) string {
	switch {
	case score >= 85:
		return HealthExcellent
	case score >= 70:
		return HealthGood
	case score >= 55:
		return HealthFair
	default:
		return HealthPoor
	}
}

const (
	openAgeMin = 0
	openAgeMax = 150
)

// SelectRange picks the optimal band for a person. Ranges for the exact
// gender beat "any"; the age must sit inside the bounds and the narrowest
// band wins. Without an age only ranges with open bounds qualify, falling
// back to every range of the preferred gender.
func SelectRange(ranges []types.BiomarkerOptimalRange, gender string, age *int) *types.BiomarkerOptimalRange {
	gender = normalizeGender(gender)
	var exact, anyGender []*types.BiomarkerOptimalRange
	for i := range ranges {
		r := &ranges[i]
		if r.OptimalMax < r.OptimalMin {
			continue
		}
		g := normalizeGender(r.Gender)
		switch {
		case gender != types.GenderAny && g == gender:
			exact = append(exact, r)
		case g == types.GenderAny:
			anyGender = append(anyGender, r)
		}
	}
	if best := narrowestForAge(exact, age); best != nil {
		return best
	}
	return narrowestForAge(anyGender, age)
}

func narrowestForAge(candidates []*types.BiomarkerOptimalRange, age *int) *types.BiomarkerOptimalRange {
	if len(candidates) == 0 {
		return nil
	}
	if age == nil {
		for _, r := range candidates {
			if r.AgeMin == nil && r.AgeMax == nil {
				return r
			}
		}
		return candidates[0]
	}
	var best *types.BiomarkerOptimalRange
	bestWidth := math.MaxInt
	for _, r := range candidates {
		lo, hi := pointers.Deref(r.AgeMin, openAgeMin), pointers.Deref(r.AgeMax, openAgeMax)
		if *age < lo || *age > hi {
			continue
		}
		if w := hi - lo; w < bestWidth {
			best, bestWidth = r, w
		}
	}
	return best
}

func normalizeGender(g string) string {
	switch strings.ToLower(strings.TrimSpace(g)) {
	case "m", types.GenderMale:
		return types.GenderMale
	case "f", types.GenderFemale:
		return types.GenderFemale
	default:
		return types.GenderAny
	}
}
