package services

import (
	"errors"
	"testing"

	types "github.com/yungbote/biomarker-backend/internal/domain"
	"github.com/yungbote/biomarker-backend/internal/pkg/pointers"
)

func TestClassify(t *testing.T) {
	const min, max = 100.0, 200.0
	cases := []struct {
		value    float64
		status   string
		severity string
	}{
		{69.9, ReadingDeficient, SeveritySevere},
		{70, ReadingDeficient, SeverityModerate},
		{84.9, ReadingDeficient, SeverityModerate},
		{85, ReadingSuboptimal, SeverityMild},
		{99.9, ReadingSuboptimal, SeverityMild},
		{100, ReadingOptimal, SeverityNone},
		{150, ReadingOptimal, SeverityNone},
		{200, ReadingOptimal, SeverityNone},
		{200.1, ReadingExcess, SeverityMild},
		{240, ReadingExcess, SeverityMild},
		{240.1, ReadingExcess, SeverityModerate},
		{300, ReadingExcess, SeverityModerate},
		{300.1, ReadingConcerning, SeveritySevere},
	}
	for _, tc := range cases {
		got := Classify(tc.value, min, max)
		if got.Status != tc.status || got.Severity != tc.severity {
			t.Fatalf("Classify(%v)=%+v want %s/%s", tc.value, got, tc.status, tc.severity)
		}
	}
}

func TestScore(t *testing.T) {
	optimal := Classification{ReadingOptimal, SeverityNone}
	severe := Classification{ReadingDeficient, SeveritySevere}

	if got, err := Score([]Classification{optimal, optimal, optimal}); err != nil || got != 100 {
		t.Fatalf("all optimal: got=%d err=%v", got, err)
	}
	if got, err := Score([]Classification{severe, severe}); err != nil || got != 40 {
		t.Fatalf("all deficient: got=%d err=%v", got, err)
	}
	mixed := []Classification{
		optimal,
		{ReadingSuboptimal, SeverityMild},
		{ReadingExcess, SeverityMild},
		{ReadingConcerning, SeveritySevere},
		{ReadingUnclassified, SeverityNone},
	}
	// (100 + 70 + 30 + 0) / 4
	if got, err := Score(mixed); err != nil || got != 50 {
		t.Fatalf("mixed: got=%d err=%v", got, err)
	}
	if _, err := Score(nil); !errors.Is(err, ErrNoClassifiableReadings) {
		t.Fatalf("empty: expected ErrNoClassifiableReadings, got %v", err)
	}
}

func TestCategoryForScore(t *testing.T) {
	cases := map[int]string{
		100: HealthExcellent,
		85:  HealthExcellent,
		84:  HealthGood,
		70:  HealthGood,
		69:  HealthFair,
		55:  HealthFair,
		54:  HealthPoor,
		0:   HealthPoor,
	}
	for score, want := range cases {
		if got := CategoryForScore(score); got != want {
			t.Fatalf("CategoryForScore(%d)=%s want %s", score, got, want)
		}
	}
}

func TestSelectRange(t *testing.T) {
	ranges := []types.BiomarkerOptimalRange{
		{Gender: types.GenderAny, OptimalMin: 30, OptimalMax: 60},
		{Gender: types.GenderMale, OptimalMin: 40, OptimalMax: 70},
		{Gender: types.GenderMale, AgeMin: pointers.Ptr(18), AgeMax: pointers.Ptr(40), OptimalMin: 45, OptimalMax: 75},
		{Gender: types.GenderFemale, AgeMin: pointers.Ptr(50), OptimalMin: 20, OptimalMax: 50},
	}
	cases := []struct {
		name    string
		gender  string
		age     *int
		wantMin float64
	}{
		{"narrowest male band for age", "male", pointers.Ptr(30), 45},
		{"open male band outside age band", "Male", pointers.Ptr(55), 40},
		{"female inside age band", "female", pointers.Ptr(60), 20},
		{"female outside age band falls back to any", "female", pointers.Ptr(30), 30},
		{"unknown gender uses any", "", pointers.Ptr(30), 30},
		{"unknown age prefers open bounds", "male", nil, 40},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := SelectRange(ranges, tc.gender, tc.age)
			if got == nil || got.OptimalMin != tc.wantMin {
				t.Fatalf("SelectRange=%+v want min %v", got, tc.wantMin)
			}
		})
	}
	if SelectRange(nil, "male", nil) != nil {
		t.Fatalf("expected nil without ranges")
	}
}

func TestBuildFallbackContent(t *testing.T) {
	rows := []rangedReading{
		{
			Reading: &types.BiomarkerReading{Name: "Vitamin D", Value: 15, Unit: "ng/mL", Category: "vitamins"},
			Range:   &types.BiomarkerOptimalRange{OptimalMin: 40, OptimalMax: 80},
			Class:   Classify(15, 40, 80),
		},
		{
			Reading: &types.BiomarkerReading{Name: "Ferritin", Value: 90, Unit: "ng/mL", Category: "minerals"},
			Range:   &types.BiomarkerOptimalRange{OptimalMin: 50, OptimalMax: 150},
			Class:   Classify(90, 50, 150),
		},
		{Reading: &types.BiomarkerReading{Name: "Unknown marker", Value: 3}},
	}
	c, err := buildFallbackContent(rows)
	if err != nil {
		t.Fatalf("buildFallbackContent: %v", err)
	}
	if c.OverallScore != 70 || c.HealthCategory != HealthGood {
		t.Fatalf("score=%d category=%s", c.OverallScore, c.HealthCategory)
	}
	if len(c.Insights) != 3 || c.Insights[2].Status != ReadingUnclassified {
		t.Fatalf("insights=%+v", c.Insights)
	}
	if len(c.Warnings) != 1 {
		t.Fatalf("expected one severe warning, got %v", c.Warnings)
	}
	if len(c.RootCauses) != 1 || c.RootCauses[0].Biomarkers[0] != "Vitamin D" {
		t.Fatalf("root causes=%+v", c.RootCauses)
	}
	if len(c.Recommendations.Supplements) == 0 || c.Recommendations.Supplements[0].Name != "Vitamin D3 + K2" {
		t.Fatalf("supplements=%+v", c.Recommendations.Supplements)
	}

	_, err = buildFallbackContent([]rangedReading{{Reading: &types.BiomarkerReading{Name: "x"}}})
	if !errors.Is(err, ErrNoClassifiableReadings) {
		t.Fatalf("expected ErrNoClassifiableReadings, got %v", err)
	}
}
