package seed

import (
	"context"
	"strings"
	"testing"

	"github.com/yungbote/biomarker-backend/internal/data/repos"
	"github.com/yungbote/biomarker-backend/internal/data/repos/testutil"
	"github.com/yungbote/biomarker-backend/internal/pkg/dbctx"
	"github.com/yungbote/biomarker-backend/internal/platform/logger"
)

func TestDefaultCatalogueParses(t *testing.T) {
	f, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(f.Biomarkers) < 20 || len(f.Partners) == 0 {
		t.Fatalf("unexpected default seed: %d biomarkers, %d partners", len(f.Biomarkers), len(f.Partners))
	}
	for _, b := range f.Biomarkers {
		if len(b.Ranges) == 0 {
			t.Fatalf("%s has no optimal range", b.Name)
		}
	}
}

func TestParseRejectsBadInput(t *testing.T) {
	cases := []struct {
		name string
		yaml string
		want string
	}{
		{"duplicate", "biomarkers:\n  - {name: TSH, category: thyroid}\n  - {name: tsh, category: thyroid}\n", "listed twice"},
		{"missing category", "biomarkers:\n  - {name: TSH}\n", "category is required"},
		{"inverted range", "biomarkers:\n  - {name: TSH, category: thyroid, ranges: [{min: 3, max: 1}]}\n", "exceeds max"},
		{"bad gender", "biomarkers:\n  - {name: TSH, category: thyroid, ranges: [{gender: other, min: 1, max: 2}]}\n", "unknown gender"},
		{"commission", "partners:\n  - {name: P, commission_rate: 150}\n", "percentage"},
		{"negative price", "partners:\n  - {name: P, commission_rate: 5, products: [{name: X, price: -1}]}\n", "invalid product"},
		{"not yaml", "biomarkers: [", "parse seed yaml"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.yaml))
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error containing %q, got %v", tc.want, err)
			}
		})
	}
}

func TestApplyIsIdempotent(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	log := logger.Nop()

	s := NewSeeder(log, repos.NewBiomarkerRepo(tx, log), repos.NewPartnerRepo(tx, log), repos.NewProductRepo(tx, log))
	f, err := Parse([]byte(`
biomarkers:
  - name: Ferritin
    category: Minerals
    unit: ng/mL
    aliases: [Serum ferritin]
    ranges:
      - {gender: male, min: 50, max: 150}
      - {min: 40, max: 120}
partners:
  - name: Northwind
    commission_rate: 12.5
    products:
      - {name: Iron, category: minerals, price: 14.75, stock: 10}
      - {name: Retired, category: minerals, price: 9, stock: 0, inactive: true}
`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		res, err := s.Apply(ctx, f)
		if err != nil {
			t.Fatalf("Apply #%d: %v", i+1, err)
		}
		if res.Biomarkers != 1 || res.Partners != 1 || res.Products != 2 {
			t.Fatalf("Apply #%d result = %+v", i+1, res)
		}
	}

	catalogue, err := repos.NewBiomarkerRepo(tx, log).ListAll(dbctx.New(ctx))
	if err != nil {
		t.Fatalf("ListAll: %v", err)
	}
	if len(catalogue) != 1 {
		t.Fatalf("expected 1 biomarker after two runs, got %d", len(catalogue))
	}
	if catalogue[0].Category != "minerals" || len(catalogue[0].OptimalRanges) != 2 {
		t.Fatalf("unexpected biomarker: %+v", catalogue[0])
	}
	if catalogue[0].OptimalRanges[1].Gender != "any" && catalogue[0].OptimalRanges[0].Gender != "any" {
		t.Fatalf("blank gender should default to any: %+v", catalogue[0].OptimalRanges)
	}

	active, err := repos.NewProductRepo(tx, log).ListActive(dbctx.New(ctx), "minerals")
	if err != nil {
		t.Fatalf("ListActive: %v", err)
	}
	if len(active) != 1 || active[0].Name != "Iron" {
		t.Fatalf("expected only the active product, got %d", len(active))
	}
}
