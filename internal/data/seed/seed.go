// Package seed loads the biomarker catalogue, partners and products from YAML
// and upserts them by name, so re-running it is safe.
package seed

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
	"gorm.io/datatypes"

	"github.com/yungbote/biomarker-backend/internal/data/repos"
	types "github.com/yungbote/biomarker-backend/internal/domain"
	"github.com/yungbote/biomarker-backend/internal/pkg/dbctx"
	"github.com/yungbote/biomarker-backend/internal/platform/logger"
)

//go:embed default.yaml
var defaultFile []byte

type File struct {
	Biomarkers []Biomarker `yaml:"biomarkers"`
	Partners   []Partner   `yaml:"partners"`
}

type Biomarker struct {
	Name        string   `yaml:"name"`
	Aliases     []string `yaml:"aliases"`
	Category    string   `yaml:"category"`
	Unit        string   `yaml:"unit"`
	Description string   `yaml:"description"`
	Ranges      []Range  `yaml:"ranges"`
}

type Range struct {
	Gender string  `yaml:"gender"`
	AgeMin *int    `yaml:"age_min"`
	AgeMax *int    `yaml:"age_max"`
	Min    float64 `yaml:"min"`
	Max    float64 `yaml:"max"`
}

type Partner struct {
	Name           string    `yaml:"name"`
	ContactEmail   string    `yaml:"contact_email"`
	CommissionRate float64   `yaml:"commission_rate"`
	Inactive       bool      `yaml:"inactive"`
	Products       []Product `yaml:"products"`
}

type Product struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Category    string   `yaml:"category"`
	Price       float64  `yaml:"price"`
	Stock       int      `yaml:"stock"`
	Inactive    bool     `yaml:"inactive"`
	Tags        []string `yaml:"tags"`
}

// Load reads path, or the bundled default catalogue when path is empty.
func Load(path string) (*File, error) {
	raw := defaultFile
	if strings.TrimSpace(path) != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read seed file: %w", err)
		}
		raw = b
	}
	return Parse(raw)
}

func Parse(raw []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse seed yaml: %w", err)
	}
	if err := f.validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

func (f *File) validate() error {
	seen := map[string]bool{}
	for i, b := range f.Biomarkers {
		name := strings.ToLower(strings.TrimSpace(b.Name))
		if name == "" {
			return fmt.Errorf("biomarker %d: name is required", i)
		}
		if seen[name] {
			return fmt.Errorf("biomarker %q listed twice", b.Name)
		}
		seen[name] = true
		if strings.TrimSpace(b.Category) == "" {
			return fmt.Errorf("biomarker %q: category is required", b.Name)
		}
		for _, r := range b.Ranges {
			if r.Min > r.Max {
				return fmt.Errorf("biomarker %q: range min %v exceeds max %v", b.Name, r.Min, r.Max)
			}
			switch r.Gender {
			case "", types.GenderAny, types.GenderMale, types.GenderFemale:
			default:
				return fmt.Errorf("biomarker %q: unknown gender %q", b.Name, r.Gender)
			}
		}
	}
	for _, p := range f.Partners {
		if strings.TrimSpace(p.Name) == "" {
			return fmt.Errorf("partner name is required")
		}
		if p.CommissionRate < 0 || p.CommissionRate > 100 {
			return fmt.Errorf("partner %q: commission_rate must be a percentage", p.Name)
		}
		for _, pr := range p.Products {
			if strings.TrimSpace(pr.Name) == "" || pr.Price < 0 || pr.Stock < 0 {
				return fmt.Errorf("partner %q: invalid product %q", p.Name, pr.Name)
			}
		}
	}
	return nil
}

type Result struct {
	Biomarkers int
	Partners   int
	Products   int
}

type Seeder struct {
	log        *logger.Logger
	biomarkers repos.BiomarkerRepo
	partners   repos.PartnerRepo
	products   repos.ProductRepo
}

func NewSeeder(log *logger.Logger, biomarkers repos.BiomarkerRepo, partners repos.PartnerRepo, products repos.ProductRepo) *Seeder {
	return &Seeder{log: log.With("component", "Seeder"), biomarkers: biomarkers, partners: partners, products: products}
}

func (s *Seeder) Apply(ctx context.Context, f *File) (Result, error) {
	var res Result
	dbc := dbctx.New(ctx)

	for _, b := range f.Biomarkers {
		row := &types.Biomarker{
			Name:        strings.TrimSpace(b.Name),
			Aliases:     jsonList(b.Aliases),
			Category:    strings.ToLower(strings.TrimSpace(b.Category)),
			Unit:        b.Unit,
			Description: b.Description,
		}
		for _, r := range b.Ranges {
			gender := r.Gender
			if gender == "" {
				gender = types.GenderAny
			}
			row.OptimalRanges = append(row.OptimalRanges, types.BiomarkerOptimalRange{
				Gender:     gender,
				AgeMin:     r.AgeMin,
				AgeMax:     r.AgeMax,
				OptimalMin: r.Min,
				OptimalMax: r.Max,
			})
		}
		if _, err := s.biomarkers.Upsert(dbc, row); err != nil {
			return res, fmt.Errorf("seed biomarker %q: %w", b.Name, err)
		}
		res.Biomarkers++
	}

	for _, p := range f.Partners {
		partner := &types.Partner{
			Name:           strings.TrimSpace(p.Name),
			ContactEmail:   p.ContactEmail,
			CommissionRate: p.CommissionRate,
			Active:         !p.Inactive,
		}
		if err := s.partners.UpsertByName(dbc, partner); err != nil {
			return res, fmt.Errorf("seed partner %q: %w", p.Name, err)
		}
		res.Partners++

		for _, pr := range p.Products {
			product := &types.PartnerProduct{
				PartnerID:     partner.ID,
				Name:          strings.TrimSpace(pr.Name),
				Description:   pr.Description,
				Category:      strings.ToLower(strings.TrimSpace(pr.Category)),
				Price:         pr.Price,
				StockQuantity: pr.Stock,
				Active:        !pr.Inactive,
				Tags:          jsonList(pr.Tags),
			}
			if err := s.products.UpsertByName(dbc, product); err != nil {
				return res, fmt.Errorf("seed product %q: %w", pr.Name, err)
			}
			res.Products++
		}
	}

	s.log.Info("seed applied", "biomarkers", res.Biomarkers, "partners", res.Partners, "products", res.Products)
	return res, nil
}

func jsonList(vals []string) datatypes.JSON {
	if len(vals) == 0 {
		return nil
	}
	b, _ := json.Marshal(vals)
	return datatypes.JSON(b)
}
