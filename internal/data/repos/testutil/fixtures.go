package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	types "github.com/yungbote/biomarker-backend/internal/domain"
)

func SeedDocument(tb testing.TB, ctx context.Context, tx *gorm.DB, userID uuid.UUID, status types.DocumentStatus) *types.Document {
	tb.Helper()
	id := uuid.New()
	d := &types.Document{
		ID:          id,
		UserID:      userID,
		Filename:    "labs.pdf",
		FileSize:    2048,
		MimeType:    "application/pdf",
		StoragePath: userID.String() + "/" + id.String() + ".pdf",
		Status:      status,
	}
	if err := tx.WithContext(ctx).Create(d).Error; err != nil {
		tb.Fatalf("seed document: %v", err)
	}
	return d
}

func SeedReading(tb testing.TB, ctx context.Context, tx *gorm.DB, doc *types.Document, name string, value float64, biomarkerID *uuid.UUID) *types.BiomarkerReading {
	tb.Helper()
	r := &types.BiomarkerReading{
		DocumentID:  doc.ID,
		UserID:      doc.UserID,
		BiomarkerID: biomarkerID,
		Name:        name,
		Value:       value,
		Unit:        "ng/mL",
		Category:    "vitamins",
		Confidence:  0.9,
		IsMatched:   biomarkerID != nil,
	}
	if err := tx.WithContext(ctx).Create(r).Error; err != nil {
		tb.Fatalf("seed reading: %v", err)
	}
	return r
}

func SeedBiomarker(tb testing.TB, ctx context.Context, tx *gorm.DB, name, category string, optMin, optMax float64) *types.Biomarker {
	tb.Helper()
	b := &types.Biomarker{
		Name:     name,
		Aliases:  datatypes.JSON([]byte(`[]`)),
		Category: category,
		Unit:     "ng/mL",
		OptimalRanges: []types.BiomarkerOptimalRange{
			{Gender: types.GenderAny, OptimalMin: optMin, OptimalMax: optMax},
		},
	}
	if err := tx.WithContext(ctx).Create(b).Error; err != nil {
		tb.Fatalf("seed biomarker: %v", err)
	}
	return b
}

func SeedPartner(tb testing.TB, ctx context.Context, tx *gorm.DB, name string, rate float64) *types.Partner {
	tb.Helper()
	p := &types.Partner{Name: name, CommissionRate: rate, Active: true}
	if err := tx.WithContext(ctx).Create(p).Error; err != nil {
		tb.Fatalf("seed partner: %v", err)
	}
	return p
}

func SeedProduct(tb testing.TB, ctx context.Context, tx *gorm.DB, partnerID uuid.UUID, name string, price float64, stock int) *types.PartnerProduct {
	tb.Helper()
	p := &types.PartnerProduct{
		PartnerID:     partnerID,
		Name:          name,
		Category:      "supplements",
		Price:         price,
		StockQuantity: stock,
		Active:        true,
		Tags:          datatypes.JSON([]byte(`["vitamins"]`)),
	}
	if err := tx.WithContext(ctx).Create(p).Error; err != nil {
		tb.Fatalf("seed product: %v", err)
	}
	return p
}

func PtrUUID(v uuid.UUID) *uuid.UUID { return &v }

func PtrTime(v time.Time) *time.Time { return &v }
