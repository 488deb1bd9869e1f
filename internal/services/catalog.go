package services

import (
	"context"

	"github.com/yungbote/biomarker-backend/internal/data/repos"
	types "github.com/yungbote/biomarker-backend/internal/domain"
	"github.com/yungbote/biomarker-backend/internal/pkg/dbctx"
	"github.com/yungbote/biomarker-backend/internal/platform/logger"
)

type CatalogService interface {
	ListBiomarkers(ctx context.Context) ([]*types.Biomarker, error)
}

type catalogService struct {
	log       *logger.Logger
	biomarker repos.BiomarkerRepo
}

func NewCatalogService(baseLog *logger.Logger, biomarkers repos.BiomarkerRepo) CatalogService {
	return &catalogService{log: baseLog.With("service", "CatalogService"), biomarker: biomarkers}
}

func (s *catalogService) ListBiomarkers(ctx context.Context) ([]*types.Biomarker, error) {
	rows, err := s.biomarker.ListAll(dbctx.New(ctx))
	if err != nil {
		return nil, err
	}
	return nonNil(rows), nil
}
