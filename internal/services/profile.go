package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/yungbote/biomarker-backend/internal/data/repos"
	types "github.com/yungbote/biomarker-backend/internal/domain"
	"github.com/yungbote/biomarker-backend/internal/pkg/dbctx"
	pkgerrors "github.com/yungbote/biomarker-backend/internal/pkg/errors"
	"github.com/yungbote/biomarker-backend/internal/pkg/pointers"
	"github.com/yungbote/biomarker-backend/internal/platform/logger"
)

// UpdateProfileInput is a partial update; nil fields keep their value.
type UpdateProfileInput struct {
	DisplayName *string  `json:"display_name" validate:"omitempty,max=120"`
	DateOfBirth *string  `json:"date_of_birth" validate:"omitempty,datetime=2006-01-02"`
	Gender      *string  `json:"gender" validate:"omitempty,oneof=male female any"`
	HeightCm    *float64 `json:"height_cm" validate:"omitempty,gt=0,lt=300"`
	WeightKg    *float64 `json:"weight_kg" validate:"omitempty,gt=0,lt=700"`
	Goals       []string `json:"goals" validate:"omitempty,max=20,dive,max=200"`
}

type ProfileService interface {
	// Get returns an empty profile for users who never saved one.
	Get(ctx context.Context, userID uuid.UUID) (*types.UserProfile, error)
	Update(ctx context.Context, userID uuid.UUID, in UpdateProfileInput) (*types.UserProfile, error)
}

type profileService struct {
	log      *logger.Logger
	profiles repos.UserProfileRepo
}

func NewProfileService(baseLog *logger.Logger, profiles repos.UserProfileRepo) ProfileService {
	return &profileService{log: baseLog.With("service", "ProfileService"), profiles: profiles}
}

func (s *profileService) Get(ctx context.Context, userID uuid.UUID) (*types.UserProfile, error) {
	p, err := s.profiles.GetByUserID(dbctx.New(ctx), userID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return &types.UserProfile{UserID: userID}, nil
	}
	return p, nil
}

func (s *profileService) Update(ctx context.Context, userID uuid.UUID, in UpdateProfileInput) (*types.UserProfile, error) {
	if in.Gender != nil {
		g := strings.ToLower(strings.TrimSpace(*in.Gender))
		in.Gender = &g
	}
	if err := structValidator().Struct(in); err != nil {
		return nil, fmt.Errorf("%w: %v", pkgerrors.ErrInvalidArgument, err)
	}
	dbc := dbctx.New(ctx)
	p, err := s.profiles.GetByUserID(dbc, userID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		p = &types.UserProfile{UserID: userID, CreatedAt: time.Now().UTC()}
	}
	if in.DisplayName != nil {
		p.DisplayName = strings.TrimSpace(*in.DisplayName)
	}
	if in.DateOfBirth != nil {
		if *in.DateOfBirth == "" {
			p.DateOfBirth = nil
		} else {
			dob, err := time.Parse("2006-01-02", *in.DateOfBirth)
			if err != nil {
				return nil, fmt.Errorf("%w: date_of_birth", pkgerrors.ErrInvalidArgument)
			}
			if dob.After(time.Now()) {
				return nil, fmt.Errorf("%w: date_of_birth is in the future", pkgerrors.ErrInvalidArgument)
			}
			p.DateOfBirth = &dob
		}
	}
	p.Gender = pointers.Deref(in.Gender, p.Gender)
	if in.HeightCm != nil {
		p.HeightCm = in.HeightCm
	}
	if in.WeightKg != nil {
		p.WeightKg = in.WeightKg
	}
	if in.Goals != nil {
		b, err := json.Marshal(in.Goals)
		if err != nil {
			return nil, err
		}
		p.Goals = datatypes.JSON(b)
	}
	if err := s.profiles.Upsert(dbc, p); err != nil {
		return nil, err
	}
	return s.Get(ctx, userID)
}
