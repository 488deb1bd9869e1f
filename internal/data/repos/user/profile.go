package user

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yungbote/biomarker-backend/internal/data/repos/dberr"
	types "github.com/yungbote/biomarker-backend/internal/domain"
	"github.com/yungbote/biomarker-backend/internal/pkg/dbctx"
	"github.com/yungbote/biomarker-backend/internal/platform/logger"
)

type UserProfileRepo interface {
	// GetByUserID returns nil without error when the user has no profile.
	GetByUserID(dbc dbctx.Context, userID uuid.UUID) (*types.UserProfile, error)
	Upsert(dbc dbctx.Context, row *types.UserProfile) error
	CountUsers(dbc dbctx.Context) (int64, error)
}

type userProfileRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewUserProfileRepo(db *gorm.DB, baseLog *logger.Logger) UserProfileRepo {
	return &userProfileRepo{db: db, log: baseLog.With("repo", "UserProfileRepo")}
}

func (r *userProfileRepo) GetByUserID(dbc dbctx.Context, userID uuid.UUID) (*types.UserProfile, error) {
	var row types.UserProfile
	if err := dbc.DB(r.db).
		Where("user_id = ?", userID).
		Limit(1).
		Find(&row).Error; err != nil {
		return nil, dberr.Map("get profile", err)
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *userProfileRepo) Upsert(dbc dbctx.Context, row *types.UserProfile) error {
	if row == nil || row.UserID == uuid.Nil {
		return nil
	}
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	row.UpdatedAt = time.Now().UTC()
	if err := dbc.DB(r.db).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"display_name",
				"date_of_birth",
				"gender",
				"height_cm",
				"weight_kg",
				"goals",
				"updated_at",
			}),
		}).
		Create(row).Error; err != nil {
		return dberr.Map("upsert profile", err)
	}
	return nil
}

func (r *userProfileRepo) CountUsers(dbc dbctx.Context) (int64, error) {
	var n int64
	if err := dbc.DB(r.db).Model(&types.UserProfile{}).Count(&n).Error; err != nil {
		return 0, dberr.Map("count profiles", err)
	}
	return n, nil
}
