package commerce

import (
	"gorm.io/gorm"

	"github.com/yungbote/biomarker-backend/internal/data/repos/dberr"
	types "github.com/yungbote/biomarker-backend/internal/domain"
	"github.com/yungbote/biomarker-backend/internal/pkg/dbctx"
	"github.com/yungbote/biomarker-backend/internal/platform/logger"
)

// StatusCount is one GROUP BY status row.
type StatusCount struct {
	Status string `json:"status"`
	Count  int64  `json:"count"`
}

// StatsRepo backs the admin dashboard. Each method is one independent query.
type StatsRepo interface {
	DocumentsByStatus(dbc dbctx.Context) ([]StatusCount, error)
	OrdersByStatus(dbc dbctx.Context) ([]StatusCount, error)
	CountAnalyses(dbc dbctx.Context) (int64, error)
	ConfirmedRevenue(dbc dbctx.Context) (float64, error)
	CommissionTotal(dbc dbctx.Context) (float64, error)
	CountActiveProducts(dbc dbctx.Context) (int64, error)
}

type statsRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewStatsRepo(db *gorm.DB, baseLog *logger.Logger) StatsRepo {
	return &statsRepo{db: db, log: baseLog.With("repo", "StatsRepo")}
}

func (r *statsRepo) DocumentsByStatus(dbc dbctx.Context) ([]StatusCount, error) {
	var rows []StatusCount
	if err := dbc.DB(r.db).
		Model(&types.Document{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Order("status").
		Scan(&rows).Error; err != nil {
		return nil, dberr.Map("documents by status", err)
	}
	return rows, nil
}

func (r *statsRepo) OrdersByStatus(dbc dbctx.Context) ([]StatusCount, error) {
	var rows []StatusCount
	if err := dbc.DB(r.db).
		Model(&types.Order{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Order("status").
		Scan(&rows).Error; err != nil {
		return nil, dberr.Map("orders by status", err)
	}
	return rows, nil
}

func (r *statsRepo) CountAnalyses(dbc dbctx.Context) (int64, error) {
	var n int64
	if err := dbc.DB(r.db).Model(&types.HealthAnalysis{}).Count(&n).Error; err != nil {
		return 0, dberr.Map("count analyses", err)
	}
	return n, nil
}

func (r *statsRepo) ConfirmedRevenue(dbc dbctx.Context) (float64, error) {
	var total float64
	if err := dbc.DB(r.db).
		Model(&types.Order{}).
		Where("status = ?", types.OrderStatusConfirmed).
		Select("COALESCE(SUM(total), 0)").
		Scan(&total).Error; err != nil {
		return 0, dberr.Map("confirmed revenue", err)
	}
	return total, nil
}

func (r *statsRepo) CommissionTotal(dbc dbctx.Context) (float64, error) {
	var total float64
	if err := dbc.DB(r.db).
		Table("order_items").
		Joins("JOIN orders ON orders.id = order_items.order_id").
		Where("orders.status = ?", types.OrderStatusConfirmed).
		Select("COALESCE(SUM(order_items.commission_amount), 0)").
		Scan(&total).Error; err != nil {
		return 0, dberr.Map("commission total", err)
	}
	return total, nil
}

func (r *statsRepo) CountActiveProducts(dbc dbctx.Context) (int64, error) {
	var n int64
	if err := dbc.DB(r.db).Model(&types.PartnerProduct{}).Where("active = ?", true).Count(&n).Error; err != nil {
		return 0, dberr.Map("count products", err)
	}
	return n, nil
}
