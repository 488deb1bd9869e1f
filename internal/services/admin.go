package services

import (
	"context"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
	"golang.org/x/sync/errgroup"

	"github.com/yungbote/biomarker-backend/internal/data/repos"
	"github.com/yungbote/biomarker-backend/internal/pkg/dbctx"
	"github.com/yungbote/biomarker-backend/internal/platform/logger"
)

const exportOrderLimit = 5000

type AdminStats struct {
	Users             int64            `json:"users"`
	DocumentsByStatus map[string]int64 `json:"documents_by_status"`
	Analyses          int64            `json:"analyses"`
	OrdersByStatus    map[string]int64 `json:"orders_by_status"`
	ConfirmedRevenue  float64          `json:"confirmed_revenue"`
	CommissionTotal   float64          `json:"commission_total"`
	ActiveProducts    int64            `json:"active_products"`
	GeneratedAt       time.Time        `json:"generated_at"`
}

type AdminService interface {
	Stats(ctx context.Context) (*AdminStats, error)
	// ExportOrdersXLSX renders recent orders and their lines as a workbook.
	ExportOrdersXLSX(ctx context.Context) ([]byte, error)
}

type adminService struct {
	log      *logger.Logger
	stats    repos.StatsRepo
	profiles repos.UserProfileRepo
	orders   repos.OrderRepo
}

func NewAdminService(baseLog *logger.Logger, stats repos.StatsRepo, profiles repos.UserProfileRepo, orders repos.OrderRepo) AdminService {
	return &adminService{
		log:      baseLog.With("service", "AdminService"),
		stats:    stats,
		profiles: profiles,
		orders:   orders,
	}
}

func (s *adminService) Stats(ctx context.Context) (*AdminStats, error) {
	out := &AdminStats{GeneratedAt: time.Now().UTC()}
	var docs, orders []repos.StatusCount

	g, gctx := errgroup.WithContext(ctx)
	dbc := dbctx.New(gctx)
	g.Go(func() (err error) { out.Users, err = s.profiles.CountUsers(dbc); return })
	g.Go(func() (err error) { docs, err = s.stats.DocumentsByStatus(dbc); return })
	g.Go(func() (err error) { out.Analyses, err = s.stats.CountAnalyses(dbc); return })
	g.Go(func() (err error) { orders, err = s.stats.OrdersByStatus(dbc); return })
	g.Go(func() (err error) { out.ConfirmedRevenue, err = s.stats.ConfirmedRevenue(dbc); return })
	g.Go(func() (err error) { out.CommissionTotal, err = s.stats.CommissionTotal(dbc); return })
	g.Go(func() (err error) { out.ActiveProducts, err = s.stats.CountActiveProducts(dbc); return })
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("admin stats: %w", err)
	}
	out.DocumentsByStatus = statusMap(docs)
	out.OrdersByStatus = statusMap(orders)
	return out, nil
}

func statusMap(rows []repos.StatusCount) map[string]int64 {
	m := make(map[string]int64, len(rows))
	for _, r := range rows {
		m[r.Status] = r.Count
	}
	return m
}

func (s *adminService) ExportOrdersXLSX(ctx context.Context) ([]byte, error) {
	start := time.Now()
	orders, err := s.orders.ListRecent(dbctx.New(ctx), exportOrderLimit)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()
	const ordersSheet, itemsSheet = "Orders", "Items"
	if err := f.SetSheetName("Sheet1", ordersSheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(itemsSheet); err != nil {
		return nil, err
	}

	writeRow := func(sheet string, row int, values ...any) {
		for i, v := range values {
			cell, _ := excelize.CoordinatesToCellName(i+1, row)
			_ = f.SetCellValue(sheet, cell, v)
		}
	}
	writeRow(ordersSheet, 1, "Order Number", "Created", "Status", "User", "Subtotal", "Tax", "Shipping", "Total", "Confirmed")
	writeRow(itemsSheet, 1, "Order Number", "Product", "Partner", "Quantity", "Unit Price", "Subtotal", "Commission %", "Commission")

	itemRow := 2
	for i, o := range orders {
		confirmed := ""
		if o.ConfirmedAt != nil {
			confirmed = o.ConfirmedAt.UTC().Format(time.RFC3339)
		}
		writeRow(ordersSheet, i+2,
			o.OrderNumber,
			o.CreatedAt.UTC().Format(time.RFC3339),
			string(o.Status),
			o.UserID.String(),
			o.Subtotal, o.Tax, o.ShippingCost, o.Total,
			confirmed,
		)
		for _, it := range o.Items {
			writeRow(itemsSheet, itemRow,
				o.OrderNumber,
				it.ProductName,
				it.PartnerID.String(),
				it.Quantity,
				it.UnitPrice, it.Subtotal, it.CommissionRate, it.CommissionAmount,
			)
			itemRow++
		}
	}
	_ = f.SetColWidth(ordersSheet, "A", "A", 24)
	_ = f.SetColWidth(ordersSheet, "B", "B", 22)
	_ = f.SetColWidth(ordersSheet, "D", "D", 38)
	_ = f.SetColWidth(ordersSheet, "I", "I", 22)
	_ = f.SetColWidth(itemsSheet, "A", "A", 24)
	_ = f.SetColWidth(itemsSheet, "B", "B", 32)
	_ = f.SetColWidth(itemsSheet, "C", "C", 38)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	s.log.Info("orders export written", "orders", len(orders), "items", itemRow-2, "elapsed_ms", time.Since(start).Milliseconds())
	return buf.Bytes(), nil
}
