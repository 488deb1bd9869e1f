package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/go-pdf/fpdf"
	"github.com/google/uuid"

	"github.com/yungbote/biomarker-backend/internal/platform/logger"
)

type ReportService interface {
	// AnalysisPDF renders one analysis owned by userID.
	AnalysisPDF(ctx context.Context, userID, analysisID uuid.UUID) ([]byte, error)
}

type reportService struct {
	log      *logger.Logger
	analyses AnalysisService
}

func NewReportService(baseLog *logger.Logger, analyses AnalysisService) ReportService {
	return &reportService{log: baseLog.With("service", "ReportService"), analyses: analyses}
}

func (s *reportService) AnalysisPDF(ctx context.Context, userID, analysisID uuid.UUID) ([]byte, error) {
	detail, err := s.analyses.GetAnalysis(ctx, userID, analysisID)
	if err != nil {
		return nil, err
	}
	a := detail.Analysis

	var (
		insights        []Insight
		recommendations Recommendations
		warnings        []string
		disclaimers     []string
	)
	decode := func(raw []byte, out any) {
		if len(raw) == 0 {
			return
		}
		if err := json.Unmarshal(raw, out); err != nil {
			s.log.Warn("report: skipping undecodable section", "analysis_id", a.ID, "error", err)
		}
	}
	decode(a.Insights, &insights)
	decode(a.Recommendations, &recommendations)
	decode(a.Warnings, &warnings)
	decode(a.Disclaimers, &disclaimers)

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.SetAutoPageBreak(true, 15)
	pdf.SetTitle("Health Analysis", true)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFont("Arial", "B", 18)
	pdf.CellFormat(0, 10, "Health Analysis", "", 1, "L", false, 0, "")
	pdf.SetFont("Arial", "", 9)
	pdf.CellFormat(0, 5, tr(fmt.Sprintf("Generated %s  |  Method: %s", a.CreatedAt.UTC().Format("2006-01-02 15:04 UTC"), a.Method)), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Arial", "B", 14)
	pdf.CellFormat(0, 8, fmt.Sprintf("Overall score: %d / 100 (%s)", a.OverallScore, a.HealthCategory), "", 1, "L", false, 0, "")
	if a.Summary != "" {
		pdf.SetFont("Arial", "", 10)
		pdf.MultiCell(0, 5, tr(a.Summary), "", "L", false)
	}
	pdf.Ln(3)

	section := func(title string) {
		pdf.Ln(2)
		pdf.SetFont("Arial", "B", 12)
		pdf.CellFormat(0, 7, title, "B", 1, "L", false, 0, "")
		pdf.Ln(1)
	}

	if len(insights) > 0 {
		section("Biomarkers")
		widths := []float64{50, 30, 35, 30, 35}
		pdf.SetFont("Arial", "B", 9)
		pdf.SetFillColor(230, 230, 230)
		for i, h := range []string{"Biomarker", "Value", "Optimal range", "Status", "Severity"} {
			pdf.CellFormat(widths[i], 6, h, "1", 0, "L", true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Arial", "", 9)
		sort.SliceStable(insights, func(i, j int) bool { return insights[i].Category < insights[j].Category })
		for _, ins := range insights {
			rng := "-"
			if ins.OptimalMin != nil && ins.OptimalMax != nil {
				rng = fmt.Sprintf("%g-%g", *ins.OptimalMin, *ins.OptimalMax)
			}
			cells := []string{ins.Name, fmt.Sprintf("%g %s", ins.Value, ins.Unit), rng, ins.Status, ins.Severity}
			for i, c := range cells {
				pdf.CellFormat(widths[i], 6, tr(truncateRunes(c, 32)), "1", 0, "L", false, 0, "")
			}
			pdf.Ln(-1)
		}
		pdf.Ln(2)
		for _, ins := range insights {
			if ins.Interpretation == "" {
				continue
			}
			pdf.SetFont("Arial", "B", 9)
			pdf.CellFormat(0, 5, tr(ins.Name), "", 1, "L", false, 0, "")
			pdf.SetFont("Arial", "", 9)
			pdf.MultiCell(0, 4.5, tr(ins.Interpretation), "", "L", false)
		}
	}

	bullets := func(title string, items []string) {
		if len(items) == 0 {
			return
		}
		section(title)
		pdf.SetFont("Arial", "", 10)
		for _, it := range items {
			pdf.MultiCell(0, 5, tr("- "+it), "", "L", false)
		}
	}
	supps := make([]string, 0, len(recommendations.Supplements))
	for _, r := range recommendations.Supplements {
		supps = append(supps, r.Name+": "+r.Reason)
	}
	bullets("Supplements", supps)
	bullets("Diet", recommendations.Diet)
	bullets("Lifestyle", recommendations.Lifestyle)
	bullets("Warnings", warnings)

	if len(disclaimers) > 0 {
		pdf.Ln(4)
		pdf.SetFont("Arial", "I", 8)
		for _, d := range disclaimers {
			pdf.MultiCell(0, 4, tr(d), "", "L", false)
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render analysis pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "..."
}
