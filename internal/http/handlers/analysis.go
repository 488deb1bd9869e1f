package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	types "github.com/yungbote/biomarker-backend/internal/domain"
	"github.com/yungbote/biomarker-backend/internal/http/response"
	"github.com/yungbote/biomarker-backend/internal/platform/logger"
	"github.com/yungbote/biomarker-backend/internal/services"
)

type AnalysisHandler struct {
	log      *logger.Logger
	analyses services.AnalysisService
	reports  services.ReportService
}

func NewAnalysisHandler(log *logger.Logger, analyses services.AnalysisService, reports services.ReportService) *AnalysisHandler {
	return &AnalysisHandler{
		log:      log.With("handler", "AnalysisHandler"),
		analyses: analyses,
		reports:  reports,
	}
}

type analyzeRequest struct {
	// AnalysisID is optional; clients that want to poll progress before the
	// response arrives pick it themselves.
	AnalysisID string `json:"analysis_id"`
}

// POST /api/documents/:id/analyze
func (h *AnalysisHandler) Analyze(c *gin.Context) {
	rd, ok := requireUser(c)
	if !ok {
		return
	}
	docID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req analyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		response.RespondAPIError(c, bindError(err))
		return
	}
	in := services.AnalyzeInput{UserID: rd.UserID, DocumentID: docID}
	if req.AnalysisID != "" {
		id, ok := parseID(c, req.AnalysisID, "analysis_id")
		if !ok {
			return
		}
		in.AnalysisID = id
	}

	analysis, err := h.analyses.Analyze(c.Request.Context(), in)
	if err != nil {
		response.Fail(c, h.log, err)
		return
	}
	response.RespondCreated(c, gin.H{"analysis": analysis})
}

// GET /api/analyses
func (h *AnalysisHandler) List(c *gin.Context) {
	rd, ok := requireUser(c)
	if !ok {
		return
	}
	limit, offset := page(c)
	list, err := h.analyses.ListAnalyses(c.Request.Context(), rd.UserID, limit, offset)
	if err != nil {
		response.Fail(c, h.log, err)
		return
	}
	if list == nil {
		list = []*types.HealthAnalysis{}
	}
	response.RespondOK(c, gin.H{"analyses": list, "limit": limit, "offset": offset})
}

// GET /api/analyses/:id
func (h *AnalysisHandler) Get(c *gin.Context) {
	rd, ok := requireUser(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	detail, err := h.analyses.GetAnalysis(c.Request.Context(), rd.UserID, id)
	if err != nil {
		response.Fail(c, h.log, err)
		return
	}
	response.RespondOK(c, detail)
}

// GET /api/analyses/:id/status
func (h *AnalysisHandler) Status(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	h.status(c, id)
}

// GET /api/analysis-status?analysisId=
func (h *AnalysisHandler) StatusByQuery(c *gin.Context) {
	id, ok := parseID(c, c.Query("analysisId"), "analysisId")
	if !ok {
		return
	}
	h.status(c, id)
}

func (h *AnalysisHandler) status(c *gin.Context, id uuid.UUID) {
	rd, ok := requireUser(c)
	if !ok {
		return
	}
	st, err := h.analyses.Status(c.Request.Context(), rd.UserID, id)
	if err != nil {
		response.Fail(c, h.log, err)
		return
	}
	response.RespondOK(c, st)
}

// GET /api/analyses/:id/report.pdf
func (h *AnalysisHandler) ReportPDF(c *gin.Context) {
	rd, ok := requireUser(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	pdf, err := h.reports.AnalysisPDF(c.Request.Context(), rd.UserID, id)
	if err != nil {
		response.Fail(c, h.log, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="health-analysis-%s.pdf"`, id))
	c.Data(http.StatusOK, "application/pdf", pdf)
}
