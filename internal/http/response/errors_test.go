package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	pkgerrors "github.com/yungbote/biomarker-backend/internal/pkg/errors"
	"github.com/yungbote/biomarker-backend/internal/platform/logger"
	"github.com/yungbote/biomarker-backend/internal/services"
	"github.com/yungbote/biomarker-backend/internal/services/progress"
)

func TestFromError(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"invalid file", fmt.Errorf("%w: too big", services.ErrInvalidFile), http.StatusBadRequest, "invalid_file"},
		{"invalid argument", fmt.Errorf("%w: quantity", pkgerrors.ErrInvalidArgument), http.StatusBadRequest, "invalid_request"},
		{"unauthorized", pkgerrors.ErrUnauthorized, http.StatusUnauthorized, "unauthorized"},
		{"forbidden", pkgerrors.ErrForbidden, http.StatusForbidden, "forbidden"},
		{"not found", pkgerrors.ErrNotFound, http.StatusNotFound, "not_found"},
		{"already processing", services.ErrAlreadyProcessing, http.StatusConflict, "already_processing"},
		{"still uploading", services.ErrDocumentUploading, http.StatusConflict, "document_uploading"},
		{"order state", fmt.Errorf("%w: order is confirmed", services.ErrOrderNotPending), http.StatusConflict, "order_not_pending"},
		{"stage", &services.StageError{Stage: progress.PhaseOCR, Err: errors.New("vision down")}, http.StatusInternalServerError, "processing_failed"},
		{"validation stage", &services.StageError{Stage: progress.PhaseValidation, Err: services.ErrInvalidFile}, http.StatusBadRequest, "invalid_file"},
		{"download stage not found", &services.StageError{Stage: progress.PhaseDownload, Err: fmt.Errorf("download document: %w", pkgerrors.ErrNotFound)}, http.StatusInternalServerError, "processing_failed"},
		{"download stage unauthorized", &services.StageError{Stage: progress.PhaseDownload, Err: pkgerrors.ErrUnauthorized}, http.StatusInternalServerError, "processing_failed"},
		{"analysis id taken", fmt.Errorf("analysis x: %w", services.ErrAnalysisIDTaken), http.StatusConflict, "analysis_exists"},
		{"missing config", fmt.Errorf("%w: SUPABASE_JWT_SECRET", pkgerrors.ErrMissingConfig), http.StatusInternalServerError, "missing_configuration"},
		{"unknown", errors.New("pq: connection refused"), http.StatusInternalServerError, "internal_error"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := FromError(tc.err)
			if e.Status != tc.status || e.Code != tc.code {
				t.Fatalf("got %d/%s want %d/%s", e.Status, e.Code, tc.status, tc.code)
			}
		})
	}
}

func TestFailEnvelope(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cases := []struct {
		name    string
		err     error
		message string
		details string
	}{
		{"stage details", &services.StageError{Stage: progress.PhaseOCR, Err: errors.New("vision down")}, "Document processing failed at ocr", "vision down"},
		{"storage miss keeps stage envelope", &services.StageError{Stage: progress.PhaseDownload, Err: fmt.Errorf("download document: %w", pkgerrors.ErrNotFound)}, "Document processing failed at download", "download document: not found"},
		{"generic 500 hides cause", errors.New("secret dsn in here"), "Internal server error", ""},
		{"missing config", fmt.Errorf("%w: ADMIN_PASSWORD", pkgerrors.ErrMissingConfig), "Missing configuration", "ADMIN_PASSWORD"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(rec)
			c.Request = httptest.NewRequest(http.MethodGet, "/x", nil)
			Fail(c, logger.Nop(), tc.err)

			var env ErrorEnvelope
			if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if env.Error.Message != tc.message || env.Error.Details != tc.details {
				t.Fatalf("envelope=%+v", env.Error)
			}
		})
	}
}
