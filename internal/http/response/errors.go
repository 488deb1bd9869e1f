package response

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	pkgerrors "github.com/yungbote/biomarker-backend/internal/pkg/errors"
	"github.com/yungbote/biomarker-backend/internal/platform/apierr"
	"github.com/yungbote/biomarker-backend/internal/platform/ctxutil"
	"github.com/yungbote/biomarker-backend/internal/platform/llm"
	"github.com/yungbote/biomarker-backend/internal/platform/logger"
	"github.com/yungbote/biomarker-backend/internal/services"
)

var internalError = apierr.New(http.StatusInternalServerError, "internal_error", errors.New("Internal server error"))

// MissingConfig is the 500 returned when a required setting is absent.
func MissingConfig(name string) *apierr.Error {
	return apierr.New(http.StatusInternalServerError, "missing_configuration", errors.New("Missing configuration")).WithDetails(name)
}

// FromError maps service and repo errors onto HTTP errors. Anything it does
// not recognise becomes the generic 500.
func FromError(err error) *apierr.Error {
	if err == nil {
		return nil
	}
	var ae *apierr.Error
	if errors.As(err, &ae) {
		return ae
	}
	// Stage failures keep their cause in details, whatever it wraps. A file
	// rejected at validation is still the caller's fault.
	var se *services.StageError
	if errors.As(err, &se) && !errors.Is(err, services.ErrInvalidFile) {
		code := "processing_failed"
		if errors.Is(err, llm.ErrNotConfigured) {
			code = "ai_not_configured"
		}
		return apierr.External(code, "Document processing failed at "+string(se.Stage), se.Err)
	}

	switch {
	case errors.Is(err, pkgerrors.ErrMissingConfig):
		return MissingConfig(strings.TrimPrefix(err.Error(), pkgerrors.ErrMissingConfig.Error()+": "))
	case errors.Is(err, services.ErrInvalidFile):
		return apierr.BadRequest("invalid_file", err)
	case errors.Is(err, pkgerrors.ErrInvalidArgument):
		return apierr.BadRequest("invalid_request", err)
	case errors.Is(err, services.ErrEmptyCart):
		return apierr.BadRequest("empty_cart", err)
	case errors.Is(err, services.ErrInvalidCredentials):
		return apierr.New(http.StatusUnauthorized, "invalid_credentials", err)
	case errors.Is(err, pkgerrors.ErrUnauthorized):
		return apierr.New(http.StatusUnauthorized, "unauthorized", errors.New("missing or invalid token"))
	case errors.Is(err, pkgerrors.ErrForbidden):
		return apierr.New(http.StatusForbidden, "forbidden", errors.New("forbidden"))
	case errors.Is(err, pkgerrors.ErrNotFound):
		return apierr.NotFound("not_found", errors.New("not found"))
	case errors.Is(err, services.ErrAlreadyProcessing):
		return apierr.Conflict("already_processing", err)
	case errors.Is(err, services.ErrDocumentUploading):
		return apierr.Conflict("document_uploading", err)
	case errors.Is(err, services.ErrAnalysisIDTaken):
		return apierr.Conflict("analysis_exists", err)
	case errors.Is(err, services.ErrDocumentNotCompleted):
		return apierr.Conflict("document_not_completed", err)
	case errors.Is(err, services.ErrOrderNotPending):
		return apierr.Conflict("order_not_pending", err)
	case errors.Is(err, services.ErrInsufficientStock):
		return apierr.Conflict("insufficient_stock", err)
	case errors.Is(err, services.ErrProductUnavailable):
		return apierr.Conflict("product_unavailable", err)
	case errors.Is(err, pkgerrors.ErrConflict):
		return apierr.Conflict("conflict", err)
	case errors.Is(err, services.ErrNoReadings), errors.Is(err, services.ErrNoClassifiableReadings):
		return apierr.New(http.StatusUnprocessableEntity, "no_readings", err)
	}
	return internalError
}

// Fail writes the mapped error. Server-side failures are logged with the
// request's trace ids; client errors are not.
func Fail(c *gin.Context, log *logger.Logger, err error) {
	e := FromError(err)
	if e.Status >= 500 && log != nil {
		fields := []any{"path", c.FullPath(), "error", err}
		if td := ctxutil.GetTraceData(c.Request.Context()); td != nil {
			fields = append(fields, "request_id", td.RequestID)
		}
		log.Error("request failed", fields...)
	}
	RespondAPIError(c, e)
}
