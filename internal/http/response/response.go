package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/biomarker-backend/internal/platform/apierr"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    code,
		},
	})
}

func RespondAPIError(c *gin.Context, e *apierr.Error) {
	if e == nil {
		e = internalError
	}
	c.JSON(statusOf(e), envelopeFor(e))
}

// AbortWithAPIError is RespondAPIError for middleware.
func AbortWithAPIError(c *gin.Context, e *apierr.Error) {
	if e == nil {
		e = internalError
	}
	c.AbortWithStatusJSON(statusOf(e), envelopeFor(e))
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

func RespondCreated(c *gin.Context, payload any) {
	c.JSON(http.StatusCreated, payload)
}

func envelopeFor(e *apierr.Error) ErrorEnvelope {
	return ErrorEnvelope{Error: APIError{Message: e.Error(), Code: e.Code, Details: e.Details}}
}

func statusOf(e *apierr.Error) int {
	if e.Status == 0 {
		return http.StatusInternalServerError
	}
	return e.Status
}
