package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/biomarker-backend/internal/http/response"
	"github.com/yungbote/biomarker-backend/internal/platform/ctxutil"
	"github.com/yungbote/biomarker-backend/internal/platform/logger"
)

// Recovery turns panics into the generic 500 envelope.
func Recovery(log *logger.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		if log != nil {
			fields := []any{"path", c.Request.URL.Path, "panic", recovered}
			if td := ctxutil.GetTraceData(c.Request.Context()); td != nil {
				fields = append(fields, "request_id", td.RequestID)
			}
			log.Error("panic recovered", fields...)
		}
		if c.Writer.Written() {
			c.Abort()
			return
		}
		response.AbortWithAPIError(c, nil)
	})
}
