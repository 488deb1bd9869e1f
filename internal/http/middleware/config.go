package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/biomarker-backend/internal/http/response"
	"github.com/yungbote/biomarker-backend/internal/platform/envutil"
)

// RequireConfig fails the request with a missing_configuration 500 naming the
// first unset variable. Values are read per request.
func RequireConfig(names ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		for _, name := range names {
			if envutil.String(name, "") == "" {
				response.AbortWithAPIError(c, response.MissingConfig(name))
				return
			}
		}
		c.Next()
	}
}

// RequireAnyConfig passes when at least one of names is set.
func RequireAnyConfig(names ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		for _, name := range names {
			if envutil.String(name, "") != "" {
				c.Next()
				return
			}
		}
		response.AbortWithAPIError(c, response.MissingConfig(strings.Join(names, " or ")))
	}
}
