package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/biomarker-backend/internal/http/response"
	pkgerrors "github.com/yungbote/biomarker-backend/internal/pkg/errors"
	"github.com/yungbote/biomarker-backend/internal/platform/apierr"
	"github.com/yungbote/biomarker-backend/internal/platform/ctxutil"
	"github.com/yungbote/biomarker-backend/internal/platform/logger"
	"github.com/yungbote/biomarker-backend/internal/services"
)

const AdminCookieName = "admin_session"

type AuthMiddleware struct {
	log         *logger.Logger
	authService services.AuthService
}

func NewAuthMiddleware(log *logger.Logger, authService services.AuthService) *AuthMiddleware {
	return &AuthMiddleware{log: log.With("middleware", "AuthMiddleware"), authService: authService}
}

// RequireAuth verifies the bearer token and attaches the caller to the
// request context.
func (am *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := extractToken(c)
		if tokenString == "" {
			response.AbortWithAPIError(c, apierr.New(http.StatusUnauthorized, "unauthorized", errors.New("missing or invalid token")))
			return
		}
		rd, err := am.authService.VerifyBearer(tokenString)
		if err != nil {
			if !errors.Is(err, pkgerrors.ErrUnauthorized) {
				am.log.Error("bearer verification unavailable", "error", err)
			} else {
				am.log.Debug("bearer rejected", "error", err)
			}
			response.AbortWithAPIError(c, response.FromError(err))
			return
		}
		if rd == nil || rd.UserID == uuid.Nil {
			response.AbortWithAPIError(c, apierr.New(http.StatusForbidden, "forbidden", errors.New("forbidden")))
			return
		}
		c.Request = c.Request.WithContext(ctxutil.WithRequestData(c.Request.Context(), rd))
		c.Next()
	}
}

// RequireAdmin accepts only a valid admin session cookie.
func (am *AuthMiddleware) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		cookie, err := c.Cookie(AdminCookieName)
		if err != nil || cookie == "" {
			response.AbortWithAPIError(c, apierr.New(http.StatusForbidden, "forbidden", errors.New("admin session required")))
			return
		}
		if err := am.authService.VerifyAdminSession(cookie); err != nil {
			am.log.Warn("admin session rejected", "error", err)
			response.AbortWithAPIError(c, apierr.New(http.StatusForbidden, "forbidden", errors.New("admin session required")))
			return
		}
		c.Request = c.Request.WithContext(ctxutil.WithRequestData(c.Request.Context(), &ctxutil.RequestData{IsAdmin: true}))
		c.Next()
	}
}

// extractToken reads the Authorization header, then the token query param
// that EventSource clients have to use.
func extractToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "Bearer ") {
		return strings.TrimSpace(authHeader[7:])
	}
	return strings.TrimSpace(c.Query("token"))
}
