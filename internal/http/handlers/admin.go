package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/biomarker-backend/internal/http/middleware"
	"github.com/yungbote/biomarker-backend/internal/http/response"
	"github.com/yungbote/biomarker-backend/internal/platform/logger"
	"github.com/yungbote/biomarker-backend/internal/services"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type AdminHandler struct {
	log          *logger.Logger
	auth         services.AuthService
	admin        services.AdminService
	secureCookie bool
}

func NewAdminHandler(log *logger.Logger, auth services.AuthService, admin services.AdminService, secureCookie bool) *AdminHandler {
	return &AdminHandler{
		log:          log.With("handler", "AdminHandler"),
		auth:         auth,
		admin:        admin,
		secureCookie: secureCookie,
	}
}

type adminLoginRequest struct {
	Password string `json:"password" binding:"required"`
}

// POST /api/admin/login
func (h *AdminHandler) Login(c *gin.Context) {
	var req adminLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondAPIError(c, bindError(err))
		return
	}
	token, expires, err := h.auth.AdminLogin(req.Password)
	if err != nil {
		h.log.Warn("admin login rejected", "client_ip", c.ClientIP(), "error", err)
		response.Fail(c, h.log, err)
		return
	}
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     middleware.AdminCookieName,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		MaxAge:   int(h.auth.AdminSessionTTL().Seconds()),
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteStrictMode,
	})
	response.RespondOK(c, gin.H{"success": true, "expires_at": expires})
}

// POST /api/admin/logout
func (h *AdminHandler) Logout(c *gin.Context) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     middleware.AdminCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteStrictMode,
	})
	c.Status(http.StatusNoContent)
}

// GET /api/admin/stats
func (h *AdminHandler) Stats(c *gin.Context) {
	stats, err := h.admin.Stats(c.Request.Context())
	if err != nil {
		response.Fail(c, h.log, err)
		return
	}
	response.RespondOK(c, stats)
}

// GET /api/admin/orders/export.xlsx
func (h *AdminHandler) ExportOrders(c *gin.Context) {
	b, err := h.admin.ExportOrdersXLSX(c.Request.Context())
	if err != nil {
		response.Fail(c, h.log, err)
		return
	}
	name := fmt.Sprintf("orders-%s.xlsx", time.Now().UTC().Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, name))
	c.Data(http.StatusOK, xlsxContentType, b)
}
