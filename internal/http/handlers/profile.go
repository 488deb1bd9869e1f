package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/biomarker-backend/internal/http/response"
	"github.com/yungbote/biomarker-backend/internal/platform/logger"
	"github.com/yungbote/biomarker-backend/internal/services"
)

type ProfileHandler struct {
	log      *logger.Logger
	profiles services.ProfileService
}

func NewProfileHandler(log *logger.Logger, profiles services.ProfileService) *ProfileHandler {
	return &ProfileHandler{log: log.With("handler", "ProfileHandler"), profiles: profiles}
}

func (h *ProfileHandler) Get(c *gin.Context) {
	rd, ok := requireUser(c)
	if !ok {
		return
	}
	p, err := h.profiles.Get(c.Request.Context(), rd.UserID)
	if err != nil {
		response.Fail(c, h.log, err)
		return
	}
	response.RespondOK(c, gin.H{"profile": p})
}

func (h *ProfileHandler) Update(c *gin.Context) {
	rd, ok := requireUser(c)
	if !ok {
		return
	}
	var in services.UpdateProfileInput
	if err := c.ShouldBindJSON(&in); err != nil {
		response.RespondAPIError(c, bindError(err))
		return
	}
	p, err := h.profiles.Update(c.Request.Context(), rd.UserID, in)
	if err != nil {
		response.Fail(c, h.log, err)
		return
	}
	response.RespondOK(c, gin.H{"profile": p})
}
