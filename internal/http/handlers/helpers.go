package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/biomarker-backend/internal/http/response"
	"github.com/yungbote/biomarker-backend/internal/platform/apierr"
	"github.com/yungbote/biomarker-backend/internal/platform/ctxutil"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// requireUser returns the authenticated caller or writes a 401.
func requireUser(c *gin.Context) (*ctxutil.RequestData, bool) {
	rd := ctxutil.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		response.RespondAPIError(c, apierr.New(http.StatusUnauthorized, "unauthorized", errors.New("missing or invalid token")))
		return nil, false
	}
	return rd, true
}

func uuidParam(c *gin.Context, name string) (uuid.UUID, bool) {
	return parseID(c, c.Param(name), name)
}

func parseID(c *gin.Context, raw, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil || id == uuid.Nil {
		response.RespondAPIError(c, apierr.BadRequest("invalid_id", errors.New("invalid "+name)))
		return uuid.Nil, false
	}
	return id, true
}

// page reads ?limit= and ?offset=, clamping to sane bounds.
func page(c *gin.Context) (limit, offset int) {
	limit, _ = strconv.Atoi(c.Query("limit"))
	offset, _ = strconv.Atoi(c.Query("offset"))
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func bindError(err error) *apierr.Error {
	return apierr.BadRequest("invalid_request", err)
}
