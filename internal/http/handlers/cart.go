package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/biomarker-backend/internal/http/response"
	"github.com/yungbote/biomarker-backend/internal/platform/logger"
	"github.com/yungbote/biomarker-backend/internal/services"
)

type CartHandler struct {
	log      *logger.Logger
	commerce services.CommerceService
}

func NewCartHandler(log *logger.Logger, commerce services.CommerceService) *CartHandler {
	return &CartHandler{log: log.With("handler", "CartHandler"), commerce: commerce}
}

// GET /api/cart
func (h *CartHandler) Get(c *gin.Context) {
	rd, ok := requireUser(c)
	if !ok {
		return
	}
	v, err := h.commerce.GetCart(c.Request.Context(), rd.UserID)
	if err != nil {
		response.Fail(c, h.log, err)
		return
	}
	response.RespondOK(c, v)
}

// POST /api/cart/items
func (h *CartHandler) AddItem(c *gin.Context) {
	rd, ok := requireUser(c)
	if !ok {
		return
	}
	var in services.AddCartItemInput
	if err := c.ShouldBindJSON(&in); err != nil {
		response.RespondAPIError(c, bindError(err))
		return
	}
	v, err := h.commerce.AddItem(c.Request.Context(), rd.UserID, in)
	if err != nil {
		response.Fail(c, h.log, err)
		return
	}
	response.RespondOK(c, v)
}

type updateCartItemRequest struct {
	Quantity *int `json:"quantity" binding:"required"`
}

// PATCH /api/cart/items/:id
func (h *CartHandler) UpdateItem(c *gin.Context) {
	rd, ok := requireUser(c)
	if !ok {
		return
	}
	itemID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req updateCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondAPIError(c, bindError(err))
		return
	}
	v, err := h.commerce.UpdateItem(c.Request.Context(), rd.UserID, itemID, *req.Quantity)
	if err != nil {
		response.Fail(c, h.log, err)
		return
	}
	response.RespondOK(c, v)
}

// DELETE /api/cart/items/:id
func (h *CartHandler) RemoveItem(c *gin.Context) {
	rd, ok := requireUser(c)
	if !ok {
		return
	}
	itemID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	v, err := h.commerce.RemoveItem(c.Request.Context(), rd.UserID, itemID)
	if err != nil {
		response.Fail(c, h.log, err)
		return
	}
	response.RespondOK(c, v)
}

// DELETE /api/cart
func (h *CartHandler) Clear(c *gin.Context) {
	rd, ok := requireUser(c)
	if !ok {
		return
	}
	if err := h.commerce.ClearCart(c.Request.Context(), rd.UserID); err != nil {
		response.Fail(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}
