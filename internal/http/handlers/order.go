package handlers

import (
	"errors"
	"io"

	"github.com/gin-gonic/gin"

	types "github.com/yungbote/biomarker-backend/internal/domain"
	"github.com/yungbote/biomarker-backend/internal/http/response"
	"github.com/yungbote/biomarker-backend/internal/platform/logger"
	"github.com/yungbote/biomarker-backend/internal/services"
)

type OrderHandler struct {
	log      *logger.Logger
	commerce services.CommerceService
}

func NewOrderHandler(log *logger.Logger, commerce services.CommerceService) *OrderHandler {
	return &OrderHandler{log: log.With("handler", "OrderHandler"), commerce: commerce}
}

// POST /api/checkout
func (h *OrderHandler) Checkout(c *gin.Context) {
	rd, ok := requireUser(c)
	if !ok {
		return
	}
	var in services.CheckoutInput
	if err := c.ShouldBindJSON(&in); err != nil && !errors.Is(err, io.EOF) {
		response.RespondAPIError(c, bindError(err))
		return
	}
	res, err := h.commerce.Checkout(c.Request.Context(), rd.UserID, in)
	if err != nil {
		response.Fail(c, h.log, err)
		return
	}
	response.RespondCreated(c, res)
}

// GET /api/orders
func (h *OrderHandler) List(c *gin.Context) {
	rd, ok := requireUser(c)
	if !ok {
		return
	}
	limit, offset := page(c)
	orders, err := h.commerce.ListOrders(c.Request.Context(), rd.UserID, limit, offset)
	if err != nil {
		response.Fail(c, h.log, err)
		return
	}
	if orders == nil {
		orders = []*types.Order{}
	}
	response.RespondOK(c, gin.H{"orders": orders, "limit": limit, "offset": offset})
}

// GET /api/orders/:id
func (h *OrderHandler) Get(c *gin.Context) {
	rd, ok := requireUser(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	o, err := h.commerce.GetOrder(c.Request.Context(), rd.UserID, id)
	if err != nil {
		response.Fail(c, h.log, err)
		return
	}
	response.RespondOK(c, gin.H{"order": o})
}

// POST /api/orders/:id/confirm
func (h *OrderHandler) Confirm(c *gin.Context) {
	rd, ok := requireUser(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	o, err := h.commerce.ConfirmOrder(c.Request.Context(), rd.UserID, id)
	if err != nil {
		response.Fail(c, h.log, err)
		return
	}
	response.RespondOK(c, gin.H{"order": o})
}
