package handlers

import (
	"github.com/gin-gonic/gin"

	types "github.com/yungbote/biomarker-backend/internal/domain"
	"github.com/yungbote/biomarker-backend/internal/http/response"
	"github.com/yungbote/biomarker-backend/internal/platform/logger"
	"github.com/yungbote/biomarker-backend/internal/services"
)

// CatalogHandler serves the public biomarker and product listings.
type CatalogHandler struct {
	log      *logger.Logger
	catalog  services.CatalogService
	commerce services.CommerceService
}

func NewCatalogHandler(log *logger.Logger, catalog services.CatalogService, commerce services.CommerceService) *CatalogHandler {
	return &CatalogHandler{log: log.With("handler", "CatalogHandler"), catalog: catalog, commerce: commerce}
}

// GET /api/biomarkers
func (h *CatalogHandler) ListBiomarkers(c *gin.Context) {
	list, err := h.catalog.ListBiomarkers(c.Request.Context())
	if err != nil {
		response.Fail(c, h.log, err)
		return
	}
	if list == nil {
		list = []*types.Biomarker{}
	}
	response.RespondOK(c, gin.H{"biomarkers": list})
}

// GET /api/products
func (h *CatalogHandler) ListProducts(c *gin.Context) {
	list, err := h.commerce.ListProducts(c.Request.Context(), c.Query("category"))
	if err != nil {
		response.Fail(c, h.log, err)
		return
	}
	if list == nil {
		list = []*types.PartnerProduct{}
	}
	response.RespondOK(c, gin.H{"products": list})
}

// GET /api/products/:id
func (h *CatalogHandler) GetProduct(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	p, err := h.commerce.GetProduct(c.Request.Context(), id)
	if err != nil {
		response.Fail(c, h.log, err)
		return
	}
	response.RespondOK(c, gin.H{"product": p})
}
