package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/opopir/opopir-backend/internal/model"
	"github.com/opopir/opopir-backend/internal/response"
	"github.com/opopir/opopir-backend/internal/service"
)

// CatalogHandler serves the assessment scale catalog.
type CatalogHandler struct {
	catalogService *service.CatalogService
}

// NewCatalogHandler creates a new CatalogHandler.
func NewCatalogHandler(catalogService *service.CatalogService) *CatalogHandler {
	return &CatalogHandler{catalogService: catalogService}
}

// GetScales godoc
// GET /api/v1/catalog/scales
// Lists the assessment scales available for by_scale exams.
func (h *CatalogHandler) GetScales(c *gin.Context) {
	scales, err := h.catalogService.List(c.Request.Context())
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	if scales == nil {
		scales = []model.Scale{}
	}

	response.Success(c, http.StatusOK, gin.H{"scales": scales})
}
