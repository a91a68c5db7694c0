// internal/handlers/catalog/catalog_handler.go
package catalog

import (
	"net/http"
	"strconv"

	"flagpost-service/internal/domain/catalog"
	"flagpost-service/internal/pkg/response"
	service "flagpost-service/internal/service/catalog"

	"github.com/gin-gonic/gin"
)

type CatalogHandler struct {
	catalogService *service.Service
}

func NewCatalogHandler(catalogService *service.Service) *CatalogHandler {
	return &CatalogHandler{
		catalogService: catalogService,
	}
}

// CreateProduct adds a flag product to the catalog
func (h *CatalogHandler) CreateProduct(c *gin.Context) {
	var req catalog.CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request", err)
		return
	}

	result, err := h.catalogService.Create(c.Request.Context(), &req)
	if err != nil {
		response.FromError(c, "failed to create product", err)
		return
	}

	response.Success(c, http.StatusCreated, "product created", result)
}

// GetProduct retrieves a flag product by ID
func (h *CatalogHandler) GetProduct(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid product ID", err)
		return
	}

	result, err := h.catalogService.Get(c.Request.Context(), id)
	if err != nil {
		response.FromError(c, "product not found", err)
		return
	}

	response.Success(c, http.StatusOK, "product retrieved", result)
}

// ListProducts retrieves the flag catalog
func (h *CatalogHandler) ListProducts(c *gin.Context) {
	includeInactive := c.Query("include_inactive") == "true"

	products, err := h.catalogService.List(c.Request.Context(), includeInactive)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "failed to list products", err)
		return
	}

	response.Success(c, http.StatusOK, "products retrieved", gin.H{
		"products": products,
		"count":    len(products),
	})
}

// UpdateProduct updates prices or availability of a flag product
func (h *CatalogHandler) UpdateProduct(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid product ID", err)
		return
	}

	var req catalog.UpdateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request", err)
		return
	}

	result, err := h.catalogService.Update(c.Request.Context(), id, &req)
	if err != nil {
		response.FromError(c, "failed to update product", err)
		return
	}

	response.Success(c, http.StatusOK, "product updated", result)
}

type linkBillingRequest struct {
	BillingProductID string `json:"billing_product_id" binding:"required"`
	OneTimePriceID   string `json:"one_time_price_id" binding:"required"`
	AnnualPriceID    string `json:"annual_price_id" binding:"required"`
}

// LinkBilling attaches billing provider product and price IDs to a product
func (h *CatalogHandler) LinkBilling(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid product ID", err)
		return
	}

	var req linkBillingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request", err)
		return
	}

	if err := h.catalogService.LinkBilling(c.Request.Context(), id, req.BillingProductID, req.OneTimePriceID, req.AnnualPriceID); err != nil {
		response.FromError(c, "failed to link billing IDs", err)
		return
	}

	response.Success(c, http.StatusOK, "billing IDs linked", nil)
}
