// internal/handlers/inventory/inventory_handler.go
package inventory

import (
	"net/http"
	"strconv"

	"flagpost-service/internal/domain/inventory"
	"flagpost-service/internal/pkg/response"
	service "flagpost-service/internal/service/inventory"

	"github.com/gin-gonic/gin"
)

type InventoryHandler struct {
	ledger *service.Ledger
}

func NewInventoryHandler(ledger *service.Ledger) *InventoryHandler {
	return &InventoryHandler{
		ledger: ledger,
	}
}

// AdjustStock applies a stock delta to a flag product and records the ledger entry
func (h *InventoryHandler) AdjustStock(c *gin.Context) {
	productID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid product ID", err)
		return
	}

	var req inventory.AdjustRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request", err)
		return
	}

	result, err := h.ledger.Adjust(c.Request.Context(), productID, &req)
	if err != nil {
		response.FromError(c, "failed to adjust stock", err)
		return
	}

	response.Success(c, http.StatusCreated, "stock adjusted", result)
}

// StockHistory retrieves the adjustment ledger for a flag product
func (h *InventoryHandler) StockHistory(c *gin.Context) {
	productID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid product ID", err)
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	adjustments, total, err := h.ledger.History(c.Request.Context(), productID, limit, offset)
	if err != nil {
		response.FromError(c, "failed to load stock history", err)
		return
	}

	response.Success(c, http.StatusOK, "stock history retrieved", gin.H{
		"adjustments": adjustments,
		"total":       total,
	})
}
