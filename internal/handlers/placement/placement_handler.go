// internal/handlers/placement/placement_handler.go
package placement

import (
	"net/http"
	"strconv"

	"flagpost-service/internal/domain/placement"
	"flagpost-service/internal/middleware"
	"flagpost-service/internal/pkg/response"
	service "flagpost-service/internal/service/placement"

	"github.com/gin-gonic/gin"
)

type PlacementHandler struct {
	ops *service.Ops
}

func NewPlacementHandler(ops *service.Ops) *PlacementHandler {
	return &PlacementHandler{
		ops: ops,
	}
}

// ListPlacements retrieves placements with filters
func (h *PlacementHandler) ListPlacements(c *gin.Context) {
	var filters placement.PlacementListFilters
	if err := c.ShouldBindQuery(&filters); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid query parameters", err)
		return
	}

	placements, total, err := h.ops.List(c.Request.Context(), &filters)
	if err != nil {
		response.FromError(c, "failed to list placements", err)
		return
	}

	response.Success(c, http.StatusOK, "placements retrieved", gin.H{
		"placements": placements,
		"total":      total,
	})
}

// GetPlacement retrieves a placement by ID
func (h *PlacementHandler) GetPlacement(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid placement ID", err)
		return
	}

	result, err := h.ops.Get(c.Request.Context(), id)
	if err != nil {
		response.FromError(c, "placement not found", err)
		return
	}

	response.Success(c, http.StatusOK, "placement retrieved", result)
}

// MarkPlaced records that the flag is in the ground
func (h *PlacementHandler) MarkPlaced(c *gin.Context) {
	staffID := middleware.MustGetStaffID(c)

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid placement ID", err)
		return
	}

	result, err := h.ops.MarkPlaced(c.Request.Context(), id, staffID)
	if err != nil {
		response.FromError(c, "failed to mark placement as placed", err)
		return
	}

	response.Success(c, http.StatusOK, "placement marked as placed", result)
}

// MarkRemoved records that the flag was picked up
func (h *PlacementHandler) MarkRemoved(c *gin.Context) {
	staffID := middleware.MustGetStaffID(c)

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid placement ID", err)
		return
	}

	result, err := h.ops.MarkRemoved(c.Request.Context(), id, staffID)
	if err != nil {
		response.FromError(c, "failed to mark placement as removed", err)
		return
	}

	response.Success(c, http.StatusOK, "placement marked as removed", result)
}

type overrideAddressRequest struct {
	Address string `json:"address" binding:"required"`
}

// OverrideAddress sets a one-off placement address
func (h *PlacementHandler) OverrideAddress(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid placement ID", err)
		return
	}

	var req overrideAddressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request", err)
		return
	}

	if err := h.ops.OverrideAddress(c.Request.Context(), id, req.Address); err != nil {
		response.FromError(c, "failed to override address", err)
		return
	}

	response.Success(c, http.StatusOK, "placement address overridden", nil)
}

// CreateRoute builds an ordered field route over placements of one holiday
func (h *PlacementHandler) CreateRoute(c *gin.Context) {
	var req placement.CreateRouteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request", err)
		return
	}

	result, err := h.ops.CreateRoute(c.Request.Context(), &req)
	if err != nil {
		response.FromError(c, "failed to create route", err)
		return
	}

	response.Success(c, http.StatusCreated, "route created", result)
}

// GetRoute retrieves a route with its ordered stops
func (h *PlacementHandler) GetRoute(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid route ID", err)
		return
	}

	result, err := h.ops.GetRoute(c.Request.Context(), id)
	if err != nil {
		response.FromError(c, "route not found", err)
		return
	}

	response.Success(c, http.StatusOK, "route retrieved", result)
}

// ListRoutes retrieves routes for a holiday
func (h *PlacementHandler) ListRoutes(c *gin.Context) {
	holidayID, err := strconv.ParseInt(c.Query("holiday_id"), 10, 64)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid holiday ID", err)
		return
	}

	routes, err := h.ops.ListRoutes(c.Request.Context(), holidayID)
	if err != nil {
		response.FromError(c, "failed to list routes", err)
		return
	}

	response.Success(c, http.StatusOK, "routes retrieved", gin.H{
		"routes": routes,
		"count":  len(routes),
	})
}
