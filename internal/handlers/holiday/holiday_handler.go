// internal/handlers/holiday/holiday_handler.go
package holiday

import (
	"net/http"
	"strconv"
	"time"

	"flagpost-service/internal/domain/holiday"
	"flagpost-service/internal/pkg/response"
	service "flagpost-service/internal/service/holiday"

	"github.com/gin-gonic/gin"
)

type HolidayHandler struct {
	holidayService *service.Service
}

func NewHolidayHandler(holidayService *service.Service) *HolidayHandler {
	return &HolidayHandler{
		holidayService: holidayService,
	}
}

// CreateHoliday creates a new holiday definition
func (h *HolidayHandler) CreateHoliday(c *gin.Context) {
	var req holiday.CreateHolidayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request", err)
		return
	}

	result, err := h.holidayService.Create(c.Request.Context(), &req)
	if err != nil {
		response.FromError(c, "failed to create holiday", err)
		return
	}

	response.Success(c, http.StatusCreated, "holiday created", result)
}

// GetHoliday retrieves a holiday by ID
func (h *HolidayHandler) GetHoliday(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid holiday ID", err)
		return
	}

	result, err := h.holidayService.Get(c.Request.Context(), id)
	if err != nil {
		response.FromError(c, "holiday not found", err)
		return
	}

	response.Success(c, http.StatusOK, "holiday retrieved", result)
}

// ListHolidays retrieves holidays, optionally including deactivated ones
func (h *HolidayHandler) ListHolidays(c *gin.Context) {
	includeInactive := c.Query("include_inactive") == "true"

	holidays, err := h.holidayService.List(c.Request.Context(), includeInactive)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "failed to list holidays", err)
		return
	}

	response.Success(c, http.StatusOK, "holidays retrieved", gin.H{
		"holidays": holidays,
		"count":    len(holidays),
	})
}

// UpdateHoliday updates a holiday definition
func (h *HolidayHandler) UpdateHoliday(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid holiday ID", err)
		return
	}

	var req holiday.UpdateHolidayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request", err)
		return
	}

	result, err := h.holidayService.Update(c.Request.Context(), id, &req)
	if err != nil {
		response.FromError(c, "failed to update holiday", err)
		return
	}

	response.Success(c, http.StatusOK, "holiday updated", result)
}

// DeactivateHoliday retires a holiday without deleting it
func (h *HolidayHandler) DeactivateHoliday(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid holiday ID", err)
		return
	}

	if err := h.holidayService.Deactivate(c.Request.Context(), id); err != nil {
		response.FromError(c, "failed to deactivate holiday", err)
		return
	}

	response.Success(c, http.StatusOK, "holiday deactivated", nil)
}

// CheckIntegrity reports holidays whose timing data the scheduler would refuse
func (h *HolidayHandler) CheckIntegrity(c *gin.Context) {
	issues, err := h.holidayService.CheckIntegrity(c.Request.Context(), time.Now())
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "integrity check failed", err)
		return
	}

	response.Success(c, http.StatusOK, "integrity check complete", gin.H{
		"issues": issues,
		"count":  len(issues),
	})
}
