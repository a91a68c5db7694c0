// internal/handlers/subscription/subscription_handler.go
package subscription

import (
	"net/http"
	"strconv"

	"flagpost-service/internal/domain/subscription"
	"flagpost-service/internal/pkg/response"
	service "flagpost-service/internal/service/subscription"

	"github.com/gin-gonic/gin"
)

type SubscriptionHandler struct {
	lifecycle *service.Lifecycle
}

func NewSubscriptionHandler(lifecycle *service.Lifecycle) *SubscriptionHandler {
	return &SubscriptionHandler{
		lifecycle: lifecycle,
	}
}

// Checkout creates a pending subscription and returns the hosted payment URL
func (h *SubscriptionHandler) Checkout(c *gin.Context) {
	var req subscription.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request", err)
		return
	}

	result, err := h.lifecycle.Checkout(c.Request.Context(), &req)
	if err != nil {
		response.FromError(c, "checkout failed", err)
		return
	}

	response.Success(c, http.StatusCreated, "checkout session created", result)
}

// GetSubscription retrieves a subscription with its item snapshot
func (h *SubscriptionHandler) GetSubscription(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid subscription ID", err)
		return
	}

	sub, items, err := h.lifecycle.Get(c.Request.Context(), id)
	if err != nil {
		response.FromError(c, "subscription not found", err)
		return
	}

	response.Success(c, http.StatusOK, "subscription retrieved", gin.H{
		"subscription": sub,
		"items":        items,
	})
}

// ListSubscriptions retrieves subscriptions with filters
func (h *SubscriptionHandler) ListSubscriptions(c *gin.Context) {
	var filters subscription.SubscriptionListFilters
	if err := c.ShouldBindQuery(&filters); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid query parameters", err)
		return
	}

	result, err := h.lifecycle.List(c.Request.Context(), &filters)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "failed to list subscriptions", err)
		return
	}

	response.Success(c, http.StatusOK, "subscriptions retrieved", result)
}

// CancelSubscription cancels immediately or at period end
func (h *SubscriptionHandler) CancelSubscription(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid subscription ID", err)
		return
	}

	var req subscription.CancelSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request", err)
		return
	}

	if err := h.lifecycle.Cancel(c.Request.Context(), id, req.Reason, req.AtPeriodEnd); err != nil {
		response.FromError(c, "failed to cancel subscription", err)
		return
	}

	response.Success(c, http.StatusOK, "subscription canceled", nil)
}

// RenewSubscription clones an active annual subscription into a new pending one
func (h *SubscriptionHandler) RenewSubscription(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid subscription ID", err)
		return
	}

	result, err := h.lifecycle.Renew(c.Request.Context(), id)
	if err != nil {
		response.FromError(c, "failed to renew subscription", err)
		return
	}

	response.Success(c, http.StatusCreated, "renewal created", result)
}

// RegeneratePlacements re-runs placement generation for a subscription
func (h *SubscriptionHandler) RegeneratePlacements(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid subscription ID", err)
		return
	}

	if err := h.lifecycle.GeneratePlacements(c.Request.Context(), id); err != nil {
		response.FromError(c, "failed to generate placements", err)
		return
	}

	response.Success(c, http.StatusOK, "placements generated", nil)
}
