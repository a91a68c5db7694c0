// internal/handlers/billing/webhook_handler.go
package billing

import (
	"io"
	"net/http"

	xerrors "flagpost-service/internal/pkg/errors"
	"flagpost-service/internal/pkg/response"
	service "flagpost-service/internal/service/billing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Payloads larger than this are not legitimate provider events.
const maxWebhookBody = 1 << 20

type WebhookHandler struct {
	provider  service.Provider
	processor *service.Processor
	logger    *zap.Logger
}

func NewWebhookHandler(provider service.Provider, processor *service.Processor, logger *zap.Logger) *WebhookHandler {
	return &WebhookHandler{
		provider:  provider,
		processor: processor,
		logger:    logger,
	}
}

// HandleWebhook verifies, dedupes and applies a payment provider event.
// Anything but a 2xx makes the provider redeliver, so transient failures
// return 500 and permanently unusable payloads return 4xx.
func (h *WebhookHandler) HandleWebhook(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		response.Error(c, http.StatusBadRequest, "failed to read payload", err)
		return
	}

	event, err := h.provider.VerifyWebhook(payload, c.GetHeader("Stripe-Signature"))
	if err != nil {
		if xerrors.Is(err, xerrors.ErrAuthenticity) {
			h.logger.Warn("webhook signature verification failed", zap.Error(err))
			response.Error(c, http.StatusBadRequest, "signature verification failed", nil)
			return
		}
		response.Error(c, http.StatusBadRequest, "invalid payload", err)
		return
	}

	// Event types we do not consume are acknowledged so the provider stops
	// redelivering them.
	if event == nil {
		response.Success(c, http.StatusOK, "event ignored", nil)
		return
	}

	if err := h.processor.Process(c.Request.Context(), event); err != nil {
		h.logger.Error("webhook processing failed", zap.Error(err))
		response.Error(c, http.StatusInternalServerError, "event processing failed", nil)
		return
	}

	response.Success(c, http.StatusOK, "event processed", nil)
}
