package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/studyplanhq/calsync-api/internal/service"
	appErrors "github.com/studyplanhq/calsync-api/pkg/errors"
	"github.com/studyplanhq/calsync-api/pkg/response"
)

type webhookSyncService interface {
	HandleWebhook(ctx context.Context, channelID, resourceState, messageNumber string) (*service.SyncSummary, error)
}

// WebhookHandler receives Google Calendar push notifications. Deliveries are
// authenticated by channel id only; the body is never trusted or parsed.
type WebhookHandler struct {
	sync    webhookSyncService
	metrics *service.MetricsService
}

// NewWebhookHandler constructs the handler.
func NewWebhookHandler(sync webhookSyncService, metrics *service.MetricsService) *WebhookHandler {
	return &WebhookHandler{sync: sync, metrics: metrics}
}

// Receive godoc
// @Summary Google Calendar webhook receiver
// @Tags Sync
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /webhooks/google-calendar [post]
func (h *WebhookHandler) Receive(c *gin.Context) {
	if h.metrics != nil {
		h.metrics.ObserveWebhookDelivery()
	}

	channelID := c.GetHeader("X-Goog-Channel-ID")
	if channelID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "missing X-Goog-Channel-ID header"))
		return
	}
	resourceState := c.GetHeader("X-Goog-Resource-State")
	messageNumber := c.GetHeader("X-Goog-Message-Number")

	summary, err := h.sync.HandleWebhook(c.Request.Context(), channelID, resourceState, messageNumber)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary)
}
