package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/studyplanhq/calsync-api/internal/dto"
	"github.com/studyplanhq/calsync-api/internal/service"
	appErrors "github.com/studyplanhq/calsync-api/pkg/errors"
	"github.com/studyplanhq/calsync-api/pkg/response"
)

type manualSyncService interface {
	SyncUser(ctx context.Context, userID string) (*service.SyncSummary, error)
}

// SyncHandler exposes the manual sync trigger.
type SyncHandler struct {
	sync manualSyncService
}

// NewSyncHandler constructs the handler.
func NewSyncHandler(sync manualSyncService) *SyncHandler {
	return &SyncHandler{sync: sync}
}

// Trigger godoc
// @Summary Trigger a sync run for a user
// @Tags Sync
// @Accept json
// @Produce json
// @Param request body dto.SyncRequest true "Sync request"
// @Success 200 {object} response.Envelope
// @Router /sync [post]
func (h *SyncHandler) Trigger(c *gin.Context) {
	var req dto.SyncRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "user_id is required"))
		return
	}

	summary, err := h.sync.SyncUser(c.Request.Context(), req.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary)
}
