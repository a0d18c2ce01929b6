package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/studyplanhq/calsync-api/internal/dto"
	"github.com/studyplanhq/calsync-api/internal/models"
	appErrors "github.com/studyplanhq/calsync-api/pkg/errors"
	"github.com/studyplanhq/calsync-api/pkg/response"
)

type googleConnectionService interface {
	Connect(ctx context.Context, userID, code, redirectURI string, twoWaySync bool) (*models.CalendarConnection, error)
	Disconnect(ctx context.Context, userID string) error
}

// ConnectionHandler manages the Google Calendar connection lifecycle over HTTP.
type ConnectionHandler struct {
	connections googleConnectionService
}

// NewConnectionHandler constructs the handler.
func NewConnectionHandler(connections googleConnectionService) *ConnectionHandler {
	return &ConnectionHandler{connections: connections}
}

// Connect godoc
// @Summary Finish the Google Calendar OAuth consent flow
// @Tags Connections
// @Accept json
// @Produce json
// @Param request body dto.ConnectRequest true "Connect request"
// @Success 201 {object} response.Envelope
// @Router /google/connect [post]
func (h *ConnectionHandler) Connect(c *gin.Context) {
	var req dto.ConnectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "user_id and code are required"))
		return
	}

	twoWaySync := true
	if req.TwoWaySync != nil {
		twoWaySync = *req.TwoWaySync
	}

	conn, err := h.connections.Connect(c.Request.Context(), req.UserID, req.Code, req.RedirectURI, twoWaySync)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, conn)
}

// Disconnect godoc
// @Summary Disconnect Google Calendar for a user
// @Tags Connections
// @Produce json
// @Param user_id path string true "User ID"
// @Success 204
// @Router /google/connect/{user_id} [delete]
func (h *ConnectionHandler) Disconnect(c *gin.Context) {
	userID := c.Param("user_id")
	if userID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "user_id is required"))
		return
	}

	if err := h.connections.Disconnect(c.Request.Context(), userID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
