package handler

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/studyplanhq/calsync-api/internal/models"
	appErrors "github.com/studyplanhq/calsync-api/pkg/errors"
)

type connectionServiceMock struct {
	userID       string
	code         string
	twoWaySync   bool
	disconnected string
	connectErr   error
}

func (m *connectionServiceMock) Connect(ctx context.Context, userID, code, redirectURI string, twoWaySync bool) (*models.CalendarConnection, error) {
	if m.connectErr != nil {
		return nil, m.connectErr
	}
	m.userID = userID
	m.code = code
	m.twoWaySync = twoWaySync
	return &models.CalendarConnection{UserID: userID, TwoWaySync: twoWaySync}, nil
}

func (m *connectionServiceMock) Disconnect(ctx context.Context, userID string) error {
	m.disconnected = userID
	return nil
}

func TestConnectionHandlerConnectDefaultsTwoWaySync(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &connectionServiceMock{}
	handler := NewConnectionHandler(mockSvc)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	body := bytes.NewBufferString(`{"user_id":"user-1","code":"consent-code"}`)
	req, _ := http.NewRequest(http.MethodPost, "/google/connect", body)
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	handler.Connect(c)

	require.Equal(t, http.StatusCreated, w.Code)
	require.Equal(t, "user-1", mockSvc.userID)
	require.Equal(t, "consent-code", mockSvc.code)
	require.True(t, mockSvc.twoWaySync)
	// The refresh token never serializes.
	require.NotContains(t, w.Body.String(), "refresh_token")
}

func TestConnectionHandlerConnectValidatesBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewConnectionHandler(&connectionServiceMock{})
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	body := bytes.NewBufferString(`{"user_id":"user-1"}`)
	req, _ := http.NewRequest(http.MethodPost, "/google/connect", body)
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	handler.Connect(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestConnectionHandlerConnectOAuthFailure(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewConnectionHandler(&connectionServiceMock{connectErr: appErrors.ErrUnauthorized})
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	body := bytes.NewBufferString(`{"user_id":"user-1","code":"bad"}`)
	req, _ := http.NewRequest(http.MethodPost, "/google/connect", body)
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	handler.Connect(c)

	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestConnectionHandlerDisconnect(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &connectionServiceMock{}
	handler := NewConnectionHandler(mockSvc)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodDelete, "/google/connect/user-1", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "user_id", Value: "user-1"}}

	handler.Disconnect(c)
	c.Writer.WriteHeaderNow()

	require.Equal(t, http.StatusNoContent, w.Code)
	require.Equal(t, "user-1", mockSvc.disconnected)
}
