package handler

import (
	"github.com/gin-gonic/gin"

	"docassist/internal/app"
	"docassist/internal/transport/http/response"
)

type SessionHandler struct {
	authService *app.AuthService
}

type OpenSessionRequest struct {
	AccessKey string `json:"access_key"`
}

func NewSessionHandler(authService *app.AuthService) *SessionHandler {
	return &SessionHandler{authService: authService}
}

func (h *SessionHandler) Open(c *gin.Context) {
	var req OpenSessionRequest
	// an empty body is fine when no access key is configured
	_ = c.ShouldBindJSON(&req)

	result, err := h.authService.OpenSession(c.Request.Context(), req.AccessKey)
	if err != nil {
		writeError(c, err)
		return
	}
	response.OK(c, result)
}
