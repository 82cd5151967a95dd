package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"docassist/internal/app"
	"docassist/internal/transport/http/response"
)

type DebugHandler struct {
	chatService *app.ChatService
	enabled     bool
}

func NewDebugHandler(chatService *app.ChatService, enabled bool) *DebugHandler {
	return &DebugHandler{chatService: chatService, enabled: enabled}
}

// Show returns the debug panel when debug is enabled globally or toggled on
// for the calling session.
func (h *DebugHandler) Show(c *gin.Context) {
	sessionID, ok := sessionIDFromContext(c)
	if !ok {
		return
	}

	session, err := h.chatService.GetSession(c.Request.Context(), sessionID)
	if err != nil {
		writeError(c, err)
		return
	}
	if !h.enabled && !session.Debug {
		response.Error(c, http.StatusForbidden, response.CodeForbidden, "debug panel is disabled")
		return
	}

	info, err := h.chatService.Debug(c.Request.Context(), sessionID)
	if err != nil {
		writeError(c, err)
		return
	}
	response.OK(c, info)
}

func (h *DebugHandler) Toggle(c *gin.Context) {
	sessionID, ok := sessionIDFromContext(c)
	if !ok {
		return
	}

	enabled, err := h.chatService.ToggleDebug(c.Request.Context(), sessionID)
	if err != nil {
		writeError(c, err)
		return
	}
	response.OK(c, gin.H{"debug": enabled})
}
