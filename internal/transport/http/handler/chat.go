package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"docassist/internal/app"
	"docassist/internal/model"
	"docassist/internal/transport/http/response"
)

type ChatHandler struct {
	chatService *app.ChatService
}

type SendMessageRequest struct {
	Content string `json:"content"`
}

type historyResponse struct {
	Turns []model.Turn     `json:"turns"`
	Stats app.SessionStats `json:"stats"`
}

func NewChatHandler(chatService *app.ChatService) *ChatHandler {
	return &ChatHandler{chatService: chatService}
}

func (h *ChatHandler) Suggestions(c *gin.Context) {
	response.OK(c, gin.H{"questions": h.chatService.SuggestedQuestions()})
}

func (h *ChatHandler) SendMessage(c *gin.Context) {
	sessionID, ok := sessionIDFromContext(c)
	if !ok {
		return
	}

	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	result, err := h.chatService.SendMessage(c.Request.Context(), sessionID, req.Content)
	if err != nil {
		var runErr *app.RunFailedError
		if result != nil && (errors.As(err, &runErr) || errors.Is(err, app.ErrRunTimedOut)) {
			// the user turn is kept; report it alongside the failure
			status, code := http.StatusBadGateway, response.CodeRunFailed
			if errors.Is(err, app.ErrRunTimedOut) {
				status, code = http.StatusGatewayTimeout, response.CodeRunTimedOut
			}
			response.ErrorWithData(c, status, code, err.Error(), result)
			return
		}
		writeError(c, err)
		return
	}
	response.OK(c, result)
}

func (h *ChatHandler) History(c *gin.Context) {
	sessionID, ok := sessionIDFromContext(c)
	if !ok {
		return
	}

	turns, err := h.chatService.History(c.Request.Context(), sessionID)
	if err != nil {
		writeError(c, err)
		return
	}
	stats, err := h.chatService.Stats(c.Request.Context(), sessionID)
	if err != nil {
		writeError(c, err)
		return
	}
	response.OK(c, historyResponse{Turns: turns, Stats: stats})
}

func (h *ChatHandler) Reset(c *gin.Context) {
	sessionID, ok := sessionIDFromContext(c)
	if !ok {
		return
	}

	session, err := h.chatService.ResetConversation(c.Request.Context(), sessionID)
	if err != nil {
		writeError(c, err)
		return
	}
	response.OK(c, session)
}

func (h *ChatHandler) Transcript(c *gin.Context) {
	sessionID, ok := sessionIDFromContext(c)
	if !ok {
		return
	}

	transcript, err := h.chatService.Transcript(c.Request.Context(), sessionID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+transcript.FileName+`"`)
	c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(transcript.Content))
}
