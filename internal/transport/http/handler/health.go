package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"docassist/internal/bootstrap"
	"docassist/internal/platform/rabbitmq"
)

type HealthHandler struct {
	app *bootstrap.App
}

type dependencyStatus struct {
	OK      bool   `json:"ok"`
	Skipped bool   `json:"skipped,omitempty"`
	Message string `json:"message,omitempty"`
}

func NewHealthHandler(app *bootstrap.App) *HealthHandler {
	return &HealthHandler{app: app}
}

func (h *HealthHandler) Check(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	remoteStatus := h.checkRemote(ctx)
	storeStatus := h.checkStore()
	sessionStatus := h.checkSessions(ctx)
	rmqStatus := h.checkRabbitMQ()

	allOK := remoteStatus.OK && storeStatus.OK && sessionStatus.OK && rmqStatus.OK
	statusCode := http.StatusOK
	if !allOK {
		statusCode = http.StatusServiceUnavailable
	}

	c.JSON(statusCode, gin.H{
		"app":        h.app.Config.App.Name,
		"env":        h.app.Config.App.Env,
		"uptime_sec": int(time.Since(h.app.StartedAt).Seconds()),
		"dependencies": gin.H{
			"openai":         remoteStatus,
			"document_store": storeStatus,
			"session_store":  sessionStatus,
			"rabbitmq":       rmqStatus,
		},
	})
}

func (h *HealthHandler) checkRemote(ctx context.Context) dependencyStatus {
	if h.app.AI == nil {
		return dependencyStatus{OK: true, Skipped: true}
	}
	if _, err := h.app.AI.ListModels(ctx); err != nil {
		return dependencyStatus{OK: false, Message: err.Error()}
	}
	return dependencyStatus{OK: true}
}

func (h *HealthHandler) checkStore() dependencyStatus {
	_, status, err := h.app.Store.Load()
	if err != nil {
		return dependencyStatus{OK: false, Message: err.Error()}
	}
	return dependencyStatus{OK: true, Message: status.String()}
}

type pinger interface {
	Ping(ctx context.Context) error
}

func (h *HealthHandler) checkSessions(ctx context.Context) dependencyStatus {
	backend := "memory"
	if h.app.Redis != nil {
		backend = "redis"
	}
	p, ok := h.app.Sessions.(pinger)
	if !ok {
		return dependencyStatus{OK: true, Skipped: true, Message: backend}
	}
	if err := p.Ping(ctx); err != nil {
		return dependencyStatus{OK: false, Message: backend + ": " + err.Error()}
	}
	return dependencyStatus{OK: true, Message: backend}
}

func (h *HealthHandler) checkRabbitMQ() dependencyStatus {
	if h.app.MQConn == nil {
		return dependencyStatus{OK: true, Skipped: true}
	}
	if err := rabbitmq.Ping(h.app.MQConn); err != nil {
		return dependencyStatus{OK: false, Message: err.Error()}
	}
	return dependencyStatus{OK: true}
}
