package http

import (
	"github.com/gin-gonic/gin"

	"docassist/internal/bootstrap"
	"docassist/internal/transport/http/handler"
	"docassist/internal/transport/http/middleware"
)

func NewRouter(app *bootstrap.App) *gin.Engine {
	gin.SetMode(app.Config.App.GinMode)
	router := gin.New()
	if gin.Mode() == gin.DebugMode {
		router.Use(gin.Logger())
	}
	router.Use(gin.Recovery())
	router.MaxMultipartMemory = app.Config.MaxFileBytes()

	healthHandler := handler.NewHealthHandler(app)
	router.GET("/healthz", healthHandler.Check)
	router.GET("/metrics", gin.WrapH(app.Metrics.Handler()))

	sessionHandler := handler.NewSessionHandler(app.Auth)
	chatHandler := handler.NewChatHandler(app.Chat)
	documentHandler := handler.NewDocumentHandler(app.Documents, app.Ingest)
	debugHandler := handler.NewDebugHandler(app.Chat, app.Config.App.Debug)

	v1 := router.Group("/api/v1")
	v1.POST("/sessions", sessionHandler.Open)

	authed := v1.Group("")
	authed.Use(middleware.AuthJWT(app.Config.Auth.JWTSecret))

	chatGroup := authed.Group("/chat")
	chatGroup.GET("/suggestions", chatHandler.Suggestions)
	chatGroup.POST("/messages", chatHandler.SendMessage)
	chatGroup.GET("/history", chatHandler.History)
	chatGroup.POST("/reset", chatHandler.Reset)
	chatGroup.GET("/transcript", chatHandler.Transcript)

	docGroup := authed.Group("/documents")
	docGroup.GET("", documentHandler.List)
	docGroup.POST("", documentHandler.Upload)
	docGroup.DELETE("", documentHandler.ResetAll)
	docGroup.GET("/jobs/:id", documentHandler.Job)
	docGroup.DELETE("/:file_id", documentHandler.Delete)

	debugGroup := authed.Group("/debug")
	debugGroup.GET("", debugHandler.Show)
	debugGroup.POST("/toggle", debugHandler.Toggle)

	return router
}
