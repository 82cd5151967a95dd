package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"docassist/internal/ai"
	"docassist/internal/app"
	"docassist/internal/transport/http/middleware"
	"docassist/internal/transport/http/response"
)

// writeError maps service errors onto HTTP status and envelope codes.
func writeError(c *gin.Context, err error) {
	var (
		runErr   *app.RunFailedError
		batchErr *app.BatchFailedError
		apiErr   *ai.APIError
	)
	switch {
	case errors.Is(err, app.ErrMessageEmpty):
		response.Error(c, http.StatusBadRequest, response.CodeMessageEmpty, err.Error())
	case errors.Is(err, app.ErrInvalidInput):
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
	case errors.Is(err, app.ErrInvalidAccessKey):
		response.Error(c, http.StatusUnauthorized, response.CodeInvalidCredentials, err.Error())
	case errors.Is(err, app.ErrSessionNotFound):
		response.Error(c, http.StatusNotFound, response.CodeSessionNotFound, err.Error())
	case errors.Is(err, app.ErrDocumentNotFound):
		response.Error(c, http.StatusNotFound, response.CodeDocumentNotFound, err.Error())
	case errors.Is(err, app.ErrJobNotFound):
		response.Error(c, http.StatusNotFound, response.CodeJobNotFound, err.Error())
	case errors.Is(err, app.ErrRunTimedOut):
		response.Error(c, http.StatusGatewayTimeout, response.CodeRunTimedOut, err.Error())
	case errors.Is(err, app.ErrVectorStoreUnavailable):
		response.Error(c, http.StatusServiceUnavailable, response.CodeVectorStore, err.Error())
	case errors.As(err, &runErr):
		response.Error(c, http.StatusBadGateway, response.CodeRunFailed, err.Error())
	case errors.As(err, &batchErr):
		response.Error(c, http.StatusBadGateway, response.CodeBatchFailed, err.Error())
	case errors.As(err, &apiErr):
		response.Error(c, http.StatusBadGateway, response.CodeUpstream, err.Error())
	default:
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, err.Error())
	}
}

func sessionIDFromContext(c *gin.Context) (string, bool) {
	id, ok := middleware.SessionID(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
	}
	return id, ok
}
