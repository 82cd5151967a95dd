package handler

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"docassist/internal/app"
	"docassist/internal/transport/http/response"
)

type DocumentHandler struct {
	documentService *app.DocumentService
	ingestService   *app.IngestService
}

// NewDocumentHandler takes a nil ingestService when uploads are synchronous only.
func NewDocumentHandler(documentService *app.DocumentService, ingestService *app.IngestService) *DocumentHandler {
	return &DocumentHandler{documentService: documentService, ingestService: ingestService}
}

func (h *DocumentHandler) List(c *gin.Context) {
	state := h.documentService.State()
	response.OK(c, gin.H{
		"documents":       state.Documents,
		"vector_store_id": state.VectorStoreID,
		"assistant_id":    state.AssistantID,
		"created_at":      state.CreatedAt,
	})
}

// Upload accepts multipart "files". With an ingest queue configured the
// upload is queued unless ?async=false; otherwise it runs inline.
func (h *DocumentHandler) Upload(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid multipart form")
		return
	}
	headers := form.File["files"]
	if len(headers) == 0 {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "no files selected")
		return
	}

	files := make([]app.UploadFile, 0, len(headers))
	for _, header := range headers {
		f, err := header.Open()
		if err != nil {
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "failed to read file")
			return
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "failed to read file")
			return
		}
		files = append(files, app.UploadFile{Name: header.Filename, Data: data})
	}

	async := h.ingestService != nil
	if raw := c.Query("async"); raw != "" && async {
		if v, err := strconv.ParseBool(raw); err == nil {
			async = v
		}
	}
	if async {
		job, err := h.ingestService.Submit(c.Request.Context(), files)
		if err != nil {
			writeError(c, err)
			return
		}
		response.Accepted(c, job)
		return
	}

	result, err := h.documentService.UploadAndAttach(c.Request.Context(), files)
	if err != nil {
		if errors.Is(err, app.ErrNoFilesUploaded) {
			response.ErrorWithData(c, http.StatusUnprocessableEntity, response.CodeNoFilesUploaded, err.Error(), result)
			return
		}
		writeError(c, err)
		return
	}
	response.OK(c, result)
}

func (h *DocumentHandler) Job(c *gin.Context) {
	if h.ingestService == nil {
		writeError(c, app.ErrJobNotFound)
		return
	}
	job, err := h.ingestService.Job(c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	response.OK(c, job)
}

func (h *DocumentHandler) Delete(c *gin.Context) {
	fileID := c.Param("file_id")
	if err := h.documentService.RemoveDocument(c.Request.Context(), fileID); err != nil {
		writeError(c, err)
		return
	}
	response.OK(c, gin.H{"file_id": fileID})
}

func (h *DocumentHandler) ResetAll(c *gin.Context) {
	purge, _ := strconv.ParseBool(c.DefaultQuery("purge_remote", "false"))
	result, err := h.documentService.ResetAll(c.Request.Context(), purge)
	if err != nil {
		writeError(c, err)
		return
	}
	response.OK(c, result)
}
