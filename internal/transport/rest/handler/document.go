package handler

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"accreditation/internal/service"
	"accreditation/internal/upload"
)

// multipart overhead allowed on top of the document itself
const formOverhead = 1 << 20

// DocumentHandler handles supporting document uploads
type DocumentHandler struct {
	documents *service.DocumentService
	logger    *zap.Logger
}

// NewDocumentHandler creates a new document handler
func NewDocumentHandler(documents *service.DocumentService, logger *zap.Logger) *DocumentHandler {
	return &DocumentHandler{
		documents: documents,
		logger:    logger,
	}
}

// Upload handles POST /v1/wizards/{id}/documents/{stepId}/{questionId}
func (h *DocumentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	limit := h.documents.MaxBytes()
	r.Body = http.MaxBytesReader(w, r.Body, limit+formOverhead)
	if err := r.ParseMultipartForm(formOverhead); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeServiceError(w, h.logger, upload.ErrTooLarge)
			return
		}
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "a file is required", Field: "file"})
		return
	}
	defer file.Close()

	documentID, err := h.documents.Attach(r.Context(), vars["id"], vars["stepId"], vars["questionId"], upload.File{
		Name:        header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Body:        file,
	})
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{
		"documentId": documentID,
	})
}

// Download handles GET /v1/wizards/{id}/documents/{stepId}/{questionId}
func (h *DocumentHandler) Download(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	doc, body, err := h.documents.Download(r.Context(), vars["id"], vars["stepId"], vars["questionId"])
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	defer body.Close()

	contentType := doc.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": doc.Name}))
	if doc.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(doc.Size, 10))
	}
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, body); err != nil {
		h.logger.Warn("document download interrupted", zap.String("document", doc.ID), zap.Error(err))
	}
}
