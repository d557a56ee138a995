// Training HTTP handlers.
//
// This file exposes REST endpoints for training resources:
//   - POST   /trainings                      (create)
//   - GET    /trainings/{id}                 (fetch)
//   - POST   /trainings/{id}/documents      (upload source document, multipart)
//   - GET    /trainings/{id}/documents      (list uploaded documents)
//
// Handlers are transport-thin: they validate input, call application
// services, and translate results into HTTP responses.
package handlers

import (
	"context"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/adaptive-elearn/go-training-backend/internal/domain"
)

//
// Service contracts (context-aware)
//

// TrainingService defines training lifecycle operations consumed by HTTP
// handlers. Implementations must be safe for concurrent use and honor the
// provided context.
type TrainingService interface {
	// Create registers a new training for ownerID.
	Create(ctx context.Context, ownerID, name string) (*domain.Training, error)
	// Get fetches a training by id.
	Get(ctx context.Context, id string) (*domain.Training, error)
	// UploadDocument stores a source document against a training.
	UploadDocument(ctx context.Context, trainingID, fileName, mimeType string, data []byte) (*domain.SourceDocument, error)
	// Documents lists a training's uploaded documents, oldest first.
	Documents(ctx context.Context, trainingID string) ([]domain.SourceDocument, error)
}

// learnerID extracts the calling learner's id. There is no account system;
// the id comes from the X-Learner-ID header (tests rely on this) with a
// demo fallback.
func learnerID(c *gin.Context) string {
	if c != nil && c.Request != nil {
		if h := strings.TrimSpace(c.GetHeader("X-Learner-ID")); h != "" {
			return h
		}
	}
	return "demo-learner"
}

// CreateTrainingRequest is the JSON payload for creating a training.
type CreateTrainingRequest struct {
	Name string `json:"name" binding:"required,min=1,max=255"`
}

// CreateTraining handles POST /trainings.
func (h *Handlers) CreateTraining(c *gin.Context) {
	var req CreateTrainingRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Name) == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "name required (1-255 chars)")
		return
	}

	t, err := h.trainings.Create(c.Request.Context(), learnerID(c), req.Name)
	if err != nil {
		failFromService(c, err)
		return
	}
	ok(c, http.StatusCreated, t)
}

// GetTraining handles GET /trainings/:id.
func (h *Handlers) GetTraining(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "training id must be a UUID")
		return
	}
	t, err := h.trainings.Get(c.Request.Context(), id)
	if err != nil {
		failFromService(c, err)
		return
	}
	ok(c, http.StatusOK, t)
}

// UploadDocument handles POST /trainings/:id/documents. The document is the
// multipart field "file"; PDF and PowerPoint types are accepted. Uploading
// identical bytes again returns the existing record with 200 instead of 201.
func (h *Handlers) UploadDocument(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "training id must be a UUID")
		return
	}

	fh, err := c.FormFile("file")
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, `multipart field "file" is required`)
		return
	}
	f, err := fh.Open()
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "could not read uploaded file")
		return
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "could not read uploaded file")
		return
	}

	doc, err := h.trainings.UploadDocument(c.Request.Context(), id, fh.Filename, documentMimeType(fh.Filename, fh.Header.Get("Content-Type")), data)
	if err != nil {
		failFromService(c, err)
		return
	}
	ok(c, http.StatusCreated, doc)
}

// ListDocuments handles GET /trainings/:id/documents.
func (h *Handlers) ListDocuments(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "training id must be a UUID")
		return
	}
	docs, err := h.trainings.Documents(c.Request.Context(), id)
	if err != nil {
		failFromService(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"documents": docs})
}

// documentMimeType resolves the document type from the multipart part's
// Content-Type header, falling back to the file extension. Browsers are
// inconsistent about PowerPoint types, so the extension wins when the
// header is generic.
func documentMimeType(fileName, header string) string {
	mt, _, err := mime.ParseMediaType(header)
	if err == nil && mt != "" && mt != "application/octet-stream" {
		return mt
	}
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".pdf":
		return "application/pdf"
	case ".pptx":
		return "application/vnd.openxmlformats-officedocument.presentationml.presentation"
	case ".ppt":
		return "application/vnd.ms-powerpoint"
	}
	return header
}
