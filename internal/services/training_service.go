package services

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/adaptive-elearn/go-training-backend/internal/docstore"
	"github.com/adaptive-elearn/go-training-backend/internal/domain"
	"github.com/adaptive-elearn/go-training-backend/internal/repo"
)

// TrainingService manages trainings and their uploaded source documents.
type TrainingService struct {
	DB   *gorm.DB
	Docs *docstore.Store
}

// NewTrainingService constructs a TrainingService.
func NewTrainingService(db *gorm.DB, docs *docstore.Store) *TrainingService {
	return &TrainingService{DB: db, Docs: docs}
}

// Create registers a new training owned by ownerID.
func (s *TrainingService) Create(ctx context.Context, ownerID, name string) (*domain.Training, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("training name is required")
	}
	return repo.CreateTraining(ctx, s.DB, ownerID, name)
}

// Get fetches a training by id.
func (s *TrainingService) Get(ctx context.Context, id string) (*domain.Training, error) {
	t, err := repo.GetTraining(ctx, s.DB, id)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrTrainingNotFound
	}
	return t, err
}

// UploadDocument stores an uploaded file content-addressed on disk and
// records it against the training. Re-uploading identical bytes to the
// same training is idempotent and returns the existing record; the same
// content uploaded to another training gets its own record over the
// shared blob.
func (s *TrainingService) UploadDocument(ctx context.Context, trainingID, fileName, mimeType string, data []byte) (*domain.SourceDocument, error) {
	tr := otel.Tracer("services/TrainingService")
	ctx, span := tr.Start(ctx, "UploadDocument",
		trace.WithAttributes(
			attribute.String("training.id", trainingID),
			attribute.Int("document.size", len(data)),
		),
	)
	defer span.End()

	if _, err := s.Get(ctx, trainingID); err != nil {
		return nil, err
	}
	hash, storagePath, err := s.Docs.Save(data, mimeType)
	if err != nil {
		return nil, err
	}
	doc, err := repo.CreateDocument(ctx, s.DB, trainingID, fileName, mimeType, hash, storagePath, int64(len(data)))
	if errors.Is(err, repo.ErrDuplicate) {
		return repo.GetDocumentByHash(ctx, s.DB, trainingID, hash)
	}
	return doc, err
}

// Documents lists all documents uploaded to a training, oldest first.
func (s *TrainingService) Documents(ctx context.Context, trainingID string) ([]domain.SourceDocument, error) {
	if _, err := s.Get(ctx, trainingID); err != nil {
		return nil, err
	}
	return repo.ListDocuments(ctx, s.DB, trainingID)
}
