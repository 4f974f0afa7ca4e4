package service

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/boddenberg/spendlog/internal/domain"
	"github.com/boddenberg/spendlog/internal/infra/observability"
	"github.com/boddenberg/spendlog/internal/infra/resilience"
	"github.com/boddenberg/spendlog/internal/port"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var fileTracer = otel.Tracer("service/files")

// UploadPrefix is the public path uploaded files are served under.
const UploadPrefix = "/uploads/"

var allowedExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".pdf":  true,
}

// FileService stores receipt attachments under random names.
type FileService struct {
	files    port.FileStore
	bulkhead *resilience.Bulkhead
	metrics  *observability.Metrics
	logger   *zap.Logger
}

// NewFileService creates a file service allowing maxConcurrent parallel writes.
func NewFileService(files port.FileStore, maxConcurrent int, metrics *observability.Metrics, logger *zap.Logger) *FileService {
	return &FileService{
		files:    files,
		bulkhead: resilience.NewBulkhead(maxConcurrent),
		metrics:  metrics,
		logger:   logger,
	}
}

// Upload stores r under a fresh name that keeps the extension of filename.
func (s *FileService) Upload(ctx context.Context, filename string, r io.Reader) (*domain.UploadResult, error) {
	ctx, span := fileTracer.Start(ctx, "FileService.Upload")
	defer span.End()

	ext := strings.ToLower(filepath.Ext(filename))
	if !allowedExtensions[ext] {
		return nil, &domain.ErrValidation{Field: "file", Message: "Invalid file type. Only JPG, PNG, and PDF are allowed."}
	}
	name := uuid.NewString() + ext
	span.SetAttributes(attribute.String("file.name", name))

	if err := s.bulkhead.Acquire(ctx); err != nil {
		return nil, &domain.ErrTimeout{Operation: "upload"}
	}
	defer s.bulkhead.Release()

	n, err := s.files.Save(ctx, name, r)
	if err != nil {
		return nil, fmt.Errorf("could not save file: %w", err)
	}

	s.metrics.AddUploadBytes(n)
	s.logger.Info("file uploaded", zap.String("file", name), zap.Int64("bytes", n))
	return &domain.UploadResult{URL: UploadPrefix + name, Filename: name, Size: n}, nil
}

// Delete removes an uploaded file by name.
func (s *FileService) Delete(ctx context.Context, filename string) error {
	ctx, span := fileTracer.Start(ctx, "FileService.Delete")
	defer span.End()
	span.SetAttributes(attribute.String("file.name", filename))

	ok, err := s.files.Delete(ctx, filename)
	if err != nil {
		return err
	}
	if !ok {
		return &domain.ErrNotFound{Resource: "File"}
	}
	s.logger.Info("file deleted", zap.String("file", filename))
	return nil
}
