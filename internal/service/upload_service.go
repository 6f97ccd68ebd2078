package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"kernel-workspace-be/internal/dto"
	"kernel-workspace-be/internal/pkg/logger"
	"kernel-workspace-be/pkg/events"
	"kernel-workspace-be/pkg/loader"
	"kernel-workspace-be/pkg/utils"
	"kernel-workspace-be/pkg/vectorstore"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

type UploadConfig struct {
	DataDir      string
	ChunkSize    int
	ChunkOverlap int
}

type IUploadService interface {
	Upload(ctx context.Context, filename string, content io.Reader) (*dto.UploadResponse, error)
}

type uploadService struct {
	session   *Session
	loader    loader.Loader
	index     vectorstore.Store
	cfg       UploadConfig
	publisher events.Publisher
	logger    logger.ILogger
}

func NewUploadService(
	session *Session,
	docLoader loader.Loader,
	index vectorstore.Store,
	cfg UploadConfig,
	publisher events.Publisher,
	log logger.ILogger,
) IUploadService {
	if cfg.DataDir == "" {
		cfg.DataDir = "data/uploads"
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = 1000
	}
	if cfg.ChunkOverlap < 0 || cfg.ChunkOverlap >= cfg.ChunkSize {
		cfg.ChunkOverlap = cfg.ChunkSize / 10
	}
	return &uploadService{
		session:   session,
		loader:    docLoader,
		index:     index,
		cfg:       cfg,
		publisher: publisher,
		logger:    log,
	}
}

// Upload stores the raw file under DataDir, indexes its chunks and marks it
// active in the workspace. The workspace only changes once indexing has
// succeeded, and a failed upload leaves any earlier copy of the file intact.
func (s *uploadService) Upload(ctx context.Context, filename string, content io.Reader) (*dto.UploadResponse, error) {
	ctx, span := tracer.Start(ctx, "kernel.upload")
	defer span.End()

	name := filepath.Base(filepath.Clean("/" + filename))
	if name == "/" || name == "." || strings.TrimSpace(name) == "" {
		return nil, &InvalidInputError{Message: "a file name is required"}
	}
	span.SetAttributes(attribute.String("upload.filename", name))

	fail := func(err error) (*dto.UploadResponse, error) {
		span.RecordError(err)
		span.SetStatus(codes.Error, "upload failed")
		s.logger.Error("Upload", "Failed to index upload", map[string]interface{}{
			"filename": name,
			"error":    err.Error(),
		})
		return nil, &IndexingError{Source: name, Err: err}
	}

	tmpPath, err := s.saveTemp(name, content)
	if err != nil {
		return fail(err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpPath)
		}
	}()

	text, err := s.loader.Load(tmpPath)
	if err != nil {
		return fail(err)
	}

	chunks := utils.SplitText(text, s.cfg.ChunkSize, s.cfg.ChunkOverlap)
	if len(chunks) == 0 {
		return fail(loader.ErrEmptyDocument)
	}

	docs := make([]vectorstore.Document, len(chunks))
	for i, chunk := range chunks {
		docs[i] = vectorstore.Document{
			Content: chunk,
			Metadata: map[string]string{
				vectorstore.MetadataSource: name,
				"chunk":                    strconv.Itoa(i),
			},
		}
	}
	if err := s.index.Add(ctx, docs); err != nil {
		return fail(err)
	}

	if err := os.Rename(tmpPath, filepath.Join(s.cfg.DataDir, name)); err != nil {
		return fail(fmt.Errorf("store upload: %w", err))
	}
	committed = true

	s.session.Workspace.Upsert(name, text)

	s.logger.Info("Upload", "Document indexed", map[string]interface{}{
		"filename": name,
		"chunks":   len(chunks),
	})
	emit(ctx, s.publisher, s.logger, events.DocumentIndexed, map[string]interface{}{
		"filename": name,
		"chunks":   len(chunks),
	})

	return &dto.UploadResponse{
		Status:   "success",
		Filename: name,
		Chunks:   len(chunks),
	}, nil
}

func (s *uploadService) saveTemp(name string, content io.Reader) (string, error) {
	if content == nil {
		return "", errors.New("upload has no content")
	}
	if err := os.MkdirAll(s.cfg.DataDir, 0755); err != nil {
		return "", fmt.Errorf("create data dir: %w", err)
	}

	f, err := os.CreateTemp(s.cfg.DataDir, ".upload-*"+filepath.Ext(name))
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	if _, err := io.Copy(f, content); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("write upload: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("write upload: %w", err)
	}
	return f.Name(), nil
}
