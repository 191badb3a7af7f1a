package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/braincreator/flow-masters/internal/agency/entity"
	"github.com/braincreator/flow-masters/internal/agency/repository"
	"github.com/braincreator/flow-masters/internal/shared/storage"
)

const maxMediaSize = 50 << 20

// MediaService uploads to object storage and signs download links
type MediaService struct {
	repo      *repository.MediaRepository
	store     storage.ObjectStore
	urlExpiry time.Duration
}

func NewMediaService(repo *repository.MediaRepository, store storage.ObjectStore, urlExpiry time.Duration) *MediaService {
	if urlExpiry <= 0 {
		urlExpiry = time.Hour
	}
	return &MediaService{repo: repo, store: store, urlExpiry: urlExpiry}
}

// UploadInput one multipart file
type UploadInput struct {
	FileName string
	MimeType string
	Size     int64
	Alt      string
	Body     io.Reader
}

// Upload stores the file under media/{id}/{name}. Staff only.
func (s *MediaService) Upload(ctx context.Context, in UploadInput, actor Actor) (*entity.Media, error) {
	if !actor.IsStaff() {
		return nil, ErrForbidden
	}
	name := cleanFileName(in.FileName)
	if name == "" {
		return nil, validationf("file name is required")
	}
	if in.Size <= 0 {
		return nil, validationf("file is empty")
	}
	if in.Size > maxMediaSize {
		return nil, validationf("file exceeds %d MB", maxMediaSize>>20)
	}
	mime := in.MimeType
	if mime == "" {
		mime = "application/octet-stream"
	}

	m := &entity.Media{
		ID:         newID(),
		FileName:   name,
		MimeType:   mime,
		FileSize:   in.Size,
		Alt:        in.Alt,
		UploadedBy: actor.UserID,
	}
	m.ObjectKey = fmt.Sprintf("media/%s/%s", m.ID, name)
	if err := s.store.Put(ctx, m.ObjectKey, in.Body, in.Size, mime); err != nil {
		return nil, fmt.Errorf("upload media: %w", err)
	}
	if err := s.repo.Create(ctx, m); err != nil {
		_ = s.store.Remove(ctx, m.ObjectKey)
		return nil, fmt.Errorf("save media: %w", err)
	}
	return s.withURL(ctx, m)
}

// Get returns metadata with a presigned link. Only the uploader and
// managers see a file; anyone else gets not found.
func (s *MediaService) Get(ctx context.Context, id string, actor Actor) (*entity.Media, error) {
	m, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.SeesAllProjects() && m.UploadedBy != actor.UserID {
		return nil, ErrNotFound
	}
	return s.withURL(ctx, m)
}

func (s *MediaService) withURL(ctx context.Context, m *entity.Media) (*entity.Media, error) {
	url, err := s.store.PresignedURL(ctx, m.ObjectKey, s.urlExpiry, m.FileName)
	if errors.Is(err, storage.ErrNotConfigured) {
		return m, nil
	}
	if err != nil {
		return nil, err
	}
	m.URL = url
	return m, nil
}

func cleanFileName(name string) string {
	name = path.Base(strings.ReplaceAll(strings.TrimSpace(name), `\`, "/"))
	if name == "." || name == "/" {
		return ""
	}
	return strings.ReplaceAll(name, " ", "_")
}
