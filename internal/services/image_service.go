package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/example/coimbatore-discount/internal/domain"
	"github.com/example/coimbatore-discount/internal/models"
	"github.com/example/coimbatore-discount/internal/storage"
)

// MaxImageSize is the largest accepted upload.
const MaxImageSize = 15 * 1024 * 1024

// ImageService stores uploaded images. Metadata always goes to the image
// store; bytes go to the blob store when one is configured and inline
// otherwise.
type ImageService struct {
	images  ImageStore
	blobs   storage.BlobStore
	logger  *slog.Logger
	baseURL string
	now     func() time.Time
}

// NewImageService creates a new ImageService. blobs may be nil.
func NewImageService(images ImageStore, blobs storage.BlobStore, logger *slog.Logger, publicBaseURL string) *ImageService {
	return &ImageService{
		images:  images,
		blobs:   blobs,
		logger:  logger,
		baseURL: strings.TrimRight(publicBaseURL, "/"),
		now:     time.Now,
	}
}

// ImageInfo is the public view of an image.
type ImageInfo struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	URL        string    `json:"url"`
	UploadDate time.Time `json:"uploadDate"`
}

// Upload stores data and returns the new image's public info.
func (s *ImageService) Upload(ctx context.Context, name, contentType string, data []byte) (*ImageInfo, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: no file uploaded", domain.ErrValidation)
	}
	if len(data) > MaxImageSize {
		return nil, fmt.Errorf("%w: file exceeds %d bytes", domain.ErrValidation, MaxImageSize)
	}
	if !strings.HasPrefix(contentType, "image/") {
		return nil, fmt.Errorf("%w: unsupported content type %q", domain.ErrValidation, contentType)
	}

	now := s.now().UTC()
	image := &models.Image{
		Name:        name,
		ContentType: contentType,
		Size:        int64(len(data)),
		UploadDate:  now,
	}

	if s.blobs != nil {
		image.StorageKey = storage.NewImageKey(now)
		if err := s.blobs.Put(ctx, image.StorageKey, contentType, data); err != nil {
			return nil, err
		}
	} else {
		image.Data = data
	}

	if err := s.images.Create(ctx, image); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "image uploaded", "image_id", image.ID, "size", image.Size)
	info := s.info(image)
	return &info, nil
}

// Get returns the image with its bytes loaded.
func (s *ImageService) Get(ctx context.Context, id uuid.UUID) (*models.Image, error) {
	image, err := s.images.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if image.StorageKey != "" {
		if s.blobs == nil {
			return nil, fmt.Errorf("image %s is in blob storage but none is configured", id)
		}
		image.Data, err = s.blobs.Get(ctx, image.StorageKey)
		if err != nil {
			return nil, err
		}
	}
	return image, nil
}

// List returns metadata for every image, newest first.
func (s *ImageService) List(ctx context.Context) ([]ImageInfo, error) {
	images, err := s.images.List(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]ImageInfo, 0, len(images))
	for i := range images {
		out = append(out, s.info(&images[i]))
	}
	return out, nil
}

func (s *ImageService) info(image *models.Image) ImageInfo {
	return ImageInfo{
		ID:         image.ID,
		Name:       image.Name,
		URL:        fmt.Sprintf("%s/api/image/%s", s.baseURL, image.ID),
		UploadDate: image.UploadDate,
	}
}
