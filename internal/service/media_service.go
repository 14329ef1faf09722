package service

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"go.uber.org/zap"

	"studenthub/internal/model"
	"studenthub/internal/repository"
)

// ObjectStore is the bucketed file storage behind photos and avatars.
type ObjectStore interface {
	Upload(ctx context.Context, bucket, filename, owner string, src io.Reader) (string, error)
	Download(ctx context.Context, bucket, fileID string) ([]byte, string, error)
	List(ctx context.Context, bucket, owner string) ([]model.StoredFile, error)
	Remove(ctx context.Context, bucket, fileID string) error
	PublicURL(bucket, fileID string) string
}

var imageExts = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".webp": true, ".gif": true}

// MediaService uploads listing photos and avatars. A nil store makes every
// operation fail with model.ErrUnavailable.
type MediaService struct {
	store         ObjectStore
	listings      *repository.ListingRepository
	profiles      *repository.ProfileRepository
	listingBucket string
	avatarBucket  string
	logger        *zap.Logger
}

func NewMediaService(
	store ObjectStore,
	lr *repository.ListingRepository,
	pr *repository.ProfileRepository,
	listingBucket, avatarBucket string,
	logger *zap.Logger,
) *MediaService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MediaService{
		store:         store,
		listings:      lr,
		profiles:      pr,
		listingBucket: listingBucket,
		avatarBucket:  avatarBucket,
		logger:        logger.Named("media"),
	}
}

func (s *MediaService) available() error {
	if s.store == nil {
		return fmt.Errorf("%w: file storage is not configured", model.ErrUnavailable)
	}
	return nil
}

func checkImageName(filename string) error {
	if !imageExts[strings.ToLower(path.Ext(filename))] {
		return model.Invalid("file", "must be a jpg, png, webp or gif image")
	}
	return nil
}

// UploadListingPhoto stores an image for a listing and points its image_url at it.
func (s *MediaService) UploadListingPhoto(ctx context.Context, actor *model.Actor, kind model.Kind, id, filename string, src io.Reader) (string, error) {
	if actor == nil {
		return "", fmt.Errorf("MediaService.UploadListingPhoto: %w", model.ErrAuthRequired)
	}
	if !actor.HasRole(model.RoleAdmin) {
		return "", fmt.Errorf("MediaService.UploadListingPhoto: %w", model.ErrPermission)
	}
	if err := s.available(); err != nil {
		return "", fmt.Errorf("MediaService.UploadListingPhoto: %w", err)
	}
	if err := checkImageName(filename); err != nil {
		return "", fmt.Errorf("MediaService.UploadListingPhoto: %w", err)
	}
	exists, err := s.listings.Exists(ctx, kind, id)
	if err != nil {
		return "", fmt.Errorf("MediaService.UploadListingPhoto: %w", err)
	}
	if !exists {
		return "", fmt.Errorf("MediaService.UploadListingPhoto: %s %s: %w", kind, id, model.ErrNotFound)
	}

	name := fmt.Sprintf("%s_%s_%s", kind, id, path.Base(filename))
	fileID, err := s.store.Upload(ctx, s.listingBucket, name, actor.ID, src)
	if err != nil {
		return "", fmt.Errorf("MediaService.UploadListingPhoto: upload: %w", err)
	}
	url := s.store.PublicURL(s.listingBucket, fileID)
	if err := s.listings.UpdateImageURL(ctx, kind, id, url); err != nil {
		if rmErr := s.store.Remove(ctx, s.listingBucket, fileID); rmErr != nil {
			s.logger.Warn("orphaned listing photo", zap.String("file_id", fileID), zap.Error(rmErr))
		}
		return "", fmt.Errorf("MediaService.UploadListingPhoto: %w", err)
	}
	return url, nil
}

// UploadAvatar replaces the actor's avatar. The previous avatar file is kept.
func (s *MediaService) UploadAvatar(ctx context.Context, actor *model.Actor, filename string, src io.Reader) (*model.Profile, error) {
	if actor == nil {
		return nil, fmt.Errorf("MediaService.UploadAvatar: %w", model.ErrAuthRequired)
	}
	if err := s.available(); err != nil {
		return nil, fmt.Errorf("MediaService.UploadAvatar: %w", err)
	}
	if err := checkImageName(filename); err != nil {
		return nil, fmt.Errorf("MediaService.UploadAvatar: %w", err)
	}
	p, err := s.profiles.GetByID(ctx, actor.ID)
	if err != nil {
		return nil, fmt.Errorf("MediaService.UploadAvatar: %w", err)
	}

	fileID, err := s.store.Upload(ctx, s.avatarBucket, actor.ID+"_"+path.Base(filename), actor.ID, src)
	if err != nil {
		return nil, fmt.Errorf("MediaService.UploadAvatar: upload: %w", err)
	}
	p.AvatarURL = s.store.PublicURL(s.avatarBucket, fileID)
	if err := s.profiles.Update(ctx, p); err != nil {
		return nil, fmt.Errorf("MediaService.UploadAvatar: %w", err)
	}
	return p, nil
}

// Open returns a stored file's bytes and original name.
func (s *MediaService) Open(ctx context.Context, bucket, fileID string) ([]byte, string, error) {
	if err := s.available(); err != nil {
		return nil, "", fmt.Errorf("MediaService.Open: %w", err)
	}
	data, name, err := s.store.Download(ctx, bucket, fileID)
	if err != nil {
		return nil, "", fmt.Errorf("MediaService.Open: %w", err)
	}
	return data, name, nil
}

// Files lists what owner has uploaded to bucket.
func (s *MediaService) Files(ctx context.Context, actor *model.Actor, bucket string) ([]model.StoredFile, error) {
	if actor == nil {
		return nil, fmt.Errorf("MediaService.Files: %w", model.ErrAuthRequired)
	}
	if err := s.available(); err != nil {
		return nil, fmt.Errorf("MediaService.Files: %w", err)
	}
	files, err := s.store.List(ctx, bucket, actor.ID)
	if err != nil {
		return nil, fmt.Errorf("MediaService.Files: %w", err)
	}
	return files, nil
}
