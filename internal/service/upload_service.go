package service

import (
	"context"
	"strings"

	"imaginify/internal/apperror"
	"imaginify/internal/media"
	"imaginify/internal/storage"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// UploadStager holds files between the browser upload and the hand-off to
// the image provider.
type UploadStager interface {
	PresignPut(ctx context.Context, key, contentType string) (string, error)
	PresignGet(ctx context.Context, key string) (string, error)
	Exists(ctx context.Context, key string) (bool, error)
	Delete(ctx context.Context, key string) error
}

// UploadTicket tells the client where to PUT its file.
type UploadTicket struct {
	UploadID  string `json:"upload_id"`
	UploadURL string `json:"upload_url"`
}

type UploadService interface {
	InitiateUpload(ctx context.Context, clerkID, filename, contentType string) (*UploadTicket, error)
	CompleteUpload(ctx context.Context, clerkID, uploadID string) (*media.Asset, error)
}

type uploadService struct {
	stager   UploadStager
	provider ImageProvider
	logger   zerolog.Logger
}

func NewUploadService(stager UploadStager, provider ImageProvider, logger zerolog.Logger) UploadService {
	return &uploadService{
		stager:   stager,
		provider: provider,
		logger:   logger.With().Str("service", "UploadService").Logger(),
	}
}

func (s *uploadService) InitiateUpload(ctx context.Context, clerkID, filename, contentType string) (*UploadTicket, error) {
	if !strings.HasPrefix(contentType, "image/") {
		return nil, apperror.Validation("only image uploads are supported")
	}
	uploadID := uuid.NewString()
	url, err := s.stager.PresignPut(ctx, storage.UploadKey(clerkID, uploadID), contentType)
	if err != nil {
		s.logger.Error().Err(err).Str("filename", filename).Msg("Failed to generate presigned PUT URL")
		return nil, apperror.Wrap(err, "failed to prepare upload")
	}
	s.logger.Debug().Str("upload_id", uploadID).Str("filename", filename).Msg("Upload initiated")
	return &UploadTicket{UploadID: uploadID, UploadURL: url}, nil
}

// CompleteUpload hands a staged file to the image provider and removes it
// from staging.
func (s *uploadService) CompleteUpload(ctx context.Context, clerkID, uploadID string) (*media.Asset, error) {
	if _, err := uuid.Parse(uploadID); err != nil {
		return nil, apperror.Validation("invalid upload id")
	}
	key := storage.UploadKey(clerkID, uploadID)

	// 1. The client must have finished its PUT
	ok, err := s.stager.Exists(ctx, key)
	if err != nil {
		s.logger.Error().Err(err).Str("key", key).Msg("Failed to check staged upload")
		return nil, apperror.Wrap(err, "failed to check upload")
	}
	if !ok {
		return nil, apperror.NotFound("upload not found")
	}

	// 2. Let the provider fetch it
	src, err := s.stager.PresignGet(ctx, key)
	if err != nil {
		s.logger.Error().Err(err).Str("key", key).Msg("Failed to generate presigned GET URL")
		return nil, apperror.Wrap(err, "failed to read upload")
	}
	asset, err := s.provider.Upload(ctx, src)
	if err != nil {
		s.logger.Error().Err(err).Str("key", key).Msg("Provider upload failed")
		return nil, apperror.Wrap(err, "image upload failed")
	}

	// 3. Staging copy is no longer needed
	if err := s.stager.Delete(ctx, key); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("Failed to delete staged upload")
	}
	return &asset, nil
}
