package service

import (
	"context"
	"errors"
	"math"

	"imaginify/internal/apperror"
	"imaginify/internal/media"
	"imaginify/internal/model"
	"imaginify/internal/pubsub"
	"imaginify/internal/repository"
	"imaginify/internal/transformation"

	"github.com/rs/zerolog"
)

const (
	DefaultPageSize = 9
	MaxPageSize     = 100
)

var (
	ErrImageNotFound = apperror.NotFound("image not found")
	ErrNotImageOwner = apperror.Unauthorized("unauthorized to modify this image")
)

// ImageProvider is the hosted image service.
type ImageProvider interface {
	Upload(ctx context.Context, sourceURL string) (media.Asset, error)
	SearchPublicIDs(ctx context.Context, query string) ([]string, error)
	TransformationURL(publicID string, width, height int, cfg transformation.Config) (string, error)
	Destroy(ctx context.Context, publicID string) error
}

// EventEmitter publishes domain events on a best effort basis.
type EventEmitter interface {
	Emit(ctx context.Context, ev pubsub.Event)
}

// ListQuery selects one page of images. Page is 1-indexed; a zero Limit
// means DefaultPageSize.
type ListQuery struct {
	Page  int
	Limit int
	Query string
}

type ImageService interface {
	AddImage(ctx context.Context, clerkID string, img *model.Image) (*model.Image, error)
	UpdateImage(ctx context.Context, clerkID string, img *model.Image) (*model.Image, error)
	DeleteImage(ctx context.Context, clerkID, imageID string) error
	GetImageByID(ctx context.Context, imageID string) (*model.Image, error)
	ListImages(ctx context.Context, q ListQuery) (*model.ImagePage, error)
	ListUserImages(ctx context.Context, clerkID string, q ListQuery) (*model.ImagePage, error)
}

type imageService struct {
	imageRepo repository.ImageRepository
	userRepo  repository.UserRepository
	provider  ImageProvider
	events    EventEmitter
	logger    zerolog.Logger
}

func NewImageService(imageRepo repository.ImageRepository, userRepo repository.UserRepository, provider ImageProvider, events EventEmitter, logger zerolog.Logger) ImageService {
	if events == nil {
		events = (*pubsub.Emitter)(nil)
	}
	return &imageService{
		imageRepo: imageRepo,
		userRepo:  userRepo,
		provider:  provider,
		events:    events,
		logger:    logger.With().Str("service", "ImageService").Logger(),
	}
}

func (s *imageService) AddImage(ctx context.Context, clerkID string, img *model.Image) (*model.Image, error) {
	author, err := resolveUser(ctx, s.userRepo, clerkID)
	if err != nil {
		return nil, err
	}
	img.ID = ""
	img.AuthorID = author.ID
	if err := s.imageRepo.CreateImage(ctx, img); err != nil {
		s.logger.Error().Err(err).Str("user_id", author.ID).Msg("Failed to create image")
		return nil, apperror.Wrap(err, "failed to create image")
	}
	img.Author = model.AuthorOf(author)
	return img, nil
}

// UpdateImage replaces a stored image. Ownership is checked before any
// write.
func (s *imageService) UpdateImage(ctx context.Context, clerkID string, img *model.Image) (*model.Image, error) {
	user, existing, err := s.ownedImage(ctx, clerkID, img.ID)
	if err != nil {
		return nil, err
	}
	img.AuthorID = existing.AuthorID
	if err := s.imageRepo.UpdateImage(ctx, img); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrImageNotFound
		}
		s.logger.Error().Err(err).Str("image_id", img.ID).Msg("Failed to update image")
		return nil, apperror.Wrap(err, "failed to update image")
	}
	img.Author = model.AuthorOf(user)
	return img, nil
}

// DeleteImage removes the record and then, best effort, the provider asset.
func (s *imageService) DeleteImage(ctx context.Context, clerkID, imageID string) error {
	user, existing, err := s.ownedImage(ctx, clerkID, imageID)
	if err != nil {
		return err
	}
	if err := s.imageRepo.DeleteImage(ctx, imageID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrImageNotFound
		}
		s.logger.Error().Err(err).Str("image_id", imageID).Msg("Failed to delete image")
		return apperror.Wrap(err, "failed to delete image")
	}
	if existing.PublicID != "" && s.provider != nil {
		if err := s.provider.Destroy(ctx, existing.PublicID); err != nil {
			s.logger.Warn().Err(err).Str("public_id", existing.PublicID).Msg("Failed to delete provider asset")
		}
	}
	s.events.Emit(ctx, pubsub.Event{Type: pubsub.EventImageDeleted, ImageID: imageID, UserID: user.ID})
	return nil
}

// ownedImage loads the caller and the image and checks that the caller
// authored it.
func (s *imageService) ownedImage(ctx context.Context, clerkID, imageID string) (*model.User, *model.Image, error) {
	user, err := resolveUser(ctx, s.userRepo, clerkID)
	if err != nil {
		return nil, nil, err
	}
	existing, err := s.imageRepo.GetImageByID(ctx, imageID)
	if err != nil {
		return nil, nil, apperror.Wrap(err, "failed to load image")
	}
	if existing == nil {
		return nil, nil, ErrImageNotFound
	}
	if existing.AuthorID != user.ID {
		s.logger.Warn().Str("image_id", imageID).Str("user_id", user.ID).Msg("Image modification by non-author rejected")
		return nil, nil, ErrNotImageOwner
	}
	return user, existing, nil
}

func (s *imageService) GetImageByID(ctx context.Context, imageID string) (*model.Image, error) {
	img, err := s.imageRepo.GetImageByID(ctx, imageID)
	if err != nil {
		return nil, apperror.Wrap(err, "failed to load image")
	}
	if img == nil {
		return nil, ErrImageNotFound
	}
	if err := s.populateAuthors(ctx, []*model.Image{img}); err != nil {
		return nil, err
	}
	return img, nil
}

// ListImages returns a page of all images, most recently updated first. A
// query is resolved against the provider's search index and restricts the
// listing to the matching assets.
func (s *imageService) ListImages(ctx context.Context, q ListQuery) (*model.ImagePage, error) {
	page, limit, err := normalizePage(q)
	if err != nil {
		return nil, err
	}
	var filter repository.ImageFilter
	if q.Query != "" {
		ids, err := s.provider.SearchPublicIDs(ctx, q.Query)
		if err != nil {
			s.logger.Error().Err(err).Str("query", q.Query).Msg("Image search failed")
			return nil, apperror.Wrap(err, "image search failed")
		}
		filter = repository.ImageFilter{PublicIDs: ids, RestrictToPublicIDs: true}
	}
	result, err := s.listPage(ctx, filter, page, limit)
	if err != nil {
		return nil, err
	}
	saved, err := s.imageRepo.CountImages(ctx, repository.ImageFilter{})
	if err != nil {
		return nil, apperror.Wrap(err, "failed to count images")
	}
	result.SavedImages = saved
	return result, nil
}

// ListUserImages lists the caller's own images.
func (s *imageService) ListUserImages(ctx context.Context, clerkID string, q ListQuery) (*model.ImagePage, error) {
	page, limit, err := normalizePage(q)
	if err != nil {
		return nil, err
	}
	user, err := resolveUser(ctx, s.userRepo, clerkID)
	if err != nil {
		return nil, err
	}
	filter := repository.ImageFilter{AuthorID: user.ID}
	result, err := s.listPage(ctx, filter, page, limit)
	if err != nil {
		return nil, err
	}
	saved, err := s.imageRepo.CountImages(ctx, filter)
	if err != nil {
		return nil, apperror.Wrap(err, "failed to count images")
	}
	result.SavedImages = saved
	return result, nil
}

func (s *imageService) listPage(ctx context.Context, filter repository.ImageFilter, page, limit int) (*model.ImagePage, error) {
	total, err := s.imageRepo.CountImages(ctx, filter)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to count images")
		return nil, apperror.Wrap(err, "failed to count images")
	}
	var images []model.Image
	// Pages whose offset would overflow lie past any stored data.
	if page-1 <= math.MaxInt/limit {
		images, err = s.imageRepo.ListImages(ctx, filter, (page-1)*limit, limit)
		if err != nil {
			s.logger.Error().Err(err).Msg("Failed to list images")
			return nil, apperror.Wrap(err, "failed to list images")
		}
	}
	refs := make([]*model.Image, len(images))
	for i := range images {
		refs[i] = &images[i]
	}
	if err := s.populateAuthors(ctx, refs); err != nil {
		return nil, err
	}
	if images == nil {
		images = []model.Image{}
	}
	return &model.ImagePage{
		Data:       images,
		Page:       page,
		TotalPages: (total + limit - 1) / limit,
	}, nil
}

// populateAuthors attaches the public author view to each image with one
// user lookup.
func (s *imageService) populateAuthors(ctx context.Context, images []*model.Image) error {
	if len(images) == 0 {
		return nil
	}
	seen := make(map[string]struct{})
	var ids []string
	for _, img := range images {
		if _, ok := seen[img.AuthorID]; !ok {
			seen[img.AuthorID] = struct{}{}
			ids = append(ids, img.AuthorID)
		}
	}
	users, err := s.userRepo.GetUsersByIDs(ctx, ids)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to load image authors")
		return apperror.Wrap(err, "failed to load image authors")
	}
	byID := make(map[string]*model.User, len(users))
	for i := range users {
		byID[users[i].ID] = &users[i]
	}
	for _, img := range images {
		img.Author = model.AuthorOf(byID[img.AuthorID])
	}
	return nil
}

func normalizePage(q ListQuery) (int, int, error) {
	page, limit := q.Page, q.Limit
	if page == 0 {
		page = 1
	}
	if limit == 0 {
		limit = DefaultPageSize
	}
	if page < 1 {
		return 0, 0, apperror.Validation("page must be at least 1")
	}
	if limit < 1 || limit > MaxPageSize {
		return 0, 0, apperror.Validation("limit must be between 1 and 100")
	}
	return page, limit, nil
}
