package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"imaginify/internal/apperror"
	"imaginify/internal/form"
	"imaginify/internal/model"
	"imaginify/internal/pubsub"
	"imaginify/internal/repository"
	"imaginify/internal/transformation"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

var (
	ErrDraftNotFound = apperror.NotFound("draft not found")
	ErrDraftSaving   = apperror.Conflict("draft is already being saved")
)

// CreditMetrics counts credit movements.
type CreditMetrics interface {
	CreditsDebited(n int)
	CreditsRefunded(n int)
	CreditsPurchased(n int)
}

type noopCreditMetrics struct{}

func (noopCreditMetrics) CreditsDebited(int)   {}
func (noopCreditMetrics) CreditsRefunded(int)  {}
func (noopCreditMetrics) CreditsPurchased(int) {}

// StartDraft opens a form for a new image of Type, or for editing the
// existing image ImageID.
type StartDraft struct {
	Type    string
	ImageID string
}

// FieldUpdate carries the form fields to change. Nil fields are left alone.
type FieldUpdate struct {
	Title       *string
	AspectRatio *string
	Prompt      *string
	Color       *string
}

// ApplyResult is the outcome of a paid transformation.
type ApplyResult struct {
	Draft             form.Snapshot `json:"draft"`
	TransformationURL string        `json:"transformation_url"`
	CreditBalance     int           `json:"credit_balance"`
}

type TransformationService interface {
	StartDraft(ctx context.Context, clerkID string, req StartDraft) (form.Snapshot, error)
	GetDraft(ctx context.Context, clerkID, draftID string) (form.Snapshot, error)
	SetImage(ctx context.Context, clerkID, draftID string, img form.Image) (form.Snapshot, error)
	UpdateFields(ctx context.Context, clerkID, draftID string, u FieldUpdate) (form.Snapshot, error)
	Apply(ctx context.Context, clerkID, draftID string) (*ApplyResult, error)
	Save(ctx context.Context, clerkID, draftID string) (*model.Image, error)
	Discard(ctx context.Context, clerkID, draftID string) error
}

type transformationService struct {
	drafts    *form.Registry
	images    ImageService
	imageRepo repository.ImageRepository
	userRepo  repository.UserRepository
	provider  ImageProvider
	events    EventEmitter
	metrics   CreditMetrics
	validate  *validator.Validate
	fee       int
	logger    zerolog.Logger
}

func NewTransformationService(
	drafts *form.Registry,
	images ImageService,
	imageRepo repository.ImageRepository,
	userRepo repository.UserRepository,
	provider ImageProvider,
	events EventEmitter,
	metrics CreditMetrics,
	validate *validator.Validate,
	fee int,
	logger zerolog.Logger,
) TransformationService {
	if events == nil {
		events = (*pubsub.Emitter)(nil)
	}
	if metrics == nil {
		metrics = noopCreditMetrics{}
	}
	return &transformationService{
		drafts:    drafts,
		images:    images,
		imageRepo: imageRepo,
		userRepo:  userRepo,
		provider:  provider,
		events:    events,
		metrics:   metrics,
		validate:  validate,
		fee:       fee,
		logger:    logger.With().Str("service", "TransformationService").Logger(),
	}
}

func (s *transformationService) draft(clerkID, draftID string) (*form.Draft, error) {
	d, err := s.drafts.Get(draftID, clerkID)
	if errors.Is(err, form.ErrDraftNotFound) {
		return nil, ErrDraftNotFound
	}
	return d, err
}

func (s *transformationService) StartDraft(ctx context.Context, clerkID string, req StartDraft) (form.Snapshot, error) {
	user, err := resolveUser(ctx, s.userRepo, clerkID)
	if err != nil {
		return form.Snapshot{}, err
	}
	if req.ImageID == "" {
		typ, err := transformation.ParseType(req.Type)
		if err != nil {
			return form.Snapshot{}, err
		}
		return s.drafts.Create(clerkID, form.ActionAdd, typ, nil).Snapshot(), nil
	}

	img, err := s.imageRepo.GetImageByID(ctx, req.ImageID)
	if err != nil {
		return form.Snapshot{}, apperror.Wrap(err, "failed to load image")
	}
	if img == nil {
		return form.Snapshot{}, ErrImageNotFound
	}
	if img.AuthorID != user.ID {
		return form.Snapshot{}, ErrNotImageOwner
	}
	seed := &form.Seed{
		ImageID: img.ID,
		Values: form.Values{
			Title:       img.Title,
			AspectRatio: img.AspectRatio,
			Color:       img.Color,
			Prompt:      img.Prompt,
			PublicID:    img.PublicID,
		},
		Image: &form.Image{
			PublicID:  img.PublicID,
			SecureURL: img.SecureURL,
			Width:     img.Width,
			Height:    img.Height,
		},
		Committed: img.Config,
	}
	return s.drafts.Create(clerkID, form.ActionUpdate, img.TransformationType, seed).Snapshot(), nil
}

func (s *transformationService) GetDraft(_ context.Context, clerkID, draftID string) (form.Snapshot, error) {
	d, err := s.draft(clerkID, draftID)
	if err != nil {
		return form.Snapshot{}, err
	}
	return d.Snapshot(), nil
}

func (s *transformationService) SetImage(_ context.Context, clerkID, draftID string, img form.Image) (form.Snapshot, error) {
	d, err := s.draft(clerkID, draftID)
	if err != nil {
		return form.Snapshot{}, err
	}
	if img.PublicID == "" {
		return form.Snapshot{}, apperror.Validation("public_id is required")
	}
	d.SetImage(img)
	return d.Snapshot(), nil
}

func (s *transformationService) UpdateFields(_ context.Context, clerkID, draftID string, u FieldUpdate) (form.Snapshot, error) {
	d, err := s.draft(clerkID, draftID)
	if err != nil {
		return form.Snapshot{}, err
	}
	if u.Title != nil {
		d.SetTitle(*u.Title)
	}
	if u.AspectRatio != nil {
		if d.Type() != transformation.Fill {
			return form.Snapshot{}, apperror.Validation("aspect ratio is only used by fill transformations")
		}
		if err := d.SelectAspectRatio(*u.AspectRatio); err != nil {
			return form.Snapshot{}, err
		}
	}
	if u.Prompt != nil {
		if err := d.Input(form.FieldPrompt, *u.Prompt); err != nil {
			return form.Snapshot{}, err
		}
	}
	if u.Color != nil {
		if err := d.Input(form.FieldColor, *u.Color); err != nil {
			return form.Snapshot{}, err
		}
	}
	return d.Snapshot(), nil
}

// Apply merges the pending configuration into the committed one and debits
// the fee. Nothing changes when the caller cannot pay or the debit fails.
func (s *transformationService) Apply(ctx context.Context, clerkID, draftID string) (*ApplyResult, error) {
	d, err := s.draft(clerkID, draftID)
	if err != nil {
		return nil, err
	}
	img := d.Image()
	if img == nil || img.PublicID == "" {
		return nil, apperror.Validation("upload an image before applying a transformation")
	}

	// 1. Take what the form staged, debounced input included
	pending := d.TakePending()
	if pending == nil {
		return nil, apperror.Validation("no pending transformation to apply")
	}

	// 2. Render the result before anything is charged
	preview := transformation.Merge(committedOrZero(d), pending)
	width, height := s.size(d, img)
	url, err := s.provider.TransformationURL(img.PublicID, width, height, preview)
	if err != nil {
		d.RestorePending(pending)
		s.logger.Error().Err(err).Str("draft_id", draftID).Msg("Failed to build transformation URL")
		return nil, apperror.Wrap(err, "failed to build transformation url")
	}

	// 3. Check and debit the balance
	user, err := resolveUser(ctx, s.userRepo, clerkID)
	if err != nil {
		d.RestorePending(pending)
		return nil, err
	}
	if user.CreditBalance < s.fee {
		d.RestorePending(pending)
		return nil, apperror.InsufficientCredits(user.CreditBalance, s.fee)
	}
	balance, err := s.userRepo.AdjustCredits(ctx, user.ID, -s.fee)
	if err != nil {
		d.RestorePending(pending)
		s.logger.Error().Err(err).Str("user_id", user.ID).Msg("Failed to debit credits")
		return nil, apperror.Wrap(err, "failed to debit credits")
	}
	s.metrics.CreditsDebited(s.fee)

	// 4. Commit
	d.Commit(*pending, s.fee)
	s.logger.Info().Str("draft_id", draftID).Str("user_id", user.ID).Int("balance", balance).Msg("Transformation applied")
	return &ApplyResult{Draft: d.Snapshot(), TransformationURL: url, CreditBalance: balance}, nil
}

// Save persists the draft as an image record. When persisting fails the
// credits charged since the last save are refunded and the configuration
// they paid for is rolled back.
func (s *transformationService) Save(ctx context.Context, clerkID, draftID string) (*model.Image, error) {
	d, err := s.draft(clerkID, draftID)
	if err != nil {
		return nil, err
	}
	if err := d.BeginSave(); err != nil {
		return nil, ErrDraftSaving
	}
	saved, err := s.persist(ctx, clerkID, d)
	if err != nil {
		d.EndSave()
		return nil, err
	}

	// The draft stays marked as saving so a stale handle cannot save it twice.
	d.MarkSaved()
	_ = s.drafts.Discard(draftID, clerkID)
	s.events.Emit(ctx, pubsub.Event{Type: pubsub.EventImageSaved, ImageID: saved.ID, UserID: saved.AuthorID})
	return saved, nil
}

func (s *transformationService) persist(ctx context.Context, clerkID string, d *form.Draft) (*model.Image, error) {
	values := d.Values()
	if err := s.validate.Struct(values); err != nil {
		return nil, apperror.Validation(validationMessage(err))
	}
	img := d.Image()
	if img == nil {
		return nil, apperror.Validation("upload an image before saving")
	}

	cfg := committedOrZero(d)
	width, height := s.size(d, img)
	url, err := s.provider.TransformationURL(img.PublicID, width, height, cfg)
	if err != nil {
		return nil, apperror.Wrap(err, "failed to build transformation url")
	}
	record := &model.Image{
		Title:              values.Title,
		TransformationType: d.Type(),
		PublicID:           img.PublicID,
		SecureURL:          img.SecureURL,
		Width:              img.Width,
		Height:             img.Height,
		Config:             cfg,
		TransformationURL:  url,
		AspectRatio:        values.AspectRatio,
		Color:              values.Color,
		Prompt:             values.Prompt,
	}

	var saved *model.Image
	if d.Action() == form.ActionUpdate {
		record.ID = d.ImageID()
		saved, err = s.images.UpdateImage(ctx, clerkID, record)
	} else {
		saved, err = s.images.AddImage(ctx, clerkID, record)
	}
	if err != nil {
		s.logger.Error().Err(err).Str("draft_id", d.ID()).Msg("Failed to save image")
		s.refund(ctx, clerkID, d)
		return nil, err
	}
	return saved, nil
}

// refund returns the draft's accrued charge to the caller and rolls back
// what it paid for. A failed refund leaves both in place.
func (s *transformationService) refund(ctx context.Context, clerkID string, d *form.Draft) {
	charged := d.Charged()
	if charged <= 0 {
		return
	}
	user, err := resolveUser(ctx, s.userRepo, clerkID)
	if err != nil {
		s.logger.Error().Err(err).Str("draft_id", d.ID()).Int("credits", charged).Msg("Refund failed: user lookup")
		return
	}
	if _, err := s.userRepo.AdjustCredits(ctx, user.ID, charged); err != nil {
		s.logger.Error().Err(err).Str("user_id", user.ID).Int("credits", charged).Msg("Refund failed")
		return
	}
	d.Rollback()
	s.metrics.CreditsRefunded(charged)
	s.logger.Info().Str("user_id", user.ID).Int("credits", charged).Msg("Credits refunded after failed save")
}

func (s *transformationService) Discard(_ context.Context, clerkID, draftID string) error {
	if err := s.drafts.Discard(draftID, clerkID); err != nil {
		if errors.Is(err, form.ErrDraftNotFound) {
			return ErrDraftNotFound
		}
		return err
	}
	return nil
}

// size is the rendered size of the draft's image.
func (s *transformationService) size(d *form.Draft, img *form.Image) (int, int) {
	ratio := d.Values().AspectRatio
	return transformation.ImageSize(d.Type(), img.Width, img.Height, ratio, transformation.DimensionWidth),
		transformation.ImageSize(d.Type(), img.Width, img.Height, ratio, transformation.DimensionHeight)
}

func committedOrZero(d *form.Draft) transformation.Config {
	if c := d.Committed(); c != nil {
		return *c
	}
	return transformation.Config{}
}

// validationMessage flattens validator errors into one line.
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed on %s", strings.ToLower(fe.Field()), fe.Tag()))
	}
	return strings.Join(msgs, "; ")
}
