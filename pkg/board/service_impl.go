package board

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// service implements the Service interface
type service struct {
	repository    Repository
	sequenceStore SequenceStore
	retryPolicy   RetryPolicy
	uploader      ImageUploader
	logger        *slog.Logger
	clock         func() time.Time
	location      *time.Location

	contents *KeyedRepository[Content]
	lister   *ContentLister
}

// Option represents a functional option for configuring the service
type Option func(*service)

// WithRepository sets the repository for the service
func WithRepository(repo Repository) Option {
	return func(s *service) {
		s.repository = repo
	}
}

// WithSequenceStore sets the store holding post number counters
func WithSequenceStore(store SequenceStore) Option {
	return func(s *service) {
		s.sequenceStore = store
	}
}

// WithRetryPolicy overrides the allocator retry policy
func WithRetryPolicy(p RetryPolicy) Option {
	return func(s *service) {
		s.retryPolicy = p
	}
}

// WithImageUploader sets the uploader used for attached image files
func WithImageUploader(u ImageUploader) Option {
	return func(s *service) {
		s.uploader = u
	}
}

// WithLogger sets the logger for the service
func WithLogger(l *slog.Logger) Option {
	return func(s *service) {
		s.logger = l
	}
}

// WithClock replaces time.Now
func WithClock(clock func() time.Time) Option {
	return func(s *service) {
		s.clock = clock
	}
}

// WithLocation sets the zone timestamps are recorded in
func WithLocation(loc *time.Location) Option {
	return func(s *service) {
		s.location = loc
	}
}

// New creates a new service instance with the given options
func New(options ...Option) (Service, error) {
	s := &service{
		retryPolicy: DefaultRetryPolicy,
		logger:      slog.Default(),
		clock:       time.Now,
		location:    time.UTC,
	}

	for _, option := range options {
		option(s)
	}

	if s.repository == nil {
		return nil, fmt.Errorf("repository is required")
	}
	if s.sequenceStore == nil {
		return nil, fmt.Errorf("sequence store is required")
	}

	allocator := NewAllocator(s.sequenceStore,
		WithAllocatorPolicy(s.retryPolicy),
		WithAllocatorLogger(s.logger),
	)
	s.contents = NewKeyedRepository(SequenceContents, allocator, NewContentCollection(s.repository), assignPostNumber)
	s.lister = NewContentLister(s.repository)

	return s, nil
}

// now is truncated to the microsecond precision the stores keep.
func (s *service) now() time.Time {
	return s.clock().In(s.location).Truncate(time.Microsecond)
}

func (s *service) CreateContent(ctx context.Context, req CreateContentRequest) (*Content, error) {
	req.Contents = NormalizeContents(req.Contents)
	if err := ValidateStruct(req); err != nil {
		return nil, err
	}

	images := append([]string{}, req.Images...)
	var uploaded []string
	if len(req.Files) > 0 {
		if s.uploader == nil {
			return nil, &ContentError{Op: "create", Err: errors.New("image uploader is not configured")}
		}
		urls, err := s.uploader.UploadImages(ctx, req.Files)
		if err != nil {
			return nil, &ContentError{Op: "create", Err: err}
		}
		uploaded = urls
		images = append(images, urls...)
	}

	now := s.now()
	content := &Content{
		Category:  Category(req.Category),
		Title:     req.Title,
		Contents:  req.Contents,
		Images:    images,
		CreatedAt: now,
		UpdatedAt: now,
		State:     StateActive,
	}

	ref, err := s.contents.CreateWithGeneratedKey(ctx, content)
	if err != nil {
		s.logger.Error("Failed to create content", "error", err)
		if len(uploaded) > 0 {
			s.uploader.DiscardImages(ctx, uploaded)
		}
		return nil, &ContentError{Op: "create", Err: err}
	}

	s.logger.Info("Content created", "post_number", ref.Key, "content_id", ref.DocumentID)
	return content.Clone(), nil
}

func (s *service) GetContent(ctx context.Context, postNumber int64) (*Content, error) {
	return s.find(ctx, "get", postNumber, StateActive)
}

func (s *service) GetContentDetail(ctx context.Context, postNumber int64) (*Content, error) {
	return s.find(ctx, "get_detail", postNumber, "")
}

func (s *service) find(ctx context.Context, op string, postNumber int64, state DeletionState) (*Content, error) {
	if postNumber < 1 {
		return nil, NewValidationError("post_number", "must be greater than 0")
	}
	content, err := s.contents.FindByKey(ctx, postNumber, state)
	if err != nil {
		return nil, &ContentError{PostNumber: postNumber, Op: op, Err: err}
	}
	// stores may hand back timestamps in their own zone
	content.CreatedAt = content.CreatedAt.In(s.location)
	content.UpdatedAt = content.UpdatedAt.In(s.location)
	return content, nil
}

func (s *service) ListContents(ctx context.Context, req ListContentRequest) (*ContentPage, error) {
	if req.Page == 0 {
		req.Page = DefaultPage
	}
	if req.Limit == 0 {
		req.Limit = DefaultLimit
	}

	filter := ContentFilter{
		State:    StateActive,
		Category: Category(req.Category),
	}
	return s.lister.List(ctx, filter, req.Page, req.Limit)
}

func (s *service) UpdateContent(ctx context.Context, postNumber int64, req UpdateContentRequest) (*Content, error) {
	fields := updateFields{
		Category: deref(req.Category),
		Title:    deref(req.Title),
		Contents: NormalizeContents(deref(req.Contents)),
	}
	if err := ValidateStruct(fields); err != nil {
		return nil, err
	}

	current, err := s.find(ctx, "update", postNumber, StateActive)
	if err != nil {
		return nil, err
	}

	var patch ContentPatch
	if fields.Category != "" {
		category := Category(fields.Category)
		patch.Category = &category
	}
	if fields.Title != "" {
		patch.Title = &fields.Title
	}
	if fields.Contents != "" {
		patch.Contents = &fields.Contents
	}
	if len(req.Images) > 0 {
		patch.Images = req.Images
	}

	// updated_at must move forward even when the clock has not.
	now := s.now()
	if !now.After(current.UpdatedAt) {
		now = current.UpdatedAt.Add(time.Microsecond)
	}
	patch.UpdatedAt = &now

	if err := s.repository.UpdateContent(ctx, current.DocumentID, patch); err != nil {
		return nil, &ContentError{PostNumber: postNumber, Op: "update", Err: err}
	}

	s.logger.Info("Content updated", "post_number", postNumber)
	return s.find(ctx, "update", postNumber, StateActive)
}

func (s *service) DeleteContent(ctx context.Context, postNumber int64) error {
	current, err := s.find(ctx, "delete", postNumber, StateActive)
	if err != nil {
		return err
	}

	deleted := StateSoftDeleted
	if err := s.repository.UpdateContent(ctx, current.DocumentID, ContentPatch{State: &deleted}); err != nil {
		return &ContentError{PostNumber: postNumber, Op: "delete", Err: err}
	}

	s.logger.Info("Content deleted", "post_number", postNumber)
	return nil
}
