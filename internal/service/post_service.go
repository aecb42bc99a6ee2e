package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"gorm.io/gorm"

	apperrors "blogapi/internal/errors"
	"blogapi/internal/metrics"
	"blogapi/internal/model"
	"blogapi/internal/repository"
	"blogapi/internal/validation"
)

const (
	msgEditForbidden   = "You do not have permission to edit this post."
	msgDeleteForbidden = "You do not have permission to delete this post."
)

// PostInput carries the writable post fields for create and full update.
type PostInput struct {
	Title   string `json:"title" validate:"required,max=200"`
	Content string `json:"content" validate:"required"`
	// Tags is left unchanged on update when nil.
	Tags *string `json:"tags" validate:"omitempty,max=255"`
	// Image is left unchanged on update when nil.
	Image *Upload `json:"image" validate:"-"`
}

// PostReader reads the post fields of a request. Update calls it only after
// the post is found and the caller is confirmed as its author.
type PostReader func() (PostInput, error)

// Input returns a PostReader yielding in.
func (in PostInput) Input() PostReader {
	return func() (PostInput, error) { return in, nil }
}

// PostService implements post CRUD with the ownership gate.
type PostService interface {
	List(ctx context.Context) ([]model.Post, error)
	Create(ctx context.Context, callerID uint, in PostInput) (*model.Post, error)
	Get(ctx context.Context, id uint) (*model.Post, error)
	Update(ctx context.Context, callerID, id uint, read PostReader) (*model.Post, error)
	Delete(ctx context.Context, callerID, id uint) error
}

type postService struct {
	postRepo  repository.PostRepository
	media     *Media
	validator *validation.Validator
	metrics   *metrics.Metrics
	log       *slog.Logger
}

// NewPostService creates a new post service.
func NewPostService(
	postRepo repository.PostRepository,
	media *Media,
	validator *validation.Validator,
	m *metrics.Metrics,
	log *slog.Logger,
) PostService {
	if log == nil {
		log = slog.Default()
	}
	return &postService{
		postRepo:  postRepo,
		media:     media,
		validator: validator,
		metrics:   m,
		log:       log,
	}
}

// List returns all posts in primary key order.
func (s *postService) List(ctx context.Context) ([]model.Post, error) {
	posts, err := s.postRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	if posts == nil {
		posts = []model.Post{}
	}
	return posts, nil
}

// Create stores a post authored by the caller. Any client-supplied author is ignored.
func (s *postService) Create(ctx context.Context, callerID uint, in PostInput) (*model.Post, error) {
	in = normalizePostInput(in)
	if err := s.validator.Validate(&in); err != nil {
		s.metrics.ObservePostMutation("create", "invalid")
		return nil, err
	}

	key, err := s.media.save(ctx, "image", postImagePrefix, in.Image)
	if err != nil {
		s.metrics.ObservePostMutation("create", "invalid")
		return nil, err
	}

	post := &model.Post{
		Title:    in.Title,
		Content:  in.Content,
		AuthorID: callerID,
		Image:    optionalKey(key),
	}
	if in.Tags != nil {
		post.Tags = *in.Tags
	}

	if err := s.postRepo.Create(ctx, post); err != nil {
		s.media.remove(ctx, optionalKey(key))
		return nil, fmt.Errorf("create post: %w", err)
	}

	s.metrics.ObservePostMutation("create", "ok")
	s.log.InfoContext(ctx, "post created", "post_id", post.ID, "author_id", callerID)
	return post, nil
}

func (s *postService) Get(ctx context.Context, id uint) (*model.Post, error) {
	post, err := s.postRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("Not found.")
		}
		return nil, fmt.Errorf("find post: %w", err)
	}
	return post, nil
}

// authorize loads the post and checks that callerID authored it.
// Existence is checked before ownership.
func (s *postService) authorize(ctx context.Context, op string, callerID, id uint, denied string) (*model.Post, error) {
	post, err := s.Get(ctx, id)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			s.metrics.ObservePostMutation(op, "not_found")
		}
		return nil, err
	}
	if post.AuthorID != callerID {
		s.metrics.ObservePostMutation(op, "forbidden")
		s.log.WarnContext(ctx, "post mutation denied", "op", op, "post_id", id, "caller_id", callerID, "author_id", post.AuthorID)
		return nil, apperrors.Forbidden(denied)
	}
	return post, nil
}

// Update replaces title and content. Tags and image change only when supplied.
// The body is read after the existence and ownership checks.
func (s *postService) Update(ctx context.Context, callerID, id uint, read PostReader) (*model.Post, error) {
	post, err := s.authorize(ctx, "update", callerID, id, msgEditForbidden)
	if err != nil {
		return nil, err
	}

	in, err := read()
	if err != nil {
		var verr *apperrors.ValidationError
		if errors.As(err, &verr) {
			s.metrics.ObservePostMutation("update", "invalid")
		}
		return nil, err
	}

	in = normalizePostInput(in)
	if err := s.validator.Validate(&in); err != nil {
		s.metrics.ObservePostMutation("update", "invalid")
		return nil, err
	}

	key, err := s.media.save(ctx, "image", postImagePrefix, in.Image)
	if err != nil {
		s.metrics.ObservePostMutation("update", "invalid")
		return nil, err
	}

	oldImage := post.Image
	post.Title = in.Title
	post.Content = in.Content
	post.AuthorID = callerID
	if in.Tags != nil {
		post.Tags = *in.Tags
	}
	if key != "" {
		post.Image = &key
	}

	if err := s.postRepo.Update(ctx, post); err != nil {
		s.media.remove(ctx, optionalKey(key))
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.metrics.ObservePostMutation("update", "not_found")
			return nil, apperrors.NotFound("Not found.")
		}
		return nil, fmt.Errorf("update post: %w", err)
	}
	if key != "" {
		s.media.remove(ctx, oldImage)
	}

	s.metrics.ObservePostMutation("update", "ok")
	return post, nil
}

// Delete removes the post permanently along with its image.
func (s *postService) Delete(ctx context.Context, callerID, id uint) error {
	post, err := s.authorize(ctx, "delete", callerID, id, msgDeleteForbidden)
	if err != nil {
		return err
	}

	if err := s.postRepo.Delete(ctx, post.ID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.NotFound("Not found.")
		}
		return fmt.Errorf("delete post: %w", err)
	}
	s.media.remove(ctx, post.Image)

	s.metrics.ObservePostMutation("delete", "ok")
	s.log.InfoContext(ctx, "post deleted", "post_id", id, "author_id", callerID)
	return nil
}

func normalizePostInput(in PostInput) PostInput {
	in.Title = strings.TrimSpace(in.Title)
	in.Content = strings.TrimSpace(in.Content)
	if in.Tags != nil {
		tags := strings.TrimSpace(*in.Tags)
		in.Tags = &tags
	}
	return in
}
