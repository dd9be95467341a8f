package posts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/storypulse-dev/storypulse/internal/models"
	"github.com/storypulse-dev/storypulse/internal/tags"
	"github.com/storypulse-dev/storypulse/internal/users"
)

var (
	ErrPostNotFound  = errors.New("post not found")
	ErrNotPostAuthor = errors.New("you can only modify your own posts")
	ErrInvalidTags   = errors.New("invalid tag ids")
	ErrDuplicateSlug = errors.New("a post with that slug already exists")
)

// Service owns post lifecycle, including the ownership and role checks on
// mutation
type Service struct {
	db     *gorm.DB
	users  *users.Service
	tags   *tags.Service
	logger zerolog.Logger
}

func NewService(db *gorm.DB, usersService *users.Service, tagsService *tags.Service, logger zerolog.Logger) *Service {
	return &Service{
		db:     db,
		users:  usersService,
		tags:   tagsService,
		logger: logger.With().Str("component", "posts_service").Logger(),
	}
}

// CreatePostParams contains the fields accepted when creating a post
type CreatePostParams struct {
	Title         string
	Slug          string
	Status        models.PostStatus
	Content       string
	CoverImageURL string
	PublishedOn   *time.Time
	TagIDs        []uint
	MetaValue     string
}

// CreatePost creates a post authored by the given user. Every referenced
// tag must exist.
func (s *Service) CreatePost(ctx context.Context, params CreatePostParams, authorID uint) (*models.Post, error) {
	author, err := s.users.FindOneByID(ctx, authorID)
	if err != nil {
		return nil, err
	}

	postTags, err := s.tags.FindTags(ctx, params.TagIDs)
	if err != nil {
		return nil, err
	}
	if len(postTags) != len(params.TagIDs) {
		return nil, ErrInvalidTags
	}

	var existing models.Post
	err = s.db.WithContext(ctx).Where("slug = ?", params.Slug).First(&existing).Error
	if err == nil {
		return nil, ErrDuplicateSlug
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		s.logger.Error().Err(err).Msg("Failed to check existing slug")
		return nil, fmt.Errorf("failed to check existing slug: %w", err)
	}

	status := params.Status
	if status == "" {
		status = models.PostStatusDraft
	}

	post := &models.Post{
		Title:         params.Title,
		Slug:          params.Slug,
		Status:        status,
		Content:       params.Content,
		CoverImageURL: params.CoverImageURL,
		PublishedOn:   params.PublishedOn,
		AuthorID:      author.ID,
		Tags:          postTags,
	}
	if params.MetaValue != "" {
		post.MetaData = &models.MetaData{MetaValue: params.MetaValue}
	}

	if err := s.db.WithContext(ctx).Create(post).Error; err != nil {
		s.logger.Error().Err(err).Str("slug", params.Slug).Msg("Failed to create post")
		return nil, fmt.Errorf("failed to create post: %w", err)
	}

	s.logger.Info().
		Uint("post_id", post.ID).
		Str("slug", post.Slug).
		Uint("author_id", author.ID).
		Msg("Post created")

	return post, nil
}

// FindPostByID loads a post with its author, tags and metadata
func (s *Service) FindPostByID(ctx context.Context, id uint) (*models.Post, error) {
	var post models.Post
	err := models.FindByIDWithPreload(s.db.WithContext(ctx), id, &post, "Author", "Tags", "MetaData")
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPostNotFound
		}
		s.logger.Error().Err(err).Uint("post_id", id).Msg("Failed to find post")
		return nil, fmt.Errorf("failed to find post: %w", err)
	}
	return &post, nil
}

// UpdatePostParams carries a partial post update; nil fields are left
// untouched
type UpdatePostParams struct {
	ID            uint
	Title         *string
	Slug          *string
	Status        *models.PostStatus
	Content       *string
	CoverImageURL *string
	PublishedOn   *time.Time
	TagIDs        []uint
}

// UpdatePost applies a partial update. Only the post's author may update
// it.
func (s *Service) UpdatePost(ctx context.Context, params UpdatePostParams, actorID uint) (*models.Post, error) {
	var post models.Post
	if err := models.FindByID(s.db.WithContext(ctx), params.ID, &post); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPostNotFound
		}
		s.logger.Error().Err(err).Uint("post_id", params.ID).Msg("Failed to find post")
		return nil, fmt.Errorf("failed to find post: %w", err)
	}

	if post.AuthorID != actorID {
		return nil, ErrNotPostAuthor
	}

	if params.Title != nil {
		post.Title = *params.Title
	}
	if params.Slug != nil {
		post.Slug = *params.Slug
	}
	if params.Status != nil {
		post.Status = *params.Status
	}
	if params.Content != nil {
		post.Content = *params.Content
	}
	if params.CoverImageURL != nil {
		post.CoverImageURL = *params.CoverImageURL
	}
	if params.PublishedOn != nil {
		post.PublishedOn = params.PublishedOn
	}

	if params.TagIDs != nil {
		postTags, err := s.tags.FindTags(ctx, params.TagIDs)
		if err != nil {
			return nil, err
		}
		if len(postTags) != len(params.TagIDs) {
			return nil, ErrInvalidTags
		}
		if err := s.db.WithContext(ctx).Model(&post).Association("Tags").Replace(postTags); err != nil {
			s.logger.Error().Err(err).Uint("post_id", post.ID).Msg("Failed to replace post tags")
			return nil, fmt.Errorf("failed to replace post tags: %w", err)
		}
	}

	if err := s.db.WithContext(ctx).Save(&post).Error; err != nil {
		s.logger.Error().Err(err).Uint("post_id", post.ID).Msg("Failed to update post")
		return nil, fmt.Errorf("failed to update post: %w", err)
	}

	return &post, nil
}

// DeletePost removes a post. Admins may delete any post; everyone else
// only their own. The actor is resolved by the email in their claims.
func (s *Service) DeletePost(ctx context.Context, id uint, actorEmail string) error {
	var post models.Post
	if err := models.FindByID(s.db.WithContext(ctx), id, &post); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrPostNotFound
		}
		s.logger.Error().Err(err).Uint("post_id", id).Msg("Failed to find post")
		return fmt.Errorf("failed to find post: %w", err)
	}

	actor, err := s.users.FindOneByEmail(ctx, actorEmail)
	if err != nil {
		return err
	}

	if actor.Role != models.RoleAdmin && post.AuthorID != actor.ID {
		return ErrNotPostAuthor
	}

	if err := s.db.WithContext(ctx).Select("MetaData").Delete(&post).Error; err != nil {
		s.logger.Error().Err(err).Uint("post_id", id).Msg("Failed to delete post")
		return fmt.Errorf("failed to delete post: %w", err)
	}

	s.logger.Info().
		Uint("post_id", id).
		Uint("deleted_by", actor.ID).
		Msg("Post deleted")

	return nil
}
