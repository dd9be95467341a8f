package tags

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/storypulse-dev/storypulse/internal/models"
)

var (
	ErrTagNotFound = errors.New("tag not found")
	ErrTagExists   = errors.New("a tag with that name or slug already exists")
)

// Service owns tag lifecycle. Tags are soft-deleted so posts keep their
// history when a tag is removed.
type Service struct {
	db     *gorm.DB
	logger zerolog.Logger
}

func NewService(db *gorm.DB, logger zerolog.Logger) *Service {
	return &Service{
		db:     db,
		logger: logger.With().Str("component", "tags_service").Logger(),
	}
}

// CreateTagParams contains the fields accepted when creating a tag
type CreateTagParams struct {
	Name             string
	Slug             string
	Description      string
	Schema           string
	FeaturedImageURL string
}

func (s *Service) CreateTag(ctx context.Context, params CreateTagParams) (*models.Tag, error) {
	var existing models.Tag
	err := s.db.WithContext(ctx).
		Where("name = ? OR slug = ?", params.Name, params.Slug).
		First(&existing).Error
	if err == nil {
		return nil, ErrTagExists
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		s.logger.Error().Err(err).Msg("Failed to check existing tag")
		return nil, fmt.Errorf("failed to check existing tag: %w", err)
	}

	tag := &models.Tag{
		Name:             params.Name,
		Slug:             params.Slug,
		Description:      params.Description,
		Schema:           params.Schema,
		FeaturedImageURL: params.FeaturedImageURL,
	}

	if err := s.db.WithContext(ctx).Create(tag).Error; err != nil {
		s.logger.Error().Err(err).Str("slug", params.Slug).Msg("Failed to create tag")
		return nil, fmt.Errorf("failed to create tag: %w", err)
	}

	s.logger.Info().Uint("tag_id", tag.ID).Str("slug", tag.Slug).Msg("Tag created")

	return tag, nil
}

// UpdateTagParams carries a partial tag update; nil fields are left untouched
type UpdateTagParams struct {
	ID               uint
	Name             *string
	Slug             *string
	Description      *string
	Schema           *string
	FeaturedImageURL *string
}

func (s *Service) UpdateTag(ctx context.Context, params UpdateTagParams) (*models.Tag, error) {
	var tag models.Tag
	if err := models.FindByID(s.db.WithContext(ctx), params.ID, &tag); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTagNotFound
		}
		s.logger.Error().Err(err).Uint("tag_id", params.ID).Msg("Failed to find tag")
		return nil, fmt.Errorf("failed to find tag: %w", err)
	}

	if params.Name != nil {
		tag.Name = *params.Name
	}
	if params.Slug != nil {
		tag.Slug = *params.Slug
	}
	if params.Description != nil {
		tag.Description = *params.Description
	}
	if params.Schema != nil {
		tag.Schema = *params.Schema
	}
	if params.FeaturedImageURL != nil {
		tag.FeaturedImageURL = *params.FeaturedImageURL
	}

	if err := s.db.WithContext(ctx).Save(&tag).Error; err != nil {
		s.logger.Error().Err(err).Uint("tag_id", tag.ID).Msg("Failed to update tag")
		return nil, fmt.Errorf("failed to update tag: %w", err)
	}

	return &tag, nil
}

// DeleteTag soft-deletes a tag
func (s *Service) DeleteTag(ctx context.Context, id uint) error {
	var tag models.Tag
	if err := models.FindByID(s.db.WithContext(ctx), id, &tag); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrTagNotFound
		}
		s.logger.Error().Err(err).Uint("tag_id", id).Msg("Failed to find tag")
		return fmt.Errorf("failed to find tag: %w", err)
	}

	if err := s.db.WithContext(ctx).Delete(&tag).Error; err != nil {
		s.logger.Error().Err(err).Uint("tag_id", id).Msg("Failed to delete tag")
		return fmt.Errorf("failed to delete tag: %w", err)
	}

	s.logger.Info().Uint("tag_id", id).Msg("Tag deleted")

	return nil
}

// FindTags loads the tags for the given IDs. Callers compare the result
// length against the request to detect unknown IDs.
func (s *Service) FindTags(ctx context.Context, ids []uint) ([]models.Tag, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	var tags []models.Tag
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&tags).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to load tags")
		return nil, fmt.Errorf("failed to load tags: %w", err)
	}
	return tags, nil
}
