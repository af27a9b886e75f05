package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/lunasphere/account-service/internal/domain"
	"github.com/lunasphere/account-service/internal/repository"
	"github.com/lunasphere/account-service/internal/utils"
)

// tagService implements TagService
type tagService struct {
	tagRepo repository.TagRepository
}

// NewTagService creates a new tag service
func NewTagService(tagRepo repository.TagRepository) TagService {
	return &tagService{tagRepo: tagRepo}
}

// Create creates a tag. An empty slug is derived from the name.
func (s *tagService) Create(ctx context.Context, name, slug string) (*domain.Tag, error) {
	if slug == "" {
		slug = utils.Slugify(name)
	}

	tag := &domain.Tag{Name: name, Slug: slug}
	if err := s.tagRepo.Create(ctx, tag); err != nil {
		if errors.Is(err, repository.ErrDuplicateSlug) {
			return nil, domain.ErrConflictingIdentity
		}
		return nil, fmt.Errorf("failed to create tag: %w", err)
	}
	return tag, nil
}

// Get returns a tag by id
func (s *tagService) Get(ctx context.Context, id string) (*domain.Tag, error) {
	tag, err := s.tagRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.ErrNotFoundOrExpired
		}
		return nil, fmt.Errorf("failed to get tag: %w", err)
	}
	return tag, nil
}

// GetBySlug returns a tag by slug
func (s *tagService) GetBySlug(ctx context.Context, slug string) (*domain.Tag, error) {
	tag, err := s.tagRepo.GetBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.ErrNotFoundOrExpired
		}
		return nil, fmt.Errorf("failed to get tag: %w", err)
	}
	return tag, nil
}

// List returns all tags
func (s *tagService) List(ctx context.Context) ([]*domain.Tag, error) {
	tags, err := s.tagRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list tags: %w", err)
	}
	return tags, nil
}

// Update renames a tag. An empty slug is re-derived from the new name.
func (s *tagService) Update(ctx context.Context, id string, name, slug string) (*domain.Tag, error) {
	tag, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if slug == "" {
		slug = utils.Slugify(name)
	}
	tag.Name = name
	tag.Slug = slug

	if err := s.tagRepo.Update(ctx, tag); err != nil {
		if errors.Is(err, repository.ErrDuplicateSlug) {
			return nil, domain.ErrConflictingIdentity
		}
		return nil, fmt.Errorf("failed to update tag: %w", err)
	}
	return tag, nil
}

// Delete removes a tag by id
func (s *tagService) Delete(ctx context.Context, id string) error {
	if err := s.tagRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.ErrNotFoundOrExpired
		}
		return fmt.Errorf("failed to delete tag: %w", err)
	}
	return nil
}
