package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/lunasphere/account-service/internal/domain"
	"github.com/lunasphere/account-service/pkg/database"
)

// tagRepository implements TagRepository interface
type tagRepository struct {
	db *database.Postgres
}

// NewTagRepository creates a new tag repository
func NewTagRepository(db *database.Postgres) TagRepository {
	return &tagRepository{db: db}
}

// Create creates a new tag
func (r *tagRepository) Create(ctx context.Context, tag *domain.Tag) error {
	query := `
		INSERT INTO tags (id, name, slug, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	if tag.ID == "" {
		tag.ID = uuid.New().String()
	}

	now := time.Now()
	if tag.CreatedAt.IsZero() {
		tag.CreatedAt = now
	}
	if tag.UpdatedAt.IsZero() {
		tag.UpdatedAt = now
	}

	_, err := r.db.DB.ExecContext(ctx, query, tag.ID, tag.Name, tag.Slug, tag.CreatedAt, tag.UpdatedAt)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			if pqErr.Code == "23505" { // unique_violation
				return fmt.Errorf("tag with slug %s already exists: %w", tag.Slug, ErrDuplicateSlug)
			}
		}
		return fmt.Errorf("failed to create tag: %w", err)
	}

	return nil
}

// GetByID retrieves a tag by ID
func (r *tagRepository) GetByID(ctx context.Context, id string) (*domain.Tag, error) {
	return r.getBy(ctx, "id", id)
}

// GetBySlug retrieves a tag by slug
func (r *tagRepository) GetBySlug(ctx context.Context, slug string) (*domain.Tag, error) {
	return r.getBy(ctx, "slug", slug)
}

func (r *tagRepository) getBy(ctx context.Context, column, value string) (*domain.Tag, error) {
	query := fmt.Sprintf(`SELECT id, name, slug, created_at, updated_at FROM tags WHERE %s = $1`, column)

	tag := &domain.Tag{}
	err := r.db.DB.QueryRowContext(ctx, query, value).Scan(
		&tag.ID,
		&tag.Name,
		&tag.Slug,
		&tag.CreatedAt,
		&tag.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("tag not found: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get tag: %w", err)
	}

	return tag, nil
}

// List retrieves all tags
func (r *tagRepository) List(ctx context.Context) ([]*domain.Tag, error) {
	query := `SELECT id, name, slug, created_at, updated_at FROM tags ORDER BY name`

	rows, err := r.db.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list tags: %w", err)
	}
	defer rows.Close()

	var tags []*domain.Tag
	for rows.Next() {
		tag := &domain.Tag{}
		if err := rows.Scan(&tag.ID, &tag.Name, &tag.Slug, &tag.CreatedAt, &tag.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan tag: %w", err)
		}
		tags = append(tags, tag)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tags: %w", err)
	}

	return tags, nil
}

// Update updates an existing tag
func (r *tagRepository) Update(ctx context.Context, tag *domain.Tag) error {
	query := `
		UPDATE tags
		SET name = $2, slug = $3, updated_at = $4
		WHERE id = $1
	`

	result, err := r.db.DB.ExecContext(ctx, query, tag.ID, tag.Name, tag.Slug, time.Now())
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			if pqErr.Code == "23505" { // unique_violation
				return fmt.Errorf("tag with slug %s already exists: %w", tag.Slug, ErrDuplicateSlug)
			}
		}
		return fmt.Errorf("failed to update tag: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("tag with id %s not found: %w", tag.ID, ErrNotFound)
	}

	return nil
}

// Delete deletes a tag by ID
func (r *tagRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM tags WHERE id = $1`

	result, err := r.db.DB.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete tag: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("tag with id %s not found: %w", id, ErrNotFound)
	}

	return nil
}
