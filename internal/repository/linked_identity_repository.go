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

// linkedIdentityRepository implements LinkedIdentityRepository interface
type linkedIdentityRepository struct {
	db *database.Postgres
}

// NewLinkedIdentityRepository creates a new linked identity repository
func NewLinkedIdentityRepository(db *database.Postgres) LinkedIdentityRepository {
	return &linkedIdentityRepository{db: db}
}

// Create creates a new linked identity
func (r *linkedIdentityRepository) Create(ctx context.Context, identity *domain.LinkedIdentity) error {
	query := `
		INSERT INTO linked_identities (id, provider, provider_user_id, user_id, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	// Generate UUID if not provided
	if identity.ID == "" {
		identity.ID = uuid.New().String()
	}
	if identity.CreatedAt.IsZero() {
		identity.CreatedAt = time.Now()
	}

	_, err := r.db.DB.ExecContext(ctx, query,
		identity.ID,
		identity.Provider,
		identity.ProviderUserID,
		identity.UserID,
		identity.CreatedAt,
	)

	if err != nil {
		// Check for unique constraint violation (duplicate provider + provider_user_id)
		if pqErr, ok := err.(*pq.Error); ok {
			if pqErr.Code == "23505" { // unique_violation
				return fmt.Errorf("identity already linked: %w", ErrDuplicateIdentity)
			}
		}
		return fmt.Errorf("failed to create linked identity: %w", err)
	}

	return nil
}

// GetByProvider retrieves a linked identity by provider and provider user ID
func (r *linkedIdentityRepository) GetByProvider(ctx context.Context, provider domain.Provider, providerUserID string) (*domain.LinkedIdentity, error) {
	query := `
		SELECT id, provider, provider_user_id, user_id, created_at
		FROM linked_identities
		WHERE provider = $1 AND provider_user_id = $2
	`

	identity := &domain.LinkedIdentity{}

	err := r.db.DB.QueryRowContext(ctx, query, provider, providerUserID).Scan(
		&identity.ID,
		&identity.Provider,
		&identity.ProviderUserID,
		&identity.UserID,
		&identity.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("linked identity not found: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get linked identity: %w", err)
	}

	return identity, nil
}

// GetByUserID retrieves all linked identities for a user
func (r *linkedIdentityRepository) GetByUserID(ctx context.Context, userID string) ([]*domain.LinkedIdentity, error) {
	query := `
		SELECT id, provider, provider_user_id, user_id, created_at
		FROM linked_identities
		WHERE user_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.db.DB.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get linked identities by user id: %w", err)
	}
	defer rows.Close()

	var identities []*domain.LinkedIdentity
	for rows.Next() {
		identity := &domain.LinkedIdentity{}

		err := rows.Scan(
			&identity.ID,
			&identity.Provider,
			&identity.ProviderUserID,
			&identity.UserID,
			&identity.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan linked identity: %w", err)
		}

		identities = append(identities, identity)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate linked identities: %w", err)
	}

	return identities, nil
}
