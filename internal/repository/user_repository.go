package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/lunasphere/account-service/internal/domain"
	"github.com/lunasphere/account-service/pkg/database"
)

const userColumns = `id, email, username, password_hash, role, email_verified, active, suspended,
		picture, phone, address,
		email_verification_token, email_verification_expires,
		password_reset_token, password_reset_expires,
		reactivation_token, reactivation_expires,
		created_at, updated_at, last_login_at`

// userRepository implements UserRepository interface
type userRepository struct {
	db *database.Postgres
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *database.Postgres) UserRepository {
	return &userRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*domain.User, error) {
	user := &domain.User{}
	var (
		passwordHash, picture, phone, address        sql.NullString
		verifToken, resetToken, reactToken           sql.NullString
		verifExpires, resetExpires, reactExpires     sql.NullTime
		lastLoginAt                                  sql.NullTime
	)

	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.Username,
		&passwordHash,
		&user.Role,
		&user.EmailVerified,
		&user.Active,
		&user.Suspended,
		&picture,
		&phone,
		&address,
		&verifToken,
		&verifExpires,
		&resetToken,
		&resetExpires,
		&reactToken,
		&reactExpires,
		&user.CreatedAt,
		&user.UpdatedAt,
		&lastLoginAt,
	)
	if err != nil {
		return nil, err
	}

	if passwordHash.Valid {
		user.PasswordHash = &passwordHash.String
	}
	if picture.Valid {
		user.Picture = &picture.String
	}
	if phone.Valid {
		user.Phone = &phone.String
	}
	if address.Valid {
		user.Address = &address.String
	}
	if verifToken.Valid {
		user.EmailVerificationToken = &verifToken.String
	}
	if verifExpires.Valid {
		user.EmailVerificationExpires = &verifExpires.Time
	}
	if resetToken.Valid {
		user.PasswordResetToken = &resetToken.String
	}
	if resetExpires.Valid {
		user.PasswordResetExpires = &resetExpires.Time
	}
	if reactToken.Valid {
		user.ReactivationToken = &reactToken.String
	}
	if reactExpires.Valid {
		user.ReactivationExpires = &reactExpires.Time
	}
	if lastLoginAt.Valid {
		user.LastLoginAt = &lastLoginAt.Time
	}

	return user, nil
}

// Create creates a new user in the database
func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	query := `
		INSERT INTO users (id, email, username, password_hash, role, email_verified, active, suspended,
			picture, phone, address,
			email_verification_token, email_verification_expires,
			created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`

	// Generate UUID if not provided
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	if user.Role == "" {
		user.Role = domain.RoleCustomer
	}

	now := time.Now()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	if user.UpdatedAt.IsZero() {
		user.UpdatedAt = now
	}

	_, err := r.db.DB.ExecContext(ctx, query,
		user.ID,
		user.Email,
		user.Username,
		user.PasswordHash,
		user.Role,
		user.EmailVerified,
		user.Active,
		user.Suspended,
		user.Picture,
		user.Phone,
		user.Address,
		user.EmailVerificationToken,
		user.EmailVerificationExpires,
		user.CreatedAt,
		user.UpdatedAt,
	)

	if err != nil {
		// Check for unique constraint violation (duplicate email)
		if pqErr, ok := err.(*pq.Error); ok {
			if pqErr.Code == "23505" { // unique_violation
				return fmt.Errorf("user with email %s already exists: %w", user.Email, ErrDuplicateEmail)
			}
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

// GetByEmail retrieves a user by email
func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE email = $1`, userColumns)

	user, err := scanUser(r.db.DB.QueryRowContext(ctx, query, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user with email %s not found: %w", email, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}

	return user, nil
}

// GetByID retrieves a user by ID
func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE id = $1`, userColumns)

	user, err := scanUser(r.db.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user with id %s not found: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user by id: %w", err)
	}

	return user, nil
}

// List retrieves users matching the given filter
func (r *userRepository) List(ctx context.Context, filter UserFilter) ([]*domain.User, error) {
	var (
		conds []string
		args  []any
	)

	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if len(filter.Emails) > 0 {
		conds = append(conds, fmt.Sprintf("email = ANY(%s)", arg(pq.Array(filter.Emails))))
	}
	if len(filter.Roles) > 0 {
		roles := make([]string, len(filter.Roles))
		for i, role := range filter.Roles {
			roles[i] = string(role)
		}
		conds = append(conds, fmt.Sprintf("role = ANY(%s)", arg(pq.Array(roles))))
	}
	if filter.EmailVerified != nil {
		conds = append(conds, fmt.Sprintf("email_verified = %s", arg(*filter.EmailVerified)))
	}
	if filter.Active != nil {
		conds = append(conds, fmt.Sprintf("active = %s", arg(*filter.Active)))
	}
	if filter.Suspended != nil {
		conds = append(conds, fmt.Sprintf("suspended = %s", arg(*filter.Suspended)))
	}

	query := fmt.Sprintf(`SELECT %s FROM users`, userColumns)
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}

	// Order fields are enums validated at the boundary, safe to interpolate
	if len(filter.OrderBy) > 0 {
		terms := make([]string, len(filter.OrderBy))
		for i, order := range filter.OrderBy {
			dir := "ASC"
			if order.Desc {
				dir = "DESC"
			}
			terms[i] = fmt.Sprintf("%s %s", order.Field, dir)
		}
		query += " ORDER BY " + strings.Join(terms, ", ")
	} else {
		query += " ORDER BY created_at DESC"
	}

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %s", arg(filter.Limit))
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET %s", arg(filter.Offset))
	}

	rows, err := r.db.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []*domain.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate users: %w", err)
	}

	return users, nil
}

func (r *userRepository) getByToken(ctx context.Context, column, token string) (*domain.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE %s = $1`, userColumns, column)

	user, err := scanUser(r.db.DB.QueryRowContext(ctx, query, token))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user with matching token not found: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user by token: %w", err)
	}

	return user, nil
}

// GetByVerificationToken retrieves a user by email verification token
func (r *userRepository) GetByVerificationToken(ctx context.Context, token string) (*domain.User, error) {
	return r.getByToken(ctx, "email_verification_token", token)
}

// GetByResetToken retrieves a user by password reset token
func (r *userRepository) GetByResetToken(ctx context.Context, token string) (*domain.User, error) {
	return r.getByToken(ctx, "password_reset_token", token)
}

// GetByReactivationToken retrieves a user by reactivation token
func (r *userRepository) GetByReactivationToken(ctx context.Context, token string) (*domain.User, error) {
	return r.getByToken(ctx, "reactivation_token", token)
}

func (r *userRepository) setToken(ctx context.Context, userID, tokenColumn, expiresColumn, token string, expires time.Time) error {
	// Token and expiry are written in one statement so a half-set pair is
	// never observable.
	query := fmt.Sprintf(`
		UPDATE users
		SET %s = $2, %s = $3, updated_at = $4
		WHERE id = $1
	`, tokenColumn, expiresColumn)

	result, err := r.db.DB.ExecContext(ctx, query, userID, token, expires, time.Now())
	if err != nil {
		return fmt.Errorf("failed to set token: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("user with id %s not found: %w", userID, ErrNotFound)
	}

	return nil
}

// SetVerificationToken writes the email verification token pair
func (r *userRepository) SetVerificationToken(ctx context.Context, userID, token string, expires time.Time) error {
	return r.setToken(ctx, userID, "email_verification_token", "email_verification_expires", token, expires)
}

// SetResetToken writes the password reset token pair
func (r *userRepository) SetResetToken(ctx context.Context, userID, token string, expires time.Time) error {
	return r.setToken(ctx, userID, "password_reset_token", "password_reset_expires", token, expires)
}

// SetReactivationToken writes the reactivation token pair
func (r *userRepository) SetReactivationToken(ctx context.Context, userID, token string, expires time.Time) error {
	return r.setToken(ctx, userID, "reactivation_token", "reactivation_expires", token, expires)
}

// ConsumeVerificationToken marks the matching user's email as verified and
// clears the token pair. The update is conditioned on the token still being
// present and unexpired, so of two concurrent consume attempts at most one
// can succeed; the loser sees zero rows and gets ErrNotFound.
func (r *userRepository) ConsumeVerificationToken(ctx context.Context, token string, now time.Time) error {
	query := `
		UPDATE users
		SET email_verified = true,
			email_verification_token = NULL,
			email_verification_expires = NULL,
			updated_at = $2
		WHERE email_verification_token = $1 AND email_verification_expires > $2
	`
	return r.consume(ctx, query, token, now)
}

// ConsumeResetToken sets a new password hash and clears the reset token pair
func (r *userRepository) ConsumeResetToken(ctx context.Context, token, passwordHash string, now time.Time) error {
	query := `
		UPDATE users
		SET password_hash = $3,
			password_reset_token = NULL,
			password_reset_expires = NULL,
			updated_at = $2
		WHERE password_reset_token = $1 AND password_reset_expires > $2
	`
	return r.consume(ctx, query, token, now, passwordHash)
}

// ConsumeReactivationToken marks the matching user active again and clears
// the reactivation token pair
func (r *userRepository) ConsumeReactivationToken(ctx context.Context, token string, now time.Time) error {
	query := `
		UPDATE users
		SET active = true,
			reactivation_token = NULL,
			reactivation_expires = NULL,
			updated_at = $2
		WHERE reactivation_token = $1 AND reactivation_expires > $2
	`
	return r.consume(ctx, query, token, now)
}

func (r *userRepository) consume(ctx context.Context, query, token string, now time.Time, extra ...any) error {
	args := append([]any{token, now}, extra...)

	result, err := r.db.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to consume token: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("no valid token matched: %w", ErrNotFound)
	}

	return nil
}

// UpdateProfile updates a user's mutable profile fields
func (r *userRepository) UpdateProfile(ctx context.Context, user *domain.User) error {
	query := `
		UPDATE users
		SET username = $2, picture = $3, phone = $4, address = $5, updated_at = $6
		WHERE id = $1
	`

	result, err := r.db.DB.ExecContext(ctx, query,
		user.ID,
		user.Username,
		user.Picture,
		user.Phone,
		user.Address,
		time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to update profile: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("user with id %s not found: %w", user.ID, ErrNotFound)
	}

	return nil
}

// UpdatePassword replaces the user's password hash
func (r *userRepository) UpdatePassword(ctx context.Context, userID, passwordHash string) error {
	query := `
		UPDATE users
		SET password_hash = $2, updated_at = $3
		WHERE id = $1
	`

	result, err := r.db.DB.ExecContext(ctx, query, userID, passwordHash, time.Now())
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("user with id %s not found: %w", userID, ErrNotFound)
	}

	return nil
}

// SetActive flips the account's active flag
func (r *userRepository) SetActive(ctx context.Context, userID string, active bool) error {
	query := `
		UPDATE users
		SET active = $2, updated_at = $3
		WHERE id = $1
	`

	result, err := r.db.DB.ExecContext(ctx, query, userID, active, time.Now())
	if err != nil {
		return fmt.Errorf("failed to set active flag: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("user with id %s not found: %w", userID, ErrNotFound)
	}

	return nil
}

// UpdateLastLogin updates the last login timestamp for a user
func (r *userRepository) UpdateLastLogin(ctx context.Context, userID string) error {
	query := `
		UPDATE users
		SET last_login_at = $1
		WHERE id = $2
	`

	result, err := r.db.DB.ExecContext(ctx, query, time.Now(), userID)
	if err != nil {
		return fmt.Errorf("failed to update last login: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("user with id %s not found: %w", userID, ErrNotFound)
	}

	return nil
}
