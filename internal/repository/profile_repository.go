package repository

import (
	"context"
	"errors"

	"github.com/examarena/examarena-backend/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrDuplicateEmail = errors.New("account with this email already exists")

// ProfileRepository handles user account data access.
type ProfileRepository struct {
	pool *pgxpool.Pool
}

// NewProfileRepository creates a new ProfileRepository.
func NewProfileRepository(pool *pgxpool.Pool) *ProfileRepository {
	return &ProfileRepository{pool: pool}
}

// GetByID retrieves a profile by ID.
func (r *ProfileRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Profile, error) {
	p := &model.Profile{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, email, full_name, password_hash, profile_picture_url, role, created_at, updated_at
		 FROM profiles WHERE id = $1`, id,
	).Scan(&p.ID, &p.Email, &p.FullName, &p.PasswordHash, &p.ProfilePictureURL, &p.Role, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// GetByEmail retrieves a profile by their unique email.
func (r *ProfileRepository) GetByEmail(ctx context.Context, email string) (*model.Profile, error) {
	p := &model.Profile{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, email, full_name, password_hash, profile_picture_url, role, created_at, updated_at
		 FROM profiles WHERE LOWER(email) = LOWER($1)`, email,
	).Scan(&p.ID, &p.Email, &p.FullName, &p.PasswordHash, &p.ProfilePictureURL, &p.Role, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Create inserts a new profile.
func (r *ProfileRepository) Create(ctx context.Context, p *model.Profile) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO profiles (email, full_name, password_hash, role)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at, updated_at`,
		p.Email, p.FullName, p.PasswordHash, p.Role,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateEmail
		}
		return err
	}
	return nil
}

// UpdateFullName changes a profile's display name. Email and role are
// immutable from the profile surface.
func (r *ProfileRepository) UpdateFullName(ctx context.Context, id uuid.UUID, fullName string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE profiles SET full_name = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2`,
		fullName, id,
	)
	return err
}

// UpdateProfilePicture sets the stored picture URL for a profile.
func (r *ProfileRepository) UpdateProfilePicture(ctx context.Context, id uuid.UUID, url string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE profiles SET profile_picture_url = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2`,
		url, id,
	)
	return err
}

// UpdatePassword updates a profile's password hash.
func (r *ProfileRepository) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE profiles SET password_hash = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2`,
		passwordHash, id,
	)
	return err
}

// CountByRole returns the number of accounts with the given role.
func (r *ProfileRepository) CountByRole(ctx context.Context, role model.Role) (int64, error) {
	var total int64
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM profiles WHERE role = $1`, role,
	).Scan(&total)
	return total, err
}
