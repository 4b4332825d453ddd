package service

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"

	"github.com/examarena/examarena-backend/internal/model"
	"github.com/examarena/examarena-backend/internal/repository"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// ProfileService handles registration, login, and profile management.
type ProfileService struct {
	profileRepo *repository.ProfileRepository
	authService *AuthService
	media       *MediaService
	log         zerolog.Logger
}

// NewProfileService creates a new ProfileService.
func NewProfileService(
	profileRepo *repository.ProfileRepository,
	authService *AuthService,
	media *MediaService,
	log zerolog.Logger,
) *ProfileService {
	return &ProfileService{
		profileRepo: profileRepo,
		authService: authService,
		media:       media,
		log:         log.With().Str("component", "profile_service").Logger(),
	}
}

// Register creates a new student account. Every self-registered
// account gets the student role; admins are provisioned out of band.
func (s *ProfileService) Register(ctx context.Context, req *model.RegisterRequest) (*model.Profile, error) {
	hash, err := s.authService.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	profile := &model.Profile{
		Email:        req.Email,
		FullName:     req.FullName,
		PasswordHash: hash,
		Role:         model.RoleStudent,
	}

	if err := s.profileRepo.Create(ctx, profile); err != nil {
		return nil, err
	}

	s.log.Info().Str("user_id", profile.ID.String()).Msg("Account registered")
	return profile, nil
}

// Login verifies credentials and issues a token.
func (s *ProfileService) Login(ctx context.Context, req *model.LoginRequest) (*model.LoginResponse, error) {
	profile, err := s.profileRepo.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("get profile: %w", err)
	}

	if err := s.authService.CheckPassword(profile.PasswordHash, req.Password); err != nil {
		return nil, ErrInvalidCredentials
	}

	token, err := s.authService.GenerateToken(ctx, profile.ID, profile.Role)
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}

	return &model.LoginResponse{Token: token, Profile: *profile}, nil
}

// Logout invalidates the user's active session.
func (s *ProfileService) Logout(ctx context.Context, userID uuid.UUID) error {
	return s.authService.SignOut(ctx, userID)
}

// Get retrieves a profile by ID.
func (s *ProfileService) Get(ctx context.Context, userID uuid.UUID) (*model.Profile, error) {
	return s.profileRepo.GetByID(ctx, userID)
}

// UpdateName changes the caller's display name and returns the fresh profile.
func (s *ProfileService) UpdateName(ctx context.Context, userID uuid.UUID, req *model.UpdateProfileRequest) (*model.Profile, error) {
	if err := s.profileRepo.UpdateFullName(ctx, userID, req.FullName); err != nil {
		return nil, fmt.Errorf("update full name: %w", err)
	}
	return s.profileRepo.GetByID(ctx, userID)
}

// ChangePassword re-verifies the current password, stores the new hash
// and invalidates the active session so every client re-authenticates.
func (s *ProfileService) ChangePassword(ctx context.Context, userID uuid.UUID, req *model.UpdatePasswordRequest) error {
	profile, err := s.profileRepo.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("get profile: %w", err)
	}

	if err := s.authService.CheckPassword(profile.PasswordHash, req.CurrentPassword); err != nil {
		return ErrInvalidCredentials
	}

	hash, err := s.authService.HashPassword(req.NewPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.profileRepo.UpdatePassword(ctx, userID, hash); err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	if err := s.authService.SignOut(ctx, userID); err != nil {
		s.log.Warn().Err(err).Str("user_id", userID.String()).Msg("Failed to invalidate session after password change")
	}

	s.log.Info().Str("user_id", userID.String()).Msg("Password changed")
	return nil
}

// SetProfilePicture stores an uploaded image and points the profile at it.
func (s *ProfileService) SetProfilePicture(ctx context.Context, userID uuid.UUID, file multipart.File, header *multipart.FileHeader) (*model.Profile, error) {
	url, err := s.media.SaveUpload(file, header)
	if err != nil {
		return nil, err
	}

	if err := s.profileRepo.UpdateProfilePicture(ctx, userID, url); err != nil {
		return nil, fmt.Errorf("update profile picture: %w", err)
	}

	return s.profileRepo.GetByID(ctx, userID)
}
