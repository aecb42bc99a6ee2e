package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"gorm.io/gorm"

	apperrors "blogapi/internal/errors"
	"blogapi/internal/model"
	"blogapi/internal/repository"
	"blogapi/internal/validation"
)

// ProfilePatch is a partial profile update. A nil field is left unchanged.
type ProfilePatch struct {
	Bio      *string `json:"bio"`
	Location *string `json:"location" validate:"omitempty,max=100"`
	// BirthDate set to "" clears the stored date.
	BirthDate      *string `json:"birth_date" validate:"omitempty,isodate"`
	ProfilePicture *Upload `json:"profile_picture" validate:"-"`
}

// ProfileService reads and updates the caller's own profile.
type ProfileService interface {
	Get(ctx context.Context, callerID uint) (*model.Profile, error)
	Update(ctx context.Context, callerID uint, patch ProfilePatch) (*model.Profile, error)
}

type profileService struct {
	profileRepo repository.ProfileRepository
	media       *Media
	validator   *validation.Validator
	log         *slog.Logger
}

// NewProfileService creates a new profile service.
func NewProfileService(profileRepo repository.ProfileRepository, media *Media, validator *validation.Validator, log *slog.Logger) ProfileService {
	if log == nil {
		log = slog.Default()
	}
	return &profileService{
		profileRepo: profileRepo,
		media:       media,
		validator:   validator,
		log:         log,
	}
}

func (s *profileService) Get(ctx context.Context, callerID uint) (*model.Profile, error) {
	profile, err := s.profileRepo.FindByUserID(ctx, callerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("Not found.")
		}
		return nil, fmt.Errorf("find profile: %w", err)
	}
	return profile, nil
}

// Update merges patch into the caller's profile. Absent fields keep their values.
func (s *profileService) Update(ctx context.Context, callerID uint, patch ProfilePatch) (*model.Profile, error) {
	profile, err := s.Get(ctx, callerID)
	if err != nil {
		return nil, err
	}

	if patch.Bio != nil {
		trimmed := strings.TrimSpace(*patch.Bio)
		patch.Bio = &trimmed
	}
	if patch.Location != nil {
		trimmed := strings.TrimSpace(*patch.Location)
		patch.Location = &trimmed
	}
	if err := s.validator.Validate(&patch); err != nil {
		return nil, err
	}

	if patch.Bio != nil {
		profile.Bio = *patch.Bio
	}
	if patch.Location != nil {
		profile.Location = *patch.Location
	}
	if patch.BirthDate != nil {
		birthDate, err := parseOptionalDate("birth_date", *patch.BirthDate)
		if err != nil {
			return nil, err
		}
		profile.BirthDate = birthDate
	}

	oldPicture := profile.ProfilePicture
	key, err := s.media.save(ctx, "profile_picture", profilePicturePrefix, patch.ProfilePicture)
	if err != nil {
		return nil, err
	}
	if key != "" {
		profile.ProfilePicture = &key
	}

	if err := s.profileRepo.Update(ctx, profile); err != nil {
		s.media.remove(ctx, optionalKey(key))
		return nil, fmt.Errorf("update profile: %w", err)
	}
	if key != "" {
		s.media.remove(ctx, oldPicture)
	}

	s.log.InfoContext(ctx, "profile updated", "user_id", callerID)
	return profile, nil
}
