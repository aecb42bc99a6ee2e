package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"blogapi/internal/auth"
	apperrors "blogapi/internal/errors"
	"blogapi/internal/metrics"
	"blogapi/internal/model"
	"blogapi/internal/repository"
	"blogapi/internal/validation"
)

const bcryptCost = 10

const (
	msgInvalidCredentials = "Invalid credentials"
	msgInvalidToken       = "Token is invalid or expired"
	msgUsernameTaken      = "A user with that username already exists."
	msgEmailTaken         = "A user with that email already exists."
	msgBadDate            = "Date has wrong format. Use one of these formats instead: YYYY-MM-DD."
)

// RegisterInput carries the fields accepted at registration.
type RegisterInput struct {
	Username string `json:"username" validate:"required,max=150,username"`
	Email    string `json:"email" validate:"required,max=254,email"`
	Password string `json:"password" validate:"required"`
	Bio      string `json:"bio"`
	Location string `json:"location" validate:"max=100"`
	// BirthDate is "YYYY-MM-DD" or empty.
	BirthDate      string  `json:"birth_date" validate:"isodate"`
	ProfilePicture *Upload `json:"profile_picture" validate:"-"`
}

// AuthService handles authentication operations.
type AuthService interface {
	Register(ctx context.Context, in RegisterInput) (*model.User, error)
	Login(ctx context.Context, username, password string) (*auth.TokenPair, error)
	RefreshToken(ctx context.Context, refreshToken string) (accessToken string, err error)
	Logout(ctx context.Context, refreshToken string) error
}

type authService struct {
	userRepo   repository.UserRepository
	jwtService *auth.JWTService
	tokenStore auth.TokenStoreInterface
	media      *Media
	validator  *validation.Validator
	metrics    *metrics.Metrics
	log        *slog.Logger
}

// NewAuthService creates a new authentication service.
func NewAuthService(
	userRepo repository.UserRepository,
	jwtService *auth.JWTService,
	tokenStore auth.TokenStoreInterface,
	media *Media,
	validator *validation.Validator,
	m *metrics.Metrics,
	log *slog.Logger,
) AuthService {
	if log == nil {
		log = slog.Default()
	}
	return &authService{
		userRepo:   userRepo,
		jwtService: jwtService,
		tokenStore: tokenStore,
		media:      media,
		validator:  validator,
		metrics:    m,
		log:        log,
	}
}

// Register creates a user and its profile atomically.
func (s *authService) Register(ctx context.Context, in RegisterInput) (*model.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	in.Bio = strings.TrimSpace(in.Bio)
	in.Location = strings.TrimSpace(in.Location)

	verr := &apperrors.ValidationError{}
	if err := s.validator.Validate(&in); err != nil {
		if !errors.As(err, &verr) {
			return nil, err
		}
	}
	if err := s.checkUnique(ctx, in.Username, in.Email, verr); err != nil {
		return nil, err
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	birthDate, err := parseOptionalDate("birth_date", in.BirthDate)
	if err != nil {
		return nil, err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	key, err := s.media.save(ctx, "profile_picture", profilePicturePrefix, in.ProfilePicture)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: string(hashed),
	}
	profile := &model.Profile{
		Bio:            in.Bio,
		Location:       in.Location,
		BirthDate:      birthDate,
		ProfilePicture: optionalKey(key),
	}

	if err := s.userRepo.CreateWithProfile(ctx, user, profile); err != nil {
		s.media.remove(ctx, optionalKey(key))
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// Lost a race with a concurrent registration.
			dup := &apperrors.ValidationError{}
			if cerr := s.checkUnique(ctx, in.Username, in.Email, dup); cerr == nil && dup.HasErrors() {
				return nil, dup
			}
			return nil, apperrors.NewValidationError("username", msgUsernameTaken)
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.log.InfoContext(ctx, "user registered", "user_id", user.ID, "username", user.Username)
	return user, nil
}

// checkUnique adds a message to verr for each identifier already taken.
// Fields that already failed validation are not looked up.
func (s *authService) checkUnique(ctx context.Context, username, email string, verr *apperrors.ValidationError) error {
	if username != "" && len(verr.Fields["username"]) == 0 {
		taken, err := exists(s.userRepo.FindByUsername(ctx, username))
		if err != nil {
			return fmt.Errorf("check username: %w", err)
		}
		if taken {
			verr.Add("username", msgUsernameTaken)
		}
	}
	if email != "" && len(verr.Fields["email"]) == 0 {
		taken, err := exists(s.userRepo.FindByEmail(ctx, email))
		if err != nil {
			return fmt.Errorf("check email: %w", err)
		}
		if taken {
			verr.Add("email", msgEmailTaken)
		}
	}
	return nil
}

func exists(user *model.User, err error) (bool, error) {
	if err == nil {
		return user != nil, nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	return false, err
}

// Login authenticates a user and issues an access/refresh token pair.
func (s *authService) Login(ctx context.Context, username, password string) (*auth.TokenPair, error) {
	user, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("find user: %w", err)
		}
		s.metrics.ObserveLogin("invalid_credentials")
		s.log.WarnContext(ctx, "login failed", "username", username, "reason", "unknown user")
		return nil, apperrors.Unauthenticated(msgInvalidCredentials)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		s.metrics.ObserveLogin("invalid_credentials")
		s.log.WarnContext(ctx, "login failed", "username", username, "reason", "password mismatch")
		return nil, apperrors.Unauthenticated(msgInvalidCredentials)
	}

	pair, err := s.jwtService.GenerateTokenPair(user.ID, user.Username)
	if err != nil {
		return nil, fmt.Errorf("generate token pair: %w", err)
	}

	if err := s.tokenStore.StoreRefreshToken(ctx, pair.RefreshID, user.ID, s.jwtService.RefreshTTL()); err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}

	s.metrics.ObserveLogin("success")
	return pair, nil
}

// RefreshToken validates a refresh token and returns a new access token.
func (s *authService) RefreshToken(ctx context.Context, refreshToken string) (string, error) {
	claims, err := s.jwtService.ValidateRefreshToken(refreshToken)
	if err != nil {
		return "", apperrors.Unauthenticated(msgInvalidToken)
	}

	storedUserID, err := s.tokenStore.GetRefreshToken(ctx, claims.ID)
	if errors.Is(err, auth.ErrRefreshTokenNotFound) {
		return "", apperrors.Unauthenticated(msgInvalidToken)
	}
	if err != nil {
		return "", fmt.Errorf("lookup refresh token: %w", err)
	}
	if storedUserID != claims.UserID {
		return "", apperrors.Unauthenticated(msgInvalidToken)
	}

	accessToken, err := s.jwtService.GenerateAccessToken(claims.UserID, claims.Username)
	if err != nil {
		return "", fmt.Errorf("generate access token: %w", err)
	}
	return accessToken, nil
}

// Logout revokes a refresh token.
func (s *authService) Logout(ctx context.Context, refreshToken string) error {
	claims, err := s.jwtService.ValidateRefreshToken(refreshToken)
	if err != nil {
		return apperrors.Unauthenticated(msgInvalidToken)
	}
	if err := s.tokenStore.DeleteRefreshToken(ctx, claims.ID); err != nil {
		return fmt.Errorf("delete refresh token: %w", err)
	}
	return nil
}

func optionalKey(key string) *string {
	if key == "" {
		return nil
	}
	return &key
}

// parseOptionalDate parses s as a date. An empty s yields nil.
func parseOptionalDate(field, s string) (*model.Date, error) {
	if s == "" {
		return nil, nil
	}
	d, err := model.ParseDate(s)
	if err != nil {
		return nil, apperrors.NewValidationError(field, msgBadDate)
	}
	return &d, nil
}
