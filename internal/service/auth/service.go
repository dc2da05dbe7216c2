package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"linguachat-backend/internal/domain"
	"linguachat-backend/internal/repository/postgres"
	apperrors "linguachat-backend/pkg/errors"
	"linguachat-backend/pkg/jwt"
	"linguachat-backend/pkg/logger"
	"linguachat-backend/pkg/password"
)

// UserStore persists user accounts
type UserStore interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, userID uuid.UUID) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	Update(ctx context.Context, user *domain.User) error
}

// TokenManager issues and validates JWT token pairs
type TokenManager interface {
	GenerateAccessToken(userID uuid.UUID, email string) (string, error)
	GenerateRefreshToken(userID uuid.UUID, email string) (string, error)
	ValidateToken(token string) (*jwt.Claims, error)
}

// CacheInvalidator drops stale cached user rows after settings change.
// Implemented by the message pipeline; nil when no cache is wired.
type CacheInvalidator interface {
	InvalidateUserCache(userID uuid.UUID)
}

// AuthResult carries a user plus a fresh token pair
type AuthResult struct {
	User         *domain.UserResponse `json:"user"`
	AccessToken  string               `json:"access_token"`
	RefreshToken string               `json:"refresh_token"`
	TokenType    string               `json:"token_type"`
}

// Service handles registration, login and profile management
type Service struct {
	users       UserStore
	tokens      TokenManager
	invalidator CacheInvalidator
}

// NewService creates an auth service
func NewService(users UserStore, tokens TokenManager) *Service {
	return &Service{users: users, tokens: tokens}
}

// SetCacheInvalidator wires the pipeline's user cache for settings updates
func (s *Service) SetCacheInvalidator(invalidator CacheInvalidator) {
	s.invalidator = invalidator
}

// Register creates a new account and logs it in
func (s *Service) Register(ctx context.Context, input *domain.UserCreate) (*AuthResult, error) {
	if err := password.Validate(input.Password); err != nil {
		return nil, apperrors.ValidationError(err.Error())
	}

	language := input.PreferredLanguage
	if language == "" {
		language = domain.LanguageEN
	}
	if !language.IsValid() {
		return nil, apperrors.ValidationError("unsupported language: " + string(language))
	}
	tone := input.PreferredTone
	if tone == "" {
		tone = domain.ToneStandard
	}
	if !tone.IsValid() {
		return nil, apperrors.ValidationError("unsupported tone: " + string(tone))
	}

	email := strings.ToLower(strings.TrimSpace(input.Email))
	exists, err := s.users.EmailExists(ctx, email)
	if err != nil {
		return nil, apperrors.DatabaseError(err)
	}
	if exists {
		return nil, apperrors.EmailExistsError()
	}

	hash, err := password.Hash(input.Password)
	if err != nil {
		return nil, apperrors.InternalError("failed to hash password")
	}

	now := time.Now().UTC()
	user := &domain.User{
		UserID:            uuid.New(),
		Email:             email,
		FullName:          strings.TrimSpace(input.FullName),
		PasswordHash:      hash,
		PreferredLanguage: language,
		PreferredTone:     tone,
		IsActive:          true,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, apperrors.DatabaseError(err)
	}

	logger.Info("user registered",
		zap.String("user_id", user.UserID.String()),
		zap.String("language", string(language)),
	)
	return s.issueTokens(user)
}

// Login verifies credentials and issues a token pair
func (s *Service) Login(ctx context.Context, input *domain.UserLogin) (*AuthResult, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, postgres.ErrNotFound) {
			return nil, apperrors.InvalidCredentialsError()
		}
		return nil, apperrors.DatabaseError(err)
	}
	if !user.IsActive {
		return nil, apperrors.ForbiddenError("account is deactivated")
	}
	if !password.Verify(input.Password, user.PasswordHash) {
		return nil, apperrors.InvalidCredentialsError()
	}

	logger.Info("user logged in", zap.String("user_id", user.UserID.String()))
	return s.issueTokens(user)
}

// Refresh exchanges a valid refresh token for a new token pair
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*AuthResult, error) {
	claims, err := s.tokens.ValidateToken(refreshToken)
	if err != nil {
		return nil, apperrors.InvalidTokenError("invalid refresh token")
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, postgres.ErrNotFound) {
			return nil, apperrors.InvalidTokenError("user no longer exists")
		}
		return nil, apperrors.DatabaseError(err)
	}
	if !user.IsActive {
		return nil, apperrors.ForbiddenError("account is deactivated")
	}
	return s.issueTokens(user)
}

// GetProfile returns the caller's own profile
func (s *Service) GetProfile(ctx context.Context, userID uuid.UUID) (*domain.UserResponse, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, postgres.ErrNotFound) {
			return nil, apperrors.UserNotFoundError()
		}
		return nil, apperrors.DatabaseError(err)
	}
	return user.ToResponse(), nil
}

// UpdateProfile applies profile and language settings changes. Language
// changes take effect for the next message; in-flight translations keep
// their original target.
func (s *Service) UpdateProfile(ctx context.Context, userID uuid.UUID, input *domain.UserUpdate) (*domain.UserResponse, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, postgres.ErrNotFound) {
			return nil, apperrors.UserNotFoundError()
		}
		return nil, apperrors.DatabaseError(err)
	}

	if input.FullName != nil {
		name := strings.TrimSpace(*input.FullName)
		if name == "" {
			return nil, apperrors.ValidationError("full name cannot be empty")
		}
		user.FullName = name
	}
	if input.AvatarURL != nil {
		user.AvatarURL = input.AvatarURL
	}
	if input.PreferredLanguage != nil {
		if !input.PreferredLanguage.IsValid() {
			return nil, apperrors.ValidationError("unsupported language: " + string(*input.PreferredLanguage))
		}
		user.PreferredLanguage = *input.PreferredLanguage
	}
	if input.PreferredTone != nil {
		if !input.PreferredTone.IsValid() {
			return nil, apperrors.ValidationError("unsupported tone: " + string(*input.PreferredTone))
		}
		user.PreferredTone = *input.PreferredTone
	}

	if err := s.users.Update(ctx, user); err != nil {
		return nil, apperrors.DatabaseError(err)
	}
	if s.invalidator != nil {
		s.invalidator.InvalidateUserCache(userID)
	}
	return user.ToResponse(), nil
}

// GetUser returns another user's public profile
func (s *Service) GetUser(ctx context.Context, userID uuid.UUID) (*domain.UserResponse, error) {
	return s.GetProfile(ctx, userID)
}

func (s *Service) issueTokens(user *domain.User) (*AuthResult, error) {
	accessToken, err := s.tokens.GenerateAccessToken(user.UserID, user.Email)
	if err != nil {
		return nil, apperrors.InternalError("failed to generate access token")
	}
	refreshToken, err := s.tokens.GenerateRefreshToken(user.UserID, user.Email)
	if err != nil {
		return nil, apperrors.InternalError("failed to generate refresh token")
	}

	return &AuthResult{
		User:         user.ToResponse(),
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "bearer",
	}, nil
}
