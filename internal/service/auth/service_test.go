package auth

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linguachat-backend/internal/domain"
	"linguachat-backend/internal/repository/postgres"
	apperrors "linguachat-backend/pkg/errors"
	"linguachat-backend/pkg/jwt"
	"linguachat-backend/pkg/password"
)

type fakeUserStore struct {
	byID    map[uuid.UUID]*domain.User
	byEmail map[string]*domain.User
	updated []*domain.User
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{
		byID:    make(map[uuid.UUID]*domain.User),
		byEmail: make(map[string]*domain.User),
	}
}

func (f *fakeUserStore) Create(ctx context.Context, user *domain.User) error {
	f.byID[user.UserID] = user
	f.byEmail[user.Email] = user
	return nil
}

func (f *fakeUserStore) GetByID(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	if user, ok := f.byID[userID]; ok {
		return user, nil
	}
	return nil, postgres.ErrNotFound
}

func (f *fakeUserStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	if user, ok := f.byEmail[email]; ok {
		return user, nil
	}
	return nil, postgres.ErrNotFound
}

func (f *fakeUserStore) EmailExists(ctx context.Context, email string) (bool, error) {
	_, ok := f.byEmail[email]
	return ok, nil
}

func (f *fakeUserStore) Update(ctx context.Context, user *domain.User) error {
	f.updated = append(f.updated, user)
	return nil
}

type recordingInvalidator struct {
	invalidated []uuid.UUID
}

func (r *recordingInvalidator) InvalidateUserCache(userID uuid.UUID) {
	r.invalidated = append(r.invalidated, userID)
}

func newAuthService() (*Service, *fakeUserStore) {
	store := newFakeUserStore()
	tokens := jwt.NewManager("test-secret-key-for-auth-service", 15*time.Minute, 24*time.Hour)
	return NewService(store, tokens), store
}

func TestRegisterAndLogin(t *testing.T) {
	svc, store := newAuthService()

	result, err := svc.Register(context.Background(), &domain.UserCreate{
		Email:             "Alice@Example.com",
		FullName:          "  Alice  ",
		Password:          "sup3rsecret",
		PreferredLanguage: domain.LanguageFR,
		PreferredTone:     domain.ToneFormal,
	})
	require.NoError(t, err)

	assert.Equal(t, "alice@example.com", result.User.Email, "email must be normalized")
	assert.Equal(t, "Alice", result.User.FullName)
	assert.Equal(t, domain.LanguageFR, result.User.PreferredLanguage)
	assert.Equal(t, domain.ToneFormal, result.User.PreferredTone)
	assert.NotEmpty(t, result.AccessToken)
	assert.NotEmpty(t, result.RefreshToken)
	assert.Equal(t, "bearer", result.TokenType)

	stored := store.byEmail["alice@example.com"]
	require.NotNil(t, stored)
	assert.NotEqual(t, "sup3rsecret", stored.PasswordHash, "password must be hashed")
	assert.True(t, password.Verify("sup3rsecret", stored.PasswordHash))

	login, err := svc.Login(context.Background(), &domain.UserLogin{
		Email:    "alice@example.com",
		Password: "sup3rsecret",
	})
	require.NoError(t, err)
	assert.Equal(t, result.User.UserID, login.User.UserID)
}

func TestRegisterDefaults(t *testing.T) {
	svc, _ := newAuthService()

	result, err := svc.Register(context.Background(), &domain.UserCreate{
		Email:    "bob@example.com",
		FullName: "Bob",
		Password: "passw0rd",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.LanguageEN, result.User.PreferredLanguage)
	assert.Equal(t, domain.ToneStandard, result.User.PreferredTone)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc, _ := newAuthService()

	_, err := svc.Register(context.Background(), &domain.UserCreate{
		Email: "dup@example.com", FullName: "First", Password: "passw0rd",
	})
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), &domain.UserCreate{
		Email: "Dup@example.com", FullName: "Second", Password: "passw0rd",
	})
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeEmailExists, apperrors.GetAppError(err).Code)
}

func TestRegisterWeakPassword(t *testing.T) {
	svc, _ := newAuthService()

	for _, weak := range []string{"short1", "onlyletters", "12345678"} {
		_, err := svc.Register(context.Background(), &domain.UserCreate{
			Email: "weak@example.com", FullName: "Weak", Password: weak,
		})
		require.Error(t, err, "password %q must be rejected", weak)
		assert.Equal(t, apperrors.ErrCodeValidation, apperrors.GetAppError(err).Code)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	svc, _ := newAuthService()

	_, err := svc.Register(context.Background(), &domain.UserCreate{
		Email: "carol@example.com", FullName: "Carol", Password: "passw0rd",
	})
	require.NoError(t, err)

	_, err = svc.Login(context.Background(), &domain.UserLogin{
		Email: "carol@example.com", Password: "wrongpass1",
	})
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeInvalidCreds, apperrors.GetAppError(err).Code)

	_, err = svc.Login(context.Background(), &domain.UserLogin{
		Email: "nobody@example.com", Password: "passw0rd",
	})
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeInvalidCreds, apperrors.GetAppError(err).Code,
		"unknown email and wrong password must be indistinguishable")
}

func TestLoginDeactivatedAccount(t *testing.T) {
	svc, store := newAuthService()

	result, err := svc.Register(context.Background(), &domain.UserCreate{
		Email: "gone@example.com", FullName: "Gone", Password: "passw0rd",
	})
	require.NoError(t, err)
	store.byID[result.User.UserID].IsActive = false

	_, err = svc.Login(context.Background(), &domain.UserLogin{
		Email: "gone@example.com", Password: "passw0rd",
	})
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeForbidden, apperrors.GetAppError(err).Code)
}

func TestRefresh(t *testing.T) {
	svc, _ := newAuthService()

	result, err := svc.Register(context.Background(), &domain.UserCreate{
		Email: "dave@example.com", FullName: "Dave", Password: "passw0rd",
	})
	require.NoError(t, err)

	refreshed, err := svc.Refresh(context.Background(), result.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, result.User.UserID, refreshed.User.UserID)
	assert.NotEmpty(t, refreshed.AccessToken)

	_, err = svc.Refresh(context.Background(), "not-a-token")
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeInvalidToken, apperrors.GetAppError(err).Code)
}

func TestUpdateProfile(t *testing.T) {
	svc, store := newAuthService()
	invalidator := &recordingInvalidator{}
	svc.SetCacheInvalidator(invalidator)

	result, err := svc.Register(context.Background(), &domain.UserCreate{
		Email: "eve@example.com", FullName: "Eve", Password: "passw0rd",
	})
	require.NoError(t, err)

	newLang := domain.LanguageJA
	newTone := domain.ToneCasual
	newName := "Eve Updated"
	updated, err := svc.UpdateProfile(context.Background(), result.User.UserID, &domain.UserUpdate{
		FullName:          &newName,
		PreferredLanguage: &newLang,
		PreferredTone:     &newTone,
	})
	require.NoError(t, err)

	assert.Equal(t, "Eve Updated", updated.FullName)
	assert.Equal(t, domain.LanguageJA, updated.PreferredLanguage)
	assert.Equal(t, domain.ToneCasual, updated.PreferredTone)
	require.Len(t, store.updated, 1)
	assert.Equal(t, []uuid.UUID{result.User.UserID}, invalidator.invalidated,
		"settings change must drop the cached user row")

	badLang := domain.Language("xx")
	_, err = svc.UpdateProfile(context.Background(), result.User.UserID, &domain.UserUpdate{
		PreferredLanguage: &badLang,
	})
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeValidation, apperrors.GetAppError(err).Code)
}

func TestGetProfileNotFound(t *testing.T) {
	svc, _ := newAuthService()

	_, err := svc.GetProfile(context.Background(), uuid.New())
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeUserNotFound, apperrors.GetAppError(err).Code)
}
