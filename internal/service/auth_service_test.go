package service

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/activity-log-api/internal/models"
	appErrors "github.com/noah-isme/activity-log-api/pkg/errors"
)

type mockAuthRepo struct {
	user *models.User
	err  error
}

func (m *mockAuthRepo) FindByLogin(ctx context.Context, login string) (*models.User, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.user == nil || (m.user.Login != login && m.user.Email != login) {
		return nil, sql.ErrNoRows
	}
	return m.user, nil
}

type recordedLogins struct {
	attempts []LoginAttempt
	err      error
}

func (r *recordedLogins) RecordLogin(ctx context.Context, attempt LoginAttempt) error {
	if r.err != nil {
		return r.err
	}
	r.attempts = append(r.attempts, attempt)
	return nil
}

func newAuthUser(t *testing.T) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	require.NoError(t, err)
	return &models.User{ID: 1, Login: "admin", Email: "admin@example.com", PasswordHash: string(hash), Roles: []string{"administrator"}}
}

func newAuthServiceForTest(repo *mockAuthRepo, events *recordedLogins) *AuthService {
	return NewAuthService(repo, events, validator.New(), zap.NewNop(), AuthConfig{
		AccessTokenSecret: "secret",
		AccessTokenExpiry: time.Hour,
		Issuer:            "activity-log-api",
	})
}

func TestAuthServiceLoginSuccess(t *testing.T) {
	events := &recordedLogins{}
	svc := newAuthServiceForTest(&mockAuthRepo{user: newAuthUser(t)}, events)

	resp, err := svc.Login(context.Background(), models.LoginRequest{Login: "admin", Password: "password123"}, models.RequestMeta{IP: "10.0.0.9"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.Equal(t, int64(3600), resp.ExpiresIn)
	assert.Equal(t, []string{"administrator"}, resp.User.Roles)

	require.Len(t, events.attempts, 1)
	assert.True(t, events.attempts[0].Succeeded)
	assert.Equal(t, "10.0.0.9", events.attempts[0].IP)
	assert.Equal(t, int64(1), *events.attempts[0].UserID)

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, int64(1), claims.UserID)
	assert.True(t, claims.HasAnyRole(models.RoleAdministrator))
	assert.NotEmpty(t, claims.ID)
}

func TestAuthServiceLoginWrongPassword(t *testing.T) {
	events := &recordedLogins{}
	svc := newAuthServiceForTest(&mockAuthRepo{user: newAuthUser(t)}, events)

	_, err := svc.Login(context.Background(), models.LoginRequest{Login: "admin", Password: "nope"}, models.RequestMeta{IP: "10.0.0.9"})
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, appErrors.FromError(err).Status)

	require.Len(t, events.attempts, 1)
	assert.False(t, events.attempts[0].Succeeded)
	assert.Equal(t, int64(1), *events.attempts[0].UserID)
}

func TestAuthServiceLoginUnknownUserIsRecordedAsGuest(t *testing.T) {
	events := &recordedLogins{}
	svc := newAuthServiceForTest(&mockAuthRepo{}, events)

	_, err := svc.Login(context.Background(), models.LoginRequest{Login: "ghost", Password: "x"}, models.RequestMeta{})
	require.Error(t, err)
	require.Len(t, events.attempts, 1)
	assert.Nil(t, events.attempts[0].UserID)
	assert.Equal(t, "ghost", events.attempts[0].Login)
}

func TestAuthServiceLoginFailsWhenRecordingFails(t *testing.T) {
	events := &recordedLogins{err: appErrors.Clone(appErrors.ErrInternal, "failed to record event")}
	svc := newAuthServiceForTest(&mockAuthRepo{user: newAuthUser(t)}, events)

	_, err := svc.Login(context.Background(), models.LoginRequest{Login: "admin", Password: "password123"}, models.RequestMeta{})
	require.Error(t, err)
	assert.Equal(t, http.StatusInternalServerError, appErrors.FromError(err).Status)
}

func TestAuthServiceLoginValidation(t *testing.T) {
	events := &recordedLogins{}
	svc := newAuthServiceForTest(&mockAuthRepo{}, events)

	_, err := svc.Login(context.Background(), models.LoginRequest{}, models.RequestMeta{})
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, appErrors.FromError(err).Status)
	assert.Empty(t, events.attempts)
}

func TestAuthServiceLoginRepositoryError(t *testing.T) {
	svc := newAuthServiceForTest(&mockAuthRepo{err: errors.New("db down")}, &recordedLogins{})

	_, err := svc.Login(context.Background(), models.LoginRequest{Login: "admin", Password: "x"}, models.RequestMeta{})
	require.Error(t, err)
	assert.Equal(t, http.StatusInternalServerError, appErrors.FromError(err).Status)
}

func TestAuthServiceValidateTokenRejectsGarbage(t *testing.T) {
	svc := newAuthServiceForTest(&mockAuthRepo{}, &recordedLogins{})

	_, err := svc.ValidateToken("not-a-token")
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, appErrors.FromError(err).Status)
}
