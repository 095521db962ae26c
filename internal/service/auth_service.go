package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/activity-log-api/internal/models"
	appErrors "github.com/noah-isme/activity-log-api/pkg/errors"
	"github.com/noah-isme/activity-log-api/pkg/logger"
)

type authUserRepository interface {
	FindByLogin(ctx context.Context, login string) (*models.User, error)
}

type loginRecorder interface {
	RecordLogin(ctx context.Context, attempt LoginAttempt) error
}

// AuthConfig defines configuration for authentication flows.
type AuthConfig struct {
	AccessTokenSecret string
	AccessTokenExpiry time.Duration
	Issuer            string
}

// AuthService provides authentication use cases.
type AuthService struct {
	repo      authUserRepository
	events    loginRecorder
	validator *validator.Validate
	logger    *zap.Logger
	config    AuthConfig
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(repo authUserRepository, events loginRecorder, validate *validator.Validate, logger *zap.Logger, config AuthConfig) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if config.AccessTokenExpiry <= 0 {
		config.AccessTokenExpiry = 24 * time.Hour
	}
	return &AuthService{repo: repo, events: events, validator: validate, logger: logger, config: config}
}

// Login authenticates a user and returns an access token. Every attempt
// that gets past payload validation is written to the activity log.
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest, meta models.RequestMeta) (*models.LoginResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid login payload")
	}

	user, err := s.repo.FindByLogin(ctx, req.Login)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, s.rejectLogin(ctx, nil, req.Login, meta)
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch user")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, s.rejectLogin(ctx, models.Int64Ptr(user.ID), req.Login, meta)
	}

	if err := s.events.RecordLogin(ctx, LoginAttempt{
		UserID:    models.Int64Ptr(user.ID),
		Login:     user.Login,
		IP:        meta.IP,
		Succeeded: true,
	}); err != nil {
		return nil, err
	}

	issuedAt := time.Now().UTC()
	accessToken, err := s.generateAccessToken(user, issuedAt)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create access token")
	}

	return &models.LoginResponse{
		AccessToken: accessToken,
		ExpiresIn:   int64(s.config.AccessTokenExpiry.Seconds()),
		IssuedAt:    issuedAt,
		User: models.UserInfo{
			ID:          user.ID,
			Login:       user.Login,
			Email:       user.Email,
			DisplayName: user.DisplayName,
			Roles:       []string(user.Roles),
		},
	}, nil
}

func (s *AuthService) rejectLogin(ctx context.Context, userID *int64, login string, meta models.RequestMeta) error {
	if err := s.events.RecordLogin(ctx, LoginAttempt{UserID: userID, Login: login, IP: meta.IP}); err != nil {
		return err
	}
	logger.FromContext(s.logger, ctx).Info("login rejected", zap.String("login", login), zap.String("ip", meta.IP))
	return appErrors.ErrInvalidCredentials
}

// ValidateToken parses and validates an access token returning the claims.
func (s *AuthService) ValidateToken(tokenString string) (*models.JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.AccessTokenSecret), nil
	}, jwt.WithIssuer(s.config.Issuer))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token")
	}

	claims, ok := token.Claims.(*models.JWTClaims)
	if !ok || !token.Valid {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token claims")
	}

	return claims, nil
}

func (s *AuthService) generateAccessToken(user *models.User, issuedAt time.Time) (string, error) {
	claims := &models.JWTClaims{
		UserID: user.ID,
		Login:  user.Login,
		Roles:  []string(user.Roles),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    s.config.Issuer,
			Subject:   strconv.FormatInt(user.ID, 10),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(s.config.AccessTokenExpiry)),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.config.AccessTokenSecret))
}
