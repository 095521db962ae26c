package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/activity-log-api/internal/models"
	appErrors "github.com/noah-isme/activity-log-api/pkg/errors"
	"github.com/noah-isme/activity-log-api/pkg/logger"
)

type userRepository interface {
	List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error)
	FindByID(ctx context.Context, id int64) (*models.User, error)
	FindByLogin(ctx context.Context, login string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, id int64) error
}

type userChangeRecorder interface {
	RecordUserChange(ctx context.Context, change UserChange) error
}

type identityForgetter interface {
	Forget(ctx context.Context, id int64)
}

// CreateUserRequest represents payload for creating users.
type CreateUserRequest struct {
	Login       string   `json:"login" validate:"required,max=60"`
	Email       string   `json:"email" validate:"required,email"`
	DisplayName string   `json:"display_name" validate:"max=250"`
	Roles       []string `json:"roles" validate:"required,min=1,dive,oneof=administrator editor author contributor subscriber"`
	Password    string   `json:"password" validate:"required,min=6"`
}

// UpdateUserRequest payload for updating users.
type UpdateUserRequest struct {
	Email       string   `json:"email" validate:"required,email"`
	DisplayName string   `json:"display_name" validate:"max=250"`
	Roles       []string `json:"roles" validate:"required,min=1,dive,oneof=administrator editor author contributor subscriber"`
}

// UserService handles user management workflows.
type UserService struct {
	repo      userRepository
	events    userChangeRecorder
	directory identityForgetter
	validator *validator.Validate
	logger    *zap.Logger
}

// NewUserService creates an instance of UserService.
func NewUserService(repo userRepository, events userChangeRecorder, directory identityForgetter, validate *validator.Validate, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &UserService{repo: repo, events: events, directory: directory, validator: validate, logger: logger}
}

// List returns paginated users and pagination metadata.
func (s *UserService) List(ctx context.Context, filter models.UserFilter) ([]models.User, *models.Pagination, error) {
	users, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list users")
	}

	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	window := models.NewPageWindow(filter.Page, pageSize)

	return users, models.NewPagination(window, total), nil
}

// Get returns a user by ID.
func (s *UserService) Get(ctx context.Context, id int64) (*models.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	return user, nil
}

// Create adds a new user.
func (s *UserService) Create(ctx context.Context, req CreateUserRequest, actorID int64, meta models.RequestMeta) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid create user payload")
	}

	for _, identity := range []string{req.Login, req.Email} {
		if _, err := s.repo.FindByLogin(ctx, identity); err == nil {
			return nil, appErrors.Clone(appErrors.ErrConflict, "login or email already exists")
		} else if !errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check login uniqueness")
		}
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	user := &models.User{
		Login:        strings.TrimSpace(req.Login),
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		DisplayName:  strings.TrimSpace(req.DisplayName),
		Roles:        req.Roles,
		PasswordHash: string(passwordHash),
	}

	if err := s.repo.Create(ctx, user); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create user")
	}

	if err := s.recordChange(ctx, user, models.EventTypeCreated, actorID, meta); err != nil {
		return nil, err
	}
	return user, nil
}

// Update modifies the user attributes.
func (s *UserService) Update(ctx context.Context, id int64, req UpdateUserRequest, actorID int64, meta models.RequestMeta) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid update payload")
	}

	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	user.Email = strings.ToLower(strings.TrimSpace(req.Email))
	user.DisplayName = strings.TrimSpace(req.DisplayName)
	user.Roles = req.Roles

	if err := s.repo.Update(ctx, user); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update user")
	}
	s.directory.Forget(ctx, user.ID)

	if err := s.recordChange(ctx, user, models.EventTypeModified, actorID, meta); err != nil {
		return nil, err
	}
	return user, nil
}

// Delete removes a user. Events they produced stay in the log.
func (s *UserService) Delete(ctx context.Context, id int64, actorID int64, meta models.RequestMeta) error {
	user, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete user")
	}
	s.directory.Forget(ctx, id)

	return s.recordChange(ctx, user, models.EventTypeDeleted, actorID, meta)
}

func (s *UserService) recordChange(ctx context.Context, user *models.User, eventType string, actorID int64, meta models.RequestMeta) error {
	change := UserChange{Subject: user.Login, EventType: eventType, IP: meta.IP}
	if actorID > 0 {
		change.ActorID = models.Int64Ptr(actorID)
	}
	if err := s.events.RecordUserChange(ctx, change); err != nil {
		logger.FromContext(s.logger, ctx).Error("user change not recorded", zap.Int64("user_id", user.ID), zap.String("event_type", eventType), zap.Error(err))
		return err
	}
	return nil
}
