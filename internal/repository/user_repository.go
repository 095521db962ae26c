package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/activity-log-api/internal/models"
)

const userColumns = "id, login, email, display_name, password_hash, roles, created_at, updated_at"

// UserRepository provides database access for the user directory.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates a new instance of UserRepository.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// FindByID returns a user by identifier.
func (r *UserRepository) FindByID(ctx context.Context, id int64) (*models.User, error) {
	query := r.db.Rebind(`SELECT ` + userColumns + ` FROM users WHERE id = ? LIMIT 1`)
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find user by id: %w", err)
	}
	return &user, nil
}

// FindByLogin returns a user whose login or email matches login.
func (r *UserRepository) FindByLogin(ctx context.Context, login string) (*models.User, error) {
	query := r.db.Rebind(`SELECT ` + userColumns + ` FROM users WHERE LOWER(login) = ? OR LOWER(email) = ? LIMIT 1`)
	normalized := strings.ToLower(strings.TrimSpace(login))
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, normalized, normalized); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find user by login: %w", err)
	}
	return &user, nil
}

// IDsByRole returns the ids of every user holding role.
func (r *UserRepository) IDsByRole(ctx context.Context, role string) ([]int64, error) {
	query := r.db.Rebind(`SELECT id FROM users WHERE ? = ANY(roles) ORDER BY id`)
	ids := []int64{}
	if err := r.db.SelectContext(ctx, &ids, query, role); err != nil {
		return nil, fmt.Errorf("list user ids by role: %w", err)
	}
	return ids, nil
}

// List returns users based on filters with total count.
func (r *UserRepository) List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error) {
	var preds predicateSet
	if filter.Role != nil {
		preds.add("? = ANY(roles)", string(*filter.Role))
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		pattern := containsPattern(search)
		preds.add("(LOWER(login) LIKE ? OR LOWER(email) LIKE ? OR LOWER(display_name) LIKE ?)", pattern, pattern, pattern)
	}

	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	window := models.NewPageWindow(filter.Page, pageSize)
	listQuery := fmt.Sprintf("SELECT %s FROM users%s ORDER BY id ASC LIMIT %d OFFSET %d", userColumns, preds.where(), window.Size, window.Offset)

	users := []models.User{}
	if err := r.db.SelectContext(ctx, &users, r.db.Rebind(listQuery), preds.args...); err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, r.db.Rebind("SELECT COUNT(*) FROM users"+preds.where()), preds.args...); err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}

	return users, total, nil
}

// Create inserts a new user and fills in the assigned id and timestamps.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now

	query := r.db.Rebind(`INSERT INTO users (login, email, display_name, password_hash, roles, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?) RETURNING id`)
	if err := r.db.GetContext(ctx, &user.ID, query,
		user.Login,
		user.Email,
		user.DisplayName,
		user.PasswordHash,
		pq.StringArray(user.Roles),
		user.CreatedAt,
		user.UpdatedAt,
	); err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// Update updates mutable fields of a user.
func (r *UserRepository) Update(ctx context.Context, user *models.User) error {
	user.UpdatedAt = time.Now().UTC()
	const query = `UPDATE users SET display_name = :display_name, email = :email, roles = :roles, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, user); err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	return nil
}

// Delete removes a user. Events keep their user_id and render as deleted users.
func (r *UserRepository) Delete(ctx context.Context, id int64) error {
	query := r.db.Rebind(`DELETE FROM users WHERE id = ?`)
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete user rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
