package service

import (
	"context"
	"strconv"

	"github.com/noah-isme/activity-log-api/internal/models"
)

type directoryRepository interface {
	FindByID(ctx context.Context, id int64) (*models.User, error)
	IDsByRole(ctx context.Context, role string) ([]int64, error)
}

// UserDirectory answers identity and role questions about users, caching
// identity lookups when a cache is configured.
type UserDirectory struct {
	repo  directoryRepository
	cache *CacheService
}

// NewUserDirectory constructs a UserDirectory. cache may be nil.
func NewUserDirectory(repo directoryRepository, cache *CacheService) *UserDirectory {
	return &UserDirectory{repo: repo, cache: cache}
}

func identityKey(id int64) string {
	return "user:" + strconv.FormatInt(id, 10)
}

// Lookup returns the user with id. A missing user yields sql.ErrNoRows.
func (d *UserDirectory) Lookup(ctx context.Context, id int64) (*models.User, error) {
	return Remember(ctx, d.cache, identityKey(id), 0, func(ctx context.Context) (*models.User, error) {
		return d.repo.FindByID(ctx, id)
	})
}

// IDsByRole returns the ids of users holding role.
func (d *UserDirectory) IDsByRole(ctx context.Context, role string) ([]int64, error) {
	return d.repo.IDsByRole(ctx, role)
}

// Forget drops any cached identity for id.
func (d *UserDirectory) Forget(ctx context.Context, id int64) {
	d.cache.Invalidate(ctx, identityKey(id))
}
