// Package repository implements the data access layer for the application.
package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/gustavohdab/rettiwt-backend/internal/cache"
	"github.com/gustavohdab/rettiwt-backend/internal/models"

	"gorm.io/gorm"
)

// UserRepository defines persistence operations for users and the follow
// graph.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetProfile(ctx context.Context, username string, viewerID uint) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
	SetActive(ctx context.Context, id uint, active bool) error

	Follow(ctx context.Context, followerID, followeeID uint) error
	Unfollow(ctx context.Context, followerID, followeeID uint) error
	IsFollowing(ctx context.Context, followerID, followeeID uint) (bool, error)
	Followers(ctx context.Context, userID, viewerID uint, limit, offset int) ([]models.User, error)
	Following(ctx context.Context, userID, viewerID uint, limit, offset int) ([]models.User, error)
	FollowingIDs(ctx context.Context, userID uint) ([]uint, error)

	Suggestions(ctx context.Context, viewerID uint, limit int) ([]models.User, error)
	Search(ctx context.Context, query string, viewerID uint, limit, offset int) ([]models.User, error)
	CountSearch(ctx context.Context, query string) (int64, error)
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository returns a new UserRepository implementation.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

// applyUserDetails annotates each row with the viewer-relative follow flag in
// the same query.
func applyUserDetails(db *gorm.DB, viewerID uint) *gorm.DB {
	if viewerID != 0 {
		return db.Select(
			"users.*, EXISTS(SELECT 1 FROM follows WHERE follows.follower_id = ? AND follows.followee_id = users.id) AS followed_by_viewer",
			viewerID,
		)
	}
	return db.Select("users.*, false AS followed_by_viewer")
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if isUniqueConstraintError(err) {
			return conflictFor(err)
		}
		return models.NewInternalError(err)
	}
	return nil
}

// isUniqueConstraintError checks if a DB error is a unique constraint violation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	// PostgreSQL unique violation SQLSTATE 23505
	return strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "23505")
}

// conflictFor maps a unique violation to the offending field by constraint
// name so the 409 says which field collided.
func conflictFor(err error) *models.AppError {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "username"):
		return models.NewConflictError("username already taken")
	case strings.Contains(msg, "email"):
		return models.NewConflictError("email already registered")
	default:
		return models.NewConflictError("user already exists")
	}
}

func (r *userRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	key := cache.UserKey(id)

	err := cache.Aside(ctx, key, &user, cache.UserTTL, func() error {
		if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.NewNotFoundError("user", id)
			}
			return models.NewInternalError(err)
		}
		return nil
	})

	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &user, nil
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &user, nil
}

func (r *userRepository) GetProfile(ctx context.Context, username string, viewerID uint) (*models.User, error) {
	var user models.User
	err := applyUserDetails(r.db.WithContext(ctx), viewerID).
		Where("username = ?", username).
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("user", username)
		}
		return nil, models.NewInternalError(err)
	}
	return &user, nil
}

// Update persists the profile-owned columns. The write is column-scoped on
// purpose: the input may have round-tripped through the user cache, where the
// password hash is absent and the follow counters can be stale, so those
// columns must never travel through this path.
func (r *userRepository) Update(ctx context.Context, user *models.User) error {
	res := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", user.ID).
		Updates(map[string]any{
			"name":       user.Name,
			"bio":        user.Bio,
			"location":   user.Location,
			"website":    user.Website,
			"avatar_url": user.AvatarURL,
			"header_url": user.HeaderURL,
		})
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("user", user.ID)
	}
	cache.InvalidateUser(ctx, user.ID)
	return nil
}

func (r *userRepository) SetActive(ctx context.Context, id uint, active bool) error {
	res := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		Update("is_active", active)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("user", id)
	}
	cache.InvalidateUser(ctx, id)
	return nil
}

// Follow inserts the edge and bumps both denormalized counters in one
// transaction, so no reader observes an edge without its counts. The
// idempotent insert makes a duplicate follow report AlreadyDone without
// touching the counters.
func (r *userRepository) Follow(ctx context.Context, followerID, followeeID uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Exec(
			`INSERT INTO follows (follower_id, followee_id, created_at)
			 VALUES (?, ?, CURRENT_TIMESTAMP)
			 ON CONFLICT (follower_id, followee_id) DO NOTHING`,
			followerID, followeeID,
		)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return models.NewAlreadyDoneError("already following this user")
		}

		if err := tx.Exec(
			`UPDATE users SET following_count = following_count + 1 WHERE id = ?`, followerID,
		).Error; err != nil {
			return err
		}
		return tx.Exec(
			`UPDATE users SET followers_count = followers_count + 1 WHERE id = ?`, followeeID,
		).Error
	})
	if err != nil {
		return asRepoError(err)
	}

	cache.InvalidateUser(ctx, followerID)
	cache.InvalidateUser(ctx, followeeID)
	return nil
}

// Unfollow removes the edge and decrements both counters transactionally,
// reporting NotDone when no edge existed.
func (r *userRepository) Unfollow(ctx context.Context, followerID, followeeID uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Exec(
			`DELETE FROM follows WHERE follower_id = ? AND followee_id = ?`,
			followerID, followeeID,
		)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return models.NewNotDoneError("not following this user")
		}

		if err := tx.Exec(
			`UPDATE users SET following_count = following_count - 1 WHERE id = ? AND following_count > 0`, followerID,
		).Error; err != nil {
			return err
		}
		return tx.Exec(
			`UPDATE users SET followers_count = followers_count - 1 WHERE id = ? AND followers_count > 0`, followeeID,
		).Error
	})
	if err != nil {
		return asRepoError(err)
	}

	cache.InvalidateUser(ctx, followerID)
	cache.InvalidateUser(ctx, followeeID)
	return nil
}

// asRepoError passes AppErrors through and wraps everything else as internal.
func asRepoError(err error) error {
	var appErr *models.AppError
	if errors.As(err, &appErr) {
		return err
	}
	return models.NewInternalError(err)
}

func (r *userRepository) IsFollowing(ctx context.Context, followerID, followeeID uint) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.Follow{}).
		Where("follower_id = ? AND followee_id = ?", followerID, followeeID).
		Count(&count).Error; err != nil {
		return false, models.NewInternalError(err)
	}
	return count > 0, nil
}

func (r *userRepository) Followers(ctx context.Context, userID, viewerID uint, limit, offset int) ([]models.User, error) {
	var users []models.User
	err := applyUserDetails(r.db.WithContext(ctx), viewerID).
		Joins("JOIN follows ON follows.follower_id = users.id").
		Where("follows.followee_id = ?", userID).
		Order("follows.created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&users).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return users, nil
}

func (r *userRepository) Following(ctx context.Context, userID, viewerID uint, limit, offset int) ([]models.User, error) {
	var users []models.User
	err := applyUserDetails(r.db.WithContext(ctx), viewerID).
		Joins("JOIN follows ON follows.followee_id = users.id").
		Where("follows.follower_id = ?", userID).
		Order("follows.created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&users).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return users, nil
}

func (r *userRepository) FollowingIDs(ctx context.Context, userID uint) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).
		Model(&models.Follow{}).
		Where("follower_id = ?", userID).
		Pluck("followee_id", &ids).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return ids, nil
}

// Suggestions returns active users by descending follower count, excluding
// the viewer and anyone they already follow.
func (r *userRepository) Suggestions(ctx context.Context, viewerID uint, limit int) ([]models.User, error) {
	var users []models.User
	err := applyUserDetails(r.db.WithContext(ctx), viewerID).
		Where("users.is_active = ?", true).
		Where("users.id <> ?", viewerID).
		Where("users.id NOT IN (SELECT followee_id FROM follows WHERE follower_id = ?)", viewerID).
		Order("users.followers_count DESC, users.id ASC").
		Limit(limit).
		Find(&users).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return users, nil
}

func (r *userRepository) Search(ctx context.Context, query string, viewerID uint, limit, offset int) ([]models.User, error) {
	var users []models.User
	like := "%" + strings.ToLower(query) + "%"
	err := applyUserDetails(r.db.WithContext(ctx), viewerID).
		Where("LOWER(users.username) LIKE ? OR LOWER(users.name) LIKE ? OR LOWER(users.bio) LIKE ?", like, like, like).
		Where("users.is_active = ?", true).
		Order("users.followers_count DESC").
		Limit(limit).
		Offset(offset).
		Find(&users).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return users, nil
}

func (r *userRepository) CountSearch(ctx context.Context, query string) (int64, error) {
	var count int64
	like := "%" + strings.ToLower(query) + "%"
	err := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("LOWER(username) LIKE ? OR LOWER(name) LIKE ? OR LOWER(bio) LIKE ?", like, like, like).
		Where("is_active = ?", true).
		Count(&count).Error
	if err != nil {
		return 0, models.NewInternalError(err)
	}
	return count, nil
}
