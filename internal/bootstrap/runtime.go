// Package bootstrap wires the process-level runtime: database, Redis, and
// development conveniences shared by the server and the CLI tools.
package bootstrap

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/gustavohdab/rettiwt-backend/internal/cache"
	"github.com/gustavohdab/rettiwt-backend/internal/config"
	"github.com/gustavohdab/rettiwt-backend/internal/database"
	"github.com/gustavohdab/rettiwt-backend/internal/models"
)

// Options control runtime initialization behavior.
type Options struct {
	EnsureDevAdmin bool
}

// InitRuntime connects to the database and Redis. Redis being unreachable is
// not fatal: the client comes back nil and realtime/caching degrade to
// in-process behavior.
func InitRuntime(cfg *config.Config, opts Options) (*gorm.DB, *redis.Client, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}

	cache.InitRedis(cfg.RedisURL)
	r := cache.GetClient()

	if opts.EnsureDevAdmin {
		if err := ensureDevAdmin(cfg, db); err != nil {
			return nil, nil, fmt.Errorf("failed to bootstrap development admin: %w", err)
		}
	}

	return db, r, nil
}

// ensureDevAdmin guarantees a usable admin account in development so the
// admin endpoints can be exercised against a fresh database. Production
// environments never get an implicit account.
func ensureDevAdmin(cfg *config.Config, db *gorm.DB) error {
	if cfg == nil || db == nil || !strings.EqualFold(cfg.Env, "development") {
		return nil
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte("admin123x"), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}

	return db.Transaction(func(tx *gorm.DB) error {
		var admin models.User
		findErr := tx.Where("username = ?", "rettiwt_admin").First(&admin).Error
		switch {
		case errors.Is(findErr, gorm.ErrRecordNotFound):
			admin = models.User{
				Username: "rettiwt_admin",
				Email:    "admin@rettiwt.local",
				Password: string(hashed),
				Name:     "Rettiwt Admin",
				Role:     models.RoleAdmin,
				IsActive: true,
			}
			if err := tx.Create(&admin).Error; err != nil {
				return err
			}
			log.Printf("development admin created (admin@rettiwt.local)")
		case findErr != nil:
			return findErr
		default:
			if admin.Role != models.RoleAdmin || !admin.IsActive {
				if err := tx.Model(&admin).Updates(map[string]any{
					"role":      models.RoleAdmin,
					"is_active": true,
				}).Error; err != nil {
					return err
				}
			}
		}
		return nil
	})
}
