// seed creates the first admin user from SEED_ADMIN_PHONE / SEED_ADMIN_PASSWORD.
// Idempotent: exits successfully when the phone is already registered.
package main

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"mobitech-crm/backend/internal/config"
	"mobitech-crm/backend/internal/db"
	"mobitech-crm/backend/internal/logger"
	"mobitech-crm/backend/internal/security"
	"mobitech-crm/backend/internal/user/domain"
	userrepo "mobitech-crm/backend/internal/user/repository"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		zap.NewExample().Fatal("config", zap.Error(err))
	}
	log := logger.New(cfg.LogLevel, cfg.Env)
	defer func() { _ = log.Sync() }()

	if !domain.ValidPhone(cfg.SeedAdminPhone) {
		log.Fatal("SEED_ADMIN_PHONE must be a 10-digit phone number")
	}
	if len(cfg.SeedAdminPassword) < 8 {
		log.Fatal("SEED_ADMIN_PASSWORD must be at least 8 characters")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := db.Open(ctx, cfg.DatabaseURL, 2)
	if err != nil {
		log.Fatal("db", zap.Error(err))
	}
	defer pool.Close()

	users := userrepo.NewPostgresRepository(pool)
	existing, err := users.GetByPhone(ctx, cfg.SeedAdminPhone)
	if err != nil {
		log.Fatal("seed check", zap.Error(err))
	}
	if existing != nil {
		log.Info("seed already applied; admin phone exists", zap.String("user_id", existing.ID))
		return
	}

	hash, err := security.NewHasher(cfg.BcryptCost).Hash(cfg.SeedAdminPassword)
	if err != nil {
		log.Fatal("hash password", zap.Error(err))
	}
	now := time.Now().UTC()
	admin := &domain.User{
		ID:           uuid.New().String(),
		Phone:        cfg.SeedAdminPhone,
		PasswordHash: hash,
		Email:        cfg.SeedAdminEmail,
		Name:         "Administrator",
		IsAdmin:      true,
		Status:       domain.UserStatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := admin.Validate(); err != nil {
		log.Fatal("invalid admin", zap.Error(err))
	}
	if err := users.Create(ctx, admin); err != nil {
		log.Fatal("create admin", zap.Error(err))
	}
	log.Info("seed completed; sign in and enroll MFA at /mfa/setup", zap.String("user_id", admin.ID), zap.String("phone", admin.Phone))
}
