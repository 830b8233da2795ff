// prune deletes expired OTP challenges and sessions. Run it from cron; the API server never sweeps.
package main

import (
	"context"
	"flag"
	"time"

	"go.uber.org/zap"

	"mobitech-crm/backend/internal/config"
	"mobitech-crm/backend/internal/db"
	"mobitech-crm/backend/internal/logger"
	otprepo "mobitech-crm/backend/internal/otp/repository"
	sessionrepo "mobitech-crm/backend/internal/session/repository"
)

func main() {
	grace := flag.Duration("grace", time.Hour, "Keep rows for this long after they expire")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		zap.NewExample().Fatal("config", zap.Error(err))
	}
	log := logger.New(cfg.LogLevel, cfg.Env).With(zap.String("component", "prune"))
	defer func() { _ = log.Sync() }()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	pool, err := db.Open(ctx, cfg.DatabaseURL, 2)
	if err != nil {
		log.Fatal("db", zap.Error(err))
	}
	defer pool.Close()

	cutoff := time.Now().UTC().Add(-*grace)

	otps, err := otprepo.NewPostgresRepository(pool).DeleteExpired(ctx, cutoff)
	if err != nil {
		log.Fatal("prune otp challenges", zap.Error(err))
	}
	sessions, err := sessionrepo.NewPostgresRepository(pool).DeleteExpired(ctx, cutoff)
	if err != nil {
		log.Fatal("prune sessions", zap.Error(err))
	}
	log.Info("prune complete", zap.Time("cutoff", cutoff), zap.Int64("otp_challenges", otps), zap.Int64("sessions", sessions))
}
