package main

import (
	"context"
	"crypto"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"mobitech-crm/backend/internal/audit"
	audithandler "mobitech-crm/backend/internal/audit/handler"
	auditrepo "mobitech-crm/backend/internal/audit/repository"
	"mobitech-crm/backend/internal/config"
	"mobitech-crm/backend/internal/db"
	"mobitech-crm/backend/internal/devotp"
	devotphandler "mobitech-crm/backend/internal/devotp/handler"
	healthhandler "mobitech-crm/backend/internal/health/handler"
	identityhandler "mobitech-crm/backend/internal/identity/handler"
	identityservice "mobitech-crm/backend/internal/identity/service"
	"mobitech-crm/backend/internal/logger"
	"mobitech-crm/backend/internal/messaging"
	mfahandler "mobitech-crm/backend/internal/mfa/handler"
	mfaservice "mobitech-crm/backend/internal/mfa/service"
	"mobitech-crm/backend/internal/mfa/totp"
	otphandler "mobitech-crm/backend/internal/otp/handler"
	otprepo "mobitech-crm/backend/internal/otp/repository"
	otpservice "mobitech-crm/backend/internal/otp/service"
	"mobitech-crm/backend/internal/policy/engine"
	policyhandler "mobitech-crm/backend/internal/policy/handler"
	qchandler "mobitech-crm/backend/internal/qc/handler"
	qcrepo "mobitech-crm/backend/internal/qc/repository"
	"mobitech-crm/backend/internal/ratelimit"
	"mobitech-crm/backend/internal/security"
	"mobitech-crm/backend/internal/server"
	"mobitech-crm/backend/internal/server/middleware"
	sessionhandler "mobitech-crm/backend/internal/session/handler"
	sessionrepo "mobitech-crm/backend/internal/session/repository"
	sessionservice "mobitech-crm/backend/internal/session/service"
	"mobitech-crm/backend/internal/telemetry"
	telemetryotel "mobitech-crm/backend/internal/telemetry/otel"
	"mobitech-crm/backend/internal/telemetry/producer"
	userhandler "mobitech-crm/backend/internal/user/handler"
	userrepo "mobitech-crm/backend/internal/user/repository"
)

const (
	shutdownTimeout = 15 * time.Second
	startupTimeout  = 10 * time.Second
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		zap.NewExample().Fatal("config", zap.Error(err))
	}
	log := logger.New(cfg.LogLevel, cfg.Env)
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Fatal("server exited", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	startCtx, cancel := context.WithTimeout(ctx, startupTimeout)
	defer cancel()

	providers, err := telemetryotel.NewProviders(startCtx, telemetryotel.Config{
		Endpoint:    cfg.OTLPEndpoint,
		ServiceName: cfg.ServiceName,
		Environment: cfg.Env,
		Insecure:    cfg.OTLPInsecure,
	})
	if err != nil {
		return err
	}
	providers.SetGlobal()
	defer func() {
		flushCtx, flushCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer flushCancel()
		if err := providers.Shutdown(flushCtx); err != nil {
			log.Warn("otel shutdown", zap.Error(err))
		}
	}()

	pool, err := db.Open(startCtx, cfg.DatabaseURL, cfg.DBMaxConns)
	if err != nil {
		return err
	}
	defer pool.Close()
	log.Info("connected to postgres")

	var limiter ratelimit.Limiter = ratelimit.Noop{}
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = ratelimit.Open(startCtx, cfg.RedisURL)
		if err != nil {
			return err
		}
		defer func() { _ = redisClient.Close() }()
		limiter = ratelimit.NewRedisLimiter(redisClient, "otp")
		log.Info("otp rate limiting enabled", zap.Int("send_limit", cfg.OTPSendLimit), zap.Int("verify_limit", cfg.OTPVerifyLimit))
	}

	emitters := telemetry.Fanout{telemetryotel.NewEventEmitter(providers.LoggerProvider)}
	if kp := producer.NewKafkaProducer(cfg.TelemetryKafkaBrokersList(), cfg.TelemetryKafkaTopic); kp != nil {
		defer func() { _ = kp.Close() }()
		emitters = append(emitters, kp)
		log.Info("publishing auth events to kafka", zap.String("topic", cfg.TelemetryKafkaTopic))
	}

	signer, pub, err := loadSessionKeys(cfg, log)
	if err != nil {
		return err
	}
	tokens := security.NewTokenProvider(signer, pub, cfg.SessionIssuer)
	cookies := middleware.CookieConfig{Name: cfg.SessionCookieName, Secure: cfg.SessionCookieSecure}

	policy, err := engine.LoadPolicyFile(cfg.AccessPolicyFile)
	if err != nil {
		return err
	}
	evaluator, err := engine.NewOPAEvaluator(startCtx, policy)
	if err != nil {
		return err
	}

	users := userrepo.NewPostgresRepository(pool)
	auditRepo := auditrepo.NewPostgresRepository(pool)
	auditLogger := audit.NewLogger(auditRepo, middleware.ClientIPFrom, log)

	var devStore devotp.Store
	var devHandler *devotphandler.Handler
	if cfg.OTPReturnToClient && !cfg.IsProduction() {
		mem := devotp.NewMemoryStore()
		devStore = mem
		devHandler = devotphandler.NewHandler(mem, log)
		log.Warn("dev OTP mode enabled: codes are not sent and are readable at /dev/otp")
	}

	var whatsapp messaging.Sender
	if cfg.WhatsAppAPIKey != "" {
		whatsapp = messaging.NewWhatsAppClient(cfg.WhatsAppAPIKey, cfg.WhatsAppBaseURL, cfg.WhatsAppTemplate)
	}
	dispatcher := messaging.NewDispatcher(
		messaging.NewSMSLocalClient(cfg.SMSLocalAPIKey, cfg.SMSLocalBaseURL, cfg.SMSLocalSender),
		whatsapp,
		messaging.DefaultBreakerConfig(),
		log,
	)
	otpSvc := otpservice.NewService(
		otprepo.NewPostgresRepository(pool),
		dispatcher,
		limiter,
		otpservice.Limits{Send: cfg.OTPSendLimit, Verify: cfg.OTPVerifyLimit, Window: cfg.OTPRateWindow()},
		devStore,
		log,
	)

	sessionSvc := sessionservice.NewService(sessionrepo.NewPostgresRepository(pool), tokens, cfg.SessionTTL())
	generator := totp.NewGenerator(cfg.MFAIssuer)
	authSvc := identityservice.NewAuthService(
		users, otpSvc, sessionSvc, security.NewHasher(cfg.BcryptCost), generator, auditLogger, emitters, log,
	)

	checks := map[string]healthhandler.Checker{
		"postgres": healthhandler.CheckerFunc(pool.Ping),
		"policy":   healthhandler.CheckerFunc(evaluator.HealthCheck),
	}
	if redisClient != nil {
		checks["redis"] = healthhandler.CheckerFunc(func(ctx context.Context) error { return redisClient.Ping(ctx).Err() })
	}

	router := server.NewRouter(server.Deps{
		APIPrefix:   cfg.APIPrefix,
		ServiceName: cfg.ServiceName,
		Log:         log,
		Sessions:    sessionSvc,
		Cookies:     cookies,
		Events:      emitters,
		Audit:       auditLogger,
		Gate:        policyhandler.NewGate(evaluator, users, log),
		OTP:         otphandler.NewHandler(otpSvc, log),
		Session:     sessionhandler.NewHandler(sessionSvc, cookies, auditLogger, emitters, log),
		Auth:        identityhandler.NewHandler(authSvc, cookies, log),
		MFA:         mfahandler.NewHandler(mfaservice.NewService(users, generator), auditLogger, emitters, log),
		Users:       userhandler.NewHandler(users, log),
		QC:          qchandler.NewHandler(qcrepo.NewPostgresRepository(pool), log),
		AuditLogs:   audithandler.NewHandler(auditRepo, log),
		Health:      healthhandler.NewHandler(checks, log),
		DevOTP:      devHandler,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("http server listening", zap.String("addr", cfg.HTTPAddr), zap.String("prefix", cfg.APIPrefix))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("shutting down http server")
	case err := <-errCh:
		return err
	}

	drainCtx, drainCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer drainCancel()
	if err := srv.Shutdown(drainCtx); err != nil {
		return err
	}
	log.Info("http server stopped")

	emitCtx, emitCancel := context.WithTimeout(context.Background(), telemetry.ShutdownDrainDuration)
	defer emitCancel()
	if err := telemetry.Drain(emitCtx); err != nil {
		log.Warn("telemetry events still in flight at shutdown", zap.Error(err))
	}
	return nil
}

// loadSessionKeys parses the configured signing key pair. Outside production a missing key is replaced by
// an ephemeral P-256 key, which invalidates every session on restart.
func loadSessionKeys(cfg *config.Config, log *zap.Logger) (crypto.Signer, crypto.PublicKey, error) {
	if cfg.SessionPrivateKey != "" {
		return security.LoadKeyPair(cfg.SessionPrivateKey, cfg.SessionPublicKey)
	}
	if cfg.IsProduction() {
		return nil, nil, errors.New("SESSION_PRIVATE_KEY must be set in production")
	}
	key, err := security.GenerateEphemeralKey()
	if err != nil {
		return nil, nil, err
	}
	log.Warn("SESSION_PRIVATE_KEY not set; using an ephemeral signing key")
	return key, key.Public(), nil
}
