package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	decisiondomain "decisionlog-backend/internal/decision/domain"
	decisionRepo "decisionlog-backend/internal/decision/repository"
	engagementDelivery "decisionlog-backend/internal/engagement/delivery"
	engagementdomain "decisionlog-backend/internal/engagement/domain"
	engagementRepo "decisionlog-backend/internal/engagement/repository"
	engagementUsecase "decisionlog-backend/internal/engagement/usecase"
	"decisionlog-backend/pkg/config"
	"decisionlog-backend/pkg/logger"
	"decisionlog-backend/pkg/mailer"
	"decisionlog-backend/pkg/redisstore"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Handler struct {
	Runner            *engagementUsecase.Runner
	HealthScorer      *engagementUsecase.HealthScorer
	config            *config.Config
	engagementHandler *engagementDelivery.EngagementHandler
	limiter           engagementDelivery.RateLimiter
	redisClient       *redis.Client
}

// NewHandler wires repositories, use cases and delivery (dependency
// injection). Redis and Gmail are optional: without them the run lock and
// rate limit are off and mail goes to the log transport.
func NewHandler(ctx context.Context, db *gorm.DB, cfg *config.Config) *Handler {
	// Initialize repositories
	reader := decisionRepo.NewGormDecisionReader(db)
	snapshotRepo := engagementRepo.NewHealthSnapshotRepository(db)
	sendLogRepo := engagementRepo.NewSendLogRepository(db)

	calendar := engagementUsecase.NewCalendar(cfg.Timezone, nil)

	var transport mailer.Transport = mailer.LogTransport{}
	gmailTransport, err := mailer.NewGmailTransport(ctx, mailer.GmailConfig{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RefreshToken: cfg.GoogleRefreshToken,
		FromAddress:  cfg.MailFrom,
		FromName:     cfg.MailFromName,
	})
	if err != nil {
		logger.Warn("[API] Gmail transport disabled, using log transport", "err", err)
	} else {
		transport = gmailTransport
		logger.Info("[API] Gmail transport initialized", "from", cfg.MailFrom)
	}

	h := &Handler{config: cfg}

	var locker engagementUsecase.RunLocker
	if cfg.RedisURL != "" {
		client, err := redisstore.NewClient(ctx, cfg.RedisURL)
		if err != nil {
			logger.Warn("[API] Redis unavailable, run lock and rate limit disabled", "err", err)
		} else {
			h.redisClient = client
			locker = redisstore.NewLocker(client, cfg.RunLockTTL)
			h.limiter = redisstore.NewLimiter(client, cfg.RateLimit, cfg.RateLimitWindow)
			logger.Info("[API] Redis connected")
		}
	} else {
		logger.Warn("[API] REDIS_URL not set, run lock and rate limit disabled")
	}

	// Initialize use cases
	activity := engagementUsecase.NewActivityAggregator(reader, calendar)
	filter := engagementUsecase.NewEligibilityFilter(reader, activity, calendar)
	guard := engagementUsecase.NewIdempotencyGuard(sendLogRepo, nil, cfg.ClaimStaleAfter)
	dispatcher := engagementUsecase.NewDispatcher(guard, engagementUsecase.NewRenderer(cfg.AppBaseURL), transport)

	h.Runner = engagementUsecase.NewRunner(filter, reader, guard, dispatcher, locker, cfg.DispatchWorkers)
	h.HealthScorer = engagementUsecase.NewHealthScorer(reader, activity, snapshotRepo, calendar)
	h.engagementHandler = engagementDelivery.NewEngagementHandler(h.Runner, h.HealthScorer, cfg.HealthLookbackDays)

	return h
}

// Close releases the Redis connection if one was opened
func (h *Handler) Close() {
	if h.redisClient != nil {
		h.redisClient.Close()
	}
}

// Router builds the gin engine with every route registered
func (h *Handler) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	SetupRoutes(r, h.engagementHandler, h.config, h.limiter)
	return r
}

// Start serves until ctx is cancelled, then drains in-flight runs.
func (h *Handler) Start(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: h.Router()}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("[API] shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Migrate creates the tables this service owns. The decision, outcome,
// check-in and profile tables belong to the CRUD service and are only
// migrated when includeReadModels is set (local development).
func Migrate(db *gorm.DB, includeReadModels bool) error {
	models := []interface{}{
		&engagementdomain.HealthSnapshot{},
		&engagementdomain.SendLog{},
	}
	if includeReadModels {
		models = append(models,
			&decisiondomain.Decision{},
			&decisiondomain.Outcome{},
			&decisiondomain.CheckIn{},
			&decisiondomain.Profile{},
		)
	}
	return db.AutoMigrate(models...)
}
