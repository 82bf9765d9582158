package router

import (
	"errors"
	"fmt"
	"time"

	"classifieds-backend/internal/application/emails"
	"classifieds-backend/internal/application/engagement"
	"classifieds-backend/internal/application/events"
	"classifieds-backend/internal/application/health"
	listsvc "classifieds-backend/internal/application/listings"
	"classifieds-backend/internal/application/media"
	"classifieds-backend/internal/application/moderation"
	"classifieds-backend/internal/application/notifications"
	"classifieds-backend/internal/application/reports"
	"classifieds-backend/internal/config"
	"classifieds-backend/internal/infrastructure/database"
	enghandler "classifieds-backend/internal/interfaces/handlers/engagement"
	healthhandler "classifieds-backend/internal/interfaces/handlers/health"
	listhandler "classifieds-backend/internal/interfaces/handlers/listings"
	modhandler "classifieds-backend/internal/interfaces/handlers/moderation"
	notifyhandler "classifieds-backend/internal/interfaces/handlers/notifications"
	reporthandler "classifieds-backend/internal/interfaces/handlers/reports"
	uploadhandler "classifieds-backend/internal/interfaces/handlers/uploads"
	"classifieds-backend/internal/metrics"
	"classifieds-backend/internal/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

const siteName = "Classifieds"

// App is the wired HTTP app plus the long-running pieces cmd/api starts and stops.
type App struct {
	Fiber      *fiber.App
	DB         *gorm.DB
	Redis      *redis.Client
	Dispatcher *events.Dispatcher
	Moderation *moderation.Service
	Limiter    *middleware.LimiterStore
}

// CreateApp opens Postgres and Redis from config, migrates, and wires the app.
func CreateApp(cfg *config.Config) (*App, error) {
	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := database.AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	var rdb *redis.Client
	if cfg.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("parse REDIS_URL: %w", err)
		}
		rdb = redis.NewClient(opt)
	} else {
		log.Warn().Msg("REDIS_URL not set: sessions, health counters and the event stream are disabled")
	}
	return NewApp(cfg, db, rdb)
}

// mediaBackend picks the media collaborator. Only Supabase can sign uploads.
func mediaBackend(cfg *config.Config) (media.Deleter, media.UploadSigner, error) {
	switch cfg.MediaBackend {
	case "supabase":
		sb := media.NewSupabaseClient(cfg.SupabaseURL, cfg.SupabaseSecretKey, cfg.MediaBucket)
		return sb, sb, nil
	case "r2":
		store, err := media.NewR2Store(media.R2Config{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			SecretAccessKey: cfg.R2SecretAccessKey,
			BucketName:      cfg.R2Bucket,
		})
		if err != nil {
			return nil, nil, err
		}
		return store, nil, nil
	case "":
		return media.Nop{}, nil, nil
	}
	return nil, nil, fmt.Errorf("unknown MEDIA_BACKEND %q", cfg.MediaBackend)
}

// NewApp wires services and routes on an open database. rdb may be nil.
// The dispatcher is returned unstarted.
func NewApp(cfg *config.Config, db *gorm.DB, rdb *redis.Client) (*App, error) {
	repo := database.NewRepository(db)

	deleter, signer, err := mediaBackend(cfg)
	if err != nil {
		return nil, err
	}

	notifySvc := &notifications.Service{DB: db, Now: time.Now}
	handlers := []events.Handler{
		&events.NotificationHandler{Notifier: notifySvc},
		&events.EmailHandler{
			Sender: &emails.BrevoClient{
				APIKey:   cfg.SendinblueAPIKey,
				MailFrom: cfg.MailFrom,
				SiteName: siteName,
				BaseURL:  cfg.PublicBaseURL,
			},
			Accounts:   repo,
			AdminEmail: cfg.AdminEmail,
		},
	}
	if rdb != nil && cfg.EventStream != "" {
		handlers = append(handlers, &events.StreamHandler{Client: rdb, Stream: cfg.EventStream})
	}
	dispatcher := events.NewDispatcher(events.Config{
		Workers:     cfg.EventWorkers,
		QueueSize:   cfg.EventQueueSize,
		MaxAttempts: cfg.EventMaxAttempts,
	}, handlers...)

	listingSvc := listsvc.NewService(repo, dispatcher)
	modSvc := moderation.NewService(repo, dispatcher, deleter)
	if cfg.ListingTTLDays > 0 {
		modSvc.ListingTTL = time.Duration(cfg.ListingTTLDays) * 24 * time.Hour
	}
	engSvc := engagement.NewService(repo)
	reportSvc := reports.NewService(repo)
	if cfg.ReportDailyLimit > 0 {
		reportSvc.DailyLimit = cfg.ReportDailyLimit
	}
	var uploadSvc *media.UploadService
	if signer != nil {
		uploadSvc = &media.UploadService{Signer: signer, Now: time.Now}
	}
	limiter := middleware.NewLimiterStore(cfg.InteractionRPS, cfg.InteractionBurst)

	app := fiber.New(fiber.Config{
		DisableStartupMessage:   true,
		ErrorHandler:            middleware.ErrorHandler,
		EnableTrustedProxyCheck: true,
	})

	app.Use(middleware.CORS(middleware.CORSConfig{
		AllowedSuffix:  cfg.FrontendURLEndsWith,
		DevPassword:    cfg.DevPassword,
		AllowLocalhost: !cfg.IsProduction(),
	}))
	app.Use(middleware.Tracing())
	app.Use(middleware.RouteLogger())
	app.Use(metrics.Middleware())
	if rdb != nil {
		app.Use(middleware.SessionStore(rdb))
		app.Use(middleware.HealthMarker(rdb))
	}

	hh := &healthhandler.Handlers{
		Collector: &health.Collector{
			Redis:  rdb,
			DB:     health.GormPinger{DB: db},
			Events: dispatcher,
		},
		HealthAdminKey: cfg.HealthAdminKey,
	}
	app.Get("/reset", hh.Reset)
	app.Get("/health/json", hh.JSON)
	app.Get("/health/errors", hh.Errors)
	app.Get("/metrics", middleware.MetricsAuth(cfg.MetricsUsername, cfg.MetricsPassword), adaptor.HTTPHandler(promhttp.Handler()))

	auth := middleware.RequireAuth()
	throttle := middleware.RateLimit(limiter)

	lh := &listhandler.Handlers{Listings: listingSvc, Moderation: modSvc}
	eh := &enghandler.Handlers{Service: engSvc, Listings: listingSvc}
	rh := &reporthandler.Handlers{Service: reportSvc}

	v1 := app.Group("/api/v1")
	listings := v1.Group("/listings")
	listings.Post("/", auth, lh.CreateListing)
	listings.Get("/mine", auth, lh.ListMine)
	listings.Get("/:id", lh.GetListing)
	listings.Delete("/:id", auth, lh.Delete)
	listings.Get("/:id/events", auth, lh.ListEvents)
	listings.Post("/:id/repost", auth, lh.Repost)
	listings.Post("/:id/mark-sold", auth, lh.MarkSold)
	listings.Post("/:id/view", throttle, auth, eh.View)
	listings.Post("/:id/click", throttle, eh.Click)
	listings.Post("/:id/share", throttle, eh.Share)
	listings.Post("/:id/favorite", auth, eh.Favorite)
	listings.Delete("/:id/favorite", auth, eh.Unfavorite)
	listings.Get("/:id/stats", auth, eh.Stats)
	listings.Post("/:id/report", throttle, auth, rh.Submit)
	v1.Get("/reports/reasons", rh.Reasons)

	mh := &modhandler.Handlers{Service: modSvc}
	mod := v1.Group("/moderation", middleware.RequireModerator())
	mod.Post("/:id/approve", mh.Approve)
	mod.Post("/:id/refuse", mh.Refuse)
	mod.Post("/:id/suspend", mh.Suspend)
	mod.Post("/:id/expire", mh.Expire)

	nh := &notifyhandler.Handlers{Service: notifySvc}
	v1.Get("/notifications", auth, nh.List)
	v1.Post("/notifications/:id/read", auth, nh.MarkRead)

	uh := &uploadhandler.Handlers{Service: uploadSvc}
	v1.Post("/uploads/listing-photo", auth, uh.ListingPhoto)

	return &App{
		Fiber:      app,
		DB:         db,
		Redis:      rdb,
		Dispatcher: dispatcher,
		Moderation: modSvc,
		Limiter:    limiter,
	}, nil
}
