package app

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"progression_backend/internal/config"
	"progression_backend/internal/controller"
	"progression_backend/internal/repository"
	"progression_backend/internal/service"
	"progression_backend/pkg/configwatcher"
	"progression_backend/pkg/database"
	"progression_backend/pkg/logger"
	"progression_backend/pkg/monitoring"
	"progression_backend/pkg/security"
	"progression_backend/pkg/tracing"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type App struct {
	Config          *config.Config
	ConfigPath      string
	Router          *gin.Engine
	DB              *gorm.DB
	Redis           *redis.Client
	services        *services
	limiter         *security.Limiter
	tracer          *sdktrace.TracerProvider
	configCallbacks []func(*config.Config)
}

type repositories struct {
	user     *repository.UserRepository
	exercise *repository.ExerciseRepository
	attempt  *repository.AttemptRepository
	badge    *repository.BadgeRepository
	stats    *repository.StatsRepository
	streak   *repository.StreakRepository
}

type services struct {
	tunables *service.Tunables
	level    *service.LevelService
	badge    *service.BadgeService
	attempt  *service.AttemptService
}

type controllers struct {
	attempt     *controller.AttemptController
	badge       *controller.BadgeController
	progression *controller.ProgressionController
	health      *controller.HealthController
}

func (a *App) RegisterConfigCallback(callback func(*config.Config)) {
	a.configCallbacks = append(a.configCallbacks, callback)
}

func (a *App) applyConfig(cfg *config.Config) {
	for _, cb := range a.configCallbacks {
		cb(cfg)
	}
}

func (a *App) initRepositories(db *gorm.DB, rdb *redis.Client) *repositories {
	ttl := time.Duration(a.Config.Redis.StreakTTLMinutes) * time.Minute
	return &repositories{
		user:     repository.NewUserRepository(db),
		exercise: repository.NewExerciseRepository(db),
		attempt:  repository.NewAttemptRepository(db),
		badge:    repository.NewBadgeRepository(db),
		stats:    repository.NewStatsRepository(db),
		streak:   repository.NewStreakRepository(db, rdb, ttl),
	}
}

func (a *App) initServices(repos *repositories, cfg *config.Config, db *gorm.DB) *services {
	s := &services{}

	s.tunables = service.NewTunables(cfg.Scoring)
	s.level = service.NewLevelService(db, repos.user, s.tunables)
	s.badge = service.NewBadgeService(db, repos.badge, repos.stats, repos.streak, s.level)
	s.attempt = service.NewAttemptService(db, repos.exercise, repos.attempt, s.level, s.badge, s.tunables)

	a.RegisterConfigCallback(func(c *config.Config) {
		s.tunables.Store(c.Scoring)
		logger.Log.Info("Scoring tunables updated", zap.Int("xpPerLevel", c.Scoring.XPPerLevel))
	})

	return s
}

func (a *App) initControllers(s *services, db *gorm.DB, rdb *redis.Client) *controllers {
	return &controllers{
		attempt:     controller.NewAttemptController(s.attempt),
		badge:       controller.NewBadgeController(s.badge),
		progression: controller.NewProgressionController(s.level),
		health:      controller.NewHealthController(db, rdb),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())

	window := time.Duration(cfg.RateLimit.WindowMinutes) * time.Minute
	if window <= 0 {
		window = time.Minute
	}
	a.limiter = security.NewLimiter(cfg.RateLimit.MaxRequests, window, security.ByClientIP)
	router.Use(a.limiter.Middleware())

	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

// build wires everything above the storage layer. rdb may be nil.
func (a *App) build(db *gorm.DB, rdb *redis.Client) {
	repos := a.initRepositories(db, rdb)
	a.services = a.initServices(repos, a.Config, db)
	controllers := a.initControllers(a.services, db, rdb)

	router := gin.New()
	router.Use(gin.Recovery())
	a.Router = router

	a.setupMiddlewares(router, a.Config)
	a.registerRoutes(router, controllers, a.Config)
}

func NewApp(cfg *config.Config, configPath string) *App {
	logger.InitLogger(cfg)
	logger.Log.Info("Logger initialized successfully")

	gin.SetMode(cfg.Server.Mode)

	db, err := database.InitDB(&cfg.Database)
	if err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
	}

	if cfg.ForceMigrate || cfg.Server.Mode != gin.ReleaseMode {
		if err := database.Migrate(db); err != nil {
			logger.Log.Fatal("Failed to migrate database", zap.Error(err))
		}
	}
	if cfg.SeedBadges || cfg.ForceMigrate {
		if err := database.SeedBadges(db); err != nil {
			logger.Log.Fatal("Failed to seed badges", zap.Error(err))
		}
		logger.Log.Info("Badge catalog seeded")
	}

	var rdb *redis.Client
	if cfg.Redis.Enabled {
		rdb, err = database.InitRedis(&cfg.Redis)
		if err != nil {
			// Streaks fall back to a full fold without the cache.
			logger.Log.Warn("Redis unavailable, streak cache disabled", zap.Error(err))
			rdb = nil
		}
	}

	app := &App{
		Config:     cfg,
		ConfigPath: configPath,
		DB:         db,
		Redis:      rdb,
	}

	// 监控初始化
	monitoring.Init()

	if cfg.Tracing.Enabled {
		tp, err := tracing.InitTracer(cfg.Tracing.ServiceName, cfg.Tracing.CollectorEndpoint)
		if err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
		app.tracer = tp
	}

	app.build(db, rdb)
	return app
}

func (a *App) startBackgroundTasks(ctx context.Context) {
	go a.limiter.Run(ctx)

	if a.ConfigPath == "" {
		return
	}
	go func() {
		if err := configwatcher.WatchConfig(ctx, a.ConfigPath, a.applyConfig); err != nil {
			logger.Log.Error("Config watcher stopped", zap.Error(err))
		}
	}()
}

func (a *App) Run() {
	srv := &http.Server{
		Addr:              ":" + a.Config.Server.Port,
		Handler:           a.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	bgCtx, stopBackground := context.WithCancel(context.Background())
	a.startBackgroundTasks(bgCtx)

	go func() {
		logger.Log.Info("Server running", zap.String("port", a.Config.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	// 等待中断信号优雅地关闭服务器（设置5秒的超时时间）
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info("Shutting down server...")
	stopBackground()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Error("Server forced to shutdown", zap.Error(err))
	}

	if a.tracer != nil {
		if err := a.tracer.Shutdown(ctx); err != nil {
			logger.Log.Error("Failed to shutdown tracer provider", zap.Error(err))
		}
	}
	if a.Redis != nil {
		a.Redis.Close()
	}

	logger.Log.Info("Server exiting")
	logger.Log.Sync()
}
