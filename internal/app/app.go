package app

import (
	"context"
	"errors"
	"fmt"
	"memeup_backend/internal/config"
	"memeup_backend/internal/controller"
	"memeup_backend/internal/repository"
	"memeup_backend/internal/service"
	"memeup_backend/pkg/configwatcher"
	"memeup_backend/pkg/database"
	"memeup_backend/pkg/logger"
	"memeup_backend/pkg/monitoring"
	"memeup_backend/pkg/security"
	"memeup_backend/pkg/tracing"
	"net/http"
	"os"
	"os/signal"
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
	Router          *gin.Engine
	DB              *gorm.DB
	Redis           *redis.Client
	Services        *Services
	tracer          *sdktrace.TracerProvider
	configCallbacks []func(*config.Config)
}

type repositories struct {
	user         *repository.UserRepository
	level        *repository.LevelRepository
	task         *repository.TaskRepository
	progress     *repository.ProgressRepository
	levelAttempt *repository.LevelAttemptRepository
	leaderboard  *repository.LeaderboardRepository
}

// Services 进度引擎的服务集合，命令行 seed 也复用这里的装配
type Services struct {
	Rules       *service.RuleSet
	Tx          *service.TxRunner
	Storage     *service.StorageService
	Locking     *service.LevelLockingService
	Attempts    *service.AttemptService
	Aggregation *service.AggregationService
	Finisher    *service.LevelRunFinisher
	Leaderboard *service.LeaderboardService
	Levels      *service.GameLevelService
	Tasks       *service.GameTaskService
	Sections    *service.GameSectionService
	Content     *service.ContentService
}

type controllers struct {
	level       *controller.GameLevelController
	task        *controller.GameTaskController
	section     *controller.GameSectionController
	leaderboard *controller.LeaderboardController
	health      *controller.HealthController
}

func (a *App) RegisterConfigCallback(callback func(*config.Config)) {
	a.configCallbacks = append(a.configCallbacks, callback)
}

func initRepositories(db *gorm.DB) *repositories {
	return &repositories{
		user:         repository.NewUserRepository(db),
		level:        repository.NewLevelRepository(db),
		task:         repository.NewTaskRepository(db),
		progress:     repository.NewProgressRepository(db),
		levelAttempt: repository.NewLevelAttemptRepository(db),
		leaderboard:  repository.NewLeaderboardRepository(db),
	}
}

// NewServices 按依赖顺序装配：锁定判断、令牌、汇总，再到投递与提交
func NewServices(cfg *config.Config, db *gorm.DB, rdb *redis.Client) *Services {
	repos := initRepositories(db)
	s := &Services{}

	s.Rules = service.NewRuleSet(cfg.Game)
	s.Tx = service.NewTxRunner(db, s.Rules)
	s.Storage = service.NewStorageService(cfg)
	s.Locking = service.NewLevelLockingService(repos.level, repos.progress)
	s.Attempts = service.NewAttemptService(repos.levelAttempt, s.Rules)
	s.Aggregation = service.NewAggregationService(repos.level, repos.task, repos.progress, repos.leaderboard)
	s.Finisher = service.NewLevelRunFinisher(repos.progress, s.Aggregation, s.Rules)
	s.Leaderboard = service.NewLeaderboardService(db, repos.level, repos.leaderboard, repos.user, rdb, s.Rules)

	s.Levels = service.NewGameLevelService(
		s.Tx,
		repos.level,
		repos.task,
		repos.progress,
		repos.levelAttempt,
		s.Locking,
		s.Attempts,
		s.Finisher,
		s.Storage,
		s.Leaderboard,
		s.Rules,
	)
	s.Tasks = service.NewGameTaskService(
		s.Tx,
		repos.level,
		repos.task,
		repos.progress,
		repos.levelAttempt,
		s.Attempts,
		s.Finisher,
		s.Storage,
		s.Leaderboard,
		cfg.JWT.Secret,
	)
	s.Sections = service.NewGameSectionService(db, repos.level, repos.task, repos.progress, s.Storage)
	s.Content = service.NewContentService(s.Tx, repos.level, repos.task, repos.user)

	return s
}

func (a *App) initControllers(s *Services) *controllers {
	return &controllers{
		level:       controller.NewGameLevelController(s.Levels),
		task:        controller.NewGameTaskController(s.Tasks),
		section:     controller.NewGameSectionController(s.Sections),
		leaderboard: controller.NewLeaderboardController(s.Leaderboard),
		health:      controller.NewHealthController(a.DB, a.Redis),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())
	router.Use(security.RateLimiter(cfg.RateLimit.MaxRequests, time.Duration(cfg.RateLimit.WindowMinutes)*time.Minute))

	// 分布式追踪中间件
	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

// New 只负责装配，数据库与 Redis 由调用方打开
func New(cfg *config.Config, db *gorm.DB, rdb *redis.Client) *App {
	gin.SetMode(cfg.Server.Mode)

	app := &App{
		Config: cfg,
		DB:     db,
		Redis:  rdb,
	}
	app.Services = NewServices(cfg, db, rdb)
	controllers := app.initControllers(app.Services)

	// 监控初始化
	monitoring.Init()

	router := gin.Default()
	app.Router = router

	app.setupMiddlewares(router, cfg)
	app.registerRoutes(router, controllers, cfg)

	if cfg.Storage.Type == "local" && cfg.Storage.LocalPath != "" {
		router.Static("/uploads", cfg.Storage.LocalPath)
	}

	// 配置热更新只作用于游戏规则
	app.RegisterConfigCallback(func(newCfg *config.Config) {
		app.Services.Rules.Set(newCfg.Game)
		logger.Log.Info("Game rules reloaded",
			zap.Int("replay_cooldown_seconds", newCfg.Game.ReplayCooldownSeconds),
			zap.Int("timer_grace_seconds", newCfg.Game.TimerGraceSeconds),
			zap.Int("leaderboard_limit", newCfg.Game.LeaderboardLimit),
		)
	})

	return app
}

// NewApp 打开存储并装配应用，供 serve 命令使用
func NewApp(cfg *config.Config) (*App, error) {
	db, err := database.InitDB(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("initialize database: %w", err)
	}

	if cfg.ForceMigrate || cfg.Server.Mode != "release" {
		if err := database.Migrate(db); err != nil {
			return nil, err
		}
	}

	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		// 缓存不可用时排行榜直接查库
		logger.Log.Warn("Redis unavailable, leaderboard cache disabled", zap.Error(err))
		rdb = nil
	}

	app := New(cfg, db, rdb)

	if cfg.Tracing.Enabled {
		tp, err := tracing.InitTracer(tracing.ServiceName, cfg.Tracing.CollectorEndpoint)
		if err != nil {
			return nil, fmt.Errorf("initialize tracing: %w", err)
		}
		app.tracer = tp
	}

	return app, nil
}

func (a *App) reload(cfg *config.Config) {
	for _, cb := range a.configCallbacks {
		cb(cfg)
	}
}

func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if a.Config.ConfigDir != "" {
		if err := configwatcher.WatchConfig(ctx, a.Config.ConfigDir, a.reload); err != nil {
			logger.Log.Warn("Config hot reload disabled", zap.Error(err))
		}
	}

	srv := &http.Server{
		Addr:              ":" + a.Config.Server.Port,
		Handler:           a.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Log.Info("Server running", zap.String("port", a.Config.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
	case <-ctx.Done():
	}
	logger.Log.Info("Shutting down server...")

	// 等待进行中的请求结束（5秒超时）
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	a.Close(shutdownCtx)
	logger.Log.Info("Server exiting")
	return nil
}

// Close 释放追踪、Redis 与数据库连接
func (a *App) Close(ctx context.Context) {
	if a.tracer != nil {
		if err := a.tracer.Shutdown(ctx); err != nil {
			logger.Log.Error("Failed to shutdown tracer provider", zap.Error(err))
		}
	}
	if a.Redis != nil {
		_ = a.Redis.Close()
	}
	if a.DB != nil {
		if sqlDB, err := a.DB.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
}
