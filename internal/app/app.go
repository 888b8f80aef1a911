package app

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"quiz_backend/internal/config"
	"quiz_backend/internal/controller"
	"quiz_backend/internal/repository"
	"quiz_backend/internal/service"
	"quiz_backend/pkg/configwatcher"
	"quiz_backend/pkg/database"
	"quiz_backend/pkg/logger"
	"quiz_backend/pkg/monitoring"
	"quiz_backend/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.mongodb.org/mongo-driver/mongo"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type App struct {
	Config *config.Config
	Router *gin.Engine
	DB     *gorm.DB
	Mongo  *mongo.Database
	Redis  *redis.Client

	services       *services
	tracerProvider *sdktrace.TracerProvider
	stopWatcher    context.CancelFunc
}

type services struct {
	quiz     *service.QuizService
	feedback *service.FeedbackService
}

type controllers struct {
	quiz     *controller.QuizController
	feedback *controller.FeedbackController
	health   *controller.HealthController
}

// initStore 按 database.driver 选择存储，开启 redis 时包一层读穿缓存
func (a *App) initStore(cfg *config.Config) (repository.QuizRepository, error) {
	var repo repository.QuizRepository

	switch cfg.Database.Driver {
	case "mongo":
		db, err := database.InitMongo(&cfg.Database)
		if err != nil {
			return nil, err
		}
		a.Mongo = db
		repo = repository.NewMongoQuizRepository(db)
	default:
		db, err := database.InitDB(&cfg.Database, cfg.Server.Mode)
		if err != nil {
			return nil, err
		}
		a.DB = db
		repo = repository.NewGormQuizRepository(db)
	}

	if cfg.Redis.Enabled {
		rdb, err := database.InitRedis(&cfg.Redis)
		if err != nil {
			// 缓存不可用不影响启动
			logger.Log.Warn("Redis unavailable, quiz cache disabled", zap.Error(err))
			return repo, nil
		}
		a.Redis = rdb
		repo = repository.NewCachedQuizRepository(repo, rdb, cfg.Redis.TTL)
	}

	return repo, nil
}

// bindGenerator 根据 AI 配置构建生成器并挂到反馈服务上，失败原因保留给兜底响应
func bindGenerator(feedback *service.FeedbackService, cfg config.AIConfig) {
	generator, err := service.NewTextGenerator(context.Background(), cfg)
	if err != nil {
		logger.Log.Warn("AI feedback disabled, fallback messages will be used",
			zap.String("provider", cfg.Provider),
			zap.Error(err),
		)
		feedback.SetGenerator(nil, err, cfg.Timeout)
		return
	}

	logger.Log.Info("AI feedback enabled",
		zap.String("provider", cfg.Provider),
		zap.String("model", generator.Model()),
	)
	feedback.SetGenerator(generator, nil, cfg.Timeout)
}

func (a *App) initServices(repo repository.QuizRepository, cfg *config.Config) *services {
	feedback := service.NewFeedbackService(nil, nil, cfg.AI.Timeout)
	bindGenerator(feedback, cfg.AI)

	return &services{
		quiz:     service.NewQuizService(repo),
		feedback: feedback,
	}
}

func (a *App) initControllers(s *services, repo repository.QuizRepository) *controllers {
	return &controllers{
		quiz:     controller.NewQuizController(s.quiz),
		feedback: controller.NewFeedbackController(s.feedback),
		health:   controller.NewHealthController(repo, a.Config.Database.Driver),
	}
}

// onConfigReload 只有 AI 配置支持热更新，其余配置需要重启
func (a *App) onConfigReload(newCfg *config.Config) {
	if newCfg.AI != a.Config.AI {
		bindGenerator(a.services.feedback, newCfg.AI)
	}
	a.Config.AI = newCfg.AI
}

func (a *App) startConfigWatcher() {
	if a.Config.File == "" {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	a.stopWatcher = cancel

	go func() {
		if err := configwatcher.WatchConfig(ctx, a.Config.File, a.onConfigReload); err != nil {
			logger.Log.Error("Config watcher stopped", zap.Error(err))
		}
	}()
}

func NewApp(cfg *config.Config) *App {
	logger.InitLogger(cfg)

	logger.Log.Info("Logger initialized successfully")

	gin.SetMode(cfg.Server.Mode)

	app := &App{Config: cfg}

	repo, err := app.initStore(cfg)
	if err != nil {
		logger.Log.Fatal("Failed to initialize database",
			zap.String("driver", cfg.Database.Driver),
			zap.Error(err),
		)
	}

	app.services = app.initServices(repo, cfg)
	controllers := app.initControllers(app.services, repo)

	// 监控初始化
	monitoring.Init()

	if cfg.Tracing.Enabled {
		tp, err := tracing.InitTracer(tracing.ServiceName, cfg.Tracing.CollectorEndpoint)
		if err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
		app.tracerProvider = tp
	}

	app.Router = newRouter(cfg, controllers)
	app.startConfigWatcher()

	return app
}

func (a *App) Run() {
	srv := &http.Server{
		Addr:    ":" + a.Config.Server.Port,
		Handler: a.Router,
	}

	// 启动服务器
	go func() {
		log.Printf("Server running on port %s", a.Config.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	// 等待中断信号优雅地关闭服务器（设置5秒的超时时间）
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Error("Server forced to shutdown", zap.Error(err))
	}

	a.close(ctx)
	log.Println("Server exiting")
}

// close 释放外部连接
func (a *App) close(ctx context.Context) {
	if a.stopWatcher != nil {
		a.stopWatcher()
	}
	if a.tracerProvider != nil {
		if err := a.tracerProvider.Shutdown(ctx); err != nil {
			logger.Log.Error("Failed to shutdown tracer provider", zap.Error(err))
		}
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			logger.Log.Error("Failed to close redis", zap.Error(err))
		}
	}
	if a.Mongo != nil {
		if err := a.Mongo.Client().Disconnect(ctx); err != nil {
			logger.Log.Error("Failed to disconnect mongo", zap.Error(err))
		}
	}
	if a.DB != nil {
		if sqlDB, err := a.DB.DB(); err == nil {
			sqlDB.Close()
		}
	}
	_ = logger.Log.Sync()
}
