package app

import (
	"time"

	"quiz_backend/docs"
	"quiz_backend/internal/config"
	"quiz_backend/pkg/monitoring"
	"quiz_backend/pkg/security"
	"quiz_backend/pkg/tracing"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func newRouter(cfg *config.Config, c *controllers) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	setupMiddlewares(router, cfg)
	registerRoutes(router, c)

	return router
}

func setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())

	if cfg.RateLimit.MaxRequests > 0 {
		window := time.Duration(cfg.RateLimit.WindowMinutes) * time.Minute
		if window <= 0 {
			window = time.Minute
		}
		router.Use(security.RateLimiter(cfg.RateLimit.MaxRequests, window))
	}

	// 分布式追踪中间件
	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

func registerRoutes(router *gin.Engine, c *controllers) {
	docs.SwaggerInfo.BasePath = "/api"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())
	router.GET("/", c.health.Liveness)

	api := router.Group("/api")
	{
		api.GET("/health", c.health.HealthCheck)

		quizzes := api.Group("/quizzes")
		{
			quizzes.GET("", c.quiz.ListQuizzes)
			quizzes.POST("", c.quiz.CreateQuiz)
			quizzes.GET("/:id", c.quiz.GetQuiz)
			quizzes.PUT("/:id", c.quiz.UpdateQuiz)
			quizzes.DELETE("/:id", c.quiz.DeleteQuiz)
			quizzes.POST("/:id/submit", c.quiz.SubmitQuiz)
		}

		api.POST("/feedback", c.feedback.GenerateFeedback)
	}
}
