package app

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/noah-isme/sma-substitution-api/internal/handler"
	"github.com/noah-isme/sma-substitution-api/internal/middleware"
	"github.com/noah-isme/sma-substitution-api/pkg/config"
	"github.com/noah-isme/sma-substitution-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/sma-substitution-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/sma-substitution-api/pkg/middleware/requestid"
)

type redisPinger struct {
	client *redis.Client
}

func (p redisPinger) PingContext(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}

// NewRouter mounts every HTTP route on a fresh gin engine.
func NewRouter(c *Container) *gin.Engine {
	cfg := c.Config
	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(c.Logger))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(c.Metrics))

	checks := map[string]handler.Pinger{"redis": nil}
	if c.DB != nil {
		checks["postgres"] = c.DB
	}
	if c.Redis != nil {
		checks["redis"] = redisPinger{client: c.Redis}
	}
	ops := handler.NewMetricsHandler(c.Metrics, checks)
	r.GET("/health", ops.Health)
	r.GET("/ready", ops.Ready)
	r.GET("/metrics", ops.Prometheus)
	r.GET("/metrics/summary", ops.Summary)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	substitutions := handler.NewSubstitutionHandler(c.Substitutions)
	teachers := handler.NewTeacherHandler(c.Performance, c.Preferences, c.Absences)

	api := r.Group(cfg.APIPrefix)
	{
		subs := api.Group("/substitutes")
		subs.GET("/available", substitutions.Available)
		subs.POST("/best", substitutions.Best)
	}
	{
		vacancies := api.Group("/substitutions")
		vacancies.POST("", substitutions.Create)
		vacancies.GET("", substitutions.List)
		vacancies.GET("/:id", substitutions.Get)
		vacancies.POST("/:id/auto-assign", substitutions.AutoAssign)
		vacancies.POST("/:id/assign", substitutions.Assign)
		vacancies.POST("/:id/decline", substitutions.Decline)
		vacancies.POST("/:id/complete", substitutions.Complete)
		vacancies.POST("/:id/rematch", substitutions.Rematch)
	}
	{
		teacher := api.Group("/teachers/:id")
		teacher.GET("/substitution-performance", teachers.Performance)
		teacher.GET("/substitution-stats", teachers.Stats)
		teacher.GET("/substitution-caps", teachers.GetCaps)
		teacher.PUT("/substitution-caps", teachers.UpsertCaps)
		teacher.POST("/absences", teachers.RecordAbsence)
	}

	return r
}
