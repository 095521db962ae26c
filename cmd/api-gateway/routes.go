package main

import (
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/activity-log-api/api/swagger"
	"github.com/noah-isme/activity-log-api/internal/handler"
	"github.com/noah-isme/activity-log-api/internal/middleware"
	"github.com/noah-isme/activity-log-api/internal/models"
	"github.com/noah-isme/activity-log-api/internal/service"
	"github.com/noah-isme/activity-log-api/pkg/config"
	"github.com/noah-isme/activity-log-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/activity-log-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/activity-log-api/pkg/middleware/requestid"
)

type routeDeps struct {
	db       handler.Pinger
	metrics  *service.MetricsService
	validate *validator.Validate
	authSvc  *service.AuthService
	eventSvc *service.EventService
	userSvc  *service.UserService
}

func newRouter(cfg *config.Config, logr *zap.Logger, deps routeDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(deps.metrics, "/metrics"))

	metricsHandler := handler.NewMetricsHandler(deps.metrics, deps.db)
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	authHandler := handler.NewAuthHandler(deps.authSvc)
	eventHandler := handler.NewEventHandler(deps.eventSvc, deps.validate, logr)
	userHandler := handler.NewUserHandler(deps.userSvc)

	api := r.Group(cfg.APIPrefix)
	api.POST("/auth/login", middleware.RateLimit(cfg.Login.RateLimit, cfg.Login.RateBurst, logr), authHandler.Login)

	secured := api.Group("")
	secured.Use(middleware.JWT(deps.authSvc))

	admin := middleware.RequireRoles(models.RoleAdministrator)
	events := secured.Group("/events")
	events.GET("", admin, eventHandler.List)
	events.POST("/bulk", admin, eventHandler.Bulk)
	events.POST("/posts",
		middleware.RequireRoles(models.RoleAdministrator, models.RoleEditor, models.RoleAuthor, models.RoleContributor),
		eventHandler.RecordPost,
	)

	users := secured.Group("/users")
	users.GET("", admin, userHandler.List)
	users.POST("", admin, userHandler.Create)
	users.GET("/:id", middleware.RBAC(string(models.RoleAdministrator), middleware.RoleSelf), userHandler.Get)
	users.PUT("/:id", admin, userHandler.Update)
	users.DELETE("/:id", admin, userHandler.Delete)

	return r
}
