package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/vecinal/backend/config"
	"github.com/vecinal/backend/internal/auth"
	"github.com/vecinal/backend/internal/conference"
	"github.com/vecinal/backend/internal/delegations"
	"github.com/vecinal/backend/internal/invitations"
	"github.com/vecinal/backend/internal/meetings"
	"github.com/vecinal/backend/internal/middleware"
	"github.com/vecinal/backend/internal/models"
	"github.com/vecinal/backend/internal/notifications"
	"github.com/vecinal/backend/internal/polls"
	"github.com/vecinal/backend/internal/units"
	"github.com/vecinal/backend/pkg/database"
	"github.com/vecinal/backend/pkg/queue"
	"github.com/vecinal/backend/pkg/redis"
	"github.com/vecinal/backend/pkg/response"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("config load failed", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), database.PoolConfig{
		MaxConns:        int32(cfg.Database.MaxConns),
		MinConns:        int32(cfg.Database.MinConns),
		MaxConnLifetime: time.Duration(cfg.Database.ConnLifetimeMin) * time.Minute,
	}, logger)
	if err != nil {
		logger.Fatal("database connection failed", zap.Error(err))
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool); err != nil {
		logger.Fatal("migrations failed", zap.Error(err))
	}

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.PoolSize, logger)
	if err != nil {
		logger.Fatal("redis connection failed", zap.Error(err))
	}
	defer rdb.Close()

	jobQueue := queue.NewQueue(rdb.Client, logger)

	// Repositories.
	authRepo := auth.NewRepository(pool)
	unitsRepo := units.NewRepository(pool)
	invRepo := invitations.NewRepository(pool)
	meetingsRepo := meetings.NewRepository(pool)
	pollsRepo := polls.NewRepository(pool)
	delegRepo := delegations.NewRepository(pool)
	notifRepo := notifications.NewRepository(pool)

	// Services.
	notifSvc := notifications.NewService(notifRepo, invRepo, jobQueue, logger)
	jwtSvc := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours, cfg.AutoLogin.ExpireHours)
	autoLoginSvc := auth.NewAutoLoginService(authRepo, jwtSvc, notifSvc, logger)
	meetingsSvc := meetings.NewService(meetingsRepo, invRepo, pollsRepo, logger)
	pollsSvc := polls.NewService(pollsRepo, meetingsRepo, invRepo, unitsRepo, logger)
	confSvc := conference.NewService(cfg.Conference.BaseURL, logger)

	// Handlers.
	authHandler := auth.NewHandler(authRepo, jwtSvc, autoLoginSvc, meetingsSvc, logger)
	unitsHandler := units.NewHandler(unitsRepo, authRepo, notifSvc, logger)
	meetingsHandler := meetings.NewHandler(meetingsRepo, meetingsSvc, unitsRepo, confSvc, notifSvc,
		cfg.Quorum.DefaultThresholdPct, logger)
	invHandler := invitations.NewHandler(invRepo)
	pollsHandler := polls.NewHandler(pollsRepo, pollsSvc, meetingsRepo)
	delegHandler := delegations.NewHandler(delegRepo, notifSvc)
	notifHandler := notifications.NewHandler(notifRepo)

	limiter := middleware.NewRateLimiter(rdb.Client, cfg.RateLimit.WindowSeconds,
		cfg.RateLimit.AuthRequests, cfg.RateLimit.QRRequests, cfg.RateLimit.GeneralRequests, logger)

	router := buildRouter(cfg, logger, limiter, jwtSvc, authRepo,
		authHandler, unitsHandler, meetingsHandler, invHandler, pollsHandler, delegHandler, notifHandler)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown failed", zap.Error(err))
		os.Exit(1)
	}
}

func buildRouter(
	cfg *config.Config,
	logger *zap.Logger,
	limiter *middleware.RateLimiter,
	jwtSvc *auth.JWTService,
	authRepo *auth.Repository,
	authHandler *auth.Handler,
	unitsHandler *units.Handler,
	meetingsHandler *meetings.Handler,
	invHandler *invitations.Handler,
	pollsHandler *polls.Handler,
	delegHandler *delegations.Handler,
	notifHandler *notifications.Handler,
) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(
		gin.Recovery(),
		middleware.Logger(logger),
		middleware.CORS(cfg.Server.CORSAllowedOrigins),
		middleware.Timeout(cfg.Server.RequestTimeout),
	)

	router.GET("/health", func(c *gin.Context) {
		response.OK(c, "ok", gin.H{"time": time.Now().UTC()})
	})

	// Public endpoints, each under its rate-limit class.
	router.POST("/auth/login", limiter.Limit(middleware.ClassAuth), authHandler.Login)
	router.POST("/auth/register", limiter.Limit(middleware.ClassAuth), authHandler.Register)
	router.GET("/auto-login/:token", limiter.Limit(middleware.ClassQR), authHandler.RedeemAutoLogin)

	authed := router.Group("/", limiter.Limit(middleware.ClassGeneral), middleware.JWT(jwtSvc, authRepo))
	{
		authed.POST("/auth/logout", authHandler.Logout)
		authed.POST("/users/:id/auto-login",
			middleware.RequireRole(models.RoleSuperAdmin, models.RoleUnitAdmin), authHandler.IssueAutoLogin)

		authed.POST("/units", middleware.RequireRole(models.RoleSuperAdmin), unitsHandler.Create)
		authed.DELETE("/units/:id", middleware.RequireRole(models.RoleSuperAdmin), unitsHandler.Delete)
		authed.GET("/units/:id/members", unitsHandler.ListMembers)
		authed.POST("/units/:id/admin",
			middleware.RequireRole(models.RoleSuperAdmin), unitsHandler.RotateAdmin)
		authed.POST("/units/:id/members/batch",
			middleware.RequireRole(models.RoleSuperAdmin, models.RoleUnitAdmin), unitsHandler.BatchMembers)

		authed.POST("/meetings", meetingsHandler.Create)
		authed.GET("/meetings", meetingsHandler.List)
		authed.GET("/meetings/:id", meetingsHandler.GetByID)
		authed.PUT("/meetings/:id", meetingsHandler.Update)
		authed.DELETE("/meetings/:id", meetingsHandler.Delete)
		authed.POST("/meetings/:id/start", meetingsHandler.Start)
		authed.POST("/meetings/:id/end", meetingsHandler.End)
		authed.POST("/meetings/:id/register-attendance", invHandler.RegisterAttendance)
		authed.POST("/meetings/:id/register-leave", invHandler.RegisterLeave)
		authed.GET("/meetings/:id/invitations", invHandler.ListByMeeting)
		authed.GET("/meetings/:id/polls", pollsHandler.ListByMeeting)
		authed.GET("/meetings/:id/delegation-history", delegHandler.History)
		authed.GET("/meetings/:id/notifications", notifHandler.ListByMeeting)

		authed.POST("/meeting-invitations/invitations/batch", invHandler.CreateBatch)

		authed.POST("/polls", pollsHandler.Create)
		authed.GET("/polls/:id", pollsHandler.GetByID)
		authed.POST("/polls/:id/start", pollsHandler.Start)
		authed.POST("/polls/:id/end", pollsHandler.End)
		authed.POST("/polls/:id/responses", pollsHandler.Vote)
		authed.GET("/polls/:id/statistics", pollsHandler.Statistics)

		authed.POST("/delegations", delegHandler.Create)
		authed.DELETE("/delegations/:meetingId/:delegatorId", delegHandler.Revoke)
	}

	return router
}
