package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/questforge/server/analytics"
	apirest "github.com/questforge/server/api/rest"
	"github.com/questforge/server/audit"
	"github.com/questforge/server/cache"
	"github.com/questforge/server/config"
	dbadapter "github.com/questforge/server/db"
	mw "github.com/questforge/server/middleware"
	"github.com/questforge/server/model"
	"github.com/questforge/server/quest"
	"github.com/questforge/server/scheduler"
	"github.com/questforge/server/store"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

func main() {
	cfgPath := "config/config.yaml"
	if len(os.Args) > 1 {
		cfgPath = os.Args[1]
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	// ---- Logger ----
	var logger *zap.Logger
	var logErr error
	if cfg.Server.Debug {
		logger, logErr = zap.NewDevelopment()
	} else {
		logger, logErr = zap.NewProduction()
	}
	if logErr != nil {
		log.Fatalf("logger: %v", logErr)
	}
	defer logger.Sync()

	if cfg.Security.JWTSecret == "" {
		logger.Warn("security.jwt_secret is not set; all authenticated requests will be rejected")
	}

	// ---- Database ----
	db, err := dbadapter.Open(cfg.Database)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	if err := model.AutoMigrate(db); err != nil {
		log.Fatalf("db migrate: %v", err)
	}
	logger.Info("DB initialized", zap.String("mode", cfg.Database.Mode))

	// ---- Audit ----
	auditSvc := audit.New(db, logger)
	defer auditSvc.Stop(context.Background())

	// ---- Cache ----
	c, err := cache.New(cache.Config{
		RedisAddr:       cfg.Cache.RedisAddr,
		RedisPassword:   cfg.Cache.RedisPassword,
		RedisDB:         cfg.Cache.RedisDB,
		LocalGCInterval: cfg.Cache.LocalGCInterval,
	})
	if err != nil {
		log.Fatalf("cache: %v", err)
	}
	logger.Info("Cache initialized")

	// ---- Services ----
	st := store.NewGormStore(db, logger)
	questRepo := quest.NewRepository(st, logger)

	clock := analytics.SystemClock{}
	analyticsCache := analytics.NewCache(c, clock, logger)
	calculator := analytics.NewCalculator(clock)
	analyticsSvc := analytics.NewService(questRepo, calculator, analyticsCache, logger)

	questSvc := quest.NewService(questRepo, analyticsCache, auditSvc, logger)

	// ---- Scheduler ----
	sched := scheduler.New(logger)
	defer sched.Stop()
	sched.AddTicker("analytics_sweep", cfg.Analytics.SweepInterval, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		n, err := analyticsCache.CleanupExpired(ctx)
		if err != nil {
			logger.Warn("analytics sweep failed", zap.Error(err))
			return
		}
		if n > 0 {
			logger.Info("analytics sweep", zap.Int("removed", n))
		}
	})

	// ---- Gin HTTP Server ----
	if !cfg.Server.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(mw.TraceID(), mw.Logger(logger), mw.Recovery(logger))
	r.Use(mw.RateLimit(rate.Limit(cfg.Security.RateLimitRPS), cfg.Security.RateLimitBurst))

	// Health check
	r.GET("/health", func(ctx *gin.Context) {
		ctx.JSON(200, gin.H{"status": "ok"})
	})

	questH := apirest.NewQuestHandler(questSvc)
	analyticsH := apirest.NewAnalyticsHandler(analyticsSvc)

	api := r.Group("/api", mw.Auth(cfg.Security))
	{
		questsG := api.Group("/quests")
		questsG.POST("", questH.Create)
		questsG.GET("", questH.List)
		questsG.GET("/:id", questH.Get)
		questsG.PUT("/:id", questH.Update)
		questsG.DELETE("/:id", questH.Delete)
		questsG.POST("/:id/start", questH.Start)
		questsG.POST("/:id/complete", questH.Complete)
		questsG.POST("/:id/cancel", questH.Cancel)
		questsG.POST("/:id/fail", questH.Fail)

		api.GET("/analytics", analyticsH.Get)
	}

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	logger.Info("Server listening", zap.String("addr", addr))
	if err := r.Run(addr); err != nil {
		log.Fatalf("server: %v", err)
	}
}
