package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/apex/log"
	jsonhandler "github.com/apex/log/handlers/json"
	"github.com/apex/log/handlers/text"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/releasedesk/backend/internal/config"
	"github.com/releasedesk/backend/internal/handlers"
	"github.com/releasedesk/backend/internal/middleware"
	"github.com/releasedesk/backend/internal/models"
	"github.com/releasedesk/backend/internal/pkg/audio"
	"github.com/releasedesk/backend/internal/services"
	"github.com/releasedesk/backend/internal/session"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Info("no .env file found, using environment variables")
	}

	cfg := config.New()

	if cfg.Env == "production" {
		log.SetHandler(jsonhandler.New(os.Stderr))
		log.SetLevel(log.InfoLevel)
	} else {
		log.SetHandler(text.New(os.Stderr))
		log.SetLevel(log.DebugLevel)
	}

	db, err := models.InitDB(cfg)
	if err != nil {
		log.WithError(err).Fatal("failed to initialize database")
	}
	auditService := services.NewAuditService(db)
	if err := auditService.Migrate(); err != nil {
		log.WithError(err).Fatal("failed to run migrations")
	}

	redisClient, err := models.InitRedis(context.Background(), cfg)
	if err != nil {
		log.WithError(err).Fatal("failed to connect to redis")
	}
	defer redisClient.Close()

	objectStore, err := services.NewS3Store(cfg)
	if err != nil {
		log.WithError(err).Fatal("failed to init staging store")
	}

	var probe services.AudioProber
	if cfg.AudioProbeEnabled {
		probe = audio.Probe
		log.Info("audio probing enabled")
	}

	// Initialize services
	sessions := session.NewRedisStore(redisClient, cfg)
	upstream := services.NewUpstreamClient(cfg)
	staging := services.NewStagingService(objectStore, cfg)
	authService := services.NewAuthService(upstream, sessions, staging, auditService, cfg)
	userService := services.NewUserService(upstream, sessions, auditService)
	onboardingService := services.NewOnboardingService(upstream, sessions, staging, auditService)
	wizardService := services.NewWizardService(upstream, sessions, staging, auditService, probe)
	releaseService := services.NewReleaseService(upstream, auditService)
	reportService := services.NewReportService(cfg)

	// Setup Gin router
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(middleware.Logger())
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg))
	router.Use(middleware.RateLimiter(redisClient, cfg))
	router.MaxMultipartMemory = 32 << 20

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService)
	userHandler := handlers.NewUserHandler(userService, auditService)
	onboardingHandler := handlers.NewOnboardingHandler(onboardingService)
	wizardHandler := handlers.NewWizardHandler(wizardService)
	releaseHandler := handlers.NewReleaseHandler(releaseService, reportService)

	// Health check outside API group (no /api/v1 prefix)
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})

	api := router.Group("/api/v1")
	{
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "healthy"})
		})

		// Catch-all OPTIONS handler for CORS preflight requests
		api.OPTIONS("/*path", func(c *gin.Context) {
			c.Status(http.StatusNoContent)
		})

		auth := api.Group("/auth")
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
			auth.POST("/refresh", authHandler.RefreshToken)
			auth.POST("/logout", middleware.Auth(authService), authHandler.Logout)
		}

		me := api.Group("/me")
		me.Use(middleware.Auth(authService))
		{
			me.GET("", userHandler.GetProfile)
			me.PUT("", userHandler.UpdateProfile)
			me.PUT("/currency", userHandler.SetCurrency)
		}

		api.GET("/submissions", middleware.Auth(authService), userHandler.GetSubmissions)

		onboarding := api.Group("/onboarding")
		onboarding.Use(middleware.Auth(authService))
		onboarding.Use(middleware.UploadRateLimit(redisClient, cfg))
		{
			onboarding.GET("", onboardingHandler.GetOnboarding)
			onboarding.POST("", onboardingHandler.ResetOnboarding)
			onboarding.PUT("/steps/:step", onboardingHandler.SetStep)
			onboarding.POST("/documents", onboardingHandler.UploadDocument)
			onboarding.POST("/next", onboardingHandler.Next)
			onboarding.POST("/previous", onboardingHandler.Previous)
			onboarding.POST("/jump/:step", onboardingHandler.JumpTo)
		}

		// Submissions are limited per artist and escalate to a 1-hour block
		submitLimit := middleware.SubmissionRateLimit(auditService, redisClient, services.ActionSubmitRelease,
			cfg.SubmissionRateLimitActions, cfg.SubmissionRateLimitWindowMinutes)

		wiz := api.Group("/wizard")
		wiz.Use(middleware.Auth(authService))
		wiz.Use(middleware.UploadRateLimit(redisClient, cfg))
		{
			wiz.GET("", wizardHandler.GetWizard)
			wiz.POST("", wizardHandler.ResetWizard)
			wiz.PUT("/release-info", wizardHandler.SetReleaseInfo)
			wiz.PUT("/tracks", wizardHandler.SetTracks)
			wiz.PUT("/tracks/:index/artists", wizardHandler.SetTrackArtists)
			wiz.POST("/artwork", wizardHandler.UploadArtwork)
			wiz.POST("/tracks/:index/audio", wizardHandler.UploadTrackAudio)
			wiz.PUT("/review", wizardHandler.SetReview)
			wiz.POST("/next", submitLimit, wizardHandler.Next)
			wiz.POST("/previous", wizardHandler.Previous)
			wiz.POST("/jump/:step", wizardHandler.JumpTo)
		}

		releases := api.Group("/releases")
		releases.Use(middleware.Auth(authService))
		{
			releases.GET("", releaseHandler.GetReleases)
			// Specific routes BEFORE generic :id route
			releases.GET("/summary", releaseHandler.GetSummary)
			releases.GET("/:id", releaseHandler.GetRelease)
			releases.GET("/:id/artists", releaseHandler.GetReleaseArtists)
			releases.POST("/:id/submit", submitLimit, releaseHandler.SubmitRelease)
		}

		// Plain download links carry the session token as ?token=
		api.GET("/releases/:id/summary.pdf", middleware.TokenFromQuery(), middleware.Auth(authService), releaseHandler.GetReleaseSummaryPDF)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.WithField("port", cfg.Port).Info("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.WithError(err).Fatal("server forced to shutdown")
	}
	log.Info("server exited")
}
