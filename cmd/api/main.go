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

	"fieldwork/internal/config"
	"fieldwork/internal/database"
	"fieldwork/internal/domain/assignment"
	"fieldwork/internal/domain/audit"
	"fieldwork/internal/domain/auth"
	"fieldwork/internal/domain/equipment"
	"fieldwork/internal/domain/notification"
	"fieldwork/internal/middleware"
	jwtsvc "fieldwork/internal/pkg/jwt"
	"fieldwork/internal/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	if cfg.IsProd() {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.Connect(cfg.DatabaseURL, log)
	if err != nil {
		log.Fatal("database connect failed", zap.Error(err))
	}
	if err := database.Migrate(db); err != nil {
		log.Fatal("database migrate failed", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// repositories
	userRepo := auth.NewRepository(db)
	notificationRepo := notification.NewRepository(db)

	// services
	j := jwtsvc.New(cfg.JWTSecret, cfg.JWTTTL)
	authService := auth.NewService(userRepo, j)
	auditService := audit.NewService(db, log)

	hub := notification.NewHub(log)
	notificationService := notification.NewService(notificationRepo, hub, log)

	ledger := equipment.NewLedger()
	equipmentService := equipment.NewService(db, ledger, auditService, log)

	engine := assignment.NewEngine(assignment.Deps{
		DB:                db,
		Ledger:            ledger,
		Directory:         userRepo,
		Notifier:          notificationService,
		Auditor:           auditService,
		Log:               log,
		ManagerValidation: cfg.ManagerValidation,
	})

	notification.NewCleanupService(notificationRepo, log).
		Schedule(ctx, notification.DefaultCleanupConfig())

	// handlers
	authHandler := auth.NewHandler(authService)
	auditHandler := audit.NewHandler(auditService)
	equipmentHandler := equipment.NewHandler(equipmentService)
	assignmentHandler := assignment.NewHandler(engine)
	notificationHandler := notification.NewHandler(notificationService, hub, nil, log)

	r := gin.New()
	r.Use(middleware.Recovery(log))
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(log))
	r.Use(middleware.CORS(cfg.CORSAllowedOrigins))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "manager_validation": cfg.ManagerValidation})
	})

	v1 := r.Group("/api/v1")
	authHandler.RegisterPublicRoutes(v1)

	protected := v1.Group("")
	protected.Use(middleware.JWTAuth(j))
	{
		authHandler.RegisterProtectedRoutes(protected)
		equipmentHandler.RegisterRoutes(protected)
		assignmentHandler.RegisterRoutes(protected)
		notificationHandler.RegisterRoutes(protected)
		auditHandler.RegisterRoutes(protected)
	}

	// browsers cannot set headers on websocket upgrades
	ws := v1.Group("/ws")
	ws.Use(middleware.QueryTokenAuth(j))
	notificationHandler.RegisterWSRoutes(ws)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("server starting",
			zap.String("port", cfg.Port),
			zap.String("env", cfg.AppEnv),
			zap.Bool("manager_validation", cfg.ManagerValidation),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server stopped", zap.Error(err))
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", zap.Error(err))
	}
}
