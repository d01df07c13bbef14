// Package main provides the main entry point for the police station works monitoring system
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nemaec/obra-erp/app/handlers"
	"github.com/nemaec/obra-erp/app/middleware"
	"github.com/nemaec/obra-erp/app/router"
	"github.com/nemaec/obra-erp/app/scheduler"
	"github.com/nemaec/obra-erp/app/services"
	businessflow "github.com/nemaec/obra-erp/business_flow"
	"github.com/nemaec/obra-erp/config"
	"github.com/nemaec/obra-erp/models"
	"github.com/nemaec/obra-erp/repository"
	"github.com/nemaec/obra-erp/utils"
	"github.com/gofiber/fiber/v3"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/natefinch/lumberjack.v2"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Application represents the main application structure
type Application struct {
	router    *router.FiberRouter
	config    *config.ProductionConfig
	server    *fiber.App
	stopFuncs []func()
}

func main() {
	log.Println("Starting obra-erp application...")

	// Load production configuration
	cfg, err := config.LoadProductionConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	setupLogging(cfg.Logging)

	// Initialize application
	app, err := initializeApplication(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}

	// Setup routes
	app.router.SetupRoutes()

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Start server in goroutine
	go func() {
		address := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		log.Printf("Server starting on %s", address)

		if err := app.server.Listen(address); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for shutdown signal
	<-sigChan
	log.Println("Shutting down gracefully...")

	// Stop background workers
	for _, fn := range app.stopFuncs {
		fn()
	}

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := app.server.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("Error during shutdown: %v", err)
	}

	log.Println("Server stopped")
}

// setupLogging routes the standard logger through a rotating file when configured
func setupLogging(cfg config.LoggingConfig) {
	if cfg.Output == "stdout" || cfg.FilePath == "" {
		return
	}

	rotating := &lumberjack.Logger{
		Filename:   cfg.FilePath,
		MaxSize:    cfg.MaxSize,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge,
		Compress:   cfg.Compress,
	}

	if cfg.Output == "both" {
		log.SetOutput(io.MultiWriter(os.Stdout, rotating))
		return
	}
	log.SetOutput(rotating)
}

// initializeDatabase initializes the database connection with connection pooling
func initializeDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Name, cfg.SSLMode)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Get underlying sql.DB for connection pooling configuration
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	// Configure connection pooling
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	// Test the connection
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Printf("Database connection established with %d max open connections, %d max idle connections",
		cfg.MaxOpenConns, cfg.MaxIdleConns)

	return db, nil
}

// initializeCache initializes the Redis client and verifies connectivity
func initializeCache(cfg config.CacheConfig) (*redis.Client, error) {
	if !cfg.Enabled || cfg.Provider != "redis" {
		return nil, nil
	}

	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	// Override DB if provided in config
	opt.DB = cfg.RedisDB

	rc := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rc.Ping(ctx).Err(); err != nil {
		_ = rc.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	log.Printf("Redis connection established to %s (db=%d)", cfg.RedisURL, cfg.RedisDB)
	return rc, nil
}

// startCacheHealthMonitor starts a background goroutine that periodically pings Redis
// to detect connectivity issues. The returned cancel function stops the monitor.
func startCacheHealthMonitor(parent context.Context, client *redis.Client, interval time.Duration) func() {
	monitorCtx, cancel := context.WithCancel(parent)
	if interval <= 0 {
		interval = 30 * time.Second
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-monitorCtx.Done():
				return
			case <-ticker.C:
				ctx, c := context.WithTimeout(context.Background(), 3*time.Second)
				if err := client.Ping(ctx).Err(); err != nil {
					log.Printf("Redis healthcheck failed: %v", err)
				}
				c()
			}
		}
	}()
	return cancel
}

// initializeApplication initializes the main application components
func initializeApplication(cfg *config.ProductionConfig) (*Application, error) {
	var stopFuncs []func()

	// Initialize database
	db, err := initializeDatabase(cfg.Database)
	if err != nil {
		return nil, err
	}

	rc, err := initializeCache(cfg.Cache)
	if err != nil {
		return nil, err
	}

	if rc != nil {
		cancel := startCacheHealthMonitor(context.Background(), rc, 30*time.Second)
		stopFuncs = append(stopFuncs, cancel)
	}

	// Initialize repositories
	usuarioRepo := repository.NewUsuarioRepository(db)
	auditRepo := repository.NewAuditLogRepository(db)
	comisariaRepo := repository.NewComisariaRepository(db)
	partidaRepo := repository.NewPartidaRepository(db)
	contratoRepo := repository.NewContratoRepository(db)
	versionRepo := repository.NewCronogramaVersionRepository(db)

	// Seed the initial authority account when configured
	if err := ensureAutoridad(db, usuarioRepo, cfg); err != nil {
		return nil, err
	}

	// Captcha service for authority logins
	var captchaSvc services.CaptchaService
	if cfg.Security.CaptchaEnabled {
		captchaSvc, err = services.NewCaptchaServiceRotate(2*time.Minute, 15, 300)
		if err != nil {
			return nil, err
		}
	}

	// Initialize token service
	tokenService, err := services.NewTokenService(
		cfg.JWT.AccessTokenTTL,
		cfg.JWT.RefreshTokenTTL,
		cfg.JWT.Issuer,
		cfg.JWT.Audience,
		false,
		"",
		"",
		cfg.JWT.SecretKey,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize token service: %w", err)
	}

	log.Printf("Token service initialized with issuer: %s, audience: %s", cfg.JWT.Issuer, cfg.JWT.Audience)

	// Comparison pipeline services
	comparacion := services.NewComparacionService()
	parser := services.NewCronogramaParser()
	exporter := services.NewExportService()

	var sesiones services.SessionStore
	if rc != nil {
		sesiones = services.NewRedisSessionStore(rc, cfg.Cache.RedisPrefix+"sesion:", cfg.Comparison.SessionTTL)
	} else {
		sesiones = services.NewMemorySessionStore(cfg.Comparison.SessionTTL)
	}

	// Geocoding proxy is optional
	var maps services.MapsClient
	if cfg.Maps.Enabled {
		maps = services.NewGoogleMapsClient(cfg.Maps.BaseURL, cfg.Maps.APIKey, cfg.Maps.Timeout)
	}

	// Initialize flows
	loginFlow := businessflow.NewLoginFlow(usuarioRepo, auditRepo, tokenService, captchaSvc, db)
	comisariaFlow := businessflow.NewComisariaFlow(comisariaRepo, auditRepo, maps, db)
	partidaFlow := businessflow.NewPartidaFlow(comisariaRepo, partidaRepo, auditRepo, parser, db)
	contratoFlow := businessflow.NewContratoFlow(contratoRepo, comisariaRepo, auditRepo, db)
	cronogramaFlow := businessflow.NewCronogramaFlow(
		comisariaRepo,
		partidaRepo,
		versionRepo,
		auditRepo,
		comparacion,
		parser,
		sesiones,
		exporter,
		db,
	)
	dashboardFlow := businessflow.NewDashboardFlow(comisariaRepo, partidaRepo, versionRepo)

	if cfg.Scheduler.VencimientoEnabled {
		sched := scheduler.NewVencimientoScheduler(contratoRepo, auditRepo, log.Default(), cfg.Scheduler.VencimientoInterval)
		stopFuncs = append(stopFuncs, sched.Start(context.Background()))
	}

	// Initialize auth middleware
	authMiddleware := middleware.NewAuthMiddleware(tokenService, usuarioRepo)

	// Initialize router
	appRouter := router.NewFiberRouter(
		router.Handlers{
			Auth:       handlers.NewAuthHandler(loginFlow),
			Comisaria:  handlers.NewComisariaHandler(comisariaFlow),
			Partida:    handlers.NewPartidaHandler(partidaFlow),
			Cronograma: handlers.NewCronogramaHandler(cronogramaFlow),
			Contrato:   handlers.NewContratoHandler(contratoFlow),
			Dashboard:  handlers.NewDashboardHandler(dashboardFlow),
		},
		authMiddleware,
		cfg.Security.AllowedOrigins,
	)

	// Create application struct from FiberRouter
	fiberRouter := appRouter.(*router.FiberRouter)
	application := &Application{
		router:    fiberRouter,
		config:    cfg,
		server:    fiberRouter.GetApp(),
		stopFuncs: stopFuncs,
	}

	return application, nil
}

// ensureAutoridad creates the configured authority account if it does not exist yet
func ensureAutoridad(db *gorm.DB, usuarioRepo repository.UsuarioRepository, cfg *config.ProductionConfig) error {
	if cfg.Seed.AutoridadEmail == "" || cfg.Seed.AutoridadPassword == "" {
		return nil
	}

	existente, err := usuarioRepo.ByEmail(context.Background(), cfg.Seed.AutoridadEmail)
	if err != nil {
		return err
	}
	if existente != nil {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(cfg.Seed.AutoridadPassword), cfg.Security.BcryptCost)
	if err != nil {
		return err
	}

	autoridad := &models.Usuario{
		Email:          cfg.Seed.AutoridadEmail,
		NombreCompleto: cfg.Seed.AutoridadNombre,
		Rol:            models.RolAutoridad,
		PasswordHash:   string(hash),
		IsActive:       true,
		CreatedAt:      utils.UTCNow(),
	}
	if err := usuarioRepo.Save(context.Background(), autoridad); err != nil {
		return err
	}

	log.Printf("Seeded authority account %s", cfg.Seed.AutoridadEmail)
	return nil
}
