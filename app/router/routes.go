// Package router provides HTTP routing, middleware configuration, and server setup for the web application
package router

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"log"
	"strings"
	"time"

	"github.com/nemaec/obra-erp/app/dto"
	"github.com/nemaec/obra-erp/app/handlers"
	"github.com/nemaec/obra-erp/app/middleware"
	"github.com/nemaec/obra-erp/utils"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/gofiber/fiber/v3/middleware/compress"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/helmet"
	"github.com/gofiber/fiber/v3/middleware/limiter"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/gofiber/fiber/v3/middleware/requestid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Router interface for HTTP routing
type Router interface {
	SetupRoutes()
	Start(address string) error
	GetApp() *fiber.App
}

// Handlers bundles every HTTP handler the router mounts
type Handlers struct {
	Auth       handlers.AuthHandlerInterface
	Comisaria  handlers.ComisariaHandlerInterface
	Partida    handlers.PartidaHandlerInterface
	Cronograma handlers.CronogramaHandlerInterface
	Contrato   handlers.ContratoHandlerInterface
	Dashboard  handlers.DashboardHandlerInterface
}

// FiberRouter implements Router using Fiber v3
type FiberRouter struct {
	app      *fiber.App
	h        Handlers
	auth     *middleware.AuthMiddleware
	corsOrig []string
}

// NewFiberRouter creates a new Fiber router
func NewFiberRouter(h Handlers, auth *middleware.AuthMiddleware, corsOrigins []string) Router {
	app := fiber.New(fiber.Config{
		AppName:      "Obra ERP API",
		ServerHeader: "obra-erp",
		ErrorHandler: errorHandler,
		BodyLimit:    16 * 1024 * 1024, // schedule workbooks can be large
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
		JSONEncoder:  json.Marshal,
		JSONDecoder:  json.Unmarshal,
	})

	return &FiberRouter{
		app:      app,
		h:        h,
		auth:     auth,
		corsOrig: corsOrigins,
	}
}

// SetupRoutes configures all application routes
func (r *FiberRouter) SetupRoutes() {
	log.Println("Setting up routes...")

	r.setupMiddleware()

	// Prometheus scrape endpoint, outside the API group
	r.app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	api := r.app.Group("/api/v1")

	// Health check route (no rate limiting)
	api.Get("/health", r.h.Auth.Health)

	// General rate limiting for all API routes
	api.Use(limiter.New(limiter.Config{
		Max:        2000,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: rateLimitReached,
		Next: func(c fiber.Ctx) bool {
			return c.Path() == "/api/v1/health"
		},
	}))

	// Auth routes with stricter rate limiting
	auth := api.Group("/auth")
	auth.Use(limiter.New(limiter.Config{
		Max:        20,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: rateLimitReached,
	}))

	auth.Post("/login", r.h.Auth.Login)
	auth.Post("/refresh", r.h.Auth.RefreshToken)
	auth.Get("/captcha", r.h.Auth.Captcha)

	// Station registry
	comisarias := api.Group("/comisarias", r.auth.Authenticate())
	comisarias.Post("/", r.h.Comisaria.Create)
	comisarias.Get("/", r.h.Comisaria.List)
	comisarias.Get("/codigo/:codigo", r.h.Comisaria.GetByCodigo)
	comisarias.Get("/:id", r.h.Comisaria.Get)
	comisarias.Patch("/:id", r.h.Comisaria.Update)
	comisarias.Post("/:id/iniciar-obra", r.h.Comisaria.IniciarObra)
	comisarias.Post("/:id/completar-obra", r.h.Comisaria.CompletarObra)
	comisarias.Post("/:id/suspender-obra", r.h.Comisaria.SuspenderObra)
	comisarias.Post("/:id/geocodificar", r.h.Comisaria.Geocode)

	// Partidas and progress reporting
	comisarias.Post("/:id/partidas/importar", r.h.Partida.Importar)
	comisarias.Get("/:id/partidas", r.h.Partida.List)
	partidas := api.Group("/partidas", r.auth.Authenticate())
	partidas.Get("/:id", r.h.Partida.Get)
	partidas.Post("/:id/avances", r.h.Partida.RegistrarAvance)
	partidas.Get("/:id/avances", r.h.Partida.ListAvances)

	// Schedule comparison and version approval
	comisarias.Post("/:id/cronograma/detectar", r.h.Cronograma.DetectarCambios)
	comisarias.Get("/:id/cronograma/versiones", r.h.Cronograma.ListVersiones)
	cronograma := api.Group("/cronograma", r.auth.Authenticate())
	cronograma.Get("/sesiones/:token/sugerencias", r.h.Cronograma.Sugerencias)
	cronograma.Delete("/sesiones/:token", r.h.Cronograma.DescartarSesion)
	cronograma.Post("/versiones", r.h.Cronograma.ConfirmarVersion)
	cronograma.Get("/versiones/:uuid", r.h.Cronograma.GetVersion)
	cronograma.Get("/versiones/:uuid/exportar", r.h.Cronograma.ExportarVersion)
	cronograma.Post("/modificaciones/:id/justificar", r.h.Cronograma.JustificarModificacion)

	// Resolution endpoints are reserved for authority accounts
	cronograma.Post("/versiones/:uuid/aprobar", r.auth.RequireAutoridad(), r.h.Cronograma.AprobarVersion)
	cronograma.Post("/versiones/:uuid/rechazar", r.auth.RequireAutoridad(), r.h.Cronograma.RechazarVersion)

	// Contracts
	contratos := api.Group("/contratos", r.auth.Authenticate())
	contratos.Post("/", r.h.Contrato.Create)
	contratos.Get("/", r.h.Contrato.List)
	contratos.Get("/vencidos", r.h.Contrato.ListVencidos)
	contratos.Get("/:id", r.h.Contrato.Get)
	contratos.Post("/:id/firmar", r.h.Contrato.Firmar)
	contratos.Post("/:id/iniciar", r.h.Contrato.Iniciar)
	contratos.Post("/:id/finalizar", r.h.Contrato.Finalizar)
	contratos.Post("/:id/suspender", r.h.Contrato.Suspender)
	contratos.Post("/:id/reanudar", r.h.Contrato.Reanudar)
	contratos.Post("/:id/rescindir", r.h.Contrato.Rescindir)
	contratos.Post("/:id/ampliar-plazo", r.h.Contrato.AmpliarPlazo)

	// Executive dashboard
	dashboard := api.Group("/dashboard", r.auth.Authenticate())
	dashboard.Get("/", r.h.Dashboard.Resumen)
	dashboard.Get("/comisarias/:id", r.h.Dashboard.RiesgoComisaria)

	// Not found handler
	r.app.Use(r.notFoundHandler)

	log.Println("Routes configured successfully")
}

// setupMiddleware configures global middleware
func (r *FiberRouter) setupMiddleware() {
	// Request ID middleware - must be first
	r.app.Use(requestid.New(requestid.Config{
		Header: "X-Request-ID",
		Generator: func() string {
			return generateRequestID()
		},
	}))

	// Security headers middleware
	r.app.Use(helmet.New(helmet.Config{
		XSSProtection:         "1; mode=block",
		ContentTypeNosniff:    "nosniff",
		XFrameOptions:         "DENY",
		HSTSMaxAge:            31536000,
		ContentSecurityPolicy: "default-src 'self'; frame-ancestors 'none';",
		ReferrerPolicy:        "strict-origin-when-cross-origin",
	}))

	// CORS middleware with production settings
	r.app.Use(cors.New(cors.Config{
		AllowOrigins: r.corsOrig,
		AllowMethods: []string{
			"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS",
		},
		AllowHeaders: []string{
			"Origin",
			"Content-Type",
			"Accept",
			"Authorization",
			"X-Requested-With",
			"X-Request-ID",
			"Cache-Control",
		},
		ExposeHeaders: []string{
			"X-Request-ID",
			"Content-Disposition",
		},
		AllowCredentials: true,
		MaxAge:           utils.CORSMaxAge,
	}))

	// Compression middleware for performance
	r.app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
		Next: func(c fiber.Ctx) bool {
			// Exported workbooks and PDFs are already compressed
			contentType := c.Get("Content-Type")
			return strings.Contains(contentType, "officedocument") ||
				strings.Contains(contentType, "application/pdf")
		},
	}))

	// Structured access logging
	r.app.Use(logger.New(logger.Config{
		Format:     `{"time":"${time}","pid":"${pid}","request_id":"${locals:requestid}","level":"info","method":"${method}","path":"${path}","protocol":"${protocol}","ip":"${ip}","user_agent":"${ua}","status":${status},"latency":"${latency}","bytes_in":${bytesReceived},"bytes_out":${bytesSent},"referer":"${referer}"}` + "\n",
		TimeFormat: time.RFC3339,
		TimeZone:   "UTC",
		Next: func(c fiber.Ctx) bool {
			return c.Path() == "/api/v1/health" || c.Path() == "/metrics"
		},
	}))

	// Prometheus request metrics
	r.app.Use(middleware.Metrics())

	// Recovery middleware with custom error handling
	r.app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
		StackTraceHandler: func(c fiber.Ctx, e interface{}) {
			log.Printf(`{"time":"%s","level":"error","request_id":"%s","event":"panic","error":"%v","path":"%s","method":"%s","ip":"%s"}`,
				utils.UTCNow().Format(time.RFC3339),
				c.Locals("requestid"),
				e,
				c.Path(),
				c.Method(),
				c.IP(),
			)
		},
	}))
}

// Start starts the HTTP server
func (r *FiberRouter) Start(address string) error {
	log.Printf("Starting server on %s", address)
	return r.app.Listen(address)
}

// GetApp returns the Fiber app instance
func (r *FiberRouter) GetApp() *fiber.App {
	return r.app
}

// Not found handler
func (r *FiberRouter) notFoundHandler(c fiber.Ctx) error {
	requestID := c.Locals("requestid")

	return c.Status(fiber.StatusNotFound).JSON(dto.APIResponse{
		Success: false,
		Message: "The requested resource was not found",
		Error: dto.ErrorDetail{
			Code: "NOT_FOUND",
			Details: fiber.Map{
				"path":       c.Path(),
				"method":     c.Method(),
				"request_id": requestID,
			},
		},
	})
}

func rateLimitReached(c fiber.Ctx) error {
	return c.Status(fiber.StatusTooManyRequests).JSON(dto.APIResponse{
		Success: false,
		Message: "Too many requests. Please try again later.",
		Error: dto.ErrorDetail{
			Code: "RATE_LIMIT_EXCEEDED",
		},
	})
}

// Global error handler
func errorHandler(c fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}

	log.Printf("Error %d: %v", code, err)

	requestID := c.Locals("requestid")

	return c.Status(code).JSON(dto.APIResponse{
		Success: false,
		Message: "An internal server error occurred",
		Error: dto.ErrorDetail{
			Code: "INTERNAL_ERROR",
			Details: fiber.Map{
				"timestamp":  utils.UTCNow().Unix(),
				"request_id": requestID,
			},
		},
	})
}

// generateRequestID creates a unique request ID
func generateRequestID() string {
	bytes := make([]byte, 8)
	rand.Read(bytes)
	return hex.EncodeToString(bytes)
}
