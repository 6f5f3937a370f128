package main

import (
	"strings"
	"time"

	"noteflow/cmd/server/handlers"
	aiHandlers "noteflow/cmd/server/handlers/ai"
	"noteflow/cmd/server/handlers/auth"
	"noteflow/cmd/server/handlers/httperr"
	notesHandlers "noteflow/cmd/server/handlers/notes"
	"noteflow/cmd/server/middlewares"
	"noteflow/internal/bootstrap"
	"noteflow/internal/config"
	"noteflow/internal/logger"
	"noteflow/internal/utils/crypto"
	"noteflow/internal/utils/validate"

	_ "noteflow/docs" // Load swagger docs

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/swagger"
)

const (
	RateLimitExpiration = 1 * time.Minute
)

// setupRouter configures and returns a Fiber app with all routes
func setupRouter(cfg config.Config, svc *bootstrap.Services) *fiber.App {
	v := validate.New()
	if err := crypto.RegisterPasswordValidator(v); err != nil {
		logger.L().Error("failed to register password validator", "err", err)
		panic(err)
	}

	// config.Load rejects other algorithms; this guards hand-built configs.
	if alg := strings.ToUpper(cfg.JWTAlgorithm); alg != "HS256" {
		logger.L().Error(config.ErrJWTAlgorithmUnsupported.Error(), "algorithm", cfg.JWTAlgorithm)
		panic(config.ErrJWTAlgorithmUnsupported.Error() + ": " + cfg.JWTAlgorithm)
	}

	app := fiber.New(fiber.Config{
		ErrorHandler: httperr.Handler,
		Immutable:    true, // make Fiber copy all request-derived strings
	})

	// Global middlewares
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Content-Type, Authorization",
	}))

	if cfg.RouteMetricsEnabled {
		middlewares.AttachMetrics(app, svc.Metrics...)
	}

	// Health check endpoint, outside versioned API to appease scanners and to avoid logging
	app.Get("/healthz", handlers.Healthz(svc.Probe))

	app.Get("/docs/*", swagger.HandlerDefault)

	var v1 fiber.Router
	if cfg.RequestLoggingEnabled {
		v1 = app.Group("/api/v1", fiberlogger.New())
		logger.L().Info("request logging enabled")
	} else {
		v1 = app.Group("/api/v1")
		logger.L().Info("request logging disabled")
	}

	jwtMiddleware := middlewares.JWT(cfg)

	// Auth
	authHandlers := auth.NewHandlers(svc.Auth, v)
	authGrp := v1.Group("/auth", middlewares.BuildRateLimiter(cfg.SignInRatePerMin, RateLimitExpiration))
	authGrp.Post("/sign-up", authHandlers.SignUp)
	authGrp.Post("/sign-in", authHandlers.SignIn)

	v1.Get("/me", jwtMiddleware, handlers.Me)

	// Notes, sharing and retrieval
	notesH := notesHandlers.NewHandlers(svc.Notes, svc.Links, svc.QA, cfg.RAGTopK, v)
	aiLimiter := middlewares.BuildUserRateLimiter(cfg.AIRatePerMin, RateLimitExpiration)

	notesGrp := v1.Group("/notes", jwtMiddleware)
	notesGrp.Post("/", notesH.Create)
	notesGrp.Get("/", notesH.List)
	notesGrp.Post("/accept-share-link", notesH.AcceptLink)
	notesGrp.Get("/:id", notesH.Get)
	notesGrp.Put("/:id", notesH.Update)
	notesGrp.Delete("/:id", notesH.Delete)
	notesGrp.Post("/:id/share", notesH.Share)
	notesGrp.Post("/:id/generate-share-link", notesH.IssueLink)
	notesGrp.Get("/:id/share-links", notesH.ListLinks)
	notesGrp.Delete("/:id/share-links/:linkID", notesH.RevokeLink)
	notesGrp.Get("/:id/search", aiLimiter, notesH.Search)

	// Assistant
	aiH := aiHandlers.NewHandlers(svc.Assist, v)
	aiGrp := v1.Group("/ai", jwtMiddleware, aiLimiter)
	aiGrp.Post("/summarize", aiH.Summarize)
	aiGrp.Post("/flashcards", aiH.Flashcards)
	aiGrp.Post("/chat", aiH.Chat)

	// WebSocket routes
	wsHandlers := notesHandlers.NewWebSocketHandlers(svc.Hub, cfg.EffectiveJWTSecret(), cfg.WSMaxSessionSec)
	app.Get("/ws/notes/stream", wsHandlers.WSUpgrade, websocket.New(wsHandlers.WSNotesStream))

	return app
}
