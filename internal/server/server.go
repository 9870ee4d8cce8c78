package server

import (
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"go.uber.org/zap"

	"nexusrag/internal/config"
	"nexusrag/internal/llm"
	"nexusrag/internal/retriever"
)

// Deps carries the services the HTTP layer depends on. Everything is
// constructed in main and injected; the server owns no globals.
type Deps struct {
	Retriever  *retriever.Retriever
	SessionLLM llm.Generator
	JudgeLLM   llm.Generator
	JudgeToken string
	Log        *zap.Logger
}

// Server hosts the session API, the stateless judge API and nothing else.
type Server struct {
	app *fiber.App
	cfg *config.AppConfig
	log *zap.Logger

	retriever  *retriever.Retriever
	sessionLLM llm.Generator
	judgeLLM   llm.Generator
	judgeToken []byte
	validate   *validator.Validate
}

func New(cfg *config.AppConfig, deps Deps) *Server {
	s := &Server{
		cfg:        cfg,
		log:        deps.Log,
		retriever:  deps.Retriever,
		sessionLLM: deps.SessionLLM,
		judgeLLM:   deps.JudgeLLM,
		judgeToken: []byte(deps.JudgeToken),
		validate:   validator.New(),
	}

	app := fiber.New(fiber.Config{
		AppName:      "nexusrag",
		BodyLimit:    cfg.Server.BodyLimitMB * 1024 * 1024,
		ErrorHandler: s.errorHandler,
	})

	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.Server.CorsAllowedOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, OPTIONS",
	}))
	app.Use(s.requestLogger)

	app.Get("/start_session", s.startSession)
	app.Post("/upload_docs", s.uploadDocs)
	app.Post("/query", s.query)

	api := app.Group("/api/v1")
	api.Post("/hackrx/run", s.judgeAuth, s.runSubmission)

	s.app = app
	return s
}

// App exposes the underlying Fiber app for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

func (s *Server) Run() error {
	s.log.Info("server listening", zap.String("addr", s.cfg.Server.Addr))
	return s.app.Listen(s.cfg.Server.Addr)
}

func (s *Server) requestLogger(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()
	s.log.Info("request",
		zap.String("method", c.Method()),
		zap.String("path", c.Path()),
		zap.Int("status", c.Response().StatusCode()),
		zap.Duration("duration", time.Since(start)))
	return err
}

// errorHandler maps service-level sentinels onto client-visible responses.
// The body shape is always {"detail": ...}.
func (s *Server) errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	detail := err.Error()

	var fe *fiber.Error
	var ve validator.ValidationErrors
	switch {
	case errors.As(err, &fe):
		code = fe.Code
		detail = fe.Message
	case errors.As(err, &ve):
		code = fiber.StatusBadRequest
	case errors.Is(err, retriever.ErrIndexNotFound):
		code = fiber.StatusNotFound
	case errors.Is(err, retriever.ErrNoDocuments):
		code = fiber.StatusBadRequest
	case errors.Is(err, llm.ErrMissingAPIKey):
		detail = "GEMINI_API_KEY not found in environment variables."
	}

	if code >= fiber.StatusInternalServerError {
		s.log.Error("request failed",
			zap.String("path", c.Path()),
			zap.Error(err))
	}
	return c.Status(code).JSON(fiber.Map{"detail": detail})
}
