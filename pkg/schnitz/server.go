package schnitz

import (
	"context"
	"errors"
	"fmt"

	"github.com/bytedance/sonic"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog/log"

	"github.com/tensorplex-labs/comchat/pkg/signature"
)

// NewServer creates a peer RPC server. A nil verifier uses sr25519
// verification.
func NewServer(serverConfig *ServerConfig, verifier signature.SignatureVerifier) *Server {
	if serverConfig == nil {
		serverConfig = &ServerConfig{}
	}
	if serverConfig.Host == "" {
		serverConfig.Host = DefaultServerHost
	}
	if serverConfig.Port == 0 {
		serverConfig.Port = DefaultServerPort
	}
	if serverConfig.BodyLimit == 0 {
		serverConfig.BodyLimit = DefaultBodyLimit
	}
	if verifier == nil {
		verifier = signature.NewVerifier()
	}

	log.Info().
		Str("host", serverConfig.Host).
		Int("port", serverConfig.Port).
		Int("body_limit", serverConfig.BodyLimit).
		Str("self_key", serverConfig.SelfKey).
		Msg("Server configuration loaded")

	app := fiber.New(fiber.Config{
		Prefork:               false,
		DisableStartupMessage: true,
		ErrorHandler:          fiberErrHandler,
		JSONEncoder:           sonic.Marshal,
		JSONDecoder:           sonic.Unmarshal,
		BodyLimit:             serverConfig.BodyLimit,
	})

	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(createResponse(map[string]string{"status": "ok"}, nil))
	})

	app.Use(ZstdMiddleware(defaultWhitelist))
	app.Use(SignatureMiddleware(verifier, defaultWhitelist, serverConfig.SelfKey, serverConfig.MaxMessageAge))

	return &Server{
		App:    app,
		config: serverConfig,
	}
}

func fiberErrHandler(ctx *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError

	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
	}

	log.Error().
		Err(err).
		Int("status_code", code).
		Str("path", ctx.Path()).
		Str("method", ctx.Method()).
		Msg("Fiber error handler triggered")

	return ctx.Status(code).JSON(createResponse(map[string]any{}, err))
}

// ServeRoute registers handler under POST /<method>.
func ServeRoute[Req, Resp any](s *Server, method string, handler RouterHandler[Req, Resp]) {
	route := "/" + method

	s.App.Post(route, func(c *fiber.Ctx) error {
		var req Req
		if err := c.BodyParser(&req); err != nil {
			log.Error().
				Err(err).
				Str("route", route).
				Msg("Failed to parse request body")
			var zero Resp
			return c.Status(fiber.StatusBadRequest).JSON(createResponse(zero, err))
		}

		resp, err := handler(c, req)
		if err != nil {
			code := fiber.StatusInternalServerError
			var fe *fiber.Error
			if errors.As(err, &fe) {
				code = fe.Code
			}
			log.Error().
				Err(err).
				Int("status_code", code).
				Str("route", route).
				Msg("Handler returned error")
			var zero Resp
			return c.Status(code).JSON(createResponse(zero, err))
		}

		return c.JSON(createResponse(resp, nil))
	})
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
}

// Start blocks serving requests until Shutdown.
func (s *Server) Start() error {
	log.Info().Str("address", s.Addr()).Msg("Server listening")
	return s.App.Listen(s.Addr())
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.App.ShutdownWithContext(ctx)
}
