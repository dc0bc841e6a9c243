package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/keyrelay/keyrelay/internal/apperr"
	"github.com/keyrelay/keyrelay/internal/config"
	"github.com/keyrelay/keyrelay/internal/metrics"
	"github.com/keyrelay/keyrelay/internal/model"
	"github.com/keyrelay/keyrelay/internal/service"
)

// Server wires HTTP handlers.
type Server struct {
	app        *fiber.App
	deviceSvc  *service.DeviceService
	commandSvc *service.CommandService
	statusSvc  *service.StatusService
	authSvc    *service.AuthService
	metrics    *metrics.Metrics
	cfg        *config.Config
	log        *slog.Logger
}

// Deps groups the services the server exposes. Metrics may be nil.
type Deps struct {
	Devices  *service.DeviceService
	Commands *service.CommandService
	Status   *service.StatusService
	Auth     *service.AuthService
	Metrics  *metrics.Metrics
	Log      *slog.Logger
}

// New builds a server instance.
func New(cfg *config.Config, deps Deps) *Server {
	app := fiber.New(fiber.Config{
		IdleTimeout:           cfg.HTTP.ReadTimeout,
		ReadTimeout:           cfg.HTTP.ReadTimeout,
		WriteTimeout:          cfg.HTTP.WriteTimeout,
		AppName:               "keyrelay",
		DisableStartupMessage: true,
	})
	log := deps.Log
	if log == nil {
		log = slog.Default()
	}
	s := &Server{
		app:        app,
		deviceSvc:  deps.Devices,
		commandSvc: deps.Commands,
		statusSvc:  deps.Status,
		authSvc:    deps.Auth,
		metrics:    deps.Metrics,
		cfg:        cfg,
		log:        log,
	}
	s.registerRoutes()
	return s
}

// App exposes the fiber app for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Start listens and serves HTTP traffic.
func (s *Server) Start() error {
	return s.app.Listen(s.cfg.HTTP.Addr)
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func (s *Server) registerRoutes() {
	s.app.Get("/healthz", s.handleHealth)

	s.app.Post("/auth/login", s.handleLogin)
	s.app.Get("/auth/profile", s.handleProfile)

	if s.metrics != nil && s.cfg.Metrics.Enabled {
		s.app.Get("/metrics", adaptor.HTTPHandler(s.metrics.Handler()))
	}

	api := s.app.Group("/api", s.requireAuth)
	api.Get("/devices", s.handleListDevices)
	// registered before /devices/:pubkey so "status" is not taken for a key
	api.Get("/devices/status", s.handleDeviceStatus)
	api.Get("/devices/:pubkey", s.handleGetDevice)
	api.Post("/devices", s.handleRegisterDevice)
	api.Put("/devices/:pubkey", s.handleEditDevice)
	api.Delete("/devices/:pubkey", s.handleDeleteDevice)
	api.Post("/devices/:pubkey/commands", s.handleSendCommand)
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.Status(http.StatusOK).JSON(fiber.Map{"status": "ok"})
}

func (s *Server) handleLogin(c *fiber.Ctx) error {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return s.fail(c, apperr.InvalidArg("Malformed request body", err))
	}
	if !s.authSvc.Enabled() {
		return c.JSON(model.Success("Login not required", fiber.Map{
			"token":    "",
			"enabled":  false,
			"username": "guest",
		}))
	}
	token, err := s.authSvc.Authenticate(req.Username, req.Password)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(model.Success("Logged in", fiber.Map{
		"token":    token,
		"enabled":  true,
		"username": s.authSvc.Username(),
	}))
}

func (s *Server) handleProfile(c *fiber.Ctx) error {
	if !s.authSvc.Enabled() {
		return c.JSON(model.Success("ok", fiber.Map{
			"enabled":  false,
			"username": "guest",
		}))
	}
	claims, err := s.authenticate(c)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(model.Success("ok", fiber.Map{
		"enabled":  true,
		"username": claims.Username,
	}))
}

func (s *Server) handleListDevices(c *fiber.Ctx) error {
	views, err := s.deviceSvc.ListViews(c.UserContext())
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(model.Success("ok", views))
}

func (s *Server) handleGetDevice(c *fiber.Ctx) error {
	device, err := s.deviceSvc.Get(c.UserContext(), c.Params("pubkey"))
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(model.Success("ok", service.ToView(device)))
}

func (s *Server) handleRegisterDevice(c *fiber.Ctx) error {
	var req service.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return s.fail(c, apperr.InvalidArg("Malformed request body", err))
	}
	device, err := s.deviceSvc.Register(c.UserContext(), req)
	if err != nil {
		return s.fail(c, err)
	}
	return c.Status(http.StatusCreated).JSON(model.Success("Device registered", service.ToView(device)))
}

func (s *Server) handleEditDevice(c *fiber.Ctx) error {
	var req service.EditRequest
	if err := c.BodyParser(&req); err != nil {
		return s.fail(c, apperr.InvalidArg("Malformed request body", err))
	}
	device, err := s.deviceSvc.Edit(c.UserContext(), c.Params("pubkey"), req)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(model.Success("Device updated", service.ToView(device)))
}

func (s *Server) handleDeleteDevice(c *fiber.Ctx) error {
	if err := s.deviceSvc.Delete(c.UserContext(), c.Params("pubkey")); err != nil {
		return s.fail(c, err)
	}
	return c.JSON(model.Success("Device removed", nil))
}

func (s *Server) handleSendCommand(c *fiber.Ctx) error {
	var req struct {
		PIN    string `json:"pin"`
		Action string `json:"action"`
	}
	if err := c.BodyParser(&req); err != nil {
		return s.fail(c, apperr.InvalidArg("Malformed request body", err))
	}
	cmd, err := s.commandSvc.Send(c.UserContext(), service.SendRequest{
		Pubkey: c.Params("pubkey"),
		PIN:    req.PIN,
		Action: req.Action,
	})
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(model.Success("Command sent", cmd))
}

func (s *Server) handleDeviceStatus(c *fiber.Ctx) error {
	statuses, err := s.statusSvc.Check(c.UserContext())
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(model.Success("ok", statuses))
}

func (s *Server) requireAuth(c *fiber.Ctx) error {
	if !s.authSvc.Enabled() {
		return c.Next()
	}
	claims, err := s.authenticate(c)
	if err != nil {
		return s.fail(c, err)
	}
	c.Locals("username", claims.Username)
	return c.Next()
}

func (s *Server) authenticate(c *fiber.Ctx) (*service.Claims, error) {
	token := extractBearerToken(c.Get(fiber.HeaderAuthorization))
	if token == "" {
		return nil, apperr.New(apperr.CodeUnauthenticated, "Login required")
	}
	return s.authSvc.Validate(token)
}

// fail renders err as the JSON envelope. Only the AppError message reaches the client.
func (s *Server) fail(c *fiber.Ctx, err error) error {
	code := apperr.CodeOf(err)
	status := statusFor(code)
	if status >= http.StatusInternalServerError {
		s.log.Error("request failed", "method", c.Method(), "path", c.Route().Path, "err", err)
	}
	var appErr *apperr.AppError
	if !errors.As(err, &appErr) {
		code = apperr.CodeInternal
	}
	return c.Status(status).JSON(model.ErrorWithCode(string(code), apperr.MessageOf(err)))
}

func statusFor(code apperr.Code) int {
	switch code {
	case apperr.CodeInvalidArgument:
		return http.StatusBadRequest
	case apperr.CodeNotFound:
		return http.StatusNotFound
	case apperr.CodeAlreadyExists:
		return http.StatusConflict
	case apperr.CodeUnauthenticated:
		return http.StatusUnauthorized
	case apperr.CodeResourceExhausted:
		return http.StatusTooManyRequests
	case apperr.CodeUnavailable:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func extractBearerToken(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 {
		return ""
	}
	if !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
