// Package httpserver exposes the gatekeeper as fiber middleware, together with the admin and analytics JSON API.
package httpserver

import (
	"crypto/subtle"
	"errors"
	"strconv"
	"strings"
	"time"

	"edgeguard/config"
	"edgeguard/guard"
	"edgeguard/metrics"
	"edgeguard/protection"

	"github.com/bytedance/sonic"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/proxy"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Server is the HTTP face of the engine.
type Server struct {
	logger         zerolog.Logger
	app            *fiber.App
	config         config.HTTP
	trustedProxies []string
	gatekeeper     guard.Gatekeeper
	admin          guard.Administrator
	analytics      guard.Analytics
	recorder       *metrics.Recorder
	startedAt      time.Time
}

type sourceBody struct {
	SourceID string `json:"sourceId"`
}

type blockedResponse struct {
	Allowed       bool   `json:"allowed"`
	Challenge     bool   `json:"challenge"`
	Reason        string `json:"reason"`
	AttackType    string `json:"attackType"`
	TransactionID string `json:"transactionId"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// NewServer creates the fiber app and registers all routes.
func NewServer(logger zerolog.Logger, c config.HTTP, trustedProxies []string, gk guard.Gatekeeper, admin guard.Administrator, analytics guard.Analytics, recorder *metrics.Recorder) *Server {
	s := &Server{
		logger:         logger,
		config:         c,
		trustedProxies: trustedProxies,
		gatekeeper:     gk,
		admin:          admin,
		analytics:      analytics,
		recorder:       recorder,
		startedAt:      time.Now(),
	}

	s.app = fiber.New(fiber.Config{
		AppName:               "edgeguard",
		DisableStartupMessage: true,
		JSONEncoder:           sonic.Marshal,
		JSONDecoder:           sonic.Unmarshal,
		ErrorHandler:          s.handleError,
	})
	s.app.Use(recover.New())

	s.app.Get("/health", s.health)
	s.app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(recorder.Registry(), promhttp.HandlerOpts{})))

	adminGroup := s.app.Group("/admin", s.requireAdminToken)
	adminGroup.Post("/whitelist", s.whitelist)
	adminGroup.Post("/blacklist", s.blacklist)
	adminGroup.Post("/cache/clear", s.clearCache)
	adminGroup.Get("/reputation/:source", s.reputation)
	adminGroup.Get("/attacks/:source", s.recentAttacks)

	analyticsGroup := s.app.Group("/analytics", s.requireAdminToken)
	analyticsGroup.Get("/attacks", s.attackData)
	analyticsGroup.Get("/reputation", s.reputationStats)
	analyticsGroup.Get("/metrics", s.liveMetrics)

	s.app.Use(c.ProtectedPrefix, s.Middleware())
	s.app.All(strings.TrimSuffix(c.ProtectedPrefix, "/")+"/*", s.forward)

	return s
}

// App returns the underlying fiber app.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen serves on the configured address until Shutdown is called.
func (s *Server) Listen() error {
	s.logger.Info().Str("addr", s.config.Addr).Str("upstream", s.config.Upstream).Msg("Starting HTTP server")
	return s.app.Listen(s.config.Addr)
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

// Middleware runs the gatekeeper on every request and only lets allowed ones through.
func (s *Server) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		req := newFiberRequest(c, s.trustedProxies)
		d := s.gatekeeper.Protect(c.UserContext(), req)
		setRateLimitHeaders(c, d.RateLimit)

		switch d.Action() {
		case guard.Serve:
			return c.Next()
		case guard.Challenge:
			return c.Status(fiber.StatusForbidden).JSON(blocked(d, req))
		default:
			retryAfter := 1
			if d.AttackType == guard.AttackRateLimitExceeded {
				if secs := int(time.Until(d.RateLimit.ResetAt).Seconds()) + 1; secs > retryAfter {
					retryAfter = secs
				}
			}
			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(retryAfter))
			return c.Status(fiber.StatusTooManyRequests).JSON(blocked(d, req))
		}
	}
}

func (s *Server) forward(c *fiber.Ctx) error {
	if s.config.Upstream == "" {
		return c.SendStatus(fiber.StatusOK)
	}
	return proxy.Do(c, strings.TrimSuffix(s.config.Upstream, "/")+c.OriginalURL())
}

func blocked(d guard.Decision, req guard.HTTPRequest) blockedResponse {
	return blockedResponse{
		Allowed:       false,
		Challenge:     d.Challenge,
		Reason:        d.Reason,
		AttackType:    d.AttackType,
		TransactionID: req.TransactionID(),
	}
}

func setRateLimitHeaders(c *fiber.Ctx, rs guard.RateStatus) {
	if rs.MaxPerMinute == 0 {
		return
	}
	c.Set("X-RateLimit-Limit", strconv.Itoa(rs.MaxPerMinute))
	c.Set("X-RateLimit-Remaining", strconv.Itoa(rs.Remaining))
	c.Set("X-RateLimit-Reset", strconv.FormatInt(rs.ResetAt.Unix(), 10))
}

func (s *Server) requireAdminToken(c *fiber.Ctx) error {
	if s.config.AdminToken == "" {
		return c.Next()
	}

	token := strings.TrimPrefix(c.Get(fiber.HeaderAuthorization), "Bearer ")
	if subtle.ConstantTimeCompare([]byte(token), []byte(s.config.AdminToken)) != 1 {
		return c.Status(fiber.StatusUnauthorized).JSON(errorResponse{Error: "unauthorized"})
	}
	return c.Next()
}

func (s *Server) health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status": "healthy",
		"uptime": time.Since(s.startedAt).Round(time.Second).String(),
	})
}

func (s *Server) whitelist(c *fiber.Ctx) error {
	var body sourceBody
	if err := c.BodyParser(&body); err != nil {
		return &protection.InputError{Field: "body", Reason: "expected JSON with a sourceId"}
	}
	source, err := s.admin.Whitelist(c.UserContext(), body.SourceID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "sourceId": source, "action": "whitelisted"})
}

func (s *Server) blacklist(c *fiber.Ctx) error {
	var body sourceBody
	if err := c.BodyParser(&body); err != nil {
		return &protection.InputError{Field: "body", Reason: "expected JSON with a sourceId"}
	}
	source, err := s.admin.Blacklist(c.UserContext(), body.SourceID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "sourceId": source, "action": "blacklisted"})
}

func (s *Server) clearCache(c *fiber.Ctx) error {
	s.admin.ClearCache()
	return c.JSON(fiber.Map{"success": true})
}

func (s *Server) reputation(c *fiber.Ctx) error {
	rec, err := s.admin.Reputation(c.UserContext(), c.Params("source"))
	if err != nil {
		return err
	}
	return c.JSON(rec)
}

func (s *Server) recentAttacks(c *fiber.Ctx) error {
	list, err := s.admin.RecentAttacks(c.UserContext(), c.Params("source"))
	if err != nil {
		return err
	}
	return c.JSON(list)
}

func (s *Server) attackData(c *fiber.Ctx) error {
	return c.JSON(s.analytics.AttackData(c.UserContext()))
}

func (s *Server) reputationStats(c *fiber.Ctx) error {
	return c.JSON(s.analytics.ReputationStats(c.UserContext()))
}

func (s *Server) liveMetrics(c *fiber.Ctx) error {
	return c.JSON(s.analytics.Metrics(c.UserContext()))
}

func (s *Server) handleError(c *fiber.Ctx, err error) error {
	var inputErr *protection.InputError
	if errors.As(err, &inputErr) {
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: inputErr.Error()})
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return c.Status(fiberErr.Code).JSON(errorResponse{Error: fiberErr.Message})
	}

	s.logger.Error().Err(err).Str("path", c.Path()).Msg("Request failed")
	return c.Status(fiber.StatusInternalServerError).JSON(errorResponse{Error: "internal error"})
}
