// Package api is the HTTP surface over the settlement engine.
package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/sudo-init-do/skillflow/internal/events"
	"github.com/sudo-init-do/skillflow/internal/marketplace"
	mware "github.com/sudo-init-do/skillflow/internal/middleware"
)

// History is the journal's read side.
type History interface {
	History(ctx context.Context, serviceID uint64) ([]events.Event, error)
}

// Options carries the optional collaborators. Nil fields disable their routes.
type Options struct {
	Secret        []byte
	Limiter       *mware.RateLimiter
	Journal       History
	Notifications interface {
		ListNotifications(echo.Context) error
		MarkNotificationRead(echo.Context) error
	}
	Feed    echo.HandlerFunc
	Metrics http.Handler
	Ready   func(ctx context.Context) error
	Log     *logrus.Logger
}

type Server struct {
	engine *marketplace.Engine
	opts   Options
}

func New(engine *marketplace.Engine, opts Options) *Server {
	return &Server{engine: engine, opts: opts}
}

// Routes mounts every endpoint on e.
func (s *Server) Routes(e *echo.Echo) {
	e.GET("/health", s.health)
	e.GET("/ready", s.ready)
	if s.opts.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(s.opts.Metrics))
	}

	// Route-level middleware keeps unknown paths on echo's 404 rather than
	// behind a catch-all group.
	var pub, authed []echo.MiddlewareFunc
	authed = append(authed, mware.JWT(s.opts.Secret))
	if s.opts.Limiter != nil {
		pub = append(pub, s.opts.Limiter.Middleware())
		authed = append(authed, s.opts.Limiter.Middleware())
	}
	operator := append(append([]echo.MiddlewareFunc{}, authed...), mware.RequireRoles("operator", "admin"))

	e.GET("/services", s.listServices, pub...)
	e.GET("/services/:id", s.getService, pub...)
	e.GET("/services/:id/applications", s.listApplications, pub...)
	e.GET("/services/:id/escrow", s.getEscrow, pub...)
	e.GET("/services/:id/quota", s.getQuota, pub...)
	e.GET("/services/:id/rating", s.getRating, pub...)
	e.GET("/services/:id/events", s.serviceEvents, pub...)
	e.GET("/providers/:id/reputation", s.getReputation, pub...)
	e.GET("/stats", s.stats, pub...)
	e.GET("/platform", s.platform, pub...)
	e.GET("/quote", s.quote, pub...)

	e.POST("/services", s.createService, authed...)
	e.POST("/services/:id/cancel", s.cancelService, authed...)
	e.POST("/services/:id/applications", s.apply, authed...)
	e.DELETE("/services/:id/applications", s.withdraw, authed...)
	e.POST("/services/:id/select", s.selectProvider, authed...)
	e.POST("/services/:id/session", s.startSession, authed...)
	e.POST("/services/:id/complete", s.markCompleted, authed...)
	e.POST("/services/:id/confirm", s.confirm, authed...)
	e.POST("/services/:id/rating", s.rate, authed...)
	e.POST("/services/:id/disputes", s.dispute, authed...)
	e.POST("/services/:id/suggestions/init", s.initSuggestions, operator...)
	e.POST("/services/:id/suggestions", s.submitSuggestion, operator...)
	e.POST("/services/:id/suggestions/complete", s.completeSuggestions, operator...)
	e.GET("/wallet/balance", s.walletBalance, authed...)
	e.GET("/wallet/transactions", s.walletTransactions, authed...)
	e.GET("/wallet/skill", s.skillBalance, authed...)
	if s.opts.Feed != nil {
		e.GET("/services/:id/ws", s.opts.Feed, authed...)
	}
	if n := s.opts.Notifications; n != nil {
		e.GET("/notifications", n.ListNotifications, authed...)
		e.POST("/notifications/:id/read", n.MarkNotificationRead, authed...)
	}

	admin := e.Group("/admin", mware.JWT(s.opts.Secret), mware.AdminGuard(s.engine.IsAdmin))
	admin.POST("/services/:id/resolve", s.resolveDispute)
	admin.POST("/services/:id/emergency-cancel", s.emergencyCancel)
	admin.POST("/platform/active", s.setActive)
	admin.POST("/platform/pause", s.emergencyPause)
	admin.POST("/platform/emergency", s.setEmergency)
	admin.POST("/treasury", s.setTreasury)
	admin.POST("/wallets/:id/topup", s.topUp)
	admin.POST("/tokens/:id/mint", s.mintSkill)
}

func (s *Server) health(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
}

func (s *Server) ready(c echo.Context) error {
	if s.opts.Ready != nil {
		if err := s.opts.Ready(c.Request().Context()); err != nil {
			return c.JSON(http.StatusServiceUnavailable, echo.Map{"status": "not_ready", "error": "dependency unreachable"})
		}
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "ready"})
}

// serviceID parses the :id path parameter; ok is false once a 400 was written.
func serviceID(c echo.Context) (uint64, bool, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return 0, false, badRequest(c, "invalid service id")
	}
	return id, true, nil
}
