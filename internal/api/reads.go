package api

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	mware "github.com/sudo-init-do/skillflow/internal/middleware"
)

// GET /services/:id/escrow
func (s *Server) getEscrow(c echo.Context) error {
	id, ok, err := serviceID(c)
	if !ok {
		return err
	}
	v, err := s.engine.Escrow(id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, v)
}

// GET /services/:id/events
func (s *Server) serviceEvents(c echo.Context) error {
	if s.opts.Journal == nil {
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "journal not configured"})
	}
	id, ok, err := serviceID(c)
	if !ok {
		return err
	}
	if _, err := s.engine.Service(id); err != nil {
		return fail(c, err)
	}
	history, err := s.opts.Journal.History(c.Request().Context(), id)
	if err != nil {
		if s.opts.Log != nil {
			s.opts.Log.WithError(err).WithField("service_id", id).Error("load service history")
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not load history"})
	}
	return c.JSON(http.StatusOK, echo.Map{"events": history})
}

// GET /providers/:id/reputation
func (s *Server) getReputation(c echo.Context) error {
	return c.JSON(http.StatusOK, s.engine.Reputation(c.Param("id")))
}

// GET /stats
func (s *Server) stats(c echo.Context) error {
	return c.JSON(http.StatusOK, s.engine.Stats())
}

// GET /platform
func (s *Server) platform(c echo.Context) error {
	return c.JSON(http.StatusOK, s.engine.Platform())
}

// GET /quote?usd=<micro-USD>
func (s *Server) quote(c echo.Context) error {
	usd, err := strconv.ParseUint(c.QueryParam("usd"), 10, 64)
	if err != nil {
		return badRequest(c, "usd must be a non-negative integer in micro-USD")
	}
	q, err := s.engine.Quote(c.Request().Context(), usd)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, q)
}

// GET /wallet/balance
func (s *Server) walletBalance(c echo.Context) error {
	account := mware.Account(c)
	return c.JSON(http.StatusOK, echo.Map{"account": account, "balance": s.engine.WalletBalance(account)})
}

// GET /wallet/skill
func (s *Server) skillBalance(c echo.Context) error {
	account := mware.Account(c)
	return c.JSON(http.StatusOK, echo.Map{"account": account, "skill_balance": s.engine.SkillBalance(account)})
}

// GET /wallet/transactions
func (s *Server) walletTransactions(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"transactions": s.engine.WalletTransactions(mware.Account(c))})
}
