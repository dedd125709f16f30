package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/skillflow/internal/marketplace"
	mware "github.com/sudo-init-do/skillflow/internal/middleware"
)

type resolveRequest struct {
	FavorClient    bool   `json:"favor_client"`
	ClientSharePct uint64 `json:"client_share_pct"`
}

type toggleRequest struct {
	Enabled bool `json:"enabled"`
}

type treasuryRequest struct {
	Treasury string `json:"treasury"`
}

type topUpRequest struct {
	Amount uint64 `json:"amount"`
}

// POST /admin/services/:id/resolve
func (s *Server) resolveDispute(c echo.Context) error {
	id, ok, err := serviceID(c)
	if !ok {
		return err
	}
	var req resolveRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request")
	}
	return s.respondService(c, func() (marketplace.ServiceRequest, error) {
		return s.engine.ResolveDispute(c.Request().Context(), id, mware.Account(c), req.FavorClient, req.ClientSharePct)
	})
}

// POST /admin/services/:id/emergency-cancel
func (s *Server) emergencyCancel(c echo.Context) error {
	id, ok, err := serviceID(c)
	if !ok {
		return err
	}
	return s.respondService(c, func() (marketplace.ServiceRequest, error) {
		return s.engine.EmergencyCancel(c.Request().Context(), id, mware.Account(c))
	})
}

// POST /admin/platform/active
func (s *Server) setActive(c echo.Context) error {
	var req toggleRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request")
	}
	return respondPlatform(c, func() (marketplace.Platform, error) {
		return s.engine.SetPlatformActive(mware.Account(c), req.Enabled)
	})
}

// POST /admin/platform/pause
func (s *Server) emergencyPause(c echo.Context) error {
	return respondPlatform(c, func() (marketplace.Platform, error) {
		return s.engine.EmergencyPause(mware.Account(c))
	})
}

// POST /admin/platform/emergency
func (s *Server) setEmergency(c echo.Context) error {
	var req toggleRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request")
	}
	return respondPlatform(c, func() (marketplace.Platform, error) {
		return s.engine.SetEmergencyMode(mware.Account(c), req.Enabled)
	})
}

// POST /admin/treasury
func (s *Server) setTreasury(c echo.Context) error {
	var req treasuryRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request")
	}
	return respondPlatform(c, func() (marketplace.Platform, error) {
		return s.engine.SetTreasury(mware.Account(c), req.Treasury)
	})
}

// POST /admin/wallets/:id/topup
func (s *Server) topUp(c echo.Context) error {
	var req topUpRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request")
	}
	tx, err := s.engine.TopUp(mware.Account(c), c.Param("id"), req.Amount)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, tx)
}

// POST /admin/tokens/:id/mint
func (s *Server) mintSkill(c echo.Context) error {
	var req topUpRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request")
	}
	account := c.Param("id")
	balance, err := s.engine.MintSkill(mware.Account(c), account, req.Amount)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"account": account, "skill_balance": balance})
}

func respondPlatform(c echo.Context, op func() (marketplace.Platform, error)) error {
	p, err := op()
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, p)
}
