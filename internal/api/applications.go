package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/skillflow/internal/applications"
	"github.com/sudo-init-do/skillflow/internal/marketplace"
	mware "github.com/sudo-init-do/skillflow/internal/middleware"
)

type applyRequest struct {
	Message        string   `json:"message"`
	Timeline       uint64   `json:"timeline"`
	PortfolioLinks []string `json:"portfolio_links"`
	ProposedPrice  *uint64  `json:"proposed_price"`
	Question       string   `json:"question"`
}

type selectRequest struct {
	Provider            string `json:"provider"`
	AcceptProposedPrice bool   `json:"accept_proposed_price"`
}

// POST /services/:id/applications
func (s *Server) apply(c echo.Context) error {
	id, ok, err := serviceID(c)
	if !ok {
		return err
	}
	var req applyRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request")
	}
	app, err := s.engine.Apply(c.Request().Context(), id, mware.Account(c), applications.Request{
		Message:        req.Message,
		Timeline:       req.Timeline,
		PortfolioLinks: req.PortfolioLinks,
		ProposedPrice:  req.ProposedPrice,
		Question:       req.Question,
	})
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, app)
}

// DELETE /services/:id/applications
func (s *Server) withdraw(c echo.Context) error {
	id, ok, err := serviceID(c)
	if !ok {
		return err
	}
	app, err := s.engine.WithdrawApplication(c.Request().Context(), id, mware.Account(c))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, app)
}

// GET /services/:id/applications
func (s *Server) listApplications(c echo.Context) error {
	id, ok, err := serviceID(c)
	if !ok {
		return err
	}
	apps, err := s.engine.Applications(id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"applications": apps})
}

// POST /services/:id/select
func (s *Server) selectProvider(c echo.Context) error {
	id, ok, err := serviceID(c)
	if !ok {
		return err
	}
	var req selectRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request")
	}
	return s.respondService(c, func() (marketplace.ServiceRequest, error) {
		return s.engine.SelectProvider(c.Request().Context(), id, mware.Account(c), req.Provider, req.AcceptProposedPrice)
	})
}
