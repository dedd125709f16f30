package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/skillflow/internal/marketplace"
	mware "github.com/sudo-init-do/skillflow/internal/middleware"
)

type sessionRequest struct {
	MeetingRef string `json:"meeting_ref"`
}

type evidenceRequest struct {
	Evidence string `json:"evidence"`
}

type ratingRequest struct {
	Score uint8 `json:"score"`
}

type disputeRequest struct {
	Reason string `json:"reason"`
}

// POST /services
func (s *Server) createService(c echo.Context) error {
	var req marketplace.CreateRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request")
	}
	svc, err := s.engine.CreateService(c.Request().Context(), mware.Account(c), req)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, svc)
}

// GET /services
func (s *Server) listServices(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"services": s.engine.Services()})
}

// GET /services/:id
func (s *Server) getService(c echo.Context) error {
	id, ok, err := serviceID(c)
	if !ok {
		return err
	}
	svc, err := s.engine.Service(id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, svc)
}

// POST /services/:id/cancel
func (s *Server) cancelService(c echo.Context) error {
	id, ok, err := serviceID(c)
	if !ok {
		return err
	}
	return s.respondService(c, func() (marketplace.ServiceRequest, error) {
		return s.engine.Cancel(c.Request().Context(), id, mware.Account(c))
	})
}

// POST /services/:id/session
func (s *Server) startSession(c echo.Context) error {
	id, ok, err := serviceID(c)
	if !ok {
		return err
	}
	var req sessionRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request")
	}
	return s.respondService(c, func() (marketplace.ServiceRequest, error) {
		return s.engine.StartSession(c.Request().Context(), id, mware.Account(c), req.MeetingRef)
	})
}

// POST /services/:id/complete
func (s *Server) markCompleted(c echo.Context) error {
	id, ok, err := serviceID(c)
	if !ok {
		return err
	}
	var req evidenceRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request")
	}
	return s.respondService(c, func() (marketplace.ServiceRequest, error) {
		return s.engine.MarkCompleted(c.Request().Context(), id, mware.Account(c), req.Evidence)
	})
}

// POST /services/:id/confirm
func (s *Server) confirm(c echo.Context) error {
	id, ok, err := serviceID(c)
	if !ok {
		return err
	}
	return s.respondService(c, func() (marketplace.ServiceRequest, error) {
		return s.engine.ConfirmCompletion(c.Request().Context(), id, mware.Account(c))
	})
}

// POST /services/:id/rating
func (s *Server) rate(c echo.Context) error {
	id, ok, err := serviceID(c)
	if !ok {
		return err
	}
	var req ratingRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request")
	}
	rating, err := s.engine.RateProvider(c.Request().Context(), id, mware.Account(c), req.Score)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, rating)
}

// GET /services/:id/rating
func (s *Server) getRating(c echo.Context) error {
	id, ok, err := serviceID(c)
	if !ok {
		return err
	}
	rating, err := s.engine.Rating(id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, rating)
}

// POST /services/:id/disputes
func (s *Server) dispute(c echo.Context) error {
	id, ok, err := serviceID(c)
	if !ok {
		return err
	}
	var req disputeRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request")
	}
	return s.respondService(c, func() (marketplace.ServiceRequest, error) {
		return s.engine.InitiateDispute(c.Request().Context(), id, mware.Account(c), req.Reason)
	})
}

func (s *Server) respondService(c echo.Context, op func() (marketplace.ServiceRequest, error)) error {
	svc, err := op()
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, svc)
}
