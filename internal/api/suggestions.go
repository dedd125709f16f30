package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	mware "github.com/sudo-init-do/skillflow/internal/middleware"
	"github.com/sudo-init-do/skillflow/internal/quota"
)

type initRequest struct {
	SlateSize uint `json:"slate_size"`
}

type suggestionRequest struct {
	Provider           string       `json:"provider"`
	Bucket             quota.Bucket `json:"bucket"`
	EstimatedTimeline  uint64       `json:"estimated_timeline"`
	SuccessProbability uint8        `json:"success_probability"`
	RiskFactors        []string     `json:"risk_factors"`
	AdjustmentNotes    string       `json:"adjustment_notes"`
	InitialSkillScore  uint8        `json:"initial_skill_score"`
}

// POST /services/:id/suggestions/init
func (s *Server) initSuggestions(c echo.Context) error {
	id, ok, err := serviceID(c)
	if !ok {
		return err
	}
	var req initRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request")
	}
	q, err := s.engine.InitializeSuggestions(c.Request().Context(), id, mware.Account(c), req.SlateSize)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, q)
}

// POST /services/:id/suggestions
func (s *Server) submitSuggestion(c echo.Context) error {
	id, ok, err := serviceID(c)
	if !ok {
		return err
	}
	var req suggestionRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request")
	}
	p := quota.Proposal{
		EstimatedTimeline:  req.EstimatedTimeline,
		SuccessProbability: req.SuccessProbability,
		RiskFactors:        req.RiskFactors,
		AdjustmentNotes:    req.AdjustmentNotes,
		InitialSkillScore:  req.InitialSkillScore,
	}
	ctx, caller := c.Request().Context(), mware.Account(c)

	var sg quota.Suggestion
	switch req.Bucket {
	case quota.Experienced:
		sg, err = s.engine.SubmitExperiencedSuggestion(ctx, id, caller, req.Provider, p)
	case quota.NewProvider:
		sg, err = s.engine.SubmitNewProviderSuggestion(ctx, id, caller, req.Provider, p)
	default:
		return badRequest(c, "bucket must be experienced or new_provider")
	}
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, sg)
}

// POST /services/:id/suggestions/complete
func (s *Server) completeSuggestions(c echo.Context) error {
	id, ok, err := serviceID(c)
	if !ok {
		return err
	}
	q, err := s.engine.CompleteSuggestions(c.Request().Context(), id, mware.Account(c))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, q)
}

// GET /services/:id/quota
func (s *Server) getQuota(c echo.Context) error {
	id, ok, err := serviceID(c)
	if !ok {
		return err
	}
	q, err := s.engine.Quota(id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, q)
}
