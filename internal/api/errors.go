package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/skillflow/internal/apperr"
)

var statusByKind = map[apperr.Kind]int{
	apperr.Unauthorized:                 http.StatusForbidden,
	apperr.AdminOnly:                    http.StatusForbidden,
	apperr.NotFound:                     http.StatusNotFound,
	apperr.InvalidState:                 http.StatusConflict,
	apperr.InvalidStatus:                http.StatusConflict,
	apperr.Duplicate:                    http.StatusConflict,
	apperr.InsufficientFunds:            http.StatusPaymentRequired,
	apperr.InsufficientSkillTokens:      http.StatusPaymentRequired,
	apperr.ApplicationFeeRequired:       http.StatusPaymentRequired,
	apperr.InvalidRating:                http.StatusBadRequest,
	apperr.InvalidAmount:                http.StatusBadRequest,
	apperr.InvalidInput:                 http.StatusBadRequest,
	apperr.InvalidDuration:              http.StatusBadRequest,
	apperr.Paused:                       http.StatusServiceUnavailable,
	apperr.SkillTokenContractNotSet:     http.StatusServiceUnavailable,
	apperr.RateLimited:                  http.StatusTooManyRequests,
	apperr.SuccessThresholdNotMet:       http.StatusUnprocessableEntity,
	apperr.ExperiencedProviderQuotaFull: http.StatusUnprocessableEntity,
	apperr.NewProviderQuotaFull:         http.StatusUnprocessableEntity,
	apperr.NotNewProvider:               http.StatusUnprocessableEntity,
}

// fail writes err as {"error", "code", "hint"}. Errors outside the taxonomy
// are internal and their text is not exposed.
func fail(c echo.Context, err error) error {
	kind := apperr.KindOf(err)
	if kind == 0 {
		c.Logger().Error(err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
	status, ok := statusByKind[kind]
	if !ok {
		status = http.StatusBadRequest
	}
	return c.JSON(status, echo.Map{
		"error": err.Error(),
		"code":  kind.Code(),
		"hint":  kind.Hint(),
	})
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
}
