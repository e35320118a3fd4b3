package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/dkoval/market_api/internal/validation"
)

// pipelineError maps a validation run failure to its HTTP shape: a failed
// rule becomes 422 with the first failing rule's message, a store failure
// inside a check becomes an internal error.
func pipelineError(err error) error {
	var ve *validation.Error
	if errors.As(err, &ve) {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, "Error: "+ve.Message)
	}
	return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
}
