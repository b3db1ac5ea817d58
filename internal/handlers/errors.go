package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	apperrors "github.com/worknet/backend/pkg/errors"
)

// toHTTPError maps a service error onto the HTTP status its code implies.
func toHTTPError(err error) *echo.HTTPError {
	switch apperrors.CodeOf(err) {
	case apperrors.CodeInvalidArgument:
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case apperrors.CodeNotFound:
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case apperrors.CodeAlreadyExists, apperrors.CodeFailedPrecondition:
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case apperrors.CodePermissionDenied:
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	case apperrors.CodeUnauthenticated:
		return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}
