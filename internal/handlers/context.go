package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/worknet/backend/internal/models"
	"github.com/worknet/backend/internal/repositories"
)

// currentUser resolves the acting user from whichever principal the auth
// middleware stored on the context: local JWT claims or a Firebase UID.
func currentUser(c echo.Context, users repositories.UserRepository) (*models.User, error) {
	if claims, ok := c.Get("user").(*models.JwtCustomClaims); ok && claims != nil {
		user, err := users.GetUserByID(claims.UserID)
		if err != nil {
			return nil, echo.NewHTTPError(http.StatusInternalServerError, "Authenticated user not found in database")
		}
		return user, nil
	}

	if firebaseUID, ok := c.Get("firebaseUID").(string); ok && firebaseUID != "" {
		user, err := users.GetUserByFirebaseUID(firebaseUID)
		if err != nil {
			return nil, echo.NewHTTPError(http.StatusInternalServerError, "Authenticated user not found in database")
		}
		return user, nil
	}

	return nil, echo.NewHTTPError(http.StatusUnauthorized, "Missing authentication context")
}
