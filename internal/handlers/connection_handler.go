package handlers

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/worknet/backend/internal/models"
	"github.com/worknet/backend/internal/repositories"
	"github.com/worknet/backend/internal/services"
)

// ConnectionHandler handles HTTP requests for the connection request
// lifecycle and the social graph
type ConnectionHandler struct {
	connectionService *services.ConnectionService
	mutualResolver    *services.MutualResolver
	userRepository    repositories.UserRepository // To resolve the acting user from the auth principal
}

// NewConnectionHandler creates a new ConnectionHandler
func NewConnectionHandler(connectionService *services.ConnectionService, mutualResolver *services.MutualResolver, userRepo repositories.UserRepository) *ConnectionHandler {
	return &ConnectionHandler{
		connectionService: connectionService,
		mutualResolver:    mutualResolver,
		userRepository:    userRepo,
	}
}

// RegisterConnectionRoutes registers connection-related routes
func (h *ConnectionHandler) RegisterConnectionRoutes(g *echo.Group) {
	g.POST("/connections/requests", h.SendRequest)
	g.GET("/connections/requests/pending", h.ListPendingRequests)
	g.POST("/connections/requests/:id/respond", h.RespondToRequest)
	g.POST("/connections/requests/:id/cancel", h.CancelRequest)
	g.DELETE("/connections/:userId", h.RemoveConnection)
	g.GET("/connections", h.ListConnections)
	g.GET("/connections/mutual/:userId", h.MutualConnections)
}

// actingUser resolves the authenticated user row from the principal the auth
// middleware stored on the context. The acting user id is never taken from
// the request body.
func (h *ConnectionHandler) actingUser(c echo.Context) (*models.User, error) {
	return currentUser(c, h.userRepository)
}

// SendRequest handles sending a connection request
func (h *ConnectionHandler) SendRequest(c echo.Context) error {
	actor, err := h.actingUser(c)
	if err != nil {
		return err
	}

	var req models.SendConnectionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}

	validate := validator.New()
	if err := validate.Struct(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	created, err := h.connectionService.Send(c.Request().Context(), actor.ID, req.RecipientID, req.Message)
	if err != nil {
		return toHTTPError(err)
	}

	return c.JSON(http.StatusCreated, created)
}

// ListPendingRequests retrieves the authenticated user's pending requests.
// ?direction=sent lists the ones they sent; the default is received.
func (h *ConnectionHandler) ListPendingRequests(c echo.Context) error {
	actor, err := h.actingUser(c)
	if err != nil {
		return err
	}

	direction := models.PendingReceived
	if c.QueryParam("direction") == string(models.PendingSent) {
		direction = models.PendingSent
	}

	requests, err := h.connectionService.ListPending(c.Request().Context(), actor.ID, direction)
	if err != nil {
		return toHTTPError(err)
	}

	return c.JSON(http.StatusOK, requests)
}

// RespondToRequest handles accepting or declining a pending request
func (h *ConnectionHandler) RespondToRequest(c echo.Context) error {
	actor, err := h.actingUser(c)
	if err != nil {
		return err
	}

	requestID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request ID")
	}

	var req models.RespondConnectionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}

	validate := validator.New()
	if err := validate.Struct(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	updated, err := h.connectionService.Respond(c.Request().Context(), requestID, actor.ID, services.RespondAction(req.Action))
	if err != nil {
		return toHTTPError(err)
	}

	return c.JSON(http.StatusOK, updated)
}

// CancelRequest handles the requester withdrawing a pending request
func (h *ConnectionHandler) CancelRequest(c echo.Context) error {
	actor, err := h.actingUser(c)
	if err != nil {
		return err
	}

	requestID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request ID")
	}

	updated, err := h.connectionService.Cancel(c.Request().Context(), requestID, actor.ID)
	if err != nil {
		return toHTTPError(err)
	}

	return c.JSON(http.StatusOK, updated)
}

// RemoveConnection handles removing an established connection
func (h *ConnectionHandler) RemoveConnection(c echo.Context) error {
	actor, err := h.actingUser(c)
	if err != nil {
		return err
	}

	peerID, err := uuid.Parse(c.Param("userId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid user ID")
	}

	if err := h.connectionService.Remove(c.Request().Context(), actor.ID, peerID, actor.ID); err != nil {
		return toHTTPError(err)
	}

	return c.NoContent(http.StatusNoContent)
}

// ListConnections retrieves the ids of the authenticated user's connections
func (h *ConnectionHandler) ListConnections(c echo.Context) error {
	actor, err := h.actingUser(c)
	if err != nil {
		return err
	}

	ids, err := h.connectionService.ListConnections(c.Request().Context(), actor.ID)
	if err != nil {
		return toHTTPError(err)
	}

	return c.JSON(http.StatusOK, echo.Map{"connections": ids})
}

// MutualConnections retrieves the users connected to both the authenticated
// user and the user in the path
func (h *ConnectionHandler) MutualConnections(c echo.Context) error {
	actor, err := h.actingUser(c)
	if err != nil {
		return err
	}

	peerID, err := uuid.Parse(c.Param("userId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid user ID")
	}

	mutual, err := h.mutualResolver.Mutual(c.Request().Context(), actor.ID, peerID)
	if err != nil {
		return toHTTPError(err)
	}

	return c.JSON(http.StatusOK, echo.Map{"mutual_connections": mutual})
}
