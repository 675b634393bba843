package analytics

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/cogniguard/cogniguard/internal/domain/user"
	"github.com/cogniguard/cogniguard/pkg/respond"
)

// Handler exposes the analytics REST endpoints.
type Handler struct {
	svc *Service
}

// NewHandler creates an analytics handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the analytics endpoints on g.
func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("/analytics/overview", h.Overview)
	g.GET("/analytics/user/:id/detailed", h.UserDetailed)
	g.GET("/analytics/trends/cognitive", h.Trends)
}

func (h *Handler) Overview(c echo.Context) error {
	overview, err := h.svc.Overview(c.Request().Context())
	if err != nil {
		return respond.Error(c, http.StatusInternalServerError, "failed to build overview")
	}
	return respond.OK(c, http.StatusOK, overview)
}

func (h *Handler) UserDetailed(c echo.Context) error {
	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return respond.Error(c, http.StatusBadRequest, "invalid user id")
	}

	days := 0
	if raw := c.QueryParam("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return respond.Error(c, http.StatusBadRequest, "days must be a positive integer")
		}
		days = n
	}

	report, err := h.svc.UserDetailed(c.Request().Context(), userID, days)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return respond.Error(c, http.StatusNotFound, "user not found")
		}
		return respond.Error(c, http.StatusInternalServerError, "failed to build user report")
	}
	return respond.OK(c, http.StatusOK, report)
}

func (h *Handler) Trends(c echo.Context) error {
	timeframe := c.QueryParam("timeframe")
	if timeframe == "" {
		timeframe = "month"
	}

	report, err := h.svc.Trends(c.Request().Context(), timeframe)
	if err != nil {
		if errors.Is(err, ErrValidation) {
			return respond.Error(c, http.StatusBadRequest, err.Error())
		}
		return respond.Error(c, http.StatusInternalServerError, "failed to build trends")
	}
	return respond.OK(c, http.StatusOK, report)
}
