package assessment

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/cogniguard/cogniguard/pkg/pagination"
	"github.com/cogniguard/cogniguard/pkg/respond"
)

// Handler exposes the assessment REST endpoints.
type Handler struct {
	svc *Service
}

// NewHandler creates an assessment handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the assessment endpoints on g.
func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.POST("/assessments", h.Create)
	g.POST("/assessments/quick", h.QuickScreen)
	g.GET("/assessments/templates/:type", h.GetTemplate)
	g.GET("/assessments/user/:id", h.List)
	g.GET("/assessments/user/:id/trend", h.CognitiveTrend)
	g.GET("/assessments/:id", h.Get)
}

func (h *Handler) Create(c echo.Context) error {
	var in struct {
		UserID       string         `json:"user_id"`
		Type         string         `json:"type"`
		TotalScore   int            `json:"total_score"`
		DomainScores map[string]int `json:"domain_scores"`
		CompletedAt  *time.Time     `json:"completed_at"`
	}
	if err := c.Bind(&in); err != nil {
		return respond.Error(c, http.StatusBadRequest, "invalid request body")
	}
	userID, err := uuid.Parse(in.UserID)
	if err != nil {
		return respond.Error(c, http.StatusBadRequest, "invalid user id")
	}

	a, err := h.svc.Create(c.Request().Context(), CreateInput{
		UserID:       userID,
		Type:         in.Type,
		TotalScore:   in.TotalScore,
		DomainScores: in.DomainScores,
		CompletedAt:  in.CompletedAt,
	})
	if err != nil {
		if errors.Is(err, ErrValidation) {
			return respond.Error(c, http.StatusBadRequest, err.Error())
		}
		return respond.Error(c, http.StatusInternalServerError, "failed to record assessment")
	}
	return respond.OK(c, http.StatusCreated, a)
}

func (h *Handler) QuickScreen(c echo.Context) error {
	var in struct {
		UserID  string        `json:"user_id"`
		Answers []QuickAnswer `json:"answers"`
	}
	if err := c.Bind(&in); err != nil {
		return respond.Error(c, http.StatusBadRequest, "invalid request body")
	}
	userID, err := uuid.Parse(in.UserID)
	if err != nil {
		return respond.Error(c, http.StatusBadRequest, "invalid user id")
	}

	a, err := h.svc.QuickScreen(c.Request().Context(), userID, in.Answers)
	if err != nil {
		if errors.Is(err, ErrValidation) {
			return respond.Error(c, http.StatusBadRequest, err.Error())
		}
		return respond.Error(c, http.StatusInternalServerError, "failed to record quick screen")
	}
	return respond.OK(c, http.StatusCreated, a)
}

func (h *Handler) GetTemplate(c echo.Context) error {
	tpl, err := h.svc.GetTemplate(c.Param("type"))
	if err != nil {
		return respond.Error(c, http.StatusNotFound, "unknown assessment template")
	}
	return respond.OK(c, http.StatusOK, tpl)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return respond.Error(c, http.StatusBadRequest, "invalid assessment id")
	}

	a, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return respond.Error(c, http.StatusNotFound, "assessment not found")
		}
		return respond.Error(c, http.StatusInternalServerError, "failed to load assessment")
	}
	return respond.OK(c, http.StatusOK, a)
}

func (h *Handler) List(c echo.Context) error {
	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return respond.Error(c, http.StatusBadRequest, "invalid user id")
	}

	p := pagination.FromContext(c)
	items, total, err := h.svc.List(c.Request().Context(), userID, p.Limit, p.Offset)
	if err != nil {
		return respond.Error(c, http.StatusInternalServerError, "failed to list assessments")
	}
	return respond.OK(c, http.StatusOK, pagination.NewResponse(items, total, p.Limit, p.Offset))
}

func (h *Handler) CognitiveTrend(c echo.Context) error {
	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return respond.Error(c, http.StatusBadRequest, "invalid user id")
	}

	days := DefaultTrendDays
	if raw := c.QueryParam("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return respond.Error(c, http.StatusBadRequest, "days must be a positive integer")
		}
		days = n
	}

	report, err := h.svc.CognitiveTrend(c.Request().Context(), userID, days)
	if err != nil {
		return respond.Error(c, http.StatusInternalServerError, "failed to build trend report")
	}
	return respond.OK(c, http.StatusOK, report)
}
