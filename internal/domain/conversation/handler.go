package conversation

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/cogniguard/cogniguard/internal/platform/auth"
	"github.com/cogniguard/cogniguard/pkg/pagination"
	"github.com/cogniguard/cogniguard/pkg/respond"
)

// Handler exposes the conversation REST endpoints.
type Handler struct {
	svc *Service
}

// NewHandler creates a conversation handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the conversation endpoints on g.
func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.POST("/conversations", h.Create)
	g.GET("/conversations", h.List)
	g.POST("/conversations/upload", h.Upload)
	g.GET("/conversations/user/:id/stats", h.GetStats)
	g.GET("/conversations/:id", h.Get)
	g.GET("/conversations/:id/messages", h.Messages)
	g.POST("/conversations/:id/messages", h.AddMessage)
	g.POST("/conversations/:id/end", h.End)
	g.POST("/conversations/:id/analyze", h.Analyze)
}

func (h *Handler) Create(c echo.Context) error {
	var in struct {
		UserID string `json:"user_id"`
		Title  string `json:"title"`
		Type   string `json:"type"`
	}
	if err := c.Bind(&in); err != nil {
		return respond.Error(c, http.StatusBadRequest, "invalid request body")
	}

	userID, err := resolveUserID(c, in.UserID)
	if err != nil {
		return respond.Error(c, http.StatusBadRequest, "invalid user id")
	}

	conv, welcome, err := h.svc.Create(c.Request().Context(), userID, in.Title, in.Type)
	if err != nil {
		if errors.Is(err, ErrValidation) {
			return respond.Error(c, http.StatusBadRequest, err.Error())
		}
		return respond.Error(c, http.StatusInternalServerError, "failed to create conversation")
	}
	return respond.OK(c, http.StatusCreated, map[string]interface{}{
		"conversation": conv,
		"message":      welcome,
	})
}

func (h *Handler) AddMessage(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return respond.Error(c, http.StatusBadRequest, "invalid conversation id")
	}

	var in struct {
		Content string `json:"content"`
	}
	if err := c.Bind(&in); err != nil {
		return respond.Error(c, http.StatusBadRequest, "invalid request body")
	}

	userMsg, reply, err := h.svc.AddUserMessage(c.Request().Context(), id, in.Content)
	if err != nil {
		switch {
		case errors.Is(err, ErrValidation):
			return respond.Error(c, http.StatusBadRequest, err.Error())
		case errors.Is(err, ErrNotFound):
			return respond.Error(c, http.StatusNotFound, "conversation not found")
		}
		return respond.Error(c, http.StatusInternalServerError, "failed to add message")
	}
	return respond.OK(c, http.StatusCreated, map[string]interface{}{
		"message": userMsg,
		"reply":   reply,
	})
}

func (h *Handler) End(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return respond.Error(c, http.StatusBadRequest, "invalid conversation id")
	}

	var in struct {
		MoodScore       *float64 `json:"mood_score"`
		EngagementScore *float64 `json:"engagement_score"`
	}
	if err := c.Bind(&in); err != nil {
		return respond.Error(c, http.StatusBadRequest, "invalid request body")
	}

	conv, ending, err := h.svc.End(c.Request().Context(), id, in.MoodScore, in.EngagementScore)
	if err != nil {
		switch {
		case errors.Is(err, ErrValidation):
			return respond.Error(c, http.StatusBadRequest, err.Error())
		case errors.Is(err, ErrNotFound):
			return respond.Error(c, http.StatusNotFound, "conversation not found")
		}
		return respond.Error(c, http.StatusInternalServerError, "failed to end conversation")
	}
	return respond.OK(c, http.StatusOK, map[string]interface{}{
		"conversation": conv,
		"message":      ending,
	})
}

func (h *Handler) Analyze(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return respond.Error(c, http.StatusBadRequest, "invalid conversation id")
	}

	result, err := h.svc.Analyze(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return respond.Error(c, http.StatusNotFound, "conversation not found")
		}
		// Analysis is requested explicitly, so the caller gets the real
		// failure rather than a generic message.
		return respond.Error(c, http.StatusInternalServerError, err.Error())
	}
	return respond.OK(c, http.StatusOK, result)
}

func (h *Handler) Upload(c echo.Context) error {
	var req UploadRequest
	if err := c.Bind(&req); err != nil {
		return respond.Error(c, http.StatusBadRequest, "invalid request body")
	}

	conv, result, err := h.svc.Upload(c.Request().Context(), req)
	if err != nil {
		if errors.Is(err, ErrValidation) {
			return respond.Error(c, http.StatusBadRequest, err.Error())
		}
		return respond.Error(c, http.StatusInternalServerError, "failed to process upload")
	}
	return respond.OK(c, http.StatusCreated, map[string]interface{}{
		"conversation": conv,
		"analysis":     result,
	})
}

func (h *Handler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return respond.Error(c, http.StatusBadRequest, "invalid conversation id")
	}

	conv, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return respond.Error(c, http.StatusNotFound, "conversation not found")
		}
		return respond.Error(c, http.StatusInternalServerError, "failed to load conversation")
	}
	return respond.OK(c, http.StatusOK, conv)
}

func (h *Handler) Messages(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return respond.Error(c, http.StatusBadRequest, "invalid conversation id")
	}

	msgs, err := h.svc.Messages(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return respond.Error(c, http.StatusNotFound, "conversation not found")
		}
		return respond.Error(c, http.StatusInternalServerError, "failed to load messages")
	}
	return respond.OK(c, http.StatusOK, msgs)
}

func (h *Handler) List(c echo.Context) error {
	userID, err := resolveUserID(c, c.QueryParam("user_id"))
	if err != nil {
		return respond.Error(c, http.StatusBadRequest, "invalid user id")
	}

	p := pagination.FromContext(c)
	convs, total, err := h.svc.List(c.Request().Context(), userID, p.Limit, p.Offset)
	if err != nil {
		return respond.Error(c, http.StatusInternalServerError, "failed to list conversations")
	}
	return respond.OK(c, http.StatusOK, pagination.NewResponse(convs, total, p.Limit, p.Offset))
}

func (h *Handler) GetStats(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return respond.Error(c, http.StatusBadRequest, "invalid user id")
	}

	stats, err := h.svc.GetStats(c.Request().Context(), id)
	if err != nil {
		return respond.Error(c, http.StatusInternalServerError, "failed to load stats")
	}
	return respond.OK(c, http.StatusOK, stats)
}

// resolveUserID prefers an explicit id and falls back to the authenticated
// user from the request context.
func resolveUserID(c echo.Context, explicit string) (uuid.UUID, error) {
	if explicit != "" {
		return uuid.Parse(explicit)
	}
	if v := auth.UserIDFromContext(c.Request().Context()); v != "" {
		return uuid.Parse(v)
	}
	return uuid.Nil, errors.New("user id missing")
}
