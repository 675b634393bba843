package voice

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/cogniguard/cogniguard/pkg/respond"
)

// Handler exposes the voice REST endpoints.
type Handler struct {
	svc *Service
}

// NewHandler creates a voice handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the voice endpoints on g. The group is expected to
// carry the static-token middleware when a voice token is configured.
func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("/voice/health", h.Health)
	g.POST("/voice/webhook", h.Webhook)
	g.POST("/voice/devices", h.RegisterDevice)
	g.GET("/voice/devices/:deviceId", h.GetDevice)
	g.GET("/voice/devices/:deviceId/audits", h.DeviceAudits)
}

func (h *Handler) Health(c echo.Context) error {
	return respond.OK(c, http.StatusOK, map[string]string{"status": "ok", "service": "voice"})
}

func (h *Handler) RegisterDevice(c echo.Context) error {
	var in RegisterInput
	if err := c.Bind(&in); err != nil {
		return respond.Error(c, http.StatusBadRequest, "invalid request body")
	}

	d, err := h.svc.RegisterDevice(c.Request().Context(), in)
	if err != nil {
		if errors.Is(err, ErrValidation) {
			return respond.Error(c, http.StatusBadRequest, err.Error())
		}
		return respond.Error(c, http.StatusInternalServerError, "failed to register device")
	}
	return respond.OK(c, http.StatusCreated, d)
}

func (h *Handler) Webhook(c echo.Context) error {
	// The raw body is kept for the audit trail, so read it before decoding.
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return respond.Error(c, http.StatusBadRequest, "failed to read request body")
	}

	var req WebhookRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return respond.Error(c, http.StatusBadRequest, "invalid request body")
	}
	req.RawPayload = body

	resp, err := h.svc.HandleWebhook(c.Request().Context(), req)
	if err != nil {
		if errors.Is(err, ErrValidation) {
			return respond.Error(c, http.StatusBadRequest, err.Error())
		}
		return respond.Error(c, http.StatusInternalServerError, "failed to process webhook")
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *Handler) GetDevice(c echo.Context) error {
	d, err := h.svc.GetDevice(c.Request().Context(), c.Param("deviceId"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return respond.Error(c, http.StatusNotFound, "device not found")
		}
		return respond.Error(c, http.StatusInternalServerError, "failed to load device")
	}
	return respond.OK(c, http.StatusOK, d)
}

func (h *Handler) DeviceAudits(c echo.Context) error {
	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return respond.Error(c, http.StatusBadRequest, "limit must be a positive integer")
		}
		limit = n
	}

	audits, err := h.svc.DeviceAudits(c.Request().Context(), c.Param("deviceId"), limit)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return respond.Error(c, http.StatusNotFound, "device not found")
		}
		return respond.Error(c, http.StatusInternalServerError, "failed to load audits")
	}
	return respond.OK(c, http.StatusOK, audits)
}
