package user

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/cogniguard/cogniguard/pkg/pagination"
	"github.com/cogniguard/cogniguard/pkg/respond"
)

// Handler exposes the user REST endpoints.
type Handler struct {
	svc *Service
}

// NewHandler creates a user handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the public auth endpoints on pub and the
// authenticated profile endpoints on priv.
func (h *Handler) RegisterRoutes(pub, priv *echo.Group) {
	pub.POST("/users/register", h.Register)
	pub.POST("/users/login", h.Login)

	priv.GET("/users", h.List)
	priv.GET("/users/:id", h.Get)
	priv.PUT("/users/:id", h.Update)
	priv.POST("/users/:id/password", h.ChangePassword)
	priv.GET("/users/:id/risk-assessment", h.AssessRisk)
	priv.GET("/users/:id/summary", h.GetSummary)
}

type authResponse struct {
	User  *User  `json:"user"`
	Token string `json:"token"`
}

func (h *Handler) Register(c echo.Context) error {
	var in RegisterInput
	if err := c.Bind(&in); err != nil {
		return respond.Error(c, http.StatusBadRequest, "invalid request body")
	}

	u, token, err := h.svc.Register(c.Request().Context(), in)
	if err != nil {
		if errors.Is(err, ErrValidation) {
			return respond.Error(c, http.StatusBadRequest, err.Error())
		}
		return respond.Error(c, http.StatusInternalServerError, "registration failed")
	}
	return respond.OK(c, http.StatusCreated, authResponse{User: u, Token: token})
}

func (h *Handler) Login(c echo.Context) error {
	var in struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.Bind(&in); err != nil {
		return respond.Error(c, http.StatusBadRequest, "invalid request body")
	}

	u, token, err := h.svc.Login(c.Request().Context(), in.Email, in.Password)
	if err != nil {
		switch {
		case errors.Is(err, ErrValidation):
			return respond.Error(c, http.StatusBadRequest, err.Error())
		case errors.Is(err, ErrInvalidCredentials):
			return respond.Error(c, http.StatusUnauthorized, "invalid email or password")
		}
		return respond.Error(c, http.StatusInternalServerError, "login failed")
	}
	return respond.OK(c, http.StatusOK, authResponse{User: u, Token: token})
}

func (h *Handler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return respond.Error(c, http.StatusBadRequest, "invalid user id")
	}

	u, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return respond.Error(c, http.StatusNotFound, "user not found")
		}
		return respond.Error(c, http.StatusInternalServerError, "failed to load user")
	}
	return respond.OK(c, http.StatusOK, u)
}

func (h *Handler) Update(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return respond.Error(c, http.StatusBadRequest, "invalid user id")
	}

	var in UpdateInput
	if err := c.Bind(&in); err != nil {
		return respond.Error(c, http.StatusBadRequest, "invalid request body")
	}

	u, err := h.svc.Update(c.Request().Context(), id, in)
	if err != nil {
		switch {
		case errors.Is(err, ErrValidation):
			return respond.Error(c, http.StatusBadRequest, err.Error())
		case errors.Is(err, ErrNotFound):
			return respond.Error(c, http.StatusNotFound, "user not found")
		}
		return respond.Error(c, http.StatusInternalServerError, "failed to update user")
	}
	return respond.OK(c, http.StatusOK, u)
}

func (h *Handler) ChangePassword(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return respond.Error(c, http.StatusBadRequest, "invalid user id")
	}

	var in struct {
		CurrentPassword string `json:"current_password"`
		NewPassword     string `json:"new_password"`
	}
	if err := c.Bind(&in); err != nil {
		return respond.Error(c, http.StatusBadRequest, "invalid request body")
	}

	err = h.svc.ChangePassword(c.Request().Context(), id, in.CurrentPassword, in.NewPassword)
	if err != nil {
		switch {
		case errors.Is(err, ErrValidation):
			return respond.Error(c, http.StatusBadRequest, err.Error())
		case errors.Is(err, ErrInvalidCredentials):
			return respond.Error(c, http.StatusUnauthorized, "current password is incorrect")
		case errors.Is(err, ErrNotFound):
			return respond.Error(c, http.StatusNotFound, "user not found")
		}
		return respond.Error(c, http.StatusInternalServerError, "failed to change password")
	}
	return respond.OKMessage(c, http.StatusOK, "password updated", nil)
}

func (h *Handler) AssessRisk(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return respond.Error(c, http.StatusBadRequest, "invalid user id")
	}

	ra, err := h.svc.AssessRisk(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return respond.Error(c, http.StatusNotFound, "user not found")
		}
		return respond.Error(c, http.StatusInternalServerError, "failed to assess risk")
	}
	return respond.OK(c, http.StatusOK, ra)
}

func (h *Handler) GetSummary(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return respond.Error(c, http.StatusBadRequest, "invalid user id")
	}

	sum, err := h.svc.GetSummary(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return respond.Error(c, http.StatusNotFound, "user not found")
		}
		return respond.Error(c, http.StatusInternalServerError, "failed to load summary")
	}
	return respond.OK(c, http.StatusOK, sum)
}

func (h *Handler) List(c echo.Context) error {
	p := pagination.FromContext(c)
	users, total, err := h.svc.List(c.Request().Context(), p.Limit, p.Offset)
	if err != nil {
		return respond.Error(c, http.StatusInternalServerError, "failed to list users")
	}
	return respond.OK(c, http.StatusOK, pagination.NewResponse(users, total, p.Limit, p.Offset))
}
