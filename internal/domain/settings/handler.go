package settings

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/edflow/edflow/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/settings", h.Get, auth.RequireRole(append(auth.AnyNurse(), auth.RoleProvider)...))
	api.PUT("/settings", h.Update, auth.RequireRole(auth.RoleChargeNurse))
}

func (h *Handler) Get(c echo.Context) error {
	s, err := h.svc.Current(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, s)
}

func (h *Handler) Update(c echo.Context) error {
	var s ApplicationSetting
	if err := c.Bind(&s); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	actor := auth.ActorFromContext(c.Request().Context())
	s.UpdatedBy = &actor
	if err := h.svc.Update(c.Request().Context(), &s); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, s)
}
