package subscription

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/ayurcare/ayurcare/internal/platform/apierr"
	"github.com/ayurcare/ayurcare/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/subscription", h.GetStatus)

	// Mutations: patients for themselves, admins for anyone via ?user_id=
	write := api.Group("/subscription", auth.RequireRole(auth.RolePatient))
	write.POST("/trial", h.ActivateTrial)
	write.POST("/upgrade", h.Upgrade)
	write.POST("/consult-used", h.MarkConsultationUsed)
	write.POST("/cancel", h.Cancel)
}

func (h *Handler) GetStatus(c echo.Context) error {
	userID, err := targetUser(c)
	if err != nil {
		return err
	}
	report, err := h.svc.CheckStatus(c.Request().Context(), userID)
	if err != nil {
		return ErrorResponse(err)
	}
	return c.JSON(http.StatusOK, report)
}

func (h *Handler) ActivateTrial(c echo.Context) error {
	return h.mutate(c, http.StatusCreated, h.svc.ActivateTrial)
}

func (h *Handler) Upgrade(c echo.Context) error {
	return h.mutate(c, http.StatusOK, h.svc.UpgradeToPremium)
}

func (h *Handler) MarkConsultationUsed(c echo.Context) error {
	return h.mutate(c, http.StatusOK, h.svc.MarkConsultationUsed)
}

func (h *Handler) Cancel(c echo.Context) error {
	return h.mutate(c, http.StatusOK, h.svc.CancelPremium)
}

func (h *Handler) mutate(c echo.Context, status int, op func(context.Context, int64) (*Subscription, error)) error {
	userID, err := targetUser(c)
	if err != nil {
		return err
	}
	sub, err := op(c.Request().Context(), userID)
	if err != nil {
		return ErrorResponse(err)
	}
	return c.JSON(status, sub)
}

// targetUser is the caller, or for admins the user named by ?user_id=.
func targetUser(c echo.Context) (int64, error) {
	p, ok := auth.PrincipalFromContext(c.Request().Context())
	if !ok {
		return 0, echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	v := c.QueryParam("user_id")
	if v == "" {
		return p.UserID, nil
	}
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil || id <= 0 {
		return 0, apierr.BadRequest("user_id", "invalid user_id")
	}
	if id != p.UserID && !p.IsAdmin() {
		return 0, apierr.New(http.StatusForbidden, "forbidden", "only admins may act on another user's subscription", nil)
	}
	return id, nil
}

func ErrorResponse(err error) error {
	switch {
	case errors.Is(err, ErrAlreadySubscribed), errors.Is(err, ErrNotEligible):
		return apierr.FromError(http.StatusConflict, err)
	case errors.Is(err, ErrNotFound):
		return apierr.FromError(http.StatusNotFound, err)
	default:
		return apierr.FromError(http.StatusInternalServerError, err)
	}
}
