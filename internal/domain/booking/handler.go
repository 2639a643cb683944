package booking

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/ayurcare/ayurcare/internal/domain/appointment"
	"github.com/ayurcare/ayurcare/internal/platform/apierr"
	"github.com/ayurcare/ayurcare/internal/platform/auth"
)

type Handler struct {
	workflow *Workflow
	gate     *ChatGate
}

func NewHandler(workflow *Workflow, gate *ChatGate) *Handler {
	return &Handler{workflow: workflow, gate: gate}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/bookings", h.Submit, auth.RequireRole(auth.RolePatient))
	api.GET("/chat/access", h.CheckChat, auth.RequireRole(auth.RolePatient))
	api.POST("/chat/sessions", h.StartChat, auth.RequireRole(auth.RolePatient))
}

// Submit books the completed form for the calling patient. Admins book on
// behalf of ?patient_id=.
func (h *Handler) Submit(c echo.Context) error {
	var f Form
	if err := c.Bind(&f); err != nil {
		return apierr.BadRequest("", "invalid booking body")
	}
	patientID, err := bookingPatient(c)
	if err != nil {
		return err
	}
	appt, err := h.workflow.Submit(c.Request().Context(), patientID, f)
	if err != nil {
		if errors.Is(err, ErrInvalidForm) {
			return apierr.FromError(http.StatusBadRequest, err)
		}
		return appointment.ErrorResponse(err)
	}
	return c.JSON(http.StatusCreated, appt)
}

func (h *Handler) CheckChat(c echo.Context) error {
	userID, err := chatPatient(c)
	if err != nil {
		return err
	}
	d, err := h.gate.Check(c.Request().Context(), userID)
	if err != nil {
		return gateError(err)
	}
	return c.JSON(http.StatusOK, d)
}

// StartChat spends the caller's own entitlement, so only patients may call
// it. Admins are turned away here even though the role middleware lets them in.
func (h *Handler) StartChat(c echo.Context) error {
	userID, err := chatPatient(c)
	if err != nil {
		return err
	}
	d, err := h.gate.Start(c.Request().Context(), userID)
	if err != nil {
		return gateError(err)
	}
	return c.JSON(http.StatusCreated, d)
}

func chatPatient(c echo.Context) (int64, error) {
	p, ok := auth.PrincipalFromContext(c.Request().Context())
	if !ok || p.Role != auth.RolePatient {
		return 0, apierr.New(http.StatusForbidden, "forbidden", "chat is available to patients only", nil)
	}
	return p.UserID, nil
}

func bookingPatient(c echo.Context) (int64, error) {
	p, _ := auth.PrincipalFromContext(c.Request().Context())
	if !p.IsAdmin() {
		return p.UserID, nil
	}
	var q struct {
		PatientID int64 `query:"patient_id"`
	}
	if err := (&echo.DefaultBinder{}).BindQueryParams(c, &q); err != nil || q.PatientID <= 0 {
		return 0, apierr.BadRequest("patient_id", "admins must pass patient_id")
	}
	return q.PatientID, nil
}

func gateError(err error) error {
	if errors.Is(err, ErrFeatureLocked) {
		return apierr.FromError(http.StatusForbidden, err)
	}
	return apierr.FromError(http.StatusInternalServerError, err)
}
