package appointment

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/ayurcare/ayurcare/internal/platform/apierr"
	"github.com/ayurcare/ayurcare/internal/platform/auth"
	"github.com/ayurcare/ayurcare/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/appointments", h.ListAppointments)
	api.GET("/appointments/:id", h.GetAppointment)
	api.PATCH("/appointments/:id", h.UpdateStatus)
	api.POST("/appointments", h.CreateAppointment,
		auth.RequireRole(auth.RolePatient, auth.RolePractitioner))
}

// CreateAppointment books on behalf of the caller. Patients always book for
// themselves and practitioners into their own calendar.
func (h *Handler) CreateAppointment(c echo.Context) error {
	var req BookingRequest
	if err := c.Bind(&req); err != nil {
		return apierr.BadRequest("", "invalid appointment body: scheduled_datetime must be RFC 3339")
	}

	p, _ := auth.PrincipalFromContext(c.Request().Context())
	switch p.Role {
	case auth.RolePatient:
		if req.PatientID != 0 && req.PatientID != p.UserID {
			return apierr.FromError(http.StatusForbidden, ErrForbidden)
		}
		req.PatientID = p.UserID
	case auth.RolePractitioner:
		if req.PractitionerID != 0 && req.PractitionerID != p.UserID {
			return apierr.FromError(http.StatusForbidden, ErrForbidden)
		}
		req.PractitionerID = p.UserID
	}

	appt, err := h.svc.Book(c.Request().Context(), req)
	if err != nil {
		return ErrorResponse(err)
	}
	return c.JSON(http.StatusCreated, appt)
}

func (h *Handler) GetAppointment(c echo.Context) error {
	id, err := appointmentID(c)
	if err != nil {
		return err
	}
	appt, err := h.svc.Get(c.Request().Context(), id, actorFrom(c))
	if err != nil {
		return ErrorResponse(err)
	}
	return c.JSON(http.StatusOK, appt)
}

// ListAppointments lists the caller's own appointments. Admins choose whose
// with patient_id or practitioner_id.
func (h *Handler) ListAppointments(c echo.Context) error {
	ctx := c.Request().Context()
	pg := pagination.FromContext(c)
	p, _ := auth.PrincipalFromContext(ctx)

	var (
		items []*Appointment
		total int
		err   error
	)
	switch p.Role {
	case auth.RolePatient:
		items, total, err = h.svc.ListForPatient(ctx, p.UserID, pg.Limit, pg.Offset)
	case auth.RolePractitioner:
		items, total, err = h.svc.ListForPractitioner(ctx, p.UserID, pg.Limit, pg.Offset)
	default:
		if v := c.QueryParam("patient_id"); v != "" {
			id, perr := strconv.ParseInt(v, 10, 64)
			if perr != nil {
				return apierr.BadRequest("patient_id", "invalid patient_id")
			}
			items, total, err = h.svc.ListForPatient(ctx, id, pg.Limit, pg.Offset)
		} else if v := c.QueryParam("practitioner_id"); v != "" {
			id, perr := strconv.ParseInt(v, 10, 64)
			if perr != nil {
				return apierr.BadRequest("practitioner_id", "invalid practitioner_id")
			}
			items, total, err = h.svc.ListForPractitioner(ctx, id, pg.Limit, pg.Offset)
		} else {
			return apierr.BadRequest("patient_id", "patient_id or practitioner_id is required")
		}
	}
	if err != nil {
		return ErrorResponse(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

type statusRequest struct {
	Status Status `json:"status"`
}

func (h *Handler) UpdateStatus(c echo.Context) error {
	id, err := appointmentID(c)
	if err != nil {
		return err
	}
	var body statusRequest
	if err := c.Bind(&body); err != nil {
		return apierr.BadRequest("status", "invalid body")
	}
	if !body.Status.Valid() {
		return apierr.BadRequest("status", "status must be one of scheduled, confirmed, completed, cancelled")
	}
	appt, err := h.svc.UpdateStatus(c.Request().Context(), id, body.Status, actorFrom(c))
	if err != nil {
		return ErrorResponse(err)
	}
	return c.JSON(http.StatusOK, appt)
}

func appointmentID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apierr.BadRequest("id", "invalid appointment id")
	}
	return id, nil
}

func actorFrom(c echo.Context) Actor {
	p, _ := auth.PrincipalFromContext(c.Request().Context())
	return Actor{ID: p.UserID, Role: p.Role}
}

// ErrorResponse maps booking errors to HTTP errors. It is shared with the
// booking workflow endpoints.
func ErrorResponse(err error) error {
	switch {
	case errors.Is(err, ErrInvalidTime), errors.Is(err, ErrInvalidRequest):
		return apierr.FromError(http.StatusBadRequest, err)
	case errors.Is(err, ErrOutsideAvailability):
		return apierr.FromError(http.StatusUnprocessableEntity, err)
	case errors.Is(err, ErrSlotTaken), errors.Is(err, ErrIllegalTransition):
		return apierr.FromError(http.StatusConflict, err)
	case errors.Is(err, ErrNotFound):
		return apierr.FromError(http.StatusNotFound, err)
	case errors.Is(err, ErrForbidden):
		return apierr.FromError(http.StatusForbidden, err)
	default:
		return apierr.FromError(http.StatusInternalServerError, err)
	}
}
