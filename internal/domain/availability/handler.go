package availability

import (
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
	api.GET("/practitioners/:id/availability", h.GetSchedule)

	// Writes: the owning practitioner or an admin
	write := api.Group("/practitioners/:id/availability",
		auth.RequireRole(auth.RolePractitioner), auth.RequireSelfOrAdmin("id"))
	write.PUT("", h.ReplaceSchedule)
	write.POST("/:day/slots", h.AddSlot)
	write.DELETE("/:day/slots/:index", h.RemoveSlot)
}

type dayResponse struct {
	Day   string `json:"day"`
	Slots []Slot `json:"slots"`
}

func (h *Handler) GetSchedule(c echo.Context) error {
	id, err := practitionerID(c)
	if err != nil {
		return err
	}
	sched, err := h.svc.GetSchedule(c.Request().Context(), id)
	if err != nil {
		return errorResponse(err)
	}
	return c.JSON(http.StatusOK, sched)
}

func (h *Handler) ReplaceSchedule(c echo.Context) error {
	id, err := practitionerID(c)
	if err != nil {
		return err
	}
	sched := NewSchedule()
	if err := c.Bind(sched); err != nil {
		var dayErr *DayError
		if errors.As(err, &dayErr) {
			return errorResponse(dayErr)
		}
		return apierr.BadRequest("", "invalid schedule body")
	}
	if err := h.svc.ReplaceSchedule(c.Request().Context(), id, sched); err != nil {
		return errorResponse(err)
	}
	return c.JSON(http.StatusOK, sched)
}

func (h *Handler) AddSlot(c echo.Context) error {
	id, err := practitionerID(c)
	if err != nil {
		return err
	}
	day, err := ParseWeekday(c.Param("day"))
	if err != nil {
		return errorResponse(err)
	}
	var slot Slot
	if err := c.Bind(&slot); err != nil {
		return apierr.BadRequest("", "invalid slot body: start_time and end_time must be HH:MM")
	}
	slots, err := h.svc.AddSlot(c.Request().Context(), id, day, slot)
	if err != nil {
		return errorResponse(err)
	}
	return c.JSON(http.StatusCreated, dayResponse{Day: day.String(), Slots: slots})
}

func (h *Handler) RemoveSlot(c echo.Context) error {
	id, err := practitionerID(c)
	if err != nil {
		return err
	}
	day, err := ParseWeekday(c.Param("day"))
	if err != nil {
		return errorResponse(err)
	}
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		return apierr.BadRequest("index", "index must be an integer")
	}
	slots, err := h.svc.RemoveSlot(c.Request().Context(), id, day, index)
	if err != nil {
		return errorResponse(err)
	}
	return c.JSON(http.StatusOK, dayResponse{Day: day.String(), Slots: slots})
}

func practitionerID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apierr.BadRequest("id", "invalid practitioner id")
	}
	return id, nil
}

func errorResponse(err error) error {
	switch {
	case errors.Is(err, ErrInvalidRange), errors.Is(err, ErrInvalidDay):
		return apierr.FromError(http.StatusBadRequest, err)
	case errors.Is(err, ErrSlotOverlap):
		return apierr.FromError(http.StatusConflict, err)
	case errors.Is(err, ErrNotFound):
		return apierr.FromError(http.StatusNotFound, err)
	default:
		return apierr.FromError(http.StatusInternalServerError, err)
	}
}
