package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"shareminder/internal/application/dto"
	"shareminder/internal/application/service"
	appErrors "shareminder/internal/pkg/errors"
	"shareminder/internal/pkg/logger"
)

// ReminderHandler exposes the engine's operations over HTTP.
type ReminderHandler struct {
	reminderService service.ReminderService
	log             logger.Logger
}

// NewReminderHandler creates a new ReminderHandler.
func NewReminderHandler(reminderService service.ReminderService, log logger.Logger) *ReminderHandler {
	return &ReminderHandler{
		reminderService: reminderService,
		log:             log,
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

// httpStatus maps the application error taxonomy to HTTP status codes.
func httpStatus(err error) int {
	switch {
	case errors.Is(err, appErrors.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, appErrors.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, appErrors.ErrScheduler), errors.Is(err, appErrors.ErrShare):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (h *ReminderHandler) fail(c echo.Context, op string, err error) error {
	h.log.Error("Operation failed: "+op, err)
	return c.JSON(httpStatus(err), errorResponse{Error: err.Error()})
}

// Create handles POST /reminders.
func (h *ReminderHandler) Create(c echo.Context) error {
	var req dto.CreateReminderRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
	}
	reminder, err := h.reminderService.Create(c.Request().Context(), req)
	if err != nil {
		return h.fail(c, "create", err)
	}
	return c.JSON(http.StatusCreated, reminder)
}

// List handles GET /reminders.
func (h *ReminderHandler) List(c echo.Context) error {
	reminders, err := h.reminderService.List(c.Request().Context())
	if err != nil {
		return h.fail(c, "list", err)
	}
	return c.JSON(http.StatusOK, reminders)
}

// Update handles PATCH /reminders/:id.
func (h *ReminderHandler) Update(c echo.Context) error {
	var patch dto.UpdateReminderRequest
	if err := c.Bind(&patch); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
	}
	reminder, err := h.reminderService.Update(c.Request().Context(), c.Param("id"), patch)
	if err != nil {
		return h.fail(c, "update", err)
	}
	return c.JSON(http.StatusOK, reminder)
}

// Delete handles DELETE /reminders/:id.
func (h *ReminderHandler) Delete(c echo.Context) error {
	if err := h.reminderService.Delete(c.Request().Context(), c.Param("id")); err != nil {
		return h.fail(c, "delete", err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Sweep handles POST /sweep, the app-foreground trigger for the due sweep.
func (h *ReminderHandler) Sweep(c echo.Context) error {
	report, err := h.reminderService.DueSweep(c.Request().Context(), time.Now())
	if err != nil {
		return h.fail(c, "sweep", err)
	}
	return c.JSON(http.StatusOK, report)
}
