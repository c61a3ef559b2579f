package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/6231368521/VacQ/internal/models"
	"github.com/6231368521/VacQ/internal/service"
)

// GetAppointments serves both GET /appointments and
// GET /hospitals/:hospitalId/appointments. Visibility scoping happens in the
// service; there is never an authorization failure, only fewer rows.
func (h *Handler) GetAppointments(c *gin.Context) {
	caller, valid := h.caller(c)
	if !valid {
		return
	}

	var hospitalID *primitive.ObjectID
	if hex := c.Param("hospitalId"); hex != "" {
		id, err := primitive.ObjectIDFromHex(hex)
		if err != nil {
			fail(c, http.StatusBadRequest, "Invalid hospital ID")
			return
		}
		hospitalID = &id
	}

	appointments, err := h.Appointments.List(c.Request.Context(), caller, hospitalID)
	if err != nil {
		h.serverError(c, err, "Cannot find Appointment")
		return
	}
	okCount(c, len(appointments), appointments)
}

// GetAppointment is publicly readable; no caller identity is required.
func (h *Handler) GetAppointment(c *gin.Context) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		fail(c, http.StatusBadRequest, "Invalid appointment ID")
		return
	}

	appointment, err := h.Appointments.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			fail(c, http.StatusNotFound, fmt.Sprintf("No appointment with the id of %s", id.Hex()))
			return
		}
		h.serverError(c, err, "Cannot find Appointment")
		return
	}
	ok(c, appointment)
}

type createAppointmentRequest struct {
	ApptDate time.Time `json:"apptDate" binding:"required"`
}

func (h *Handler) CreateAppointment(c *gin.Context) {
	caller, valid := h.caller(c)
	if !valid {
		return
	}

	hospitalID, err := primitive.ObjectIDFromHex(c.Param("hospitalId"))
	if err != nil {
		fail(c, http.StatusBadRequest, "Invalid hospital ID")
		return
	}

	var req createAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "apptDate is required")
		return
	}

	appointment, err := h.Appointments.Create(c.Request.Context(), caller, hospitalID, req.ApptDate)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotFound):
			fail(c, http.StatusNotFound, fmt.Sprintf("No hospital with the id of %s", hospitalID.Hex()))
		case errors.Is(err, service.ErrQuotaExceeded):
			fail(c, http.StatusConflict, fmt.Sprintf("The user with ID %s has already made %d appointments", caller.ID.Hex(), service.MaxActiveAppointments))
		case errors.Is(err, service.ErrValidation):
			fail(c, http.StatusBadRequest, "apptDate is required")
		default:
			h.serverError(c, err, "Cannot create Appointment")
		}
		return
	}

	if h.Notifications != nil {
		go h.sendBookingConfirmation(appointment)
	}
	ok(c, appointment)
}

type updateAppointmentRequest struct {
	ApptDate *time.Time `json:"apptDate"`
}

func (h *Handler) UpdateAppointment(c *gin.Context) {
	caller, valid := h.caller(c)
	if !valid {
		return
	}

	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		fail(c, http.StatusBadRequest, "Invalid appointment ID")
		return
	}

	var req updateAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	appointment, err := h.Appointments.Update(c.Request.Context(), caller, id, service.AppointmentUpdate{ApptDate: req.ApptDate})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotFound):
			fail(c, http.StatusNotFound, fmt.Sprintf("No appointment with the id of %s", id.Hex()))
		case errors.Is(err, service.ErrForbidden):
			fail(c, http.StatusForbidden, fmt.Sprintf("User %s is not authorized to update this appointment", caller.ID.Hex()))
		case errors.Is(err, service.ErrValidation):
			fail(c, http.StatusBadRequest, "No update fields provided")
		default:
			h.serverError(c, err, "Cannot update Appointment")
		}
		return
	}
	ok(c, appointment)
}

func (h *Handler) DeleteAppointment(c *gin.Context) {
	caller, valid := h.caller(c)
	if !valid {
		return
	}

	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		fail(c, http.StatusBadRequest, "Invalid appointment ID")
		return
	}

	err = h.Appointments.Delete(c.Request.Context(), caller, id)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotFound):
			fail(c, http.StatusNotFound, fmt.Sprintf("No appointment with the id of %s", id.Hex()))
		case errors.Is(err, service.ErrForbidden):
			fail(c, http.StatusForbidden, fmt.Sprintf("User %s is not authorized to delete this appointment", caller.ID.Hex()))
		default:
			h.serverError(c, err, "Cannot delete Appointment")
		}
		return
	}
	ok(c, gin.H{})
}

// sendBookingConfirmation looks up the booking's user and hospital and hands
// them to the notification service. Runs detached from the request; failures
// are logged and never affect the API response.
func (h *Handler) sendBookingConfirmation(appt *models.Appointment) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	user, err := h.Users.FindByID(ctx, appt.User)
	if err != nil {
		h.Log.Warn("booking confirmation skipped: user lookup failed", zap.Error(err))
		return
	}
	hospital, err := h.Hospitals.FindByID(ctx, appt.Hospital)
	if err != nil {
		h.Log.Warn("booking confirmation skipped: hospital lookup failed", zap.Error(err))
		return
	}
	h.Notifications.SendBookingConfirmationSMS(user, hospital, appt)
}
