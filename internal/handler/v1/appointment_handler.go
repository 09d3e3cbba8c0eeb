package v1

import (
	"net/http"
	"time"

	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/domain/appointment"
	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type AppointmentHandler struct {
	svc *service.AppointmentService
}

func NewAppointmentHandler(svc *service.AppointmentService) *AppointmentHandler {
	return &AppointmentHandler{svc: svc}
}

type bookAppointmentRequest struct {
	PatientID          uuid.UUID              `json:"patient_id" binding:"required"`
	DoctorID           *uuid.UUID             `json:"doctor_id"`
	Date               string                 `json:"date" binding:"required"`
	Start              *appointment.ClockTime `json:"start" binding:"required"`
	End                *appointment.ClockTime `json:"end" binding:"required"`
	Notes              string                 `json:"notes"`
	ExternalCalendarID *string                `json:"external_calendar_id"`
}

type updateAppointmentRequest struct {
	Date               *string                `json:"date"`
	Start              *appointment.ClockTime `json:"start"`
	End                *appointment.ClockTime `json:"end"`
	Notes              *string                `json:"notes"`
	ExternalCalendarID *string                `json:"external_calendar_id"`
}

type rescheduleRequest struct {
	Date  string                 `json:"date" binding:"required"`
	Start *appointment.ClockTime `json:"start" binding:"required"`
	End   *appointment.ClockTime `json:"end" binding:"required"`
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

// Book handles POST /appointments.
func (h *AppointmentHandler) Book(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	var req bookAppointmentRequest
	if !bindJSON(c, &req) {
		return
	}
	date, err := appointment.ParseDate(req.Date)
	if err != nil {
		respondServiceError(c, domain.NewValidationError(err.Error()))
		return
	}

	cmd := &appointment.BookAppointmentCommand{
		PatientID:          req.PatientID,
		Date:               date,
		Time:               appointment.TimeRange{Start: *req.Start, End: *req.End},
		Notes:              req.Notes,
		ExternalCalendarID: req.ExternalCalendarID,
	}
	if req.DoctorID != nil {
		cmd.DoctorID = *req.DoctorID
	}

	appt, err := h.svc.BookAppointment(c.Request.Context(), cmd, a)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondCreated(c, appt)
}

// List handles GET /appointments.
func (h *AppointmentHandler) List(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	q, ok := parseListAppointmentsQuery(c)
	if !ok {
		return
	}

	appts, err := h.svc.ListAppointments(c.Request.Context(), q, a)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	if appts == nil {
		appts = []*appointment.Appointment{}
	}
	respondOK(c, appts)
}

// Get handles GET /appointments/:id.
func (h *AppointmentHandler) Get(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	appt, err := h.svc.GetAppointment(c.Request.Context(), id, a)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, appt)
}

// Update handles PATCH /appointments/:id.
func (h *AppointmentHandler) Update(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	var req updateAppointmentRequest
	if !bindJSON(c, &req) {
		return
	}

	cmd := &appointment.UpdateAppointmentCommand{
		Notes:              req.Notes,
		ExternalCalendarID: req.ExternalCalendarID,
	}
	if req.Date != nil {
		date, err := appointment.ParseDate(*req.Date)
		if err != nil {
			respondServiceError(c, domain.NewValidationError(err.Error()))
			return
		}
		cmd.Date = &date
	}
	if (req.Start == nil) != (req.End == nil) {
		respondServiceError(c, domain.NewValidationError("start and end must be given together"))
		return
	}
	if req.Start != nil {
		cmd.Time = &appointment.TimeRange{Start: *req.Start, End: *req.End}
	}

	appt, err := h.svc.UpdateAppointment(c.Request.Context(), id, cmd, a)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, appt)
}

// Reschedule handles POST /appointments/:id/reschedule.
func (h *AppointmentHandler) Reschedule(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	var req rescheduleRequest
	if !bindJSON(c, &req) {
		return
	}
	date, err := appointment.ParseDate(req.Date)
	if err != nil {
		respondServiceError(c, domain.NewValidationError(err.Error()))
		return
	}

	appt, err := h.svc.RescheduleAppointment(c.Request.Context(), id, date, appointment.TimeRange{Start: *req.Start, End: *req.End}, a)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, appt)
}

// Complete handles POST /appointments/:id/complete.
func (h *AppointmentHandler) Complete(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	appt, err := h.svc.MarkCompleted(c.Request.Context(), id, a)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, appt)
}

// Cancel handles POST /appointments/:id/cancel. The body is optional.
func (h *AppointmentHandler) Cancel(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	var req cancelRequest
	if c.Request.ContentLength > 0 && !bindJSON(c, &req) {
		return
	}

	appt, err := h.svc.Cancel(c.Request.Context(), id, a, req.Reason)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, appt)
}

// Delete handles DELETE /appointments/:id.
func (h *AppointmentHandler) Delete(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	if err := h.svc.DeleteAppointment(c.Request.Context(), id, a); err != nil {
		respondServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func parseListAppointmentsQuery(c *gin.Context) (appointment.ListAppointmentsQuery, bool) {
	var q appointment.ListAppointmentsQuery
	var ok bool

	if q.DoctorID, ok = parseQueryUUID(c, "doctor_id"); !ok {
		return q, false
	}
	if q.PatientID, ok = parseQueryUUID(c, "patient_id"); !ok {
		return q, false
	}
	if raw := c.Query("status"); raw != "" {
		st := appointment.AppointmentStatus(raw)
		q.Status = &st
	}
	for key, dst := range map[string]**time.Time{"date_from": &q.DateFrom, "date_to": &q.DateTo} {
		raw := c.Query(key)
		if raw == "" {
			continue
		}
		d, err := appointment.ParseDate(raw)
		if err != nil {
			respondServiceError(c, domain.NewValidationError(key+": "+err.Error()))
			return q, false
		}
		*dst = &d
	}
	return q, true
}
