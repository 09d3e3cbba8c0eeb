package v1

import (
	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/domain/patient"
	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/service"
	"github.com/gin-gonic/gin"
)

type PatientHandler struct {
	svc *service.PatientService
}

func NewPatientHandler(svc *service.PatientService) *PatientHandler {
	return &PatientHandler{svc: svc}
}

// List handles GET /patients?status=&doctor_id=&search=.
func (h *PatientHandler) List(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	doctorID, ok := parseQueryUUID(c, "doctor_id")
	if !ok {
		return
	}

	q := patient.ListPatientsQuery{
		AssignedDoctorID: doctorID,
		Search:           c.Query("search"),
	}
	if raw := c.Query("status"); raw != "" {
		st := patient.Status(raw)
		q.Status = &st
	}

	patients, err := h.svc.ListPatients(c.Request.Context(), q, a)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	if patients == nil {
		patients = []*patient.Patient{}
	}
	respondOK(c, patients)
}

// Get handles GET /patients/:id.
func (h *PatientHandler) Get(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	p, err := h.svc.GetPatient(c.Request.Context(), id, a)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, p)
}
