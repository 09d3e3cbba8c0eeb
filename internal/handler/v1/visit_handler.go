package v1

import (
	"encoding/json"
	"time"

	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/domain/visit"
	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type VisitHandler struct {
	svc      *service.VisitService
	registry *visit.Registry
}

func NewVisitHandler(svc *service.VisitService, registry *visit.Registry) *VisitHandler {
	return &VisitHandler{svc: svc, registry: registry}
}

type createVisitRequest struct {
	VisitType string          `json:"visit_type" binding:"required"`
	PatientID uuid.UUID       `json:"patient_id" binding:"required"`
	DoctorID  *uuid.UUID      `json:"doctor_id"`
	Date      time.Time       `json:"date" binding:"required"`
	Notes     string          `json:"notes"`
	Payload   json.RawMessage `json:"payload"`
}

// Create handles POST /visits.
func (h *VisitHandler) Create(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	var req createVisitRequest
	if !bindJSON(c, &req) {
		return
	}

	variant, err := h.registry.Lookup(visit.Type(req.VisitType))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	payload, err := variant.Decode(req.Payload)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	cmd := &visit.CreateVisitCommand{
		Type:      variant.Type(),
		PatientID: req.PatientID,
		Date:      req.Date,
		Notes:     req.Notes,
		Payload:   payload,
	}
	if req.DoctorID != nil {
		cmd.DoctorID = *req.DoctorID
	}

	v, err := h.svc.CreateVisit(c.Request.Context(), cmd, a)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondCreated(c, v)
}

// Get handles GET /visits/:id.
func (h *VisitHandler) Get(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	v, err := h.svc.GetVisit(c.Request.Context(), id, a)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, v)
}

// ListForPatient handles GET /patients/:id/visits.
func (h *VisitHandler) ListForPatient(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	visits, err := h.svc.ListVisitsForPatient(c.Request.Context(), id, a)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	if visits == nil {
		visits = []*visit.Visit{}
	}
	respondOK(c, visits)
}
