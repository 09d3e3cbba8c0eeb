package visit

import (
	"encoding/json"

	"github.com/google/uuid"
)

// Payload is the variant-specific part of a visit. Exactly one concrete
// type exists per Type.
type Payload interface {
	VisitType() Type
}

// InitialPayload opens an episode of care. Exam holds the structured exam
// (vitals, strength grading, range-of-motion tables, ...) which this
// service stores without interpreting.
type InitialPayload struct {
	ChiefComplaint string          `json:"chief_complaint"`
	Exam           json.RawMessage `json:"exam,omitempty"`
}

func (InitialPayload) VisitType() Type { return TypeInitial }

type FollowupPayload struct {
	PreviousVisitID uuid.UUID       `json:"previous_visit_id"`
	Progress        json.RawMessage `json:"progress,omitempty"`
}

func (FollowupPayload) VisitType() Type { return TypeFollowup }

type DischargePayload struct {
	Summary json.RawMessage `json:"summary,omitempty"`
}

func (DischargePayload) VisitType() Type { return TypeDischarge }
