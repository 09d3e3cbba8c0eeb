package visit

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type Type string

const (
	TypeInitial   Type = "initial"
	TypeFollowup  Type = "followup"
	TypeDischarge Type = "discharge"
)

// Visit is the persisted form of every variant. The discriminant and the
// variant's required fields are plain columns; the rest of the variant
// payload is an opaque JSON document loaded only on demand.
//
// Once created, visits cannot be deleted or edited.
type Visit struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	PatientID uuid.UUID `gorm:"column:patient_id;type:uuid;not null;index" json:"patient_id"`
	DoctorID  uuid.UUID `gorm:"column:doctor_id;type:uuid;not null;index" json:"doctor_id"`

	Type  Type      `gorm:"column:visit_type;type:varchar(20);not null;index" json:"visit_type"`
	Date  time.Time `gorm:"column:visit_date;not null;index" json:"date"`
	Notes string    `gorm:"column:notes;type:text" json:"notes,omitempty"`

	ChiefComplaint  *string    `gorm:"column:chief_complaint;type:text" json:"chief_complaint,omitempty"`
	PreviousVisitID *uuid.UUID `gorm:"column:previous_visit_id;type:uuid;index" json:"previous_visit_id,omitempty"`

	Payload datatypes.JSON `gorm:"column:payload;type:jsonb" json:"payload,omitempty"`

	CreatedBy uuid.UUID `gorm:"column:created_by;type:uuid;not null" json:"created_by"`
}

func (Visit) TableName() string {
	return "clinical.visits"
}

type CreateVisitCommand struct {
	Type      Type
	PatientID uuid.UUID
	DoctorID  uuid.UUID // ignored for doctor actors
	Date      time.Time
	Notes     string
	Payload   Payload
}

type ListVisitsQuery struct {
	PatientID *uuid.UUID
	DoctorID  *uuid.UUID
	Type      *Type

	// Empty is set by visibility scoping when the request can match nothing.
	Empty bool
}

func (q *ListVisitsQuery) Matches(v *Visit) bool {
	if q.Empty {
		return false
	}
	if q.PatientID != nil && v.PatientID != *q.PatientID {
		return false
	}
	if q.DoctorID != nil && v.DoctorID != *q.DoctorID {
		return false
	}
	if q.Type != nil && v.Type != *q.Type {
		return false
	}
	return true
}

// Less orders visits newest first: date, then creation time, then id.
func Less(a, b *Visit) bool {
	if !a.Date.Equal(b.Date) {
		return a.Date.After(b.Date)
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID.String() < b.ID.String()
}
