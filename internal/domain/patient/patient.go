package patient

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Status represents the lifecycle state of a patient record.
//
//	active → discharged (creating a discharge visit)
//
// No transition leaves discharged.
type Status string

const (
	StatusActive     Status = "active"
	StatusDischarged Status = "discharged"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusActive, StatusDischarged:
		return true
	}
	return false
}

type Patient struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	FirstName   string    `gorm:"column:first_name;type:varchar(100);not null" json:"first_name"`
	LastName    string    `gorm:"column:last_name;type:varchar(100);not null" json:"last_name"`
	DateOfBirth time.Time `gorm:"column:date_of_birth;type:date" json:"date_of_birth"`

	AssignedDoctorID uuid.UUID  `gorm:"column:assigned_doctor_id;type:uuid;not null;index" json:"assigned_doctor_id"`
	Status           Status     `gorm:"column:status;type:varchar(20);not null;default:'active';index" json:"status"`
	DischargedAt     *time.Time `gorm:"column:discharged_at" json:"discharged_at,omitempty"`
}

func (Patient) TableName() string {
	return "clinical.patients"
}

func (p *Patient) FullName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

func (p *Patient) IsDischarged() bool {
	return p.Status == StatusDischarged
}

// MarkDischarged moves the patient to discharged. Repeating it keeps the
// original discharge timestamp.
func (p *Patient) MarkDischarged(at time.Time) {
	if p.Status == StatusDischarged && p.DischargedAt != nil {
		return
	}
	p.Status = StatusDischarged
	p.DischargedAt = &at
}

// ListPatientsQuery defines filtering for patient list queries.
type ListPatientsQuery struct {
	Status           *Status
	AssignedDoctorID *uuid.UUID
	Search           string // Case-insensitive match on name

	// Empty is set by visibility scoping when the request can match nothing.
	Empty bool
}

func (q *ListPatientsQuery) Matches(p *Patient) bool {
	if q.Empty {
		return false
	}
	if q.Status != nil && p.Status != *q.Status {
		return false
	}
	if q.AssignedDoctorID != nil && p.AssignedDoctorID != *q.AssignedDoctorID {
		return false
	}
	if q.Search != "" && !strings.Contains(strings.ToLower(p.FullName()), strings.ToLower(q.Search)) {
		return false
	}
	return true
}

// Less orders patients by last name, first name, then id.
func Less(a, b *Patient) bool {
	if a.LastName != b.LastName {
		return a.LastName < b.LastName
	}
	if a.FirstName != b.FirstName {
		return a.FirstName < b.FirstName
	}
	return a.ID.String() < b.ID.String()
}
