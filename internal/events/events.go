package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	TypeVisitCreated         = "visit.created"
	TypePatientDischarged    = "patient.discharged"
	TypeAppointmentBooked    = "appointment.booked"
	TypeAppointmentUpdated   = "appointment.updated"
	TypeAppointmentMoved     = "appointment.rescheduled"
	TypeAppointmentCancelled = "appointment.cancelled"
	TypeAppointmentCompleted = "appointment.completed"
	TypeAppointmentDeleted   = "appointment.deleted"
)

// Entry is an event written in the same unit of work as the change it
// describes and delivered to external collaborators after commit.
type Entry struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey"`
	CreatedAt   time.Time      `gorm:"autoCreateTime;index"`
	Type        string         `gorm:"column:type;type:varchar(64);not null;index"`
	AggregateID uuid.UUID      `gorm:"column:aggregate_id;type:uuid;not null;index"`
	Payload     datatypes.JSON `gorm:"column:payload;type:jsonb;not null"`
	DeliveredAt *time.Time     `gorm:"column:delivered_at;index"`
	Attempts    int            `gorm:"column:attempts;not null;default:0"`
}

func (Entry) TableName() string {
	return "clinical.outbox"
}

func NewEntry(eventType string, aggregateID uuid.UUID, payload any) (*Entry, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("events: marshal payload: %w", err)
	}
	return &Entry{
		ID:          uuid.New(),
		Type:        eventType,
		AggregateID: aggregateID,
		Payload:     datatypes.JSON(data),
	}, nil
}

type Writer interface {
	Enqueue(ctx context.Context, e *Entry) error
}

// Store persists entries for reliable delivery.
type Store interface {
	Writer
	FetchPending(ctx context.Context, limit int) ([]*Entry, error)
	MarkDelivered(ctx context.Context, id uuid.UUID, at time.Time) error
	MarkFailed(ctx context.Context, id uuid.UUID) error
}
