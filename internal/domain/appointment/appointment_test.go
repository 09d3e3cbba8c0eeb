package appointment

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAppt(doctor uuid.UUID, day time.Time, start, end ClockTime, status AppointmentStatus) *Appointment {
	return &Appointment{
		ID:       uuid.New(),
		DoctorID: doctor,
		Date:     DateOf(day),
		Time:     TimeRange{Start: start, End: end},
		Status:   status,
	}
}

func TestAppointmentConflicts(t *testing.T) {
	doctor := uuid.New()
	day := time.Date(2024, 5, 6, 0, 0, 0, 0, time.UTC)
	a := newAppt(doctor, day, Clock(9, 0), Clock(9, 30), StatusScheduled)

	assert.True(t, a.Conflicts(newAppt(doctor, day, Clock(9, 15), Clock(9, 45), StatusScheduled)))
	assert.True(t, a.Conflicts(newAppt(doctor, day, Clock(9, 15), Clock(9, 45), StatusCompleted)), "completed still occupies the slot")

	assert.False(t, a.Conflicts(newAppt(doctor, day, Clock(9, 30), Clock(10, 0), StatusScheduled)), "touching")
	assert.False(t, a.Conflicts(newAppt(uuid.New(), day, Clock(9, 0), Clock(9, 30), StatusScheduled)), "other doctor")
	assert.False(t, a.Conflicts(newAppt(doctor, day.AddDate(0, 0, 1), Clock(9, 0), Clock(9, 30), StatusScheduled)), "other day")
	assert.False(t, a.Conflicts(newAppt(doctor, day, Clock(9, 0), Clock(9, 30), StatusCancelled)), "cancelled")
	assert.False(t, a.Conflicts(newAppt(doctor, day, Clock(9, 0), Clock(9, 30), StatusNoShow)), "no-show")
	assert.False(t, a.Conflicts(a), "self")
}

func TestAppointmentTransitions(t *testing.T) {
	statuses := []AppointmentStatus{StatusScheduled, StatusCompleted, StatusCancelled, StatusNoShow}
	allowed := map[AppointmentStatus][]AppointmentStatus{
		StatusScheduled: {StatusCompleted, StatusCancelled, StatusNoShow},
	}
	for _, from := range statuses {
		for _, to := range statuses {
			a := &Appointment{Status: from}
			want := false
			for _, s := range allowed[from] {
				if s == to {
					want = true
				}
			}
			assert.Equal(t, want, a.CanTransitionTo(to), "%s -> %s", from, to)
		}
	}
}

func TestAppointmentCancelAndComplete(t *testing.T) {
	at := time.Date(2024, 5, 6, 12, 0, 0, 0, time.UTC)
	by := uuid.New()

	a := &Appointment{Status: StatusScheduled}
	require.NoError(t, a.Cancel("patient request", by, at))
	assert.Equal(t, StatusCancelled, a.Status)
	assert.Equal(t, "patient request", a.CancellationReason)
	require.NotNil(t, a.CancelledBy)
	assert.Equal(t, by, *a.CancelledBy)
	assert.Equal(t, at, *a.CancelledAt)

	assert.ErrorIs(t, a.Cancel("again", by, at), ErrInvalidStatusTransition)
	assert.ErrorIs(t, a.Complete(at), ErrInvalidStatusTransition)

	b := &Appointment{Status: StatusScheduled}
	require.NoError(t, b.Complete(at))
	assert.Equal(t, StatusCompleted, b.Status)
	assert.Equal(t, at, *b.CompletedAt)
}

func TestListAppointmentsQueryMatches(t *testing.T) {
	doctor, patient := uuid.New(), uuid.New()
	day := time.Date(2024, 5, 6, 0, 0, 0, 0, time.UTC)
	a := newAppt(doctor, day, Clock(9, 0), Clock(9, 30), StatusScheduled)
	a.PatientID = patient

	completed := StatusCompleted
	from, to := day.AddDate(0, 0, -1), day
	after := day.AddDate(0, 0, 1)

	assert.True(t, (&ListAppointmentsQuery{}).Matches(a))
	assert.True(t, (&ListAppointmentsQuery{DoctorID: &doctor, PatientID: &patient, DateFrom: &from, DateTo: &to}).Matches(a))
	assert.False(t, (&ListAppointmentsQuery{Status: &completed}).Matches(a))
	assert.False(t, (&ListAppointmentsQuery{DateFrom: &after}).Matches(a))
	assert.False(t, (&ListAppointmentsQuery{Empty: true}).Matches(a))
}

func TestLessOrdersByDateThenStart(t *testing.T) {
	doctor := uuid.New()
	day := time.Date(2024, 5, 6, 0, 0, 0, 0, time.UTC)
	early := newAppt(doctor, day, Clock(8, 0), Clock(8, 30), StatusScheduled)
	late := newAppt(doctor, day, Clock(14, 0), Clock(14, 30), StatusScheduled)
	nextDay := newAppt(doctor, day.AddDate(0, 0, 1), Clock(7, 0), Clock(7, 30), StatusScheduled)

	assert.True(t, Less(early, late))
	assert.True(t, Less(late, nextDay))
	assert.False(t, Less(nextDay, early))
}
