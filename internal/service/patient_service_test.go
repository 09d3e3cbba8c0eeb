package service

import (
	"context"
	"testing"

	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/domain/patient"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetPatient(t *testing.T) {
	e := newEnv(t)
	p := e.seedPatient(t, e.doctor)
	ctx := context.Background()

	got, err := e.patients.GetPatient(ctx, p.ID, e.doctor)
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)
	assert.Equal(t, patient.StatusActive, got.Status)

	_, err = e.patients.GetPatient(ctx, p.ID, e.admin)
	require.NoError(t, err)

	_, err = e.patients.GetPatient(ctx, p.ID, e.doctor2)
	assert.ErrorIs(t, err, domain.ErrAccessDenied)

	_, err = e.patients.GetPatient(ctx, uuid.New(), e.admin)
	assert.ErrorIs(t, err, patient.ErrPatientNotFound)
}

func TestListPatients(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	mine := e.seedPatient(t, e.doctor)
	theirs := e.seedPatient(t, e.doctor2)
	gone := e.seedPatient(t, e.doctor)
	require.NoError(t, e.store.Patients().MarkDischarged(ctx, gone.ID, testNow))

	t.Run("admin sees everyone", func(t *testing.T) {
		all, err := e.patients.ListPatients(ctx, patient.ListPatientsQuery{}, e.admin)
		require.NoError(t, err)
		assert.Len(t, all, 3)
		for i := 1; i < len(all); i++ {
			assert.False(t, patient.Less(all[i], all[i-1]), "list must be ordered")
		}
	})

	t.Run("doctor sees assigned patients only", func(t *testing.T) {
		got, err := e.patients.ListPatients(ctx, patient.ListPatientsQuery{}, e.doctor)
		require.NoError(t, err)
		require.Len(t, got, 2)
		for _, p := range got {
			assert.Equal(t, e.doctor.ID, p.AssignedDoctorID)
		}
	})

	t.Run("doctor asking for another doctor gets nothing", func(t *testing.T) {
		got, err := e.patients.ListPatients(ctx, patient.ListPatientsQuery{AssignedDoctorID: &e.doctor2.ID}, e.doctor)
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("status filter", func(t *testing.T) {
		discharged := patient.StatusDischarged
		got, err := e.patients.ListPatients(ctx, patient.ListPatientsQuery{Status: &discharged}, e.admin)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, gone.ID, got[0].ID)
	})

	t.Run("search is case-insensitive and trimmed", func(t *testing.T) {
		got, err := e.patients.ListPatients(ctx, patient.ListPatientsQuery{Search: "  " + theirs.LastName[len(theirs.LastName)-4:] + " "}, e.admin)
		require.NoError(t, err)
		require.NotEmpty(t, got)
		assert.Contains(t, patientIDs(got), theirs.ID)

		got, err = e.patients.ListPatients(ctx, patient.ListPatientsQuery{Search: "ADA"}, e.doctor)
		require.NoError(t, err)
		assert.Len(t, got, 2)
		assert.Contains(t, patientIDs(got), mine.ID)
	})

	t.Run("invalid status", func(t *testing.T) {
		bogus := patient.Status("archived")
		_, err := e.patients.ListPatients(ctx, patient.ListPatientsQuery{Status: &bogus}, e.admin)
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("unknown role", func(t *testing.T) {
		_, err := e.patients.ListPatients(ctx, patient.ListPatientsQuery{}, domain.Actor{ID: uuid.New(), Role: "nurse"})
		assert.ErrorIs(t, err, domain.ErrAccessDenied)
	})
}

func patientIDs(ps []*patient.Patient) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(ps))
	for _, p := range ps {
		out = append(out, p.ID)
	}
	return out
}
