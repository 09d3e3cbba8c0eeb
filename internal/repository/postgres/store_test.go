package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/domain/appointment"
	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/domain/patient"
	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/store"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Discard,
	})
	require.NoError(t, err)
	return New(db), mock
}

func q(sql string) string { return regexp.QuoteMeta(sql) }

func TestGetByIDTranslatesNotFound(t *testing.T) {
	st, mock := newMockStore(t)
	ctx := context.Background()

	mock.ExpectQuery(q(`SELECT * FROM "clinical"."appointments"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	_, err := st.Appointments().GetByID(ctx, uuid.New())
	assert.ErrorIs(t, err, appointment.ErrAppointmentNotFound)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	mock.ExpectQuery(q(`SELECT * FROM "clinical"."patients"`)).
		WillReturnError(errors.New("connection refused"))
	_, err = st.Patients().GetByID(ctx, uuid.New())
	require.Error(t, err)
	assert.False(t, domain.IsKnown(err))

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateAppointmentMapsExclusionViolation(t *testing.T) {
	st, mock := newMockStore(t)
	a := &appointment.Appointment{
		ID:        uuid.New(),
		PatientID: uuid.New(),
		DoctorID:  uuid.New(),
		Date:      time.Date(2024, 5, 7, 15, 30, 0, 0, time.UTC),
		Time:      appointment.TimeRange{Start: appointment.Clock(9, 0), End: appointment.Clock(9, 30)},
		Status:    appointment.StatusScheduled,
	}

	mock.ExpectExec(q(`INSERT INTO "clinical"."appointments"`)).
		WillReturnError(&pgconn.PgError{Code: codeExclusionViolation, ConstraintName: "appointments_no_overlap"})

	err := st.Appointments().Create(context.Background(), a)
	var conflict *appointment.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, uuid.Nil, conflict.ExistingID)
	assert.ErrorIs(t, err, domain.ErrConflict)
	assert.Equal(t, time.Date(2024, 5, 7, 0, 0, 0, 0, time.UTC), a.Date, "date is truncated before insert")

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLockScheduleKeysOnDoctorAndDay(t *testing.T) {
	st, mock := newMockStore(t)
	doctor := uuid.New()

	mock.ExpectExec(q(`SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`)).
		WithArgs(doctor.String() + "/2024-05-07").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := st.Appointments().LockSchedule(context.Background(), doctor, time.Date(2024, 5, 7, 18, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteMissingAppointment(t *testing.T) {
	st, mock := newMockStore(t)

	mock.ExpectExec(q(`DELETE FROM "clinical"."appointments"`)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := st.Appointments().Delete(context.Background(), uuid.New())
	assert.ErrorIs(t, err, appointment.ErrAppointmentNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkDischargedMissingPatient(t *testing.T) {
	st, mock := newMockStore(t)

	mock.ExpectExec(q(`UPDATE "clinical"."patients"`)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := st.Patients().MarkDischarged(context.Background(), uuid.New(), time.Now())
	assert.ErrorIs(t, err, patient.ErrPatientNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAtomicCommitsAndRollsBack(t *testing.T) {
	st, mock := newMockStore(t)
	ctx := context.Background()
	id := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec(q(`UPDATE "clinical"."patients"`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := st.Atomic(ctx, func(tx store.Store) error {
		return tx.Atomic(ctx, func(inner store.Store) error {
			return inner.Patients().MarkDischarged(ctx, id, time.Now())
		})
	})
	require.NoError(t, err)

	boom := errors.New("boom")
	mock.ExpectBegin()
	mock.ExpectExec(q(`UPDATE "clinical"."patients"`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectRollback()

	err = st.Atomic(ctx, func(tx store.Store) error {
		if err := tx.Patients().MarkDischarged(ctx, id, time.Now()); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	require.NoError(t, mock.ExpectationsWereMet())
}
