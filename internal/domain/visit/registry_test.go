package visit

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLookup map[uuid.UUID]bool

func (f fakeLookup) Exists(_ context.Context, id uuid.UUID) (bool, error) {
	return f[id], nil
}

type failingLookup struct{}

func (failingLookup) Exists(context.Context, uuid.UUID) (bool, error) {
	return false, errors.New("connection reset")
}

func TestRegistryLookup(t *testing.T) {
	r := DefaultRegistry()
	assert.Equal(t, []Type{TypeDischarge, TypeFollowup, TypeInitial}, r.Types())

	for _, typ := range r.Types() {
		v, err := r.Lookup(typ)
		require.NoError(t, err)
		assert.Equal(t, typ, v.Type())
	}

	_, err := r.Lookup("telehealth")
	assert.ErrorIs(t, err, ErrUnknownVisitType)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestInitialVariant(t *testing.T) {
	ctx := context.Background()
	v, err := DefaultRegistry().Lookup(TypeInitial)
	require.NoError(t, err)
	assert.False(t, v.DischargesPatient())

	p, err := v.Decode(json.RawMessage(`{"chief_complaint":"  knee pain ","exam":{"rom":[90,120]}}`))
	require.NoError(t, err)
	require.NoError(t, v.Validate(ctx, p, fakeLookup{}))

	visit := &Visit{}
	require.NoError(t, v.Apply(visit, p))
	require.NotNil(t, visit.ChiefComplaint)
	assert.Equal(t, "knee pain", *visit.ChiefComplaint)
	assert.JSONEq(t, `{"chief_complaint":"  knee pain ","exam":{"rom":[90,120]}}`, string(visit.Payload))

	empty, err := v.Decode(nil)
	require.NoError(t, err)
	err = v.Validate(ctx, empty, fakeLookup{})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestFollowupVariant(t *testing.T) {
	ctx := context.Background()
	v, err := DefaultRegistry().Lookup(TypeFollowup)
	require.NoError(t, err)

	prev := uuid.New()
	p, err := v.Decode(json.RawMessage(`{"previous_visit_id":"` + prev.String() + `"}`))
	require.NoError(t, err)

	require.NoError(t, v.Validate(ctx, p, fakeLookup{prev: true}))

	err = v.Validate(ctx, p, fakeLookup{})
	assert.ErrorIs(t, err, ErrPreviousVisitNotFound)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	err = v.Validate(ctx, FollowupPayload{}, fakeLookup{})
	assert.ErrorIs(t, err, domain.ErrValidation)

	err = v.Validate(ctx, p, failingLookup{})
	require.Error(t, err)
	assert.False(t, domain.IsKnown(err), "storage failures are not caller errors")

	visit := &Visit{}
	require.NoError(t, v.Apply(visit, p))
	require.NotNil(t, visit.PreviousVisitID)
	assert.Equal(t, prev, *visit.PreviousVisitID)
}

func TestDischargeVariant(t *testing.T) {
	v, err := DefaultRegistry().Lookup(TypeDischarge)
	require.NoError(t, err)
	assert.True(t, v.DischargesPatient())

	p, err := v.Decode(nil)
	require.NoError(t, err)
	require.NoError(t, v.Validate(context.Background(), p, fakeLookup{}))

	err = v.Validate(context.Background(), InitialPayload{ChiefComplaint: "x"}, fakeLookup{})
	assert.ErrorIs(t, err, ErrPayloadMismatch)
}

func TestDecodeRejectsMalformedPayload(t *testing.T) {
	v, err := DefaultRegistry().Lookup(TypeInitial)
	require.NoError(t, err)

	_, err = v.Decode(json.RawMessage(`{"chief_complaint": 42}`))
	assert.ErrorIs(t, err, domain.ErrValidation)
}
