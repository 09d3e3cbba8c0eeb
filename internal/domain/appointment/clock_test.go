package appointment

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClock(t *testing.T) {
	tests := []struct {
		in      string
		want    ClockTime
		wantErr bool
	}{
		{in: "00:00", want: 0},
		{in: "09:30", want: Clock(9, 30)},
		{in: "23:59", want: Clock(23, 59)},
		{in: "24:00", want: minutesPerDay},
		{in: "24:01", wantErr: true},
		{in: "9:30", wantErr: true},
		{in: "12:60", wantErr: true},
		{in: "noon", wantErr: true},
		{in: "", wantErr: true},
		{in: "09:5x", wantErr: true},
		{in: "+9:30", wantErr: true},
		{in: "9:5 0", wantErr: true},
		{in: "09:300", wantErr: true},
		{in: "09-30", wantErr: true},
		{in: "24:00 ", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseClock(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.in, got.String())
		})
	}
}

func TestClockTimeJSON(t *testing.T) {
	var tr TimeRange
	require.NoError(t, json.Unmarshal([]byte(`{"start":"09:00","end":"09:45"}`), &tr))
	assert.Equal(t, TimeRange{Start: Clock(9, 0), End: Clock(9, 45)}, tr)

	b, err := json.Marshal(tr)
	require.NoError(t, err)
	assert.JSONEq(t, `{"start":"09:00","end":"09:45"}`, string(b))

	assert.Error(t, json.Unmarshal([]byte(`{"start":"25:00","end":"26:00"}`), &tr))
}

func TestTimeRangeValidate(t *testing.T) {
	valid := []TimeRange{
		{Start: Clock(9, 0), End: Clock(9, 30)},
		{Start: 0, End: minutesPerDay},
	}
	for _, tr := range valid {
		assert.NoError(t, tr.Validate(), tr.String())
	}

	invalid := []TimeRange{
		{Start: Clock(10, 0), End: Clock(10, 0)},
		{Start: Clock(10, 0), End: Clock(9, 0)},
		{Start: -1, End: Clock(1, 0)},
		{Start: Clock(23, 0), End: minutesPerDay + 1},
	}
	for _, tr := range invalid {
		err := tr.Validate()
		assert.ErrorIs(t, err, ErrInvalidTimeRange, tr.String())
		assert.ErrorIs(t, err, domain.ErrValidation, tr.String())
	}
}

func TestTimeRangeOverlaps(t *testing.T) {
	base := TimeRange{Start: Clock(9, 0), End: Clock(10, 0)}
	tests := []struct {
		name  string
		other TimeRange
		want  bool
	}{
		{"identical", base, true},
		{"contained", TimeRange{Start: Clock(9, 15), End: Clock(9, 45)}, true},
		{"containing", TimeRange{Start: Clock(8, 0), End: Clock(11, 0)}, true},
		{"overlaps start", TimeRange{Start: Clock(8, 30), End: Clock(9, 1)}, true},
		{"overlaps end", TimeRange{Start: Clock(9, 59), End: Clock(10, 30)}, true},
		{"touches before", TimeRange{Start: Clock(8, 0), End: Clock(9, 0)}, false},
		{"touches after", TimeRange{Start: Clock(10, 0), End: Clock(11, 0)}, false},
		{"disjoint", TimeRange{Start: Clock(13, 0), End: Clock(14, 0)}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, base.Overlaps(tt.other))
			assert.Equal(t, tt.want, tt.other.Overlaps(base), "overlap must be symmetric")
		})
	}
}

func TestDateOf(t *testing.T) {
	loc := time.FixedZone("UTC+5", 5*3600)
	got := DateOf(time.Date(2024, 3, 1, 2, 30, 0, 0, loc))
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), got)

	d, err := ParseDate("2024-03-01")
	require.NoError(t, err)
	assert.True(t, d.Equal(got))
	assert.Equal(t, "2024-03-01", FormatDate(d))

	_, err = ParseDate("03/01/2024")
	assert.Error(t, err)
}

func TestConflictErrorKind(t *testing.T) {
	var err error = &ConflictError{}
	assert.True(t, errors.Is(err, ErrAppointmentConflict))
	assert.True(t, errors.Is(err, domain.ErrConflict))
	assert.NotContains(t, err.Error(), "existing appointment")
}
