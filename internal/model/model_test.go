package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{in: "time_in", want: ModeTimeIn},
		{in: "TIME_OUT", want: ModeTimeOut},
		{in: " time_in ", want: ModeTimeIn},
		{in: "", want: ModeUnset},
		{in: "lunch", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMode(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDateOfUsesUTCCalendarDay(t *testing.T) {
	loc := time.FixedZone("UTC+8", 8*3600)
	ts := time.Date(2024, 9, 2, 6, 30, 0, 0, loc) // 2024-09-01 22:30 UTC
	assert.Equal(t, "2024-09-01", DateOf(ts).String())
}

func TestAttendanceRecordJSONColumns(t *testing.T) {
	rec := AttendanceRecord{
		StudentID: "s-1",
		Date:      DateOf(time.Date(2024, 9, 1, 8, 0, 0, 0, time.UTC)),
		Timestamp: time.Date(2024, 9, 1, 8, 0, 0, 0, time.UTC),
		Mode:      ModeTimeIn,
		Status:    StatusPresent,
	}
	raw, err := json.Marshal(rec)
	require.NoError(t, err)
	assert.JSONEq(t, `{"student_id":"s-1","date":"2024-09-01","time":"2024-09-01T08:00:00Z","type":"time_in","status":"present"}`, string(raw))
}

func TestDateUnmarshalAcceptsTimestamps(t *testing.T) {
	var d Date
	require.NoError(t, json.Unmarshal([]byte(`"2024-09-01T13:14:15+00:00"`), &d))
	assert.Equal(t, "2024-09-01", d.String())

	require.NoError(t, json.Unmarshal([]byte(`""`), &d))
	assert.True(t, d.IsZero())

	assert.Error(t, json.Unmarshal([]byte(`"yesterday"`), &d))
}

func TestRowIDAcceptsNumbersAndStrings(t *testing.T) {
	var entry AttendanceEntry
	require.NoError(t, json.Unmarshal([]byte(`{"id":42,"student_id":"7c1e","date":"2024-09-01","time":"2024-09-01T08:00:00Z","type":"time_out","status":"Present","student":{"id":7,"name":"Ana"}}`), &entry))
	assert.Equal(t, RowID("42"), entry.ID)
	assert.Equal(t, RowID("7c1e"), entry.StudentID)
	assert.Equal(t, ModeTimeOut, entry.Mode)
	require.NotNil(t, entry.Student)
	assert.Equal(t, RowID("7"), entry.Student.ID)

	var id RowID
	assert.Error(t, json.Unmarshal([]byte(`{}`), &id))
}
