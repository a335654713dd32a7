package model

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimeOfDay(t *testing.T) {
	cases := []struct {
		in   string
		want TimeOfDay
	}{
		{"09:30:00", NewTimeOfDay(9, 30, 0)},
		{"09:30", NewTimeOfDay(9, 30, 0)},
		{"23:59:59", NewTimeOfDay(23, 59, 59)},
		{"3:04PM", NewTimeOfDay(15, 4, 0)},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseTimeOfDay(tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestParseTimeOfDayRejectsGarbage(t *testing.T) {
	for _, in := range []string{"", "garbage", "25:00", "9h30"} {
		_, err := ParseTimeOfDay(in)
		var perr *TimeParseError
		require.Error(t, err, in)
		assert.True(t, errors.As(err, &perr), in)
		assert.Equal(t, in, perr.Value)
	}
}

func TestTimeOfDayString(t *testing.T) {
	assert.Equal(t, "09:05:00", NewTimeOfDay(9, 5, 0).String())
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2024-03-05")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), d)
	assert.Equal(t, "2024-03-05", FormatDate(d))

	_, err = ParseDate("03/05/2024")
	assert.Error(t, err)
}

func TestLocalTimeJSON(t *testing.T) {
	ts := LocalTime(time.Date(2024, 3, 5, 8, 0, 1, 0, time.Local))
	data, err := json.Marshal(ts)
	require.NoError(t, err)
	assert.Equal(t, `"2024-03-05 08:00:01"`, string(data))

	var back LocalTime
	require.NoError(t, json.Unmarshal(data, &back))
	assert.True(t, time.Time(ts).Equal(time.Time(back)))
}
