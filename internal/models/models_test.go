package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRecurrenceValid(t *testing.T) {
	require.True(t, RecurDaily.Valid())
	require.True(t, RecurWeekly.Valid())
	require.True(t, RecurMonthly.Valid())
	require.False(t, Recurrence("hourly").Valid())
	require.False(t, Recurrence("").Valid())
}

func TestRecurrenceNext(t *testing.T) {
	base := time.Date(2026, 1, 31, 9, 30, 0, 0, time.UTC)

	require.Equal(t, base.AddDate(0, 0, 1), RecurDaily.Next(base))
	require.Equal(t, base.AddDate(0, 0, 7), RecurWeekly.Next(base))

	// Jan 31 + 1 month normalizes to Mar 3 per time.AddDate; the drift is
	// acceptable for survey cadence.
	require.Equal(t, time.Date(2026, 3, 3, 9, 30, 0, 0, time.UTC), RecurMonthly.Next(base))

	for _, r := range []Recurrence{RecurDaily, RecurWeekly, RecurMonthly} {
		require.True(t, r.Next(base).After(base))
	}
}
