package dates_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"practice-tracker/internal/dates"
)

func TestParseDate(t *testing.T) {
	loc := time.UTC

	dotted, err := dates.ParseDate("15.07.2025", loc)
	require.NoError(t, err)
	assert.Equal(t, "2025-07-15", dates.FormatDate(dotted))

	iso, err := dates.ParseDate("2025-07-15", loc)
	require.NoError(t, err)
	assert.Equal(t, dotted, iso)

	unpadded, err := dates.ParseDate("1.7.2025", loc)
	require.NoError(t, err)
	assert.Equal(t, "2025-07-01", dates.FormatDate(unpadded))

	trimmed, err := dates.ParseDate("  2025-07-15  ", loc)
	require.NoError(t, err)
	assert.Equal(t, iso, trimmed)
}

func TestParseDateRejectsOtherFormats(t *testing.T) {
	for _, raw := range []string{"15/07/2025", "July 15, 2025", "2025.07.15", "15-07-2025", ""} {
		_, err := dates.ParseDate(raw, time.UTC)
		assert.Error(t, err, "accepted %q", raw)
	}
}

func TestParseDateTime(t *testing.T) {
	at, err := dates.ParseDateTime("2025-07-20 14:30", time.UTC)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 7, 20, 14, 30, 0, 0, time.UTC), at)

	_, err = dates.ParseDateTime("20.07.2025 14:30", time.UTC)
	assert.Error(t, err)
}

func TestInitialReminder(t *testing.T) {
	endDate := time.Date(2025, 7, 15, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2025, 7, 8, 9, 0, 0, 0, time.UTC), dates.InitialReminder(endDate))

	// Crossing a month boundary.
	endDate = time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2025, 2, 24, 9, 0, 0, 0, time.UTC), dates.InitialReminder(endDate))
}
