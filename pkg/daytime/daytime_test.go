package daytime

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimeOfDay(t *testing.T) {
	tod, err := ParseTimeOfDay("08:30")
	require.NoError(t, err)
	assert.Equal(t, "08:30:00", tod.String())

	tod, err = ParseTimeOfDay("13:05:09")
	require.NoError(t, err)
	assert.Equal(t, TimeOfDay(13*3600+5*60+9), tod)

	_, err = ParseTimeOfDay("25:00")
	assert.Error(t, err)
}

func TestWindowOverlapIsHalfOpen(t *testing.T) {
	booked := Window{Start: MustParse("08:30"), End: MustParse("09:30")}

	assert.True(t, booked.Overlaps(Window{Start: MustParse("09:00"), End: MustParse("10:00")}))
	assert.True(t, booked.Overlaps(Window{Start: MustParse("08:00"), End: MustParse("11:00")}))
	assert.False(t, booked.Overlaps(Window{Start: MustParse("09:30"), End: MustParse("10:30")}))
	assert.False(t, booked.Overlaps(Window{Start: MustParse("07:30"), End: MustParse("08:30")}))
}

func TestNewWindowRejectsInvertedRange(t *testing.T) {
	_, err := NewWindow(MustParse("10:00"), MustParse("09:00"))
	assert.Error(t, err)
	_, err = NewWindow(MustParse("10:00"), MustParse("10:00"))
	assert.Error(t, err)
}

func TestScanVariants(t *testing.T) {
	var tod TimeOfDay
	require.NoError(t, tod.Scan([]byte("07:15:00.000000")))
	assert.Equal(t, "07:15:00", tod.String())

	require.NoError(t, tod.Scan(time.Date(0, 1, 1, 9, 45, 0, 0, time.UTC)))
	assert.Equal(t, "09:45:00", tod.String())

	assert.Error(t, tod.Scan(42))
}

func TestJSONRoundTrip(t *testing.T) {
	payload, err := json.Marshal(Window{Start: MustParse("09:00"), End: MustParse("10:00")})
	require.NoError(t, err)
	assert.JSONEq(t, `{"start":"09:00:00","end":"10:00:00"}`, string(payload))

	var w Window
	require.NoError(t, json.Unmarshal([]byte(`{"start":"11:00","end":"11:45"}`), &w))
	assert.Equal(t, 45*time.Minute, w.Duration())
}

func TestWeekBounds(t *testing.T) {
	date, err := ParseDate("2025-06-12") // Thursday
	require.NoError(t, err)
	start, end := WeekBounds(date)
	assert.Equal(t, "2025-06-09", start.Format(DateLayout))
	assert.Equal(t, "2025-06-16", end.Format(DateLayout))
}
