package shared

import (
	"testing"

	"github.com/peterldowns/testy/assert"
)

func TestTimeframeString(t *testing.T) {
	tests := []struct {
		name      string
		timeframe Timeframe
		want      string
	}{
		{
			"five minute timeframe",
			FiveMinute,
			"5m",
		},
		{
			"one hour timeframe",
			OneHour,
			"1h",
		},
		{
			"one day timeframe",
			OneDay,
			"1d",
		},
		{
			"unknown timeframe",
			Timeframe(999),
			"unknown",
		},
	}

	for _, test := range tests {
		str := test.timeframe.String()
		if str != test.want {
			t.Errorf("%s: expected %v, got %v", test.name, test.want, str)
		}
	}
}

func TestParseTimeframe(t *testing.T) {
	timeframe, err := ParseTimeframe("5m")
	assert.NoError(t, err)
	assert.Equal(t, timeframe, FiveMinute)

	timeframe, err = ParseTimeframe("1h")
	assert.NoError(t, err)
	assert.Equal(t, timeframe, OneHour)

	timeframe, err = ParseTimeframe("1d")
	assert.NoError(t, err)
	assert.Equal(t, timeframe, OneDay)

	_, err = ParseTimeframe("4h")
	assert.Error(t, err)
}
