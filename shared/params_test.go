package shared

import (
	"testing"
	"time"

	"github.com/peterldowns/testy/assert"
)

func TestSizingValidate(t *testing.T) {
	tests := []struct {
		name    string
		sizing  Sizing
		wantErr bool
	}{
		{
			"valid fixed size",
			Sizing{Mode: FixedSize, Size: 1000},
			false,
		},
		{
			"valid balance ratio",
			Sizing{Mode: BalanceRatio, Ratio: 0.1},
			false,
		},
		{
			"fixed size without a size",
			Sizing{Mode: FixedSize},
			true,
		},
		{
			"fixed size with a ratio set",
			Sizing{Mode: FixedSize, Size: 1000, Ratio: 0.1},
			true,
		},
		{
			"balance ratio with a size set",
			Sizing{Mode: BalanceRatio, Ratio: 0.1, Size: 1000},
			true,
		},
		{
			"balance ratio above one",
			Sizing{Mode: BalanceRatio, Ratio: 1.5},
			true,
		},
		{
			"unknown mode",
			Sizing{Mode: SizingMode(999), Size: 1000},
			true,
		},
	}

	for _, test := range tests {
		err := test.sizing.Validate()
		if (err != nil) != test.wantErr {
			t.Errorf("%s: expected error %v, got %v", test.name, test.wantErr, err)
		}
	}
}

func TestStrategyParamsValidate(t *testing.T) {
	valid := StrategyParams{
		LongThreshold:   0.02,
		ShortThreshold:  0.02,
		StopLossRatio:   0.05,
		Sizing:          Sizing{Mode: FixedSize, Size: 1000},
		Leverage:        5,
		MonitorInterval: time.Second * 5,
	}
	assert.NoError(t, valid.Validate())

	missingThresholds := valid
	missingThresholds.LongThreshold = 0
	missingThresholds.ShortThreshold = 0
	assert.Error(t, missingThresholds.Validate())

	badLeverage := valid
	badLeverage.Leverage = 0
	assert.Error(t, badLeverage.Validate())

	badInterval := valid
	badInterval.MonitorInterval = 0
	assert.Error(t, badInterval.Validate())
}
