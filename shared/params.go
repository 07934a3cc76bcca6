package shared

import (
	"errors"
	"fmt"
	"time"
)

// SizingMode represents the position sizing mode for a strategy.
type SizingMode int

const (
	// FixedSize sizes every position from a fixed notional amount.
	FixedSize SizingMode = iota
	// BalanceRatio sizes every position from a ratio of the current balance.
	BalanceRatio
)

// String stringifies the provided sizing mode.
func (m SizingMode) String() string {
	switch m {
	case FixedSize:
		return "fixed size"
	case BalanceRatio:
		return "balance ratio"
	default:
		return "unknown"
	}
}

// Sizing represents a tagged position sizing rule. Exactly one of the value
// fields applies depending on the mode.
type Sizing struct {
	Mode  SizingMode
	Size  float64
	Ratio float64
}

// Validate asserts the sizing rule has sane inputs.
func (s *Sizing) Validate() error {
	switch s.Mode {
	case FixedSize:
		if s.Size <= 0 {
			return fmt.Errorf("fixed position size must be positive: %f", s.Size)
		}
		if s.Ratio != 0 {
			return fmt.Errorf("position ratio cannot be set in fixed size mode")
		}
	case BalanceRatio:
		if s.Ratio <= 0 || s.Ratio > 1 {
			return fmt.Errorf("position ratio must be in (0, 1]: %f", s.Ratio)
		}
		if s.Size != 0 {
			return fmt.Errorf("position size cannot be set in balance ratio mode")
		}
	default:
		return fmt.Errorf("unknown sizing mode: %d", s.Mode)
	}

	return nil
}

// StrategyParams represents the parameters of a hedge-grid strategy.
type StrategyParams struct {
	// LongThreshold is the gain ratio at which a long closes and reopens.
	LongThreshold float64
	// ShortThreshold is the drop ratio at which a short closes and reopens.
	ShortThreshold float64
	// StopLossRatio is the default stop loss ratio, overridden per position
	// by an independent stop loss price.
	StopLossRatio float64
	// Sizing is the position sizing rule.
	Sizing Sizing
	// Leverage is the leverage multiplier applied to position quantities.
	Leverage int
	// MonitorInterval is the position evaluation interval.
	MonitorInterval time.Duration
}

// Validate asserts the strategy parameters have sane inputs.
func (p *StrategyParams) Validate() error {
	var errs error

	if p.LongThreshold <= 0 {
		errs = errors.Join(errs, fmt.Errorf("long threshold must be positive: %f", p.LongThreshold))
	}
	if p.ShortThreshold <= 0 {
		errs = errors.Join(errs, fmt.Errorf("short threshold must be positive: %f", p.ShortThreshold))
	}
	if p.StopLossRatio <= 0 {
		errs = errors.Join(errs, fmt.Errorf("stop loss ratio must be positive: %f", p.StopLossRatio))
	}
	if p.Leverage < 1 {
		errs = errors.Join(errs, fmt.Errorf("leverage must be at least 1: %d", p.Leverage))
	}
	if p.MonitorInterval <= 0 {
		errs = errors.Join(errs, fmt.Errorf("monitor interval must be positive: %s", p.MonitorInterval))
	}
	if err := p.Sizing.Validate(); err != nil {
		errs = errors.Join(errs, err)
	}

	return errs
}
