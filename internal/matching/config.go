package matching

import "github.com/shopspring/decimal"

// Config holds the engine tolerance thresholds. Defaults carry the values the
// reconciliation rules prescribe; they are knobs so that tests can pin edge
// behavior exactly.
type Config struct {
	// DateToleranceDays bounds the pass-2 calendar-day delta, inclusive,
	// in either direction.
	DateToleranceDays int

	// AmountToleranceAbs is the pass-4 absolute amount delta ceiling in
	// currency units.
	AmountToleranceAbs decimal.Decimal

	// AmountTolerancePct is the pass-4 relative delta ceiling, expressed
	// as a fraction of the invoice total.
	AmountTolerancePct decimal.Decimal
}

func DefaultConfig() Config {
	return Config{
		DateToleranceDays:  7,
		AmountToleranceAbs: decimal.NewFromInt(1),
		AmountTolerancePct: decimal.NewFromFloat(0.005),
	}
}
