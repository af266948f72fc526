package dice

import "go.uber.org/zap"

// Roller wraps a Source and logger to provide logged percentile checks.
// Every check is logged at debug level with label, chance, roll and outcome.
type Roller struct {
	src    Source
	logger *zap.Logger
}

// NewRoller creates a Roller that rolls with src and logs each check to logger.
//
// Precondition: src and logger must be non-nil.
func NewRoller(src Source, logger *zap.Logger) *Roller {
	return &Roller{src: src, logger: logger}
}

// Percent rolls a d100 and succeeds when the roll is at most chance.
// A chance <= 0 never succeeds; a chance >= 100 always succeeds.
//
// Postcondition: result.Roll in [1, 100]; result.Success == (Roll <= Chance).
func (r *Roller) Percent(label string, chance float64) Check {
	roll := r.src.Intn(100) + 1
	c := Check{
		Label:   label,
		Chance:  chance,
		Roll:    roll,
		Success: float64(roll) <= chance,
	}
	r.logger.Debug("percentile check",
		zap.String("label", label),
		zap.Float64("chance", chance),
		zap.Int("roll", roll),
		zap.Bool("success", c.Success),
	)
	return c
}
