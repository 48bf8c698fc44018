package dice

import "go.uber.org/zap"

// Roller draws dice from a Source, counting every draw and logging batches
// at debug level.
//
// A Roller is owned by one simulation run and is not safe for concurrent use.
type Roller struct {
	src    Source
	logger *zap.Logger
	draws  int
}

// NewRoller creates a Roller that draws from src and logs to logger.
//
// Precondition: src must be non-nil. A nil logger disables logging.
func NewRoller(src Source, logger *zap.Logger) *Roller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Roller{src: src, logger: logger}
}

// D6 draws one die in [1, 6].
func (r *Roller) D6() int {
	r.draws++
	return r.src.Intn(Sides) + 1
}

// D6N draws count dice in draw order. A count of zero yields an empty slice
// and consumes no randomness.
//
// Precondition: count >= 0.
// Postcondition: len(result) == count; every element is in [1, 6].
func (r *Roller) D6N(count int) []int {
	if count < 0 {
		panic("dice: D6N precondition violated: count must be >= 0")
	}
	rolls := make([]int, count)
	for i := range rolls {
		rolls[i] = r.D6()
	}
	if ce := r.logger.Check(zap.DebugLevel, "dice batch"); ce != nil {
		ce.Write(zap.Int("count", count), zap.Ints("rolls", rolls))
	}
	return rolls
}

// Draws reports how many dice this Roller has drawn so far.
func (r *Roller) Draws() int { return r.draws }

// Roll evaluates a parsed expression against the Roller's source.
//
// Postcondition: len(result.Dice) == expr.Count; result.Total() == sum(Dice)+Modifier.
func (r *Roller) Roll(expr Expression) RollResult {
	rolled := make([]int, expr.Count)
	for i := range rolled {
		r.draws++
		rolled[i] = r.src.Intn(expr.Sides) + 1
	}
	result := RollResult{Expression: expr.Raw, Dice: rolled, Modifier: expr.Modifier}
	if ce := r.logger.Check(zap.DebugLevel, "dice roll"); ce != nil {
		ce.Write(
			zap.String("expression", result.Expression),
			zap.Ints("dice", result.Dice),
			zap.Int("modifier", result.Modifier),
			zap.Int("total", result.Total()),
		)
	}
	return result
}
