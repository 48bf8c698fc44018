// Package simulation runs Monte Carlo batches of the combat sequence and
// aggregates the per-trial outcomes.
package simulation

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/cory-johannsen/conquest/internal/game/combat"
	"github.com/cory-johannsen/conquest/internal/game/unit"
	"github.com/cory-johannsen/conquest/internal/stats"
)

// Iteration bounds enforced by the input layer.
const (
	MinIterations     = 1000
	MaxIterations     = 100000
	DefaultIterations = 10000
)

// ErrPrecondition is wrapped by every error Run returns for invalid input.
var ErrPrecondition = errors.New("simulation: precondition violated")

// Config controls one simulation run.
type Config struct {
	Iterations int `json:"iterations"`
	// Seed selects the deterministic LCG source; nil draws unseeded dice.
	Seed *uint32 `json:"seed,omitempty"`
	// RecordPhaseDetails adds per-phase means and distributions to Results.
	RecordPhaseDetails bool `json:"recordPhaseDetails"`
}

// DefaultConfig returns the stock configuration: 10000 unseeded iterations.
func DefaultConfig() Config {
	return Config{Iterations: DefaultIterations}
}

// Statistics holds one summary per reported metric.
type Statistics struct {
	Damage          stats.Summary `json:"damage"`
	StandsKilled    stats.Summary `json:"standsKilled"`
	MoraleWounds    stats.Summary `json:"moraleWounds"`
	TotalCasualties stats.Summary `json:"totalCasualties"`
}

// Distributions holds the empirical distributions rendered by the caller.
type Distributions struct {
	Damage          stats.Distribution `json:"damage"`
	StandsKilled    stats.Distribution `json:"standsKilled"`
	TotalCasualties stats.Distribution `json:"totalCasualties"`
}

// PhaseMetric is the mean and distribution of one per-phase quantity.
type PhaseMetric struct {
	Mean         float64            `json:"mean"`
	Distribution stats.Distribution `json:"distribution"`
}

// PhaseDetails is the optional per-phase breakdown of a run.
type PhaseDetails struct {
	AttackHits   PhaseMetric `json:"attackHits"`
	HitsBlocked  PhaseMetric `json:"hitsBlocked"`
	Damage       PhaseMetric `json:"damage"`
	MoraleWounds PhaseMetric `json:"moraleWounds"`
}

// Results is the aggregated output of a run. It echoes the inputs so that a
// caller can render it without holding on to them.
type Results struct {
	RunID         uuid.UUID     `json:"runId"`
	Config        Config        `json:"config"`
	Attacker      unit.Attacker `json:"attacker"`
	Defender      unit.Defender `json:"defender"`
	Statistics    Statistics    `json:"statistics"`
	Distributions Distributions `json:"distributions"`
	PhaseDetails  *PhaseDetails `json:"phaseDetails,omitempty"`
	Elapsed       time.Duration `json:"elapsedNs"`
	CompletedAt   time.Time     `json:"completedAt"`
}

// SampleSet holds the per-trial scalars of a run as parallel slices.
//
// Invariant: every slice has length Len().
type SampleSet struct {
	DamageDealt     []int
	StandsKilled    []int
	MoraleWounds    []int
	TotalCasualties []int
	AttackHits      []int
	HitsBlocked     []int
}

func newSampleSet(capacity int) *SampleSet {
	return &SampleSet{
		DamageDealt:     make([]int, 0, capacity),
		StandsKilled:    make([]int, 0, capacity),
		MoraleWounds:    make([]int, 0, capacity),
		TotalCasualties: make([]int, 0, capacity),
		AttackHits:      make([]int, 0, capacity),
		HitsBlocked:     make([]int, 0, capacity),
	}
}

// Append records one trial.
func (s *SampleSet) Append(o combat.Outcome) {
	s.DamageDealt = append(s.DamageDealt, o.DamageDealt)
	s.StandsKilled = append(s.StandsKilled, o.StandsKilled)
	s.MoraleWounds = append(s.MoraleWounds, o.MoraleWounds)
	s.TotalCasualties = append(s.TotalCasualties, o.TotalCasualties)
	s.AttackHits = append(s.AttackHits, o.AttackHits)
	s.HitsBlocked = append(s.HitsBlocked, o.HitsBlocked)
}

// Len returns the number of recorded trials.
func (s *SampleSet) Len() int { return len(s.DamageDealt) }
