package simulation

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cory-johannsen/conquest/internal/game/combat"
	"github.com/cory-johannsen/conquest/internal/game/dice"
	"github.com/cory-johannsen/conquest/internal/game/unit"
	"github.com/cory-johannsen/conquest/internal/stats"
)

// Simulator runs combat batches. It holds no per-run state: every call to
// Run builds its own Roller, so one Simulator may serve concurrent runs once
// its rule registry is fully populated.
type Simulator struct {
	rules     *combat.RuleRegistry
	logger    *zap.Logger
	newSource func(seed *uint32) dice.Source
	now       func() time.Time
}

// Option configures a Simulator.
type Option func(*Simulator)

// WithRules attaches an extension rule registry.
func WithRules(rules *combat.RuleRegistry) Option {
	return func(s *Simulator) { s.rules = rules }
}

// WithClock replaces time.Now for elapsed-time and completion stamps.
func WithClock(now func() time.Time) Option {
	return func(s *Simulator) { s.now = now }
}

// WithSourceFactory replaces the dice source constructor.
func WithSourceFactory(f func(seed *uint32) dice.Source) Option {
	return func(s *Simulator) { s.newSource = f }
}

// NewSimulator creates a Simulator.
//
// Precondition: logger must be non-nil.
func NewSimulator(logger *zap.Logger, opts ...Option) *Simulator {
	s := &Simulator{
		logger:    logger,
		newSource: defaultSource,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func defaultSource(seed *uint32) dice.Source {
	if seed == nil {
		return dice.NewCryptoSource()
	}
	return dice.NewSeededSource(*seed)
}

// Run resolves cfg.Iterations trials of a against d and aggregates them.
//
// Run is synchronous and atomic: it either returns complete Results or an
// error wrapping ErrPrecondition before any trial is resolved.
//
// Postcondition: on success every summary satisfies Min <= Mean <= Max.
func (s *Simulator) Run(a unit.Attacker, d unit.Defender, cfg Config) (Results, error) {
	start := s.now()
	samples, err := s.Sample(a, d, cfg)
	if err != nil {
		return Results{}, err
	}

	res := Results{
		RunID:    uuid.New(),
		Config:   cfg,
		Attacker: a,
		Defender: d,
		Statistics: Statistics{
			Damage:          stats.Calculate(samples.DamageDealt),
			StandsKilled:    stats.Calculate(samples.StandsKilled),
			MoraleWounds:    stats.Calculate(samples.MoraleWounds),
			TotalCasualties: stats.Calculate(samples.TotalCasualties),
		},
		Distributions: Distributions{
			Damage:          stats.BuildDistribution(samples.DamageDealt),
			StandsKilled:    stats.BuildDistribution(samples.StandsKilled),
			TotalCasualties: stats.BuildDistribution(samples.TotalCasualties),
		},
	}
	if cfg.RecordPhaseDetails {
		res.PhaseDetails = &PhaseDetails{
			AttackHits:   phaseMetric(samples.AttackHits),
			HitsBlocked:  phaseMetric(samples.HitsBlocked),
			Damage:       phaseMetric(samples.DamageDealt),
			MoraleWounds: phaseMetric(samples.MoraleWounds),
		}
	}

	res.CompletedAt = s.now()
	res.Elapsed = res.CompletedAt.Sub(start)

	s.logger.Info("simulation complete",
		zap.Stringer("run_id", res.RunID),
		zap.String("attacker", a.Name),
		zap.String("defender", d.Name),
		zap.Int("iterations", cfg.Iterations),
		zap.Float64("mean_damage", res.Statistics.Damage.Mean),
		zap.Float64("mean_casualties", res.Statistics.TotalCasualties.Mean),
		zap.Duration("elapsed", res.Elapsed),
	)
	return res, nil
}

// Sample resolves cfg.Iterations trials and returns the raw per-trial
// scalars without aggregating them.
//
// Postcondition: on success samples.Len() == cfg.Iterations.
func (s *Simulator) Sample(a unit.Attacker, d unit.Defender, cfg Config) (*SampleSet, error) {
	if err := CheckPreconditions(a, d, cfg); err != nil {
		return nil, err
	}

	fields := []zap.Field{
		zap.Int("iterations", cfg.Iterations),
		zap.Bool("seeded", cfg.Seed != nil),
		zap.Stringers("attacker_rules", a.ActiveRules()),
		zap.Stringers("defender_rules", d.ActiveRules()),
	}
	if cfg.Seed != nil {
		fields = append(fields, zap.Uint32("seed", *cfg.Seed))
	}
	s.logger.Debug("simulation starting", fields...)

	roller := dice.NewRoller(s.newSource(cfg.Seed), s.logger)
	samples := newSampleSet(cfg.Iterations)
	for i := 0; i < cfg.Iterations; i++ {
		res := combat.Resolve(a, d, roller, s.rules)
		samples.Append(res.Outcome(d))
	}
	return samples, nil
}

func phaseMetric(samples []int) PhaseMetric {
	return PhaseMetric{
		Mean:         stats.Calculate(samples).Mean,
		Distribution: stats.BuildDistribution(samples),
	}
}

// CheckPreconditions rejects inputs the combat engine cannot resolve: a
// defender with no health, negative dice counts, or a non-positive
// iteration count. Range checks beyond these belong to the input layer.
//
// Postcondition: Returns nil, or an error wrapping ErrPrecondition that names
// every offending field.
func CheckPreconditions(a unit.Attacker, d unit.Defender, cfg Config) error {
	var errs []string
	if d.Health < 1 {
		errs = append(errs, fmt.Sprintf("defender.health must be >= 1, got %d", d.Health))
	}
	if cfg.Iterations < 1 {
		errs = append(errs, fmt.Sprintf("config.iterations must be >= 1, got %d", cfg.Iterations))
	}
	nonNegative := []struct {
		field string
		value int
	}{
		{"attacker.attacks", a.Attacks},
		{"attacker.stands", a.Stands},
		{"attacker.extra_attacks", a.ExtraAttacks},
		{"attacker.cleave", a.Cleave},
		{"defender.hardened", d.Hardened},
		{"defender.tenacious", d.Tenacious},
		{"defender.indomitable", d.Indomitable},
	}
	for _, f := range nonNegative {
		if f.value < 0 {
			errs = append(errs, fmt.Sprintf("%s must be >= 0, got %d", f.field, f.value))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %s", ErrPrecondition, strings.Join(errs, "; "))
	}
	return nil
}
