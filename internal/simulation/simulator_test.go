package simulation_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/conquest/internal/game/combat"
	"github.com/cory-johannsen/conquest/internal/game/dice"
	"github.com/cory-johannsen/conquest/internal/game/unit"
	"github.com/cory-johannsen/conquest/internal/simulation"
	"github.com/cory-johannsen/conquest/internal/stats"
)

type fixedSource struct{ face int }

func (f *fixedSource) Intn(n int) int { return f.face - 1 }

func fixedFaces(face int) simulation.Option {
	return simulation.WithSourceFactory(func(*uint32) dice.Source { return &fixedSource{face: face} })
}

func seed(v uint32) *uint32 { return &v }

func TestRun_SeededIsDeterministic(t *testing.T) {
	sim := simulation.NewSimulator(zaptest.NewLogger(t))
	a, d := unit.DefaultAttacker(), unit.DefaultDefender()
	cfg := simulation.Config{Iterations: 1000, Seed: seed(42)}

	first, err := sim.Run(a, d, cfg)
	require.NoError(t, err)
	second, err := sim.Run(a, d, cfg)
	require.NoError(t, err)

	assert.Equal(t, first.Statistics, second.Statistics)
	assert.Equal(t, first.Distributions, second.Distributions)
	assert.NotEqual(t, first.RunID, second.RunID)
}

func TestRun_DifferentSeedsDiffer(t *testing.T) {
	sim := simulation.NewSimulator(zap.NewNop())
	a, d := unit.DefaultAttacker(), unit.DefaultDefender()
	first, err := sim.Run(a, d, simulation.Config{Iterations: 2000, Seed: seed(1)})
	require.NoError(t, err)
	second, err := sim.Run(a, d, simulation.Config{Iterations: 2000, Seed: seed(2)})
	require.NoError(t, err)
	assert.NotEqual(t, first.Distributions.Damage, second.Distributions.Damage)
}

func TestSample_LengthMatchesIterations(t *testing.T) {
	sim := simulation.NewSimulator(zap.NewNop())
	samples, err := sim.Sample(unit.DefaultAttacker(), unit.DefaultDefender(), simulation.Config{Iterations: 1234, Seed: seed(7)})
	require.NoError(t, err)
	assert.Equal(t, 1234, samples.Len())
	for _, s := range [][]int{samples.StandsKilled, samples.MoraleWounds, samples.TotalCasualties, samples.AttackHits, samples.HitsBlocked} {
		assert.Len(t, s, 1234)
	}
}

func TestRun_Property_SummariesOrdered(t *testing.T) {
	sim := simulation.NewSimulator(zap.NewNop())
	rapid.Check(t, func(rt *rapid.T) {
		a := unit.Attacker{
			Attacks:         rapid.IntRange(1, 10).Draw(rt, "attacks"),
			Stands:          rapid.IntRange(1, 10).Draw(rt, "stands"),
			Clash:           rapid.IntRange(1, 6).Draw(rt, "clash"),
			Cleave:          rapid.IntRange(0, 6).Draw(rt, "cleave"),
			ExtraAttacks:    rapid.IntRange(0, 20).Draw(rt, "extra"),
			Rerolls:         rapid.SampledFrom([]unit.RerollMode{unit.RerollNone, unit.RerollSixes, unit.RerollFailures}).Draw(rt, "rerolls"),
			DeadlyBlades:    rapid.Bool().Draw(rt, "deadly"),
			FlawlessStrikes: rapid.Bool().Draw(rt, "flawless"),
			RelentlessBlows: rapid.Bool().Draw(rt, "relentless"),
			Smite:           rapid.Bool().Draw(rt, "smite"),
			TorrentialFire:  rapid.Bool().Draw(rt, "torrential"),
		}
		d := unit.Defender{
			Defense:     rapid.IntRange(1, 6).Draw(rt, "defense"),
			Evasion:     rapid.IntRange(1, 6).Draw(rt, "evasion"),
			Health:      rapid.IntRange(1, 10).Draw(rt, "health"),
			Stands:      3,
			Morale:      rapid.IntRange(1, 6).Draw(rt, "morale"),
			Hardened:    rapid.IntRange(0, 6).Draw(rt, "hardened"),
			Indomitable: rapid.IntRange(0, 10).Draw(rt, "indomitable"),
			Tenacious:   rapid.IntRange(0, 10).Draw(rt, "tenacious"),
			Oblivious:   rapid.Bool().Draw(rt, "oblivious"),
		}
		iterations := rapid.IntRange(1, 200).Draw(rt, "iterations")
		res, err := sim.Run(a, d, simulation.Config{Iterations: iterations, Seed: seed(rapid.Uint32().Draw(rt, "seed"))})
		require.NoError(rt, err)

		for name, s := range map[string]stats.Summary{
			"damage":           res.Statistics.Damage,
			"stands_killed":    res.Statistics.StandsKilled,
			"morale_wounds":    res.Statistics.MoraleWounds,
			"total_casualties": res.Statistics.TotalCasualties,
		} {
			assert.LessOrEqual(rt, float64(s.Min), s.Mean+1e-9, name)
			assert.LessOrEqual(rt, s.Mean, float64(s.Max)+1e-9, name)
		}
		sum := 0.0
		for _, p := range res.Distributions.TotalCasualties {
			sum += p
		}
		assert.InDelta(rt, 1.0, sum, 1e-9)
	})
}

func TestRun_AllSixes(t *testing.T) {
	sim := simulation.NewSimulator(zap.NewNop(), fixedFaces(6))
	a := unit.Attacker{Attacks: 4, Stands: 3, Clash: 6}
	d := unit.Defender{Defense: 3, Evasion: 1, Health: 4, Stands: 3, Morale: 3}

	res, err := sim.Run(a, d, simulation.Config{Iterations: 10})
	require.NoError(t, err)
	// 12 hits, none saved; 12 morale checks, all failed: (12+12)/4 stands.
	assert.Equal(t, 12.0, res.Statistics.Damage.Mean)
	assert.Equal(t, 12.0, res.Statistics.MoraleWounds.Mean)
	assert.Equal(t, 6.0, res.Statistics.StandsKilled.Mean)
	assert.Equal(t, 0.0, res.Statistics.TotalCasualties.StdDev)
	assert.Equal(t, stats.Distribution{6: 1}, res.Distributions.TotalCasualties)
	assert.Nil(t, res.PhaseDetails)
}

func TestRun_AllBlocked(t *testing.T) {
	sim := simulation.NewSimulator(zap.NewNop(), fixedFaces(3))
	a := unit.Attacker{Attacks: 4, Stands: 3, Clash: 3}
	d := unit.Defender{Defense: 3, Evasion: 1, Health: 4, Stands: 3, Morale: 3}

	res, err := sim.Run(a, d, simulation.Config{Iterations: 5, RecordPhaseDetails: true})
	require.NoError(t, err)
	assert.Equal(t, stats.Distribution{0: 1}, res.Distributions.Damage)
	require.NotNil(t, res.PhaseDetails)
	assert.Equal(t, 12.0, res.PhaseDetails.AttackHits.Mean)
	assert.Equal(t, 12.0, res.PhaseDetails.HitsBlocked.Mean)
	assert.Equal(t, stats.Distribution{0: 1}, res.PhaseDetails.MoraleWounds.Distribution)
}

func TestRun_AppliesRegisteredRules(t *testing.T) {
	reg := combat.NewRuleRegistry()
	reg.RegisterDamage("brutal", func(res combat.DamageResult, a unit.Attacker, d unit.Defender, ctx combat.RuleContext) combat.DamageResult {
		res.Damage *= 2
		res.StandsKilled = res.Damage / d.Health
		res.FractionalStands = res.Damage % d.Health
		return res
	})
	sim := simulation.NewSimulator(zap.NewNop(), fixedFaces(6), simulation.WithRules(reg))
	a := unit.Attacker{Attacks: 1, Stands: 2, Clash: 6, SpecialRules: []string{"brutal"}}
	d := unit.Defender{Defense: 1, Evasion: 1, Health: 2, Stands: 3, Morale: 6}

	res, err := sim.Run(a, d, simulation.Config{Iterations: 3})
	require.NoError(t, err)
	assert.Equal(t, 4.0, res.Statistics.Damage.Mean)
	assert.Equal(t, 0.0, res.Statistics.MoraleWounds.Mean)
	assert.Equal(t, 2.0, res.Statistics.StandsKilled.Mean)
}

func TestRun_ZeroHealthFailsFast(t *testing.T) {
	sim := simulation.NewSimulator(zap.NewNop())
	d := unit.DefaultDefender()
	d.Health = 0
	_, err := sim.Run(unit.DefaultAttacker(), d, simulation.DefaultConfig())
	require.Error(t, err)
	assert.True(t, errors.Is(err, simulation.ErrPrecondition))
	assert.Contains(t, err.Error(), "defender.health must be >= 1, got 0")
}

func TestCheckPreconditions_NamesEveryField(t *testing.T) {
	a := unit.DefaultAttacker()
	a.ExtraAttacks = -1
	d := unit.DefaultDefender()
	d.Tenacious = -2
	err := simulation.CheckPreconditions(a, d, simulation.Config{Iterations: 0})
	require.ErrorIs(t, err, simulation.ErrPrecondition)
	assert.Contains(t, err.Error(), "attacker.extra_attacks")
	assert.Contains(t, err.Error(), "defender.tenacious")
	assert.Contains(t, err.Error(), "config.iterations")
}

func TestRun_UsesClock(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	calls := 0
	clock := func() time.Time {
		calls++
		return base.Add(time.Duration(calls-1) * 5 * time.Millisecond)
	}
	sim := simulation.NewSimulator(zap.NewNop(), simulation.WithClock(clock))
	res, err := sim.Run(unit.DefaultAttacker(), unit.DefaultDefender(), simulation.Config{Iterations: 10, Seed: seed(3)})
	require.NoError(t, err)
	assert.Equal(t, 5*time.Millisecond, res.Elapsed)
	assert.Equal(t, base.Add(5*time.Millisecond), res.CompletedAt)
}

func TestRun_Unseeded(t *testing.T) {
	sim := simulation.NewSimulator(zap.NewNop())
	res, err := sim.Run(unit.DefaultAttacker(), unit.DefaultDefender(), simulation.Config{Iterations: 1000})
	require.NoError(t, err)
	assert.Greater(t, res.Statistics.Damage.Max, 0)
}

func TestRun_LogsCompletion(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	sim := simulation.NewSimulator(zap.New(core))
	a := unit.DefaultAttacker()
	a.Name = "Household Guard"
	_, err := sim.Run(a, unit.DefaultDefender(), simulation.Config{Iterations: 100, Seed: seed(9)})
	require.NoError(t, err)

	entries := logs.FilterMessage("simulation complete").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "Household Guard", entries[0].ContextMap()["attacker"])
	assert.EqualValues(t, 100, entries[0].ContextMap()["iterations"])
}

func TestRunMany_MatchesSequentialRuns(t *testing.T) {
	sim := simulation.NewSimulator(zap.NewNop())
	a := unit.DefaultAttacker()
	weak := unit.DefaultDefender()
	tough := unit.DefaultDefender()
	tough.Defense, tough.Morale = 5, 5

	scenarios := []simulation.Scenario{
		{Attacker: a, Defender: weak, Config: simulation.Config{Iterations: 500, Seed: seed(11)}},
		{Attacker: a, Defender: tough, Config: simulation.Config{Iterations: 500, Seed: seed(11)}},
		{Attacker: a, Defender: weak, Config: simulation.Config{Iterations: 500, Seed: seed(12)}},
	}
	results, err := simulation.RunMany(context.Background(), sim, scenarios, 2)
	require.NoError(t, err)
	require.Len(t, results, len(scenarios))

	for i, sc := range scenarios {
		want, err := sim.Run(sc.Attacker, sc.Defender, sc.Config)
		require.NoError(t, err)
		assert.Equal(t, want.Statistics, results[i].Statistics, "scenario %d", i)
		assert.Equal(t, sc.Defender, results[i].Defender)
	}
}

func TestRunMany_PropagatesErrors(t *testing.T) {
	sim := simulation.NewSimulator(zap.NewNop())
	bad := unit.DefaultDefender()
	bad.Health = 0
	scenarios := []simulation.Scenario{
		{Attacker: unit.DefaultAttacker(), Defender: unit.DefaultDefender(), Config: simulation.Config{Iterations: 10, Seed: seed(1)}},
		{Attacker: unit.DefaultAttacker(), Defender: bad, Config: simulation.Config{Iterations: 10, Seed: seed(1)}},
	}
	_, err := simulation.RunMany(context.Background(), sim, scenarios, 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, simulation.ErrPrecondition)
	assert.Contains(t, err.Error(), "scenario 1")
}

func TestRunMany_CancelledContext(t *testing.T) {
	sim := simulation.NewSimulator(zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := simulation.RunMany(ctx, sim, []simulation.Scenario{
		{Attacker: unit.DefaultAttacker(), Defender: unit.DefaultDefender(), Config: simulation.Config{Iterations: 10}},
	}, 1)
	assert.ErrorIs(t, err, context.Canceled)
}
