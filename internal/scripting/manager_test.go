package scripting_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/conquest/internal/game/combat"
	"github.com/cory-johannsen/conquest/internal/game/dice"
	"github.com/cory-johannsen/conquest/internal/game/unit"
	"github.com/cory-johannsen/conquest/internal/scripting"
)

// fixedSource always returns the same face.
type fixedSource struct{ face int }

func (f *fixedSource) Intn(n int) int { return f.face - 1 }

func fixedRoller(face int) *dice.Roller {
	return dice.NewRoller(&fixedSource{face: face}, nil)
}

func newManager(t *testing.T, limit int) *scripting.Manager {
	t.Helper()
	m := scripting.NewManager(zaptest.NewLogger(t), limit)
	t.Cleanup(m.Close)
	return m
}

func observedManager(t *testing.T, limit int) (*scripting.Manager, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zapcore.WarnLevel)
	m := scripting.NewManager(zap.New(core), limit)
	t.Cleanup(m.Close)
	return m, logs
}

func bound(t *testing.T, m *scripting.Manager) *combat.RuleRegistry {
	t.Helper()
	reg := combat.NewRuleRegistry()
	m.Bind(reg)
	return reg
}

func TestManager_LoadDir_ShippedRules(t *testing.T) {
	m := newManager(t, 0)
	require.NoError(t, m.LoadDir(filepath.Join("..", "..", "content", "rules")))
	assert.Equal(t, []scripting.Rule{
		{ID: "brutal", Phase: combat.PhaseDamage},
		{ID: "fearless", Phase: combat.PhaseMorale},
	}, m.Rules())
}

func TestManager_LoadDir_LexicographicOrderAndSkipsNonLua(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.lua"),
		[]byte(`conquest.register_rule("second", "attack", function(r) return r end)`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.lua"),
		[]byte(`conquest.register_rule("first", "defense", function(r) return r end)`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("not lua"), 0o644))

	m := newManager(t, 0)
	require.NoError(t, m.LoadDir(dir))
	assert.Equal(t, []scripting.Rule{
		{ID: "first", Phase: combat.PhaseDefense},
		{ID: "second", Phase: combat.PhaseAttack},
	}, m.Rules())
}

func TestManager_LoadDir_MissingDir(t *testing.T) {
	m := newManager(t, 0)
	err := m.LoadDir(filepath.Join(t.TempDir(), "absent"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading script dir")
}

func TestManager_LoadDir_SyntaxErrorNamesFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.lua"), []byte(`this is not lua`), 0o644))
	m := newManager(t, 0)
	err := m.LoadDir(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken.lua")
}

func TestManager_RegisterRule_RejectsUnknownPhase(t *testing.T) {
	m := newManager(t, 0)
	err := m.LoadString("charge.lua", `conquest.register_rule("charge", "charge", function(r) return r end)`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown phase")
	assert.Empty(t, m.Rules())
}

func TestManager_RegisterRule_RejectsEmptyID(t *testing.T) {
	m := newManager(t, 0)
	err := m.LoadString("anon.lua", `conquest.register_rule("", "attack", function(r) return r end)`)
	require.Error(t, err)
	assert.Empty(t, m.Rules())
}

func TestManager_RegisterRule_ReplacesSameIDAndPhase(t *testing.T) {
	m := newManager(t, 0)
	require.NoError(t, m.LoadString("v1.lua", `conquest.register_rule("brutal", "damage", function(r) r.damage = 1 return r end)`))
	require.NoError(t, m.LoadString("v2.lua", `conquest.register_rule("brutal", "damage", function(r) r.damage = 2 return r end)`))
	require.Len(t, m.Rules(), 1)

	reg := bound(t, m)
	d := unit.Defender{Health: 1, SpecialRules: []string{"brutal"}}
	res := combat.ResolveDamage(unit.Attacker{}, d, 5, fixedRoller(1), reg)
	assert.Equal(t, 2, res.Damage)
}

func TestManager_Brutal_DoublesDamage(t *testing.T) {
	m := newManager(t, 0)
	require.NoError(t, m.LoadDir(filepath.Join("..", "..", "content", "rules")))
	reg := bound(t, m)

	d := unit.Defender{Health: 2, SpecialRules: []string{"brutal"}}
	res := combat.ResolveDamage(unit.Attacker{}, d, 3, fixedRoller(1), reg)
	assert.Equal(t, combat.DamageResult{Damage: 6, StandsKilled: 3, FractionalStands: 0}, res)
}

func TestManager_Brutal_Property_Reconstructs(t *testing.T) {
	m := newManager(t, 0)
	require.NoError(t, m.LoadDir(filepath.Join("..", "..", "content", "rules")))
	reg := bound(t, m)

	rapid.Check(t, func(rt *rapid.T) {
		health := rapid.IntRange(1, 10).Draw(rt, "health")
		damage := rapid.IntRange(0, 60).Draw(rt, "damage")
		a := unit.Attacker{SpecialRules: []string{"brutal"}}
		res := combat.ResolveDamage(a, unit.Defender{Health: health}, damage, fixedRoller(1), reg)
		if res.Damage != 2*damage {
			rt.Fatalf("damage = %d, want %d", res.Damage, 2*damage)
		}
		if res.StandsKilled*health+res.FractionalStands != res.Damage {
			rt.Fatalf("stands %d * health %d + fractional %d != damage %d",
				res.StandsKilled, health, res.FractionalStands, res.Damage)
		}
	})
}

func TestManager_Fearless_IgnoresMoraleWounds(t *testing.T) {
	m := newManager(t, 0)
	require.NoError(t, m.LoadDir(filepath.Join("..", "..", "content", "rules")))
	reg := bound(t, m)

	d := unit.Defender{Health: 1, Morale: 3, MoraleRerolls: unit.RerollNone}
	plain := combat.ResolveMorale(unit.Attacker{}, d, 2, fixedRoller(6), reg)
	assert.Equal(t, 2, plain.MoraleWounds)

	d.SpecialRules = []string{"fearless"}
	res := combat.ResolveMorale(unit.Attacker{}, d, 2, fixedRoller(6), reg)
	assert.Equal(t, 0, res.MoraleWounds)
	assert.Equal(t, 2, res.RollsNeeded)
	assert.Equal(t, []int{6, 6}, res.Rolls)
}

func TestManager_RollExpr_DrawsFromTrialRoller(t *testing.T) {
	m := newManager(t, 0)
	require.NoError(t, m.LoadString("surge.lua", `
		conquest.register_rule("surge", "attack", function(result, attacker, defender, ctx)
			result.hits = result.hits + ctx.roll_expr("1d6+1")
			return result
		end)`))
	reg := bound(t, m)

	r := fixedRoller(4)
	a := unit.Attacker{Attacks: 1, Stands: 1, Clash: 3, SpecialRules: []string{"surge"}}
	res := combat.ResolveAttack(a, unit.Defender{}, r, reg)
	assert.Equal(t, 5, res.Hits)
	assert.Equal(t, 2, r.Draws())
}

func TestManager_RollExpr_LogsThroughRoller(t *testing.T) {
	m := newManager(t, 0)
	require.NoError(t, m.LoadString("volley.lua", `
		conquest.register_rule("volley", "attack", function(result, attacker, defender, ctx)
			result.hits = result.hits + ctx.roll_expr("2d6")
			return result
		end)`))
	reg := bound(t, m)

	core, logs := observer.New(zapcore.DebugLevel)
	r := dice.NewRoller(&fixedSource{face: 2}, zap.New(core))
	a := unit.Attacker{Attacks: 1, Stands: 1, Clash: 1, SpecialRules: []string{"volley"}}
	res := combat.ResolveAttack(a, unit.Defender{}, r, reg)
	assert.Equal(t, 4, res.Hits)

	entries := logs.FilterMessage("dice roll").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "2d6", entries[0].ContextMap()["expression"])
	assert.EqualValues(t, 4, entries[0].ContextMap()["total"])
}

func TestManager_NilReturnKeepsTableEdits(t *testing.T) {
	m := newManager(t, 0)
	require.NoError(t, m.LoadString("shield.lua", `
		conquest.register_rule("shield", "defense", function(result, attacker, defender, ctx)
			if defender.evasion >= 2 then
				result.hits_blocked = result.hits_blocked + result.hits_remaining
				result.hits_remaining = 0
			end
		end)`))
	reg := bound(t, m)

	d := unit.Defender{Defense: 1, Evasion: 2, SpecialRules: []string{"shield"}}
	res := combat.ResolveDefense(unit.Attacker{}, d, combat.AttackResult{Hits: 3}, fixedRoller(5), reg)
	assert.Equal(t, 3, res.HitsBlocked)
	assert.Equal(t, 0, res.HitsRemaining)
}

func TestManager_RuntimeErrorLeavesResultUnchanged(t *testing.T) {
	m, logs := observedManager(t, 0)
	require.NoError(t, m.LoadString("oops.lua", `
		conquest.register_rule("oops", "damage", function(result)
			error("boom")
		end)`))
	reg := bound(t, m)

	d := unit.Defender{Health: 2, SpecialRules: []string{"oops"}}
	res := combat.ResolveDamage(unit.Attacker{}, d, 5, fixedRoller(1), reg)
	assert.Equal(t, combat.DamageResult{Damage: 5, StandsKilled: 2, FractionalStands: 1}, res)

	entries := logs.FilterMessage("scripting: Lua runtime error").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "oops", entries[0].ContextMap()["rule"])
	assert.Equal(t, "damage", entries[0].ContextMap()["phase"])
}

func TestManager_RollExprRejectsOtherDice(t *testing.T) {
	m, logs := observedManager(t, 0)
	require.NoError(t, m.LoadString("d8.lua", `
		conquest.register_rule("d8", "morale", function(result, attacker, defender, ctx)
			result.morale_wounds = ctx.roll_expr("1d8")
			return result
		end)`))
	reg := bound(t, m)

	d := unit.Defender{Health: 1, Morale: 3, MoraleRerolls: unit.RerollNone, SpecialRules: []string{"d8"}}
	res := combat.ResolveMorale(unit.Attacker{}, d, 1, fixedRoller(6), reg)
	assert.Equal(t, 1, res.MoraleWounds)
	assert.Equal(t, 1, logs.FilterMessage("scripting: Lua runtime error").Len())
}

func TestManager_HookBudgetResetsPerCall(t *testing.T) {
	m, logs := observedManager(t, 500)
	require.NoError(t, m.LoadString("spin.lua", `
		conquest.register_rule("spin", "damage", function(result, attacker, defender, ctx)
			if result.damage > 100 then
				while true do end
			end
			result.damage = result.damage + 1
			return result
		end)`))
	reg := bound(t, m)
	d := unit.Defender{Health: 1, SpecialRules: []string{"spin"}}

	looped := combat.ResolveDamage(unit.Attacker{}, d, 101, fixedRoller(1), reg)
	assert.Equal(t, 101, looped.Damage, "a hook that exhausts its budget leaves the result unchanged")
	assert.Equal(t, 1, logs.FilterMessage("scripting: Lua runtime error").Len())

	for i := 0; i < 3; i++ {
		res := combat.ResolveDamage(unit.Attacker{}, d, 4, fixedRoller(1), reg)
		assert.Equal(t, 5, res.Damage)
	}
}

func TestManager_UnattachedRuleDoesNotRun(t *testing.T) {
	m := newManager(t, 0)
	require.NoError(t, m.LoadDir(filepath.Join("..", "..", "content", "rules")))
	reg := bound(t, m)
	res := combat.ResolveDamage(unit.Attacker{}, unit.Defender{Health: 3}, 4, fixedRoller(1), reg)
	assert.Equal(t, 4, res.Damage)
}

func TestBind_PanicsOnNilRegistry(t *testing.T) {
	m := newManager(t, 0)
	assert.Panics(t, func() { m.Bind(nil) })
}

func TestNewManager_PanicsOnNilLogger(t *testing.T) {
	assert.Panics(t, func() { scripting.NewManager(nil, 0) })
}
