package scripting

import (
	"fmt"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/cory-johannsen/conquest/internal/game/combat"
	"github.com/cory-johannsen/conquest/internal/game/dice"
	"github.com/cory-johannsen/conquest/internal/game/unit"
)

// RegisterModules registers the conquest.* Lua table into L.
//
//	conquest.register_rule(id, phase, fn)  phase is attack|defense|damage|morale
//	conquest.log(msg)                      logs msg at debug level
//
// Precondition: L must be from NewSandboxedState.
// Postcondition: conquest global is defined in L.
func (m *Manager) RegisterModules(L *lua.LState) {
	mod := L.NewTable()
	L.SetField(mod, "register_rule", L.NewFunction(m.luaRegisterRule))
	L.SetField(mod, "log", L.NewFunction(m.luaLog))
	L.SetGlobal("conquest", mod)
}

func (m *Manager) luaRegisterRule(L *lua.LState) int {
	id := L.CheckString(1)
	phaseName := L.CheckString(2)
	fn := L.CheckFunction(3)
	if id == "" {
		L.ArgError(1, "rule id must be non-empty")
		return 0
	}
	phase, ok := combat.ParsePhase(phaseName)
	if !ok {
		L.ArgError(2, fmt.Sprintf("unknown phase %q", phaseName))
		return 0
	}
	m.addRule(id, phase, fn)
	return 0
}

func (m *Manager) luaLog(L *lua.LState) int {
	m.logger.Debug("lua", zap.String("script", m.loading), zap.String("msg", L.CheckString(1)))
	return 0
}

// contextTable exposes the trial's dice to a hook:
//
//	ctx.phase            current phase name
//	ctx.roll()           one d6
//	ctx.roll_expr(expr)  total of a d6 expression such as "2d6+1"
func (m *Manager) contextTable(L *lua.LState, ctx combat.RuleContext) *lua.LTable {
	t := L.NewTable()
	L.SetField(t, "phase", lua.LString(ctx.Phase))
	L.SetField(t, "roll", L.NewFunction(func(L *lua.LState) int {
		L.Push(lua.LNumber(ctx.Roll()))
		return 1
	}))
	L.SetField(t, "roll_expr", L.NewFunction(func(L *lua.LState) int {
		expr, err := dice.Parse(L.CheckString(1))
		if err != nil {
			L.ArgError(1, err.Error())
			return 0
		}
		if expr.Sides != dice.Sides {
			L.ArgError(1, fmt.Sprintf("only d%d expressions are supported, got %q", dice.Sides, expr.Raw))
			return 0
		}
		res := ctx.RollExpr(expr)
		m.logger.Debug("lua dice roll", zap.String("phase", string(ctx.Phase)), zap.Stringer("roll", res))
		L.Push(lua.LNumber(res.Total()))
		return 1
	}))
	return t
}

func intList(L *lua.LState, vals []int) *lua.LTable {
	t := L.CreateTable(len(vals), 0)
	for _, v := range vals {
		t.Append(lua.LNumber(v))
	}
	return t
}

func setInts(L *lua.LState, t *lua.LTable, fields map[string]int) {
	for k, v := range fields {
		L.SetField(t, k, lua.LNumber(v))
	}
}

// readInt overwrites *dst with t[key] when that field holds a number.
func readInt(t *lua.LTable, key string, dst *int) {
	if n, ok := t.RawGetString(key).(lua.LNumber); ok {
		*dst = int(n)
	}
}

func attackerTable(L *lua.LState, a unit.Attacker) *lua.LTable {
	t := L.NewTable()
	L.SetField(t, "name", lua.LString(a.Name))
	setInts(L, t, map[string]int{
		"attacks":       a.Attacks,
		"stands":        a.Stands,
		"clash":         a.Clash,
		"cleave":        a.Cleave,
		"extra_attacks": a.ExtraAttacks,
		"terrifying":    a.Terrifying,
	})
	L.SetField(t, "rerolls", lua.LString(a.Rerolls))
	L.SetField(t, "deadly_blades", lua.LBool(a.DeadlyBlades))
	L.SetField(t, "flawless_strikes", lua.LBool(a.FlawlessStrikes))
	L.SetField(t, "relentless_blows", lua.LBool(a.RelentlessBlows))
	L.SetField(t, "smite", lua.LBool(a.Smite))
	L.SetField(t, "torrential_fire", lua.LBool(a.TorrentialFire))
	return t
}

func defenderTable(L *lua.LState, d unit.Defender) *lua.LTable {
	t := L.NewTable()
	L.SetField(t, "name", lua.LString(d.Name))
	setInts(L, t, map[string]int{
		"defense":        d.Defense,
		"evasion":        d.Evasion,
		"health":         d.Health,
		"stands":         d.Stands,
		"current_stands": d.CurrentStands,
		"morale":         d.Morale,
		"hardened":       d.Hardened,
		"indomitable":    d.Indomitable,
		"tenacious":      d.Tenacious,
	})
	L.SetField(t, "oblivious", lua.LBool(d.Oblivious))
	L.SetField(t, "defensive_rerolls", lua.LString(d.DefensiveRerolls))
	L.SetField(t, "morale_rerolls", lua.LString(d.MoraleRerolls))
	return t
}

// Roll lists are passed to scripts for inspection only; changes to them are
// not read back.

func attackToTable(L *lua.LState, r combat.AttackResult) *lua.LTable {
	t := L.NewTable()
	setInts(L, t, map[string]int{
		"dice_rolled":   r.DiceRolled,
		"hits":          r.Hits,
		"flawless_hits": r.FlawlessHits,
	})
	L.SetField(t, "rolls", intList(L, r.Rolls))
	L.SetField(t, "raw_rolls", intList(L, r.RawRolls))
	return t
}

func attackFromTable(t *lua.LTable, r *combat.AttackResult) {
	readInt(t, "dice_rolled", &r.DiceRolled)
	readInt(t, "hits", &r.Hits)
	readInt(t, "flawless_hits", &r.FlawlessHits)
}

func defenseToTable(L *lua.LState, r combat.DefenseResult) *lua.LTable {
	t := L.NewTable()
	setInts(L, t, map[string]int{
		"incoming_hits":  r.IncomingHits,
		"hits_blocked":   r.HitsBlocked,
		"ignored":        r.Ignored,
		"hits_remaining": r.HitsRemaining,
	})
	L.SetField(t, "rolls", intList(L, r.Rolls))
	return t
}

func defenseFromTable(t *lua.LTable, r *combat.DefenseResult) {
	readInt(t, "incoming_hits", &r.IncomingHits)
	readInt(t, "hits_blocked", &r.HitsBlocked)
	readInt(t, "ignored", &r.Ignored)
	readInt(t, "hits_remaining", &r.HitsRemaining)
}

func damageToTable(L *lua.LState, r combat.DamageResult) *lua.LTable {
	t := L.NewTable()
	setInts(L, t, map[string]int{
		"damage":            r.Damage,
		"stands_killed":     r.StandsKilled,
		"fractional_stands": r.FractionalStands,
	})
	return t
}

func damageFromTable(t *lua.LTable, r *combat.DamageResult) {
	readInt(t, "damage", &r.Damage)
	readInt(t, "stands_killed", &r.StandsKilled)
	readInt(t, "fractional_stands", &r.FractionalStands)
}

func moraleToTable(L *lua.LState, r combat.MoraleResult) *lua.LTable {
	t := L.NewTable()
	setInts(L, t, map[string]int{
		"rolls_needed":  r.RollsNeeded,
		"ignored":       r.Ignored,
		"morale_wounds": r.MoraleWounds,
	})
	L.SetField(t, "rolls", intList(L, r.Rolls))
	return t
}

func moraleFromTable(t *lua.LTable, r *combat.MoraleResult) {
	readInt(t, "rolls_needed", &r.RollsNeeded)
	readInt(t, "ignored", &r.Ignored)
	readInt(t, "morale_wounds", &r.MoraleWounds)
}
