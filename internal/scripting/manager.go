package scripting

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/cory-johannsen/conquest/internal/game/combat"
	"github.com/cory-johannsen/conquest/internal/game/unit"
)

// Rule identifies a script-defined hook.
type Rule struct {
	ID    string
	Phase combat.Phase
}

type ruleDef struct {
	Rule
	fn     *lua.LFunction
	source string
}

// Manager owns a single sandboxed LState holding every loaded rule script and
// exposes the registered rules as combat hooks.
//
// The LState is single-threaded; hook calls are serialised by mu, so a
// Manager bound into a registry may be shared by concurrent simulations.
type Manager struct {
	mu      sync.Mutex
	L       *lua.LState
	limit   int
	logger  *zap.Logger
	rules   []ruleDef
	loading string
}

// NewManager creates a Manager with an empty VM.
//
// Precondition: logger must be non-nil.
// Postcondition: Returns a Manager whose VM has the conquest module registered;
// instLimit <= 0 selects DefaultInstructionLimit.
func NewManager(logger *zap.Logger, instLimit int) *Manager {
	if logger == nil {
		panic("scripting: NewManager precondition violated: logger must be non-nil")
	}
	m := &Manager{
		L:      NewSandboxedState(instLimit),
		limit:  instLimit,
		logger: logger,
	}
	m.RegisterModules(m.L)
	return m
}

// LoadDir executes every *.lua file in scriptDir in lexicographic order. Each
// file gets its own instruction budget.
//
// Precondition: scriptDir must be a readable directory.
// Postcondition: Rules registered by the scripts are available via Rules;
// returns an error naming the first file that fails to load.
func (m *Manager) LoadDir(scriptDir string) error {
	entries, err := os.ReadDir(scriptDir)
	if err != nil {
		return fmt.Errorf("scripting: reading script dir %q: %w", scriptDir, err)
	}

	var luaFiles []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".lua" {
			luaFiles = append(luaFiles, filepath.Join(scriptDir, e.Name()))
		}
	}
	sort.Strings(luaFiles)

	for _, path := range luaFiles {
		if err := m.load(path, func(L *lua.LState) error { return L.DoFile(path) }); err != nil {
			return err
		}
	}
	return nil
}

// LoadString executes a single script held in memory. name is used in errors
// and logs.
func (m *Manager) LoadString(name, src string) error {
	return m.load(name, func(L *lua.LState) error { return L.DoString(src) })
}

func (m *Manager) load(name string, exec func(*lua.LState) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cancel := resetBudget(m.L, m.limit)
	defer cancel()
	m.loading = name
	defer func() { m.loading = "" }()

	if err := exec(m.L); err != nil {
		return fmt.Errorf("scripting: loading %q: %w", name, err)
	}
	m.logger.Debug("rule script loaded", zap.String("script", name))
	return nil
}

// Rules returns the registered rules in registration order.
func (m *Manager) Rules() []Rule {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Rule, len(m.rules))
	for i, r := range m.rules {
		out[i] = r.Rule
	}
	return out
}

// Bind registers a Go hook into reg for every script-defined rule.
//
// Precondition: reg must be non-nil.
func (m *Manager) Bind(reg *combat.RuleRegistry) {
	if reg == nil {
		panic("scripting: Bind precondition violated: registry must be non-nil")
	}
	m.mu.Lock()
	defs := append([]ruleDef(nil), m.rules...)
	m.mu.Unlock()

	for _, def := range defs {
		switch def.Phase {
		case combat.PhaseAttack:
			reg.RegisterAttack(def.ID, func(res combat.AttackResult, a unit.Attacker, d unit.Defender, ctx combat.RuleContext) combat.AttackResult {
				call(m, def, attackToTable, attackFromTable, &res, a, d, ctx)
				return res
			})
		case combat.PhaseDefense:
			reg.RegisterDefense(def.ID, func(res combat.DefenseResult, a unit.Attacker, d unit.Defender, ctx combat.RuleContext) combat.DefenseResult {
				call(m, def, defenseToTable, defenseFromTable, &res, a, d, ctx)
				return res
			})
		case combat.PhaseDamage:
			reg.RegisterDamage(def.ID, func(res combat.DamageResult, a unit.Attacker, d unit.Defender, ctx combat.RuleContext) combat.DamageResult {
				call(m, def, damageToTable, damageFromTable, &res, a, d, ctx)
				return res
			})
		case combat.PhaseMorale:
			reg.RegisterMorale(def.ID, func(res combat.MoraleResult, a unit.Attacker, d unit.Defender, ctx combat.RuleContext) combat.MoraleResult {
				call(m, def, moraleToTable, moraleFromTable, &res, a, d, ctx)
				return res
			})
		}
	}
}

// Close releases the VM.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.L.Close()
}

// addRule is called from conquest.register_rule while a script is loading.
// A second registration of the same id and phase replaces the first.
func (m *Manager) addRule(id string, phase combat.Phase, fn *lua.LFunction) {
	def := ruleDef{Rule: Rule{ID: id, Phase: phase}, fn: fn, source: m.loading}
	for i, r := range m.rules {
		if r.Rule == def.Rule {
			m.rules[i] = def
			return
		}
	}
	m.rules = append(m.rules, def)
}

// call invokes def's Lua function with the phase result, both units and a
// context table, then copies the integer fields of the returned table (or of
// the argument table when the function returns nil) back into res. Lua
// runtime errors are logged at Warn level and leave res unchanged.
func call[T any](
	m *Manager,
	def ruleDef,
	toTable func(*lua.LState, T) *lua.LTable,
	fromTable func(*lua.LTable, *T),
	res *T,
	a unit.Attacker,
	d unit.Defender,
	ctx combat.RuleContext,
) {
	m.mu.Lock()
	defer m.mu.Unlock()

	L := m.L
	cancel := resetBudget(L, m.limit)
	defer cancel()

	tbl := toTable(L, *res)
	err := L.CallByParam(lua.P{
		Fn:      def.fn,
		NRet:    1,
		Protect: true,
	}, tbl, attackerTable(L, a), defenderTable(L, d), m.contextTable(L, ctx))
	if err != nil {
		m.logger.Warn("scripting: Lua runtime error",
			zap.String("rule", def.ID),
			zap.String("phase", string(def.Phase)),
			zap.String("script", def.source),
			zap.Error(err),
		)
		return
	}

	ret := L.Get(-1)
	L.Pop(1)
	out, ok := ret.(*lua.LTable)
	if !ok {
		out = tbl
	}
	next := *res
	fromTable(out, &next)
	*res = next
}
