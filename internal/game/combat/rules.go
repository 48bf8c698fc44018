package combat

import (
	"github.com/cory-johannsen/conquest/internal/game/dice"
	"github.com/cory-johannsen/conquest/internal/game/unit"
)

// Phase names a combat phase.
type Phase string

const (
	PhaseAttack  Phase = "attack"
	PhaseDefense Phase = "defense"
	PhaseDamage  Phase = "damage"
	PhaseMorale  Phase = "morale"
)

// ParsePhase returns the Phase named s.
func ParsePhase(s string) (Phase, bool) {
	switch p := Phase(s); p {
	case PhaseAttack, PhaseDefense, PhaseDamage, PhaseMorale:
		return p, true
	}
	return "", false
}

// RuleContext is passed to every rule hook.
type RuleContext struct {
	Phase Phase
	// Roll draws one die in [1, 6] from the trial's Roller.
	Roll func() int
	// RollExpr evaluates a dice expression against the trial's Roller.
	RollExpr func(expr dice.Expression) dice.RollResult
}

func newRuleContext(phase Phase, r Roller) RuleContext {
	return RuleContext{Phase: phase, Roll: r.D6, RollExpr: r.Roll}
}

// Rule hooks transform a phase result after the built-in logic has run.
type (
	AttackHook  func(AttackResult, unit.Attacker, unit.Defender, RuleContext) AttackResult
	DefenseHook func(DefenseResult, unit.Attacker, unit.Defender, RuleContext) DefenseResult
	DamageHook  func(DamageResult, unit.Attacker, unit.Defender, RuleContext) DamageResult
	MoraleHook  func(MoraleResult, unit.Attacker, unit.Defender, RuleContext) MoraleResult
)

// RuleRegistry maps rule ids to per-phase hooks.
//
// Registration is not safe for concurrent use; a registry must be fully
// populated before it is shared between runs. A nil *RuleRegistry has no hooks.
type RuleRegistry struct {
	attack  map[string]AttackHook
	defense map[string]DefenseHook
	damage  map[string]DamageHook
	morale  map[string]MoraleHook
}

// NewRuleRegistry returns an empty registry.
func NewRuleRegistry() *RuleRegistry {
	return &RuleRegistry{
		attack:  make(map[string]AttackHook),
		defense: make(map[string]DefenseHook),
		damage:  make(map[string]DamageHook),
		morale:  make(map[string]MoraleHook),
	}
}

// RegisterAttack registers (or replaces) the attack-phase hook for id.
func (r *RuleRegistry) RegisterAttack(id string, h AttackHook) { r.attack[id] = h }

// RegisterDefense registers (or replaces) the defense-phase hook for id.
func (r *RuleRegistry) RegisterDefense(id string, h DefenseHook) { r.defense[id] = h }

// RegisterDamage registers (or replaces) the damage-phase hook for id.
func (r *RuleRegistry) RegisterDamage(id string, h DamageHook) { r.damage[id] = h }

// RegisterMorale registers (or replaces) the morale-phase hook for id.
func (r *RuleRegistry) RegisterMorale(id string, h MoraleHook) { r.morale[id] = h }

// Has reports whether any phase has a hook for id.
func (r *RuleRegistry) Has(id string) bool {
	if r == nil {
		return false
	}
	_, a := r.attack[id]
	_, d := r.defense[id]
	_, g := r.damage[id]
	_, m := r.morale[id]
	return a || d || g || m
}

// attachedRules returns the rule ids in application order: the attacker's
// attachments first, then the defender's.
func attachedRules(a unit.Attacker, d unit.Defender) []string {
	ids := make([]string, 0, len(a.SpecialRules)+len(d.SpecialRules))
	ids = append(ids, a.SpecialRules...)
	return append(ids, d.SpecialRules...)
}

// applyHooks runs the hook registered for each attached rule id, in order.
// Ids with no hook for this phase are skipped.
func applyHooks[T any, H ~func(T, unit.Attacker, unit.Defender, RuleContext) T](hooks map[string]H, res T, a unit.Attacker, d unit.Defender, ctx RuleContext) T {
	for _, id := range attachedRules(a, d) {
		if h, ok := hooks[id]; ok {
			res = h(res, a, d, ctx)
		}
	}
	return res
}

func (r *RuleRegistry) applyAttack(res AttackResult, a unit.Attacker, d unit.Defender, ctx RuleContext) AttackResult {
	if r == nil {
		return res
	}
	return applyHooks(r.attack, res, a, d, ctx)
}

func (r *RuleRegistry) applyDefense(res DefenseResult, a unit.Attacker, d unit.Defender, ctx RuleContext) DefenseResult {
	if r == nil {
		return res
	}
	return applyHooks(r.defense, res, a, d, ctx)
}

func (r *RuleRegistry) applyDamage(res DamageResult, a unit.Attacker, d unit.Defender, ctx RuleContext) DamageResult {
	if r == nil {
		return res
	}
	return applyHooks(r.damage, res, a, d, ctx)
}

func (r *RuleRegistry) applyMorale(res MoraleResult, a unit.Attacker, d unit.Defender, ctx RuleContext) MoraleResult {
	if r == nil {
		return res
	}
	return applyHooks(r.morale, res, a, d, ctx)
}
