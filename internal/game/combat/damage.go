package combat

import "github.com/cory-johannsen/conquest/internal/game/unit"

// ResolveDamage converts wounds into whole and partial stands.
//
// Precondition: d.Health >= 1; damage >= 0.
// Postcondition: StandsKilled*Health + FractionalStands == Damage.
func ResolveDamage(a unit.Attacker, d unit.Defender, damage int, r Roller, rules *RuleRegistry) DamageResult {
	if d.Health < 1 {
		panic("combat: ResolveDamage precondition violated: defender health must be >= 1")
	}
	res := DamageResult{
		Damage:           damage,
		StandsKilled:     damage / d.Health,
		FractionalStands: damage % d.Health,
	}
	return rules.applyDamage(res, a, d, newRuleContext(PhaseDamage, r))
}
