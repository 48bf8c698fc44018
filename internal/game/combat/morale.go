package combat

import "github.com/cory-johannsen/conquest/internal/game/unit"

// ResolveMorale rolls one morale die per point of damage; each roll above
// d.Morale is a failure.
//
// Order: morale rerolls against Morale, indomitable ignores up to
// d.Indomitable failures (sixes first), oblivious halves the remaining
// failures rounding down. Zero damage draws nothing and skips extension rules.
//
// Postcondition: MoraleWounds <= RollsNeeded.
func ResolveMorale(a unit.Attacker, d unit.Defender, damage int, r Roller, rules *RuleRegistry) MoraleResult {
	if damage == 0 {
		return MoraleResult{}
	}

	rolls := r.D6N(damage)
	rolls = applyRerolls(rolls, d.MoraleRerolls, d.Morale, r)

	failed := make([]bool, len(rolls))
	for i, roll := range rolls {
		failed[i] = roll > d.Morale
	}
	ignored := IgnoreFailures(rolls, failed, d.Indomitable)
	n := countTrue(failed) - countTrue(ignored)

	wounds := n
	if d.Oblivious {
		wounds = n / 2
	}

	res := MoraleResult{
		RollsNeeded:  damage,
		Rolls:        rolls,
		Ignored:      countTrue(ignored),
		MoraleWounds: wounds,
	}
	return rules.applyMorale(res, a, d, newRuleContext(PhaseMorale, r))
}
