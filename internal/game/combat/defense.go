package combat

import "github.com/cory-johannsen/conquest/internal/game/unit"

// EffectiveDefense returns the defense value a normal defense roll must meet:
// smite zeroes the base defense, hardened reduces cleave, and cleave reduces
// defense. Neither value drops below zero.
func EffectiveDefense(a unit.Attacker, d unit.Defender) int {
	base := d.Defense
	if a.Smite {
		base = 0
	}
	cleave := max(0, a.Cleave-d.Hardened)
	return max(0, base-cleave)
}

// ResolveDefense rolls one defense die per incoming hit.
//
// The first atk.FlawlessHits rolls face defense 0 and can only be saved by
// evasion. Defensive rerolls use the threshold max(EffectiveDefense, Evasion).
// Tenacious then ignores up to d.Tenacious failed rolls (sixes first); rolls
// already exposed by flawless strikes are not eligible. Each unblocked roll
// deals one wound, or two on a 6 under deadly blades.
//
// Postcondition: HitsBlocked + number of unblocked rolls == IncomingHits.
func ResolveDefense(a unit.Attacker, d unit.Defender, atk AttackResult, r Roller, rules *RuleRegistry) DefenseResult {
	defense := EffectiveDefense(a, d)
	rolls := r.D6N(atk.Hits)
	flawless := min(atk.FlawlessHits, len(rolls))

	threshold := max(defense, d.Evasion)
	rolls = applyRerolls(rolls, d.DefensiveRerolls, threshold, r)

	failed := make([]bool, len(rolls))
	for i, roll := range rolls {
		failed[i] = i >= flawless && roll > threshold
	}
	ignored := IgnoreFailures(rolls, failed, d.Tenacious)

	blocked, wounds := 0, 0
	for i, roll := range rolls {
		applicable := defense
		if i < flawless {
			applicable = 0
		}
		if roll <= applicable || roll <= d.Evasion || ignored[i] {
			blocked++
			continue
		}
		if a.DeadlyBlades && roll == 6 {
			wounds += 2
		} else {
			wounds++
		}
	}

	res := DefenseResult{
		IncomingHits:  atk.Hits,
		Rolls:         rolls,
		HitsBlocked:   blocked,
		Ignored:       countTrue(ignored),
		HitsRemaining: wounds,
	}
	return rules.applyDefense(res, a, d, newRuleContext(PhaseDefense, r))
}
