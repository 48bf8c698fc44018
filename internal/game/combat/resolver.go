package combat

import "github.com/cory-johannsen/conquest/internal/game/unit"

// Resolve runs one trial: attack, defense, damage and morale, each phase
// consuming the previous phase's result.
//
// Precondition: d.Health >= 1; r must be non-nil. rules may be nil.
func Resolve(a unit.Attacker, d unit.Defender, r Roller, rules *RuleRegistry) Resolution {
	atk := ResolveAttack(a, d, r, rules)
	def := ResolveDefense(a, d, atk, r, rules)
	dmg := ResolveDamage(a, d, def.HitsRemaining, r, rules)
	mor := ResolveMorale(a, d, dmg.Damage, r, rules)
	return Resolution{Attack: atk, Defense: def, Damage: dmg, Morale: mor}
}

// Outcome extracts the per-trial scalars. Stands killed is recomputed from
// clash damage plus morale wounds.
//
// Precondition: d.Health >= 1.
func (res Resolution) Outcome(d unit.Defender) Outcome {
	dealt := res.Damage.Damage
	morale := res.Morale.MoraleWounds
	killed := (dealt + morale) / d.Health
	return Outcome{
		AttackHits:      res.Attack.Hits,
		HitsBlocked:     res.Defense.HitsBlocked,
		DamageDealt:     dealt,
		StandsKilled:    killed,
		MoraleWounds:    morale,
		TotalCasualties: killed,
	}
}
