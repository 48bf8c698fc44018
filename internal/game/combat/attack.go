package combat

import "github.com/cory-johannsen/conquest/internal/game/unit"

// ResolveAttack rolls the attacker's dice and counts hits.
//
// Order: rerolls against Clash, hit counting (relentless blows doubles
// natural 1s, flawless strikes tallies them), then torrential fire adds
// floor(hits/2). Extension rules run last.
//
// Precondition: a.TotalDice() >= 0.
// Postcondition: len(result.RawRolls) == len(result.Rolls) == result.DiceRolled.
func ResolveAttack(a unit.Attacker, d unit.Defender, r Roller, rules *RuleRegistry) AttackResult {
	total := a.TotalDice()
	raw := r.D6N(total)
	rolls := applyRerolls(raw, a.Rerolls, a.Clash, r)

	hits, flawless := 0, 0
	for _, roll := range rolls {
		if roll > a.Clash {
			continue
		}
		n := 1
		if roll == 1 && a.RelentlessBlows {
			n = 2
		}
		hits += n
		if roll == 1 && a.FlawlessStrikes {
			flawless += n
		}
	}
	if a.TorrentialFire {
		hits += hits / 2
	}

	res := AttackResult{
		DiceRolled:   total,
		Hits:         hits,
		RawRolls:     raw,
		Rolls:        rolls,
		FlawlessHits: flawless,
	}
	return rules.applyAttack(res, a, d, newRuleContext(PhaseAttack, r))
}
