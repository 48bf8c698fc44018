package unit

// Rule identifies a built-in special rule.
type Rule int

const (
	RuleAttackRerolls Rule = iota
	RuleRelentlessBlows
	RuleFlawlessStrikes
	RuleTorrentialFire
	RuleSmite
	RuleCleave
	RuleHardened
	RuleDefensiveRerolls
	RuleTenacious
	RuleDeadlyBlades
	RuleMoraleRerolls
	RuleIndomitable
	RuleOblivious
	RuleTerrifying
)

// String returns the rule's display name.
func (r Rule) String() string {
	switch r {
	case RuleAttackRerolls:
		return "rerolls"
	case RuleRelentlessBlows:
		return "relentless blows"
	case RuleFlawlessStrikes:
		return "flawless strikes"
	case RuleTorrentialFire:
		return "torrential fire"
	case RuleSmite:
		return "smite"
	case RuleCleave:
		return "cleave"
	case RuleHardened:
		return "hardened"
	case RuleDefensiveRerolls:
		return "defensive rerolls"
	case RuleTenacious:
		return "tenacious"
	case RuleDeadlyBlades:
		return "deadly blades"
	case RuleMoraleRerolls:
		return "morale rerolls"
	case RuleIndomitable:
		return "indomitable"
	case RuleOblivious:
		return "oblivious"
	case RuleTerrifying:
		return "terrifying"
	default:
		return "unknown"
	}
}

// Application order of built-in rules within each phase. The resolvers in
// package combat apply rules in exactly this order; changing it changes
// numeric outcomes.
var (
	AttackOrder  = []Rule{RuleAttackRerolls, RuleRelentlessBlows, RuleFlawlessStrikes, RuleTorrentialFire}
	DefenseOrder = []Rule{RuleSmite, RuleCleave, RuleHardened, RuleFlawlessStrikes, RuleDefensiveRerolls, RuleTenacious, RuleDeadlyBlades}
	MoraleOrder  = []Rule{RuleMoraleRerolls, RuleIndomitable, RuleOblivious}
)

// ActiveRules returns the attacker's active built-in rules in declared order:
// attack-phase rules first, then those that act during the defense phase.
func (a Attacker) ActiveRules() []Rule {
	active := map[Rule]bool{
		RuleAttackRerolls:   a.Rerolls != "" && a.Rerolls != RerollNone,
		RuleRelentlessBlows: a.RelentlessBlows,
		RuleFlawlessStrikes: a.FlawlessStrikes,
		RuleTorrentialFire:  a.TorrentialFire,
		RuleSmite:           a.Smite,
		RuleCleave:          a.Cleave > 0,
		RuleDeadlyBlades:    a.DeadlyBlades,
		RuleTerrifying:      a.Terrifying > 0,
	}
	return collect(active, AttackOrder, DefenseOrder, []Rule{RuleTerrifying})
}

// ActiveRules returns the defender's active built-in rules in declared order.
func (d Defender) ActiveRules() []Rule {
	active := map[Rule]bool{
		RuleHardened:         d.Hardened > 0,
		RuleDefensiveRerolls: d.DefensiveRerolls != "" && d.DefensiveRerolls != RerollNone,
		RuleTenacious:        d.Tenacious > 0,
		RuleMoraleRerolls:    d.MoraleRerolls != "" && d.MoraleRerolls != RerollNone,
		RuleIndomitable:      d.Indomitable > 0,
		RuleOblivious:        d.Oblivious,
	}
	return collect(active, DefenseOrder, MoraleOrder)
}

func collect(active map[Rule]bool, orders ...[]Rule) []Rule {
	var out []Rule
	seen := make(map[Rule]bool)
	for _, order := range orders {
		for _, r := range order {
			if active[r] && !seen[r] {
				seen[r] = true
				out = append(out, r)
			}
		}
	}
	return out
}
