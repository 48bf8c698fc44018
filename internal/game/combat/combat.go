// Package combat implements the four-phase Conquest combat sequence:
// attack, defense, damage and morale.
//
// Each phase resolver is a pure function of the unit profiles, the previous
// phase's result and the dice drawn from the supplied Roller. Built-in
// special rules are applied inside the resolvers in the order declared by
// unit.AttackOrder, unit.DefenseOrder and unit.MoraleOrder; extension rules
// registered in a RuleRegistry run afterwards.
package combat

import "github.com/cory-johannsen/conquest/internal/game/dice"

// Roller is the subset of dice.Roller used by the resolvers and rule hooks.
type Roller interface {
	// D6 draws one die in [1, 6].
	D6() int
	// D6N draws count dice in draw order.
	D6N(count int) []int
	// Roll evaluates a dice expression.
	Roll(expr dice.Expression) dice.RollResult
}

// AttackResult is the outcome of the attack phase.
type AttackResult struct {
	// DiceRolled is Attacks*Stands + ExtraAttacks.
	DiceRolled int
	Hits       int
	// RawRolls are the dice as first drawn, before rerolls.
	RawRolls []int
	// Rolls are the dice after rerolls.
	Rolls []int
	// FlawlessHits counts hits from natural 1s under flawless strikes. The
	// defense phase resolves that many of its first rolls with defense 0.
	FlawlessHits int
}

// DefenseResult is the outcome of the defense phase.
type DefenseResult struct {
	IncomingHits int
	// Rolls are the defense dice after rerolls, one per incoming hit.
	Rolls       []int
	HitsBlocked int
	// Ignored counts failures nullified by tenacious.
	Ignored int
	// HitsRemaining is the total wounds dealt, including deadly blades doubling.
	HitsRemaining int
}

// DamageResult is the outcome of the damage phase.
type DamageResult struct {
	Damage int
	// StandsKilled is floor(Damage / Health).
	StandsKilled int
	// FractionalStands is Damage mod Health.
	FractionalStands int
}

// MoraleResult is the outcome of the morale phase.
type MoraleResult struct {
	RollsNeeded int
	Rolls       []int
	// Ignored counts failures nullified by indomitable.
	Ignored      int
	MoraleWounds int
}

// Resolution holds every phase result of one trial.
type Resolution struct {
	Attack  AttackResult
	Defense DefenseResult
	Damage  DamageResult
	Morale  MoraleResult
}

// Outcome is the set of scalars extracted from one trial.
type Outcome struct {
	AttackHits  int
	HitsBlocked int
	DamageDealt int
	// StandsKilled counts stands lost to clash damage plus morale wounds
	// combined; it differs from DamageResult.StandsKilled.
	StandsKilled    int
	MoraleWounds    int
	TotalCasualties int
}
