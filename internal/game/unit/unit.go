// Package unit defines the attacking and defending unit profiles consumed by
// the combat engine, their stat bounds and their YAML representation.
package unit

import "fmt"

// RerollMode governs which dice are redrawn once after a roll.
type RerollMode string

const (
	// RerollNone leaves rolls untouched.
	RerollNone RerollMode = "none"
	// RerollSixes redraws every roll exactly equal to 6.
	RerollSixes RerollMode = "reroll_sixes"
	// RerollFailures redraws every roll strictly greater than the threshold.
	RerollFailures RerollMode = "reroll_failures"
)

// Valid reports whether m is a known reroll mode. The empty string is
// accepted and treated as RerollNone.
func (m RerollMode) Valid() bool {
	switch m {
	case "", RerollNone, RerollSixes, RerollFailures:
		return true
	}
	return false
}

// Rerolls reports whether roll must be redrawn under m against threshold.
func (m RerollMode) Rerolls(roll, threshold int) bool {
	switch m {
	case RerollSixes:
		return roll == 6
	case RerollFailures:
		return roll > threshold
	default:
		return false
	}
}

// UnmarshalText accepts the canonical names plus the empty string.
func (m *RerollMode) UnmarshalText(text []byte) error {
	v := RerollMode(text)
	if !v.Valid() {
		return fmt.Errorf("unknown reroll mode %q", string(text))
	}
	if v == "" {
		v = RerollNone
	}
	*m = v
	return nil
}

// Attacker is the attacking unit. It is immutable for the duration of a run.
type Attacker struct {
	Name string `yaml:"name" json:"name,omitempty"`
	// Attacks is the number of attack dice per stand.
	Attacks int `yaml:"attacks" json:"attacks"`
	Stands  int `yaml:"stands" json:"stands"`
	// Clash is the hit threshold: a die hits on roll <= Clash.
	Clash int `yaml:"clash" json:"clash"`
	// Cleave reduces the defender's defense.
	Cleave       int `yaml:"cleave" json:"cleave"`
	ExtraAttacks int `yaml:"extra_attacks" json:"extraAttacks"`

	Rerolls         RerollMode `yaml:"rerolls" json:"rerolls"`
	DeadlyBlades    bool       `yaml:"deadly_blades" json:"deadlyBlades"`
	FlawlessStrikes bool       `yaml:"flawless_strikes" json:"flawlessStrikes"`
	RelentlessBlows bool       `yaml:"relentless_blows" json:"relentlessBlows"`
	Smite           bool       `yaml:"smite" json:"smite"`
	// Terrifying is carried for presentation; no phase consumes it.
	Terrifying     int  `yaml:"terrifying" json:"terrifying"`
	TorrentialFire bool `yaml:"torrential_fire" json:"torrentialFire"`

	// SpecialRules lists pipeline rule ids in attachment order.
	SpecialRules []string `yaml:"special_rules" json:"specialRules,omitempty"`
}

// TotalDice returns Attacks*Stands + ExtraAttacks.
func (a Attacker) TotalDice() int {
	return a.Attacks*a.Stands + a.ExtraAttacks
}

// Defender is the defending unit. It is immutable for the duration of a run.
type Defender struct {
	Name    string `yaml:"name" json:"name,omitempty"`
	Defense int    `yaml:"defense" json:"defense"`
	Evasion int    `yaml:"evasion" json:"evasion"`
	// Health is wounds per stand.
	Health int `yaml:"health" json:"health"`
	Stands int `yaml:"stands" json:"stands"`
	// CurrentStands tracks stands remaining across rounds; single-engagement
	// simulation does not read it.
	CurrentStands int `yaml:"current_stands" json:"currentStands"`
	Morale        int `yaml:"morale" json:"morale"`

	Hardened         int        `yaml:"hardened" json:"hardened"`
	Indomitable      int        `yaml:"indomitable" json:"indomitable"`
	Oblivious        bool       `yaml:"oblivious" json:"oblivious"`
	Tenacious        int        `yaml:"tenacious" json:"tenacious"`
	DefensiveRerolls RerollMode `yaml:"defensive_rerolls" json:"defensiveRerolls"`
	MoraleRerolls    RerollMode `yaml:"morale_rerolls" json:"moraleRerolls"`

	SpecialRules []string `yaml:"special_rules" json:"specialRules,omitempty"`
}

// DefaultAttacker returns the stock attacker profile.
func DefaultAttacker() Attacker {
	return Attacker{
		Attacks: 4,
		Stands:  3,
		Clash:   3,
		Rerolls: RerollNone,
	}
}

// DefaultDefender returns the stock defender profile.
func DefaultDefender() Defender {
	return Defender{
		Defense:          3,
		Evasion:          1,
		Health:           4,
		Stands:           3,
		CurrentStands:    3,
		Morale:           3,
		DefensiveRerolls: RerollNone,
		MoraleRerolls:    RerollNone,
	}
}
