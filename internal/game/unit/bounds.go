package unit

import (
	"fmt"
	"strings"
)

// Bound is the inclusive range and default value of one stat.
type Bound struct {
	Min, Max, Default int
}

// Stat bounds enforced by the input layer. The combat engine assumes every
// profile it receives satisfies them.
var Bounds = map[string]Bound{
	"attacks":       {1, 10, 3},
	"stands":        {1, 10, 3},
	"clash":         {1, 6, 4},
	"cleave":        {0, 6, 0},
	"extra_attacks": {0, 20, 0},
	"defense":       {1, 6, 4},
	"evasion":       {1, 6, 5},
	"health":        {1, 10, 3},
	"morale":        {1, 6, 4},
	"hardened":      {0, 6, 0},
	"indomitable":   {0, 10, 0},
	"tenacious":     {0, 10, 0},
	"terrifying":    {0, 6, 0},
}

// CheckStat returns an error if value lies outside the bounds for stat.
//
// Precondition: stat must be a key of Bounds.
func CheckStat(stat string, value int) error {
	b, ok := Bounds[stat]
	if !ok {
		panic("unit: CheckStat precondition violated: unknown stat " + stat)
	}
	if value < b.Min {
		return fmt.Errorf("%s must be at least %d, got %d", stat, b.Min, value)
	}
	if value > b.Max {
		return fmt.Errorf("%s cannot exceed %d, got %d", stat, b.Max, value)
	}
	return nil
}

type checker struct {
	prefix string
	errs   []string
}

func (c *checker) stat(stat string, value int) {
	if err := CheckStat(stat, value); err != nil {
		c.errs = append(c.errs, c.prefix+err.Error())
	}
}

func (c *checker) reroll(field string, m RerollMode) {
	if !m.Valid() {
		c.errs = append(c.errs, fmt.Sprintf("%s%s: unknown reroll mode %q", c.prefix, field, string(m)))
	}
}

func (c *checker) err() error {
	if len(c.errs) == 0 {
		return nil
	}
	return fmt.Errorf("%s", strings.Join(c.errs, "; "))
}

// Validate checks every attacker stat against Bounds.
//
// Postcondition: Returns nil, or an error naming every offending field.
func (a Attacker) Validate() error {
	c := &checker{prefix: "attacker."}
	c.stat("attacks", a.Attacks)
	c.stat("stands", a.Stands)
	c.stat("clash", a.Clash)
	c.stat("cleave", a.Cleave)
	c.stat("extra_attacks", a.ExtraAttacks)
	c.stat("terrifying", a.Terrifying)
	c.reroll("rerolls", a.Rerolls)
	return c.err()
}

// Validate checks every defender stat against Bounds.
//
// Postcondition: Returns nil, or an error naming every offending field.
func (d Defender) Validate() error {
	c := &checker{prefix: "defender."}
	c.stat("defense", d.Defense)
	c.stat("evasion", d.Evasion)
	c.stat("health", d.Health)
	c.stat("stands", d.Stands)
	c.stat("morale", d.Morale)
	c.stat("hardened", d.Hardened)
	c.stat("indomitable", d.Indomitable)
	c.stat("tenacious", d.Tenacious)
	c.reroll("defensive_rerolls", d.DefensiveRerolls)
	c.reroll("morale_rerolls", d.MoraleRerolls)
	if d.CurrentStands < 0 || d.CurrentStands > d.Stands {
		c.errs = append(c.errs, fmt.Sprintf("defender.current_stands must be in [0, %d], got %d", d.Stands, d.CurrentStands))
	}
	return c.err()
}
