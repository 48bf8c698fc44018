package combat

import "github.com/cory-johannsen/conquest/internal/game/unit"

// applyRerolls returns a copy of rolls in which every roll selected by mode
// against threshold has been redrawn once. Redrawn values are final.
func applyRerolls(rolls []int, mode unit.RerollMode, threshold int, r Roller) []int {
	out := make([]int, len(rolls))
	copy(out, rolls)
	for i, roll := range out {
		if mode.Rerolls(roll, threshold) {
			out[i] = r.D6()
		}
	}
	return out
}

// IgnoreFailures marks up to n failed rolls as ignored. Failed rolls showing
// a 6 are ignored first, in roll order; remaining failures follow in roll
// order until n is exhausted.
//
// Precondition: len(failed) == len(rolls); n >= 0.
// Postcondition: len(result) == len(rolls); result[i] implies failed[i].
func IgnoreFailures(rolls []int, failed []bool, n int) []bool {
	if len(failed) != len(rolls) {
		panic("combat: IgnoreFailures precondition violated: len(failed) != len(rolls)")
	}
	ignored := make([]bool, len(rolls))
	for i, roll := range rolls {
		if n == 0 {
			return ignored
		}
		if failed[i] && roll == 6 {
			ignored[i] = true
			n--
		}
	}
	for i := range rolls {
		if n == 0 {
			return ignored
		}
		if failed[i] && !ignored[i] {
			ignored[i] = true
			n--
		}
	}
	return ignored
}

func countTrue(bs []bool) int {
	n := 0
	for _, b := range bs {
		if b {
			n++
		}
	}
	return n
}
