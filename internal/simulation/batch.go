package simulation

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/cory-johannsen/conquest/internal/game/unit"
)

// Scenario is one independent matchup.
type Scenario struct {
	Attacker unit.Attacker
	Defender unit.Defender
	Config   Config
}

// RunMany runs each scenario on its own goroutine, at most limit at a time
// (limit <= 0 means unbounded). Each run owns its Roller, so seeded
// scenarios produce the same Results as sequential calls to Run.
//
// Cancelling ctx stops scenarios that have not yet started; a run already in
// progress completes. The first error cancels the remaining scenarios.
//
// Postcondition: on success len(results) == len(scenarios) and results[i]
// belongs to scenarios[i].
func RunMany(ctx context.Context, sim *Simulator, scenarios []Scenario, limit int) ([]Results, error) {
	results := make([]Results, len(scenarios))
	g, ctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, sc := range scenarios {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			res, err := sim.Run(sc.Attacker, sc.Defender, sc.Config)
			if err != nil {
				return fmt.Errorf("scenario %d (%s vs %s): %w", i, sc.Attacker.Name, sc.Defender.Name, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
