// Package main provides the conquestsim binary, which runs Monte Carlo combat
// simulations between unit profiles and prints the aggregated results.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"math"
	"os"
	"os/signal"
	"strings"

	"go.uber.org/zap"

	"github.com/cory-johannsen/conquest/internal/config"
	"github.com/cory-johannsen/conquest/internal/game/combat"
	"github.com/cory-johannsen/conquest/internal/game/unit"
	"github.com/cory-johannsen/conquest/internal/observability"
	"github.com/cory-johannsen/conquest/internal/report"
	"github.com/cory-johannsen/conquest/internal/scripting"
	"github.com/cory-johannsen/conquest/internal/simulation"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// run parses args, loads configuration and unit profiles, runs one scenario
// per selected defender and writes the report to stdout. Logs go to stderr.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("conquestsim", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "path to configuration file; empty = defaults and CONQUEST_* environment")
	unitsDir := fs.String("units", "", "directory of unit profile YAML files (overrides units.dir)")
	rulesDir := fs.String("rules", "", "directory of Lua rule scripts (overrides scripting.rule_dir)")
	attackerName := fs.String("attacker", "", "attacker profile name")
	defenderNames := fs.String("defender", "all", "comma-separated defender profile names, or \"all\"")
	iterations := fs.Int("iterations", 0, "trials per scenario (overrides simulation.iterations)")
	seed := fs.Uint("seed", 0, "seed for reproducible dice (overrides simulation.seed)")
	format := fs.String("format", "", "output format: text or json (overrides output.format)")
	phases := fs.Bool("phases", false, "include the per-phase breakdown")
	list := fs.Bool("list", false, "list the available unit profiles and exit")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	var seedErr error
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "units":
			cfg.Units.Dir = *unitsDir
		case "rules":
			cfg.Scripting.RuleDir = *rulesDir
		case "iterations":
			cfg.Simulation.Iterations = *iterations
		case "seed":
			if uint64(*seed) > math.MaxUint32 {
				seedErr = fmt.Errorf("-seed must fit in 32 bits, got %d", *seed)
				return
			}
			s := uint32(*seed)
			cfg.Simulation.Seed = &s
		case "format":
			cfg.Output.Format = *format
		case "phases":
			cfg.Simulation.RecordPhaseDetails = *phases
		}
	})
	if seedErr != nil {
		return seedErr
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := observability.NewLoggerTo(cfg.Logging, stderr)
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	roster, err := unit.LoadRosterFromDir(cfg.Units.Dir)
	if err != nil {
		return fmt.Errorf("loading units: %w", err)
	}
	logger.Info("units loaded",
		zap.String("dir", cfg.Units.Dir),
		zap.Int("attackers", len(roster.Attackers)),
		zap.Int("defenders", len(roster.Defenders)),
	)

	if *list {
		fmt.Fprintf(stdout, "attackers: %s\n", strings.Join(roster.AttackerNames(), ", "))
		fmt.Fprintf(stdout, "defenders: %s\n", strings.Join(roster.DefenderNames(), ", "))
		return nil
	}

	scenarios, err := selectScenarios(roster, *attackerName, *defenderNames, cfg.Simulation.Simulation())
	if err != nil {
		return err
	}

	rules := combat.NewRuleRegistry()
	if cfg.Scripting.RuleDir != "" {
		mgr := scripting.NewManager(logger, cfg.Scripting.InstructionLimit)
		defer mgr.Close()
		if err := mgr.LoadDir(cfg.Scripting.RuleDir); err != nil {
			return fmt.Errorf("loading rule scripts: %w", err)
		}
		mgr.Bind(rules)
		logger.Info("rule scripts loaded",
			zap.String("dir", cfg.Scripting.RuleDir),
			zap.Int("rules", len(mgr.Rules())),
		)
	}
	warnUnknownRules(logger, rules, scenarios)

	sim := simulation.NewSimulator(logger, simulation.WithRules(rules))
	results, err := simulation.RunMany(ctx, sim, scenarios, cfg.Simulation.Parallelism)
	if err != nil {
		return fmt.Errorf("running simulations: %w", err)
	}

	switch cfg.Output.Format {
	case "json":
		return report.WriteJSON(stdout, results...)
	default:
		return report.WriteText(stdout, results...)
	}
}

// selectScenarios pairs the named attacker with each selected defender.
func selectScenarios(roster *unit.Roster, attackerName, defenderNames string, cfg simulation.Config) ([]simulation.Scenario, error) {
	if attackerName == "" {
		return nil, fmt.Errorf("-attacker is required (available: %s)", strings.Join(roster.AttackerNames(), ", "))
	}
	a, ok := roster.Attackers[attackerName]
	if !ok {
		return nil, fmt.Errorf("unknown attacker %q (available: %s)", attackerName, strings.Join(roster.AttackerNames(), ", "))
	}

	var names []string
	if defenderNames == "all" {
		names = roster.DefenderNames()
	} else {
		for _, n := range strings.Split(defenderNames, ",") {
			if n = strings.TrimSpace(n); n != "" {
				names = append(names, n)
			}
		}
	}
	if len(names) == 0 {
		return nil, errors.New("no defenders selected")
	}

	scenarios := make([]simulation.Scenario, 0, len(names))
	for _, n := range names {
		d, ok := roster.Defenders[n]
		if !ok {
			return nil, fmt.Errorf("unknown defender %q (available: %s)", n, strings.Join(roster.DefenderNames(), ", "))
		}
		scenarios = append(scenarios, simulation.Scenario{Attacker: a, Defender: d, Config: cfg})
	}
	return scenarios, nil
}

// warnUnknownRules logs attached special rules that have no registered hook.
// Such rules are skipped during resolution.
func warnUnknownRules(logger *zap.Logger, rules *combat.RuleRegistry, scenarios []simulation.Scenario) {
	seen := make(map[string]bool)
	check := func(owner string, ids []string) {
		for _, id := range ids {
			if !rules.Has(id) && !seen[id] {
				seen[id] = true
				logger.Warn("special rule has no hook", zap.String("rule", id), zap.String("unit", owner))
			}
		}
	}
	for _, sc := range scenarios {
		check(sc.Attacker.Name, sc.Attacker.SpecialRules)
		check(sc.Defender.Name, sc.Defender.SpecialRules)
	}
}
