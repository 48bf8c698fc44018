// Package report renders simulation results for the command line.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/cory-johannsen/conquest/internal/simulation"
	"github.com/cory-johannsen/conquest/internal/stats"
)

// Formatter formats numbers for one locale.
type Formatter struct {
	p *message.Printer
}

// NewFormatter returns a Formatter for tag.
func NewFormatter(tag language.Tag) Formatter {
	return Formatter{p: message.NewPrinter(tag)}
}

// Number formats v with the given number of decimals and grouping separators.
func (f Formatter) Number(v float64, decimals int) string {
	return f.p.Sprintf("%.*f", decimals, v)
}

// Count formats n with grouping separators.
func (f Formatter) Count(n int) string {
	return f.p.Sprintf("%d", n)
}

// Percent formats a probability in [0, 1] as a percentage with one decimal.
func (f Formatter) Percent(prob float64) string {
	return f.p.Sprintf("%.1f%%", prob*100)
}

// ExecutionTime formats d as whole milliseconds below one second and as
// seconds with two decimals otherwise.
func (f Formatter) ExecutionTime(d time.Duration) string {
	ms := float64(d) / float64(time.Millisecond)
	if ms < 1000 {
		return f.p.Sprintf("%.0fms", ms)
	}
	return f.p.Sprintf("%.2fs", ms/1000)
}

// WriteText renders each result in turn using English number formatting.
func WriteText(w io.Writer, results ...simulation.Results) error {
	return NewFormatter(language.English).WriteText(w, results...)
}

// WriteText renders each result in turn, followed by a comparison table when
// there is more than one.
func (f Formatter) WriteText(w io.Writer, results ...simulation.Results) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for i, res := range results {
		if i > 0 {
			fmt.Fprintln(tw)
		}
		f.writeResult(tw, res)
	}
	if len(results) > 1 {
		fmt.Fprintln(tw)
		f.writeComparison(tw, results)
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}
	return nil
}

func (f Formatter) writeResult(w io.Writer, res simulation.Results) {
	st := res.Statistics
	fmt.Fprintf(w, "%s vs %s\n", orUnnamed(res.Attacker.Name), orUnnamed(res.Defender.Name))
	seed := "unseeded"
	if res.Config.Seed != nil {
		seed = fmt.Sprintf("seed %d", *res.Config.Seed)
	}
	fmt.Fprintf(w, "Simulation completed in %s (%s iterations, %s)\n",
		f.ExecutionTime(res.Elapsed), f.Count(res.Config.Iterations), seed)
	if rules := activeRules(res); rules != "" {
		fmt.Fprintf(w, "Rules: %s\n", rules)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Results Summary")
	fmt.Fprintf(w, "  Average Clash Damage\t%s\tstd dev %s\n", f.Number(st.Damage.Mean, 2), f.Number(st.Damage.StdDev, 2))
	fmt.Fprintf(w, "  Average Morale Damage\t%s\tstd dev %s\n", f.Number(st.MoraleWounds.Mean, 2), f.Number(st.MoraleWounds.StdDev, 2))
	fmt.Fprintf(w, "  Average Stands Killed\t%s\tmax %s\n", f.Number(st.StandsKilled.Mean, 2), f.Count(st.StandsKilled.Max))
	fmt.Fprintf(w, "  Average Total Damage\t%s\tclash + morale\n", f.Number(st.Damage.Mean+st.MoraleWounds.Mean, 2))
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Metric\tMean\tStdDev\tMedian\tMode\tMin\tMax\tP25\tP75\tP90\tP95")
	f.writeSummaryRow(w, "Damage", st.Damage)
	f.writeSummaryRow(w, "Stands killed", st.StandsKilled)
	f.writeSummaryRow(w, "Morale wounds", st.MoraleWounds)
	f.writeSummaryRow(w, "Total casualties", st.TotalCasualties)

	f.writeDistribution(w, "Damage", res.Distributions.Damage)
	f.writeDistribution(w, "Stands killed", res.Distributions.StandsKilled)
	f.writeDistribution(w, "Total casualties", res.Distributions.TotalCasualties)

	if pd := res.PhaseDetails; pd != nil {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Phase Breakdown")
		fmt.Fprintf(w, "  Attack hits\t%s\n", f.Number(pd.AttackHits.Mean, 2))
		fmt.Fprintf(w, "  Hits blocked\t%s\n", f.Number(pd.HitsBlocked.Mean, 2))
		fmt.Fprintf(w, "  Damage\t%s\n", f.Number(pd.Damage.Mean, 2))
		fmt.Fprintf(w, "  Morale wounds\t%s\n", f.Number(pd.MoraleWounds.Mean, 2))
	}
}

func (f Formatter) writeSummaryRow(w io.Writer, label string, s stats.Summary) {
	fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
		label,
		f.Number(s.Mean, 2),
		f.Number(s.StdDev, 2),
		f.Number(s.Median, 1),
		f.Count(s.Mode),
		f.Count(s.Min),
		f.Count(s.Max),
		f.Number(s.Percentiles.P25, 1),
		f.Number(s.Percentiles.P75, 1),
		f.Number(s.Percentiles.P90, 1),
		f.Number(s.Percentiles.P95, 1),
	)
}

// writeDistribution lists each observed value with its probability and the
// cumulative probability up to and including it.
func (f Formatter) writeDistribution(w io.Writer, label string, d stats.Distribution) {
	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s Distribution\n", label)
	fmt.Fprintf(w, "%s\tProbability\tCumulative\n", label)
	var cumulative float64
	for _, v := range d.Values() {
		cumulative += d[v]
		fmt.Fprintf(w, "%s\t%s\t%s\n", f.Count(v), f.Percent(d[v]), f.Percent(cumulative))
	}
}

func (f Formatter) writeComparison(w io.Writer, results []simulation.Results) {
	fmt.Fprintln(w, "Comparison")
	fmt.Fprintln(w, "Defender\tDamage\tMorale\tStands killed\tCasualties")
	for _, res := range results {
		st := res.Statistics
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			orUnnamed(res.Defender.Name),
			f.Number(st.Damage.Mean, 2),
			f.Number(st.MoraleWounds.Mean, 2),
			f.Number(st.StandsKilled.Mean, 2),
			f.Number(st.TotalCasualties.Mean, 2),
		)
	}
}

func activeRules(res simulation.Results) string {
	var names []string
	for _, r := range res.Attacker.ActiveRules() {
		names = append(names, r.String())
	}
	for _, r := range res.Defender.ActiveRules() {
		names = append(names, r.String())
	}
	names = append(names, res.Attacker.SpecialRules...)
	names = append(names, res.Defender.SpecialRules...)
	return strings.Join(names, ", ")
}

func orUnnamed(name string) string {
	if name == "" {
		return "(unnamed)"
	}
	return name
}

// WriteJSON encodes results as an indented JSON array.
func WriteJSON(w io.Writer, results ...simulation.Results) error {
	if results == nil {
		results = []simulation.Results{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(results); err != nil {
		return fmt.Errorf("encoding results: %w", err)
	}
	return nil
}
