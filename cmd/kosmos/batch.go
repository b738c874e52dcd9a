package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/san-kum/kosmos/internal/automation"
	"github.com/san-kum/kosmos/internal/config"
	"github.com/san-kum/kosmos/internal/dynamo"
	"github.com/san-kum/kosmos/internal/optim"
)

var (
	sweepMin    float64
	sweepMax    float64
	sweepPoints int
	batchRadius float64

	mcTrials       int
	mcPerturbation float64
	mcSeed         uint64

	tuneGrid      []string
	tuneTolerance float64
)

func newSweepCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sweep [preset] [param]",
		Short: "run a preset across a range of one parameter",
		Args:  cobra.ExactArgs(2),
		RunE:  sweepParam,
	}
	cmd.Flags().Float64Var(&sweepMin, "min", 0, "first value")
	cmd.Flags().Float64Var(&sweepMax, "max", 1, "last value")
	cmd.Flags().IntVar(&sweepPoints, "points", 5, "number of values")
	cmd.Flags().Float64Var(&batchRadius, "radius", 0, "count runs whose bodies stay within this radius of the center of mass")
	return cmd
}

func newMonteCarloCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "montecarlo [preset]",
		Short: "estimate how often perturbed initial velocities stay bound",
		Args:  cobra.ExactArgs(1),
		RunE:  monteCarlo,
	}
	cmd.Flags().IntVar(&mcTrials, "trials", 50, "number of trials")
	cmd.Flags().Float64Var(&mcPerturbation, "perturbation", 0.05, "velocity noise relative to the rms speed")
	cmd.Flags().Float64Var(&batchRadius, "radius", 0, "escape radius from the center of mass (required)")
	cmd.Flags().Uint64Var(&mcSeed, "seed", 1, "random seed")
	return cmd
}

func newTuneCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tune [preset]",
		Short: "find the cheapest parameters within an energy error budget",
		Args:  cobra.ExactArgs(1),
		RunE:  tune,
	}
	cmd.Flags().StringArrayVar(&tuneGrid, "grid", nil, "param=v1,v2,... (repeatable)")
	cmd.Flags().Float64Var(&tuneTolerance, "tolerance", 1e-6, "largest acceptable relative energy error")
	return cmd
}

func preset(name string) (*config.Config, error) {
	cfg := config.GetPreset(name)
	if cfg == nil {
		return nil, fmt.Errorf("unknown preset: %s (available: %v)", name, config.ListPresets())
	}
	return cfg, nil
}

func sweepParam(cmd *cobra.Command, args []string) error {
	scenario, err := preset(args[0])
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	results, err := automation.RunSweep(ctx, &automation.Sweep{
		Scenario: scenario,
		Param:    args[1],
		Min:      sweepMin,
		Max:      sweepMax,
		Points:   sweepPoints,
		Radius:   batchRadius,
	}, logger)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "%s\tSTEPS\tENERGY DRIFT\tMOMENTUM DRIFT\tSTABILITY\tERROR\n", strings.ToUpper(args[1]))
	for _, r := range results {
		errText := "-"
		if r.Err != nil {
			errText = r.Err.Error()
		}
		fmt.Fprintf(w, "%g\t%d\t%.3e\t%.3e\t%.3f\t%s\n",
			r.Value, r.StepsTaken, r.EnergyDrift, r.MomentumDrift, r.Stability, errText)
	}
	return w.Flush()
}

func monteCarlo(cmd *cobra.Command, args []string) error {
	scenario, err := preset(args[0])
	if err != nil {
		return err
	}
	if batchRadius <= 0 {
		return dynamo.Invalid("--radius must be positive")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	fmt.Printf("%d trials of %s, velocity noise %g, escape radius %g\n",
		mcTrials, scenario.Name, mcPerturbation, batchRadius)

	trials, err := automation.RunMonteCarlo(ctx, &automation.MonteCarlo{
		Scenario:     scenario,
		Trials:       mcTrials,
		Perturbation: mcPerturbation,
		Radius:       batchRadius,
		Seed:         mcSeed,
	}, logger)
	if err != nil {
		return err
	}

	s := automation.Summarize(trials)
	logger.Info("monte carlo finished", "summary", s)
	fmt.Printf("bound:   %d\n", s.Bound)
	fmt.Printf("escaped: %d\n", s.Escaped)
	fmt.Printf("failed:  %d\n", s.Failed)
	fmt.Printf("bound fraction: %.3f\n", s.BoundFraction())
	return nil
}

// parseGrid reads "name=v1,v2" entries into parallel name and value lists.
func parseGrid(entries []string) ([]string, [][]float64, error) {
	names := make([]string, 0, len(entries))
	ranges := make([][]float64, 0, len(entries))
	for _, e := range entries {
		name, list, ok := strings.Cut(e, "=")
		if !ok || name == "" || list == "" {
			return nil, nil, fmt.Errorf("grid entry %q: want param=v1,v2,...", e)
		}
		fields := strings.Split(list, ",")
		values := make([]float64, len(fields))
		for i, f := range fields {
			v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
			if err != nil {
				return nil, nil, fmt.Errorf("grid entry %q: %w", e, err)
			}
			values[i] = v
		}
		names = append(names, strings.TrimSpace(name))
		ranges = append(ranges, values)
	}
	return names, ranges, nil
}

func tune(cmd *cobra.Command, args []string) error {
	scenario, err := preset(args[0])
	if err != nil {
		return err
	}
	if len(tuneGrid) == 0 {
		return errors.New("need at least one --grid entry")
	}
	names, ranges, err := parseGrid(tuneGrid)
	if err != nil {
		return err
	}

	g, err := optim.NewGridSearch(names, ranges, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	fmt.Printf("searching %d candidates on %s (tolerance %g)\n\n", g.Size(), scenario.Name, tuneTolerance)
	best, all, err := g.Search(ctx, scenario, optim.CheapestWithin(tuneTolerance))

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PARAMS\tSTEPS\tEVALUATIONS\tENERGY DRIFT\tTIME")
	for _, c := range all {
		drift := fmt.Sprintf("%.3e", c.EnergyDrift)
		if c.Err != nil {
			drift = "failed"
		}
		fmt.Fprintf(w, "%s\t%d\t%d\t%s\t%v\n", formatParams(c.Params), c.Steps, c.Evaluations, drift, c.Elapsed)
	}
	if ferr := w.Flush(); ferr != nil {
		return ferr
	}

	if errors.Is(err, dynamo.ErrNotFound) {
		fmt.Println("\nno candidate meets the tolerance")
		return nil
	}
	if err != nil {
		return err
	}
	fmt.Printf("\nbest: %s (%d evaluations, drift %.3e)\n", formatParams(best.Params), best.Evaluations, best.EnergyDrift)
	return nil
}

func formatParams(params map[string]float64) string {
	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = fmt.Sprintf("%s=%g", name, params[name])
	}
	return strings.Join(parts, " ")
}
