package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/san-kum/kosmos/internal/analysis"
	"github.com/san-kum/kosmos/internal/compute"
	"github.com/san-kum/kosmos/internal/config"
	"github.com/san-kum/kosmos/internal/integrators"
	"github.com/san-kum/kosmos/internal/kosmos"
	"github.com/san-kum/kosmos/internal/metrics"
	"github.com/san-kum/kosmos/internal/sim"
)

var (
	benchBodies int
	benchSteps  int
	benchTheta  float64

	compareDt    float64
	compareSteps int
	sweepLevels  int
)

func newBenchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bench",
		Short: "time force evaluation across evaluators and worker counts",
		Args:  cobra.NoArgs,
		RunE:  benchEvaluators,
	}
	cmd.Flags().IntVar(&benchBodies, "bodies", config.DefaultShells, "number of bodies")
	cmd.Flags().IntVar(&benchSteps, "steps", 20, "steps per measurement")
	cmd.Flags().Float64Var(&benchTheta, "theta", config.DefaultTheta, "barnes-hut opening angle")
	return cmd
}

func newCompareCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare [preset] [integrator...]",
		Short: "compare integrators on the same scenario",
		Args:  cobra.MinimumNArgs(1),
		RunE:  compareIntegrators,
	}
	cmd.Flags().Float64Var(&compareDt, "dt", 0, "timestep (default: the preset's)")
	cmd.Flags().IntVar(&compareSteps, "steps", 0, "number of steps (default: the preset's)")
	cmd.Flags().IntVar(&sweepLevels, "sweep", 0, "also halve dt this many times and fit the convergence order")
	return cmd
}

// workerCounts is 1, 2, 4, ... up to and including n.
func workerCounts(n int) []int {
	counts := []int{1}
	for w := 2; w < n; w *= 2 {
		counts = append(counts, w)
	}
	if n > 1 {
		counts = append(counts, n)
	}
	return counts
}

func benchEvaluators(cmd *cobra.Command, args []string) error {
	scenario := config.Shells(benchBodies)
	scenario.Theta = benchTheta

	fmt.Printf("benchmarking %d bodies, %d steps per run\n\n", benchBodies, benchSteps)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "EVALUATOR\tWORKERS\tTIME\tSTEPS/SEC\tSPEEDUP")

	for _, kind := range []string{compute.KindDirect, compute.KindBarnesHut} {
		var baseline time.Duration
		for _, n := range workerCounts(runtime.NumCPU()) {
			cfg := *scenario
			cfg.Evaluator = kind
			cfg.Workers = n

			k, err := cfg.Build(logger)
			if err != nil {
				return err
			}

			start := time.Now()
			if err := k.Run(cfg.Dt, benchSteps); err != nil {
				return err
			}
			elapsed := time.Since(start)
			if baseline == 0 {
				baseline = elapsed
			}

			fmt.Fprintf(w, "%s\t%d\t%v\t%.1f\t%.2fx\n",
				kind, n, elapsed.Round(time.Microsecond),
				float64(benchSteps)/elapsed.Seconds(),
				baseline.Seconds()/elapsed.Seconds())
		}
	}

	return w.Flush()
}

func compareIntegrators(cmd *cobra.Command, args []string) error {
	scenario := config.GetPreset(args[0])
	if scenario == nil {
		return fmt.Errorf("unknown preset: %s (available: %v)", args[0], config.ListPresets())
	}
	if compareDt > 0 {
		scenario.Dt = compareDt
	}
	if compareSteps > 0 {
		scenario.Steps = compareSteps
	}

	names := args[1:]
	if len(names) == 0 {
		names = integrators.Names()
	}

	build := func(name string) analysis.Builder {
		return func() (*kosmos.Kosmos, error) {
			cfg := *scenario
			cfg.Integrator = name
			return cfg.Build(logger)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	ensemble := sim.NewEnsemble(runtime.NumCPU())
	simCfg := sim.Config{Dt: scenario.Dt, Steps: scenario.Steps}
	for _, name := range names {
		k, err := build(name)()
		if err != nil {
			return err
		}
		for _, m := range metrics.Conservation() {
			k.AddMetric(m)
		}
		ensemble.Add(name, k, simCfg)
	}

	fmt.Printf("comparing integrators on %s (dt=%g, steps=%d)\n\n", scenario.Name, scenario.Dt, scenario.Steps)

	results, runErr := ensemble.Run(ctx)
	if runErr != nil {
		logger.Warn("compare stopped early", "error", runErr)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "INTEGRATOR\tSTEPS\tMAX ENERGY DRIFT\tMOMENTUM DRIFT\tCOM DRIFT\tTIME")
	for i, res := range results {
		if res == nil {
			fmt.Fprintf(w, "%s\t-\t-\t-\t-\t-\n", names[i])
			continue
		}
		fmt.Fprintf(w, "%s\t%d\t%.3e\t%.3e\t%.3e\t%v\n",
			names[i], res.StepsTaken,
			res.Metrics["energy_drift"],
			res.Metrics["momentum_drift"],
			res.Metrics["com_drift"],
			res.Elapsed.Round(time.Microsecond))
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if sweepLevels <= 0 {
		return runErr
	}

	duration := scenario.Dt * float64(scenario.Steps)
	dts := make([]float64, sweepLevels+1)
	for i := range dts {
		dts[i] = scenario.Dt / float64(int(1)<<i)
	}

	fmt.Printf("\nconvergence over %s (duration %g)\n", strings.Join(formatDts(dts), ", "), duration)
	for _, name := range names {
		points, err := analysis.TimestepSweep(ctx, build(name), duration, dts)
		if err != nil {
			fmt.Printf("  %-8s %v\n", name, err)
			continue
		}
		order, err := analysis.ConvergenceOrder(points)
		if err != nil {
			fmt.Printf("  %-8s %v\n", name, err)
			continue
		}
		fmt.Printf("  %-8s order %.2f\n", name, order)
	}

	return runErr
}

func formatDts(dts []float64) []string {
	out := make([]string, len(dts))
	for i, dt := range dts {
		out[i] = fmt.Sprintf("%g", dt)
	}
	return out
}
