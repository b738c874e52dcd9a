package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sort"

	"github.com/spf13/cobra"

	"github.com/san-kum/kosmos/internal/config"
	"github.com/san-kum/kosmos/internal/metrics"
	"github.com/san-kum/kosmos/internal/sim"
	"github.com/san-kum/kosmos/internal/storage"
	"github.com/san-kum/kosmos/internal/tui"
)

var (
	configFile  string
	resume      string
	dt          float64
	steps       int
	sampleEvery int
	integrator  string
	evaluator   string
	theta       float64
	softening   float64
	workers     int
	extraNames  []string
	stability   float64
	showTUI     bool
	noSave      bool
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [preset]",
		Short: "run a scenario and store the result",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runScenario,
	}
	cmd.Flags().StringVar(&configFile, "config", "", "scenario file (yaml)")
	cmd.Flags().StringVar(&resume, "resume", "", "continue from a stored run's checkpoint")
	cmd.Flags().Float64Var(&dt, "dt", config.DefaultDt, "timestep")
	cmd.Flags().IntVar(&steps, "steps", config.DefaultSteps, "number of steps")
	cmd.Flags().IntVar(&sampleEvery, "sample-every", config.DefaultSampleEvery, "record bodies every n steps")
	cmd.Flags().StringVar(&integrator, "integrator", "verlet", "integrator")
	cmd.Flags().StringVar(&evaluator, "evaluator", "direct", "force evaluator (direct|barnes-hut)")
	cmd.Flags().Float64Var(&theta, "theta", config.DefaultTheta, "barnes-hut opening angle")
	cmd.Flags().Float64Var(&softening, "softening", 0, "softening length")
	cmd.Flags().IntVar(&workers, "workers", 0, "force workers (0 = all cpus)")
	cmd.Flags().StringSliceVar(&extraNames, "metrics", nil, "extra metrics to record")
	cmd.Flags().Float64Var(&stability, "stability", 0, "record the fraction of bodies within this radius of the center of mass")
	cmd.Flags().BoolVar(&showTUI, "tui", false, "show a progress view")
	cmd.Flags().BoolVar(&noSave, "no-save", false, "do not store the run")
	return cmd
}

// loadScenario resolves the scenario named by the arguments: a stored
// checkpoint, a config file or a preset, in that order of precedence.
func loadScenario(st *storage.Store, args []string) (*config.Config, error) {
	switch {
	case resume != "":
		runID, err := st.Resolve(resume)
		if err != nil {
			return nil, err
		}
		return st.LoadCheckpoint(runID)
	case configFile != "":
		return config.Load(configFile)
	case len(args) == 1:
		cfg := config.GetPreset(args[0])
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", args[0], config.ListPresets())
		}
		return cfg, nil
	default:
		return nil, errors.New("need a preset, --config or --resume")
	}
}

// applyFlags overrides scenario fields with flags given on the command line.
func applyFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	if flags.Changed("dt") {
		cfg.Dt = dt
	}
	if flags.Changed("steps") {
		cfg.Steps = steps
	}
	if flags.Changed("sample-every") {
		cfg.SampleEvery = sampleEvery
	}
	if flags.Changed("integrator") {
		cfg.Integrator = integrator
	}
	if flags.Changed("evaluator") {
		cfg.Evaluator = evaluator
	}
	if flags.Changed("theta") {
		cfg.Theta = theta
	}
	if flags.Changed("softening") {
		cfg.Softening = softening
	}
	if flags.Changed("workers") {
		cfg.Workers = workers
	}
	return cfg.Validate()
}

func runScenario(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}

	cfg, err := loadScenario(st, args)
	if err != nil {
		return err
	}
	if err := applyFlags(cmd, cfg); err != nil {
		return err
	}

	k, err := cfg.Build(logger)
	if err != nil {
		return err
	}
	for _, m := range metrics.Conservation() {
		k.AddMetric(m)
	}
	for _, name := range extraNames {
		m, err := metrics.New(name)
		if err != nil {
			return err
		}
		k.AddMetric(m)
	}
	if stability > 0 {
		k.AddMetric(metrics.NewStability(stability))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	runner := sim.New(cfg.Name, k)
	simCfg := sim.Config{Dt: cfg.Dt, Steps: cfg.Steps, SampleEvery: cfg.SampleEvery}

	logger.Info("scenario loaded", "scenario", cfg)
	if !showTUI {
		fmt.Printf("running %s: %d bodies, %d steps of %g\n", cfg.Name, k.BodyCount(), cfg.Steps, cfg.Dt)
	}

	var result *sim.Result
	var runErr error
	if showTUI {
		result, runErr = tui.Run(ctx, cfg.Name, runner, simCfg)
	} else {
		result, runErr = runner.Run(ctx, simCfg)
	}
	if result == nil {
		return runErr
	}

	fmt.Printf("steps: %d  t = %.6g  elapsed %v\n", result.StepsTaken, k.Time(), result.Elapsed)
	fmt.Printf("energy drift: %.3e\n", result.EnergyDrift)
	printMetrics(result.Metrics)

	if !noSave {
		runID, err := st.Save(storage.Record{
			Scenario:   cfg,
			Result:     result,
			Checkpoint: cfg.Checkpoint(k),
			RunErr:     runErr,
		})
		if err != nil {
			return errors.Join(runErr, err)
		}
		fmt.Printf("run id: %s\n", runID)
	}

	return runErr
}

func printMetrics(values map[string]float64) {
	if len(values) == 0 {
		return
	}
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Println("\nmetrics:")
	for _, name := range names {
		fmt.Printf("  %-16s %.6e\n", name, values[name])
	}
}
