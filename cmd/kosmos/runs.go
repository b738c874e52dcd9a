package main

import (
	"fmt"
	"math"
	"os"
	"text/tabwriter"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/san-kum/kosmos/internal/analysis"
	"github.com/san-kum/kosmos/internal/kosmos"
	"github.com/san-kum/kosmos/internal/storage"
)

var (
	plotHeight    int
	plotWidth     int
	exportOut     string
	lyapunovSteps int
	lyapunovDelta float64
)

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		Args:  cobra.NoArgs,
		RunE:  listRuns,
	}
}

func newPlotCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plot [run]",
		Short: "plot the energy error of a stored run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	cmd.Flags().IntVar(&plotHeight, "height", 12, "plot height")
	cmd.Flags().IntVar(&plotWidth, "width", 80, "plot width")
	return cmd
}

func newAnalyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze [run]",
		Short: "energy statistics and orbital periods of a stored run",
		Args:  cobra.ExactArgs(1),
		RunE:  analyzeRun,
	}
	cmd.Flags().IntVar(&lyapunovSteps, "lyapunov", 0, "estimate the Lyapunov exponent over this many steps from the checkpoint")
	cmd.Flags().Float64Var(&lyapunovDelta, "perturbation", 1e-8, "initial separation for the Lyapunov estimate")
	return cmd
}

func newExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export [run]",
		Short: "export a stored run as JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}
	cmd.Flags().StringVarP(&exportOut, "output", "o", "", "output file (default stdout)")
	return cmd
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSCENARIO\tTIME\tBODIES\tSTEPS\tDT\tINTEG\tEVAL\tDRIFT\tSTATUS")

	for _, run := range runs {
		status := "ok"
		if run.Error != "" {
			status = "stopped"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d/%d\t%g\t%s\t%s\t%.2e\t%s\n",
			run.ID,
			run.Scenario,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Bodies,
			run.StepsTaken,
			run.Steps,
			run.Dt,
			run.Integrator,
			run.Evaluator,
			run.EnergyDrift,
			status,
		)
	}

	return w.Flush()
}

// relativeErrors is |E(t) - E(0)| / |E(0)| for each energy sample.
func relativeErrors(rows []*storage.EnergyRow) []float64 {
	out := make([]float64, len(rows))
	if len(rows) == 0 || rows[0].Energy == 0 {
		return out
	}
	e0 := rows[0].Energy
	for i, r := range rows {
		out[i] = math.Abs(r.Energy-e0) / math.Abs(e0)
	}
	return out
}

func plotRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runID, err := st.Resolve(args[0])
	if err != nil {
		return err
	}
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	rows, err := st.LoadEnergy(runID)
	if err != nil {
		return err
	}
	if len(rows) < 2 {
		return fmt.Errorf("run %s has %d energy samples, need at least 2", runID, len(rows))
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("scenario: %s (%s, %s)\n", meta.Scenario, meta.Integrator, meta.Evaluator)
	fmt.Printf("samples: %d\n\n", len(rows))

	energies := make([]float64, len(rows))
	for i, r := range rows {
		energies[i] = r.Energy
	}

	graph := asciigraph.Plot(energies,
		asciigraph.Height(plotHeight),
		asciigraph.Width(plotWidth),
		asciigraph.Caption("total energy"),
	)
	fmt.Println(graph)
	fmt.Println()

	graph = asciigraph.Plot(relativeErrors(rows),
		asciigraph.Height(plotHeight),
		asciigraph.Width(plotWidth),
		asciigraph.Caption("relative energy error"),
	)
	fmt.Println(graph)

	return nil
}

func analyzeRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runID, err := st.Resolve(args[0])
	if err != nil {
		return err
	}
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	energyRows, err := st.LoadEnergy(runID)
	if err != nil {
		return err
	}
	trajectory, err := st.LoadTrajectory(runID)
	if err != nil {
		return err
	}

	fmt.Printf("analysis: %s\n", meta.ID)
	fmt.Printf("scenario: %s, %d bodies, %d steps\n\n", meta.Scenario, meta.Bodies, meta.StepsTaken)

	energies := make([]float64, len(energyRows))
	for i, r := range energyRows {
		energies[i] = r.Energy
	}
	if drift, err := analysis.Drift(energies); err == nil {
		logger.Debug("energy drift", "run", runID, "drift", drift)
		fmt.Println("relative energy error:")
		fmt.Printf("  mean    %.3e\n", drift.Mean)
		fmt.Printf("  stddev  %.3e\n", drift.StdDev)
		fmt.Printf("  max     %.3e\n", drift.MaxAbs)
		fmt.Printf("  final   %.3e\n\n", drift.Final)
	} else {
		fmt.Printf("energy: %v\n\n", err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "BODY\tSAMPLES\tPERIOD (FFT)\tPERIOD (CROSSING)")
	for _, track := range storage.Tracks(trajectory) {
		times := make([]float64, len(track.Rows))
		xs := make([]float64, len(track.Rows))
		for i, r := range track.Rows {
			times[i] = r.Time
			xs[i] = r.X
		}
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\n", track.Label(), len(track.Rows),
			period(analysis.EstimatePeriod(times, xs)),
			period(analysis.CrossingPeriod(times, xs)))
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if lyapunovSteps > 0 {
		cp, err := st.LoadCheckpoint(runID)
		if err != nil {
			return err
		}
		build := func() (*kosmos.Kosmos, error) { return cp.Build(logger) }
		lambda, err := analysis.LyapunovExponent(build, cp.Dt, lyapunovSteps, lyapunovDelta)
		if err != nil {
			return err
		}
		fmt.Printf("\nlyapunov exponent: %.4e (over %d steps from the checkpoint)\n", lambda, lyapunovSteps)
	}

	return nil
}

func period(p float64, err error) string {
	if err != nil {
		return "-"
	}
	return fmt.Sprintf("%.6g", p)
}

func exportRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runID, err := st.Resolve(args[0])
	if err != nil {
		return err
	}

	if exportOut == "" {
		return st.ExportJSON(os.Stdout, runID)
	}

	f, err := os.Create(exportOut)
	if err != nil {
		return err
	}
	if err := st.ExportJSON(f, runID); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "exported %s to %s\n", runID, exportOut)
	return nil
}
