package main

import (
	"bytes"
	"slices"
	"strings"
	"testing"

	"github.com/san-kum/kosmos/internal/config"
	"github.com/san-kum/kosmos/internal/storage"
)

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	l, err := newLogger(&buf, "json", "info")
	if err != nil {
		t.Fatal(err)
	}
	l.Debug("hidden")
	l.Info("shown", "bodies", 3)
	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("debug record written at info level")
	}
	if !strings.Contains(out, `"bodies":3`) {
		t.Errorf("json record missing attribute: %s", out)
	}

	if _, err := newLogger(&buf, "xml", "info"); err == nil {
		t.Error("unknown format accepted")
	}
	if _, err := newLogger(&buf, "text", "loud"); err == nil {
		t.Error("unknown level accepted")
	}
}

func TestWorkerCounts(t *testing.T) {
	tests := []struct {
		n    int
		want []int
	}{
		{1, []int{1}},
		{2, []int{1, 2}},
		{6, []int{1, 2, 4, 6}},
		{8, []int{1, 2, 4, 8}},
	}
	for _, tt := range tests {
		if got := workerCounts(tt.n); !slices.Equal(got, tt.want) {
			t.Errorf("workerCounts(%d) = %v, want %v", tt.n, got, tt.want)
		}
	}
}

func TestRelativeErrors(t *testing.T) {
	rows := []*storage.EnergyRow{{Energy: -2}, {Energy: -2.002}, {Energy: -1.999}}
	got := relativeErrors(rows)
	want := []float64{0, 1e-3, 5e-4}
	for i := range want {
		if d := got[i] - want[i]; d > 1e-12 || d < -1e-12 {
			t.Errorf("relativeErrors[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestApplyFlags(t *testing.T) {
	cmd := newRunCmd()
	if err := cmd.Flags().Set("dt", "0.5"); err != nil {
		t.Fatal(err)
	}
	if err := cmd.Flags().Set("integrator", "rk4"); err != nil {
		t.Fatal(err)
	}

	cfg := config.Binary()
	steps := cfg.Steps
	if err := applyFlags(cmd, cfg); err != nil {
		t.Fatal(err)
	}
	if cfg.Dt != 0.5 || cfg.Integrator != "rk4" {
		t.Errorf("overrides not applied: dt=%v integrator=%s", cfg.Dt, cfg.Integrator)
	}
	if cfg.Steps != steps {
		t.Errorf("unset flag changed steps to %d", cfg.Steps)
	}

	cmd = newRunCmd()
	if err := cmd.Flags().Set("integrator", "leapfrog2000"); err != nil {
		t.Fatal(err)
	}
	if err := applyFlags(cmd, config.Binary()); err == nil {
		t.Error("unknown integrator accepted")
	}
}

func TestLoadScenario(t *testing.T) {
	st := storage.New(t.TempDir())

	cfg, err := loadScenario(st, []string{"figure-eight"})
	if err != nil {
		t.Fatal(err)
	}
	if len(cfg.Bodies) != 3 {
		t.Errorf("figure-eight has %d bodies", len(cfg.Bodies))
	}

	if _, err := loadScenario(st, []string{"nope"}); err == nil {
		t.Error("unknown preset accepted")
	}
	if _, err := loadScenario(st, nil); err == nil {
		t.Error("missing scenario accepted")
	}
}

func TestParseGrid(t *testing.T) {
	names, ranges, err := parseGrid([]string{"dt=0.01,0.02", "theta= 0.3, 0.5 ,0.7"})
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(names, []string{"dt", "theta"}) {
		t.Errorf("names = %v", names)
	}
	if !slices.Equal(ranges[0], []float64{0.01, 0.02}) || !slices.Equal(ranges[1], []float64{0.3, 0.5, 0.7}) {
		t.Errorf("ranges = %v", ranges)
	}

	for _, bad := range []string{"dt", "=1", "dt=", "dt=1,x"} {
		if _, _, err := parseGrid([]string{bad}); err == nil {
			t.Errorf("parseGrid(%q) accepted", bad)
		}
	}
}

func TestFormatParams(t *testing.T) {
	if got := formatParams(map[string]float64{"theta": 0.5, "dt": 0.01}); got != "dt=0.01 theta=0.5" {
		t.Errorf("formatParams = %q", got)
	}
}
