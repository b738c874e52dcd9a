package config

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/san-kum/kosmos/internal/body"
	"github.com/san-kum/kosmos/internal/dynamo"
	"github.com/san-kum/kosmos/internal/units"
	"github.com/san-kum/kosmos/internal/vec"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Integrator != "verlet" {
		t.Errorf("expected integrator verlet, got %s", cfg.Integrator)
	}
	if cfg.Dt <= 0 {
		t.Error("dt should be positive")
	}
	if cfg.GravConst() != 1 {
		t.Errorf("default units should give G = 1, got %v", cfg.GravConst())
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func TestPresetsBuild(t *testing.T) {
	for _, name := range ListPresets() {
		t.Run(name, func(t *testing.T) {
			cfg := GetPreset(name)
			if cfg == nil {
				t.Fatal("expected preset, got nil")
			}
			if cfg.Name != name {
				t.Errorf("preset name %q", cfg.Name)
			}
			k, err := cfg.Build(nil)
			if err != nil {
				t.Fatalf("Build: %v", err)
			}
			if k.BodyCount() != len(cfg.Bodies) {
				t.Errorf("%d bodies, want %d", k.BodyCount(), len(cfg.Bodies))
			}
			if err := k.Run(cfg.Dt, 3); err != nil {
				t.Errorf("Run: %v", err)
			}
		})
	}
}

func TestGetPreset_NotFound(t *testing.T) {
	if cfg := GetPreset("nonexistent"); cfg != nil {
		t.Error("expected nil for nonexistent preset")
	}
}

func TestPresetsAreFresh(t *testing.T) {
	a := GetPreset("binary")
	a.Bodies[0].Mass = 99
	if b := GetPreset("binary"); b.Bodies[0].Mass != 1 {
		t.Error("presets share state")
	}
}

func TestBinaryEnergy(t *testing.T) {
	k, err := Binary().Build(nil)
	if err != nil {
		t.Fatal(err)
	}
	if e := k.TotalEnergy(); math.Abs(e+0.5) > 1e-12 {
		t.Errorf("binary energy = %v, want -0.5", e)
	}
}

func TestFigureEightMomentum(t *testing.T) {
	k, err := FigureEight().Build(nil)
	if err != nil {
		t.Fatal(err)
	}
	if p := vec.Norm(k.TotalMomentum()); p > 1e-15 {
		t.Errorf("figure-eight momentum = %v", p)
	}
}

func TestEarthSunUsesSI(t *testing.T) {
	cfg := EarthSun()
	if cfg.GravConst() != units.G {
		t.Errorf("G = %v", cfg.GravConst())
	}
	if cfg.Steps*int(cfg.Dt) != 365*int(units.Day) {
		t.Errorf("earth-sun should span one year")
	}
}

func TestShells(t *testing.T) {
	cfg := Shells(33)
	if len(cfg.Bodies) != 33 {
		t.Fatalf("got %d bodies", len(cfg.Bodies))
	}
	for i, b := range cfg.Bodies[1:] {
		r := vec.Norm(vec.FromArray(b.Position))
		v := vec.Norm(vec.FromArray(b.Velocity))
		if r < units.AU*0.999 || r > units.AU*1.901 {
			t.Errorf("body %d at %g AU", i+1, r/units.AU)
		}
		if want := math.Sqrt(units.G * units.SolarMass / r); math.Abs(v-want) > 1e-6*want {
			t.Errorf("body %d speed %v, want %v", i+1, v, want)
		}
	}
	if got := len(Shells(0).Bodies); got != 1 {
		t.Errorf("Shells(0) has %d bodies", got)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero dt", func(c *Config) { c.Dt = 0 }},
		{"negative dt", func(c *Config) { c.Dt = -1 }},
		{"negative steps", func(c *Config) { c.Steps = -1 }},
		{"negative sample", func(c *Config) { c.SampleEvery = -2 }},
		{"unknown units", func(c *Config) { c.Units = "furlongs" }},
		{"unknown integrator", func(c *Config) { c.Integrator = "yoshida" }},
		{"zero mass", func(c *Config) { c.Bodies[0].Mass = 0 }},
		{"negative G", func(c *Config) { c.G = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Binary()
			tt.mutate(cfg)
			if err := cfg.Validate(); !errors.Is(err, dynamo.ErrInvalidParameter) {
				t.Errorf("expected ErrInvalidParameter, got %v", err)
			}
			if _, err := cfg.Build(nil); err == nil {
				t.Error("Build accepted invalid config")
			}
		})
	}
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	cfg := SolarSystem()
	if err := Save(path, cfg); err != nil {
		t.Fatal(err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Name != cfg.Name || loaded.Dt != cfg.Dt || len(loaded.Bodies) != len(cfg.Bodies) {
		t.Errorf("loaded %+v", loaded)
	}
	if loaded.Bodies[4] != cfg.Bodies[4] {
		t.Errorf("moon = %+v, want %+v", loaded.Bodies[4], cfg.Bodies[4])
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "min.yaml")
	doc := `name: pair
bodies:
  - {mass: 1, position: [1, 0, 0], velocity: [0, 0.5, 0]}
  - {mass: 1, position: [-1, 0, 0], velocity: [0, -0.5, 0]}
`
	if err := os.WriteFile(path, []byte(doc), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Dt != DefaultDt || cfg.Steps != DefaultSteps || cfg.Integrator != "verlet" {
		t.Errorf("defaults not applied: %+v", cfg)
	}
	if cfg.GravConst() != 1 {
		t.Errorf("G = %v", cfg.GravConst())
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	os.WriteFile(path, []byte("dt: -1\n"), 0644)
	if _, err := Load(path); !errors.Is(err, dynamo.ErrInvalidParameter) {
		t.Errorf("expected ErrInvalidParameter, got %v", err)
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected ErrNotExist, got %v", err)
	}
}

func TestCheckpointResumes(t *testing.T) {
	cfg := FigureEight()
	k, err := cfg.Build(nil)
	if err != nil {
		t.Fatal(err)
	}
	k.Run(cfg.Dt, 100)

	path := filepath.Join(t.TempDir(), "checkpoint.yaml")
	if err := Save(path, cfg.Checkpoint(k)); err != nil {
		t.Fatal(err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	r, err := loaded.Build(nil)
	if err != nil {
		t.Fatal(err)
	}

	if r.Time() != k.Time() || r.Steps() != 100 {
		t.Errorf("clock not restored: %v %d", r.Time(), r.Steps())
	}
	if r.IDs()[2] != k.IDs()[2] {
		t.Errorf("ids not restored")
	}

	k.Run(cfg.Dt, 50)
	r.Run(cfg.Dt, 50)
	a, b := k.Snapshot(), r.Snapshot()
	for i := range a.Bodies {
		if a.Bodies[i] != b.Bodies[i] {
			t.Fatalf("body %d diverged after resume", i)
		}
	}
}

func TestCheckpointKeepsRetiredIDs(t *testing.T) {
	cfg := FigureEight()
	k, err := cfg.Build(nil)
	if err != nil {
		t.Fatal(err)
	}
	ids := k.IDs()
	last := ids[len(ids)-1]
	if err := k.RemoveBody(last); err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(t.TempDir(), "checkpoint.yaml")
	if err := Save(path, cfg.Checkpoint(k)); err != nil {
		t.Fatal(err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.NextID != uint64(last)+1 {
		t.Errorf("next_id = %d, want %d", loaded.NextID, uint64(last)+1)
	}
	r, err := loaded.Build(nil)
	if err != nil {
		t.Fatal(err)
	}

	id, err := r.AddBody(body.MustNew(1, vec.Zero, vec.Zero))
	if err != nil {
		t.Fatal(err)
	}
	if id <= last {
		t.Errorf("resumed scenario issued id %v, removed id was %v", id, last)
	}
}

func TestSet(t *testing.T) {
	cfg := Binary()
	tests := []struct {
		name  string
		value float64
		get   func() float64
	}{
		{"dt", 0.01, func() float64 { return cfg.Dt }},
		{"G", 2, func() float64 { return cfg.G }},
		{"softening", 0.05, func() float64 { return cfg.Softening }},
		{"theta", 0.3, func() float64 { return cfg.Theta }},
	}
	for _, tt := range tests {
		if err := cfg.Set(tt.name, tt.value); err != nil {
			t.Fatalf("Set(%s): %v", tt.name, err)
		}
		if got := tt.get(); got != tt.value {
			t.Errorf("%s = %v, want %v", tt.name, got, tt.value)
		}
	}

	if err := cfg.Set("mass", 1); !errors.Is(err, dynamo.ErrInvalidParameter) {
		t.Errorf("unknown parameter: got %v", err)
	}
	if d := cfg.Duration(); math.Abs(d-0.01*float64(cfg.Steps)) > 1e-12 {
		t.Errorf("Duration() = %v", d)
	}
}
