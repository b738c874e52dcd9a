// Package config describes simulation scenarios: the physics of a Kosmos,
// its initial bodies and how long to run it. Scenarios are YAML files or
// built-in presets.
package config

import (
	"fmt"
	"log/slog"
	"math"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/kosmos/internal/body"
	"github.com/san-kum/kosmos/internal/dynamo"
	"github.com/san-kum/kosmos/internal/integrators"
	"github.com/san-kum/kosmos/internal/kosmos"
	"github.com/san-kum/kosmos/internal/units"
	"github.com/san-kum/kosmos/internal/vec"
)

const (
	DefaultDt          = 0.001
	DefaultSteps       = 1000
	DefaultSampleEvery = 10
	DefaultTheta       = 0.5
)

type Config struct {
	Name        string  `yaml:"name"`
	Description string  `yaml:"description,omitempty"`
	Units       string  `yaml:"units,omitempty"`
	G           float64 `yaml:"g,omitempty"`
	Softening   float64 `yaml:"softening"`
	Integrator  string  `yaml:"integrator"`
	Evaluator   string  `yaml:"evaluator"`
	Theta       float64 `yaml:"theta,omitempty"`
	Workers     int     `yaml:"workers,omitempty"`
	Dt          float64 `yaml:"dt"`
	Steps       int     `yaml:"steps"`
	SampleEvery int     `yaml:"sample_every,omitempty"`
	// Time, StepsDone and NextID are set when the scenario is a checkpoint.
	Time      float64      `yaml:"time,omitempty"`
	StepsDone int          `yaml:"steps_done,omitempty"`
	NextID    uint64       `yaml:"next_id,omitempty"`
	Bodies    []BodyConfig `yaml:"bodies"`
}

type BodyConfig struct {
	ID       uint64     `yaml:"id,omitempty"`
	Name     string     `yaml:"name,omitempty"`
	Mass     float64    `yaml:"mass"`
	Position [3]float64 `yaml:"position,flow"`
	Velocity [3]float64 `yaml:"velocity,flow"`
}

func DefaultConfig() *Config {
	return &Config{
		Name:        "custom",
		Units:       units.NBody.Name,
		Integrator:  integrators.Default,
		Evaluator:   "direct",
		Theta:       DefaultTheta,
		Dt:          DefaultDt,
		Steps:       DefaultSteps,
		SampleEvery: DefaultSampleEvery,
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// System resolves the unit system named by Units.
func (c *Config) System() (units.System, error) {
	return units.Lookup(c.Units)
}

// GravConst is G when set explicitly, otherwise the unit system's value.
func (c *Config) GravConst() float64 {
	if c.G > 0 {
		return c.G
	}
	sys, err := c.System()
	if err != nil {
		return 0
	}
	return sys.G
}

func (c *Config) Validate() error {
	if _, err := c.System(); err != nil {
		return err
	}
	if math.IsNaN(c.G) || c.G < 0 {
		return dynamo.Invalid("g must be positive, got %g", c.G)
	}
	if _, err := integrators.Lookup(c.Integrator); err != nil {
		return err
	}
	if math.IsNaN(c.Dt) || math.IsInf(c.Dt, 0) || c.Dt <= 0 {
		return dynamo.Invalid("dt must be positive and finite, got %g", c.Dt)
	}
	if c.Steps < 0 {
		return dynamo.Invalid("steps must be non-negative, got %d", c.Steps)
	}
	if c.SampleEvery < 0 {
		return dynamo.Invalid("sample_every must be non-negative, got %d", c.SampleEvery)
	}
	for i, b := range c.Bodies {
		if _, err := b.body(); err != nil {
			return fmt.Errorf("body %d (%s): %w", i, b.Name, err)
		}
	}
	return nil
}

func (b BodyConfig) body() (body.Body, error) {
	nb, err := body.New(b.Mass, vec.FromArray(b.Position), vec.FromArray(b.Velocity))
	if err != nil {
		return body.Body{}, err
	}
	return nb.WithName(b.Name).WithID(body.ID(b.ID)), nil
}

func (c *Config) KosmosConfig(logger *slog.Logger) kosmos.Config {
	return kosmos.Config{
		G:          c.GravConst(),
		Softening:  c.Softening,
		Integrator: c.Integrator,
		Evaluator:  c.Evaluator,
		Theta:      c.Theta,
		Workers:    c.Workers,
		Logger:     logger,
	}
}

func (c *Config) Snapshot() kosmos.Snapshot {
	s := kosmos.Snapshot{
		G:         c.GravConst(),
		Softening: c.Softening,
		Time:      c.Time,
		Steps:     c.StepsDone,
		Bodies:    make([]body.Snapshot, len(c.Bodies)),
		NextID:    body.ID(c.NextID),
	}
	for i, b := range c.Bodies {
		s.Bodies[i] = body.Snapshot{
			ID:       body.ID(b.ID),
			Name:     b.Name,
			Mass:     b.Mass,
			Position: vec.FromArray(b.Position),
			Velocity: vec.FromArray(b.Velocity),
		}
	}
	return s
}

// Build validates the scenario and returns a Kosmos holding its bodies.
func (c *Config) Build(logger *slog.Logger) (*kosmos.Kosmos, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return kosmos.Restore(c.KosmosConfig(logger), c.Snapshot())
}

// Checkpoint returns a copy of c whose bodies and clock are the current
// state of k. Loading it and running continues where k stopped.
func (c *Config) Checkpoint(k *kosmos.Kosmos) *Config {
	cp := *c
	cp.G = k.G()
	cp.Softening = k.Softening()
	cp.Time = k.Time()
	cp.StepsDone = k.Steps()
	cp.NextID = uint64(k.Snapshot().NextID)
	cp.Bodies = make([]BodyConfig, 0, k.BodyCount())
	for b := range k.Bodies() {
		cp.Bodies = append(cp.Bodies, BodyConfig{
			ID:       uint64(b.ID),
			Name:     b.Name,
			Mass:     b.Mass,
			Position: vec.Array(b.Position),
			Velocity: vec.Array(b.Velocity),
		})
	}
	return &cp
}

func (c *Config) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("name", c.Name),
		slog.String("integrator", c.Integrator),
		slog.String("evaluator", c.Evaluator),
		slog.Float64("g", c.GravConst()),
		slog.Float64("softening", c.Softening),
		slog.Float64("dt", c.Dt),
		slog.Int("steps", c.Steps),
		slog.Int("bodies", len(c.Bodies)),
	)
}

// Tunable lists the numeric fields Set accepts.
var Tunable = []string{"dt", "g", "softening", "theta"}

// Set assigns a numeric scenario field by name. The result is not
// validated; call Validate before building.
func (c *Config) Set(name string, value float64) error {
	switch strings.ToLower(name) {
	case "dt":
		c.Dt = value
	case "g":
		c.G = value
	case "softening":
		c.Softening = value
	case "theta":
		c.Theta = value
	default:
		return dynamo.Invalid("unknown parameter %q (want one of %s)", name, strings.Join(Tunable, ", "))
	}
	return nil
}

// Duration is the simulated time the scenario covers.
func (c *Config) Duration() float64 {
	return c.Dt * float64(c.Steps)
}
