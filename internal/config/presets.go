package config

import (
	"math"
	"sort"

	"github.com/san-kum/kosmos/internal/units"
)

// DefaultShells is the body count of the shells preset.
const DefaultShells = 256

var Presets = map[string]func() *Config{
	"earth-sun":    EarthSun,
	"solar-system": SolarSystem,
	"binary":       Binary,
	"figure-eight": FigureEight,
	"shells":       func() *Config { return Shells(DefaultShells) },
}

// GetPreset returns a fresh copy of a preset scenario, or nil.
func GetPreset(name string) *Config {
	fn, ok := Presets[name]
	if !ok {
		return nil
	}
	return fn()
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func circular(name string, mass, radius, speed float64) BodyConfig {
	return BodyConfig{
		Name:     name,
		Mass:     mass,
		Position: [3]float64{radius, 0, 0},
		Velocity: [3]float64{0, speed, 0},
	}
}

// EarthSun is one year of the Earth around the Sun in SI units at a one
// hour step.
func EarthSun() *Config {
	return &Config{
		Name:        "earth-sun",
		Description: "Earth orbiting the Sun for one year",
		Units:       units.SI.Name,
		Integrator:  "verlet",
		Evaluator:   "direct",
		Dt:          3600,
		Steps:       8760,
		SampleEvery: 24,
		Bodies: []BodyConfig{
			{Name: "Sun", Mass: units.SolarMass},
			circular("Earth", units.EarthMass, units.AU, 29780),
		},
	}
}

// SolarSystem is the Sun, the eight planets and the Moon, all starting on
// the +x axis, stepped one day at a time for ten years.
func SolarSystem() *Config {
	const moonRadius = 3.844e8
	return &Config{
		Name:        "solar-system",
		Description: "Sun, eight planets and the Moon",
		Units:       units.SI.Name,
		Integrator:  "verlet",
		Evaluator:   "direct",
		Dt:          units.Day,
		Steps:       3653,
		SampleEvery: 10,
		Bodies: []BodyConfig{
			{Name: "Sun", Mass: units.SolarMass},
			circular("Mercury", 3.285e23, 0.387*units.AU, 47870),
			circular("Venus", 4.867e24, 0.723*units.AU, 35020),
			circular("Earth", units.EarthMass, units.AU, 29780),
			circular("Moon", units.LunarMass, units.AU+moonRadius, 29780+1022),
			circular("Mars", 6.417e23, 1.524*units.AU, 24070),
			circular("Jupiter", 1.898e27, 5.203*units.AU, 13070),
			circular("Saturn", 5.683e26, 9.537*units.AU, 9690),
			circular("Uranus", 8.681e25, 19.191*units.AU, 6800),
			circular("Neptune", 1.024e26, 30.069*units.AU, 5430),
		},
	}
}

// Binary is two unit masses on a circular orbit of unit separation with
// G = 1, run for ten periods of π√2.
func Binary() *Config {
	period := math.Pi * math.Sqrt2
	v := math.Sqrt2 / 2
	return &Config{
		Name:        "binary",
		Description: "equal-mass circular binary, G = 1",
		Units:       units.NBody.Name,
		Integrator:  "verlet",
		Evaluator:   "direct",
		Dt:          period / 1000,
		Steps:       10000,
		SampleEvery: 10,
		Bodies: []BodyConfig{
			{Name: "A", Mass: 1, Position: [3]float64{0.5, 0, 0}, Velocity: [3]float64{0, v, 0}},
			{Name: "B", Mass: 1, Position: [3]float64{-0.5, 0, 0}, Velocity: [3]float64{0, -v, 0}},
		},
	}
}

// FigureEight is the three-body choreography in which equal masses chase
// each other around a figure eight. Period ≈ 6.3259.
func FigureEight() *Config {
	const p1, p2 = 0.347111, 0.532728
	return &Config{
		Name:        "figure-eight",
		Description: "three-body figure-eight choreography, G = 1",
		Units:       units.NBody.Name,
		Integrator:  "verlet",
		Evaluator:   "direct",
		Dt:          0.001,
		Steps:       6326,
		SampleEvery: 10,
		Bodies: []BodyConfig{
			{Name: "A", Mass: 1, Position: [3]float64{-1, 0, 0}, Velocity: [3]float64{p1, p2, 0}},
			{Name: "B", Mass: 1, Position: [3]float64{1, 0, 0}, Velocity: [3]float64{p1, p2, 0}},
			{Name: "C", Mass: 1, Position: [3]float64{0, 0, 0}, Velocity: [3]float64{-2 * p1, -2 * p2, 0}},
		},
	}
}

// Shells is a central solar mass orbited by n-1 Earth-like bodies spread
// over four circular shells between 1 and 1.9 AU.
func Shells(n int) *Config {
	if n < 1 {
		n = 1
	}
	cfg := &Config{
		Name:        "shells",
		Description: "central mass with orbiting shells",
		Units:       units.SI.Name,
		Softening:   1e6,
		Integrator:  "verlet",
		Evaluator:   "direct",
		Theta:       DefaultTheta,
		Dt:          3600,
		Steps:       100,
		SampleEvery: 10,
		Bodies:      make([]BodyConfig, 0, n),
	}
	cfg.Bodies = append(cfg.Bodies, BodyConfig{Name: "Sun", Mass: units.SolarMass})

	for i := 1; i < n; i++ {
		radius := units.AU * (1 + 0.3*float64(i%4))
		angle := 2 * math.Pi * float64(i) / float64(n-1)
		speed := math.Sqrt(units.G * units.SolarMass / radius)
		sin, cos := math.Sincos(angle)

		cfg.Bodies = append(cfg.Bodies, BodyConfig{
			Mass:     units.EarthMass * (0.5 + float64(i%3)*0.3),
			Position: [3]float64{radius * cos, radius * sin, 0},
			Velocity: [3]float64{-speed * sin, speed * cos, 0},
		})
	}
	return cfg
}
