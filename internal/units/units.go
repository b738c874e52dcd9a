// Package units holds physical constants and the unit systems a Kosmos can
// be configured in. Nothing here is global state: a System is a value the
// caller passes G from.
package units

import (
	"sort"
	"strings"

	"github.com/san-kum/kosmos/internal/dynamo"
)

const (
	// G is the gravitational constant in m³ kg⁻¹ s⁻².
	G = 6.67430e-11
	// AU is the astronomical unit in metres.
	AU = 1.496e11
	// Day is one day in seconds.
	Day = 86400.0
	// Year is 365 days in seconds.
	Year = 365 * Day

	SolarMass = 1.989e30
	EarthMass = 5.972e24
	LunarMass = 7.342e22
)

// System is a consistent set of length, time and mass units together with
// the value of G they imply. Scale factors convert one unit to SI.
type System struct {
	Name       string
	G          float64
	Length     float64
	Time       float64
	Mass       float64
	LengthUnit string
	TimeUnit   string
	MassUnit   string
}

var (
	SI = System{
		Name: "si", G: G,
		Length: 1, Time: 1, Mass: 1,
		LengthUnit: "m", TimeUnit: "s", MassUnit: "kg",
	}

	// AUDay measures length in AU, time in days and mass in solar masses.
	AUDay = System{
		Name: "au-day", G: G * SolarMass * Day * Day / (AU * AU * AU),
		Length: AU, Time: Day, Mass: SolarMass,
		LengthUnit: "AU", TimeUnit: "d", MassUnit: "M☉",
	}

	// NBody is the dimensionless system with G = 1.
	NBody = System{
		Name: "nbody", G: 1,
		Length: 1, Time: 1, Mass: 1,
		LengthUnit: "L", TimeUnit: "T", MassUnit: "M",
	}
)

var systems = map[string]System{
	SI.Name:    SI,
	AUDay.Name: AUDay,
	NBody.Name: NBody,
}

// Lookup finds a system by name. The empty name selects SI.
func Lookup(name string) (System, error) {
	if name == "" {
		return SI, nil
	}
	s, ok := systems[strings.ToLower(name)]
	if !ok {
		return System{}, dynamo.Invalid("unknown unit system %q (available: %s)", name, strings.Join(Names(), ", "))
	}
	return s, nil
}

func Names() []string {
	names := make([]string, 0, len(systems))
	for name := range systems {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (s System) LengthToSI(x float64) float64 { return x * s.Length }
func (s System) TimeToSI(t float64) float64   { return t * s.Time }
func (s System) MassToSI(m float64) float64   { return m * s.Mass }

// EnergyToSI converts an energy M L² T⁻² to joules.
func (s System) EnergyToSI(e float64) float64 {
	return e * s.Mass * s.Length * s.Length / (s.Time * s.Time)
}

func (s System) String() string { return s.Name }
