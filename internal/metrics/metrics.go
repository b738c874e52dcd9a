// Package metrics provides kosmos.Metric observers for conservation and
// boundedness checks.
package metrics

import (
	"sort"
	"strings"

	"github.com/san-kum/kosmos/internal/dynamo"
	"github.com/san-kum/kosmos/internal/kosmos"
)

// Starter is implemented by metrics that take a reference value from the
// initial state before any step runs.
type Starter interface {
	Start(k *kosmos.Kosmos)
}

var registry = map[string]func() kosmos.Metric{
	"energy":         func() kosmos.Metric { return NewEnergy() },
	"energy_drift":   func() kosmos.Metric { return NewEnergyDrift() },
	"momentum_drift": func() kosmos.Metric { return NewMomentumDrift() },
	"com_drift":      func() kosmos.Metric { return NewCenterOfMassDrift() },
}

// New builds a metric by name. Stability needs a radius and is not listed.
func New(name string) (kosmos.Metric, error) {
	fn, ok := registry[strings.ToLower(name)]
	if !ok {
		return nil, dynamo.Invalid("unknown metric %q (available: %s)", name, strings.Join(Names(), ", "))
	}
	return fn(), nil
}

func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Conservation returns the drift metrics every run reports.
func Conservation() []kosmos.Metric {
	return []kosmos.Metric{NewEnergyDrift(), NewMomentumDrift(), NewCenterOfMassDrift()}
}
