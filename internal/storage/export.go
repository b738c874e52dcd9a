package storage

import (
	"encoding/json"
	"io"
)

type ExportBody struct {
	ID       uint64     `json:"id"`
	Name     string     `json:"name,omitempty"`
	Position [3]float64 `json:"position"`
	Velocity [3]float64 `json:"velocity"`
}

type ExportSample struct {
	Step   int          `json:"step"`
	Time   float64      `json:"time"`
	Energy float64      `json:"energy"`
	Bodies []ExportBody `json:"bodies"`
}

type ExportData struct {
	Run     RunMetadata    `json:"run"`
	Samples []ExportSample `json:"samples"`
}

// ExportJSON writes a stored run as a single JSON document.
func (s *Store) ExportJSON(w io.Writer, runID string) error {
	meta, err := s.Load(runID)
	if err != nil {
		return err
	}
	rows, err := s.LoadTrajectory(runID)
	if err != nil {
		return err
	}
	energies, err := s.LoadEnergy(runID)
	if err != nil {
		return err
	}

	energyAt := make(map[int]float64, len(energies))
	for _, e := range energies {
		energyAt[e.Step] = e.Energy
	}

	data := ExportData{Run: *meta, Samples: make([]ExportSample, 0, len(energies))}
	for _, row := range rows {
		n := len(data.Samples)
		if n == 0 || data.Samples[n-1].Step != row.Step {
			data.Samples = append(data.Samples, ExportSample{
				Step:   row.Step,
				Time:   row.Time,
				Energy: energyAt[row.Step],
			})
			n++
		}
		data.Samples[n-1].Bodies = append(data.Samples[n-1].Bodies, ExportBody{
			ID:       row.ID,
			Name:     row.Name,
			Position: [3]float64{row.X, row.Y, row.Z},
			Velocity: [3]float64{row.VX, row.VY, row.VZ},
		})
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}
