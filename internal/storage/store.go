// Package storage persists runs under a data directory. Each run gets its
// own directory holding metadata.json, trajectory.csv, energy.csv and a
// checkpoint.yaml scenario that resumes the run.
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/google/uuid"

	"github.com/san-kum/kosmos/internal/config"
	"github.com/san-kum/kosmos/internal/dynamo"
	"github.com/san-kum/kosmos/internal/sim"
)

const (
	metadataFile   = "metadata.json"
	trajectoryFile = "trajectory.csv"
	energyFile     = "energy.csv"
	checkpointFile = "checkpoint.yaml"
)

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

func (s *Store) Dir(runID string) string {
	return filepath.Join(s.baseDir, runID)
}

type RunMetadata struct {
	ID          string             `json:"id"`
	Scenario    string             `json:"scenario"`
	Timestamp   time.Time          `json:"timestamp"`
	Units       string             `json:"units"`
	G           float64            `json:"g"`
	Softening   float64            `json:"softening"`
	Integrator  string             `json:"integrator"`
	Evaluator   string             `json:"evaluator"`
	Theta       float64            `json:"theta,omitempty"`
	Workers     int                `json:"workers,omitempty"`
	Dt          float64            `json:"dt"`
	Steps       int                `json:"steps"`
	StepsTaken  int                `json:"steps_taken"`
	SampleEvery int                `json:"sample_every"`
	Bodies      int                `json:"bodies"`
	EnergyDrift float64            `json:"energy_drift"`
	ElapsedSec  float64            `json:"elapsed_sec"`
	Error       string             `json:"error,omitempty"`
	Metrics     map[string]float64 `json:"metrics"`
}

// TrajectoryRow is one body at one sampled step.
type TrajectoryRow struct {
	Step int     `csv:"step"`
	Time float64 `csv:"time"`
	ID   uint64  `csv:"id"`
	Name string  `csv:"name"`
	X    float64 `csv:"x"`
	Y    float64 `csv:"y"`
	Z    float64 `csv:"z"`
	VX   float64 `csv:"vx"`
	VY   float64 `csv:"vy"`
	VZ   float64 `csv:"vz"`
}

type EnergyRow struct {
	Step   int     `csv:"step"`
	Time   float64 `csv:"time"`
	Energy float64 `csv:"energy"`
}

// Record is everything a finished or stopped run leaves behind.
type Record struct {
	Scenario   *config.Config
	Result     *sim.Result
	Checkpoint *config.Config
	// RunErr is the error that stopped the run early, if any.
	RunErr error
}

// Save writes a run and returns its id.
func (s *Store) Save(rec Record) (string, error) {
	cfg, result := rec.Scenario, rec.Result
	if cfg == nil || result == nil {
		return "", dynamo.Invalid("record needs a scenario and a result")
	}

	runID := fmt.Sprintf("%s-%s", cfg.Name, uuid.NewString()[:8])
	runDir := s.Dir(runID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	meta := RunMetadata{
		ID:          runID,
		Scenario:    cfg.Name,
		Timestamp:   time.Now(),
		Units:       cfg.Units,
		G:           cfg.GravConst(),
		Softening:   cfg.Softening,
		Integrator:  cfg.Integrator,
		Evaluator:   cfg.Evaluator,
		Theta:       cfg.Theta,
		Workers:     cfg.Workers,
		Dt:          cfg.Dt,
		Steps:       cfg.Steps,
		StepsTaken:  result.StepsTaken,
		SampleEvery: cfg.SampleEvery,
		Bodies:      len(result.Final().Bodies),
		EnergyDrift: result.EnergyDrift,
		ElapsedSec:  result.Elapsed.Seconds(),
		Metrics:     result.Metrics,
	}
	if rec.RunErr != nil {
		meta.Error = rec.RunErr.Error()
	}

	if err := writeRun(runDir, meta, rec); err != nil {
		os.RemoveAll(runDir)
		return "", fmt.Errorf("save run %s: %w", runID, err)
	}
	return runID, nil
}

func writeRun(runDir string, meta RunMetadata, rec Record) error {
	if err := writeJSON(filepath.Join(runDir, metadataFile), meta); err != nil {
		return err
	}
	if err := writeCSV(filepath.Join(runDir, trajectoryFile), trajectoryRows(rec.Result)); err != nil {
		return err
	}
	if err := writeCSV(filepath.Join(runDir, energyFile), energyRows(rec.Result)); err != nil {
		return err
	}
	if rec.Checkpoint != nil {
		return config.Save(filepath.Join(runDir, checkpointFile), rec.Checkpoint)
	}
	return nil
}

func trajectoryRows(result *sim.Result) []*TrajectoryRow {
	n := 0
	for _, smp := range result.Samples {
		n += len(smp.Bodies)
	}
	rows := make([]*TrajectoryRow, 0, n)
	for _, smp := range result.Samples {
		for _, b := range smp.Bodies {
			rows = append(rows, &TrajectoryRow{
				Step: smp.Step,
				Time: smp.Time,
				ID:   uint64(b.ID),
				Name: b.Name,
				X:    b.Position.X,
				Y:    b.Position.Y,
				Z:    b.Position.Z,
				VX:   b.Velocity.X,
				VY:   b.Velocity.Y,
				VZ:   b.Velocity.Z,
			})
		}
	}
	return rows
}

func energyRows(result *sim.Result) []*EnergyRow {
	rows := make([]*EnergyRow, len(result.Samples))
	for i, smp := range result.Samples {
		rows[i] = &EnergyRow{Step: smp.Step, Time: smp.Time, Energy: smp.Energy}
	}
	return rows
}

func writeJSON(path string, v any) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeCSV[T any](path string, rows []*T) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return gocsv.Marshal(rows, f)
}

func readCSV[T any](path string) ([]*T, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var rows []*T
	if err := gocsv.Unmarshal(f, &rows); err != nil {
		if errors.Is(err, gocsv.ErrEmptyCSVFile) {
			return []*T{}, nil
		}
		return nil, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	return rows, nil
}

// List returns every stored run, newest first.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}

	sort.Slice(runs, func(i, j int) bool {
		return runs[i].Timestamp.After(runs[j].Timestamp)
	})
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.Dir(runID), metadataFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: run %q", dynamo.ErrNotFound, runID)
		}
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}

	return &meta, nil
}

// Resolve accepts a full run id, a unique prefix of one, or "latest".
func (s *Store) Resolve(ref string) (string, error) {
	runs, err := s.List()
	if err != nil {
		return "", err
	}
	if ref == "latest" {
		if len(runs) == 0 {
			return "", fmt.Errorf("%w: no runs stored", dynamo.ErrNotFound)
		}
		return runs[0].ID, nil
	}

	var match string
	for _, r := range runs {
		if r.ID == ref {
			return ref, nil
		}
		if strings.HasPrefix(r.ID, ref) {
			if match != "" {
				return "", dynamo.Invalid("run %q is ambiguous", ref)
			}
			match = r.ID
		}
	}
	if match == "" {
		return "", fmt.Errorf("%w: run %q", dynamo.ErrNotFound, ref)
	}
	return match, nil
}

func (s *Store) LoadTrajectory(runID string) ([]*TrajectoryRow, error) {
	return readCSV[TrajectoryRow](filepath.Join(s.Dir(runID), trajectoryFile))
}

func (s *Store) LoadEnergy(runID string) ([]*EnergyRow, error) {
	return readCSV[EnergyRow](filepath.Join(s.Dir(runID), energyFile))
}

func (s *Store) LoadCheckpoint(runID string) (*config.Config, error) {
	return config.Load(filepath.Join(s.Dir(runID), checkpointFile))
}

// Track is one body's sampled trajectory.
type Track struct {
	ID   uint64
	Name string
	Rows []*TrajectoryRow
}

// Tracks groups trajectory rows by body, in order of first appearance.
func Tracks(rows []*TrajectoryRow) []Track {
	index := make(map[uint64]int)
	tracks := make([]Track, 0)
	for _, row := range rows {
		i, ok := index[row.ID]
		if !ok {
			i = len(tracks)
			index[row.ID] = i
			tracks = append(tracks, Track{ID: row.ID, Name: row.Name})
		}
		tracks[i].Rows = append(tracks[i].Rows, row)
	}
	return tracks
}

// Label is the body's name, or its id when unnamed.
func (t Track) Label() string {
	if t.Name != "" {
		return t.Name
	}
	return fmt.Sprintf("#%d", t.ID)
}
