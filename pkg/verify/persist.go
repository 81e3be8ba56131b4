package verify

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"github.com/cgast/docverify/pkg/events"
)

// SnapshotVersion is the persisted run format version.
const SnapshotVersion = 1

// Snapshot is the serialized form of a Manager.
type Snapshot struct {
	Version     int                   `json:"version"`
	RunID       string                `json:"run_id"`
	Order       []string              `json:"checkpoint_order"`
	Checkpoints map[string]Checkpoint `json:"checkpoints"`
}

// Snapshot copies the manager's state.
func (m *Manager) Snapshot() Snapshot {
	cps := make(map[string]Checkpoint, len(m.checkpoints))
	for name, cp := range m.checkpoints {
		cps[name] = cp.clone()
	}
	return Snapshot{
		Version:     SnapshotVersion,
		RunID:       m.runID,
		Order:       m.Order(),
		Checkpoints: cps,
	}
}

// RestoreManager rebuilds a manager from snap. The order list and the
// checkpoint map must describe the same set of names.
func RestoreManager(engine *Engine, snap Snapshot) (*Manager, error) {
	if snap.Version > SnapshotVersion {
		return nil, fmt.Errorf("restore run %s: unsupported version %d", snap.RunID, snap.Version)
	}

	seen := make(map[string]bool, len(snap.Order))
	for _, name := range snap.Order {
		if seen[name] {
			return nil, fmt.Errorf("restore run %s: duplicate checkpoint %q in order", snap.RunID, name)
		}
		seen[name] = true
		if _, ok := snap.Checkpoints[name]; !ok {
			return nil, fmt.Errorf("restore run %s: %w: %q", snap.RunID, ErrCheckpointNotFound, name)
		}
	}
	for name := range snap.Checkpoints {
		if !seen[name] {
			return nil, fmt.Errorf("restore run %s: checkpoint %q missing from order", snap.RunID, name)
		}
	}

	m := NewManager(engine)
	if snap.RunID != "" {
		m.runID = snap.RunID
	}
	m.order = append(m.order, snap.Order...)
	for name, cp := range snap.Checkpoints {
		m.checkpoints[name] = cp.clone()
	}
	return m, nil
}

// Save writes the run to path as JSON. The file is replaced atomically while
// holding an exclusive lock on path+".lock".
func (m *Manager) Save(path string) error {
	data, err := json.MarshalIndent(m.Snapshot(), "", "  ")
	if err != nil {
		return fmt.Errorf("marshal run %s: %w", m.runID, err)
	}

	lock := flock.New(path + ".lock")
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("lock %s: %w", path, err)
	}
	defer lock.Unlock()

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("save run %s: %w", m.runID, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}

	m.engine.logger.Info("run saved", "run", m.runID, "path", path, "checkpoints", len(m.order))
	m.engine.publish(events.NewEvent(events.EventRunSaved, path).ForRun(m.runID))
	return nil
}

// LoadManager reads a run written by Save.
func LoadManager(engine *Engine, path string) (*Manager, error) {
	lock := flock.New(path + ".lock")
	if err := lock.RLock(); err != nil {
		return nil, fmt.Errorf("lock %s: %w", path, err)
	}
	defer lock.Unlock()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read run %s: %w", path, err)
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("parse run %s: %w", path, err)
	}

	m, err := RestoreManager(engine, snap)
	if err != nil {
		return nil, err
	}
	engine.logger.Info("run loaded", "run", m.runID, "path", path, "checkpoints", len(m.order))
	engine.publish(events.NewEvent(events.EventRunLoaded, path).ForRun(m.runID))
	return m, nil
}
