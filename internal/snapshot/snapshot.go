// Package snapshot persists and restores execution context globals.
//
// A snapshot is a by-copy capture of named globals, taken on the
// context's own lane through the three-phase task protocol, serialized
// and zstd-compressed on disk. Restoring writes the captured values back
// into a context the same way. Code state (loaded scripts, closures) is
// not captured; only transferable values are.
package snapshot

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/klauspost/compress/zstd"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/isolate/internal/isolate"
	"github.com/GriffinCanCode/isolate/internal/logging"
	"github.com/GriffinCanCode/isolate/internal/monitoring"
	"github.com/GriffinCanCode/isolate/internal/shared/id"
	"github.com/GriffinCanCode/isolate/internal/transfer"
)

const fileExt = ".snap"

// Snapshot is the stored form of a context's captured globals.
type Snapshot struct {
	ID        id.SnapshotID          `json:"id"`
	Name      string                 `json:"name"`
	ContextID string                 `json:"context_id"`
	SavedAt   time.Time              `json:"saved_at"`
	Globals   map[string]interface{} `json:"globals"`
}

// Store reads and writes snapshots under a directory.
type Store struct {
	dir     string
	log     *logging.Logger
	metrics *monitoring.Metrics

	enc *zstd.Encoder
	dec *zstd.Decoder
}

// NewStore creates the storage directory if needed.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("snapshot dir: %w", err)
	}

	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, err
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}

	return &Store{
		dir: dir,
		log: logging.NewDefault(),
		enc: enc,
		dec: dec,
	}, nil
}

// WithLogger replaces the store logger.
func (s *Store) WithLogger(log *logging.Logger) *Store {
	s.log = log
	return s
}

// WithMetrics adds metrics tracking to the store.
func (s *Store) WithMetrics(metrics *monitoring.Metrics) *Store {
	s.metrics = metrics
	return s
}

// Save captures the named globals on the context's own lane and writes
// them compressed to disk.
func (s *Store) Save(c *isolate.Context, name string, keys []string) (*Snapshot, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}
	if len(keys) == 0 {
		return nil, fmt.Errorf("snapshot %q: no globals named", name)
	}

	captured, err := isolate.RunSync(c, func() (isolate.Task, error) {
		return newCaptureTask(c, keys)
	})
	if err != nil {
		return nil, fmt.Errorf("capture globals: %w", err)
	}

	snap := &Snapshot{
		ID:        id.NewSnapshotID(),
		Name:      name,
		ContextID: string(c.ID()),
		SavedAt:   time.Now(),
		Globals:   captured.(map[string]interface{}),
	}

	raw, err := sonic.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	compressed := s.enc.EncodeAll(raw, nil)

	if err := os.WriteFile(s.path(name), compressed, 0o644); err != nil {
		return nil, fmt.Errorf("write snapshot: %w", err)
	}

	if s.metrics != nil {
		s.metrics.SnapshotsSaved.Inc()
	}
	s.log.Info("snapshot saved",
		zap.String("name", name),
		zap.String("context_id", snap.ContextID),
		zap.Int("globals", len(snap.Globals)),
		zap.Int("bytes", len(compressed)),
	)
	return snap, nil
}

// Restore loads a snapshot and writes its globals into the context on
// its own lane.
func (s *Store) Restore(c *isolate.Context, name string) (*Snapshot, error) {
	snap, err := s.Load(name)
	if err != nil {
		return nil, err
	}

	if _, err := isolate.RunSync(c, func() (isolate.Task, error) {
		return newRestoreTask(c, snap.Globals)
	}); err != nil {
		return nil, fmt.Errorf("restore globals: %w", err)
	}

	if s.metrics != nil {
		s.metrics.SnapshotsRestored.Inc()
	}
	s.log.Info("snapshot restored",
		zap.String("name", name),
		zap.String("context_id", string(c.ID())),
	)
	return snap, nil
}

// Load reads a snapshot from disk without touching any context.
func (s *Store) Load(name string) (*Snapshot, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}

	compressed, err := os.ReadFile(s.path(name))
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	raw, err := s.dec.DecodeAll(compressed, nil)
	if err != nil {
		return nil, fmt.Errorf("decompress snapshot: %w", err)
	}

	var snap Snapshot
	if err := sonic.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return &snap, nil
}

// List returns the names of stored snapshots.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), fileExt) {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), fileExt))
	}
	return names, nil
}

// Delete removes a stored snapshot.
func (s *Store) Delete(name string) error {
	if err := validateName(name); err != nil {
		return err
	}
	return os.Remove(s.path(name))
}

func (s *Store) path(name string) string {
	return filepath.Join(s.dir, name+fileExt)
}

func validateName(name string) error {
	if name == "" {
		return fmt.Errorf("snapshot name must not be empty")
	}
	if name != filepath.Base(name) || strings.ContainsAny(name, "/\\") {
		return fmt.Errorf("invalid snapshot name: %q", name)
	}
	return nil
}

// captureTask reads globals out of a context. Phase 1 copies the key
// list, phase 2 exports and serializes the values on the context's lane,
// phase 3 materializes them for the caller.
type captureTask struct {
	target *isolate.Context
	keys   []string
	out    []byte
}

func newCaptureTask(target *isolate.Context, keys []string) (isolate.Task, error) {
	copied := make([]string, len(keys))
	copy(copied, keys)
	return &captureTask{target: target, keys: copied}, nil
}

func (t *captureTask) Phase2() error {
	globals := make(map[string]interface{}, len(t.keys))
	for _, key := range t.keys {
		globals[key] = t.target.Global(key)
	}
	out, err := transfer.Encode(globals)
	if err != nil {
		return err
	}
	t.out = out
	return nil
}

func (t *captureTask) Phase3() (interface{}, error) {
	globals := make(map[string]interface{})
	if err := transfer.DecodeInto(t.out, &globals); err != nil {
		return nil, err
	}
	return globals, nil
}

// restoreTask writes globals into a context. The values were freshly
// decoded from disk and are handed to the task whole; ownership moves to
// the target lane with them.
type restoreTask struct {
	target  *isolate.Context
	globals map[string]interface{}
}

func newRestoreTask(target *isolate.Context, globals map[string]interface{}) (isolate.Task, error) {
	return &restoreTask{target: target, globals: globals}, nil
}

func (t *restoreTask) Phase2() error {
	for key, value := range t.globals {
		if err := t.target.SetGlobal(key, value); err != nil {
			return fmt.Errorf("restore global %q: %w", key, err)
		}
	}
	return nil
}

func (t *restoreTask) Phase3() (interface{}, error) {
	return len(t.globals), nil
}
