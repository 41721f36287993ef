/*
Package state persists poll state and alert history as JSON documents:
state.json (seen accessions, last run, last error), alerts.json
(most-recent-first, bounded retention) and status.json (last run summary).
*/
package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"edgarwatch/internal/types"
)

const (
	stateFileName  = "state.json"
	alertsFileName = "alerts.json"
	statusFileName = "status.json"

	// maxSeenAccessions bounds the seen set to the most recent entries.
	maxSeenAccessions = 5_000
)

// Store owns the persisted state. All methods are safe for concurrent use;
// the lock is held only for in-memory reads and mutations, never across
// I/O waits inside callers.
type Store struct {
	mu sync.Mutex

	dataDir   string
	retention int

	state  types.StreamState
	alerts []types.AlertRecord
	seen   map[string]struct{}
}

// NewStore loads (or initializes) the persisted state under dataDir.
// Corrupt or missing files start fresh rather than failing.
func NewStore(dataDir string, alertRetention int) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory %s: %w", dataDir, err)
	}
	if alertRetention <= 0 {
		alertRetention = 200
	}

	s := &Store{
		dataDir:   dataDir,
		retention: alertRetention,
		seen:      make(map[string]struct{}),
	}
	s.load()
	return s, nil
}

func (s *Store) load() {
	loadJSON(filepath.Join(s.dataDir, stateFileName), &s.state)
	loadJSON(filepath.Join(s.dataDir, alertsFileName), &s.alerts)

	if len(s.alerts) > s.retention {
		s.alerts = s.alerts[:s.retention]
	}
	for _, acc := range s.state.SeenAccessions {
		s.seen[acc] = struct{}{}
	}
}

// loadJSON fills out from path, leaving it untouched on any error.
func loadJSON(path string, out any) {
	data, err := os.ReadFile(path)
	if err != nil {
		return
	}
	_ = json.Unmarshal(data, out)
}

func saveJSON(path string, payload any) error {
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// Seen reports whether the accession number was already alerted on.
func (s *Store) Seen(accessionNumber string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.seen[accessionNumber]
	return ok
}

// MarkSeen records an accession number. Callers invoke this only after a
// successful (or dry-run) email send so failed sends are retried.
func (s *Store) MarkSeen(accessionNumber string) {
	if accessionNumber == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.seen[accessionNumber]; ok {
		return
	}
	s.seen[accessionNumber] = struct{}{}
	s.state.SeenAccessions = append(s.state.SeenAccessions, accessionNumber)
	if len(s.state.SeenAccessions) > maxSeenAccessions {
		drop := len(s.state.SeenAccessions) - maxSeenAccessions
		for _, old := range s.state.SeenAccessions[:drop] {
			delete(s.seen, old)
		}
		s.state.SeenAccessions = slices.Clone(s.state.SeenAccessions[drop:])
	}
}

// AddAlert prepends a new alert record, trimming to the retention bound.
func (s *Store) AddAlert(alert types.AlertRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alerts = append([]types.AlertRecord{alert}, s.alerts...)
	if len(s.alerts) > s.retention {
		s.alerts = s.alerts[:s.retention]
	}
}

// Alerts returns a copy of the alert history, most recent first.
func (s *Store) Alerts() []types.AlertRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.alerts)
}

// ReplaceAlerts swaps in a repaired alert history (same identities, patched
// link/synopsis fields).
func (s *Store) ReplaceAlerts(alerts []types.AlertRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(alerts) > s.retention {
		alerts = alerts[:s.retention]
	}
	s.alerts = slices.Clone(alerts)
}

// SetLastError records a run-level error for the next status snapshot.
func (s *Store) SetLastError(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.LastError = message
}

// LastError returns the recorded run-level error, if any.
func (s *Store) LastError() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.LastError
}

// Flush writes state, alerts and the status snapshot to disk.
func (s *Store) Flush(status types.RunStatus) error {
	s.mu.Lock()
	s.state.LastRun = time.Now().UTC().Format(time.RFC3339)
	status.LastRun = s.state.LastRun
	status.LastError = s.state.LastError
	status.TotalAlerts = len(s.alerts)

	statePayload := s.state
	statePayload.SeenAccessions = slices.Clone(s.state.SeenAccessions)
	alertsPayload := slices.Clone(s.alerts)
	s.mu.Unlock()

	if err := saveJSON(filepath.Join(s.dataDir, stateFileName), statePayload); err != nil {
		return err
	}
	if err := saveJSON(filepath.Join(s.dataDir, alertsFileName), alertsPayload); err != nil {
		return err
	}
	return saveJSON(filepath.Join(s.dataDir, statusFileName), status)
}
