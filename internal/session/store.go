// Package session holds the authoritative client-side record of a build
// session. The full record lives in memory; a minimal checkpoint slice
// (build id, project id, phase) is persisted so a restarted client can
// resume from server-authoritative state.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/TheSmartAz/zaoya-sub000/internal/debug"
	"github.com/TheSmartAz/zaoya-sub000/internal/model"
)

// ZaoyaDir is the per-project state directory.
const ZaoyaDir = ".zaoya"

const checkpointFile = "session.json"

// ErrNoSession is returned when an operation needs a tracked session and
// none exists.
var ErrNoSession = errors.New("no build session")

// Checkpoint is the minimal persisted slice of session identity. It is the
// only state that survives a full client restart.
type Checkpoint struct {
	BuildID   string           `json:"build_id"`
	ProjectID string           `json:"project_id"`
	Phase     model.BuildPhase `json:"phase"`
}

// Store owns the build session record. All mutation is via its methods;
// accessors return copies so callers never share the internal record.
type Store struct {
	mu      sync.RWMutex
	dir     string // project .zaoya directory; "" disables checkpointing
	current *model.BuildSession
}

// NewStore returns a store rooted at projectDir. An empty projectDir keeps
// the store purely in-memory (used by tests and one-shot commands).
func NewStore(projectDir string) *Store {
	s := &Store{}
	if projectDir != "" {
		s.dir = filepath.Join(projectDir, ZaoyaDir)
	}
	return s
}

// Create starts tracking a new build session, replacing any existing record.
func (s *Store) Create(buildID, projectID string, phase model.BuildPhase) *model.BuildSession {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.current = &model.BuildSession{
		BuildID:   buildID,
		ProjectID: projectID,
		Phase:     phase,
		UpdatedAt: time.Now().UTC(),
	}
	s.appendHistoryLocked("created", "")
	s.saveCheckpointLocked()
	debug.LogKV("session", "session created", "build_id", buildID, "project_id", projectID)
	return s.current.Clone()
}

// Current returns a copy of the tracked session, or nil.
func (s *Store) Current() *model.BuildSession {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.Clone()
}

// ApplySnapshot replaces the record wholesale with a server-authoritative
// snapshot. The durable snapshot always wins over stale ephemera; the local
// append-only history is preserved and extended, never discarded.
func (s *Store) ApplySnapshot(snap *model.BuildSession) *model.BuildSession {
	if snap == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	next := snap.Clone()
	if s.current != nil && s.current.BuildID == next.BuildID && len(next.History) < len(s.current.History) {
		next.History = append([]model.BuildHistoryEvent(nil), s.current.History...)
	}
	prevPhase := model.BuildPhase("")
	if s.current != nil {
		prevPhase = s.current.Phase
	}
	s.current = next
	if s.current.UpdatedAt.IsZero() {
		s.current.UpdatedAt = time.Now().UTC()
	}
	if prevPhase != s.current.Phase {
		s.appendHistoryLocked("phase", string(s.current.Phase))
	}
	s.saveCheckpointLocked()
	return s.current.Clone()
}

// SetPhase applies a locally driven phase change, validating the transition.
func (s *Store) SetPhase(phase model.BuildPhase) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil {
		return ErrNoSession
	}
	if !model.CanTransitionPhase(s.current.Phase, phase) {
		return fmt.Errorf("invalid phase transition %s -> %s", s.current.Phase, phase)
	}
	if s.current.Phase == phase {
		return nil
	}
	s.current.Phase = phase
	s.current.UpdatedAt = time.Now().UTC()
	s.appendHistoryLocked("phase", string(phase))
	s.saveCheckpointLocked()
	return nil
}

// SetGraph replaces the durable plan of record.
func (s *Store) SetGraph(graph model.BuildGraph) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return ErrNoSession
	}
	s.current.Graph = graph
	s.current.UpdatedAt = time.Now().UTC()
	return nil
}

// AttachPatch replaces the latest patch set wholesale.
func (s *Store) AttachPatch(p *model.PatchSet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return ErrNoSession
	}
	s.current.LastPatch = p
	s.current.UpdatedAt = time.Now().UTC()
	return nil
}

// AttachValidation replaces the latest validation report wholesale.
func (s *Store) AttachValidation(r *model.ValidationReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return ErrNoSession
	}
	s.current.LastValidation = r
	s.current.UpdatedAt = time.Now().UTC()
	return nil
}

// AttachCheck replaces the latest check report wholesale.
func (s *Store) AttachCheck(r *model.CheckReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return ErrNoSession
	}
	s.current.LastCheck = r
	s.current.UpdatedAt = time.Now().UTC()
	return nil
}

// AttachReview replaces the latest review report wholesale.
func (s *Store) AttachReview(r *model.ReviewReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return ErrNoSession
	}
	s.current.LastReview = r
	s.current.UpdatedAt = time.Now().UTC()
	return nil
}

// AppendHistory records an audit entry against the tracked session.
func (s *Store) AppendHistory(action, details string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return ErrNoSession
	}
	s.appendHistoryLocked(action, details)
	return nil
}

// Reset destroys the tracked session and removes the checkpoint. Used on
// abort-acknowledged and explicit reset.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = nil
	if s.dir != "" {
		os.Remove(filepath.Join(s.dir, checkpointFile))
	}
	debug.Log("session", "session reset")
}

// LoadCheckpoint reads the persisted slice, or nil when none exists.
func (s *Store) LoadCheckpoint() (*Checkpoint, error) {
	if s.dir == "" {
		return nil, nil
	}
	data, err := os.ReadFile(filepath.Join(s.dir, checkpointFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var cp Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, fmt.Errorf("decoding checkpoint: %w", err)
	}
	if cp.BuildID == "" {
		return nil, nil
	}
	return &cp, nil
}

func (s *Store) appendHistoryLocked(action, details string) {
	s.current.History = append(s.current.History, model.BuildHistoryEvent{
		TS:      time.Now().UTC(),
		Phase:   s.current.Phase,
		Action:  action,
		Details: details,
	})
}

func (s *Store) saveCheckpointLocked() {
	if s.dir == "" || s.current == nil {
		return
	}
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		debug.LogKV("session", "checkpoint dir failed", "err", err)
		return
	}
	cp := Checkpoint{
		BuildID:   s.current.BuildID,
		ProjectID: s.current.ProjectID,
		Phase:     s.current.Phase,
	}
	data, err := json.MarshalIndent(cp, "", "  ")
	if err != nil {
		return
	}
	if err := os.WriteFile(filepath.Join(s.dir, checkpointFile), data, 0644); err != nil {
		debug.LogKV("session", "checkpoint write failed", "err", err)
	}
}
