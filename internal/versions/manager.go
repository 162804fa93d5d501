// Package versions maintains the client-side view of a project's version
// DAG: the loaded version list, branch set, quota, and the derived depth and
// branch-root flags the history view renders.
package versions

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/TheSmartAz/zaoya-sub000/internal/api"
	"github.com/TheSmartAz/zaoya-sub000/internal/debug"
	"github.com/TheSmartAz/zaoya-sub000/internal/model"
)

// ErrNoValidPages is returned when a rollback selects only pages that are
// missing at the target version.
var ErrNoValidPages = errors.New("select at least one valid page")

// PageReloader is told to reload the project's page list after operations
// that change the live draft (rollback, restore, branch activation).
type PageReloader interface {
	ReloadPages(projectID string)
}

// Manager holds the loaded slice of the version graph. Depth and branch-root
// flags are computed at read time against the loaded set, never stored, so
// filtered views stay consistent.
type Manager struct {
	api *api.Client

	mu           sync.Mutex
	versions     []model.VersionSummary
	quota        model.VersionQuota
	branches     []model.Branch
	activeBranch string
	depths       map[string]int

	pages PageReloader
}

// Option configures a Manager.
type Option func(*Manager)

// WithPageReloader wires the page-list collaborator.
func WithPageReloader(p PageReloader) Option {
	return func(m *Manager) { m.pages = p }
}

func New(apiClient *api.Client, opts ...Option) *Manager {
	m := &Manager{api: apiClient}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Load replaces the version list and quota wholesale. An empty branchID
// loads all branches, a deliberate aggregate view. Derived depth memos are
// discarded with the old set.
func (m *Manager) Load(ctx context.Context, projectID, branchID string) error {
	list, err := m.api.ListVersions(ctx, projectID, branchID)
	if err != nil {
		return fmt.Errorf("loading versions: %w", err)
	}
	m.mu.Lock()
	m.versions = list.Versions
	m.quota = list.Quota
	m.depths = nil
	m.mu.Unlock()
	return nil
}

// LoadBranches replaces the branch set and records the active branch.
func (m *Manager) LoadBranches(ctx context.Context, projectID string) error {
	branches, err := m.api.ListBranches(ctx, projectID)
	if err != nil {
		return fmt.Errorf("loading branches: %w", err)
	}
	m.mu.Lock()
	m.branches = branches
	m.mu.Unlock()
	return nil
}

func (m *Manager) findLocked(versionID string) *model.VersionSummary {
	for i := range m.versions {
		if m.versions[i].ID == versionID {
			return &m.versions[i]
		}
	}
	return nil
}

// Depth returns the parent-chain depth of a version within the loaded set.
// A missing parent truncates depth to 0 rather than erroring: partial views
// are expected when filtering by branch.
func (m *Manager) Depth(versionID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.depthLocked(versionID, map[string]bool{})
}

func (m *Manager) depthLocked(versionID string, seen map[string]bool) int {
	if m.depths == nil {
		m.depths = map[string]int{}
	}
	if d, ok := m.depths[versionID]; ok {
		return d
	}
	if seen[versionID] {
		// versions are created strictly after their parent, so a cycle
		// means corrupt input; treat as a root
		debug.Logf("versions", "parent cycle at %s", versionID)
		return 0
	}
	seen[versionID] = true

	v := m.findLocked(versionID)
	if v == nil || v.ParentVersionID == "" {
		m.depths[versionID] = 0
		return 0
	}
	parent := m.findLocked(v.ParentVersionID)
	if parent == nil {
		m.depths[versionID] = 0
		return 0
	}
	d := m.depthLocked(parent.ID, seen) + 1
	m.depths[versionID] = d
	return d
}

// IsBranchRoot reports whether a version is the first node of its branch in
// the loaded view: its parent exists in the set and carries a different
// branch id. A version whose parent is absent is not a branch root; it is a
// truncated view.
func (m *Manager) IsBranchRoot(versionID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	v := m.findLocked(versionID)
	if v == nil || v.ParentVersionID == "" {
		return false
	}
	parent := m.findLocked(v.ParentVersionID)
	if parent == nil {
		return false
	}
	return parent.BranchID != v.BranchID
}

// Pin toggles a version's pin state and applies the returned summary by
// replacing the matching entry in place, keyed on id so an in-flight Load
// cannot misplace it. No full reload.
func (m *Manager) Pin(ctx context.Context, projectID, versionID string, pin bool) error {
	updated, err := m.api.PinVersion(ctx, projectID, versionID, pin)
	if err != nil {
		return fmt.Errorf("pinning version %s: %w", versionID, err)
	}
	m.mu.Lock()
	if v := m.findLocked(updated.ID); v != nil {
		*v = *updated
	}
	m.mu.Unlock()
	return nil
}

// RollbackPages rolls back only the named pages to their content at
// versionID, producing a new version on top of history. Pages missing at the
// target version are rejected client-side before anything is submitted.
// After success the loaded set is refreshed and the page list reloaded.
func (m *Manager) RollbackPages(ctx context.Context, projectID, versionID string, pageIDs []string) error {
	detail, err := m.api.GetVersion(ctx, projectID, versionID)
	if err != nil {
		return fmt.Errorf("fetching version %s: %w", versionID, err)
	}

	missing := map[string]bool{}
	for _, p := range detail.Pages {
		if p.IsMissing {
			missing[p.PageID] = true
		}
	}
	valid := make([]string, 0, len(pageIDs))
	for _, id := range pageIDs {
		if !missing[id] {
			valid = append(valid, id)
		}
	}
	if len(valid) == 0 {
		return ErrNoValidPages
	}

	if _, err := m.api.RollbackPages(ctx, projectID, versionID, valid); err != nil {
		return fmt.Errorf("rolling back to %s: %w", versionID, err)
	}
	if err := m.Load(ctx, projectID, ""); err != nil {
		return err
	}
	if m.pages != nil {
		m.pages.ReloadPages(projectID)
	}
	return nil
}

// Restore brings the whole project back to a version by creating a new
// version on top; history is never rewritten.
func (m *Manager) Restore(ctx context.Context, projectID, versionID string) error {
	if _, err := m.api.RestoreVersion(ctx, projectID, versionID); err != nil {
		return fmt.Errorf("restoring version %s: %w", versionID, err)
	}
	if err := m.Load(ctx, projectID, ""); err != nil {
		return err
	}
	if m.pages != nil {
		m.pages.ReloadPages(projectID)
	}
	return nil
}

// CreateBranch creates a branch diverging at fromVersionID. Unless setActive
// is false the new branch becomes active and the page list is reloaded under
// it.
func (m *Manager) CreateBranch(ctx context.Context, projectID, fromVersionID, name string, setActive bool) (*model.Branch, error) {
	branch, err := m.api.CreateBranch(ctx, projectID, fromVersionID, name)
	if err != nil {
		return nil, fmt.Errorf("creating branch %q: %w", name, err)
	}

	m.mu.Lock()
	m.branches = append(m.branches, *branch)
	m.mu.Unlock()

	if setActive {
		if err := m.ActivateBranch(ctx, projectID, branch.ID); err != nil {
			return branch, err
		}
	}
	return branch, nil
}

// ActivateBranch makes a branch the active one and reloads pages under it.
func (m *Manager) ActivateBranch(ctx context.Context, projectID, branchID string) error {
	if err := m.api.ActivateBranch(ctx, projectID, branchID); err != nil {
		return fmt.Errorf("activating branch %s: %w", branchID, err)
	}
	m.mu.Lock()
	m.activeBranch = branchID
	m.mu.Unlock()
	if m.pages != nil {
		m.pages.ReloadPages(projectID)
	}
	return nil
}

// Versions returns a copy of the loaded version list.
func (m *Manager) Versions() []model.VersionSummary {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.VersionSummary(nil), m.versions...)
}

// Branches returns a copy of the loaded branch list.
func (m *Manager) Branches() []model.Branch {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.Branch(nil), m.branches...)
}

// ActiveBranch returns the locally tracked active branch id, "" when the
// default branch is active or branches have not been loaded.
func (m *Manager) ActiveBranch() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.activeBranch
}

// Quota returns the advisory quota as of the last Load.
func (m *Manager) Quota() model.VersionQuota {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.quota
}
