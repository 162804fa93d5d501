package versions

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/TheSmartAz/zaoya-sub000/internal/api"
	"github.com/TheSmartAz/zaoya-sub000/internal/model"
)

type fakePages struct{ reloads []string }

func (f *fakePages) ReloadPages(projectID string) { f.reloads = append(f.reloads, projectID) }

func newManager(t *testing.T, handler http.Handler, opts ...Option) *Manager {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(api.New(srv.URL, "", 5*time.Second), opts...)
}

func versionListHandler(t *testing.T, versions []model.VersionSummary, quota model.VersionQuota) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(api.VersionList{Versions: versions, Quota: quota})
	}
}

func chainABC() []model.VersionSummary {
	return []model.VersionSummary{
		{ID: "A", ProjectID: "proj-1", BranchID: "main"},
		{ID: "B", ProjectID: "proj-1", ParentVersionID: "A", BranchID: "main"},
		{ID: "C", ProjectID: "proj-1", ParentVersionID: "B", BranchID: "main"},
	}
}

func TestDepthAlongParentChain(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/projects/proj-1/versions", versionListHandler(t, chainABC(), model.VersionQuota{Limit: -1, CanCreate: true}))

	m := newManager(t, mux)
	if err := m.Load(context.Background(), "proj-1", ""); err != nil {
		t.Fatalf("Load: %v", err)
	}

	for id, want := range map[string]int{"A": 0, "B": 1, "C": 2} {
		if got := m.Depth(id); got != want {
			t.Errorf("Depth(%s) = %d, want %d", id, got, want)
		}
	}
}

func TestDepthMissingParentTruncatesToZero(t *testing.T) {
	versions := []model.VersionSummary{
		// parent D is outside the filtered view
		{ID: "E", ProjectID: "proj-1", ParentVersionID: "D", BranchID: "feature-1"},
		{ID: "F", ProjectID: "proj-1", ParentVersionID: "E", BranchID: "feature-1"},
	}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/projects/proj-1/versions", versionListHandler(t, versions, model.VersionQuota{}))

	m := newManager(t, mux)
	if err := m.Load(context.Background(), "proj-1", "feature-1"); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := m.Depth("E"); got != 0 {
		t.Fatalf("Depth(E) = %d, want 0 for a missing parent", got)
	}
	if got := m.Depth("F"); got != 1 {
		t.Fatalf("Depth(F) = %d, want 1", got)
	}
}

func TestIsBranchRoot(t *testing.T) {
	versions := []model.VersionSummary{
		{ID: "X", ProjectID: "proj-1", BranchID: "main"},
		{ID: "Y", ProjectID: "proj-1", ParentVersionID: "X", BranchID: "feature-1"},
		{ID: "Z", ProjectID: "proj-1", ParentVersionID: "Y", BranchID: "feature-1"},
	}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/projects/proj-1/versions", versionListHandler(t, versions, model.VersionQuota{}))

	m := newManager(t, mux)
	if err := m.Load(context.Background(), "proj-1", ""); err != nil {
		t.Fatalf("Load: %v", err)
	}

	if !m.IsBranchRoot("Y") {
		t.Error("Y diverges from main, IsBranchRoot should be true")
	}
	if m.IsBranchRoot("Z") {
		t.Error("Z shares its parent's branch, IsBranchRoot should be false")
	}
	if m.IsBranchRoot("X") {
		t.Error("a parentless version is never a branch root")
	}
}

func TestPinTogglesInPlace(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/projects/proj-1/versions", versionListHandler(t, chainABC(), model.VersionQuota{}))
	mux.HandleFunc("POST /api/v1/projects/proj-1/versions/B/pin", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Pinned bool `json:"pinned"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		json.NewEncoder(w).Encode(map[string]any{
			"version": model.VersionSummary{ID: "B", ProjectID: "proj-1", ParentVersionID: "A", BranchID: "main", IsPinned: body.Pinned},
		})
	})

	m := newManager(t, mux)
	if err := m.Load(context.Background(), "proj-1", ""); err != nil {
		t.Fatalf("Load: %v", err)
	}

	if err := m.Pin(context.Background(), "proj-1", "B", true); err != nil {
		t.Fatalf("Pin(true): %v", err)
	}
	if err := m.Pin(context.Background(), "proj-1", "B", false); err != nil {
		t.Fatalf("Pin(false): %v", err)
	}

	list := m.Versions()
	if len(list) != 3 {
		t.Fatalf("pin duplicated entries: %d versions", len(list))
	}
	for _, v := range list {
		if v.ID == "B" && v.IsPinned {
			t.Fatal("B should be unpinned after the toggle")
		}
	}
}

func TestRollbackRejectsAllMissingPages(t *testing.T) {
	var submitted bool
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/projects/proj-1/versions/v2", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"version": model.VersionDetail{
				VersionSummary: model.VersionSummary{ID: "v2", ProjectID: "proj-1"},
				Pages: []model.VersionPage{
					{PageID: "p1", IsMissing: true},
				},
			},
		})
	})
	mux.HandleFunc("POST /api/v1/projects/proj-1/versions/v2/rollback", func(w http.ResponseWriter, r *http.Request) {
		submitted = true
		json.NewEncoder(w).Encode(map[string]any{"version": model.VersionSummary{ID: "v3"}})
	})

	m := newManager(t, mux)
	err := m.RollbackPages(context.Background(), "proj-1", "v2", []string{"p1"})
	if !errors.Is(err, ErrNoValidPages) {
		t.Fatalf("err = %v, want ErrNoValidPages", err)
	}
	if submitted {
		t.Fatal("an all-missing selection must not be submitted")
	}
}

func TestRollbackFiltersMissingAndReloads(t *testing.T) {
	var rolledBack []string
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/projects/proj-1/versions", versionListHandler(t, chainABC(), model.VersionQuota{}))
	mux.HandleFunc("GET /api/v1/projects/proj-1/versions/v2", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"version": model.VersionDetail{
				VersionSummary: model.VersionSummary{ID: "v2", ProjectID: "proj-1"},
				Pages: []model.VersionPage{
					{PageID: "p1", IsMissing: true},
					{PageID: "p2"},
				},
			},
		})
	})
	mux.HandleFunc("POST /api/v1/projects/proj-1/versions/v2/rollback", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			PageIDs []string `json:"page_ids"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		rolledBack = body.PageIDs
		json.NewEncoder(w).Encode(map[string]any{"version": model.VersionSummary{ID: "v3", ProjectID: "proj-1"}})
	})

	pages := &fakePages{}
	m := newManager(t, mux, WithPageReloader(pages))
	if err := m.RollbackPages(context.Background(), "proj-1", "v2", []string{"p1", "p2"}); err != nil {
		t.Fatalf("RollbackPages: %v", err)
	}
	if len(rolledBack) != 1 || rolledBack[0] != "p2" {
		t.Fatalf("missing page not filtered out: %v", rolledBack)
	}
	if len(pages.reloads) != 1 {
		t.Fatalf("page list not reloaded after rollback: %v", pages.reloads)
	}
}

func TestCreateBranchActivatesAndReloads(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/projects/proj-1/branches", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Name          string `json:"name"`
			FromVersionID string `json:"from_version_id"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		json.NewEncoder(w).Encode(map[string]any{
			"branch": model.Branch{ID: "br-1", Name: body.Name, CreatedFromVersionID: body.FromVersionID},
		})
	})
	mux.HandleFunc("POST /api/v1/projects/proj-1/branches/br-1/activate", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	pages := &fakePages{}
	m := newManager(t, mux, WithPageReloader(pages))

	branch, err := m.CreateBranch(context.Background(), "proj-1", "C", "feature-1", true)
	if err != nil {
		t.Fatalf("CreateBranch: %v", err)
	}
	if branch.CreatedFromVersionID != "C" {
		t.Fatalf("branch not rooted at C: %+v", branch)
	}
	if m.ActiveBranch() != "br-1" {
		t.Fatalf("active branch = %q, want br-1", m.ActiveBranch())
	}
	if len(pages.reloads) != 1 {
		t.Fatal("activation must reload pages under the new branch")
	}
	if len(m.Branches()) != 1 {
		t.Fatalf("branch not appended locally: %v", m.Branches())
	}
}

func TestCreateBranchWithoutActivation(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/projects/proj-1/branches", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"branch": model.Branch{ID: "br-2", Name: "scratch"}})
	})

	pages := &fakePages{}
	m := newManager(t, mux, WithPageReloader(pages))
	if _, err := m.CreateBranch(context.Background(), "proj-1", "C", "scratch", false); err != nil {
		t.Fatalf("CreateBranch: %v", err)
	}
	if m.ActiveBranch() != "" {
		t.Fatal("setActive=false must not change the active branch")
	}
	if len(pages.reloads) != 0 {
		t.Fatal("no page reload without activation")
	}
}

func TestQuotaIsAdvisoryOnly(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/projects/proj-1/versions", versionListHandler(t, chainABC(), model.VersionQuota{Limit: 3, Used: 3, CanCreate: false, Warning: true}))
	mux.HandleFunc("POST /api/v1/projects/proj-1/versions/C/restore", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"version": model.VersionSummary{ID: "D", ProjectID: "proj-1"}})
	})

	m := newManager(t, mux)
	if err := m.Load(context.Background(), "proj-1", ""); err != nil {
		t.Fatalf("Load: %v", err)
	}
	q := m.Quota()
	if q.CanCreate || !q.Warning {
		t.Fatalf("quota flags not reflected: %+v", q)
	}
	// exhausted quota never blocks an operation locally
	if err := m.Restore(context.Background(), "proj-1", "C"); err != nil {
		t.Fatalf("Restore blocked locally: %v", err)
	}
}
