package model

import "time"

// ChangeSummary describes what a generated version changed.
type ChangeSummary struct {
	FilesChanged   int      `json:"files_changed"`
	LinesAdded     int      `json:"lines_added"`
	LinesDeleted   int      `json:"lines_deleted"`
	CompletedTasks []string `json:"completed_tasks,omitempty"`
	Description    string   `json:"description,omitempty"`
}

// VersionSummary is one node in the version DAG. ParentVersionID links the
// graph; versions are created strictly after their parent, so the graph is
// acyclic by construction.
type VersionSummary struct {
	ID               string        `json:"id"`
	ProjectID        string        `json:"project_id"`
	ParentVersionID  string        `json:"parent_version_id,omitempty"`
	BranchID         string        `json:"branch_id,omitempty"`
	BranchLabel      string        `json:"branch_label,omitempty"`
	Change           ChangeSummary `json:"change_summary"`
	ValidationStatus string        `json:"validation_status,omitempty"`
	IsPinned         bool          `json:"is_pinned"`
	CreatedAt        time.Time     `json:"created_at"`
}

// VersionPage is the page-level content of a version, fetched on demand.
// IsMissing marks a page absent at this version relative to the current
// draft; missing pages cannot be selected for rollback.
type VersionPage struct {
	PageID       string `json:"page_id"`
	Title        string `json:"title,omitempty"`
	Content      string `json:"content,omitempty"`
	IsMissing    bool   `json:"is_missing"`
	LinesAdded   int    `json:"lines_added"`
	LinesDeleted int    `json:"lines_deleted"`
}

// VersionDetail is a VersionSummary plus its page contents. Never cached
// long-term.
type VersionDetail struct {
	VersionSummary
	Pages []VersionPage `json:"pages,omitempty"`
}

// Branch partitions the version DAG. Exactly one branch is active per
// project at a time.
type Branch struct {
	ID                   string `json:"id"`
	Name                 string `json:"name"`
	Label                string `json:"label,omitempty"`
	ParentBranchID       string `json:"parent_branch_id,omitempty"`
	CreatedFromVersionID string `json:"created_from_version_id,omitempty"`
	IsDefault            bool   `json:"is_default"`
}

// VersionQuota is advisory display-only state enforced server-side. The
// client only reflects it; it never blocks an operation locally.
type VersionQuota struct {
	Limit     int  `json:"limit"` // -1 = unlimited
	Used      int  `json:"used"`
	CanCreate bool `json:"can_create"`
	Warning   bool `json:"warning"`
}
