package model

import "time"

// TaskStatus tracks one planned task inside the build graph.
type TaskStatus string

const (
	TaskTodo    TaskStatus = "todo"
	TaskDoing   TaskStatus = "doing"
	TaskDone    TaskStatus = "done"
	TaskBlocked TaskStatus = "blocked"
)

// Task is one unit of work in the durable build plan.
type Task struct {
	ID            string     `json:"id"`
	Title         string     `json:"title"`
	Goal          string     `json:"goal,omitempty"`
	Acceptance    []string   `json:"acceptance,omitempty"`
	DependsOn     []string   `json:"depends_on,omitempty"`
	FilesExpected []string   `json:"files_expected,omitempty"`
	Status        TaskStatus `json:"status"`
}

// BuildGraph is the durable plan of record: an ordered task list plus
// free-text planning notes.
type BuildGraph struct {
	Tasks []Task `json:"tasks,omitempty"`
	Notes string `json:"notes,omitempty"`
}

// Find returns the task with the given id, or nil.
func (g *BuildGraph) Find(id string) *Task {
	for i := range g.Tasks {
		if g.Tasks[i].ID == id {
			return &g.Tasks[i]
		}
	}
	return nil
}

// PatchFile summarizes one file touched by a patch set.
type PatchFile struct {
	Path         string `json:"path"`
	LinesAdded   int    `json:"lines_added"`
	LinesDeleted int    `json:"lines_deleted"`
}

// PatchSet is the output of one implementation stage. The session keeps only
// the latest one; it is replaced wholesale, never merged.
type PatchSet struct {
	ID        string      `json:"id"`
	Files     []PatchFile `json:"files,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
}

// ValidationReport is the outcome of the validation stage. Failures are data,
// not errors: they are surfaced as cards with retry affordances.
type ValidationReport struct {
	Passed        bool      `json:"passed"`
	Errors        []string  `json:"errors,omitempty"`
	Warnings      []string  `json:"warnings,omitempty"`
	RequiredFixes []string  `json:"required_fixes,omitempty"`
	CheckedAt     time.Time `json:"checked_at"`
}

// CheckReport is the outcome of the automated check stage.
type CheckReport struct {
	Passed    bool      `json:"passed"`
	Failures  []string  `json:"failures,omitempty"`
	Warnings  []string  `json:"warnings,omitempty"`
	CheckedAt time.Time `json:"checked_at"`
}

// ReviewReport is the outcome of the AI review stage.
type ReviewReport struct {
	Approved      bool      `json:"approved"`
	Comments      []string  `json:"comments,omitempty"`
	RequiredFixes []string  `json:"required_fixes,omitempty"`
	ReviewedAt    time.Time `json:"reviewed_at"`
}

// BuildHistoryEvent is one append-only audit log entry. Entries are never
// mutated or removed.
type BuildHistoryEvent struct {
	TS      time.Time  `json:"ts"`
	Phase   BuildPhase `json:"phase"`
	Action  string     `json:"action"`
	Details string     `json:"details,omitempty"`
}

// PlannedPage is one page proposed in a build plan. The user may edit the
// list before approving.
type PlannedPage struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Path        string `json:"path,omitempty"`
	Description string `json:"description,omitempty"`
}

// BuildPlan is a proposed plan as carried by a build_plan card.
type BuildPlan struct {
	Summary string        `json:"summary,omitempty"`
	Pages   []PlannedPage `json:"pages"`
}

// PendingBuildPlan holds the at-most-one plan awaiting user approval, plus
// the live message that spawned it. It exists only between "plan proposed"
// and "approved/dismissed".
type PendingBuildPlan struct {
	Plan            BuildPlan `json:"plan"`
	SourceMessageID string    `json:"source_message_id"`
}

// BuildSession is the full in-memory build record. Only BuildID, ProjectID,
// and Phase survive a client restart (the checkpoint slice); everything else
// is re-fetched from the server on resume.
type BuildSession struct {
	BuildID       string     `json:"build_id"`
	ProjectID     string     `json:"project_id"`
	Phase         BuildPhase `json:"phase"`
	CurrentTaskID string     `json:"current_task_id,omitempty"`

	Graph          BuildGraph          `json:"graph"`
	LastPatch      *PatchSet           `json:"last_patch,omitempty"`
	LastValidation *ValidationReport   `json:"last_validation,omitempty"`
	LastCheck      *CheckReport        `json:"last_check,omitempty"`
	LastReview     *ReviewReport       `json:"last_review,omitempty"`
	History        []BuildHistoryEvent `json:"history,omitempty"`

	UpdatedAt time.Time `json:"updated_at"`
}

// Clone returns a deep copy safe to hand to other goroutines.
func (s *BuildSession) Clone() *BuildSession {
	if s == nil {
		return nil
	}
	out := *s
	out.Graph.Tasks = append([]Task(nil), s.Graph.Tasks...)
	out.History = append([]BuildHistoryEvent(nil), s.History...)
	if s.LastPatch != nil {
		p := *s.LastPatch
		p.Files = append([]PatchFile(nil), s.LastPatch.Files...)
		out.LastPatch = &p
	}
	if s.LastValidation != nil {
		v := *s.LastValidation
		out.LastValidation = &v
	}
	if s.LastCheck != nil {
		c := *s.LastCheck
		out.LastCheck = &c
	}
	if s.LastReview != nil {
		r := *s.LastReview
		out.LastReview = &r
	}
	return &out
}
