package streamclient

import "encoding/json"

// Wire event names pushed by the server on a build stream.
const (
	EventTask          = "task"           // task lifecycle update
	EventCard          = "card"           // rich card payload
	EventPreviewUpdate = "preview_update" // page preview invalidation
	EventPlanUpdate    = "plan_update"    // running-plan progress
)

// TaskEvent is the payload of a "task" wire event.
type TaskEvent struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	Title     string `json:"title,omitempty"`
	Status    string `json:"status,omitempty"`
	SessionID string `json:"session_id"`
	ProjectID string `json:"project_id,omitempty"`
}

// CardEvent is the payload of a "card" wire event. Data stays raw: the
// engine only inspects the few fields it owns, everything else is passed
// through to the card renderer.
type CardEvent struct {
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data,omitempty"`
	SessionID string          `json:"session_id"`
	ProjectID string          `json:"project_id,omitempty"`
}

// PreviewUpdateEvent tells the preview component to refresh one page.
type PreviewUpdateEvent struct {
	PageID string `json:"page_id"`
}

// PlanTaskProgress is one task's progress inside a plan_update event.
type PlanTaskProgress struct {
	ID     string `json:"id"`
	Title  string `json:"title,omitempty"`
	Status string `json:"status"`
}

// PlanUpdateEvent reports running-plan progress.
type PlanUpdateEvent struct {
	ID             string             `json:"id"`
	CompletedTasks []string           `json:"completed_tasks,omitempty"`
	FailedTasks    []string           `json:"failed_tasks,omitempty"`
	Tasks          []PlanTaskProgress `json:"tasks,omitempty"`
	Status         string             `json:"status"`
}

// Handler receives typed events parsed off the wire. The reconciler is the
// production handler.
type Handler interface {
	HandleTaskEvent(TaskEvent)
	HandleCardEvent(CardEvent)
	HandlePreviewUpdate(PreviewUpdateEvent)
	HandlePlanUpdate(PlanUpdateEvent)
}
