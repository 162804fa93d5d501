package model

import (
	"encoding/json"
	"time"
)

// LiveMessageType classifies an entry on the ephemeral live timeline.
type LiveMessageType string

const (
	LiveTaskStarted      LiveMessageType = "task_started"
	LiveTaskDone         LiveMessageType = "task_done"
	LiveTaskFailed       LiveMessageType = "task_failed"
	LivePageCreated      LiveMessageType = "page_created"
	LiveVersionSummary   LiveMessageType = "version_summary"
	LiveBuildPlan        LiveMessageType = "build_plan"
	LiveInterview        LiveMessageType = "interview"
	LiveValidationFailed LiveMessageType = "validation_failed"
	LiveProductDocReady  LiveMessageType = "product_doc_ready"
	LiveBuildComplete    LiveMessageType = "build_complete"
)

// LiveStatus is the display status of a timeline entry.
type LiveStatus string

const (
	LiveRunning LiveStatus = "running"
	LiveDone    LiveStatus = "done"
	LiveFailed  LiveStatus = "failed"
)

// Card is an opaque rich payload attached to a timeline entry, typed by its
// Type field. The engine never interprets card contents beyond the handful of
// fields it needs (approval_required, build_id, doc_id); rendering belongs to
// the chat/card component.
type Card struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// LiveTaskMessage is one id-addressed entry on the live timeline. Within a
// session there is at most one entry per ID: a later event with the same ID
// updates the entry in place.
type LiveTaskMessage struct {
	ID        string          `json:"id"`
	Type      LiveMessageType `json:"type"`
	Status    LiveStatus      `json:"status"`
	Title     string          `json:"title,omitempty"`
	SessionID string          `json:"session_id"`
	Card      *Card           `json:"card,omitempty"`

	// ReceivedAt and Seq order the merged timeline: sort by ReceivedAt,
	// ties stable by Seq (insertion order).
	ReceivedAt time.Time `json:"received_at"`
	Seq        int64     `json:"seq"`
}
