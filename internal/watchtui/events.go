package watchtui

import (
	"github.com/TheSmartAz/zaoya-sub000/internal/model"
	"github.com/TheSmartAz/zaoya-sub000/internal/streamclient"
)

// TimelineChangedMsg signals that the reconciler mutated live state; the
// model re-snapshots the timeline and pending plan on receipt.
type TimelineChangedMsg struct{}

// HealthMsg carries a stream health transition.
type HealthMsg struct {
	Health  streamclient.Health
	Message string
}

// SessionUpdatedMsg carries a fresh durable session snapshot.
type SessionUpdatedMsg struct {
	Session *model.BuildSession
}

// actionDoneMsg reports the outcome of a user-initiated call (approve,
// dismiss, retry, abort, step).
type actionDoneMsg struct {
	action string
	err    error
}
