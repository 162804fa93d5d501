// Package reconcile folds push-stream events into the live build timeline.
// The timeline is ephemeral per-session state layered over durable chat
// history; entries are addressed by id, and a re-delivered id updates the
// existing entry in place so reconnects stay idempotent.
package reconcile

import (
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/TheSmartAz/zaoya-sub000/internal/debug"
	"github.com/TheSmartAz/zaoya-sub000/internal/liveid"
	"github.com/TheSmartAz/zaoya-sub000/internal/model"
	"github.com/TheSmartAz/zaoya-sub000/internal/streamclient"
)

// PreviewRefresher is told when a page preview should be re-rendered.
type PreviewRefresher interface {
	RefreshPage(pageID string)
}

// DocumentFetcher retrieves the product document when a product_doc_ready
// card arrives. The reconciler only emits the notification; document content
// belongs to the collaborator.
type DocumentFetcher interface {
	FetchDocument(docID string)
}

// PlanProgressSink receives running-plan progress updates.
type PlanProgressSink interface {
	PlanProgress(evt streamclient.PlanUpdateEvent)
}

// Reconciler maintains the live timeline, the tracked session binding, and
// the at-most-one pending build plan. It implements streamclient.Handler;
// every mutation is atomic under one mutex so stream dispatch and UI reads
// never observe a half-applied event.
type Reconciler struct {
	mu        sync.Mutex
	ids       liveid.Generator
	session   string
	active    bool
	seq       int64
	timeline  []model.LiveTaskMessage
	pending   *model.PendingBuildPlan
	streamErr string

	preview  PreviewRefresher
	docs     DocumentFetcher
	plans    PlanProgressSink
	onChange func()
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithPreviewRefresher wires the preview collaborator.
func WithPreviewRefresher(p PreviewRefresher) Option {
	return func(r *Reconciler) { r.preview = p }
}

// WithDocumentFetcher wires the document collaborator.
func WithDocumentFetcher(d DocumentFetcher) Option {
	return func(r *Reconciler) { r.docs = d }
}

// WithPlanProgressSink wires the running-plan progress collaborator.
func WithPlanProgressSink(p PlanProgressSink) Option {
	return func(r *Reconciler) { r.plans = p }
}

// WithOnChange registers a callback fired after every timeline mutation,
// outside the reconciler lock.
func WithOnChange(fn func()) Option {
	return func(r *Reconciler) { r.onChange = fn }
}

func New(ids liveid.Generator, opts ...Option) *Reconciler {
	r := &Reconciler{ids: ids}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// bindSessionLocked applies the session adoption rule: the first observed
// session id is adopted; a different id while one is tracked replaces the
// session and discards all accumulated ephemera (timeline, pending plan,
// stream error). Durable history lives in the session store and is not
// touched here.
func (r *Reconciler) bindSessionLocked(sessionID string) {
	if sessionID == "" {
		return
	}
	if r.session == sessionID {
		return
	}
	if r.session != "" {
		debug.Logf("reconcile", "session replaced %s -> %s, clearing live state", r.session, sessionID)
		r.timeline = nil
		r.pending = nil
		r.streamErr = ""
	}
	r.session = sessionID
	r.active = true
}

func (r *Reconciler) findLocked(id string) *model.LiveTaskMessage {
	for i := range r.timeline {
		if r.timeline[i].ID == id {
			return &r.timeline[i]
		}
	}
	return nil
}

func (r *Reconciler) appendLocked(msg model.LiveTaskMessage) {
	r.seq++
	msg.Seq = r.seq
	if msg.ReceivedAt.IsZero() {
		msg.ReceivedAt = time.Now()
	}
	r.timeline = append(r.timeline, msg)
}

func (r *Reconciler) notify() {
	if r.onChange != nil {
		r.onChange()
	}
}

// HandleTaskEvent upserts a task entry by id. Status defaults to the event's
// explicit status, then done for build_complete, then running. build_complete
// is a terminal signal: it also marks the session inactive and clears any
// recorded stream error.
func (r *Reconciler) HandleTaskEvent(evt streamclient.TaskEvent) {
	r.mu.Lock()
	r.bindSessionLocked(evt.SessionID)

	msgType := model.LiveMessageType(evt.Type)
	status := model.LiveStatus(evt.Status)
	if status == "" {
		if msgType == model.LiveBuildComplete {
			status = model.LiveDone
		} else {
			status = model.LiveRunning
		}
	}

	if existing := r.findLocked(evt.ID); existing != nil {
		existing.Type = msgType
		existing.Status = status
		if evt.Title != "" {
			existing.Title = evt.Title
		}
	} else {
		r.appendLocked(model.LiveTaskMessage{
			ID:        evt.ID,
			Type:      msgType,
			Status:    status,
			Title:     evt.Title,
			SessionID: evt.SessionID,
		})
	}

	if msgType == model.LiveBuildComplete {
		r.active = false
		r.streamErr = ""
	}
	r.mu.Unlock()
	r.notify()
}

// cardMessageType maps a card's wire type onto a timeline message type.
// Unrecognized card types render as interview cards rather than being
// dropped.
func cardMessageType(cardType string) model.LiveMessageType {
	switch cardType {
	case "page":
		return model.LivePageCreated
	case "version":
		return model.LiveVersionSummary
	case "validation":
		return model.LiveValidationFailed
	case "build_plan":
		return model.LiveBuildPlan
	case "product_doc_ready":
		return model.LiveProductDocReady
	default:
		return model.LiveInterview
	}
}

type buildPlanCard struct {
	ApprovalRequired bool                `json:"approval_required"`
	BuildID          string              `json:"build_id,omitempty"`
	Summary          string              `json:"summary,omitempty"`
	Pages            []model.PlannedPage `json:"pages"`
}

type productDocCard struct {
	DocID string `json:"doc_id"`
}

// HandleCardEvent appends a timeline entry carrying the card payload. Cards
// are minted a local id so later local edits (approval state, dismissal) can
// address them. A build_plan card requiring approval sets the pending plan;
// a product_doc_ready card triggers the document collaborator.
func (r *Reconciler) HandleCardEvent(evt streamclient.CardEvent) {
	var fetchDoc string

	r.mu.Lock()
	r.bindSessionLocked(evt.SessionID)

	msgType := cardMessageType(evt.Type)
	status := model.LiveDone
	if msgType == model.LiveValidationFailed {
		status = model.LiveFailed
	}

	id := r.ids.Next()
	r.appendLocked(model.LiveTaskMessage{
		ID:        id,
		Type:      msgType,
		Status:    status,
		SessionID: evt.SessionID,
		Card:      &model.Card{Type: evt.Type, Data: evt.Data},
	})

	switch msgType {
	case model.LiveBuildPlan:
		var card buildPlanCard
		if err := json.Unmarshal(evt.Data, &card); err != nil {
			debug.Logf("reconcile", "bad build_plan card payload: %v", err)
		} else if card.ApprovalRequired {
			r.pending = &model.PendingBuildPlan{
				Plan:            model.BuildPlan{Summary: card.Summary, Pages: card.Pages},
				SourceMessageID: id,
			}
		}
	case model.LiveProductDocReady:
		var card productDocCard
		if err := json.Unmarshal(evt.Data, &card); err != nil {
			debug.Logf("reconcile", "bad product_doc_ready card payload: %v", err)
		} else {
			fetchDoc = card.DocID
		}
	}
	r.mu.Unlock()

	if fetchDoc != "" && r.docs != nil {
		r.docs.FetchDocument(fetchDoc)
	}
	r.notify()
}

// HandlePreviewUpdate forwards a preview invalidation; the timeline is not
// touched.
func (r *Reconciler) HandlePreviewUpdate(evt streamclient.PreviewUpdateEvent) {
	if r.preview != nil {
		r.preview.RefreshPage(evt.PageID)
	}
}

// HandlePlanUpdate forwards running-plan progress; the timeline is not
// touched.
func (r *Reconciler) HandlePlanUpdate(evt streamclient.PlanUpdateEvent) {
	if r.plans != nil {
		r.plans.PlanProgress(evt)
	}
}

// ProposePlan sets the pending plan directly, replacing any prior unapproved
// proposal. Used when a plan arrives through a REST snapshot rather than a
// stream card.
func (r *Reconciler) ProposePlan(plan model.BuildPlan, sourceMessageID string) {
	r.mu.Lock()
	r.pending = &model.PendingBuildPlan{Plan: plan, SourceMessageID: sourceMessageID}
	r.mu.Unlock()
	r.notify()
}

// Pending returns a copy of the pending plan, or nil.
func (r *Reconciler) Pending() *model.PendingBuildPlan {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.pending == nil {
		return nil
	}
	cp := *r.pending
	cp.Plan.Pages = append([]model.PlannedPage(nil), r.pending.Plan.Pages...)
	return &cp
}

// ClearPending drops the pending plan without touching the timeline.
func (r *Reconciler) ClearPending() {
	r.mu.Lock()
	r.pending = nil
	r.mu.Unlock()
	r.notify()
}

// Timeline returns a copy of the live timeline in insertion order.
func (r *Reconciler) Timeline() []model.LiveTaskMessage {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.LiveTaskMessage(nil), r.timeline...)
}

// MergeTimeline returns the union of the given durable entries and the live
// timeline, sorted by timestamp with ties stable by insertion sequence.
func (r *Reconciler) MergeTimeline(durable []model.LiveTaskMessage) []model.LiveTaskMessage {
	r.mu.Lock()
	merged := make([]model.LiveTaskMessage, 0, len(durable)+len(r.timeline))
	merged = append(merged, durable...)
	merged = append(merged, r.timeline...)
	r.mu.Unlock()

	sort.SliceStable(merged, func(i, j int) bool {
		if merged[i].ReceivedAt.Equal(merged[j].ReceivedAt) {
			return merged[i].Seq < merged[j].Seq
		}
		return merged[i].ReceivedAt.Before(merged[j].ReceivedAt)
	})
	return merged
}

// RemoveMessage deletes the entry with the given id, if present.
func (r *Reconciler) RemoveMessage(id string) {
	r.mu.Lock()
	for i := range r.timeline {
		if r.timeline[i].ID == id {
			r.timeline = append(r.timeline[:i], r.timeline[i+1:]...)
			break
		}
	}
	r.mu.Unlock()
	r.notify()
}

// UpdateMessage applies fn to the entry with the given id under the lock.
// Returns false when no entry matches.
func (r *Reconciler) UpdateMessage(id string, fn func(*model.LiveTaskMessage)) bool {
	r.mu.Lock()
	msg := r.findLocked(id)
	if msg != nil {
		fn(msg)
	}
	r.mu.Unlock()
	if msg == nil {
		return false
	}
	r.notify()
	return true
}

// FindBuildID scans timeline cards for a recorded build id. Covers retrying
// a page before the full session record has loaded.
func (r *Reconciler) FindBuildID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.timeline) - 1; i >= 0; i-- {
		msg := r.timeline[i]
		if msg.Card == nil || len(msg.Card.Data) == 0 {
			continue
		}
		var probe struct {
			BuildID string `json:"build_id"`
		}
		if err := json.Unmarshal(msg.Card.Data, &probe); err == nil && probe.BuildID != "" {
			return probe.BuildID
		}
	}
	return ""
}

// Clear discards all live state including the session binding.
func (r *Reconciler) Clear() {
	r.mu.Lock()
	r.timeline = nil
	r.pending = nil
	r.streamErr = ""
	r.session = ""
	r.active = false
	r.mu.Unlock()
	r.notify()
}

// SessionID returns the currently tracked session id, "" when unbound.
func (r *Reconciler) SessionID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.session
}

// Active reports whether a build is considered in flight.
func (r *Reconciler) Active() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}

// SetActive overrides the in-flight flag, used by the lifecycle when a build
// starts or terminates through a REST call rather than a stream event.
func (r *Reconciler) SetActive(active bool) {
	r.mu.Lock()
	r.active = active
	r.mu.Unlock()
	r.notify()
}

// StreamError returns the recorded stream-level error message, "" when none.
func (r *Reconciler) StreamError() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.streamErr
}

// SetStreamError records a stream-level error for display.
func (r *Reconciler) SetStreamError(msg string) {
	r.mu.Lock()
	r.streamErr = msg
	r.mu.Unlock()
	r.notify()
}
