// Package lifecycle drives a build through proposal, approval, stepping,
// retry, and abort. It is the only writer that coordinates the session
// store, the reconciler, and the stream client, so every user action lands
// as one atomic state change.
package lifecycle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/TheSmartAz/zaoya-sub000/internal/api"
	"github.com/TheSmartAz/zaoya-sub000/internal/debug"
	"github.com/TheSmartAz/zaoya-sub000/internal/model"
	"github.com/TheSmartAz/zaoya-sub000/internal/reconcile"
	"github.com/TheSmartAz/zaoya-sub000/internal/session"
	"github.com/TheSmartAz/zaoya-sub000/internal/streamclient"
)

var (
	// ErrNoPendingPlan is returned when approve or dismiss is called without
	// a plan awaiting approval.
	ErrNoPendingPlan = errors.New("no build plan is awaiting approval")

	// ErrNoBuild is returned when an operation needs a build id and none can
	// be resolved from the session or the live timeline.
	ErrNoBuild = errors.New("no build is being tracked")

	// ErrNoProject is returned when approval cannot establish a project id.
	ErrNoProject = errors.New("no project id available for this build")

	// ErrStepInFlight is returned when step is called while a previous step
	// for the same build has not completed. The server session is not safe
	// for concurrent stepping.
	ErrStepInFlight = errors.New("a step is already in flight")

	// ErrNoCheckpoint is returned by Resume when no persisted session
	// identity exists.
	ErrNoCheckpoint = errors.New("no session checkpoint to resume from")
)

// Streamer is the subset of the stream client the controller drives.
type Streamer interface {
	Open(ctx context.Context, req streamclient.OpenRequest) error
	Close()
	Health() (streamclient.Health, string)
}

// Controller owns user-initiated build actions. projectID is the currently
// open project, used as the fallback when a session has not recorded one
// yet; the first approval in a session establishes it.
type Controller struct {
	api    *api.Client
	store  *session.Store
	rec    *reconcile.Reconciler
	stream Streamer

	projectID string

	mu       sync.Mutex
	stepping bool
}

func New(apiClient *api.Client, store *session.Store, rec *reconcile.Reconciler, stream Streamer, projectID string) *Controller {
	return &Controller{
		api:       apiClient,
		store:     store,
		rec:       rec,
		stream:    stream,
		projectID: projectID,
	}
}

// ProposePlan records a plan awaiting approval, replacing any earlier
// unapproved proposal.
func (c *Controller) ProposePlan(plan model.BuildPlan, sourceMessageID string) {
	c.rec.ProposePlan(plan, sourceMessageID)
}

// Approve starts a build from the pending plan. editedPages, when non-nil,
// replaces the proposed page list (the user may edit before approving). On
// success the pending plan is cleared, the originating card is rewritten to
// show the build running, and a stream is opened for the new build id. On a
// failed start call no state is mutated beyond the surfaced error, so the
// user may retry.
func (c *Controller) Approve(ctx context.Context, editedPages []model.PlannedPage) error {
	pending := c.rec.Pending()
	if pending == nil {
		return ErrNoPendingPlan
	}

	pages := editedPages
	if pages == nil {
		pages = pending.Plan.Pages
	}

	projectID := c.projectID
	if cur := c.store.Current(); cur != nil && cur.ProjectID != "" {
		projectID = cur.ProjectID
	}
	if projectID == "" {
		return ErrNoProject
	}

	buildID, err := c.api.StartBuild(ctx, projectID, pages)
	if err != nil {
		c.rec.SetStreamError(err.Error())
		return fmt.Errorf("starting build: %w", err)
	}

	c.store.Create(buildID, projectID, model.PhasePlanning)
	c.rec.UpdateMessage(pending.SourceMessageID, func(m *model.LiveTaskMessage) {
		m.Status = model.LiveRunning
		if m.Card != nil {
			m.Card.Data = cardWithBuildStarted(m.Card.Data, buildID)
		}
	})
	c.rec.ClearPending()
	c.rec.SetActive(true)

	// The plan card may have arrived on a stream for an earlier build;
	// that connection must go before the new build's can open.
	c.stream.Close()
	if err := c.stream.Open(ctx, streamclient.OpenRequest{BuildID: buildID, URL: c.api.StreamURL(buildID)}); err != nil {
		c.rec.SetStreamError(err.Error())
		return fmt.Errorf("opening build stream: %w", err)
	}
	return nil
}

// cardWithBuildStarted rewrites a build_plan card payload to reflect that
// approval was given and execution started.
func cardWithBuildStarted(data json.RawMessage, buildID string) json.RawMessage {
	fields := map[string]any{}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &fields); err != nil {
			debug.Logf("lifecycle", "unreadable plan card payload, rewriting: %v", err)
			fields = map[string]any{}
		}
	}
	fields["approval_required"] = false
	fields["build_id"] = buildID
	out, err := json.Marshal(fields)
	if err != nil {
		return data
	}
	return out
}

// Dismiss drops the pending plan and removes the originating live message.
// A dismissed proposal is purely local; the server never started work on it,
// so no call is issued.
func (c *Controller) Dismiss() error {
	pending := c.rec.Pending()
	if pending == nil {
		return ErrNoPendingPlan
	}
	c.rec.RemoveMessage(pending.SourceMessageID)
	c.rec.ClearPending()
	return nil
}

// buildID resolves the tracked build id, falling back to any live message
// carrying one. Covers retrying before the full session record has loaded.
func (c *Controller) buildID() string {
	if cur := c.store.Current(); cur != nil && cur.BuildID != "" {
		return cur.BuildID
	}
	return c.rec.FindBuildID()
}

// RetryPage re-runs a single failed page. The target live message is
// rewritten to running with a retry label, then a new stream is opened at
// the page's retry endpoint. Other pages' entries are never touched.
func (c *Controller) RetryPage(ctx context.Context, taskID string) error {
	buildID := c.buildID()
	if buildID == "" {
		return ErrNoBuild
	}

	c.rec.UpdateMessage(taskID, func(m *model.LiveTaskMessage) {
		m.Status = model.LiveRunning
		if m.Title != "" {
			m.Title = "Retrying " + m.Title
		} else {
			m.Title = "Retrying page"
		}
	})
	c.rec.SetActive(true)

	c.stream.Close()
	if err := c.stream.Open(ctx, streamclient.OpenRequest{BuildID: buildID, URL: c.api.RetryStreamURL(buildID, taskID)}); err != nil {
		c.rec.SetStreamError(err.Error())
		return fmt.Errorf("opening retry stream: %w", err)
	}
	return nil
}

// Abort stops the build server-side. On success the server's terminal
// snapshot is applied, the session is marked inactive, and the stream is
// closed (health returns to idle). On failure nothing changes: the build is
// assumed still in flight rather than optimistically marked stopped.
func (c *Controller) Abort(ctx context.Context) error {
	buildID := c.buildID()
	if buildID == "" {
		return ErrNoBuild
	}

	snap, err := c.api.AbortBuild(ctx, buildID)
	if err != nil {
		return fmt.Errorf("aborting build: %w", err)
	}

	c.store.ApplySnapshot(snap)
	c.rec.SetActive(false)
	c.stream.Close()
	debug.LogKV("lifecycle", "build aborted", "build_id", buildID, "phase", string(snap.Phase))
	return nil
}

// Step advances the build by one increment outside the push-stream path and
// applies the returned snapshot wholesale. A second Step while one is in
// flight is rejected, never interleaved.
func (c *Controller) Step(ctx context.Context, userMessage string) (*model.BuildSession, error) {
	c.mu.Lock()
	if c.stepping {
		c.mu.Unlock()
		return nil, ErrStepInFlight
	}
	c.stepping = true
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.stepping = false
		c.mu.Unlock()
	}()

	buildID := c.buildID()
	if buildID == "" {
		return nil, ErrNoBuild
	}

	snap, err := c.api.StepBuild(ctx, buildID, userMessage)
	if err != nil {
		return nil, fmt.Errorf("stepping build: %w", err)
	}
	return c.store.ApplySnapshot(snap), nil
}

// Resume rebuilds state after a client restart: load the persisted identity
// slice, re-fetch the authoritative session record, and, when the phase is
// non-terminal, re-open the stream in resume mode so health reads
// reconnecting until the first event arrives.
func (c *Controller) Resume(ctx context.Context) (*model.BuildSession, error) {
	cp, err := c.store.LoadCheckpoint()
	if err != nil {
		return nil, fmt.Errorf("loading checkpoint: %w", err)
	}
	if cp == nil {
		return nil, ErrNoCheckpoint
	}

	snap, err := c.api.GetSession(ctx, cp.BuildID)
	if err != nil {
		return nil, fmt.Errorf("fetching session %s: %w", cp.BuildID, err)
	}
	applied := c.store.ApplySnapshot(snap)

	if applied.Phase.Terminal() {
		c.rec.SetActive(false)
		return applied, nil
	}

	c.rec.SetActive(true)
	if err := c.stream.Open(ctx, streamclient.OpenRequest{
		BuildID: applied.BuildID,
		URL:     c.api.StreamURL(applied.BuildID),
		Resume:  true,
	}); err != nil {
		c.rec.SetStreamError(err.Error())
		return applied, fmt.Errorf("reopening build stream: %w", err)
	}
	return applied, nil
}
