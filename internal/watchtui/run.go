package watchtui

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/TheSmartAz/zaoya-sub000/internal/api"
	"github.com/TheSmartAz/zaoya-sub000/internal/eventq"
	"github.com/TheSmartAz/zaoya-sub000/internal/lifecycle"
	"github.com/TheSmartAz/zaoya-sub000/internal/liveid"
	"github.com/TheSmartAz/zaoya-sub000/internal/reconcile"
	"github.com/TheSmartAz/zaoya-sub000/internal/session"
	"github.com/TheSmartAz/zaoya-sub000/internal/streamclient"
)

// RunConfig holds everything needed to launch the watch TUI.
type RunConfig struct {
	API         *api.Client
	ProjectID   string
	ProjectName string
	ProjectDir  string

	// BuildID attaches to a specific build instead of resuming from the
	// checkpoint.
	BuildID string
}

// Run wires the engine together and drives the TUI until the user quits.
// State changes flow in on one channel: reconciler change notifications,
// stream health transitions, and session snapshots are all messages folded
// by the bubbletea update loop.
func Run(cfg RunConfig) error {
	eventCh := make(chan any, 256)

	store := session.NewStore(cfg.ProjectDir)
	rec := reconcile.New(liveid.NewSource(), reconcile.WithOnChange(func() {
		eventq.Offer(eventCh, any(TimelineChangedMsg{}))
	}))
	stream := streamclient.New(rec,
		streamclient.WithToken(cfg.API.Token()),
		streamclient.WithHealthFunc(func(h streamclient.Health, msg string) {
			eventq.Offer(eventCh, any(HealthMsg{Health: h, Message: msg}))
		}),
	)
	defer stream.Close()

	ctl := lifecycle.New(cfg.API, store, rec, stream, cfg.ProjectID)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	// Attach to the requested build, or resume from the checkpoint when one
	// exists. Starting fresh with no session is fine: the first approved
	// plan creates one.
	go func() {
		switch {
		case cfg.BuildID != "":
			snap, err := cfg.API.GetSession(ctx, cfg.BuildID)
			if err != nil {
				rec.SetStreamError(err.Error())
				return
			}
			applied := store.ApplySnapshot(snap)
			eventq.Offer(eventCh, any(SessionUpdatedMsg{Session: applied}))
			if !applied.Phase.Terminal() {
				rec.SetActive(true)
				if err := stream.Open(ctx, streamclient.OpenRequest{
					BuildID: applied.BuildID,
					URL:     cfg.API.StreamURL(applied.BuildID),
				}); err != nil {
					rec.SetStreamError(err.Error())
				}
			}
		default:
			snap, err := ctl.Resume(ctx)
			if err != nil && !errors.Is(err, lifecycle.ErrNoCheckpoint) {
				rec.SetStreamError(err.Error())
			}
			if snap != nil {
				eventq.Offer(eventCh, any(SessionUpdatedMsg{Session: snap}))
			}
		}
	}()

	m := NewModel(cfg.ProjectName, ctl, rec, store, eventCh)
	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err := p.Run()
	cancel()
	return err
}
