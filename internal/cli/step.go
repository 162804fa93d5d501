package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/TheSmartAz/zaoya-sub000/internal/lifecycle"
	"github.com/TheSmartAz/zaoya-sub000/internal/liveid"
	"github.com/TheSmartAz/zaoya-sub000/internal/reconcile"
	"github.com/TheSmartAz/zaoya-sub000/internal/session"
	"github.com/TheSmartAz/zaoya-sub000/internal/streamclient"
)

var stepCmd = &cobra.Command{
	Use:   "step [message]",
	Short: "Advance the tracked build by one increment",
	Long: `Ask the server to advance the build one step and apply the returned
session snapshot. An optional message is passed to the pipeline, e.g. an
answer to an interview question.`,
	RunE: runStep,
}

func init() {
	rootCmd.AddCommand(stepCmd)
}

// plainController builds a lifecycle controller for one-shot commands that
// do not hold a stream open.
func plainController(cmd *cobra.Command) (*lifecycle.Controller, *session.Store, error) {
	client, cfg, err := clientFromFlags(cmd)
	if err != nil {
		return nil, nil, err
	}
	projectID, _ := resolveProject(cmd, cfg)

	store := session.NewStore(projectDir())
	rec := reconcile.New(liveid.NewSource())
	stream := streamclient.New(rec, streamclient.WithToken(client.Token()))
	return lifecycle.New(client, store, rec, stream, projectID), store, nil
}

func runStep(cmd *cobra.Command, args []string) error {
	ctl, store, err := plainController(cmd)
	if err != nil {
		return err
	}
	if _, err := restoreSession(cmd, store); err != nil {
		return err
	}

	snap, err := ctl.Step(cmd.Context(), strings.Join(args, " "))
	if err != nil {
		return err
	}
	fmt.Printf("build %s advanced, phase: %s\n", snap.BuildID, phaseColored(snap.Phase))
	return nil
}

// restoreSession loads the checkpoint into the store so ctl can resolve the
// tracked build id without opening a stream.
func restoreSession(cmd *cobra.Command, store *session.Store) (string, error) {
	cp, err := store.LoadCheckpoint()
	if err != nil {
		return "", err
	}
	if cp == nil {
		return "", lifecycle.ErrNoBuild
	}
	store.Create(cp.BuildID, cp.ProjectID, cp.Phase)
	return cp.BuildID, nil
}
