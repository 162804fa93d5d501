package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/TheSmartAz/zaoya-sub000/internal/lifecycle"
	"github.com/TheSmartAz/zaoya-sub000/internal/liveid"
	"github.com/TheSmartAz/zaoya-sub000/internal/model"
	"github.com/TheSmartAz/zaoya-sub000/internal/reconcile"
	"github.com/TheSmartAz/zaoya-sub000/internal/session"
	"github.com/TheSmartAz/zaoya-sub000/internal/streamclient"
)

var retryCmd = &cobra.Command{
	Use:   "retry <task-id>",
	Short: "Retry a single failed page",
	Long: `Re-run one page task within the tracked build. A fresh stream is
opened at the page's retry endpoint and followed until the page finishes.`,
	Args: cobra.ExactArgs(1),
	RunE: runRetry,
}

func init() {
	rootCmd.AddCommand(retryCmd)
}

func runRetry(cmd *cobra.Command, args []string) error {
	client, cfg, err := clientFromFlags(cmd)
	if err != nil {
		return err
	}
	projectID, _ := resolveProject(cmd, cfg)

	store := session.NewStore(projectDir())
	rec := reconcile.New(liveid.NewSource())
	stream := streamclient.New(rec, streamclient.WithToken(client.Token()))
	defer stream.Close()
	ctl := lifecycle.New(client, store, rec, stream, projectID)

	if _, err := restoreSession(cmd, store); err != nil {
		return err
	}

	taskID := args[0]
	if err := ctl.RetryPage(cmd.Context(), taskID); err != nil {
		return err
	}
	fmt.Printf("retrying %s…\n", taskID)

	// Follow the retry stream until the page task resolves.
	deadline := time.After(10 * time.Minute)
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-cmd.Context().Done():
			return nil
		case <-deadline:
			return errors.New("timed out waiting for the retry to finish")
		case <-ticker.C:
			if health, msg := stream.Health(); health == streamclient.HealthError {
				return fmt.Errorf("stream error: %s", msg)
			}
			for _, entry := range rec.Timeline() {
				if entry.ID != taskID {
					continue
				}
				switch entry.Status {
				case model.LiveDone:
					fmt.Printf("%s%s done%s\n", styleBoldGreen, taskID, colorReset)
					return nil
				case model.LiveFailed:
					return fmt.Errorf("%s failed again", taskID)
				}
			}
		}
	}
}
