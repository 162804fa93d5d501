package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/TheSmartAz/zaoya-sub000/internal/api"
	"github.com/TheSmartAz/zaoya-sub000/internal/lifecycle"
	"github.com/TheSmartAz/zaoya-sub000/internal/liveid"
	"github.com/TheSmartAz/zaoya-sub000/internal/model"
	"github.com/TheSmartAz/zaoya-sub000/internal/reconcile"
	"github.com/TheSmartAz/zaoya-sub000/internal/session"
	"github.com/TheSmartAz/zaoya-sub000/internal/streamclient"
	"github.com/TheSmartAz/zaoya-sub000/internal/watchtui"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow a build's live event stream",
	Long: `Open the watch TUI for the project's active build. Resumes from the
session checkpoint when one exists; pass --build to attach to a specific
build instead.`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().String("build", "", "Attach to a specific build id")
	watchCmd.Flags().Bool("approve", false, "Approve the first proposed build plan and follow the build")
	watchCmd.Flags().StringSlice("pages", nil, "With --approve, keep only these page ids from the proposed plan")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	client, cfg, err := clientFromFlags(cmd)
	if err != nil {
		return err
	}
	projectID, err := resolveProject(cmd, cfg)
	if err != nil {
		return err
	}
	buildID, _ := cmd.Flags().GetString("build")
	approve, _ := cmd.Flags().GetBool("approve")
	pages, _ := cmd.Flags().GetStringSlice("pages")

	// --approve is a batch flow; it always takes the plain path.
	if !approve && isatty.IsTerminal(os.Stdout.Fd()) {
		return watchtui.Run(watchtui.RunConfig{
			API:         client,
			ProjectID:   projectID,
			ProjectName: projectID,
			ProjectDir:  projectDir(),
			BuildID:     buildID,
		})
	}
	return watchPlain(cmd.Context(), client, projectID, buildID, approve, pages)
}

// watchPlain follows the stream without a TUI, printing one line per
// timeline change. Used when stdout is not a terminal or with --approve.
// With approve set, the first proposed build plan is approved automatically,
// pruned to keepPages when any are named.
func watchPlain(ctx context.Context, client *api.Client, projectID, buildID string, approve bool, keepPages []string) error {
	store := session.NewStore(projectDir())
	rec := reconcile.New(liveid.NewSource())
	stream := streamclient.New(rec, streamclient.WithToken(client.Token()))
	defer stream.Close()
	ctl := lifecycle.New(client, store, rec, stream, projectID)

	printed := map[string]model.LiveStatus{}

	if buildID == "" {
		snap, err := ctl.Resume(ctx)
		if err != nil {
			if errors.Is(err, lifecycle.ErrNoCheckpoint) {
				return errors.New("no build to watch: no checkpoint found and no --build given")
			}
			return err
		}
		buildID = snap.BuildID
	} else {
		snap, err := client.GetSession(ctx, buildID)
		if err != nil {
			return err
		}
		applied := store.ApplySnapshot(snap)
		if applied.Phase.Terminal() {
			fmt.Printf("build %s is %s\n", applied.BuildID, applied.Phase)
			return nil
		}
		rec.SetActive(true)
		if err := stream.Open(ctx, streamclient.OpenRequest{BuildID: buildID, URL: client.StreamURL(buildID)}); err != nil {
			return err
		}
	}

	fmt.Printf("watching build %s\n", buildID)
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if approve {
				if pending := rec.Pending(); pending != nil {
					edited, err := prunePlanPages(pending.Plan.Pages, keepPages)
					if err != nil {
						return err
					}
					if err := ctl.Approve(ctx, edited); err != nil {
						return err
					}
					fmt.Printf("plan approved (%d pages)\n", len(edited))
					approve = false
				}
			}
			for _, entry := range rec.Timeline() {
				if printed[entry.ID] == entry.Status {
					continue
				}
				printed[entry.ID] = entry.Status
				title := entry.Title
				if title == "" {
					title = string(entry.Type)
				}
				fmt.Printf("[%s] %s\n", entry.Status, title)
			}
			if health, msg := stream.Health(); health == streamclient.HealthError {
				return fmt.Errorf("stream error: %s", msg)
			}
			if !rec.Active() && len(rec.Timeline()) > 0 {
				fmt.Println("build complete")
				return nil
			}
		}
	}
}

// prunePlanPages filters a proposed page list down to the named ids. An id
// that is not part of the proposal is an error, not a silent skip.
func prunePlanPages(proposed []model.PlannedPage, keep []string) ([]model.PlannedPage, error) {
	if len(keep) == 0 {
		return proposed, nil
	}
	want := make(map[string]bool, len(keep))
	for _, id := range keep {
		want[id] = true
	}
	var out []model.PlannedPage
	for _, p := range proposed {
		if want[p.ID] {
			out = append(out, p)
			delete(want, p.ID)
		}
	}
	if len(want) > 0 {
		unknown := make([]string, 0, len(want))
		for id := range want {
			unknown = append(unknown, id)
		}
		sort.Strings(unknown)
		return nil, fmt.Errorf("pages not in the proposed plan: %s", strings.Join(unknown, ", "))
	}
	return out, nil
}
