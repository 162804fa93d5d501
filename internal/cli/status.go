package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/TheSmartAz/zaoya-sub000/internal/model"
	"github.com/TheSmartAz/zaoya-sub000/internal/session"
)

var statusCmd = &cobra.Command{
	Use:     "status",
	Aliases: []string{"st"},
	Short:   "Show the tracked build session",
	Long: `Display the checkpointed build session and, when the server is
reachable, its current durable state.`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	store := session.NewStore(projectDir())
	cp, err := store.LoadCheckpoint()
	if err != nil {
		return err
	}
	if cp == nil {
		fmt.Println(styleBoldYellow + "No build session tracked in this directory." + colorReset)
		fmt.Println("Run " + styleBoldWhite + "zaoya watch" + colorReset + " to start following a build.")
		return nil
	}

	fmt.Println()
	fmt.Printf("  %szaoya%s build %s%s%s\n", styleBoldCyan, colorReset, colorBold, cp.BuildID, colorReset)
	fmt.Printf("  %sproject %s%s\n", colorDim, cp.ProjectID, colorReset)
	fmt.Printf("  checkpoint phase: %s\n", phaseColored(cp.Phase))

	client, _, err := clientFromFlags(cmd)
	if err != nil {
		return err
	}
	snap, err := client.GetSession(cmd.Context(), cp.BuildID)
	if err != nil {
		fmt.Printf("  %sserver unreachable: %v%s\n", colorDim, err, colorReset)
		return nil
	}

	fmt.Printf("  server phase:     %s\n", phaseColored(snap.Phase))
	if snap.CurrentTaskID != "" {
		fmt.Printf("  current task:     %s\n", snap.CurrentTaskID)
	}
	if len(snap.Graph.Tasks) > 0 {
		done := 0
		for _, task := range snap.Graph.Tasks {
			if task.Status == model.TaskDone {
				done++
			}
		}
		fmt.Printf("  tasks:            %d/%d done\n", done, len(snap.Graph.Tasks))
	}
	if snap.LastValidation != nil {
		fmt.Printf("  last validation:  %s\n", passFail(snap.LastValidation.Passed))
	}
	if snap.LastCheck != nil {
		fmt.Printf("  last check:       %s\n", passFail(snap.LastCheck.Passed))
	}
	if snap.LastReview != nil {
		marker := styleBoldGreen + "approved" + colorReset
		if !snap.LastReview.Approved {
			marker = styleBoldYellow + "changes requested" + colorReset
		}
		fmt.Printf("  last review:      %s\n", marker)
	}
	if n := len(snap.History); n > 0 {
		fmt.Println("  recent history:")
		tail := snap.History
		if n > 5 {
			tail = tail[n-5:]
		}
		for _, ev := range tail {
			line := ev.Action
			if ev.Details != "" {
				line += ": " + ev.Details
			}
			fmt.Printf("    %s%s%s  [%s] %s\n", colorDim, ev.TS.Format("15:04:05"), colorReset, ev.Phase, line)
		}
	}
	fmt.Println()
	return nil
}

func passFail(ok bool) string {
	if ok {
		return styleBoldGreen + "pass" + colorReset
	}
	return styleBoldRed + "fail" + colorReset
}

func phaseColored(phase model.BuildPhase) string {
	switch phase {
	case model.PhaseReady:
		return styleBoldGreen + string(phase) + colorReset
	case model.PhaseAborted, model.PhaseError:
		return styleBoldRed + string(phase) + colorReset
	default:
		return styleBoldYellow + string(phase) + colorReset
	}
}
