package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var abortCmd = &cobra.Command{
	Use:   "abort",
	Short: "Abort the tracked build",
	Long: `Stop the server pipeline for the tracked build. On success the
server's terminal session state is applied locally. If the call fails the
build is assumed still running.`,
	RunE: runAbort,
}

func init() {
	rootCmd.AddCommand(abortCmd)
}

func runAbort(cmd *cobra.Command, args []string) error {
	ctl, store, err := plainController(cmd)
	if err != nil {
		return err
	}
	buildID, err := restoreSession(cmd, store)
	if err != nil {
		return err
	}

	if err := ctl.Abort(cmd.Context()); err != nil {
		return err
	}
	fmt.Printf("%sbuild %s aborted%s\n", styleBoldRed, buildID, colorReset)
	return nil
}
