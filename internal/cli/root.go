// Package cli implements the zaoya command tree.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/TheSmartAz/zaoya-sub000/internal/buildinfo"
	"github.com/TheSmartAz/zaoya-sub000/internal/debug"
)

const (
	// ANSI color codes
	colorReset  = "\033[0m"
	colorBold   = "\033[1m"
	colorDim    = "\033[2m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"

	// Combined styles
	styleBoldCyan   = "\033[1;36m"
	styleBoldGreen  = "\033[1;32m"
	styleBoldYellow = "\033[1;33m"
	styleBoldRed    = "\033[1;31m"
	styleBoldWhite  = "\033[1;37m"
)

var rootCmd = &cobra.Command{
	Use:   "zaoya",
	Short: "Watch and drive zaoya website builds",
	Long: styleBoldCyan + `zaoya` + colorReset + ` v` + buildinfo.Current().Version + `

  Client for the zaoya build pipeline: follow a build's live event stream,
  approve or edit proposed build plans, retry failed pages, abort runs, and
  browse the version history of a project.

` + colorBold + `Getting Started:` + colorReset + `
  zaoya config set-token <token>   Store your API token
  zaoya watch --project my-site    Follow the active build
  zaoya status                     Show the tracked build session
  zaoya versions list              Browse version history

` + colorBold + `More Info:` + colorReset + `
  https://github.com/TheSmartAz/zaoya-sub000`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.Version = buildinfo.Current().Version
	rootCmd.CompletionOptions.HiddenDefaultCmd = true
	rootCmd.PersistentFlags().Bool("debug", false, "Enable verbose debug logging to ~/.zaoya/debug/")
	rootCmd.PersistentFlags().String("project", "", "Project id (defaults to the configured default project)")
	rootCmd.PersistentFlags().String("server", "", "Server base URL (overrides the configured server)")

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		debugFlag, _ := cmd.Flags().GetBool("debug")
		if !debugFlag && !debug.ShouldEnableFromEnv() {
			return nil
		}
		logPath, err := debug.Init()
		if err != nil {
			return fmt.Errorf("initializing debug logger: %w", err)
		}
		fmt.Fprintf(os.Stderr, "%s[debug]%s logging to %s\n", colorDim, colorReset, logPath)
		bi := buildinfo.Current()
		debug.LogKV("cli", "zaoya starting",
			"version", bi.Version,
			"commit", bi.CommitHash,
			"pid", os.Getpid(),
			"command", cmd.Name(),
			"args", args,
		)
		return nil
	}
}

// Execute runs the root command.
func Execute() {
	defer debug.Close()
	if err := rootCmd.Execute(); err != nil {
		debug.Logf("cli", "exit with error: %v", err)
		fmt.Fprintf(os.Stderr, "%sError: %s%s\n", colorRed, err, colorReset)
		os.Exit(1)
	}
	debug.Log("cli", "exit success")
}
