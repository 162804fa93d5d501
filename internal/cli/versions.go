package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/TheSmartAz/zaoya-sub000/internal/versions"
)

var versionsCmd = &cobra.Command{
	Use:     "versions",
	Aliases: []string{"v"},
	Short:   "Browse and manage the project's version history",
}

var versionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List versions, indented by parent chain",
	RunE:  runVersionsList,
}

var versionsPinCmd = &cobra.Command{
	Use:   "pin <version-id>",
	Short: "Pin a version so it is never pruned",
	Args:  cobra.ExactArgs(1),
	RunE:  func(cmd *cobra.Command, args []string) error { return runVersionsPin(cmd, args[0], true) },
}

var versionsUnpinCmd = &cobra.Command{
	Use:   "unpin <version-id>",
	Short: "Remove a version's pin",
	Args:  cobra.ExactArgs(1),
	RunE:  func(cmd *cobra.Command, args []string) error { return runVersionsPin(cmd, args[0], false) },
}

var versionsRollbackCmd = &cobra.Command{
	Use:   "rollback <version-id> <page-id>...",
	Short: "Roll back selected pages to a version",
	Long: `Roll back only the named pages to their content at the given version.
History is additive: the rollback creates a new version on top, it never
rewrites the past. Pages missing at that version cannot be selected.`,
	Args: cobra.MinimumNArgs(2),
	RunE: runVersionsRollback,
}

var versionsRestoreCmd = &cobra.Command{
	Use:   "restore <version-id>",
	Short: "Restore the whole project to a version",
	Args:  cobra.ExactArgs(1),
	RunE:  runVersionsRestore,
}

func init() {
	versionsListCmd.Flags().String("branch", "", "Only show versions on one branch")
	versionsCmd.AddCommand(versionsListCmd, versionsPinCmd, versionsUnpinCmd, versionsRollbackCmd, versionsRestoreCmd)
	rootCmd.AddCommand(versionsCmd)
}

func versionManager(cmd *cobra.Command) (*versions.Manager, string, error) {
	client, cfg, err := clientFromFlags(cmd)
	if err != nil {
		return nil, "", err
	}
	projectID, err := resolveProject(cmd, cfg)
	if err != nil {
		return nil, "", err
	}
	return versions.New(client), projectID, nil
}

func runVersionsList(cmd *cobra.Command, args []string) error {
	mgr, projectID, err := versionManager(cmd)
	if err != nil {
		return err
	}
	branchID, _ := cmd.Flags().GetString("branch")
	if err := mgr.Load(cmd.Context(), projectID, branchID); err != nil {
		return err
	}

	list := mgr.Versions()
	if len(list) == 0 {
		fmt.Println(colorDim + "no versions yet" + colorReset)
		return nil
	}

	for _, v := range list {
		indent := strings.Repeat("  ", mgr.Depth(v.ID))
		marker := " "
		if v.IsPinned {
			marker = styleBoldYellow + "★" + colorReset
		}
		label := v.ID
		if mgr.IsBranchRoot(v.ID) {
			label += " " + styleBoldCyan + "⎇ " + v.BranchLabel + colorReset
		}
		desc := v.Change.Description
		if desc == "" {
			desc = fmt.Sprintf("%d files changed", v.Change.FilesChanged)
		}
		fmt.Printf("%s%s %s  %s%s%s\n", indent, marker, label, colorDim, desc, colorReset)
	}

	quota := mgr.Quota()
	if quota.Limit >= 0 {
		line := fmt.Sprintf("%d/%d versions used", quota.Used, quota.Limit)
		if quota.Warning {
			line = styleBoldYellow + line + colorReset
		} else {
			line = colorDim + line + colorReset
		}
		fmt.Println(line)
	}
	return nil
}

func runVersionsPin(cmd *cobra.Command, versionID string, pin bool) error {
	mgr, projectID, err := versionManager(cmd)
	if err != nil {
		return err
	}
	if err := mgr.Pin(cmd.Context(), projectID, versionID, pin); err != nil {
		return err
	}
	if pin {
		fmt.Printf("%s pinned\n", versionID)
	} else {
		fmt.Printf("%s unpinned\n", versionID)
	}
	return nil
}

func runVersionsRollback(cmd *cobra.Command, args []string) error {
	mgr, projectID, err := versionManager(cmd)
	if err != nil {
		return err
	}
	versionID, pageIDs := args[0], args[1:]
	if err := mgr.RollbackPages(cmd.Context(), projectID, versionID, pageIDs); err != nil {
		return err
	}
	fmt.Printf("%srolled back %d page(s) to %s%s\n", styleBoldGreen, len(pageIDs), versionID, colorReset)
	return nil
}

func runVersionsRestore(cmd *cobra.Command, args []string) error {
	mgr, projectID, err := versionManager(cmd)
	if err != nil {
		return err
	}
	if err := mgr.Restore(cmd.Context(), projectID, args[0]); err != nil {
		return err
	}
	fmt.Printf("%sproject restored to %s%s\n", styleBoldGreen, args[0], colorReset)
	return nil
}
