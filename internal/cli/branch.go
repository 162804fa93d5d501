package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var branchCmd = &cobra.Command{
	Use:   "branch",
	Short: "Manage project branches",
}

var branchListCmd = &cobra.Command{
	Use:   "list",
	Short: "List branches",
	RunE:  runBranchList,
}

var branchCreateCmd = &cobra.Command{
	Use:   "create <name> --from <version-id>",
	Short: "Create a branch diverging at a version",
	Args:  cobra.ExactArgs(1),
	RunE:  runBranchCreate,
}

var branchActivateCmd = &cobra.Command{
	Use:   "activate <branch-id>",
	Short: "Make a branch the active one",
	Args:  cobra.ExactArgs(1),
	RunE:  runBranchActivate,
}

func init() {
	branchCreateCmd.Flags().String("from", "", "Version id the branch diverges from")
	branchCreateCmd.MarkFlagRequired("from")
	branchCreateCmd.Flags().Bool("no-activate", false, "Create without switching to the new branch")
	branchCmd.AddCommand(branchListCmd, branchCreateCmd, branchActivateCmd)
	rootCmd.AddCommand(branchCmd)
}

func runBranchList(cmd *cobra.Command, args []string) error {
	mgr, projectID, err := versionManager(cmd)
	if err != nil {
		return err
	}
	if err := mgr.LoadBranches(cmd.Context(), projectID); err != nil {
		return err
	}

	branches := mgr.Branches()
	if len(branches) == 0 {
		fmt.Println(colorDim + "no branches" + colorReset)
		return nil
	}
	for _, b := range branches {
		marker := "  "
		if b.IsDefault {
			marker = styleBoldGreen + "* " + colorReset
		}
		label := b.Name
		if b.Label != "" {
			label = b.Label
		}
		fmt.Printf("%s%s  %s%s%s\n", marker, label, colorDim, b.ID, colorReset)
	}
	return nil
}

func runBranchCreate(cmd *cobra.Command, args []string) error {
	mgr, projectID, err := versionManager(cmd)
	if err != nil {
		return err
	}
	from, _ := cmd.Flags().GetString("from")
	noActivate, _ := cmd.Flags().GetBool("no-activate")

	branch, err := mgr.CreateBranch(cmd.Context(), projectID, from, args[0], !noActivate)
	if err != nil {
		return err
	}
	fmt.Printf("%sbranch %s created%s (%s)\n", styleBoldGreen, branch.Name, colorReset, branch.ID)
	if !noActivate {
		fmt.Println("now active")
	}
	return nil
}

func runBranchActivate(cmd *cobra.Command, args []string) error {
	mgr, projectID, err := versionManager(cmd)
	if err != nil {
		return err
	}
	if err := mgr.ActivateBranch(cmd.Context(), projectID, args[0]); err != nil {
		return err
	}
	fmt.Printf("branch %s active\n", args[0])
	return nil
}
