package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/TheSmartAz/zaoya-sub000/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or change client configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		fmt.Printf("server:           %s\n", cfg.Server())
		token := "(not set)"
		if cfg.APIToken != "" {
			token = "set"
		}
		fmt.Printf("api token:        %s\n", token)
		project := cfg.DefaultProject
		if project == "" {
			project = "(not set)"
		}
		fmt.Printf("default project:  %s\n", project)
		fmt.Printf("request timeout:  %s\n", cfg.Timeout())
		return nil
	},
}

var configSetTokenCmd = &cobra.Command{
	Use:   "set-token <token>",
	Short: "Store the API token",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return updateConfig(func(cfg *config.GlobalConfig) { cfg.APIToken = args[0] })
	},
}

var configSetProjectCmd = &cobra.Command{
	Use:   "set-project <project-id>",
	Short: "Set the default project",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return updateConfig(func(cfg *config.GlobalConfig) { cfg.DefaultProject = args[0] })
	},
}

var configSetServerCmd = &cobra.Command{
	Use:   "set-server <url>",
	Short: "Set the server base URL",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return updateConfig(func(cfg *config.GlobalConfig) { cfg.ServerURL = args[0] })
	},
}

func init() {
	configCmd.AddCommand(configShowCmd, configSetTokenCmd, configSetProjectCmd, configSetServerCmd)
	rootCmd.AddCommand(configCmd)
}

func updateConfig(apply func(*config.GlobalConfig)) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	apply(cfg)
	if err := config.Save(cfg); err != nil {
		return err
	}
	fmt.Println("saved")
	return nil
}
