package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/TheSmartAz/zaoya-sub000/internal/api"
	"github.com/TheSmartAz/zaoya-sub000/internal/config"
)

var errNoProject = errors.New("no project id: pass --project or run `zaoya config set-project`")

// clientFromFlags builds the API client from the global config, honoring the
// --server override.
func clientFromFlags(cmd *cobra.Command) (*api.Client, *config.GlobalConfig, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}
	server := cfg.Server()
	if flag, _ := cmd.Flags().GetString("server"); flag != "" {
		server = flag
	}
	return api.New(server, cfg.APIToken, cfg.Timeout()), cfg, nil
}

// resolveProject returns the project id from --project or the configured
// default.
func resolveProject(cmd *cobra.Command, cfg *config.GlobalConfig) (string, error) {
	if flag, _ := cmd.Flags().GetString("project"); flag != "" {
		return flag, nil
	}
	if cfg.DefaultProject != "" {
		return cfg.DefaultProject, nil
	}
	return "", errNoProject
}

// projectDir is where the session checkpoint lives: the current working
// directory's .zaoya subdirectory.
func projectDir() string {
	dir, err := os.Getwd()
	if err != nil {
		return "."
	}
	return dir
}
