package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/medlens-dev/medlens/internal/cli/config"
	"github.com/medlens-dev/medlens/internal/cli/serverselect"
	"github.com/medlens-dev/medlens/internal/cli/userconfig"
)

// NewSelectServerCmd creates the select-server command
func NewSelectServerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "select-server [alias-or-url]",
		Short: "Select the server to use for commands",
		Long: `Select the server to use for commands.

If no param is provided, an interactive prompt will be shown.

Examples:
  $ medlens select-server                              # Interactive selection
  $ medlens select-server https://medlens.example.org  # Select by URL
  $ medlens select-server clinic                       # Select by alias`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var aliasOrURL string
			if len(args) > 0 {
				aliasOrURL = args[0]
			}
			return runSelectServer(cmd.OutOrStdout(), aliasOrURL, serverselect.PromptServerSelection)
		},
	}

	return cmd
}

func runSelectServer(out io.Writer, aliasOrURL string, prompt func(*config.Config) (*config.Server, error)) error {
	cfg, err := config.LoadFromCurrentDir()
	if err != nil {
		return fmt.Errorf("failed to load config: %w\nRun 'medlens init <server-url>' to create a configuration file", err)
	}

	var server *config.Server

	if aliasOrURL != "" {
		server, err = cfg.GetServerByAlias(aliasOrURL)
		if err != nil {
			server, err = cfg.GetServerByURL(aliasOrURL)
		}
		if err != nil {
			return fmt.Errorf("server '%s' not found in %s", aliasOrURL, config.ConfigFileName)
		}
	} else {
		server, err = prompt(cfg)
		if err != nil {
			return err
		}
	}

	if err := userconfig.Select(cfg.Path, server.Alias); err != nil {
		return fmt.Errorf("failed to save selected server: %w", err)
	}

	fmt.Fprintf(out, "Selected server: %s (%s)\n", server.Alias, server.URL)
	return nil
}
