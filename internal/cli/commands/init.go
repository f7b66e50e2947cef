package commands

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/medlens-dev/medlens/internal/cli/config"
)

type initOptions struct {
	alias string
}

// NewInitCmd creates the init command
func NewInitCmd() *cobra.Command {
	opts := &initOptions{}

	cmd := &cobra.Command{
		Use:   "init <server-url>",
		Short: "Add a MedLens server to ./medlens.json",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(cmd.OutOrStdout(), args, opts)
		},
	}

	cmd.Flags().StringVar(&opts.alias, "alias", "", "Alias for the server (derived from the host if not provided)")

	return cmd
}

func runInit(out io.Writer, args []string, opts *initOptions) error {
	serverURL := strings.TrimRight(args[0], "/")
	if err := config.ValidateURL(serverURL); err != nil {
		return err
	}

	currentDir, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get current directory: %w", err)
	}

	configPath := filepath.Join(currentDir, config.ConfigFileName)

	var cfg *config.Config
	isNewConfig := false

	if _, err := os.Stat(configPath); err == nil {
		cfg, err = config.Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load existing config: %w", err)
		}
		fmt.Fprintf(out, "Found existing %s\n", config.ConfigFileName)
	} else {
		cfg = &config.Config{
			Servers: []config.Server{},
		}
		isNewConfig = true
	}

	if existing, err := cfg.GetServerByURL(serverURL); err == nil {
		fmt.Fprintf(out, "Server %s already exists in %s as '%s'\n", serverURL, config.ConfigFileName, existing.Alias)
		return nil
	}

	alias := opts.alias
	if alias == "" {
		alias = config.AliasFromURL(serverURL)
	}
	if _, err := cfg.GetServerByAlias(alias); err == nil {
		if opts.alias != "" {
			return fmt.Errorf("alias '%s' is already used in %s", alias, config.ConfigFileName)
		}
		alias = fmt.Sprintf("%s-%d", alias, len(cfg.Servers)+1)
	}

	cfg.Servers = append(cfg.Servers, config.Server{
		Alias: alias,
		URL:   serverURL,
	})

	if err := config.Save(configPath, cfg); err != nil {
		return err
	}

	if isNewConfig {
		fmt.Fprintf(out, "✓ Created ./%s with server %s (%s)\n", config.ConfigFileName, serverURL, alias)
	} else {
		fmt.Fprintf(out, "✓ Added server %s (%s) to ./%s\n", serverURL, alias, config.ConfigFileName)
	}

	fmt.Fprintln(out, "\nNext steps:")
	fmt.Fprintln(out, "  1. Run 'medlens register' to create an account")
	fmt.Fprintln(out, "  2. Run 'medlens login' to authenticate")

	return nil
}
