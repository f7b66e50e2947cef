package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/medlens-dev/medlens/internal/cli/commands"
	"github.com/medlens-dev/medlens/internal/config"
	"github.com/medlens-dev/medlens/internal/logger"
)

var version = "dev" // Will be set during build

// NewRootCmd builds the command tree
func NewRootCmd() *cobra.Command {
	g := &commands.Globals{Version: version}

	rootCmd := &cobra.Command{
		Use:   "medlens",
		Short: "MedLens - medical image analysis from the terminal",
		Long: `MedLens CLI - talk to a MedLens backend from the terminal.

Log in as a user to run classification, segmentation, diagnosis and image
enhancement, browse past detections and chat with the medical assistant.
Log in with --admin to manage users and view usage statistics.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level, format := "warn", "console"
			if settings, err := config.Load(); err == nil {
				level, format = settings.Logging.Level, settings.Logging.Format
			}
			if g.Verbose {
				level = "debug"
			}
			logger.Init(level, format)
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&g.Server, "server", "", "Server alias from medlens.json or a server URL")
	rootCmd.PersistentFlags().BoolVarP(&g.Verbose, "verbose", "v", false, "Log requests to stderr")
	rootCmd.PersistentFlags().StringVarP(&g.Output, "output", "o", "text", "Output format: text, json or yaml")

	// Add version command
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "medlens version %s\n", version)
		},
	})

	// Setup and accounts
	rootCmd.AddCommand(commands.NewInitCmd())
	rootCmd.AddCommand(commands.NewSelectServerCmd())
	rootCmd.AddCommand(commands.NewStatusCmd(g))
	rootCmd.AddCommand(commands.NewLoginCmd(g))
	rootCmd.AddCommand(commands.NewLogoutCmd(g))
	rootCmd.AddCommand(commands.NewRegisterCmd(g))
	rootCmd.AddCommand(commands.NewProfileCmd(g))

	// Analysis
	rootCmd.AddCommand(commands.NewUploadCmd(g))
	rootCmd.AddCommand(commands.NewClassifyCmd(g))
	rootCmd.AddCommand(commands.NewSegmentCmd(g))
	rootCmd.AddCommand(commands.NewDiagnoseCmd(g))
	rootCmd.AddCommand(commands.NewEnhanceCmd(g))
	rootCmd.AddCommand(commands.NewRecordsCmd(g))
	rootCmd.AddCommand(commands.NewChatCmd(g))
	rootCmd.AddCommand(commands.NewChatsCmd(g))

	// Administration
	rootCmd.AddCommand(commands.NewAdminCmd(g))

	return rootCmd
}

// Execute runs the root command
func Execute() error {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}
