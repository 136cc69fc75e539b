// Package cmd wires the organizer packages into the command-line interface.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Execute runs the root command. It is called once by main.main().
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}

// NewRootCommand builds the command tree.
func NewRootCommand() *cobra.Command {
	cc := &commandContext{}

	rootCmd := &cobra.Command{
		Use:   "sports-media-organizer",
		Short: "Organize sports broadcast recordings into a media library",
		Long: `sports-media-organizer reads league, date, event and release details from
sports broadcast filenames and folder paths, scores how sure it is about each
one, and hardlinks or moves the files into a consistent library layout.

Files it cannot identify confidently go to a quarantine folder for manual
review instead of being guessed into the library.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&cc.configFlag, "config", "c", "", "Configuration directory (default $SMO_CONFIG_DIR or ~/.sports-media-organizer)")
	flags.StringVar(&cc.logLevel, "log-level", "", "Diagnostic log level: debug, info, warn or error")
	flags.StringVar(&cc.logFormat, "log-format", "", "Diagnostic log format: console or json")

	rootCmd.AddCommand(newRunCommand(cc))
	rootCmd.AddCommand(newSimulateCommand(cc))
	rootCmd.AddCommand(newSportsCommand(cc))
	rootCmd.AddCommand(newConfigCommand(cc))
	rootCmd.AddCommand(newHistoryCommand(cc))
	rootCmd.AddCommand(newUndoCommand(cc))

	return rootCmd
}
