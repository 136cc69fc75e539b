package cmd

import (
	"errors"
	"fmt"

	"github.com/jordanlambrecht/sports-media-organizer/internal/config"
	"github.com/spf13/cobra"
)

func newSportsCommand(cc *commandContext) *cobra.Command {
	sportsCmd := &cobra.Command{
		Use:   "sports",
		Short: "Manage sport profiles",
	}
	sportsCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List configured sport profiles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := cc.configDir()
			if err != nil {
				return err
			}
			sports, err := config.ListSports(dir)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(sports) == 0 {
				fmt.Fprintln(out, "No sport profiles found. Create one with 'sports add <name>'.")
				return nil
			}
			for _, sport := range sports {
				fmt.Fprintln(out, sport)
			}
			return nil
		},
	})
	sportsCmd.AddCommand(&cobra.Command{
		Use:   "add <name>",
		Short: "Create an empty sport profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := cc.configDir()
			if err != nil {
				return err
			}
			profile, err := config.CreateSport(dir, args[0])
			if errors.Is(err, config.ErrSportExists) {
				return fmt.Errorf("sport %q already has a profile", config.TitleSport(args[0]))
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created profile for %s in %s\n", profile.Sport, config.SportsDir(dir))
			return nil
		},
	})
	return sportsCmd
}
