package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "zplay [game]",
	Short: "Play Z-machine text adventures programmatically",
	Long: `zplay drives the dfrotz interpreter as a child process and turns its
free-form output into structured turns.

Quick start:
  zplay zork1                      # Play a game from the games directory
  zplay play games/zork1.z5        # Same, by explicit path
  zplay games                      # List discovered game images
  zplay saves zork1                # List save slots for a game

Inside a game, "save <slot>" and "restore <slot>" map to named save
files; "quit" ends the session cleanly.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		// Bare `zplay <game>` is shorthand for `zplay play <game>`.
		if len(args) == 1 {
			return runPlay(cmd, args)
		}
		return cmd.Help()
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	addPlayFlags(rootCmd)
	rootCmd.AddCommand(playCmd)
	rootCmd.AddCommand(gamesCmd)
	rootCmd.AddCommand(savesCmd)
	rootCmd.AddCommand(versionCmd)
}
