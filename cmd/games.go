package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zplay/zplay/internal/config"
	"github.com/zplay/zplay/internal/game"
)

var gamesCmd = &cobra.Command{
	Use:   "games",
	Short: "List game images in the games directory",
	Args:  cobra.NoArgs,
	RunE:  runGames,
}

func runGames(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	games, err := game.List(cfg.GamesDir)
	if err != nil {
		return err
	}
	if len(games) == 0 {
		fmt.Printf("No game images in %s\n", cfg.GamesDir)
		return nil
	}
	for _, g := range games {
		fmt.Println(g.Name)
	}
	return nil
}
