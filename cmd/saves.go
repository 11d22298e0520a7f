package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zplay/zplay/internal/config"
	"github.com/zplay/zplay/internal/game"
)

var savesCmd = &cobra.Command{
	Use:   "saves <game>",
	Short: "List save slots for a game",
	Args:  cobra.ExactArgs(1),
	RunE:  runSaves,
}

func runSaves(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	gamefile, err := game.Resolve(args[0], cfg.GamesDir)
	if err != nil {
		return err
	}

	slots, err := game.ListSlots(cfg.SavesDir, gamefile.Name)
	if err != nil {
		return err
	}
	if len(slots) == 0 {
		fmt.Printf("No saves for %s\n", gamefile.Name)
		return nil
	}
	for _, slot := range slots {
		fmt.Println(slot)
	}
	return nil
}
