package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/duelsync/internal/game"
)

var gamesCmd = &cobra.Command{
	Use:   "games",
	Short: "List all registered rule sets",
	Long:  `Shows the game ids clients can create sessions for.`,
	Run:   runGames,
}

func runGames(cmd *cobra.Command, args []string) {
	ids := game.List()

	if len(ids) == 0 {
		fmt.Println("No rule sets registered.")
		return
	}

	fmt.Println("Registered rule sets:")
	for _, id := range ids {
		fmt.Printf("  %s\n", id)
	}
}
