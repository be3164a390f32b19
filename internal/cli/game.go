package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newGameCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "game",
		Short: "Game commands",
	}

	cmd.AddCommand(newGameCreateCmd())
	cmd.AddCommand(newGameGetCmd())
	cmd.AddCommand(newGameAvailableCmd())
	cmd.AddCommand(newGameMineCmd())

	return cmd
}

func newGameCreateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create",
		Short: "Create a game and take the white seat",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result Game

			if err := client.Post("/api/v1/games", nil, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}

func newGameGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <game-id>",
		Short: "Show a game",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result Game

			if err := client.Get("/api/v1/games/"+args[0], &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}

func newGameAvailableCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "available",
		Short: "List games waiting for an opponent",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/api/v1/games/available"
			if limit > 0 {
				path = fmt.Sprintf("%s?limit=%d", path, limit)
			}

			var result GameList
			if err := client.Get(path, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum games to show")

	return cmd
}

func newGameMineCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "mine",
		Short: "List your games",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/api/v1/games/mine"
			if limit > 0 {
				path = fmt.Sprintf("%s?limit=%d", path, limit)
			}

			var result GameList
			if err := client.Get(path, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum games to show")

	return cmd
}
