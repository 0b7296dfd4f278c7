package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"huda/internal/duaa"
)

var chatCmd = &cobra.Command{
	Use:   "chat PROMPT",
	Short: "Send a prompt to the configured generator",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if current.chat == nil {
			return fmt.Errorf("%w: set generator.type to openai, gemini or claude", duaa.ErrNoGenerator)
		}
		text, meta, err := current.chat.Generate(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return printJSON(cmd, map[string]any{
			"response":    text,
			"model":       meta.Model,
			"tokens_used": meta.TokensUsed,
		})
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)
}
