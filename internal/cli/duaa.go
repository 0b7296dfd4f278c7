package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"huda/internal/duaa"
	"huda/internal/ingest"
)

var (
	addFeeling string
	addBatch   ingest.DuaaBatch
	addEntry   ingest.DuaEntry
)

var duaaCmd = &cobra.Command{
	Use:   "duaa",
	Short: "Manage duaas and write feeling-based messages",
}

var duaaGenerateCmd = &cobra.Command{
	Use:   "generate FEELING",
	Short: "Write a message for a feeling that cites stored duaas",
	Long: `Looks up the duaas stored for the feeling, asks the configured generator
for a short message that references them by id, and replaces every
reference with the stored Arabic text.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		msg, err := current.duaa.GenerateMessage(cmd.Context(), args[0])
		if errors.Is(err, duaa.ErrNoGenerator) {
			return fmt.Errorf("%w: set generator.type to openai, gemini or claude", err)
		}
		if err != nil {
			return err
		}
		return printJSON(cmd, msg)
	},
}

var duaaRelatedCmd = &cobra.Command{
	Use:   "related FEELING",
	Short: "List the duaas stored for a feeling",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		entries, err := current.duaa.Related(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if entries == nil {
			entries = []duaa.Entry{}
		}
		return printJSON(cmd, entries)
	},
}

var duaaSeedCmd = &cobra.Command{
	Use:   "seed FILE",
	Short: "Load a duaa file into the duaa collection",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		report, err := current.duaa.Seed(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return printJSON(cmd, report)
	},
}

var duaaAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Store a single duaa under a feeling",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		addBatch.Feeling = addFeeling
		id, err := current.duaa.AddDuaa(cmd.Context(), addBatch, addEntry)
		if err != nil {
			return err
		}
		return printJSON(cmd, map[string]string{"id": id, "status": "ok"})
	},
}

var duaaDeleteCmd = &cobra.Command{
	Use:   "delete ID",
	Short: "Delete a duaa by its duaa id",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := current.duaa.DeleteDuaa(cmd.Context(), args[0]); err != nil {
			return err
		}
		cmd.Printf("Deleted duaa %s.\n", args[0])
		return nil
	},
}

func init() {
	f := duaaAddCmd.Flags()
	f.StringVar(&addFeeling, "feeling", "", "feeling the duaa is recommended for")
	f.StringVar(&addBatch.URL, "url", "", "page the duaa was collected from")
	f.StringVar(&addEntry.ID, "id", "", "duaa id (generated when empty)")
	f.StringVar(&addEntry.Number, "number", "", "number within its source page")
	f.StringVar(&addEntry.Arabic, "arabic", "", "Arabic text")
	f.StringVar(&addEntry.Transliteration, "transliteration", "", "transliteration")
	f.StringVar(&addEntry.Translation, "translation", "", "translation")
	f.StringVar(&addEntry.Source, "source", "", "source reference")
	_ = duaaAddCmd.MarkFlagRequired("feeling")
	_ = duaaAddCmd.MarkFlagRequired("arabic")

	duaaCmd.AddCommand(duaaGenerateCmd, duaaRelatedCmd, duaaSeedCmd, duaaAddCmd, duaaDeleteCmd)
	rootCmd.AddCommand(duaaCmd)
}
