package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"huda/internal/domain"
	"huda/internal/ingest"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest {ayahs|tafseers|hadiths|duaas} FILE",
	Short: "Embed and store a JSON batch file",
	Long: `Reads a JSON array (or a single object) of records, embeds each text and
upserts it into the collection for the kind. Items that fail validation or
embedding are reported and the rest of the batch is still stored.`,
	Args: cobra.ExactArgs(2),
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	kind, err := domain.ParseKind(args[0])
	if err != nil {
		return err
	}

	var report ingest.Report
	if kind == domain.KindDuaa {
		report, err = current.duaa.Seed(cmd.Context(), args[1])
	} else {
		report, err = current.ingestor.IngestFile(cmd.Context(), kind, args[1])
	}
	if err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}
	return printJSON(cmd, report)
}
