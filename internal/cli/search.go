package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"huda/internal/domain"
	"huda/internal/service"
)

var (
	searchCollection     string
	searchQuery          string
	searchFilter         string
	searchLimit          int
	searchOffset         int
	searchKeywordWeight  float64
	searchSemanticWeight float64
)

var searchCmd = &cobra.Command{
	Use:   "search {keyword|semantic|hybrid}",
	Short: "Search a collection",
	Long: `Runs one of three strategies against a collection:

  keyword   substring and token overlap over one page of stored texts
  semantic  vector similarity of the embedded query
  hybrid    weighted union of both result lists`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().StringVar(&searchCollection, "collection", domain.CollectionAyahs, "collection to search")
	searchCmd.Flags().StringVarP(&searchQuery, "query", "q", "", "query text")
	searchCmd.Flags().StringVar(&searchFilter, "filter", "", "metadata filter as JSON")
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 10, "maximum number of results")
	searchCmd.Flags().IntVar(&searchOffset, "offset", 0, "results to skip (keyword only)")
	searchCmd.Flags().Float64Var(&searchKeywordWeight, "keyword-weight", 0, "hybrid keyword weight")
	searchCmd.Flags().Float64Var(&searchSemanticWeight, "semantic-weight", 0, "hybrid semantic weight")
	_ = searchCmd.MarkFlagRequired("query")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	mode, err := service.ParseMode(args[0])
	if err != nil {
		return err
	}
	f, err := parseFilter(searchFilter)
	if err != nil {
		return err
	}

	results, err := current.search.Search(cmd.Context(), service.Request{
		Mode:           mode,
		Collection:     searchCollection,
		Query:          searchQuery,
		Filter:         f,
		Limit:          searchLimit,
		Offset:         searchOffset,
		KeywordWeight:  searchKeywordWeight,
		SemanticWeight: searchSemanticWeight,
	})
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}
	if results == nil {
		results = []domain.SearchResult{}
	}
	return printJSON(cmd, results)
}
