package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lernkern/lernkern/internal/core/domain"
)

var (
	searchDifficulty string
	searchKind       string
	searchLimit      int
	searchJSON       bool
)

var searchCmd = &cobra.Command{
	Use:   "search [category] [query]",
	Short: "Search within one category",
	Long: `Performs a full-text search scoped to one category. Every query
term must match; title hits rank above description and body hits, and
important or highly exam-relevant items rank higher still.`,
	Args: cobra.ExactArgs(2),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().StringVar(&searchDifficulty, "difficulty", "", "filter by difficulty (beginner, intermediate, advanced)")
	searchCmd.Flags().StringVar(&searchKind, "kind", "", "filter by kind (module, quiz)")
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 10, "maximum number of results")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	if err := requireCore(cmd); err != nil {
		return err
	}

	bucket := domain.Bucket(args[0])
	query := args[1]

	opts := domain.QueryOptions{
		Difficulty: domain.Difficulty(searchDifficulty),
		Kind:       domain.Kind(searchKind),
		Limit:      searchLimit,
	}

	results, err := core.SearchInBucket(cmd.Context(), query, bucket, opts)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		return outputItemsJSON(cmd, results)
	}

	if len(results) == 0 {
		cmd.Println("No results found.")
		return nil
	}

	cmd.Println("Results:")
	cmd.Println()
	return outputItemsTable(cmd, results)
}
