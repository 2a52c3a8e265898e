package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lernkern/lernkern/internal/core/domain"
)

var (
	filterDifficulty string
	filterKind       string
	filterSort       string
	filterOrder      string
	filterLimit      int
	filterOffset     int
	filterJSON       bool
)

var filterCmd = &cobra.Command{
	Use:   "filter [category]",
	Short: "List the content of one category",
	Long: `Lists the items of one of the three categories
(daten-prozessanalyse, anwendungsentwicklung, allgemein),
optionally filtered by difficulty and kind, sorted and paginated.`,
	Args: cobra.ExactArgs(1),
	RunE: runFilter,
}

func init() {
	filterCmd.Flags().StringVar(&filterDifficulty, "difficulty", "", "filter by difficulty (beginner, intermediate, advanced)")
	filterCmd.Flags().StringVar(&filterKind, "kind", "", "filter by kind (module, quiz)")
	filterCmd.Flags().StringVar(&filterSort, "sort", "", "sort by field (title, id, difficulty, examRelevance)")
	filterCmd.Flags().StringVar(&filterOrder, "order", "asc", "sort order (asc, desc)")
	filterCmd.Flags().IntVarP(&filterLimit, "limit", "n", 0, "maximum number of results")
	filterCmd.Flags().IntVar(&filterOffset, "offset", 0, "number of results to skip")
	filterCmd.Flags().BoolVar(&filterJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(filterCmd)
}

func runFilter(cmd *cobra.Command, args []string) error {
	if err := requireCore(cmd); err != nil {
		return err
	}

	bucket := domain.Bucket(args[0])
	opts := domain.QueryOptions{
		Difficulty: domain.Difficulty(filterDifficulty),
		Kind:       domain.Kind(filterKind),
		SortBy:     filterSort,
		SortOrder:  domain.SortOrder(filterOrder),
		Limit:      filterLimit,
		Offset:     filterOffset,
	}

	items, err := core.GetByBucket(cmd.Context(), bucket, opts)
	if err != nil {
		return fmt.Errorf("filter failed: %w", err)
	}

	if filterJSON {
		return outputItemsJSON(cmd, items)
	}
	return outputItemsTable(cmd, items)
}

func outputItemsJSON(cmd *cobra.Command, items []domain.ContentItem) error {
	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal items: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputItemsTable(cmd *cobra.Command, items []domain.ContentItem) error {
	if len(items) == 0 {
		cmd.Println("No content found.")
		return nil
	}

	for i := range items {
		item := &items[i]
		marker := " "
		if item.Important {
			marker = "!"
		}
		cmd.Printf("  [%d]%s %s (%s, %s, %s)\n", i+1, marker, item.Title, item.ID, item.Kind, item.Difficulty)
		if item.Description != "" {
			cmd.Printf("      %s\n", item.Description)
		}
	}
	cmd.Printf("\n%d items\n", len(items))
	return nil
}
