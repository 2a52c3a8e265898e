package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var categoriesJSON bool

var categoriesCmd = &cobra.Command{
	Use:   "categories",
	Short: "List the three content categories",
	Args:  cobra.NoArgs,
	RunE:  runCategories,
}

func init() {
	categoriesCmd.Flags().BoolVar(&categoriesJSON, "json", false, "output categories as JSON")
	rootCmd.AddCommand(categoriesCmd)
}

func runCategories(cmd *cobra.Command, _ []string) error {
	if err := requireCore(cmd); err != nil {
		return err
	}

	categories := core.CategoryMetadata()

	if categoriesJSON {
		data, err := json.MarshalIndent(categories, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal categories: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	for _, cat := range categories {
		cmd.Printf("  %s  %s\n", cat.ID, cat.Name)
		cmd.Printf("      %s\n", cat.Description)
	}
	return nil
}
