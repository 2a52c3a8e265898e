package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lernkern/lernkern/internal/core/domain"
)

var specializationCmd = &cobra.Command{
	Use:   "specialization",
	Short: "Show the selected exam track",
	Args:  cobra.NoArgs,
	RunE:  runSpecializationShow,
}

var specializationSetCmd = &cobra.Command{
	Use:   "set [track]",
	Short: "Select an exam track",
	Long: `Selects one of the two exam tracks (daten-prozessanalyse or
anwendungsentwicklung). Switching tracks snapshots the current progress
and restores the target track's saved progress; work on general content
carries over.`,
	Args: cobra.ExactArgs(1),
	RunE: runSpecializationSet,
}

func init() {
	specializationCmd.AddCommand(specializationSetCmd)
	rootCmd.AddCommand(specializationCmd)
}

func runSpecializationShow(cmd *cobra.Command, _ []string) error {
	if err := requireCore(cmd); err != nil {
		return err
	}

	spec, ok := core.Specialization()
	if !ok {
		cmd.Println("No specialization selected.")
		return nil
	}
	cmd.Printf("Selected specialization: %s\n", spec)
	return nil
}

func runSpecializationSet(cmd *cobra.Command, args []string) error {
	if err := requireCore(cmd); err != nil {
		return err
	}

	spec := domain.Specialization(args[0])
	if err := core.SetSpecialization(cmd.Context(), spec); err != nil {
		return fmt.Errorf("setting specialization: %w", err)
	}
	cmd.Printf("Specialization set to %s.\n", spec)
	return nil
}
