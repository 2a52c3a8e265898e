package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var migrateForce bool

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Migrate legacy progress into the three-tier format",
	Long: `Annotates the stored progress record with category buckets.
The migration is transactional: a backup is written first, the
transformed record is verified against the original, and only then
committed. An already migrated record is refused unless --force is set.`,
	Args: cobra.NoArgs,
	RunE: runMigrate,
}

var migrateRollbackCmd = &cobra.Command{
	Use:   "rollback [migration-id]",
	Short: "Restore the backup of a committed migration",
	Args:  cobra.ExactArgs(1),
	RunE:  runMigrateRollback,
}

func init() {
	migrateCmd.Flags().BoolVar(&migrateForce, "force", false, "migrate even if validation fails or a stamp exists")
	migrateCmd.AddCommand(migrateRollbackCmd)
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	if err := requireCore(cmd); err != nil {
		return err
	}

	progress, err := core.Progress(cmd.Context())
	if err != nil {
		return fmt.Errorf("loading progress: %w", err)
	}

	result, err := core.MigrateProgress(cmd.Context(), progress, migrateForce)
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	if !result.OK {
		cmd.Printf("Migration refused: %s\n", result.Reason)
		return nil
	}

	cmd.Printf("Migration %s committed.\n", result.MigrationID)
	cmd.Printf("  modules annotated:   %d\n", result.Summary.ModulesAnnotated)
	cmd.Printf("  quizzes annotated:   %d\n", result.Summary.QuizzesAnnotated)
	cmd.Printf("  snapshots processed: %d\n", result.Summary.SnapshotsProcessed)
	cmd.Printf("  unassigned:          %d\n", result.Summary.Unassigned)
	for _, warning := range result.Warnings {
		cmd.Printf("  warning: %s\n", warning)
	}
	return nil
}

func runMigrateRollback(cmd *cobra.Command, args []string) error {
	if err := requireCore(cmd); err != nil {
		return err
	}

	migrationID := args[0]
	if err := core.RollbackMigration(cmd.Context(), migrationID); err != nil {
		return fmt.Errorf("rollback failed: %w", err)
	}

	cmd.Printf("Migration %s rolled back.\n", migrationID)
	return nil
}
