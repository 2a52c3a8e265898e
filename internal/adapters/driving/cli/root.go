// Package cli implements the lernkern command line interface on top of the
// content core.
package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	catalogfile "github.com/lernkern/lernkern/internal/adapters/driven/catalog/file"
	configfile "github.com/lernkern/lernkern/internal/adapters/driven/config/file"
	"github.com/lernkern/lernkern/internal/adapters/driven/rules"
	"github.com/lernkern/lernkern/internal/adapters/driven/storage/sqlite"
	"github.com/lernkern/lernkern/internal/core/services"
	"github.com/lernkern/lernkern/internal/logger"
)

// version is stamped by the build.
var version = "dev"

// Persistent flags.
var (
	flagVerbose    bool
	flagConfigDir  string
	flagDataDir    string
	flagContentDir string
)

// Wired on first use; commands that do not touch the catalog (version) skip
// the wiring.
var (
	core          *services.ContentCore
	progressStore *sqlite.Store
	provider      *catalogfile.Provider
)

var rootCmd = &cobra.Command{
	Use:   "lernkern",
	Short: "Exam-prep content catalog for IT specialist certification",
	Long: `lernkern serves the three-tier exam-prep content catalog:
category filtering, full-text search, progress migration and
specialization handling for the Daten- und Prozessanalyse and
Anwendungsentwicklung tracks.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(flagVerbose)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&flagConfigDir, "config-dir", "", "config directory (default ~/.lernkern)")
	rootCmd.PersistentFlags().StringVar(&flagDataDir, "data-dir", "", "data directory (default ~/.lernkern/data)")
	rootCmd.PersistentFlags().StringVar(&flagContentDir, "content-dir", "content", "directory holding the catalog JSON files")
}

// ensureCore wires the adapters and initialises the content core once.
func ensureCore(ctx context.Context) error {
	if core != nil {
		return nil
	}

	ruleStore, err := rules.NewStore()
	if err != nil {
		return fmt.Errorf("loading mapping rules: %w", err)
	}

	configStore, err := configfile.NewConfigStore(flagConfigDir)
	if err != nil {
		return fmt.Errorf("opening config store: %w", err)
	}

	progressStore, err = sqlite.NewStore(flagDataDir)
	if err != nil {
		return fmt.Errorf("opening progress store: %w", err)
	}

	provider = catalogfile.NewProvider(flagContentDir)

	core, err = services.NewContentCore(ctx, services.Dependencies{
		Catalog:  provider,
		Rules:    ruleStore,
		Progress: progressStore,
		Config:   configStore,
	})
	if err != nil {
		return err
	}
	return nil
}

// closeStores releases the database handle after a command finishes.
func closeStores() {
	if progressStore != nil {
		progressStore.Close()
		progressStore = nil
	}
}

// Execute runs the CLI.
func Execute(buildVersion string) error {
	if buildVersion != "" {
		version = buildVersion
	}
	defer closeStores()
	return rootCmd.Execute()
}

// requireCore is the RunE prologue shared by catalog commands.
func requireCore(cmd *cobra.Command) error {
	if err := ensureCore(cmd.Context()); err != nil {
		return err
	}
	if core == nil {
		return errors.New("content core not configured")
	}
	return nil
}
