package cli

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	catalogfile "github.com/lernkern/lernkern/internal/adapters/driven/catalog/file"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Run the background maintenance loop and catalog watcher",
	Long: `Keeps the process running: sweeps and optimises the cache,
processes preloads, collects monitoring snapshots and reloads the
catalog when its files change on disk. Stops on interrupt.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, _ []string) error {
	if err := requireCore(cmd); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	watcher := catalogfile.NewWatcher(provider.Dir(), func(ctx context.Context) error {
		return core.ReloadCatalog(ctx)
	})

	errCh := make(chan error, 2)
	go func() { errCh <- core.Maintenance().Start(ctx) }()
	go func() { errCh <- watcher.Run(ctx) }()

	cmd.Println("Watching. Press Ctrl+C to stop.")

	err := <-errCh
	stop()
	core.Maintenance().Stop()
	<-errCh

	if err != nil && ctx.Err() != nil {
		return nil // clean shutdown on interrupt
	}
	return err
}
