package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/docchat/internal/core/ports/driving"
	"github.com/custodia-labs/docchat/internal/logger"
)

var watchCollection string

// watchSettle is how long a file must stay quiet before it is ingested,
// so half-written files are not picked up.
const watchSettle = 500 * time.Millisecond

var watchCmd = &cobra.Command{
	Use:   "watch [dir]",
	Short: "Ingest files dropped into a directory",
	Long: `Ingests every regular file already in the directory, then keeps
watching it. Files created or modified while watching are re-ingested
as new versions. Stop with Ctrl-C.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVarP(&watchCollection, "collection", "c", "default", "target collection")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	if err := ensureServices(); err != nil {
		return err
	}

	dir := args[0]
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("watch directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("watch target %s is not a directory", dir)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := ingestExisting(ctx, cmd, dir); err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}

	cmd.Printf("Watching %s (collection %q). Ctrl-C to stop.\n", dir, watchCollection)

	// Write events arrive in bursts; a timer per path resets until the
	// file settles.
	var mu sync.Mutex
	pending := make(map[string]*time.Timer)

	for {
		select {
		case <-ctx.Done():
			cmd.Println("\nStopped watching.")
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}

			path := event.Name
			mu.Lock()
			if timer, exists := pending[path]; exists {
				timer.Reset(watchSettle)
				mu.Unlock()
				continue
			}
			pending[path] = time.AfterFunc(watchSettle, func() {
				mu.Lock()
				delete(pending, path)
				mu.Unlock()
				ingestWatched(ctx, cmd, path)
			})
			mu.Unlock()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("Watcher error: %v", err)
		}
	}
}

// ingestExisting ingests the regular files already present in dir.
func ingestExisting(ctx context.Context, cmd *cobra.Command, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("reading %s: %w", dir, err)
	}

	var uploads []driving.UploadText
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		upload, err := readUpload(filepath.Join(dir, entry.Name()))
		if err != nil {
			logger.Warn("Skipping %s: %v", entry.Name(), err)
			continue
		}
		uploads = append(uploads, upload)
	}

	if len(uploads) == 0 {
		return nil
	}

	docs, err := ingestService.IngestBatch(ctx, watchCollection, uploads)
	cmd.Printf("Ingested %d existing files.\n", len(docs))
	if err != nil {
		// Per-file failures are on the document records; keep watching.
		cmd.PrintErrf("Some files failed: %v\n", err)
	}
	return nil
}

// ingestWatched ingests one settled file.
func ingestWatched(ctx context.Context, cmd *cobra.Command, path string) {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return
	}

	upload, err := readUpload(path)
	if err != nil {
		logger.Warn("%v", err)
		return
	}

	doc, err := ingestService.Ingest(ctx, watchCollection, upload)
	if err != nil {
		cmd.PrintErrf("Ingest %s failed: %v\n", filepath.Base(path), err)
		return
	}
	cmd.Printf("Ingested %s (v%d) as %s.\n", doc.Filename, doc.Version, doc.ID)
}
