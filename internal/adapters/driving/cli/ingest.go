package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driving"
	"github.com/custodia-labs/docchat/internal/readers"
)

var ingestCollection string

// fileReaders converts uploaded files to plain text before the core
// pipeline sees them.
var fileReaders = readers.Default()

// readUpload reads a file and extracts its text based on the extension.
func readUpload(path string) (driving.UploadText, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return driving.UploadText{}, fmt.Errorf("reading %s: %w", path, err)
	}
	text, err := fileReaders.ForFile(path).Extract(data)
	if err != nil {
		return driving.UploadText{}, fmt.Errorf("extracting text from %s: %w", path, err)
	}
	return driving.UploadText{
		Filename: filepath.Base(path),
		Text:     text,
	}, nil
}

var ingestCmd = &cobra.Command{
	Use:   "ingest [files...]",
	Short: "Ingest document files into a collection",
	Long: `Reads document files (plain text, Markdown, HTML, DOCX, EML), splits
them into chunks, embeds the chunks and indexes them for retrieval.
Re-ingesting a filename creates a new version; earlier versions stay
queryable until deleted.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().StringVarP(&ingestCollection, "collection", "c", "default", "target collection")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	if err := ensureServices(); err != nil {
		return err
	}

	uploads := make([]driving.UploadText, 0, len(args))
	for _, path := range args {
		upload, err := readUpload(path)
		if err != nil {
			return err
		}
		uploads = append(uploads, upload)
	}

	ctx := context.Background()
	docs, err := ingestService.IngestBatch(ctx, ingestCollection, uploads)

	for _, doc := range docs {
		switch doc.Status {
		case domain.StatusIndexed:
			cmd.Printf("  %s  %s (v%d)\n", doc.ID, doc.Filename, doc.Version)
		default:
			cmd.Printf("  %s  %s (v%d) FAILED: %s\n", doc.ID, doc.Filename, doc.Version, doc.FailReason)
		}
	}
	cmd.Printf("Ingested %d of %d documents into %q.\n", len(docs), len(uploads), ingestCollection)

	if err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}
	return nil
}
