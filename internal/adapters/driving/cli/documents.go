package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var documentsCollection string

var documentsCmd = &cobra.Command{
	Use:   "documents",
	Short: "Manage ingested documents",
	Long:  `List, delete, or re-index ingested documents.`,
}

var documentsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List documents in a collection",
	Args:  cobra.NoArgs,
	RunE:  runDocumentsList,
}

var documentsDeleteCmd = &cobra.Command{
	Use:   "delete [doc-id]",
	Short: "Delete a document and its vectors",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentsDelete,
}

var documentsRebuildCmd = &cobra.Command{
	Use:   "rebuild",
	Short: "Re-embed and re-index a collection",
	Long: `Rebuilds the vector index for every indexed document in the
collection from stored chunk text. Use after switching embedding
models or recovering from index corruption.`,
	Args: cobra.NoArgs,
	RunE: runDocumentsRebuild,
}

func init() {
	documentsCmd.PersistentFlags().StringVarP(&documentsCollection, "collection", "c", "default", "collection to operate on")

	documentsCmd.AddCommand(documentsListCmd)
	documentsCmd.AddCommand(documentsDeleteCmd)
	documentsCmd.AddCommand(documentsRebuildCmd)
	rootCmd.AddCommand(documentsCmd)
}

func runDocumentsList(cmd *cobra.Command, _ []string) error {
	if err := ensureServices(); err != nil {
		return err
	}

	ctx := context.Background()
	docs, err := ingestService.List(ctx, documentsCollection)
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}

	if len(docs) == 0 {
		cmd.Printf("No documents in collection %q.\n", documentsCollection)
		return nil
	}

	cmd.Printf("Documents in %q:\n\n", documentsCollection)
	for i := range docs {
		cmd.Printf("  %s\n", docs[i].ID)
		cmd.Printf("    File:    %s (v%d)\n", docs[i].Filename, docs[i].Version)
		cmd.Printf("    Status:  %s\n", docs[i].Status)
		if docs[i].FailReason != "" {
			cmd.Printf("    Reason:  %s\n", docs[i].FailReason)
		}
		cmd.Printf("    Created: %s\n", docs[i].CreatedAt.Format("2006-01-02 15:04:05"))
		cmd.Println()
	}

	cmd.Printf("Total: %d documents\n", len(docs))
	return nil
}

func runDocumentsDelete(cmd *cobra.Command, args []string) error {
	if err := ensureServices(); err != nil {
		return err
	}

	docID := args[0]
	if err := ingestService.Delete(context.Background(), docID); err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}

	cmd.Printf("Document %s deleted.\n", docID)
	return nil
}

func runDocumentsRebuild(cmd *cobra.Command, _ []string) error {
	if err := ensureServices(); err != nil {
		return err
	}

	cmd.Printf("Rebuilding index for collection %q...\n", documentsCollection)

	if err := ingestService.Rebuild(context.Background(), documentsCollection); err != nil {
		return fmt.Errorf("rebuild failed: %w", err)
	}

	cmd.Println("Rebuild complete.")
	return nil
}
