package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
	"github.com/custodia-labs/docchat/internal/core/ports/driving"
)

var (
	chatCollection string
	chatModel      string
	chatSession    string
	chatNoStream   bool
)

var chatCmd = &cobra.Command{
	Use:   "chat [question]",
	Short: "Ask questions about your documents",
	Long: `Answers a question grounded in the ingested documents, citing the
chunks the answer draws on. With no question argument an interactive
loop starts; type 'exit' or press Ctrl-D to leave.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runChat,
}

func init() {
	chatCmd.Flags().StringVarP(&chatCollection, "collection", "c", "", "restrict retrieval to one collection")
	chatCmd.Flags().StringVarP(&chatModel, "model", "m", "", "backend to try first")
	chatCmd.Flags().StringVar(&chatSession, "session", "", "session id to resume")
	chatCmd.Flags().BoolVar(&chatNoStream, "no-stream", false, "wait for the complete answer instead of streaming")
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
	if err := ensureServices(); err != nil {
		return err
	}

	sessionID := chatSession
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	if len(args) == 1 {
		return askOnce(cmd, sessionID, args[0])
	}
	return chatLoop(cmd, sessionID)
}

// chatLoop reads questions from stdin until EOF or 'exit'.
func chatLoop(cmd *cobra.Command, sessionID string) error {
	cmd.Printf("Session %s. Type 'exit' to leave.\n", sessionID)

	scanner := bufio.NewScanner(os.Stdin)
	for {
		cmd.Print("> ")
		if !scanner.Scan() {
			cmd.Println()
			return scanner.Err()
		}

		question := strings.TrimSpace(scanner.Text())
		if question == "" {
			continue
		}
		if question == "exit" || question == "quit" {
			return nil
		}

		if err := askOnce(cmd, sessionID, question); err != nil {
			// Keep the loop alive; the unanswered question can be retried.
			cmd.PrintErrf("Error: %v\n", err)
		}
	}
}

func askOnce(cmd *cobra.Command, sessionID, question string) error {
	ctx := context.Background()
	opts := driving.AskOptions{
		Collection:      chatCollection,
		ModelPreference: chatModel,
	}

	if chatNoStream {
		answer, err := chatService.Ask(ctx, sessionID, question, opts)
		if err != nil {
			return chatErr(err)
		}
		cmd.Println(answer.Text)
		printCitations(cmd, answer.Citations, answer.Grounded, answer.Backend)
		return nil
	}

	handle, err := chatService.AskStream(ctx, sessionID, question, opts)
	if err != nil {
		return chatErr(err)
	}

	for ev := range handle.Events {
		switch ev.Kind {
		case driven.EventDelta:
			cmd.Print(ev.Delta)
		case driven.EventError:
			cmd.Println()
			return chatErr(ev.Err)
		}
	}
	cmd.Println()
	printCitations(cmd, handle.Citations, handle.Grounded, handle.Backend)
	return nil
}

func printCitations(cmd *cobra.Command, citations []domain.Citation, grounded bool, backend string) {
	if !grounded {
		cmd.Printf("\n(ungrounded answer via %s; no matching documents)\n", backend)
		return
	}

	cmd.Println("\nSources:")
	for i, c := range citations {
		cmd.Printf("  [%d] document %s, chunk %d (%.2f)\n", i+1, c.DocumentID, c.Ordinal, c.Score)
	}
	cmd.Printf("Answered by %s.\n", backend)
}

// chatErr rewords backend exhaustion for the terminal.
func chatErr(err error) error {
	if errors.Is(err, domain.ErrAllBackendsFailed) {
		return fmt.Errorf("no backend could answer, try again: %w", err)
	}
	return err
}
