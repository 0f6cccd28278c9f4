package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/docchat/internal/adapters/driven/ai"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect and edit the configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the active configuration",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

var configSetKeyCmd = &cobra.Command{
	Use:   "set-key [backend|embedding]",
	Short: "Store an API key for a backend or the embedding provider",
	Long: `Prompts for an API key without echoing it and stores it in the
config file (created with restricted permissions). The key is
validated against the provider before saving; pass a configured
backend name, or 'embedding' for the embedding provider.`,
	Args: cobra.ExactArgs(1),
	RunE: runConfigSetKey,
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetKeyCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	path, err := configPath()
	if err != nil {
		return err
	}

	cmd.Printf("Config: %s\n\n", path)
	cmd.Printf("  Chunking:  size %d, overlap %d\n", cfg.Chunking.Size, cfg.Chunking.Overlap)
	cmd.Printf("  Embedding: %s %s (%d dims)\n", cfg.Embedding.Provider, cfg.Embedding.Model, cfg.Embedding.Dimensions)
	cmd.Printf("  Retrieval: top %d, budget %d tokens\n", cfg.Retrieval.TopK, cfg.Retrieval.ContextTokenBudget)
	cmd.Printf("  Session:   %d turns, %d tokens, idle %s\n", cfg.Session.MaxTurns, cfg.Session.MaxTokens, cfg.Session.IdleTimeout())
	cmd.Printf("  Storage:   %s\n", cfg.Storage.Driver)
	cmd.Printf("  Vector:    %s (collection %q)\n", cfg.Vector.Driver, cfg.Vector.Collection)

	cmd.Println("\n  Backends:")
	for _, b := range cfg.Backends {
		key := "no key"
		if b.ResolveAPIKey() != "" {
			key = maskAPIKey(b.ResolveAPIKey())
		}
		cmd.Printf("    %-12s %s %s (%s)\n", b.Name, b.Provider, b.Model, key)
	}
	return nil
}

func runConfigSetKey(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	target := args[0]

	cmd.Printf("API key for %s: ", target)
	key := readSecret(cmd)
	cmd.Println()
	if key == "" {
		return fmt.Errorf("empty key")
	}

	if target == "embedding" {
		cfg.Embedding.APIKey = key
		if err := ai.ValidateEmbedding(cfg.Embedding); err != nil {
			cmd.PrintErrf("Warning: key did not validate: %v\n", err)
		}
	} else {
		found := false
		for i := range cfg.Backends {
			if cfg.Backends[i].Name != target {
				continue
			}
			cfg.Backends[i].APIKey = key
			if err := ai.ValidateBackend(cfg.Backends[i]); err != nil {
				cmd.PrintErrf("Warning: key did not validate: %v\n", err)
			}
			found = true
			break
		}
		if !found {
			return fmt.Errorf("no backend named %q in config", target)
		}
	}

	path, err := configPath()
	if err != nil {
		return err
	}
	if err := cfg.Save(path); err != nil {
		return err
	}

	cmd.Printf("Key for %s saved to %s.\n", target, path)
	return nil
}

// readSecret reads a line without echo where stdin is a terminal, and
// falls back to plain line input otherwise.
//
//nolint:errcheck // CLI helper, error ignored for UX
func readSecret(cmd *cobra.Command) string {
	if term.IsTerminal(int(os.Stdin.Fd())) {
		secret, err := term.ReadPassword(int(os.Stdin.Fd()))
		if err == nil {
			return strings.TrimSpace(string(secret))
		}
	}
	reader := bufio.NewReader(cmd.InOrStdin())
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
