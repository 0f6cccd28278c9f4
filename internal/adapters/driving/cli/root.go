// Package cli implements the docchat command line interface.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/custodia-labs/docchat/internal/logger"
)

// version is stamped from main at build time.
var version = "dev"

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "docchat",
	Short: "Chat with your documents from the terminal",
	Long: `docchat ingests plain-text documents, indexes them for semantic
search and answers questions about them through configurable LLM
backends, citing the document chunks each answer is grounded on.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ~/.docchat/config.toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
}

// SetVersion records the build version printed by the version command.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// Execute runs the root command and releases any wired services on the
// way out.
func Execute() error {
	defer closeServices()
	return rootCmd.Execute()
}
