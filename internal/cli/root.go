// Package cli provides the command-line interface for mnemo.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mnemo-ai/mnemo/internal/config"
)

var (
	// Version is set at build time.
	Version = "0.1.0"

	// Global flags
	verbose    bool
	configPath string
	userID     string
	sessionID  string
	storeFlag  string

	// Global config and engine, wired in PersistentPreRunE.
	cfg    config.Config
	engine *Engine
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "mnemo",
	Short: "Unified memory and semantic retrieval engine",
	Long: `Mnemo chunks documents, indexes them in a vector store and keeps a
per-user memory ledger, so one query can be answered from both what was
read and what was remembered.`,
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" || cmd.Name() == "help" {
			return nil
		}

		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if storeFlag != "" {
			cfg.Store.Backend = storeFlag
		}
		if verbose {
			cfg.Log.Level = "DEBUG"
		}

		engine, err = NewEngine(cmd.Context(), cfg)
		if err != nil {
			return fmt.Errorf("start engine: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if engine != nil {
			if err := engine.Close(cmd.Context()); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to shut down engine: %v\n", err)
			}
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default $MNEMO_CONFIG)")
	rootCmd.PersistentFlags().StringVarP(&userID, "user", "u", "default", "user scope for memories")
	rootCmd.PersistentFlags().StringVarP(&sessionID, "session", "s", "", "session scope for memories")
	rootCmd.PersistentFlags().StringVar(&storeFlag, "store", "", "vector store backend (memory, chromem, surreal)")

	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(memoryCmd)
	rootCmd.AddCommand(hooksCmd)
	rootCmd.AddCommand(statsCmd)
}

// exitWithError prints an error message and exits with code 1.
func exitWithError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}
