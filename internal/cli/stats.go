package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var statsJSON bool

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show ledger, index and runtime statistics",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

func init() {
	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "JSON output")
}

func runStats(cmd *cobra.Command, args []string) error {
	ledgerStats := engine.Ledger.Stats(userID)
	retrievalStats, err := engine.Retrieval.Stats(cmd.Context())
	if err != nil {
		return err
	}
	runtime := engine.Metrics.Snapshot()

	if statsJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{
			"ledger":    ledgerStats,
			"retrieval": retrievalStats,
			"runtime":   runtime,
		})
	}

	fmt.Printf("Memory ledger (user %s)\n", userID)
	fmt.Printf("  Memories: %d total, %d active, %d tokens\n",
		ledgerStats.TotalMemories, ledgerStats.ActiveMemories, ledgerStats.TotalTokens)
	for t, n := range ledgerStats.ByType {
		fmt.Printf("    %-14s %d\n", t, n)
	}
	if ledgerStats.AvgFileConfidence > 0 {
		fmt.Printf("  Avg file confidence: %.2f\n", ledgerStats.AvgFileConfidence)
	}
	fmt.Printf("  Hooks: %d\n", ledgerStats.Hooks)

	fmt.Printf("\nVector index (%s)\n", retrievalStats.Embedder)
	fmt.Printf("  Vectors: %d across %d documents (dim %d, %s)\n",
		retrievalStats.Store.Vectors, retrievalStats.Store.Documents,
		retrievalStats.Store.Dimension, retrievalStats.Store.Metric)
	fmt.Printf("  Chunks stored: %d\n", retrievalStats.ChunksStored)

	if len(runtime.Operations) > 0 {
		fmt.Printf("\nRuntime (%.0fs uptime)\n", runtime.UptimeSeconds)
		for op, s := range runtime.Operations {
			fmt.Printf("  %-16s %d calls, avg %.1fms, %d items\n",
				op, s.Count, s.AvgTimeMs, s.TotalItems)
		}
	}
	return nil
}
