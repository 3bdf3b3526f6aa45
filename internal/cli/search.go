package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/mnemo-ai/mnemo/internal/unified"
)

var (
	searchLimit     int
	searchThreshold float64
	searchMemories  bool
	searchChunks    bool
	searchUnify     bool
	searchMetadata  bool
	searchJSON      bool
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search memories and indexed chunks",
	Long: `Search runs one query against both retrieval planes: the per-user
memory ledger and the semantic chunk index. By default both sources are
consulted; --memories or --chunks restricts to one.

Examples:
  mnemo search "what did the essay say about tides"
  mnemo search --chunks --threshold 0.3 "ocean currents"
  mnemo search --unified --json "project deadlines"`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "l", 10, "maximum results per source")
	searchCmd.Flags().Float64Var(&searchThreshold, "threshold", 0, "minimum chunk similarity (0 uses the configured default)")
	searchCmd.Flags().BoolVar(&searchMemories, "memories", false, "search only the memory ledger")
	searchCmd.Flags().BoolVar(&searchChunks, "chunks", false, "search only indexed chunks")
	searchCmd.Flags().BoolVar(&searchUnify, "unified", false, "fuse both sources into one tagged list")
	searchCmd.Flags().BoolVar(&searchMetadata, "metadata", false, "include chunk metadata and context")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "JSON output")
}

func runSearch(cmd *cobra.Command, args []string) error {
	res, err := engine.Unified.UnifiedSearch(cmd.Context(), unified.Query{
		Query:     args[0],
		UserID:    userID,
		SessionID: sessionID,
		Filters: unified.Filters{
			SemanticThreshold: searchThreshold,
			MaxResults:        searchLimit,
		},
		Options: unified.Options{
			IncludeMemories: searchMemories,
			IncludeChunks:   searchChunks,
			UnifyResults:    searchUnify,
			IncludeMetadata: searchMetadata,
		},
	})
	if err != nil {
		return err
	}

	if searchJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}

	if res.TotalFound == 0 {
		fmt.Println("No results.")
		return nil
	}

	if searchUnify {
		for i, c := range res.Combined {
			switch c.Source {
			case unified.SourceMemory:
				fmt.Printf("%2d. [memory %.2f] %s\n", i+1, c.Score, firstLine(c.Memory.Content))
			case unified.SourceChunk:
				fmt.Printf("%2d. [chunk  %.2f] %s\n", i+1, c.Score, firstLine(c.Chunk.Content))
			}
		}
		return nil
	}

	if len(res.Memories) > 0 {
		fmt.Printf("Memories (%d):\n", len(res.Memories))
		for i, m := range res.Memories {
			fmt.Printf("%2d. [%.2f] %s  (%s/%s)\n", i+1, m.Score, firstLine(m.Memory.Content), m.Memory.Type, m.Memory.Category)
		}
	}
	if len(res.Chunks) > 0 {
		if len(res.Memories) > 0 {
			fmt.Println()
		}
		fmt.Printf("Chunks (%d):\n", len(res.Chunks))
		for i, c := range res.Chunks {
			fmt.Printf("%2d. [%.2f] %s\n", i+1, c.Score, firstLine(c.Chunk.Content))
			if doc := c.Chunk.Metadata.DocumentID; doc != "" {
				fmt.Printf("      doc %s\n", doc)
			}
		}
	}
	fmt.Printf("\n%d results in %s\n", res.TotalFound, res.Duration.Round(time.Microsecond))
	return nil
}

// firstLine truncates content to a single display line.
func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	if len(s) > 100 {
		s = s[:97] + "..."
	}
	return s
}
