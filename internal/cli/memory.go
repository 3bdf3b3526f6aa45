package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/mnemo-ai/mnemo/internal/ledger"
	"github.com/mnemo-ai/mnemo/internal/models"
)

var (
	memoryType       string
	memoryCategory   string
	memoryImportance float64
	memoryTags       []string
	memoryTTL        time.Duration

	memoryListType     string
	memoryListCategory string
	memoryListTag      string
	memoryListMinImp   float64
	memoryListLimit    int
	memoryListAll      bool
	memoryListFiles    bool
	memoryListJSON     bool
)

var memoryCmd = &cobra.Command{
	Use:   "memory",
	Short: "Manage the memory ledger",
	Long: `Memory manages per-user ledger entries: facts, preferences, context
and insights, plus the file-derived memories ingest creates.`,
}

var memoryAddCmd = &cobra.Command{
	Use:   "add <content>",
	Short: "Store a memory",
	Args:  cobra.ExactArgs(1),
	RunE:  runMemoryAdd,
}

var memoryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List memories for the current user",
	Args:  cobra.NoArgs,
	RunE:  runMemoryList,
}

var memoryForgetCmd = &cobra.Command{
	Use:   "forget <id...>",
	Short: "Delete memories by id",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runMemoryForget,
}

func init() {
	memoryAddCmd.Flags().StringVarP(&memoryType, "type", "t", "fact", "memory type (fact, preference, context, insight)")
	memoryAddCmd.Flags().StringVarP(&memoryCategory, "category", "c", "general", "memory category")
	memoryAddCmd.Flags().Float64Var(&memoryImportance, "importance", 0, "importance in [0,1] (0 uses the default)")
	memoryAddCmd.Flags().StringSliceVar(&memoryTags, "tags", nil, "comma-separated tags")
	memoryAddCmd.Flags().DurationVar(&memoryTTL, "ttl", 0, "expiry, e.g. 72h (0 means never)")

	memoryListCmd.Flags().StringVarP(&memoryListType, "type", "t", "", "filter by memory type")
	memoryListCmd.Flags().StringVarP(&memoryListCategory, "category", "c", "", "filter by category")
	memoryListCmd.Flags().StringVar(&memoryListTag, "tag", "", "filter by tag")
	memoryListCmd.Flags().Float64Var(&memoryListMinImp, "min-importance", 0, "minimum importance")
	memoryListCmd.Flags().IntVarP(&memoryListLimit, "limit", "l", 50, "maximum entries")
	memoryListCmd.Flags().BoolVarP(&memoryListAll, "all", "a", false, "include inactive and expired entries")
	memoryListCmd.Flags().BoolVar(&memoryListFiles, "files", false, "include file-derived memories")
	memoryListCmd.Flags().BoolVar(&memoryListJSON, "json", false, "JSON output")

	memoryCmd.AddCommand(memoryAddCmd)
	memoryCmd.AddCommand(memoryListCmd)
	memoryCmd.AddCommand(memoryForgetCmd)
}

func runMemoryAdd(cmd *cobra.Command, args []string) error {
	entry, err := engine.Ledger.CreateMemory(userID, sessionID,
		models.MemoryType(memoryType), memoryCategory, args[0],
		ledger.CreateOptions{
			Importance: memoryImportance,
			Tags:       memoryTags,
			TTL:        memoryTTL,
		})
	if err != nil {
		return err
	}
	fmt.Printf("Stored %s (%s/%s, importance %.2f, %d tokens)\n",
		entry.ID, entry.Type, entry.Category,
		entry.Metadata.Importance, entry.Metadata.TokenCount)
	return nil
}

func runMemoryList(cmd *cobra.Command, args []string) error {
	q := models.MemoryQuery{
		UserID:              userID,
		SessionID:           sessionID,
		MinImportance:       memoryListMinImp,
		Limit:               memoryListLimit,
		IncludeInactive:     memoryListAll,
		IncludeFileMemories: memoryListFiles,
	}
	if memoryListType != "" {
		q.Types = []models.MemoryType{models.MemoryType(memoryListType)}
	}
	if memoryListCategory != "" {
		q.Categories = []string{memoryListCategory}
	}
	if memoryListTag != "" {
		q.Tags = []string{memoryListTag}
	}

	entries := engine.Ledger.QueryMemories(q)

	if memoryListJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}

	if len(entries) == 0 {
		fmt.Println("No memories.")
		return nil
	}
	for _, e := range entries {
		age := time.Since(e.Lifecycle.CreatedAt).Round(time.Minute)
		fmt.Printf("%s  %-12s %-10s imp=%.2f rel=%.2f  %s\n",
			e.ID, e.Type, e.Category,
			e.Metadata.Importance, e.Metadata.Relevance,
			firstLine(e.Content))
		if len(e.Metadata.Tags) > 0 || age > 0 {
			extras := fmt.Sprintf("      %s old", age)
			if len(e.Metadata.Tags) > 0 {
				extras += "  tags: " + strings.Join(e.Metadata.Tags, ", ")
			}
			fmt.Println(extras)
		}
	}
	fmt.Printf("\n%d entries\n", len(entries))
	return nil
}

func runMemoryForget(cmd *cobra.Command, args []string) error {
	for _, id := range args {
		if !engine.Ledger.DeleteMemory(id) {
			exitWithError("no memory with id %s", id)
		}
		fmt.Printf("Forgot %s\n", id)
	}
	return nil
}
