package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mnemo-ai/mnemo/internal/ledger"
	"github.com/mnemo-ai/mnemo/internal/models"
)

var (
	hookTrigger    string
	hookPattern    string
	hookConditions []string
	hookAction     string
	hookMemoryIDs  []string
	hookPriority   int
	hookFileFilter string

	checkInput    string
	checkTopic    string
	checkFileType string
)

var hooksCmd = &cobra.Command{
	Use:   "hooks",
	Short: "Manage continuity hooks",
	Long: `Hooks are per-user trigger/action rules evaluated against
conversational events. A keyword hook can, for example, ask the caller
to inject specific memories whenever a topic comes up.`,
}

var hooksAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Register a continuity hook",
	Args:  cobra.NoArgs,
	RunE:  runHooksAdd,
}

var hooksCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Evaluate hooks against a conversational event",
	Args:  cobra.NoArgs,
	RunE:  runHooksCheck,
}

var hooksRemoveCmd = &cobra.Command{
	Use:   "remove <id>",
	Short: "Remove a hook",
	Args:  cobra.ExactArgs(1),
	RunE:  runHooksRemove,
}

func init() {
	hooksAddCmd.Flags().StringVar(&hookTrigger, "trigger", "keyword", "trigger type (session_start, keyword, file_content)")
	hooksAddCmd.Flags().StringVar(&hookPattern, "pattern", "", "substring or /regex/ matched against input and topic")
	hooksAddCmd.Flags().StringSliceVar(&hookConditions, "condition", nil, "key=value predicates (topic, session_id, file_type, min_importance)")
	hooksAddCmd.Flags().StringVar(&hookAction, "action", "inject_memory", "action type (inject_memory, load_context, inject_file_context)")
	hooksAddCmd.Flags().StringSliceVar(&hookMemoryIDs, "memory-ids", nil, "memory ids the action references")
	hooksAddCmd.Flags().IntVar(&hookPriority, "priority", 0, "caller-side ordering hint")
	hooksAddCmd.Flags().StringVar(&hookFileFilter, "file-filter", "", "only fire for this file type")

	hooksCheckCmd.Flags().StringVar(&hookTrigger, "trigger", "keyword", "event trigger type")
	hooksCheckCmd.Flags().StringVar(&checkInput, "input", "", "user input of the event")
	hooksCheckCmd.Flags().StringVar(&checkTopic, "topic", "", "topic of the event")
	hooksCheckCmd.Flags().StringVar(&checkFileType, "file-type", "", "file type of the event")

	hooksCmd.AddCommand(hooksAddCmd)
	hooksCmd.AddCommand(hooksCheckCmd)
	hooksCmd.AddCommand(hooksRemoveCmd)
}

func runHooksAdd(cmd *cobra.Command, args []string) error {
	conditions := make(map[string]string, len(hookConditions))
	for _, c := range hookConditions {
		key, value, ok := strings.Cut(c, "=")
		if !ok {
			return fmt.Errorf("condition %q is not key=value", c)
		}
		conditions[key] = value
	}

	hook, err := engine.Ledger.CreateContinuityHook(userID,
		models.HookTrigger{
			Type:       models.TriggerType(hookTrigger),
			Pattern:    hookPattern,
			Conditions: conditions,
		},
		models.HookAction{
			Type:      models.ActionType(hookAction),
			MemoryIDs: hookMemoryIDs,
		},
		ledger.HookOptions{
			Priority:   hookPriority,
			FileFilter: hookFileFilter,
		})
	if err != nil {
		return err
	}
	fmt.Printf("Hook %s registered (%s -> %s)\n", hook.ID, hook.Trigger.Type, hook.Action.Type)
	return nil
}

func runHooksCheck(cmd *cobra.Command, args []string) error {
	fired := engine.Ledger.CheckContinuityHooks(userID, models.ConversationEvent{
		Type:      models.TriggerType(hookTrigger),
		UserInput: checkInput,
		Topic:     checkTopic,
		SessionID: sessionID,
		FileType:  checkFileType,
	})

	if len(fired) == 0 {
		fmt.Println("No hooks fired.")
		return nil
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(fired)
}

func runHooksRemove(cmd *cobra.Command, args []string) error {
	if !engine.Ledger.RemoveContinuityHook(args[0]) {
		exitWithError("no hook with id %s", args[0])
	}
	fmt.Printf("Removed hook %s\n", args[0])
	return nil
}
