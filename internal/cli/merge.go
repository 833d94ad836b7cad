package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(mergeCmd)
}

var mergeCmd = &cobra.Command{
	Use:   "merge <task-id> <task-id>...",
	Short: "Generate one set of minutes across completed tasks",
	Long: `Produce a single merged summary covering several finished
transcription tasks, for meetings that were recorded in parts.`,
	Args: cobra.MinimumNArgs(2),
	RunE: runMerge,
}

func runMerge(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := a.orch.Start(ctx); err != nil {
		return err
	}
	defer a.orch.Stop()

	t, err := a.orch.SubmitMerge(ctx, args)
	if err != nil {
		return err
	}
	fmt.Printf("Submitted merge task %s over %d tasks\n", t.ID, len(args))

	return awaitTasks(ctx, a, []string{t.ID})
}
