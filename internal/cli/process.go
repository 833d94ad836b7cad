package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/CRISUM/MeetingTool/internal/task"
)

var (
	processDiarize   bool
	processSummarize bool
	processLanguage  string
)

func init() {
	processCmd.Flags().BoolVar(&processDiarize, "diarize", false, "Label speakers (needs the diarization helper and a token)")
	processCmd.Flags().BoolVar(&processSummarize, "summarize", false, "Generate minutes with Gemini")
	processCmd.Flags().StringVar(&processLanguage, "language", "", "Spoken language hint (default: config, then auto-detect)")
	rootCmd.AddCommand(processCmd)
}

var processCmd = &cobra.Command{
	Use:   "process <recording>...",
	Short: "Transcribe one or more recordings and wait for the result",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runProcess,
}

func runProcess(cmd *cobra.Command, args []string) error {
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

	opts := task.Options{
		Diarize:   processDiarize,
		Summarize: processSummarize,
		Language:  processLanguage,
	}
	if opts.Language == "" {
		opts.Language = a.cfg.Whisper.Language
	}

	var ids []string
	for _, path := range args {
		t, err := a.orch.Submit(ctx, path, opts)
		if err != nil {
			return err
		}
		fmt.Printf("Submitted %s as task %s\n", path, t.ID)
		ids = append(ids, t.ID)
	}

	return awaitTasks(ctx, a, ids)
}

// awaitTasks polls until every task reaches a final state.
func awaitTasks(ctx context.Context, a *app, ids []string) error {
	var failed int
	for _, id := range ids {
		for {
			t, err := a.store.GetTask(id)
			if err != nil {
				return err
			}
			if t.IsTerminal() {
				if t.Status == task.StatusFailed {
					failed++
					fmt.Printf("Task %s FAILED: %s\n", t.ID, t.Error)
				} else {
					fmt.Printf("Task %s completed: %s\n", t.ID, t.OutputDir)
				}
				break
			}

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Second):
			}
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d tasks failed", failed, len(ids))
	}
	return nil
}
