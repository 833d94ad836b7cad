package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/CRISUM/MeetingTool/internal/task"
)

func init() {
	rootCmd.AddCommand(listCmd)
}

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List tasks and their pipeline state",
	RunE:    runList,
}

func runList(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	tasks, err := a.store.ListTasks()
	if err != nil {
		return err
	}

	if len(tasks) == 0 {
		fmt.Println("No tasks yet. Drop a recording into the inbox or run 'meetingtool process <file>'.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tKIND\tSTATUS\tSTAGE\tINPUT\tUPDATED")
	for _, t := range tasks {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			t.ID,
			t.Kind,
			t.Status,
			t.Stage,
			describeInputs(t),
			t.UpdatedAt.Local().Format("2006-01-02 15:04"),
		)
	}
	return w.Flush()
}

func describeInputs(t task.Task) string {
	if t.Kind == task.KindMergeSummary {
		return fmt.Sprintf("%d tasks", len(t.Inputs))
	}
	if len(t.Inputs) == 0 {
		return "-"
	}
	return filepath.Base(t.Inputs[0])
}
