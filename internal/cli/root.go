// Package cli implements the meetingtool command-line interface using
// Cobra. Each subcommand maps to one pipeline operation (serve,
// process, list, merge).
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "meetingtool",
	Short: "Turn meeting recordings into transcripts and minutes",
	Long: `meetingtool transcribes meeting recordings with whisper.cpp, optionally
labels speakers, and generates structured minutes with Gemini.

Interrupted work resumes where it left off: every pipeline stage and
every finished chunk is checkpointed in a local database.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "Path to the config file")
}

// Execute runs the root command. Called from main.go.
func Execute(version string) {
	rootCmd.Version = version

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
