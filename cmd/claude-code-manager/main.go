// claude-code-manager runs the session process engine as a line-oriented
// JSON service.
//
// It reads one command per line on stdin and writes engine events and
// command responses as JSON lines on stdout, so any frontend (an editor
// plugin, a web bridge, a test harness) can drive it without linking Go.
//
// Commands:
//
//	{"op":"start","workingDir":"/path/to/repo"}
//	{"op":"send","sessionId":"...","text":"...","model":"...","maxTurns":0}
//	{"op":"stop","sessionId":"..."}
//	{"op":"list"}
//	{"op":"history","sessionId":"...","path":"/path/to/transcript.jsonl"}
package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var configPath string

var rootCmd = &cobra.Command{
	Use:   "claude-code-manager",
	Short: "Coordinate Claude CLI sessions over stdin/stdout JSON",
	Long: `claude-code-manager spawns and supervises Claude CLI subprocesses,
one session per working directory, and streams their typed events as
JSON lines on stdout. Commands arrive as JSON lines on stdin.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(configPath)
	},
}

func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "manager.toml",
		"path to the TOML configuration file")
}
