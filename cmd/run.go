package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"qualitygate/internal/analysis/adapter"
	"qualitygate/internal/analysis/notifier"
	"qualitygate/internal/analysis/orchestrator"
	"qualitygate/internal/logging"
	"qualitygate/internal/types"
)

var (
	runMode          string
	runSelectedTools []string
)

var runCmd = &cobra.Command{
	Use:   "run <project-path>",
	Short: "Run a one-shot analysis against a project path without a server",
	Args:  cobra.ExactArgs(1),
	RunE:  runRunCommand,
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringVar(&runMode, "mode", string(types.ModeFull), "run mode: full, incremental")
	runCmd.Flags().StringSliceVar(&runSelectedTools, "tools", nil, "comma-separated tool ids to run (default: all registered)")
}

// jsonSub streams every received event as a line-delimited JSON record to
// stdout, the server-less scripting contract described in SPEC_FULL.md §10.1.
type jsonSub struct{ enc *json.Encoder }

func (s *jsonSub) ID() string { return "cli" }
func (s *jsonSub) Send(data []byte) error {
	var raw json.RawMessage = data
	return s.enc.Encode(raw)
}

func runRunCommand(cmd *cobra.Command, args []string) error {
	projectPath := args[0]
	if info, err := os.Stat(projectPath); err != nil || !info.IsDir() {
		return fmt.Errorf("project path %q does not exist or is not a directory", projectPath)
	}

	mode := types.RunMode(runMode)
	if mode != types.ModeFull && mode != types.ModeIncremental {
		return fmt.Errorf("unsupported mode %q (use full or incremental)", runMode)
	}

	log := logging.NewTestLogger()
	n := notifier.New(log)
	sub := &jsonSub{enc: json.NewEncoder(os.Stdout)}
	n.Attach("cli", sub)
	defer n.Detach("cli", sub)

	reg := adapter.NewRegistry()
	scoped := notifier.NewScoped(n, "cli")
	orch := orchestrator.New(projectPath, mode, scoped, runSelectedTools, reg, log, nil)

	result, err := orch.Execute(context.Background(), nil)
	if err != nil {
		return err
	}
	if result.Status == types.GlobalFailure {
		os.Exit(1)
	}
	return nil
}
