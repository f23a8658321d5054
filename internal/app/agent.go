package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/zjregee/aip/internal/models"
	"github.com/zjregee/aip/internal/service"
	"github.com/zjregee/aip/internal/utils"
)

type runFlags struct {
	inputs      []string
	files       []string
	inputJSONL  string
	verbose     bool
	dry         string
	out         string
	metricsFile string
	tui         bool
}

var runOpts runFlags

var runCmd = &cobra.Command{
	Use:   "run <agent>",
	Short: "Run an agent over its inputs",
	Long: "Run an agent file (or the name of an agent under .aip/agents) once per " +
		"input. Inputs come from -i values, -f file globs and --input-jsonl lines; " +
		"without any the agent runs once with a nil input.",
	Args: cobra.ExactArgs(1),
	RunE: runRun,
}

func init() {
	flags := runCmd.Flags()
	flags.StringArrayVarP(&runOpts.inputs, "input", "i", nil, "input value (repeatable)")
	flags.StringArrayVarP(&runOpts.files, "file", "f", nil, "file glob, ** allowed, each match is one input (repeatable)")
	flags.StringVar(&runOpts.inputJSONL, "input-jsonl", "", "jsonl file, each line is one input")
	flags.BoolVarP(&runOpts.verbose, "verbose", "v", false, "print rendered prompts and AI outputs")
	flags.StringVar(&runOpts.dry, "dry", "", "stop after the prompt (req) or the AI response (res)")
	flags.StringVarP(&runOpts.out, "out", "o", "", "write the run outputs as JSON to this file")
	flags.StringVar(&runOpts.metricsFile, "metrics-file", "", "write run metrics in Prometheus text format to this file")
	flags.BoolVar(&runOpts.tui, "tui", false, "follow the run in the terminal UI")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	if _, err := service.ParseDryMode(runOpts.dry); err != nil {
		return err
	}

	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer func() {
		_ = a.Close()
	}()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res, err := a.RunAgent(ctx, args[0], runOpts)
	if res != nil {
		if werr := a.writeResults(res, runOpts); werr != nil {
			return errors.Join(err, werr)
		}
	}
	return err
}

// RunAgent loads the agent, gathers its inputs and runs it, reporting
// progress on the terminal or in the TUI.
func (a *App) RunAgent(ctx context.Context, name string, flags runFlags) (*service.RunAgentResponse, error) {
	if a.agentService == nil {
		return nil, fmt.Errorf("agent service not initialized")
	}

	path, err := a.ResolveAgentPath(name)
	if err != nil {
		return nil, err
	}
	agent, err := a.agentService.LoadAgent(path)
	if err != nil {
		return nil, err
	}

	inputs, err := service.CollectInputs(service.InputSource{
		Values:    flags.inputs,
		Globs:     flags.files,
		JSONLPath: flags.inputJSONL,
		BaseDir:   a.agentService.Workspace().Dir,
	})
	if err != nil {
		return nil, err
	}

	dry, err := service.ParseDryMode(flags.dry)
	if err != nil {
		return nil, err
	}
	opts := service.RunOptions{Verbose: flags.verbose, DryMode: dry}

	if flags.tui {
		return a.runWithTUI(ctx, agent, inputs, opts)
	}

	stopPrinter := startPrinter(a.agentService.Hub(), a.out)
	res, err := a.agentService.RunAgent(ctx, agent, inputs, opts)
	stopPrinter()
	return res, err
}

// runWithTUI runs the agent in the background while the TUI follows it.
// Quitting the TUI cancels a run still in progress.
func (a *App) runWithTUI(ctx context.Context, agent *models.Agent, inputs []any, opts service.RunOptions) (*service.RunAgentResponse, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	events, unsubscribe := a.agentService.Hub().Subscribe()
	defer unsubscribe()

	program := tea.NewProgram(newTUIModel(a.agentService, events), tea.WithContext(ctx), tea.WithAltScreen())

	var (
		res    *service.RunAgentResponse
		runErr error
	)
	done := make(chan struct{})
	go func() {
		defer close(done)
		res, runErr = a.agentService.RunAgent(ctx, agent, inputs, opts)
		program.Send(runDoneMsg{err: runErr})
	}()

	_, tuiErr := program.Run()
	cancel()
	<-done

	if tuiErr != nil && !errors.Is(tuiErr, tea.ErrProgramKilled) {
		return res, errors.Join(runErr, tuiErr)
	}
	return res, runErr
}

type runResults struct {
	RunID     int64  `json:"run_id"`
	RunUID    string `json:"run_uid"`
	Skipped   bool   `json:"skipped"`
	Outputs   []any  `json:"outputs"`
	BeforeAll any    `json:"before_all,omitempty"`
	AfterAll  any    `json:"after_all,omitempty"`
}

func (a *App) writeResults(res *service.RunAgentResponse, flags runFlags) error {
	if flags.out != "" {
		data, err := json.MarshalIndent(runResults{
			RunID:     res.RunID,
			RunUID:    res.RunUID,
			Skipped:   res.Skipped,
			Outputs:   res.Outputs,
			BeforeAll: res.BeforeAll,
			AfterAll:  res.AfterAll,
		}, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode outputs: %w", err)
		}
		if err := utils.WriteFileAtomic(flags.out, append(data, '\n')); err != nil {
			return fmt.Errorf("failed to write outputs: %w", err)
		}
		fmt.Fprintf(a.out, "Outputs written to %s\n", flags.out)
	}

	if flags.metricsFile != "" {
		if err := a.agentService.Metrics().WriteToFile(flags.metricsFile); err != nil {
			return fmt.Errorf("failed to write metrics: %w", err)
		}
	}

	return nil
}
