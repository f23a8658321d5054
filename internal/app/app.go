package app

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/zjregee/aip/internal/service"
)

var (
	workDir  string
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "aip",
	Short: "aip runs markdown defined AI agents over inputs",
	Long: "aip runs .aip agent files: markdown documents with Lua Data and Output " +
		"stages and handlebars prompt sections, sent to any supported model over " +
		"one or many inputs.",
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		setupLogging(os.Stderr, logLevel)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&workDir, "dir", ".", "directory to look up the .aip workspace from")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn or error (default from config)")
}

// Execute runs the command line.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// App is the command line front of the agent service.
type App struct {
	agentService *service.AgentService
	out          io.Writer
}

// NewApp opens the workspace found from startDir.
func NewApp(startDir string, out io.Writer) (*App, error) {
	ws, err := service.LoadWorkspace(startDir)
	if err != nil {
		return nil, err
	}
	if logLevel == "" {
		setupLogging(os.Stderr, ws.Config.Log.Level)
	}

	agentService, err := service.NewAgentService(ws, service.NewEinoChatClient())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize agent service: %w", err)
	}

	return &App{agentService: agentService, out: out}, nil
}

func (a *App) Close() error {
	if a.agentService == nil {
		return nil
	}
	return a.agentService.Close()
}

func openApp(cmd *cobra.Command) (*App, error) {
	return NewApp(workDir, cmd.OutOrStdout())
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func setupLogging(w io.Writer, level string) {
	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: parseLevel(level)}))
	slog.SetDefault(logger)
}
