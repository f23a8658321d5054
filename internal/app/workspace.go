package app

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/zjregee/aip/internal/service"
	"github.com/zjregee/aip/internal/service/agentfile"
)

var initCmd = &cobra.Command{
	Use:   "init [dir]",
	Short: "Create a .aip workspace with a config file and a sample agent",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	dir := workDir
	if len(args) == 1 {
		dir = args[0]
	}
	dir, err := filepath.Abs(dir)
	if err != nil {
		return err
	}

	created, err := service.InitWorkspace(dir)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(created) == 0 {
		fmt.Fprintf(out, "Workspace already initialized in %s\n", dir)
		return nil
	}
	for _, path := range created {
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			rel = path
		}
		fmt.Fprintf(out, "created %s\n", rel)
	}
	return nil
}

// ResolveAgentPath finds the agent file for name: a path to an existing file,
// or the name of an agent under .aip/agents (the .aip extension is optional).
func (a *App) ResolveAgentPath(name string) (string, error) {
	if a.agentService == nil {
		return "", fmt.Errorf("agent service not initialized")
	}
	if name == "" {
		return "", fmt.Errorf("agent is required")
	}

	if info, err := os.Stat(name); err == nil && !info.IsDir() {
		return filepath.Abs(name)
	}

	file := name
	if !strings.HasSuffix(file, agentfile.Ext) {
		file += agentfile.Ext
	}
	ws := a.agentService.Workspace()
	candidates := []string{
		filepath.Join(ws.AipDir(), "agents", file),
		filepath.Join(ws.Dir, file),
	}
	for _, path := range candidates {
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, nil
		}
	}

	return "", fmt.Errorf("agent %q not found (looked in %s)", name, strings.Join(candidates, ", "))
}
