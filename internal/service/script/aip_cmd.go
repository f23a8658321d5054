package script

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"
	"time"

	lua "github.com/yuin/gopher-lua"
)

const defaultCmdTimeout = 60 * time.Second

func (e *Engine) cmdModule() *lua.LTable {
	return e.L.SetFuncs(e.L.NewTable(), map[string]lua.LGFunction{
		"exec": e.luaCmdExec,
	})
}

// aip.cmd.exec(cmd, args?) returns {stdout, stderr, exit}. A non zero exit
// code is not an error.
func (e *Engine) luaCmdExec(L *lua.LState) int {
	command := strings.TrimSpace(L.CheckString(1))
	if command == "" {
		L.RaiseError("aip.cmd.exec: command must be provided")
		return 0
	}

	var args []string
	if tbl := L.OptTable(2, nil); tbl != nil {
		for i := 1; i <= tbl.MaxN(); i++ {
			args = append(args, L.ToStringMeta(tbl.RawGetInt(i)).String())
		}
	}

	ctx := L.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, defaultCmdTimeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, command, args...)
	if dir := e.opts.Literals.WorkspaceDir; dir != "" {
		cmd.Dir = dir
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	exit := 0
	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		switch {
		case ctx.Err() != nil:
			L.RaiseError("aip.cmd.exec: command timed out: %v", ctx.Err())
			return 0
		case errors.As(err, &exitErr):
			exit = exitErr.ExitCode()
		default:
			L.RaiseError("aip.cmd.exec: command failed to run: %v", err)
			return 0
		}
	}

	res := L.NewTable()
	res.RawSetString("stdout", lua.LString(stdout.String()))
	res.RawSetString("stderr", lua.LString(stderr.String()))
	res.RawSetString("exit", lua.LNumber(exit))
	L.Push(res)
	return 1
}
