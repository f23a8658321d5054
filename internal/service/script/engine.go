package script

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	lua "github.com/yuin/gopher-lua"

	"github.com/zjregee/aip/internal/models"
)

// Host receives the side effects of a script: printed text and pins.
type Host interface {
	Print(rc models.RuntimeCtx, msg string)
	Pin(rc models.RuntimeCtx, pin models.Pin)
}

// Literals are the constants exposed to scripts through the CTX global.
type Literals struct {
	AgentName     string
	AgentFilePath string
	AgentFileDir  string
	WorkspaceDir  string
}

type Options struct {
	Host     Host
	Ctx      models.RuntimeCtx
	Literals Literals
}

// Engine wraps one Lua state. It is not safe for concurrent use; the executor
// creates one per stage invocation.
type Engine struct {
	L    *lua.LState
	opts Options
}

func New(opts Options) (*Engine, error) {
	L := lua.NewState()

	e := &Engine{L: L, opts: opts}
	if err := e.init(); err != nil {
		L.Close()
		return nil, err
	}

	return e, nil
}

func (e *Engine) init() error {
	aip := e.L.NewTable()
	e.L.SetField(aip, "flow", e.flowModule())
	e.L.SetField(aip, "run", e.pinModule("aip.run.pin", false))
	e.L.SetField(aip, "task", e.pinModule("aip.task.pin", true))
	e.L.SetField(aip, "json", e.jsonModule())
	e.L.SetField(aip, "cmd", e.cmdModule())
	e.L.SetGlobal("aip", aip)

	// legacy name
	aipack := e.L.NewTable()
	e.L.SetField(aipack, "skip", e.L.NewFunction(luaSkip))
	e.L.SetGlobal("aipack", aipack)

	e.L.SetGlobal("print", e.L.NewFunction(e.luaPrint))

	ctxValue, err := ToLua(e.L, e.ctxLiterals())
	if err != nil {
		return fmt.Errorf("failed to build CTX: %w", err)
	}
	e.L.SetGlobal("CTX", ctxValue)

	return nil
}

func (e *Engine) ctxLiterals() map[string]any {
	lit := e.opts.Literals
	rc := e.opts.Ctx
	value := map[string]any{
		"AGENT_NAME":      lit.AgentName,
		"AGENT_FILE_PATH": lit.AgentFilePath,
		"AGENT_FILE_DIR":  lit.AgentFileDir,
		"WORKSPACE_DIR":   lit.WorkspaceDir,
		"STAGE":           string(rc.Stage),
	}
	if rc.RunUID != "" {
		value["RUN_UID"] = rc.RunUID
	}
	if rc.TaskUID != "" {
		value["TASK_UID"] = rc.TaskUID
	}
	return value
}

// Eval runs script with the scope bound as globals and returns its result as
// a JSON-like value. dirs are added to the module search path.
func (e *Engine) Eval(ctx context.Context, script string, scope Scope, dirs []string) (any, error) {
	stage := e.opts.Ctx.Stage

	if err := e.setSearchPath(dirs); err != nil {
		return nil, &Error{Stage: stage, Script: script, Cause: err}
	}

	for _, b := range scope {
		lv, err := ToLua(e.L, b.Value)
		if err != nil {
			return nil, &Error{Stage: stage, Script: script, Cause: fmt.Errorf("binding %q: %w", b.Name, err)}
		}
		e.L.SetGlobal(b.Name, lv)
	}

	fn, err := e.L.LoadString(script)
	if err != nil {
		return nil, &Error{Stage: stage, Script: script, Cause: err}
	}

	e.L.SetContext(ctx)
	defer e.L.RemoveContext()

	if err := e.L.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true}); err != nil {
		return nil, &Error{Stage: stage, Script: script, Cause: err}
	}
	ret := e.L.Get(-1)
	e.L.Pop(1)

	value, err := FromLua(ret)
	if err != nil {
		return nil, &Error{Stage: stage, Script: script, Cause: err}
	}

	return value, nil
}

func (e *Engine) setSearchPath(dirs []string) error {
	if len(dirs) == 0 {
		return nil
	}

	pkg, ok := e.L.GetGlobal("package").(*lua.LTable)
	if !ok {
		return fmt.Errorf("package library not loaded")
	}

	var paths []string
	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		paths = append(paths,
			filepath.Join(dir, "?.lua"),
			filepath.Join(dir, "lua", "?.lua"),
		)
	}
	if current := lua.LVAsString(e.L.GetField(pkg, "path")); current != "" {
		paths = append(paths, current)
	}
	e.L.SetField(pkg, "path", lua.LString(strings.Join(paths, ";")))

	return nil
}

func (e *Engine) Close() {
	e.L.Close()
}

func (e *Engine) luaPrint(L *lua.LState) int {
	top := L.GetTop()
	parts := make([]string, 0, top)
	for i := 1; i <= top; i++ {
		parts = append(parts, L.ToStringMeta(L.Get(i)).String())
	}
	if e.opts.Host != nil {
		e.opts.Host.Print(e.opts.Ctx, strings.Join(parts, "\t"))
	}
	return 0
}
