package script

import (
	"encoding/json"

	lua "github.com/yuin/gopher-lua"

	"github.com/zjregee/aip/internal/models"
)

func (e *Engine) pinModule(name string, taskScoped bool) *lua.LTable {
	return e.L.SetFuncs(e.L.NewTable(), map[string]lua.LGFunction{
		"pin": func(L *lua.LState) int {
			return e.luaPin(L, name, taskScoped)
		},
	})
}

// pin(iden, content) or pin(iden, priority, content)
func (e *Engine) luaPin(L *lua.LState, name string, taskScoped bool) int {
	rc := e.opts.Ctx
	if rc.RunID == 0 {
		L.RaiseError("%s: no run in context", name)
		return 0
	}
	if taskScoped && rc.TaskID == 0 {
		L.RaiseError("%s: no task in context", name)
		return 0
	}

	iden := L.CheckString(1)

	var priority *float64
	content := L.Get(2)
	if L.GetTop() >= 3 {
		p := float64(L.CheckNumber(2))
		priority = &p
		content = L.Get(3)
	}

	value, err := FromLua(content)
	if err != nil {
		L.RaiseError("%s: %v", name, err)
		return 0
	}
	raw, err := json.Marshal(value)
	if err != nil {
		L.RaiseError("%s: %v", name, err)
		return 0
	}

	pin := models.Pin{
		RunID:    rc.RunID,
		Iden:     iden,
		Priority: priority,
		Content:  string(raw),
	}
	if taskScoped {
		pin.TaskID = rc.TaskID
	}
	if e.opts.Host != nil {
		e.opts.Host.Pin(rc, pin)
	}

	return 0
}
