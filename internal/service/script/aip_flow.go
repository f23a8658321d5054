package script

import (
	lua "github.com/yuin/gopher-lua"
)

func (e *Engine) flowModule() *lua.LTable {
	return e.L.SetFuncs(e.L.NewTable(), map[string]lua.LGFunction{
		"skip":                luaSkip,
		"data_response":       luaDataResponse,
		"before_all_response": luaBeforeAllResponse,
	})
}

func signalTable(L *lua.LState, kind string, data *lua.LTable) *lua.LTable {
	inner := L.NewTable()
	inner.RawSetString("kind", lua.LString(kind))
	inner.RawSetString("data", data)

	outer := L.NewTable()
	outer.RawSetString(SentinelKey, inner)
	return outer
}

// aip.flow.skip(reason?)
func luaSkip(L *lua.LState) int {
	data := L.NewTable()
	if reason, ok := L.Get(1).(lua.LString); ok {
		data.RawSetString("reason", reason)
	}
	L.Push(signalTable(L, KindSkip, data))
	return 1
}

// aip.flow.data_response({input?, data?, options?})
func luaDataResponse(L *lua.LState) int {
	data := L.OptTable(1, L.NewTable())
	L.Push(signalTable(L, KindDataResponse, data))
	return 1
}

// aip.flow.before_all_response({inputs?, before_all?, options?})
func luaBeforeAllResponse(L *lua.LState) int {
	data := L.OptTable(1, L.NewTable())
	L.Push(signalTable(L, KindBeforeAllResponse, data))
	return 1
}
