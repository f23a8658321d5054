package script

import (
	"encoding/json"

	"github.com/tidwall/gjson"
	lua "github.com/yuin/gopher-lua"
)

func (e *Engine) jsonModule() *lua.LTable {
	return e.L.SetFuncs(e.L.NewTable(), map[string]lua.LGFunction{
		"parse":            luaJSONParse,
		"stringify":        luaJSONStringify,
		"stringify_pretty": luaJSONStringifyPretty,
	})
}

func luaJSONParse(L *lua.LState) int {
	content := L.CheckString(1)
	if !gjson.Valid(content) {
		L.RaiseError("aip.json.parse: invalid json")
		return 0
	}

	lv, err := ToLua(L, gjson.Parse(content).Value())
	if err != nil {
		L.RaiseError("aip.json.parse: %v", err)
		return 0
	}
	L.Push(lv)
	return 1
}

func luaJSONStringify(L *lua.LState) int {
	return stringify(L, "")
}

func luaJSONStringifyPretty(L *lua.LState) int {
	return stringify(L, "  ")
}

func stringify(L *lua.LState, indent string) int {
	value, err := FromLua(L.Get(1))
	if err != nil {
		L.RaiseError("aip.json.stringify: %v", err)
		return 0
	}

	var raw []byte
	if indent == "" {
		raw, err = json.Marshal(value)
	} else {
		raw, err = json.MarshalIndent(value, "", indent)
	}
	if err != nil {
		L.RaiseError("aip.json.stringify: %v", err)
		return 0
	}
	L.Push(lua.LString(raw))
	return 1
}
