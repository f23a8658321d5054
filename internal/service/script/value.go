package script

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	lua "github.com/yuin/gopher-lua"
)

const maxDepth = 128

// ToLua converts a JSON-like Go value into a Lua value. Values of other types
// go through their JSON encoding.
func ToLua(L *lua.LState, v any) (lua.LValue, error) {
	return toLua(L, v, 0)
}

func toLua(L *lua.LState, v any, depth int) (lua.LValue, error) {
	if depth > maxDepth {
		return lua.LNil, fmt.Errorf("value nesting too deep")
	}

	switch val := v.(type) {
	case nil:
		return lua.LNil, nil
	case lua.LValue:
		return val, nil
	case bool:
		return lua.LBool(val), nil
	case string:
		return lua.LString(val), nil
	case int:
		return lua.LNumber(val), nil
	case int32:
		return lua.LNumber(val), nil
	case int64:
		return lua.LNumber(val), nil
	case uint:
		return lua.LNumber(val), nil
	case uint64:
		return lua.LNumber(val), nil
	case float32:
		return lua.LNumber(val), nil
	case float64:
		return lua.LNumber(val), nil
	case json.Number:
		f, err := val.Float64()
		if err != nil {
			return lua.LNil, fmt.Errorf("invalid number %q: %w", val, err)
		}
		return lua.LNumber(f), nil
	case []any:
		tbl := L.NewTable()
		for i, item := range val {
			lv, err := toLua(L, item, depth+1)
			if err != nil {
				return lua.LNil, err
			}
			tbl.RawSetInt(i+1, lv)
		}
		return tbl, nil
	case []string:
		tbl := L.NewTable()
		for i, item := range val {
			tbl.RawSetInt(i+1, lua.LString(item))
		}
		return tbl, nil
	case map[string]any:
		tbl := L.NewTable()
		for k, item := range val {
			lv, err := toLua(L, item, depth+1)
			if err != nil {
				return lua.LNil, err
			}
			tbl.RawSetString(k, lv)
		}
		return tbl, nil
	case map[string]string:
		tbl := L.NewTable()
		for k, item := range val {
			tbl.RawSetString(k, lua.LString(item))
		}
		return tbl, nil
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			return lua.LNil, fmt.Errorf("cannot convert %T to a script value: %w", v, err)
		}
		var generic any
		if err := json.Unmarshal(raw, &generic); err != nil {
			return lua.LNil, fmt.Errorf("cannot convert %T to a script value: %w", v, err)
		}
		return toLua(L, generic, depth+1)
	}
}

// FromLua converts a Lua value into a JSON-like Go value: nil, bool, int64,
// float64, string, []any or map[string]any. A table whose keys are exactly
// 1..n becomes a slice; an empty table becomes an empty map.
func FromLua(v lua.LValue) (any, error) {
	return fromLua(v, 0)
}

func fromLua(v lua.LValue, depth int) (any, error) {
	if depth > maxDepth {
		return nil, fmt.Errorf("table nesting too deep (cyclic table?)")
	}

	switch val := v.(type) {
	case *lua.LNilType:
		return nil, nil
	case lua.LBool:
		return bool(val), nil
	case lua.LNumber:
		f := float64(val)
		if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
			return int64(f), nil
		}
		return f, nil
	case lua.LString:
		return string(val), nil
	case *lua.LTable:
		return tableFromLua(val, depth)
	default:
		return nil, fmt.Errorf("cannot convert Lua %s to a value", v.Type().String())
	}
}

func tableFromLua(tbl *lua.LTable, depth int) (any, error) {
	count := 0
	tbl.ForEach(func(_, _ lua.LValue) {
		count++
	})

	maxN := tbl.MaxN()
	if count > 0 && maxN == count {
		arr := make([]any, 0, maxN)
		for i := 1; i <= maxN; i++ {
			item, err := fromLua(tbl.RawGetInt(i), depth+1)
			if err != nil {
				return nil, err
			}
			arr = append(arr, item)
		}
		return arr, nil
	}

	obj := make(map[string]any, count)
	var firstErr error
	tbl.ForEach(func(k, item lua.LValue) {
		if firstErr != nil {
			return
		}
		var key string
		switch kv := k.(type) {
		case lua.LString:
			key = string(kv)
		case lua.LNumber:
			key = strconv.FormatFloat(float64(kv), 'f', -1, 64)
		default:
			firstErr = fmt.Errorf("unsupported table key type %s", k.Type().String())
			return
		}
		value, err := fromLua(item, depth+1)
		if err != nil {
			firstErr = err
			return
		}
		obj[key] = value
	})
	if firstErr != nil {
		return nil, firstErr
	}
	return obj, nil
}
