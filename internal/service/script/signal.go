package script

import (
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"
)

// SentinelKey marks a script value as a control signal rather than data:
// {_aipack_ = {kind = "...", data = {...}}}. Agent data must not use it.
const SentinelKey = "_aipack_"

const (
	KindSkip              = "Skip"
	KindDataResponse      = "DataResponse"
	KindBeforeAllResponse = "BeforeAllResponse"
)

// StageResult is a classified script value.
type StageResult interface {
	Kind() string
}

// OriginalValue is plain data.
type OriginalValue struct {
	Value any
}

func (OriginalValue) Kind() string { return "" }

// Skip stops the processing of the current input.
type Skip struct {
	Reason *string
}

func (Skip) Kind() string { return KindSkip }

// DataResponse overrides the input, data and options of the current task.
// Nil fields are not overridden.
type DataResponse struct {
	Input   any
	Data    any
	Options any
}

func (DataResponse) Kind() string { return KindDataResponse }

// BeforeAllResponse reshapes the inputs and options of a run.
type BeforeAllResponse struct {
	Inputs    []any
	HasInputs bool
	BeforeAll any
	Options   any
}

func (BeforeAllResponse) Kind() string { return KindBeforeAllResponse }

// Unsupported is a signal with an unknown kind.
type Unsupported struct {
	Name string
}

func (u Unsupported) Kind() string { return u.Name }

// Classify tells control signals apart from plain data.
func Classify(value any) (StageResult, error) {
	obj, ok := value.(map[string]any)
	if !ok {
		return OriginalValue{Value: value}, nil
	}
	if _, ok := obj[SentinelKey]; !ok {
		return OriginalValue{Value: value}, nil
	}

	raw, err := json.Marshal(obj[SentinelKey])
	if err != nil {
		return nil, fmt.Errorf("failed to encode control signal: %w", err)
	}
	signal := gjson.ParseBytes(raw)
	if !signal.IsObject() {
		return nil, fmt.Errorf("malformed control signal: %s must be a table", SentinelKey)
	}

	kind := signal.Get("kind").String()
	data := signal.Get("data")

	switch kind {
	case KindSkip:
		var reason *string
		if r := data.Get("reason"); r.Exists() && r.Type != gjson.Null {
			s := r.String()
			reason = &s
		}
		return Skip{Reason: reason}, nil
	case KindDataResponse:
		return DataResponse{
			Input:   optionalValue(data, "input"),
			Data:    optionalValue(data, "data"),
			Options: optionalValue(data, "options"),
		}, nil
	case KindBeforeAllResponse:
		res := BeforeAllResponse{
			BeforeAll: optionalValue(data, "before_all"),
			Options:   optionalValue(data, "options"),
		}
		if inputs := data.Get("inputs"); inputs.Exists() && inputs.Type != gjson.Null {
			res.HasInputs = true
			switch {
			case inputs.IsArray():
				for _, item := range inputs.Array() {
					res.Inputs = append(res.Inputs, item.Value())
				}
			case inputs.IsObject() && len(inputs.Map()) == 0:
				// an empty script table
			default:
				return nil, fmt.Errorf("before_all_response inputs must be a list")
			}
		}
		return res, nil
	case "":
		return nil, fmt.Errorf("malformed control signal: missing kind")
	default:
		return Unsupported{Name: kind}, nil
	}
}

func optionalValue(data gjson.Result, key string) any {
	v := data.Get(key)
	if !v.Exists() || v.Type == gjson.Null {
		return nil
	}
	return v.Value()
}

func newSignal(kind string, data map[string]any) map[string]any {
	return map[string]any{
		SentinelKey: map[string]any{
			"kind": kind,
			"data": data,
		},
	}
}
