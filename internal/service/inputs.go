package service

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/tidwall/gjson"
	"github.com/yargevad/filepathx"

	"github.com/zjregee/aip/internal/models"
	"github.com/zjregee/aip/internal/utils"
)

const (
	maxInputLineBytes = 1024 * 1024
	labelMaxLen       = 64
)

// InputSource lists where the inputs of a run come from. Values are used as
// is, Globs (which may use **) become file inputs and every line of JSONLPath
// becomes one JSON input.
type InputSource struct {
	Values    []string
	Globs     []string
	JSONLPath string
	BaseDir   string
}

// CollectInputs gathers the inputs of a run in a stable order. It returns nil
// when no source is given: the agent then runs once with a nil input.
func CollectInputs(src InputSource) ([]any, error) {
	var inputs []any

	for _, v := range src.Values {
		inputs = append(inputs, v)
	}

	for _, pattern := range src.Globs {
		if !filepath.IsAbs(pattern) && src.BaseDir != "" {
			pattern = filepath.Join(src.BaseDir, pattern)
		}
		matches, err := filepathx.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid file pattern %q: %w", pattern, err)
		}
		sort.Strings(matches)
		for _, path := range matches {
			inputs = append(inputs, fileInput(path, src.BaseDir))
		}
	}

	if src.JSONLPath != "" {
		err := utils.ScanJSONL(src.JSONLPath, maxInputLineBytes, func(line utils.Line) error {
			if line.WasTruncated {
				return fmt.Errorf("%s:%d: line is too long", src.JSONLPath, line.Num)
			}
			if !gjson.ValidBytes(line.Bytes) {
				return fmt.Errorf("%s:%d: invalid json", src.JSONLPath, line.Num)
			}
			inputs = append(inputs, gjson.ParseBytes(line.Bytes).Value())
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to read inputs: %w", err)
		}
	}

	return inputs, nil
}

func fileInput(path, baseDir string) map[string]any {
	if baseDir != "" {
		if rel, err := filepath.Rel(baseDir, path); err == nil {
			path = rel
		}
	}
	info := models.NewFileInfo(path)
	return map[string]any{
		"path": info.Path,
		"name": info.Name,
		"stem": info.Stem,
		"ext":  info.Ext,
		"dir":  info.Dir,
	}
}

// InputLabel is a short human readable name for an input.
func InputLabel(input any) string {
	switch v := input.(type) {
	case nil:
		return "(no input)"
	case string:
		return utils.Truncate(v, labelMaxLen)
	case map[string]any:
		if path, ok := v["path"].(string); ok {
			return path
		}
	}

	return utils.Truncate(jsonString(input), labelMaxLen)
}

func jsonString(v any) string {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(raw)
}
