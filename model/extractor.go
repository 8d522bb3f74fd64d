package model

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"github.com/mykhaliev/agent-scenarios/logger"
	"github.com/yalp/jsonpath"
)

// ============================================================================
// DATA EXTRACTOR
// ============================================================================

// DataExtractor pulls a value out of a tool call result and stores it in the
// template context under VariableName, so later turns can reference it.
type DataExtractor struct {
	ExtractorType string `json:"type"`
	Tool          string `json:"tool,omitempty"`
	Path          string `json:"path,omitempty"`
	VariableName  string `json:"variable_name,omitempty"`
}

func (e *DataExtractor) Extract(result *ExecutionResult, templateContext map[string]string) {
	if result == nil {
		return
	}
	for _, tc := range result.ToolCalls {
		if tc.Name != e.Tool {
			continue
		}
		switch e.ExtractorType {
		case "jsonpath":
			var data interface{}
			if err := json.Unmarshal([]byte(tc.Result), &data); err != nil {
				logger.Logger.Warn("Failed to unmarshal tool result: " + err.Error())
				continue
			}
			res, err := jsonpath.Read(data, e.Path)
			if err != nil {
				logger.Logger.Warn("Invalid JSONPath: " + err.Error())
				continue
			}
			logger.Logger.Debug("Extracted", "variable", e.VariableName, "value", fmt.Sprint(res))
			templateContext[e.VariableName] = normalize(res)
		default:
			continue
		}
	}
}

func normalize(v interface{}) string {
	if v == nil {
		return "null"
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		var parts []string
		for i := 0; i < rv.Len(); i++ {
			parts = append(parts, normalize(rv.Index(i).Interface()))
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		if f == float64(int64(f)) {
			return fmt.Sprintf("%d", int64(f))
		}
		return fmt.Sprintf("%g", f)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return fmt.Sprintf("%d", rv.Int())
	case reflect.String:
		return rv.String()
	default:
		return fmt.Sprint(v)
	}
}
