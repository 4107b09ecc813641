package mcpserver

import (
	"encoding/json"
	"math"
)

// parseJSON parses a JSON string into the target type.
func parseJSON(data string, target any) error {
	return json.Unmarshal([]byte(data), target)
}

// intArg reads a numeric tool argument. JSON numbers arrive as float64;
// values beyond the int32 range saturate.
func intArg(args map[string]any, key string, def int) int {
	switch v := args[key].(type) {
	case float64:
		if math.IsNaN(v) {
			return def
		}
		return int(math.Max(math.MinInt32, math.Min(v, math.MaxInt32)))
	case int:
		return v
	default:
		return def
	}
}
