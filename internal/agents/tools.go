package agents

import "encoding/json"

// extractArg pulls a single string field out of a tool call's JSON-encoded
// arguments (or a decide tool call's JSON body). Returns "" on any parse
// or missing-key failure rather than erroring, since a malformed decide
// call should fall through to parseDecision's give_up default.
func extractArg(jsonArgs, key string) string {
	var m map[string]any
	if err := json.Unmarshal([]byte(jsonArgs), &m); err != nil {
		return ""
	}
	v, ok := m[key]
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}
