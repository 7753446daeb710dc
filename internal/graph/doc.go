package graph

import "encoding/json"

// toDoc round-trips v through JSON into a map[string]any suitable for
// arangodb.Client.Upsert. Every model type already carries the json tags
// the graph documents are keyed by, so this is the only conversion needed.
func toDoc(v any, key string) (map[string]any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	doc["_key"] = key
	return doc, nil
}
