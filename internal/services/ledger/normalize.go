package ledger

import "encoding/json"

// normalizeBody maps the historically observed response encodings onto
// one JSON object. Upstream client libraries have attached the payload
// three different ways: wrapped under a "json" key, serialized into a
// "body" string, or as the bare object. Everything past this adapter
// sees a single shape.
func normalizeBody(data []byte) (map[string]any, error) {
	var obj map[string]any
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil, err
	}

	if inner, ok := obj["json"].(map[string]any); ok {
		return inner, nil
	}
	if s, ok := obj["body"].(string); ok {
		var inner map[string]any
		if err := json.Unmarshal([]byte(s), &inner); err == nil {
			return inner, nil
		}
	}
	return obj, nil
}
