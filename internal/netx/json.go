package netx

import (
	"encoding/json"
	"strings"
)

// ExtractJSONObject returns the text between the first '{' and the last '}'
// when it is valid JSON. Model answers often wrap the object in prose or code
// fences; anything unparsable is reported as no result.
func ExtractJSONObject(text string) (json.RawMessage, bool) {
	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start == -1 || end <= start {
		return nil, false
	}
	raw := json.RawMessage(text[start : end+1])
	if !json.Valid(raw) {
		return nil, false
	}
	return raw, true
}

// DecodeEmbedded unmarshals the embedded object of text into v.
// It reports false, leaving v untouched, when there is nothing usable.
func DecodeEmbedded(text string, v any) bool {
	raw, ok := ExtractJSONObject(text)
	if !ok {
		return false
	}
	return json.Unmarshal(raw, v) == nil
}
