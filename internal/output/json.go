package output

import (
	"encoding/json"
)

// RenderJSON renders v as a single line so each streamed item stays one
// JSON document per line.
func RenderJSON(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
