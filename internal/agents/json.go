package agents

import (
	"encoding/json"
	"fmt"
	"strings"
)

// decodeJSON unmarshals a model response into out, tolerating the common
// habit of wrapping JSON in a markdown code fence even when JSON response
// mode was requested.
func decodeJSON(text string, out interface{}) error {
	t := strings.TrimSpace(text)
	if strings.HasPrefix(t, "```") {
		t = strings.TrimPrefix(t, "```json")
		t = strings.TrimPrefix(t, "```")
		if i := strings.LastIndex(t, "```"); i >= 0 {
			t = t[:i]
		}
		t = strings.TrimSpace(t)
	}
	if err := json.Unmarshal([]byte(t), out); err != nil {
		return fmt.Errorf("decode model response: %w", err)
	}
	return nil
}
