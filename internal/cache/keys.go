package cache

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Key builds "<UTC date>|<strategyID>|<params JSON>". The JSON is compact
// with map keys sorted, so equal parameter sets always share a key.
func Key(now time.Time, strategyID string, params map[string]any) (string, error) {
	if params == nil {
		params = map[string]any{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(params); err != nil {
		return "", fmt.Errorf("encode params: %w", err)
	}
	return now.UTC().Format("2006-01-02") + "|" + strategyID + "|" + string(bytes.TrimRight(buf.Bytes(), "\n")), nil
}
