package ledger

import (
	"encoding/json"
)

func ensureJSON(data json.RawMessage) json.RawMessage {
	if data == nil {
		return json.RawMessage(`{}`)
	}
	return data
}

func mergeMeta(base json.RawMessage, extras map[string]interface{}) json.RawMessage {
	m := make(map[string]interface{})
	if base != nil {
		_ = json.Unmarshal(base, &m)
	}
	for k, v := range extras {
		m[k] = v
	}
	out, err := json.Marshal(m)
	if err != nil {
		return ensureJSON(base)
	}
	return out
}
