package repository

import "encoding/json"

func encodeMetadata(metadata map[string]interface{}) ([]byte, error) {
	if metadata == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(metadata)
}

func decodeMetadata(raw []byte) map[string]interface{} {
	metadata := map[string]interface{}{}
	if len(raw) == 0 {
		return metadata
	}
	// Rows written by other tools may hold non-object JSON; keep them readable.
	if err := json.Unmarshal(raw, &metadata); err != nil {
		return map[string]interface{}{}
	}
	return metadata
}
