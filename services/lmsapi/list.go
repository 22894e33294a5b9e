package lmsapi

import (
	"bytes"
	"encoding/json"

	"github.com/pkg/errors"
)

// wrapping keys the LMS may put lists under
var listKeys = []string{"data", "items", "results", "submissions", "grades"}

// listOf decodes a JSON array, or an object wrapping one under a known key.
type listOf[T any] struct {
	items []T
}

func (l *listOf[T]) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	if len(data) > 0 && data[0] == '[' {
		return json.Unmarshal(data, &l.items)
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	for _, k := range listKeys {
		if raw, ok := obj[k]; ok {
			return json.Unmarshal(raw, &l.items)
		}
	}
	return errors.New("no list in response")
}
