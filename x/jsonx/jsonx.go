// Package jsonx decodes loosely typed payloads into concrete structs.
package jsonx

import "encoding/json"

// Decode unmarshals src into dst. Byte and string sources are decoded
// directly; anything else is round-tripped through json.Marshal, which
// covers map payloads handed over a message bus.
func Decode[T any](src any, dst *T) error {
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, dst)
	case json.RawMessage:
		return json.Unmarshal(v, dst)
	case string:
		return json.Unmarshal([]byte(v), dst)
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return err
		}
		return json.Unmarshal(b, dst)
	}
}
