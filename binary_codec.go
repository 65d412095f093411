package pvars

import (
	"bytes"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"time"
)

func init() {
	gob.Register(map[string]any{})
	gob.Register([]any{})
	gob.Register([]binaryRecord{})
	gob.Register(json.Number(""))
	gob.Register(time.Time{})
}

// RegisterBinaryType registers a concrete type with the binary codec so
// values of that type survive a round-trip through interface{} fields. It is
// a pass-through to gob.Register and follows its rules: register once per
// type, before the first encode or decode involving it.
func RegisterBinaryType(value any) {
	gob.Register(value)
}

// binaryRecord is the gob wire shape: mappings encode as key-sorted record
// slices, recursively, so an unchanged mapping always encodes to identical
// bytes. Gob iterates maps in random order, so any map left in the value
// tree would break that.
type binaryRecord struct {
	Key   string
	Value any
}

type binaryCodec struct{}

func (binaryCodec) Encode(values map[string]any, options map[string]any) ([]byte, error) {
	for key := range options {
		return nil, unknownOption(FormatBinary, key)
	}

	records := make([]binaryRecord, 0, len(values))
	for _, key := range sortedKeys(values) {
		records = append(records, binaryRecord{Key: key, Value: canonicalizeBinary(values[key])})
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(records); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedValue, err)
	}
	return buf.Bytes(), nil
}

func (binaryCodec) Decode(data []byte) (map[string]any, error) {
	var records []binaryRecord
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&records); err != nil {
		return nil, fmt.Errorf("pvars: binary decode: %w", err)
	}

	values := make(map[string]any, len(records))
	for _, record := range records {
		values[record.Key] = restoreBinary(record.Value)
	}
	return values, nil
}

// canonicalizeBinary rewrites nested map[string]any values as key-sorted
// record slices, descending through []any elements on the way.
func canonicalizeBinary(value any) any {
	switch v := value.(type) {
	case map[string]any:
		records := make([]binaryRecord, 0, len(v))
		for _, key := range sortedKeys(v) {
			records = append(records, binaryRecord{Key: key, Value: canonicalizeBinary(v[key])})
		}
		return records
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = canonicalizeBinary(item)
		}
		return out
	default:
		return v
	}
}

// restoreBinary is the inverse of canonicalizeBinary: record slices decode
// back into the map[string]any values the caller stored.
func restoreBinary(value any) any {
	switch v := value.(type) {
	case []binaryRecord:
		values := make(map[string]any, len(v))
		for _, record := range v {
			values[record.Key] = restoreBinary(record.Value)
		}
		return values
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = restoreBinary(item)
		}
		return out
	default:
		return v
	}
}
