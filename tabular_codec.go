package pvars

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"unicode/utf8"
)

// tabularCodec writes the mapping as rows of (key, value) pairs in sorted key
// order. Cell values are JSON-encoded so typed values survive the round-trip;
// a cell that is not valid JSON decodes as its raw string, which keeps
// hand-written files loadable.
type tabularCodec struct{}

func (tabularCodec) Encode(values map[string]any, options map[string]any) ([]byte, error) {
	comma := ','
	useCRLF := false
	for key, value := range options {
		switch key {
		case "comma":
			s, ok := value.(string)
			if !ok || utf8.RuneCountInString(s) != 1 {
				return nil, fmt.Errorf("pvars: tabular option %q must be a one-rune string", key)
			}
			comma, _ = utf8.DecodeRuneInString(s)
		case "use_crlf":
			b, ok := value.(bool)
			if !ok {
				return nil, fmt.Errorf("pvars: tabular option %q must be a bool", key)
			}
			useCRLF = b
		default:
			return nil, unknownOption(FormatTabular, key)
		}
	}

	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)
	writer.Comma = comma
	writer.UseCRLF = useCRLF

	for _, key := range sortedKeys(values) {
		cell, err := encodeTabularCell(values[key])
		if err != nil {
			return nil, err
		}
		if err := writer.Write([]string{key, cell}); err != nil {
			return nil, fmt.Errorf("pvars: tabular encode: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("pvars: tabular encode: %w", err)
	}
	return buf.Bytes(), nil
}

func (tabularCodec) Decode(data []byte) (map[string]any, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = 2

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("pvars: tabular decode: %w", err)
	}

	// Duplicate keys collapse to last-seen.
	values := make(map[string]any, len(rows))
	for _, row := range rows {
		values[row[0]] = decodeTabularCell(row[1])
	}
	return values, nil
}

func encodeTabularCell(value any) (string, error) {
	data, err := json.Marshal(value)
	if err != nil {
		if isJSONShapeError(err) {
			return "", fmt.Errorf("%w: %v", ErrUnsupportedValue, err)
		}
		return "", fmt.Errorf("pvars: tabular encode: %w", err)
	}
	return string(data), nil
}

func decodeTabularCell(cell string) any {
	dec := json.NewDecoder(bytes.NewReader([]byte(cell)))
	dec.UseNumber()
	var value any
	if err := dec.Decode(&value); err != nil || dec.More() {
		return cell
	}
	return value
}
