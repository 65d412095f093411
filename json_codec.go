package pvars

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

type jsonCodec struct{}

func (jsonCodec) Encode(values map[string]any, options map[string]any) ([]byte, error) {
	indent := ""
	prefix := ""
	escapeHTML := false
	for key, value := range options {
		switch key {
		case "indent":
			s, ok := value.(string)
			if !ok {
				return nil, fmt.Errorf("pvars: json option %q must be a string", key)
			}
			indent = s
		case "prefix":
			s, ok := value.(string)
			if !ok {
				return nil, fmt.Errorf("pvars: json option %q must be a string", key)
			}
			prefix = s
		case "escape_html":
			b, ok := value.(bool)
			if !ok {
				return nil, fmt.Errorf("pvars: json option %q must be a bool", key)
			}
			escapeHTML = b
		default:
			return nil, unknownOption(FormatJSON, key)
		}
	}

	if values == nil {
		values = map[string]any{}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(escapeHTML)
	if indent != "" || prefix != "" {
		enc.SetIndent(prefix, indent)
	}
	if err := enc.Encode(values); err != nil {
		if isJSONShapeError(err) {
			return nil, fmt.Errorf("%w: %v", ErrUnsupportedValue, err)
		}
		return nil, fmt.Errorf("pvars: json encode: %w", err)
	}
	return buf.Bytes(), nil
}

func (jsonCodec) Decode(data []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var values map[string]any
	if err := dec.Decode(&values); err != nil {
		return nil, fmt.Errorf("pvars: json decode: %w", err)
	}
	if dec.More() {
		return nil, fmt.Errorf("pvars: json decode: trailing data after document")
	}
	if values == nil {
		values = map[string]any{}
	}
	return values, nil
}

func isJSONShapeError(err error) bool {
	var typeErr *json.UnsupportedTypeError
	var valueErr *json.UnsupportedValueError
	var marshalErr *json.MarshalerError
	return errors.As(err, &typeErr) || errors.As(err, &valueErr) || errors.As(err, &marshalErr)
}
