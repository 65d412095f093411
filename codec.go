package pvars

import (
	"fmt"
	"sort"
)

// Codec encodes and decodes a flat string-keyed mapping for one Format.
// Encode receives the codec options verbatim; unknown option keys are an
// encode-time error so a misconfiguration surfaces before any file write.
type Codec interface {
	Encode(values map[string]any, options map[string]any) ([]byte, error)
	Decode(data []byte) (map[string]any, error)
}

func codecFor(format Format) (Codec, error) {
	switch format {
	case FormatBinary:
		return binaryCodec{}, nil
	case FormatJSON:
		return jsonCodec{}, nil
	case FormatTabular:
		return tabularCodec{}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
}

// detectionOrder lists formats from most to least restrictive, so a stricter
// decoder gets first claim on ambiguous content.
var detectionOrder = []Format{FormatBinary, FormatJSON, FormatTabular}

// decodeDetect tries every codec in detection order and returns the mapping
// plus the format that accepted the content. Used only when opening an
// existing file whose format has not been configured.
func decodeDetect(data []byte) (map[string]any, Format, error) {
	for _, format := range detectionOrder {
		codec, err := codecFor(format)
		if err != nil {
			continue
		}
		values, err := codec.Decode(data)
		if err != nil {
			continue
		}
		return values, format, nil
	}
	return nil, 0, ErrUnsupportedFormat
}

func sortedKeys(values map[string]any) []string {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func unknownOption(format Format, key string) error {
	return fmt.Errorf("pvars: %s codec does not accept option %q", format, key)
}
