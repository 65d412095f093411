package pvars

import "fmt"

// Format identifies the serialization scheme used for a store's backing file.
type Format int

const (
	// FormatBinary encodes values with encoding/gob and round-trips any
	// gob-encodable shape, including registered concrete types.
	FormatBinary Format = iota
	// FormatJSON encodes values as a JSON object; values outside the JSON
	// data model fail encode with ErrUnsupportedValue.
	FormatJSON
	// FormatTabular encodes values as rows of (key, value) pairs.
	FormatTabular
)

// String returns the lowercase format name.
func (f Format) String() string {
	switch f {
	case FormatBinary:
		return "binary"
	case FormatJSON:
		return "json"
	case FormatTabular:
		return "tabular"
	default:
		return fmt.Sprintf("format(%d)", int(f))
	}
}

// ParseFormat maps a format name onto its Format value.
func ParseFormat(name string) (Format, error) {
	switch name {
	case "binary":
		return FormatBinary, nil
	case "json":
		return FormatJSON, nil
	case "tabular":
		return FormatTabular, nil
	default:
		return 0, fmt.Errorf("pvars: unknown format %q", name)
	}
}
