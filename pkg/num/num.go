// Package num holds the parse-or-default numeric helpers used at the broker
// boundary. OANDA delivers most numeric fields as JSON strings; everything
// downstream of the decode works with plain float64.
package num

import (
	"encoding/json"
	"strconv"
	"strings"
)

// FloatOr parses s as a float64, returning def when s is empty or malformed.
func FloatOr(s string, def float64) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return def
	}
	return v
}

// IntOr parses s as an int, returning def when s is empty or malformed.
func IntOr(s string, def int) int {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return def
	}
	return v
}

// Flex is a float64 that unmarshals from either a JSON number or a JSON
// string ("0.0333" and 0.0333 decode identically). Malformed values decode
// to zero rather than failing the whole response.
type Flex float64

func (f *Flex) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	*f = Flex(FloatOr(s, 0))
	return nil
}

func (f Flex) MarshalJSON() ([]byte, error) {
	return json.Marshal(float64(f))
}

// Float64 returns the underlying value.
func (f Flex) Float64() float64 { return float64(f) }
