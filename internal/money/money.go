// Package money holds the fixed-point display and summation helpers shared by
// the cart and checkout packages. Amounts are plain float64 the whole way
// through; only display rounds to two fraction digits.
package money

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// DefaultCurrencyPrefix is prepended by Format when no prefix is configured.
const DefaultCurrencyPrefix = "৳"

// Decimal is a float64 that unmarshals from either a JSON number or a
// numeric string. The backend is loose about which one it sends for price
// fields, so every money field on a wire type uses Decimal instead of float64.
type Decimal float64

func (d *Decimal) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" || s == `""` {
		*d = 0
		return nil
	}
	if len(s) >= 2 && s[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(str), 64)
		if err != nil {
			return fmt.Errorf("money: cannot coerce %q: %w", str, err)
		}
		*d = Decimal(v)
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("money: cannot coerce %s: %w", s, err)
	}
	*d = Decimal(v)
	return nil
}

func (d Decimal) MarshalJSON() ([]byte, error) {
	return json.Marshal(float64(d))
}

func (d Decimal) Float64() float64 { return float64(d) }

// Format renders an amount with exactly two fraction digits and the given
// currency prefix. An empty prefix falls back to DefaultCurrencyPrefix.
func Format(prefix string, amount float64) string {
	if prefix == "" {
		prefix = DefaultCurrencyPrefix
	}
	return fmt.Sprintf("%s %.2f", prefix, amount)
}

// Sum folds a slice into a total through the selector.
func Sum[T any](items []T, selector func(T) float64) float64 {
	var total float64
	for _, item := range items {
		total += selector(item)
	}
	return total
}
