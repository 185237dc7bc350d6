package dbtypes

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// PriceTable is the stored price column of a product. Variant products keep
// one amount per size key; legacy flat records sometimes carry a bare number
// instead of a map, which is kept in Scalar.
type PriceTable struct {
	Entries map[string]decimal.Decimal
	Scalar  decimal.NullDecimal
}

// NewPriceTable builds a table from size keys to amounts.
func NewPriceTable(entries map[string]decimal.Decimal) PriceTable {
	table := PriceTable{Entries: map[string]decimal.Decimal{}}
	for k, v := range entries {
		table.Entries[k] = v
	}
	return table
}

// ScalarPrice builds a table holding a bare amount.
func ScalarPrice(amount decimal.Decimal) PriceTable {
	return PriceTable{Scalar: decimal.NewNullDecimal(amount)}
}

// Lookup returns the amount stored under key, if any.
func (p PriceTable) Lookup(key string) (decimal.Decimal, bool) {
	if p.Entries == nil {
		return decimal.Zero, false
	}
	v, ok := p.Entries[key]
	return v, ok
}

// With returns a copy of the table with key set to amount.
func (p PriceTable) With(key string, amount decimal.Decimal) PriceTable {
	out := NewPriceTable(p.Entries)
	out.Entries[key] = amount
	return out
}

// Keys returns the defined size keys sorted for stable output.
func (p PriceTable) Keys() []string {
	keys := make([]string, 0, len(p.Entries))
	for k := range p.Entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// IsEmpty reports whether neither entries nor a scalar are defined.
func (p PriceTable) IsEmpty() bool {
	return len(p.Entries) == 0 && !p.Scalar.Valid
}

// UnmarshalJSON accepts null, a bare number or numeric string, or an object
// of size keys. Object entries that are null, empty or not numeric are
// treated as undefined rather than failing the whole record.
func (p *PriceTable) UnmarshalJSON(data []byte) error {
	*p = PriceTable{}
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}

	switch trimmed[0] {
	case '{':
		var raw map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &raw); err != nil {
			return fmt.Errorf("price table: %w", err)
		}
		p.Entries = make(map[string]decimal.Decimal, len(raw))
		for key, value := range raw {
			if amount, ok := parseAmount(value); ok {
				p.Entries[strings.TrimSpace(key)] = amount
			}
		}
		return nil
	default:
		if amount, ok := parseAmount(trimmed); ok {
			p.Scalar = decimal.NewNullDecimal(amount)
		}
		return nil
	}
}

func parseAmount(raw json.RawMessage) (decimal.Decimal, bool) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return decimal.Zero, false
	}
	text := string(trimmed)
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return decimal.Zero, false
		}
		text = strings.TrimSpace(s)
	}
	if text == "" {
		return decimal.Zero, false
	}
	amount, err := decimal.NewFromString(text)
	if err != nil {
		return decimal.Zero, false
	}
	return amount, true
}

// MarshalJSON writes amounts as JSON numbers.
func (p PriceTable) MarshalJSON() ([]byte, error) {
	if len(p.Entries) == 0 {
		if p.Scalar.Valid {
			return []byte(p.Scalar.Decimal.String()), nil
		}
		return []byte("{}"), nil
	}
	out := make(map[string]json.Number, len(p.Entries))
	for k, v := range p.Entries {
		out[k] = json.Number(v.String())
	}
	return json.Marshal(out)
}

// Scan implements sql.Scanner for json/jsonb/text columns.
func (p *PriceTable) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*p = PriceTable{}
		return nil
	case []byte:
		return p.UnmarshalJSON(v)
	case string:
		return p.UnmarshalJSON([]byte(v))
	default:
		return fmt.Errorf("PriceTable: unsupported Scan type %T", src)
	}
}

// Value implements driver.Valuer.
func (p PriceTable) Value() (driver.Value, error) {
	raw, err := p.MarshalJSON()
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}
