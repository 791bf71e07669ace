// Package coerce converts raw JSON values into the Go values stored for a
// compiled column type.
package coerce

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"schema2db/internal/schema"

	"github.com/spf13/cast"
)

// timestampLayouts covers the ISO-8601 forms: extended or basic date and
// clock, hours down to seconds, a T or space between them and an optional
// zone. Fractional seconds are accepted by time.Parse without a layout.
var timestampLayouts = func() []string {
	var layouts []string
	for _, date := range []string{"2006-01-02", "20060102"} {
		for _, sep := range []string{"T", " "} {
			for _, clock := range []string{"15:04:05", "15:04", "150405", "1504", "15"} {
				for _, zone := range []string{"Z07:00", "Z0700", "Z07", ""} {
					layouts = append(layouts, date+sep+clock+zone)
				}
			}
		}
		layouts = append(layouts, date)
	}
	return layouts
}()

// Coerce returns the value to store for a column of type t and whether v is
// acceptable for it at all. Rejected values come back as nil.
func Coerce(t schema.ColumnType, v any) (any, bool) {
	switch t {
	case schema.TypeNumber:
		return Number(v)
	case schema.TypeInteger:
		return Integer(v)
	case schema.TypeBoolean:
		b, ok := v.(bool)
		if !ok {
			return nil, false
		}
		return b, true
	case schema.TypeTimestamp:
		return Timestamp(v)
	case schema.TypeDate:
		return Date(v)
	case schema.TypeString:
		return String(v)
	case schema.TypeEnum:
		s, ok := v.(string)
		if !ok {
			return nil, false
		}
		return s, true
	}
	return nil, false
}

// Number accepts anything numeric or a numeric string, but never a bool.
func Number(v any) (any, bool) {
	switch x := v.(type) {
	case bool, nil:
		return nil, false
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return nil, false
		}
		return f, true
	}
	f, err := cast.ToFloat64E(v)
	if err != nil {
		return nil, false
	}
	return f, true
}

// Integer accepts integral strings and any number, truncating fractions.
// Bools are rejected.
func Integer(v any) (any, bool) {
	switch x := v.(type) {
	case bool, nil:
		return nil, false
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(x), 10, 64)
		if err != nil {
			return nil, false
		}
		return i, true
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return i, true
		}
		f, err := x.Float64()
		if err != nil {
			return nil, false
		}
		return int64(f), true
	}
	i, err := cast.ToInt64E(v)
	if err != nil {
		return nil, false
	}
	return i, true
}

// String accepts text and numbers.
func String(v any) (any, bool) {
	switch v.(type) {
	case string, json.Number,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
	default:
		return nil, false
	}
	s, err := cast.ToStringE(v)
	if err != nil {
		return nil, false
	}
	return s, true
}

// Timestamp accepts a time.Time or an ISO-8601 string. Values without a zone
// are taken as UTC.
func Timestamp(v any) (any, bool) {
	switch x := v.(type) {
	case time.Time:
		return x, true
	case string:
		s := strings.TrimSpace(x)
		for _, layout := range timestampLayouts {
			if ts, err := time.Parse(layout, s); err == nil {
				return ts, true
			}
		}
	}
	return nil, false
}

// Date accepts a time.Time, truncated to its day, or a YYYY-MM-DD string
// naming a real calendar day.
func Date(v any) (any, bool) {
	switch x := v.(type) {
	case time.Time:
		y, m, d := x.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), true
	case string:
		parts := strings.Split(strings.TrimSpace(x), "-")
		if len(parts) != 3 {
			return nil, false
		}
		var ymd [3]int
		for i, p := range parts {
			n, err := strconv.Atoi(p)
			if err != nil {
				return nil, false
			}
			ymd[i] = n
		}
		d := time.Date(ymd[0], time.Month(ymd[1]), ymd[2], 0, 0, 0, 0, time.UTC)
		if d.Year() != ymd[0] || int(d.Month()) != ymd[1] || d.Day() != ymd[2] {
			return nil, false
		}
		return d, true
	}
	return nil, false
}
