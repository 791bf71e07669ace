package coerce_test

import (
	"encoding/json"
	"testing"
	"time"

	"schema2db/internal/coerce"
	"schema2db/internal/schema"

	"github.com/stretchr/testify/assert"
)

func TestCoerce(t *testing.T) {
	ny := time.FixedZone("", -5*3600)

	tests := []struct {
		name  string
		typ   schema.ColumnType
		in    any
		want  any
		valid bool
	}{
		{"number from float", schema.TypeNumber, 1.5, 1.5, true},
		{"number from int", schema.TypeNumber, 500000, 500000.0, true},
		{"number from string", schema.TypeNumber, " 2.25 ", 2.25, true},
		{"number from json.Number", schema.TypeNumber, json.Number("7"), 7.0, true},
		{"number rejects true", schema.TypeNumber, true, nil, false},
		{"number rejects false", schema.TypeNumber, false, nil, false},
		{"number rejects text", schema.TypeNumber, "abc", nil, false},
		{"number rejects map", schema.TypeNumber, map[string]any{}, nil, false},

		{"integer from int", schema.TypeInteger, 42, int64(42), true},
		{"integer truncates float", schema.TypeInteger, 3.9, int64(3), true},
		{"integer from string", schema.TypeInteger, "012", int64(12), true},
		{"integer from json.Number", schema.TypeInteger, json.Number("9"), int64(9), true},
		{"integer from fractional json.Number", schema.TypeInteger, json.Number("9.5"), int64(9), true},
		{"integer rejects fractional string", schema.TypeInteger, "3.5", nil, false},
		{"integer rejects true", schema.TypeInteger, true, nil, false},

		{"boolean", schema.TypeBoolean, false, false, true},
		{"boolean rejects int", schema.TypeBoolean, 1, nil, false},
		{"boolean rejects string", schema.TypeBoolean, "true", nil, false},

		{"string", schema.TypeString, "New York", "New York", true},
		{"string from int", schema.TypeString, 12, "12", true},
		{"string from float", schema.TypeString, 1.5, "1.5", true},
		{"string rejects bool", schema.TypeString, true, nil, false},
		{"string rejects list", schema.TypeString, []any{"a"}, nil, false},

		{"enum", schema.TypeEnum, "a", "a", true},
		{"enum rejects number", schema.TypeEnum, 1, nil, false},

		{"timestamp rfc3339", schema.TypeTimestamp, "2020-03-04T05:06:07-05:00", time.Date(2020, 3, 4, 5, 6, 7, 0, ny), true},
		{"timestamp without zone", schema.TypeTimestamp, "2020-03-04T05:06:07", time.Date(2020, 3, 4, 5, 6, 7, 0, time.UTC), true},
		{"timestamp with space", schema.TypeTimestamp, "2020-03-04 05:06:07", time.Date(2020, 3, 4, 5, 6, 7, 0, time.UTC), true},
		{"timestamp date only", schema.TypeTimestamp, "2020-03-04", time.Date(2020, 3, 4, 0, 0, 0, 0, time.UTC), true},
		{"timestamp minutes with zone", schema.TypeTimestamp, "2020-01-01T10:00Z", time.Date(2020, 1, 1, 10, 0, 0, 0, time.UTC), true},
		{"timestamp basic format", schema.TypeTimestamp, "20200101T100000Z", time.Date(2020, 1, 1, 10, 0, 0, 0, time.UTC), true},
		{"timestamp basic zone offset", schema.TypeTimestamp, "2020-03-04T05:06:07-0500", time.Date(2020, 3, 4, 5, 6, 7, 0, ny), true},
		{"timestamp hour offset", schema.TypeTimestamp, "2020-03-04T05:06-05", time.Date(2020, 3, 4, 5, 6, 0, 0, ny), true},
		{"timestamp fraction", schema.TypeTimestamp, "2020-01-01T10:00:00.25Z", time.Date(2020, 1, 1, 10, 0, 0, 250000000, time.UTC), true},
		{"timestamp rejects garbage", schema.TypeTimestamp, "yesterday", nil, false},
		{"timestamp rejects number", schema.TypeTimestamp, 12, nil, false},

		{"date", schema.TypeDate, "2019-12-31", time.Date(2019, 12, 31, 0, 0, 0, 0, time.UTC), true},
		{"date without padding", schema.TypeDate, "2019-1-5", time.Date(2019, 1, 5, 0, 0, 0, 0, time.UTC), true},
		{"date from time", schema.TypeDate, time.Date(2019, 1, 5, 13, 0, 0, 0, time.UTC), time.Date(2019, 1, 5, 0, 0, 0, 0, time.UTC), true},
		{"date rejects impossible day", schema.TypeDate, "2019-02-30", nil, false},
		{"date rejects two parts", schema.TypeDate, "2019-02", nil, false},
		{"date rejects number", schema.TypeDate, 20190101, nil, false},

		{"link is never coerced", schema.TypeLink, 1, nil, false},
		{"unknown type", schema.ColumnType("blob"), "x", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := coerce.Coerce(tt.typ, tt.in)
			assert.Equal(t, tt.valid, ok)
			if tm, isTime := tt.want.(time.Time); isTime {
				if assert.IsType(t, time.Time{}, got) {
					assert.True(t, tm.Equal(got.(time.Time)), "got %v", got)
				}
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCoerce_BoolNeverNumeric(t *testing.T) {
	for _, typ := range []schema.ColumnType{schema.TypeNumber, schema.TypeInteger} {
		for _, b := range []bool{true, false} {
			v, ok := coerce.Coerce(typ, b)
			assert.False(t, ok, "%s accepted %v", typ, b)
			assert.Nil(t, v)
		}
	}
}
