package sqldsl

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// Literal renders a Go value as an SQL literal.
//
//	nil          -> NULL
//	true/false   -> true/false
//	42, -12.5    -> 42, -12.5
//	"it's"       -> 'it''s'
//	Tuple{1, 2}  -> (1, 2)
//	[]int{1, 2}  -> ARRAY[1, 2]
//
// Literal is used for constants that end up in the SQL text itself
// (WHERE true, SELECT NULL, EXISTS 1). Caller values go through Bind.
func Literal(v any) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case Raw:
		return string(x)
	case bool:
		if x {
			return "true"
		}
		return "false"
	case string:
		return quoteString(x)
	case int:
		return strconv.FormatInt(int64(x), 10)
	case int8:
		return strconv.FormatInt(int64(x), 10)
	case int16:
		return strconv.FormatInt(int64(x), 10)
	case int32:
		return strconv.FormatInt(int64(x), 10)
	case int64:
		return strconv.FormatInt(x, 10)
	case uint:
		return strconv.FormatUint(uint64(x), 10)
	case uint8:
		return strconv.FormatUint(uint64(x), 10)
	case uint16:
		return strconv.FormatUint(uint64(x), 10)
	case uint32:
		return strconv.FormatUint(uint64(x), 10)
	case uint64:
		return strconv.FormatUint(x, 10)
	case float32:
		return formatFloat(float64(x), 32)
	case float64:
		return formatFloat(x, 64)
	case time.Time:
		return quoteString(x.Format(time.RFC3339Nano))
	case Tuple:
		return "(" + joinLiterals(x) + ")"
	}

	// Named types (type Level int) render by their underlying kind.
	switch rv := reflect.ValueOf(v); rv.Kind() {
	case reflect.Bool:
		return Literal(rv.Bool())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return strconv.FormatUint(rv.Uint(), 10)
	case reflect.Float32:
		return formatFloat(rv.Float(), 32)
	case reflect.Float64:
		return formatFloat(rv.Float(), 64)
	case reflect.String:
		return quoteString(rv.String())
	}

	if items, ok := AsSequence(v); ok {
		return "ARRAY[" + joinLiterals(items) + "]"
	}
	return quoteString(fmt.Sprint(v))
}

func joinLiterals(items []any) string {
	parts := make([]string, len(items))
	for i, item := range items {
		parts[i] = Literal(item)
	}
	return strings.Join(parts, ", ")
}

func formatFloat(f float64, bits int) string {
	switch {
	case math.IsNaN(f):
		return "'NaN'::float"
	case math.IsInf(f, 1):
		return "'Infinity'::float"
	case math.IsInf(f, -1):
		return "'-Infinity'::float"
	}
	return strconv.FormatFloat(f, 'f', -1, bits)
}

// quoteString renders s as a single-quoted string literal.
// Single quotes are escaped by doubling them.
func quoteString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
