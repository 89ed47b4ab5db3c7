// Package codec maps between wire records (flat snake_case rows as stored
// remotely) and the fully defaulted in-memory entities.
//
// Every entity is described once by a field table; Encode and Decode both
// walk that table, so a field cannot be added to one direction only.
package codec

import (
	"fmt"
	"time"
)

// Row is a wire record. A nil value is the wire null.
type Row map[string]any

const dateLayout = "2006-01-02"

type field[T any] struct {
	wire   string
	decode func(*T, any)
	encode func(*T) any
}

// Codec converts one entity kind to and from its wire record.
type Codec[T any] struct {
	fields []field[T]
}

func newCodec[T any](fields ...field[T]) Codec[T] {
	return Codec[T]{fields: fields}
}

// Decode builds an entity from row. Missing and null wire fields take the
// field's default.
func (c Codec[T]) Decode(row Row) T {
	var v T
	for _, f := range c.fields {
		f.decode(&v, row[f.wire])
	}
	return v
}

// DecodeAll decodes rows in order.
func (c Codec[T]) DecodeAll(rows []Row) []T {
	out := make([]T, 0, len(rows))
	for _, row := range rows {
		out = append(out, c.Decode(row))
	}
	return out
}

// Encode writes every field of v, using nil for absent optional values.
func (c Codec[T]) Encode(v T) Row {
	row := make(Row, len(c.fields))
	for _, f := range c.fields {
		row[f.wire] = f.encode(&v)
	}
	return row
}

// Columns lists the wire names in table order.
func (c Codec[T]) Columns() []string {
	cols := make([]string, 0, len(c.fields))
	for _, f := range c.fields {
		cols = append(cols, f.wire)
	}
	return cols
}

func text[T any, S ~string](wire string, ref func(*T) *S) field[T] {
	return field[T]{
		wire:   wire,
		decode: func(v *T, raw any) { *ref(v) = S(asText(raw)) },
		encode: func(v *T) any { return string(*ref(v)) },
	}
}

// date is a text field cut to its YYYY-MM-DD prefix on decode.
func date[T any](wire string, ref func(*T) *string) field[T] {
	return field[T]{
		wire: wire,
		decode: func(v *T, raw any) {
			if t, ok := raw.(time.Time); ok {
				*ref(v) = t.Format(dateLayout)
				return
			}
			s := asText(raw)
			if len(s) > len(dateLayout) {
				s = s[:len(dateLayout)]
			}
			*ref(v) = s
		},
		encode: func(v *T) any { return *ref(v) },
	}
}

func optional[T any, S ~string](wire string, ref func(*T) **S) field[T] {
	return field[T]{
		wire: wire,
		decode: func(v *T, raw any) {
			if raw == nil {
				*ref(v) = nil
				return
			}
			s := S(asText(raw))
			*ref(v) = &s
		},
		encode: func(v *T) any {
			p := *ref(v)
			if p == nil {
				return nil
			}
			return string(*p)
		},
	}
}

func flag[T any](wire string, ref func(*T) *bool) field[T] {
	return field[T]{
		wire: wire,
		decode: func(v *T, raw any) {
			b, _ := raw.(bool)
			*ref(v) = b
		},
		encode: func(v *T) any { return *ref(v) },
	}
}

func list[T any](wire string, ref func(*T) *[]string) field[T] {
	return field[T]{
		wire:   wire,
		decode: func(v *T, raw any) { *ref(v) = asList(raw) },
		encode: func(v *T) any {
			l := *ref(v)
			out := make([]string, len(l))
			copy(out, l)
			return out
		},
	}
}

func asText(raw any) string {
	switch v := raw.(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	default:
		return fmt.Sprint(v)
	}
}

func asList(raw any) []string {
	switch v := raw.(type) {
	case []string:
		out := make([]string, len(v))
		copy(out, v)
		return out
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			out = append(out, asText(item))
		}
		return out
	default:
		return []string{}
	}
}
