// Kinoscope - Canonical Film List Prediction Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kinoscope

package predcache

import (
	"fmt"
	"reflect"
	"strings"
	"time"
)

// Normalize recursively reduces an arbitrary value to plain JSON-shaped data:
// map[string]any, []any, float64, string, bool, and nil. Every numeric kind
// becomes float64, time.Time becomes an RFC 3339 string, and structs become
// maps keyed by their json tags. Normalization happens exactly once, at the
// cache write boundary, so the persisted blob carries no engine-specific
// types.
func Normalize(v any) any {
	if v == nil {
		return nil
	}
	return normalizeValue(reflect.ValueOf(v))
}

func normalizeValue(rv reflect.Value) any {
	switch rv.Kind() {
	case reflect.Ptr, reflect.Interface:
		if rv.IsNil() {
			return nil
		}
		return normalizeValue(rv.Elem())

	case reflect.Bool:
		return rv.Bool()

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int())

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint())

	case reflect.Float32, reflect.Float64:
		return rv.Float()

	case reflect.String:
		return rv.String()

	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return nil
		}
		out := make([]any, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			out[i] = normalizeValue(rv.Index(i))
		}
		return out

	case reflect.Map:
		if rv.IsNil() {
			return nil
		}
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out[mapKeyString(iter.Key())] = normalizeValue(iter.Value())
		}
		return out

	case reflect.Struct:
		if t, ok := rv.Interface().(time.Time); ok {
			return t.UTC().Format(time.RFC3339Nano)
		}
		return normalizeStruct(rv)

	default:
		// Channels, funcs and other non-data kinds have no portable form.
		return fmt.Sprintf("%v", rv.Interface())
	}
}

// normalizeStruct converts a struct to a map keyed by json tags, honoring
// omitempty and skipping unexported or json:"-" fields.
func normalizeStruct(rv reflect.Value) map[string]any {
	t := rv.Type()
	out := make(map[string]any, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if field.PkgPath != "" {
			continue // unexported
		}

		name := field.Name
		omitempty := false
		if tag, ok := field.Tag.Lookup("json"); ok {
			parts := strings.Split(tag, ",")
			if parts[0] == "-" {
				continue
			}
			if parts[0] != "" {
				name = parts[0]
			}
			for _, opt := range parts[1:] {
				if opt == "omitempty" {
					omitempty = true
				}
			}
		}

		fv := rv.Field(i)
		if omitempty && fv.IsZero() {
			continue
		}
		out[name] = normalizeValue(fv)
	}
	return out
}

// mapKeyString renders a map key as a string. Numeric keys keep their
// integer form so movie-id keys stay readable.
func mapKeyString(key reflect.Value) string {
	switch key.Kind() {
	case reflect.String:
		return key.String()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return fmt.Sprintf("%d", key.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return fmt.Sprintf("%d", key.Uint())
	default:
		return fmt.Sprintf("%v", key.Interface())
	}
}
