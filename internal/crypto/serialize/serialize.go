// Package serialize provides the value-to-byte-sequence round trip the
// hybrid engine encrypts. Arbitrary structured values (maps, slices,
// strings, numbers, bools, nil) are accepted; functions, channels, and
// cyclic references are rejected before encoding ever starts.
package serialize

import (
	"reflect"

	"github.com/goccy/go-json"

	"github.com/allisson/hybridkem/internal/crypto/domain"
)

// Value is any structured value the engine can encrypt: primitives,
// slices/maps of them, and nil. It is a plain alias so callers can pass a
// map[string]any, a struct, a slice, or a scalar without a wrapper type.
type Value = any

// Marshal encodes v to its byte-sequence form. Unsupported kinds (func,
// chan, unsafe pointer) or a cyclic reference fail with FormatConversion
// before any bytes are produced.
func Marshal(v Value) ([]byte, error) {
	if err := validateEncodable(reflect.ValueOf(v), map[uintptr]bool{}); err != nil {
		return nil, domain.NewError(domain.KindFormatConversion, "serialize.Marshal", "", err)
	}

	b, err := json.Marshal(v)
	if err != nil {
		return nil, domain.NewError(domain.KindFormatConversion, "serialize.Marshal", "", domain.ErrSerializationFailed)
	}
	return b, nil
}

// Unmarshal decodes data produced by Marshal back into a Value. Numbers
// decode as float64 and objects as map[string]any, matching encoding/json's
// conventions for the any target.
func Unmarshal(data []byte) (Value, error) {
	var v Value
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, domain.NewError(domain.KindFormatConversion, "serialize.Unmarshal", "", domain.ErrSerializationFailed)
	}
	return v, nil
}

// validateEncodable walks v looking for kinds Marshal cannot round-trip and
// for cycles reachable through pointers, maps, or slices. visited tracks
// pointer addresses already on the current path, not the whole value tree,
// so sibling subtrees that happen to share a pointer are not flagged.
func validateEncodable(v reflect.Value, visited map[uintptr]bool) error {
	if !v.IsValid() {
		return nil // nil interface: serializes to the null token
	}

	switch v.Kind() {
	case reflect.Func, reflect.Chan, reflect.UnsafePointer, reflect.Complex64, reflect.Complex128:
		return domain.ErrSerializationFailed

	case reflect.Ptr:
		if v.IsNil() {
			return nil
		}
		addr := v.Pointer()
		if visited[addr] {
			return domain.ErrSerializationFailed
		}
		visited[addr] = true
		defer delete(visited, addr)
		return validateEncodable(v.Elem(), visited)

	case reflect.Interface:
		if v.IsNil() {
			return nil
		}
		return validateEncodable(v.Elem(), visited)

	case reflect.Slice, reflect.Array:
		if v.Kind() == reflect.Slice && v.IsNil() {
			return nil
		}
		if v.Kind() == reflect.Slice {
			addr := v.Pointer()
			if v.Len() > 0 {
				if visited[addr] {
					return domain.ErrSerializationFailed
				}
				visited[addr] = true
				defer delete(visited, addr)
			}
		}
		for i := 0; i < v.Len(); i++ {
			if err := validateEncodable(v.Index(i), visited); err != nil {
				return err
			}
		}
		return nil

	case reflect.Map:
		if v.IsNil() {
			return nil
		}
		addr := v.Pointer()
		if visited[addr] {
			return domain.ErrSerializationFailed
		}
		visited[addr] = true
		defer delete(visited, addr)
		iter := v.MapRange()
		for iter.Next() {
			if err := validateEncodable(iter.Value(), visited); err != nil {
				return err
			}
		}
		return nil

	case reflect.Struct:
		for i := 0; i < v.NumField(); i++ {
			if !v.Field(i).CanInterface() {
				continue
			}
			if err := validateEncodable(v.Field(i), visited); err != nil {
				return err
			}
		}
		return nil

	default:
		return nil
	}
}
