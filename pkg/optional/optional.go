// Package optional distinguishes a JSON field that was absent from one that was
// sent, and one sent as null from one sent with a value.
package optional

import (
	"bytes"
	"encoding/json"
)

// Value holds a field decoded from JSON. The zero Value is absent.
type Value[T any] struct {
	v    T
	set  bool
	null bool
}

// Some returns a present, non-null value.
func Some[T any](v T) Value[T] {
	return Value[T]{v: v, set: true}
}

// Null returns a value that was sent as JSON null.
func Null[T any]() Value[T] {
	return Value[T]{set: true, null: true}
}

// IsSet reports whether the field appeared in the payload at all.
func (o Value[T]) IsSet() bool { return o.set }

// IsNull reports whether the field was sent as null.
func (o Value[T]) IsNull() bool { return o.set && o.null }

// Get returns the value and true when the field was sent with a non-null value.
// Null is reported the same as absent.
func (o Value[T]) Get() (T, bool) {
	if !o.set || o.null {
		var zero T
		return zero, false
	}
	return o.v, true
}

// OrElse returns the value when present, otherwise def.
func (o Value[T]) OrElse(def T) T {
	if v, ok := o.Get(); ok {
		return v
	}
	return def
}

func (o *Value[T]) UnmarshalJSON(data []byte) error {
	o.set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		o.null = true
		var zero T
		o.v = zero
		return nil
	}
	o.null = false
	return json.Unmarshal(data, &o.v)
}

// MarshalJSON emits null for absent or null values. Use omitzero on struct
// fields to drop absent ones.
func (o Value[T]) MarshalJSON() ([]byte, error) {
	if v, ok := o.Get(); ok {
		return json.Marshal(v)
	}
	return []byte("null"), nil
}

// IsZero lets encoding/json's omitzero skip absent fields.
func (o Value[T]) IsZero() bool { return !o.set }
