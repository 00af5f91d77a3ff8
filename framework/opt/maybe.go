package opt

import (
	"fmt"
)

// Maybe is a simple implementation of an optional value type. The harness uses it for values
// that may or may not have been supplied by an outer scope, such as a borrowed event loop.
type Maybe[V any] struct {
	defined bool
	value   V
}

// Some returns a Maybe that has a defined value.
func Some[V any](value V) Maybe[V] {
	return Maybe[V]{defined: true, value: value}
}

// None returns a Maybe with no value.
func None[V any]() Maybe[V] { return Maybe[V]{} }

// FromLookup returns Some(value) if ok is true, or None otherwise. It is meant to wrap the
// results of a comma-ok lookup.
func FromLookup[V any](value V, ok bool) Maybe[V] {
	if ok {
		return Some(value)
	}
	return None[V]()
}

// IsDefined returns true if the Maybe has a value.
func (m Maybe[V]) IsDefined() bool { return m.defined }

// Value returns the value if a value is defined, or the zero value for the type otherwise.
func (m Maybe[V]) Value() V { return m.value }

// OrElse returns the value of the Maybe if any, or the valueIfUndefined otherwise.
func (m Maybe[V]) OrElse(valueIfUndefined V) V {
	if m.defined {
		return m.value
	}
	return valueIfUndefined
}

// String returns a string representation of the value, or "[none]" if undefined. The string
// representation of a value is either its own String() if it has such a method, or else the
// result of fmt.Sprintf with "%v".
func (m Maybe[V]) String() string {
	if m.defined {
		var v interface{}
		v = m.value
		if s, ok := v.(fmt.Stringer); ok {
			return s.String()
		}
		return fmt.Sprintf("%v", m.value)
	}
	return "[none]"
}
