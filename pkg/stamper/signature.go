package stamper

import (
	"reflect"
	"strings"
)

// ArgType describes a single expected parameter type of a registered
// operation. The zero value is the wildcard, which accepts any argument.
type ArgType struct {
	rt reflect.Type
}

// Any is the wildcard parameter type. A parameter declared as Any accepts
// every argument, including nil.
var Any = ArgType{}

// Exact returns an ArgType matching t and everything assignable to t.
// A nil type yields the wildcard.
func Exact(t reflect.Type) ArgType {
	return ArgType{rt: t}
}

// TypeOf returns the ArgType for the type parameter T. Unlike
// reflect.TypeOf on a value, it works for interface types as well.
func TypeOf[T any]() ArgType {
	return ArgType{rt: reflect.TypeOf((*T)(nil)).Elem()}
}

// IsAny reports whether the parameter is the wildcard.
func (a ArgType) IsAny() bool {
	return a.rt == nil
}

// Type returns the underlying reflect.Type, or nil for the wildcard.
func (a ArgType) Type() reflect.Type {
	return a.rt
}

func (a ArgType) String() string {
	if a.rt == nil {
		return "*"
	}
	return a.rt.String()
}

// matches reports whether an argument of the searched dynamic type is
// acceptable at this position. A nil searched type means the caller could
// not determine the argument's type (a nil value) and matches anything.
func (a ArgType) matches(searched reflect.Type) bool {
	if a.rt == nil || searched == nil {
		return true
	}
	if searched == a.rt {
		return true
	}
	return searched.AssignableTo(a.rt)
}

// Signature is the ordered list of parameter types an operation accepts.
// Signatures are immutable once constructed.
type Signature struct {
	params []ArgType
}

// NewSignature builds a signature from the given parameter types.
func NewSignature(params ...ArgType) Signature {
	sig := Signature{params: make([]ArgType, len(params))}
	copy(sig.params, params)
	return sig
}

// SignatureOf builds a signature from plain reflect.Types. Nil entries
// become the wildcard.
func SignatureOf(types ...reflect.Type) Signature {
	params := make([]ArgType, len(types))
	for i, t := range types {
		params[i] = ArgType{rt: t}
	}
	return Signature{params: params}
}

// Len returns the number of parameters.
func (s Signature) Len() int {
	return len(s.params)
}

// Param returns the parameter type at position i.
func (s Signature) Param(i int) ArgType {
	return s.params[i]
}

// Validate reports whether a call with the given argument types can be
// dispatched through this signature. The argument count must match the
// parameter count exactly; on a mismatch no per-position check runs.
// Each position is then compatible when the parameter is the wildcard,
// the searched type is nil (unknown), the types are identical, or the
// searched type is assignable to the parameter type.
func (s Signature) Validate(searched []reflect.Type) bool {
	if len(searched) != len(s.params) {
		return false
	}
	for i, p := range s.params {
		if !p.matches(searched[i]) {
			return false
		}
	}
	return true
}

// Equal reports structural equality with another signature: same length
// and identical parameter types position by position.
func (s Signature) Equal(other Signature) bool {
	if len(s.params) != len(other.params) {
		return false
	}
	for i, p := range s.params {
		if p.rt != other.params[i].rt {
			return false
		}
	}
	return true
}

// String renders the signature like "(string, int, *)".
func (s Signature) String() string {
	parts := make([]string, len(s.params))
	for i, p := range s.params {
		parts[i] = p.String()
	}
	return "(" + strings.Join(parts, ", ") + ")"
}
