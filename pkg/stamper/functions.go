package stamper

import (
	"fmt"
	"reflect"
)

// CustomFunction is a user-supplied operation: a name, the exact parameter
// types it accepts, and the function body. Register one on the engine with
// WithFunction, or a whole catalog with WithFunctionsFrom.
type CustomFunction struct {
	Name   string
	Params []ArgType
	Fn     func(args []interface{}) (interface{}, error)
}

// NewCustomFunction builds a custom function from explicit parameter
// types. Use Any for positions that should accept every argument. The
// typed builders Function1, Function2 and Function3 cover the common
// arities with compile-time checked bodies.
func NewCustomFunction(name string, params []ArgType, fn func(args []interface{}) (interface{}, error)) CustomFunction {
	return CustomFunction{
		Name:   name,
		Params: params,
		Fn:     fn,
	}
}

// Signature returns the function's parameter signature.
func (cf CustomFunction) Signature() Signature {
	return NewSignature(cf.Params...)
}

// invoker converts the definition into a registry entry.
func (cf CustomFunction) invoker() Invoker {
	return Invoker{
		Name: cf.Name,
		Sig:  cf.Signature(),
		Exec: &funcExecutor{name: cf.Name, fn: cf.Fn},
	}
}

// FunctionProvider supplies a batch of custom functions, so libraries can
// ship an operation catalog that callers plug in with WithFunctionsFrom.
type FunctionProvider interface {
	Functions() []CustomFunction
}

// Function1 builds a single-argument custom function with an exact
// parameter type derived from the type parameter.
func Function1[T any](name string, fn func(T) (interface{}, error)) CustomFunction {
	return CustomFunction{
		Name:   name,
		Params: []ArgType{TypeOf[T]()},
		Fn: func(args []interface{}) (interface{}, error) {
			a, err := argAs[T](args, 0)
			if err != nil {
				return nil, err
			}
			return fn(a)
		},
	}
}

// Function2 builds a two-argument custom function with exact parameter
// types derived from the type parameters.
func Function2[T, U any](name string, fn func(T, U) (interface{}, error)) CustomFunction {
	return CustomFunction{
		Name:   name,
		Params: []ArgType{TypeOf[T](), TypeOf[U]()},
		Fn: func(args []interface{}) (interface{}, error) {
			a, err := argAs[T](args, 0)
			if err != nil {
				return nil, err
			}
			b, err := argAs[U](args, 1)
			if err != nil {
				return nil, err
			}
			return fn(a, b)
		},
	}
}

// Function3 builds a three-argument custom function with exact parameter
// types derived from the type parameters.
func Function3[T, U, V any](name string, fn func(T, U, V) (interface{}, error)) CustomFunction {
	return CustomFunction{
		Name:   name,
		Params: []ArgType{TypeOf[T](), TypeOf[U](), TypeOf[V]()},
		Fn: func(args []interface{}) (interface{}, error) {
			a, err := argAs[T](args, 0)
			if err != nil {
				return nil, err
			}
			b, err := argAs[U](args, 1)
			if err != nil {
				return nil, err
			}
			c, err := argAs[V](args, 2)
			if err != nil {
				return nil, err
			}
			return fn(a, b, c)
		},
	}
}

// argAs asserts one argument to the builder's parameter type. A nil
// argument maps to the zero value for nilable parameter types and is an
// error for value types, matching how nil arguments behave on reflectively
// bound methods.
func argAs[T any](args []interface{}, i int) (T, error) {
	var zero T
	if i >= len(args) {
		return zero, fmt.Errorf("missing argument %d", i)
	}
	if args[i] == nil {
		t := reflect.TypeOf((*T)(nil)).Elem()
		if isNilable(t.Kind()) {
			return zero, nil
		}
		return zero, fmt.Errorf("argument %d is nil, want %s", i, t)
	}
	v, ok := args[i].(T)
	if !ok {
		return zero, fmt.Errorf("argument %d: %T is not %s", i, args[i], reflect.TypeOf((*T)(nil)).Elem())
	}
	return v, nil
}
