package stamper

import (
	"fmt"
	"reflect"
	"unicode"
	"unicode/utf8"
)

// Executor runs one registered operation with already-evaluated arguments.
type Executor interface {
	Execute(args []interface{}) (interface{}, error)
}

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// methodExecutor dispatches to a method on a bound implementation object
// through reflection.
type methodExecutor struct {
	name   string
	method reflect.Value
}

func (m *methodExecutor) Execute(args []interface{}) (result interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = NewInvocationError(m.name, args, RecoverError(r))
		}
	}()

	mtype := m.method.Type()
	in := make([]reflect.Value, len(args))
	for i, arg := range args {
		pt := mtype.In(i)
		if arg == nil {
			if !isNilable(pt.Kind()) {
				return nil, NewInvocationError(m.name, args, fmt.Errorf("nil argument for %s parameter %d", pt, i))
			}
			in[i] = reflect.Zero(pt)
			continue
		}
		v := reflect.ValueOf(arg)
		if !v.Type().AssignableTo(pt) {
			return nil, NewInvocationError(m.name, args, fmt.Errorf("argument %d: %T is not assignable to %s", i, arg, pt))
		}
		in[i] = v
	}

	out := m.method.Call(in)
	value, callErr := splitResults(out)
	if callErr != nil {
		return nil, NewInvocationError(m.name, args, callErr)
	}
	return value, nil
}

// splitResults normalizes the return shapes a bound method may have:
// none, a single value, a single error, or (value, error).
func splitResults(out []reflect.Value) (interface{}, error) {
	switch len(out) {
	case 0:
		return nil, nil
	case 1:
		if out[0].Type().Implements(errorType) {
			if out[0].IsNil() {
				return nil, nil
			}
			return nil, out[0].Interface().(error)
		}
		return out[0].Interface(), nil
	default:
		var err error
		if !out[1].IsNil() {
			err = out[1].Interface().(error)
		}
		return out[0].Interface(), err
	}
}

func isNilable(k reflect.Kind) bool {
	switch k {
	case reflect.Ptr, reflect.Interface, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func:
		return true
	default:
		return false
	}
}

// funcExecutor dispatches to a plain Go function registered as a custom
// operation.
type funcExecutor struct {
	name string
	fn   func(args []interface{}) (interface{}, error)
}

func (f *funcExecutor) Execute(args []interface{}) (result interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = NewInvocationError(f.name, args, RecoverError(r))
		}
	}()

	result, err = f.fn(args)
	if err != nil {
		return nil, NewInvocationError(f.name, args, err)
	}
	return result, nil
}

// InterfaceInvokers enumerates the methods of an interface type and binds
// each to the given implementation, yielding one registry entry per method.
// The operation name is the method name with its first rune lowered, so
// DisplayParagraphIf dispatches as displayParagraphIf. Methods may return
// nothing, a value, an error, or (value, error). reflect lists interface
// methods in lexicographic order, so enumeration is deterministic.
func InterfaceInvokers(iface reflect.Type, impl interface{}) ([]Invoker, error) {
	if iface == nil || iface.Kind() != reflect.Interface {
		return nil, fmt.Errorf("binding requires an interface type, got %v", iface)
	}
	if impl == nil {
		return nil, fmt.Errorf("binding for %s has a nil implementation", iface)
	}
	implType := reflect.TypeOf(impl)
	if !implType.Implements(iface) {
		return nil, fmt.Errorf("%s does not implement %s", implType, iface)
	}

	implValue := reflect.ValueOf(impl)
	invokers := make([]Invoker, 0, iface.NumMethod())
	for i := 0; i < iface.NumMethod(); i++ {
		m := iface.Method(i)
		if m.Type.IsVariadic() {
			return nil, fmt.Errorf("method %s.%s: variadic methods cannot be registered", iface, m.Name)
		}
		if err := checkResultShape(m.Type); err != nil {
			return nil, fmt.Errorf("method %s.%s: %w", iface, m.Name, err)
		}

		// Interface method types carry no receiver parameter.
		params := make([]ArgType, m.Type.NumIn())
		for p := 0; p < m.Type.NumIn(); p++ {
			params[p] = Exact(m.Type.In(p))
		}

		name := operationName(m.Name)
		invokers = append(invokers, Invoker{
			Name: name,
			Sig:  NewSignature(params...),
			Exec: &methodExecutor{
				name:   name,
				method: implValue.MethodByName(m.Name),
			},
		})
	}
	return invokers, nil
}

func checkResultShape(mtype reflect.Type) error {
	switch mtype.NumOut() {
	case 0, 1:
		return nil
	case 2:
		if !mtype.Out(1).Implements(errorType) {
			return fmt.Errorf("second return value must be error, got %s", mtype.Out(1))
		}
		return nil
	default:
		return fmt.Errorf("too many return values (%d)", mtype.NumOut())
	}
}

// operationName lowers the first rune of a method name.
func operationName(method string) string {
	r, size := utf8.DecodeRuneInString(method)
	if r == utf8.RuneError {
		return method
	}
	return string(unicode.ToLower(r)) + method[size:]
}
