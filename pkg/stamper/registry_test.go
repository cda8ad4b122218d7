package stamper

import (
	"fmt"
	"reflect"
	"strings"
	"testing"
)

func markerInvoker(name string, sig Signature, marker string) Invoker {
	return Invoker{
		Name: name,
		Sig:  sig,
		Exec: &funcExecutor{name: name, fn: func(args []interface{}) (interface{}, error) {
			return marker, nil
		}},
	}
}

func mustRegistry(t *testing.T, invokers []Invoker) *Registry {
	t.Helper()
	reg, err := NewRegistry(invokers)
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}
	return reg
}

func TestRegistryResolve(t *testing.T) {
	intType := reflect.TypeOf(0)
	strType := reflect.TypeOf("")

	reg := mustRegistry(t, []Invoker{
		markerInvoker("add", NewSignature(Exact(intType), Exact(intType)), "add-ints"),
		markerInvoker("add", NewSignature(Exact(strType), Exact(strType)), "add-strings"),
		markerInvoker("str", NewSignature(Any), "str-any"),
	})

	tests := []struct {
		name     string
		op       string
		argTypes []reflect.Type
		found    bool
		marker   string
	}{
		{"exact int overload", "add", []reflect.Type{intType, intType}, true, "add-ints"},
		{"exact string overload", "add", []reflect.Type{strType, strType}, true, "add-strings"},
		{"unknown argument types first overload wins", "add", []reflect.Type{nil, nil}, true, "add-ints"},
		{"unknown name", "subtract", []reflect.Type{intType, intType}, false, ""},
		{"no matching signature", "add", []reflect.Type{intType, strType}, false, ""},
		{"wrong arity", "add", []reflect.Type{intType}, false, ""},
		{"wildcard entry", "str", []reflect.Type{reflect.TypeOf(3.14)}, true, "str-any"},
		{"wildcard entry with unknown type", "str", []reflect.Type{nil}, true, "str-any"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exec, found := reg.Resolve(tt.op, tt.argTypes)
			if found != tt.found {
				t.Fatalf("Resolve(%q, %v) found = %v, want %v", tt.op, tt.argTypes, found, tt.found)
			}
			if !found {
				if exec != nil {
					t.Error("Resolve() returned an executor on a miss")
				}
				return
			}
			got, err := exec.Execute(nil)
			if err != nil {
				t.Fatalf("Execute() error = %v", err)
			}
			if got != tt.marker {
				t.Errorf("resolved %v, want %v", got, tt.marker)
			}
		})
	}
}

func TestRegistryFirstMatchPolicy(t *testing.T) {
	intType := reflect.TypeOf(0)

	// Registration order decides between compatible entries. The exact
	// entry is registered first, so an int call hits it even though the
	// wildcard entry would also accept the call.
	exactFirst := mustRegistry(t, []Invoker{
		markerInvoker("f", NewSignature(Exact(intType)), "exact"),
		markerInvoker("f", NewSignature(Any), "wildcard"),
	})
	exec, found := exactFirst.Resolve("f", []reflect.Type{intType})
	if !found {
		t.Fatal("Resolve() miss, want hit")
	}
	if got, _ := exec.Execute(nil); got != "exact" {
		t.Errorf("exact-first registration resolved %v, want exact", got)
	}

	// Flipping the order shadows the exact entry for compatible calls.
	wildcardFirst := mustRegistry(t, []Invoker{
		markerInvoker("f", NewSignature(Any), "wildcard"),
		markerInvoker("f", NewSignature(Exact(intType)), "exact"),
	})
	exec, found = wildcardFirst.Resolve("f", []reflect.Type{intType})
	if !found {
		t.Fatal("Resolve() miss, want hit")
	}
	if got, _ := exec.Execute(nil); got != "wildcard" {
		t.Errorf("wildcard-first registration resolved %v, want wildcard", got)
	}
}

func TestRegistryResolveMissIsNotAnError(t *testing.T) {
	reg := mustRegistry(t, []Invoker{
		markerInvoker("known", NewSignature(), "known"),
	})

	if exec, found := reg.Resolve("unknown", nil); found || exec != nil {
		t.Errorf("Resolve(unknown) = (%v, %v), want (nil, false)", exec, found)
	}
	if exec, found := reg.Resolve("known", []reflect.Type{reflect.TypeOf(0)}); found || exec != nil {
		t.Errorf("Resolve with wrong arity = (%v, %v), want (nil, false)", exec, found)
	}
}

func TestNewRegistryDuplicateSignature(t *testing.T) {
	intType := reflect.TypeOf(0)

	_, err := NewRegistry([]Invoker{
		markerInvoker("f", NewSignature(Exact(intType)), "first"),
		markerInvoker("f", NewSignature(Exact(intType)), "second"),
	})
	if err == nil {
		t.Fatal("NewRegistry() accepted duplicate name and signature")
	}
	if !strings.Contains(err.Error(), "duplicate registration") {
		t.Errorf("error = %v, want duplicate registration", err)
	}

	// Same name with a different signature is a legal overload.
	_, err = NewRegistry([]Invoker{
		markerInvoker("f", NewSignature(Exact(intType)), "first"),
		markerInvoker("f", NewSignature(Exact(intType), Exact(intType)), "second"),
	})
	if err != nil {
		t.Errorf("NewRegistry() error = %v for distinct signatures", err)
	}
}

func TestRegistryNames(t *testing.T) {
	reg := mustRegistry(t, []Invoker{
		markerInvoker("zeta", NewSignature(), "z"),
		markerInvoker("alpha", NewSignature(), "a"),
		markerInvoker("alpha", NewSignature(Any), "a2"),
	})

	names := reg.Names()
	want := []string{"alpha", "zeta"}
	if !reflect.DeepEqual(names, want) {
		t.Errorf("Names() = %v, want %v", names, want)
	}
	if len(reg.Signatures("alpha")) != 2 {
		t.Errorf("Signatures(alpha) = %d entries, want 2", len(reg.Signatures("alpha")))
	}
	if !reg.Contains("zeta") {
		t.Error("Contains(zeta) = false, want true")
	}
	if reg.Contains("omega") {
		t.Error("Contains(omega) = true, want false")
	}
}

type calculator interface {
	Add(a, b int) int
	Describe(value interface{}) string
	Divide(a, b float64) (float64, error)
	Reset()
}

type calculatorImpl struct {
	resets int
}

func (c *calculatorImpl) Add(a, b int) int {
	return a + b
}

func (c *calculatorImpl) Describe(value interface{}) string {
	return fmt.Sprintf("%v", value)
}

func (c *calculatorImpl) Divide(a, b float64) (float64, error) {
	if b == 0 {
		return 0, fmt.Errorf("division by zero")
	}
	return a / b, nil
}

func (c *calculatorImpl) Reset() {
	c.resets++
}

func TestInterfaceInvokers(t *testing.T) {
	impl := &calculatorImpl{}
	invokers, err := InterfaceInvokers(reflect.TypeOf((*calculator)(nil)).Elem(), impl)
	if err != nil {
		t.Fatalf("InterfaceInvokers() error = %v", err)
	}

	// Interface methods enumerate lexicographically.
	var names []string
	for _, inv := range invokers {
		names = append(names, inv.Name)
	}
	want := []string{"add", "describe", "divide", "reset"}
	if !reflect.DeepEqual(names, want) {
		t.Fatalf("invoker names = %v, want %v", names, want)
	}

	reg := mustRegistry(t, invokers)

	intType := reflect.TypeOf(0)
	exec, found := reg.Resolve("add", []reflect.Type{intType, intType})
	if !found {
		t.Fatal("Resolve(add) miss")
	}
	got, err := exec.Execute([]interface{}{3, 4})
	if err != nil {
		t.Fatalf("Execute(add) error = %v", err)
	}
	if got != 7 {
		t.Errorf("add(3, 4) = %v, want 7", got)
	}

	// Value argument assignable to an interface{} parameter.
	exec, found = reg.Resolve("describe", []reflect.Type{reflect.TypeOf("")})
	if !found {
		t.Fatal("Resolve(describe) miss")
	}
	got, err = exec.Execute([]interface{}{"hello"})
	if err != nil {
		t.Fatalf("Execute(describe) error = %v", err)
	}
	if got != "hello" {
		t.Errorf("describe(hello) = %v, want hello", got)
	}

	// A method error surfaces as an invocation error.
	exec, _ = reg.Resolve("divide", []reflect.Type{reflect.TypeOf(0.0), reflect.TypeOf(0.0)})
	_, err = exec.Execute([]interface{}{1.0, 0.0})
	if !IsInvocationError(err) {
		t.Errorf("Execute(divide by zero) error = %v, want InvocationError", err)
	}

	// Methods without results run for their side effects.
	exec, _ = reg.Resolve("reset", nil)
	got, err = exec.Execute(nil)
	if err != nil {
		t.Fatalf("Execute(reset) error = %v", err)
	}
	if got != nil {
		t.Errorf("reset() = %v, want nil", got)
	}
	if impl.resets != 1 {
		t.Errorf("resets = %d, want 1", impl.resets)
	}
}

func TestInterfaceInvokersRejectsBadBindings(t *testing.T) {
	ifaceType := reflect.TypeOf((*calculator)(nil)).Elem()

	if _, err := InterfaceInvokers(reflect.TypeOf(0), 3); err == nil {
		t.Error("InterfaceInvokers() accepted a non-interface type")
	}
	if _, err := InterfaceInvokers(ifaceType, nil); err == nil {
		t.Error("InterfaceInvokers() accepted a nil implementation")
	}
	if _, err := InterfaceInvokers(ifaceType, "not a calculator"); err == nil {
		t.Error("InterfaceInvokers() accepted a non-implementing value")
	}
}

type panicker interface {
	Boom()
}

type panickerImpl struct{}

func (panickerImpl) Boom() {
	panic("kaboom")
}

func TestMethodExecutorRecoversPanic(t *testing.T) {
	invokers, err := InterfaceInvokers(reflect.TypeOf((*panicker)(nil)).Elem(), panickerImpl{})
	if err != nil {
		t.Fatalf("InterfaceInvokers() error = %v", err)
	}

	_, err = invokers[0].Exec.Execute(nil)
	if !IsInvocationError(err) {
		t.Fatalf("Execute() error = %v, want InvocationError", err)
	}
	if !strings.Contains(err.Error(), "kaboom") {
		t.Errorf("error = %v, want panic message", err)
	}
}

func TestMethodExecutorNilArguments(t *testing.T) {
	impl := &calculatorImpl{}
	invokers, err := InterfaceInvokers(reflect.TypeOf((*calculator)(nil)).Elem(), impl)
	if err != nil {
		t.Fatalf("InterfaceInvokers() error = %v", err)
	}
	reg := mustRegistry(t, invokers)

	// nil is fine for an interface{} parameter.
	exec, _ := reg.Resolve("describe", []reflect.Type{nil})
	got, err := exec.Execute([]interface{}{nil})
	if err != nil {
		t.Fatalf("Execute(describe, nil) error = %v", err)
	}
	if got != "<nil>" {
		t.Errorf("describe(nil) = %v, want <nil>", got)
	}

	// nil cannot stand in for an int parameter.
	exec, _ = reg.Resolve("add", []reflect.Type{nil, nil})
	if _, err := exec.Execute([]interface{}{nil, 2}); !IsInvocationError(err) {
		t.Errorf("Execute(add, nil) error = %v, want InvocationError", err)
	}
}
