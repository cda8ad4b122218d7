package stamper

import (
	"reflect"
)

// EvalEnv is the environment one expression evaluates against: a scope
// chain for variables and a registry for operation dispatch. Each
// annotation gets a fresh environment, built by an EnvFactory.
type EvalEnv struct {
	scope    *Scope
	registry *Registry
}

// NewEvalEnv builds an environment over the given scope and registry.
func NewEvalEnv(scope *Scope, registry *Registry) *EvalEnv {
	return &EvalEnv{scope: scope, registry: registry}
}

// LookupVariable resolves a name through the scope chain. Unknown
// names resolve to nil.
func (e *EvalEnv) LookupVariable(name string) interface{} {
	value, _ := e.scope.Lookup(name)
	return value
}

// ResolveOperation finds the executor for an operation call.
func (e *EvalEnv) ResolveOperation(name string, argTypes []reflect.Type) (Executor, bool) {
	return e.registry.Resolve(name, argTypes)
}

// Scope returns the environment's scope.
func (e *EvalEnv) Scope() *Scope {
	return e.scope
}

// ExprEngine evaluates annotation expressions. A value result replaces
// the annotated paragraph's text; an operation call that produces no
// value counts as handled through its side effect on the document.
type ExprEngine struct {
	env *EvalEnv
}

// NewExprEngine builds an engine over the given environment.
func NewExprEngine(env *EvalEnv) *ExprEngine {
	return &ExprEngine{env: env}
}

// Process parses and evaluates the annotation's expression, reporting
// whether the document changed.
func (e *ExprEngine) Process(a *Annotation) (bool, error) {
	node, err := ParseExpression(a.Expression)
	if err != nil {
		return false, err
	}

	result, err := node.Evaluate(e.env)
	if err != nil {
		return false, err
	}

	if result != nil {
		return a.replaceText(FormatValue(result)), nil
	}

	// A nil result from a plain value expression changes nothing; a
	// top-level operation call already acted on the document.
	_, isCall := node.(*FunctionCallNode)
	return isCall, nil
}

// replaceText writes the value into the annotated paragraph, or the
// fragment's first paragraph when the range start sits outside one.
func (a *Annotation) replaceText(text string) bool {
	target := a.Paragraph
	if target == nil && a.Fragment != nil {
		if paragraphs := a.Fragment.Paragraphs(); len(paragraphs) > 0 {
			target = paragraphs[0]
		}
	}
	if target == nil {
		return false
	}
	target.SetText(text)
	return true
}
