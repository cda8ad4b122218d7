package stamper

// Anchor is a document node that can carry string metadata attributes.
// Comment range-start marks are the anchors annotations live on, so
// execution state survives serialization round-trips.
type Anchor interface {
	Attr(name string) (string, bool)
	SetAttr(name, value string)
}

// Annotation ties a comment's expression to its anchor in the document
// and to the fragment of elements the comment range covers.
type Annotation struct {
	// ID is the comment id shared by the range marks and the comment.
	ID int
	// Expression is the comment's plain text.
	Expression string
	// Anchor carries the annotation's persisted metadata.
	Anchor Anchor
	// Paragraph contains the range start mark, if the mark sits inside
	// a paragraph. Expression results replace this paragraph's text.
	Paragraph *Paragraph
	// Fragment spans the elements the comment range covers.
	Fragment *Fragment
}

// Executed reports whether the annotation has already been processed.
// State lives on the anchor, so a reloaded document remembers it.
func (a *Annotation) Executed() bool {
	status, ok := a.Anchor.Attr(attrStatus)
	return ok && status == statusExecuted
}

// MarkExecuted records on the anchor that the annotation was processed.
func (a *Annotation) MarkExecuted() {
	a.Anchor.SetAttr(attrStatus, statusExecuted)
}

// ContextKey returns the scope-chain key bound to this annotation, or
// the empty string when none was set.
func (a *Annotation) ContextKey() string {
	key, _ := a.Anchor.Attr(attrContextKey)
	return key
}

// SetContextKey binds the annotation to a scope-chain key. Cloned
// fragments use this to tie their annotations to per-item scopes.
func (a *Annotation) SetContextKey(key string) {
	a.Anchor.SetAttr(attrContextKey, key)
}

// AnnotationEngine evaluates one annotation's expression against an
// already-bound environment.
type AnnotationEngine interface {
	// Process evaluates the annotation and reports whether it changed
	// the document.
	Process(a *Annotation) (bool, error)
}

// EnvFactory builds the evaluation environment for one annotation.
// A fresh environment per annotation keeps evaluations isolated.
type EnvFactory func(scope *Scope, a *Annotation) *EvalEnv

// EngineFactory builds the engine that evaluates one annotation.
type EngineFactory func(env *EvalEnv) AnnotationEngine

// Hook drives the processing of a single annotation.
type Hook struct {
	annotation *Annotation
}

// NewHook returns a hook for the given annotation.
func NewHook(a *Annotation) *Hook {
	return &Hook{annotation: a}
}

// Run processes the annotation once. Already-executed annotations are
// skipped and report no change. The annotation is marked executed even
// when evaluation fails, so a failing expression cannot run twice.
func (h *Hook) Run(engines EngineFactory, root *ContextRoot, envs EnvFactory) (changed bool, err error) {
	a := h.annotation
	if a.Executed() {
		return false, nil
	}
	defer a.MarkExecuted()

	scope := root.Find(a.ContextKey())
	env := envs(scope, a)
	engine := engines(env)

	return engine.Process(a)
}
