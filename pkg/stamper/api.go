// Package stamper processes Microsoft Word templates whose comments
// carry processing expressions. A comment spanning part of a document
// becomes an annotation: its text is parsed as an expression, evaluated
// against caller data, and the commented fragment is replaced, removed
// or repeated accordingly. Inline ${...} placeholders in paragraph text
// are resolved against the same data.
//
// Basic usage:
//
//	s := stamper.New()
//	data := map[string]interface{}{
//	    "customer": "ACME Corp",
//	    "items": []interface{}{
//	        map[string]interface{}{"product": "Widget", "price": 19.99},
//	    },
//	}
//
//	template, err := os.Open("template.docx")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer template.Close()
//
//	out, err := os.Create("output.docx")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer out.Close()
//
//	if err := s.Stamp(template, data, out); err != nil {
//	    log.Fatal(err)
//	}
//
// Comment expressions call paragraph operations
// (displayParagraphIf(visible), repeatParagraph(items),
// deleteParagraph()) or evaluate to a value that replaces the
// paragraph text. Custom operations register through WithFunction or,
// for whole catalogs, WithBinding and WithFunctionsFrom.
//
// Check error kinds with the Is helpers or errors.As:
//
//	if stamper.IsUnknownOperationError(err) {
//	    // no registered operation matched the call
//	}
package stamper

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"reflect"
)

// Version is the library version.
const Version = "0.1.0"

// Stamper is the engine. One Stamper can prepare and stamp any number
// of templates; each Stamp call runs on its own session state.
type Stamper struct {
	config    *Config
	cache     *TemplateCache
	logger    *Logger
	functions []CustomFunction
	bindings  []registryBinding
	post      []PostProcessor
}

// registryBinding is a user interface catalog registered on the engine.
type registryBinding struct {
	iface reflect.Type
	impl  interface{}
}

// Option configures a Stamper.
type Option func(*Stamper)

// WithConfig sets the engine configuration.
func WithConfig(config *Config) Option {
	return func(s *Stamper) {
		s.config = NewConfigWithDefaults(config)
	}
}

// WithCache sets the prepared-template cache size. 0 disables caching.
func WithCache(maxSize int) Option {
	return func(s *Stamper) {
		s.config.CacheMaxSize = maxSize
	}
}

// WithLogger sets the engine logger.
func WithLogger(logger *Logger) Option {
	return func(s *Stamper) {
		s.logger = logger
	}
}

// WithFunction registers a custom operation. Operations registered
// earlier win when several signatures match a call.
func WithFunction(fn CustomFunction) Option {
	return func(s *Stamper) {
		s.functions = append(s.functions, fn)
	}
}

// WithFunctionsFrom registers every operation of a provider.
func WithFunctionsFrom(provider FunctionProvider) Option {
	return func(s *Stamper) {
		s.functions = append(s.functions, provider.Functions()...)
	}
}

// WithBinding registers an interface catalog: every method of iface,
// bound to impl, becomes a callable operation under its lowered name.
func WithBinding(iface reflect.Type, impl interface{}) Option {
	return func(s *Stamper) {
		s.bindings = append(s.bindings, registryBinding{iface: iface, impl: impl})
	}
}

// WithPostProcessor appends a post-processing step. Post processors run
// after all annotations and placeholders, in registration order, before
// the default comment cleanup.
func WithPostProcessor(p PostProcessor) Option {
	return func(s *Stamper) {
		s.post = append(s.post, p)
	}
}

// New creates a Stamper. Without options it uses the global
// configuration and logger.
func New(opts ...Option) *Stamper {
	s := &Stamper{
		config: GetGlobalConfig(),
		logger: GetLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.cache = NewTemplateCacheWithConfig(CacheConfig{
		MaxSize: s.config.CacheMaxSize,
		TTL:     s.config.CacheTTL,
	})
	return s
}

// Config returns the engine's configuration.
func (s *Stamper) Config() *Config {
	return s.config
}

// ClearCache drops all cached prepared templates.
func (s *Stamper) ClearCache() {
	if s.cache != nil {
		s.cache.Clear()
	}
}

// Operations returns the registry a stamping run would dispatch
// against: paragraph operations, the built-in catalog and everything
// registered through options.
func (s *Stamper) Operations() (*Registry, error) {
	return buildRegistry(newParagraphOps(nil), s.bindings, s.functions)
}

// Prepare reads and validates a template package. The result is cached
// by content hash, so preparing identical bytes twice is free.
func (s *Stamper) Prepare(r io.Reader) (*PreparedTemplate, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, NewDocumentError("read", "", err)
	}

	key := CacheKey(content)
	if s.config.CacheMaxSize > 0 {
		if pt, ok := s.cache.Get(key); ok {
			return pt, nil
		}
	}

	docx, err := docxFromBytes(content)
	if err != nil {
		return nil, err
	}

	pt := &PreparedTemplate{stamper: s, docx: docx}
	if s.config.CacheMaxSize > 0 {
		s.cache.Set(key, pt)
	}
	return pt, nil
}

// PrepareFile reads and validates a template package from a file.
func (s *Stamper) PrepareFile(path string) (*PreparedTemplate, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, NewDocumentError("open", path, err)
	}
	defer f.Close()
	return s.Prepare(f)
}

// Stamp prepares the template, processes it against data and writes
// the stamped package to out.
func (s *Stamper) Stamp(template io.Reader, data map[string]interface{}, out io.Writer) error {
	pt, err := s.Prepare(template)
	if err != nil {
		return err
	}
	return pt.Stamp(data, out)
}

// StampFile stamps a template file into an output file.
func (s *Stamper) StampFile(templatePath string, data map[string]interface{}, outputPath string) error {
	pt, err := s.PrepareFile(templatePath)
	if err != nil {
		return err
	}

	out, err := pt.StampToBytes(data)
	if err != nil {
		return err
	}

	if err := os.WriteFile(outputPath, out, 0o644); err != nil {
		return NewDocumentError("save", outputPath, err)
	}
	return nil
}

// PreparedTemplate is a validated template package ready for stamping.
// It is immutable; every Stamp call works on its own copy of the
// document parts, so one prepared template serves many runs.
type PreparedTemplate struct {
	stamper *Stamper
	docx    *DocxFile
}

// Stamp processes the template against data and writes the resulting
// package to out.
func (pt *PreparedTemplate) Stamp(data map[string]interface{}, out io.Writer) error {
	pkg := pt.docx.clone()

	doc, err := pkg.Document()
	if err != nil {
		return err
	}
	comments, err := pkg.Comments()
	if err != nil {
		return err
	}

	sess, err := newSession(pt.stamper, doc, comments, data)
	if err != nil {
		return err
	}
	if err := sess.run(); err != nil {
		return err
	}

	for _, post := range sess.postProcessors() {
		if err := post.Process(doc, comments); err != nil {
			return fmt.Errorf("post processor %s: %w", post.Name(), err)
		}
	}

	if err := pkg.SetDocument(doc); err != nil {
		return err
	}
	if err := pkg.SetComments(comments); err != nil {
		return err
	}
	return pkg.Write(out)
}

// StampToBytes processes the template against data and returns the
// resulting package.
func (pt *PreparedTemplate) StampToBytes(data map[string]interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := pt.Stamp(data, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// session is the per-run state: the document under mutation, its
// comments, the scope chain root and the operation registry. It hosts
// the paragraph operations and drives annotation processing.
type session struct {
	stamper  *Stamper
	doc      *Document
	comments *Comments
	root     *ContextRoot
	ops      *paragraphOps
	registry *Registry
	logger   *Logger
	depth    int
}

func newSession(s *Stamper, doc *Document, comments *Comments, data map[string]interface{}) (*session, error) {
	sess := &session{
		stamper:  s,
		doc:      doc,
		comments: comments,
		root:     NewContextRoot(data),
		logger:   s.logger.WithField("component", "session"),
	}
	sess.ops = newParagraphOps(sess)

	registry, err := buildRegistry(sess.ops, s.bindings, s.functions)
	if err != nil {
		return nil, err
	}
	sess.registry = registry
	return sess, nil
}

// buildRegistry assembles the operation registry in resolution order:
// paragraph operations first, then the built-in catalog, then user
// catalogs and functions in registration order.
func buildRegistry(ops *paragraphOps, bindings []registryBinding, functions []CustomFunction) (*Registry, error) {
	invokers, err := InterfaceInvokers(paragraphProcessorType, ops)
	if err != nil {
		return nil, err
	}

	for _, fn := range builtinFunctions() {
		invokers = append(invokers, fn.invoker())
	}

	for _, b := range bindings {
		bound, err := InterfaceInvokers(b.iface, b.impl)
		if err != nil {
			return nil, err
		}
		invokers = append(invokers, bound...)
	}

	for _, fn := range functions {
		invokers = append(invokers, fn.invoker())
	}

	return NewRegistry(invokers)
}

func (s *session) postProcessors() []PostProcessor {
	return append(append([]PostProcessor(nil), s.stamper.post...), CommentRemover{})
}

// run processes the whole document body.
func (s *session) run() error {
	elements := append([]BodyElement(nil), s.doc.Body.Elements...)
	return s.ProcessElements(&s.doc.Body.Elements, elements, s.root.Root())
}

func (s *session) Root() *ContextRoot {
	return s.root
}

// ProcessElements runs annotation processing and placeholder resolution
// over elements inside container, evaluating against scope. Repeats
// re-enter it for their cloned fragments with the per-item scope.
func (s *session) ProcessElements(container *[]BodyElement, elements []BodyElement, scope *Scope) error {
	s.depth++
	defer func() { s.depth-- }()
	if s.depth > s.stamper.config.MaxRepeatDepth {
		return &StructuralError{Message: fmt.Sprintf("fragment nesting exceeds %d levels", s.stamper.config.MaxRepeatDepth)}
	}

	annotations, err := ScanElements(container, elements, s.comments)
	if err != nil {
		return err
	}

	for _, a := range annotations {
		s.logger.DebugAnnotation(a.ID, a.Expression)

		hook := NewHook(a)
		changed, err := hook.Run(s.engineFactory, s.root, s.envFactory(scope))
		if err != nil {
			return fmt.Errorf("comment %d (%s): %w", a.ID, a.Expression, err)
		}
		if changed {
			s.logger.Debug("comment %d changed the document", a.ID)
		}
	}

	// Operations may have removed or replaced elements from the
	// container. Detached content is dead and resolves nothing;
	// spliced-in clones resolve through their own recursion.
	present := make(map[BodyElement]bool, len(*container))
	for _, elem := range *container {
		present[elem] = true
	}

	env := NewEvalEnv(scope, s.registry)
	strict := !s.stamper.config.LenientPlaceholders
	for _, elem := range elements {
		if !present[elem] {
			continue
		}
		if err := s.resolveElementPlaceholders(elem, env, strict); err != nil {
			return err
		}
	}
	return nil
}

// envFactory binds the paragraph operations to the annotation under
// evaluation and builds its environment. The default scope comes from
// the surrounding fragment; an annotation bound to a context key gets
// that scope instead.
func (s *session) envFactory(fallback *Scope) EnvFactory {
	return func(scope *Scope, a *Annotation) *EvalEnv {
		if scope == s.root.Root() && a.ContextKey() == "" {
			scope = fallback
		}
		s.ops.bind(a, scope)
		return NewEvalEnv(scope, s.registry)
	}
}

func (s *session) engineFactory(env *EvalEnv) AnnotationEngine {
	return NewExprEngine(env)
}

func (s *session) resolveElementPlaceholders(elem BodyElement, env *EvalEnv, strict bool) error {
	switch el := elem.(type) {
	case *Paragraph:
		if _, err := resolvePlaceholders(el, env, strict); err != nil {
			return err
		}
	case *Table:
		for _, row := range el.Rows {
			for _, cell := range row.Cells {
				for _, block := range cell.Blocks {
					if err := s.resolveElementPlaceholders(block, env, strict); err != nil {
						return err
					}
				}
			}
		}
	}
	return nil
}
