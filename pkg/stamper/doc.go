// Package stamper fills Microsoft Word documents (DOCX) from annotations.
//
// Go-stamper turns an annotated Word document into a template. Authors mark
// up the document with ordinary Word comments whose text is an expression,
// and sprinkle ${...} placeholders through the body text. The engine
// evaluates both against caller data and writes a finished document with
// the comments stripped.
//
// # Quick Start
//
// The simplest path is a one-shot stamp:
//
//	s := stamper.New()
//
//	data := map[string]interface{}{
//	    "name": "Ada Lovelace",
//	    "date": time.Now(),
//	}
//
//	if err := s.StampFile("template.docx", data, "output.docx"); err != nil {
//	    log.Fatal(err)
//	}
//
// To stamp the same template many times, prepare it once:
//
//	tmpl, err := s.PrepareFile("template.docx")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	for _, data := range batches {
//	    out, err := tmpl.StampToBytes(data)
//	    ...
//	}
//
// # Template Syntax
//
// Inline placeholders use ${...} in run text:
//
//	${name}                     - Simple variable
//	${customer.address}         - Nested field access
//	${items[0].price}           - Index access
//	${price * 1.2}              - Mathematical expression
//	${uppercase(name)}          - Function call
//
// Comment annotations carry paragraph operations. The comment anchors a
// range of the document; the operation acts on that range:
//
//	displayParagraphIf(active)          - Keep or drop the commented text
//	displayParagraphIfPresent(manager)  - Keep only when the value is set
//	displayParagraphIfAbsent(manager)   - Keep only when the value is not
//	deleteParagraph()                   - Always drop the commented text
//	replaceWith(title)                  - Replace the commented text
//	repeatParagraph(items)              - Clone the range once per item
//
// Inside a repeated range, each clone sees the loop element as "item" and
// its position as "itemIndex"; placeholders and nested annotations in the
// clone resolve against that element first, then the outer data.
//
// A comment holding a bare expression such as "1 + 1" or "greeting(name)"
// replaces the commented text with the expression's value.
//
// Built-in functions: empty, coalesce, str, integer, decimal, lowercase,
// uppercase, titlecase, length, join, joinAnd, replace, contains, sum,
// round, floor, ceil, formatDate.
//
// # Architecture
//
// A stamping run reads the DOCX package, scans each part's comment ranges
// into annotations, then processes annotations in document order. Each
// annotation gets a fresh evaluation environment bound to its scope chain;
// operation calls dispatch through a registry keyed by name and argument
// types, first registration winning among compatible signatures. After all
// annotations and placeholders are resolved, post-processors run (comment
// removal by default) and the mutated parts are serialized back into a
// package. Untouched parts are byte-copied.
//
// # Advanced Usage
//
// Custom functions:
//
//	s := stamper.New(
//	    stamper.WithFunction(stamper.Function1("shout", func(s string) (interface{}, error) {
//	        return strings.ToUpper(s) + "!", nil
//	    })),
//	)
//
// Custom operation interfaces, bound per run:
//
//	type PricingOps interface {
//	    Vat(amount float64) (float64, error)
//	}
//
//	s := stamper.New(
//	    stamper.WithBinding(reflect.TypeOf((*PricingOps)(nil)).Elem(), pricing{rate: 0.19}),
//	)
//
// Every method of the interface becomes callable from templates under its
// lower-camel name (vat(total)).
//
// Configuration:
//
//	config := stamper.NewConfigWithDefaults(&stamper.Config{
//	    CacheMaxSize:    100,
//	    MaxRepeatDepth:  10,
//	})
//	s := stamper.New(stamper.WithConfig(config))
//
// Configuration also loads from STAMPER_* environment variables; see
// ConfigFromEnvironment.
//
// # Error Handling
//
// Failures carry typed errors:
//
//   - StructuralError: malformed package or document
//   - ParseError: expression syntax errors, with position
//   - EvaluationError: evaluation failures, wrapping the cause
//   - UnknownOperationError: no registered operation matches a call
//   - InvocationError: a matched operation failed
//   - DocumentError: file and package I/O
//
// All wrap with errors.Is/As in mind; IsParseError and friends test for a
// kind through any wrapping:
//
//	if stamper.IsUnknownOperationError(err) {
//	    // template calls something the engine does not know
//	}
//
// # Concurrency
//
// A PreparedTemplate may be stamped from multiple goroutines; every Stamp
// call works on a private copy of the package. The template cache is
// likewise safe. A single stamping run is sequential.
//
// # Limitations
//
// Comment annotations are consumed from the main document part. Headers,
// footers and footnotes round-trip unchanged but are not scanned.
package stamper
