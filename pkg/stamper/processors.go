package stamper

import (
	"fmt"
	"reflect"
)

// ParagraphProcessor is the operation surface annotation expressions
// can call against the fragment a comment range covers. Its methods
// register under their lowered names, so DisplayParagraphIf dispatches
// as displayParagraphIf.
type ParagraphProcessor interface {
	// DeleteParagraph removes the annotated fragment.
	DeleteParagraph() error
	// DisplayParagraphIf keeps the annotated fragment only when the
	// condition holds.
	DisplayParagraphIf(condition bool) error
	// DisplayParagraphIfAbsent keeps the fragment only when the value
	// resolves to nothing.
	DisplayParagraphIfAbsent(value interface{}) error
	// DisplayParagraphIfPresent keeps the fragment only when the value
	// resolves to something.
	DisplayParagraphIfPresent(value interface{}) error
	// RepeatParagraph repeats the fragment once per item. Each copy is
	// processed against a child scope holding the item.
	RepeatParagraph(items interface{}) error
	// ReplaceWith replaces the annotated paragraph's text.
	ReplaceWith(text string) error
}

var paragraphProcessorType = reflect.TypeOf((*ParagraphProcessor)(nil)).Elem()

// processorHost is what paragraph operations need from the running
// stamping session.
type processorHost interface {
	Root() *ContextRoot
	// ProcessElements runs annotation and placeholder processing over
	// elements that were just inserted into the container, evaluating
	// against the given scope.
	ProcessElements(container *[]BodyElement, elements []BodyElement, scope *Scope) error
}

// paragraphOps implements ParagraphProcessor against the session's
// document. The session points it at the current annotation before each
// evaluation; processing is single-threaded, so one instance serves the
// whole session.
type paragraphOps struct {
	host    processorHost
	current *Annotation
	scope   *Scope
}

func newParagraphOps(host processorHost) *paragraphOps {
	return &paragraphOps{host: host}
}

// bind points the operations at the annotation under evaluation.
func (p *paragraphOps) bind(a *Annotation, scope *Scope) {
	p.current = a
	p.scope = scope
}

func (p *paragraphOps) annotation() (*Annotation, error) {
	if p.current == nil || p.current.Fragment == nil {
		return nil, &StructuralError{Message: "paragraph operation outside an annotated fragment"}
	}
	return p.current, nil
}

func (p *paragraphOps) DeleteParagraph() error {
	a, err := p.annotation()
	if err != nil {
		return err
	}
	return p.removeFragment(a)
}

func (p *paragraphOps) DisplayParagraphIf(condition bool) error {
	a, err := p.annotation()
	if err != nil {
		return err
	}
	if condition {
		return nil
	}
	return p.removeFragment(a)
}

func (p *paragraphOps) DisplayParagraphIfAbsent(value interface{}) error {
	a, err := p.annotation()
	if err != nil {
		return err
	}
	if value == nil {
		return nil
	}
	return p.removeFragment(a)
}

func (p *paragraphOps) DisplayParagraphIfPresent(value interface{}) error {
	a, err := p.annotation()
	if err != nil {
		return err
	}
	if value != nil {
		return nil
	}
	return p.removeFragment(a)
}

// removeFragment detaches the annotated fragment. Annotations nested in
// the removed elements are retired first, so a scan that already listed
// them does not run their hooks against dead content.
func (p *paragraphOps) removeFragment(a *Annotation) error {
	retireMarksIn(a.Fragment.Elements())
	return a.Fragment.Remove()
}

func (p *paragraphOps) RepeatParagraph(items interface{}) error {
	a, err := p.annotation()
	if err != nil {
		return err
	}
	list, ok := toItemList(items)
	if !ok {
		return fmt.Errorf("repeatParagraph needs a list, got %T", items)
	}

	root := p.host.Root()
	type cloneSet struct {
		elements []BodyElement
		scope    *Scope
	}
	var sets []cloneSet
	var replacement []BodyElement
	for i, item := range list {
		clones := dropMarksWithID(cloneBodyElements(a.Fragment.Elements()), a.ID)

		child := p.scope.Child()
		if fields, ok := item.(map[string]interface{}); ok {
			for name, value := range fields {
				child.Define(name, value)
			}
		}
		child.Define("item", item)
		child.Define("itemIndex", i)

		key := root.Bind(child)
		for _, mark := range rangeStartsIn(clones) {
			mark.SetAttr(attrContextKey, key)
		}

		sets = append(sets, cloneSet{elements: clones, scope: child})
		replacement = append(replacement, clones...)
	}

	retireMarksIn(a.Fragment.Elements())
	container := a.Fragment.container
	if err := a.Fragment.ReplaceWith(replacement); err != nil {
		return err
	}
	for _, set := range sets {
		if err := p.host.ProcessElements(container, set.elements, set.scope); err != nil {
			return err
		}
	}
	return nil
}

func (p *paragraphOps) ReplaceWith(text string) error {
	a, err := p.annotation()
	if err != nil {
		return err
	}
	if !a.replaceText(text) {
		return &StructuralError{Message: "replaceWith found no paragraph to replace"}
	}
	return nil
}

// toItemList converts a collection value to a concrete item list. Only
// slices and arrays qualify; strings and maps do not.
func toItemList(items interface{}) ([]interface{}, bool) {
	if items == nil {
		return nil, true
	}
	if list, ok := items.([]interface{}); ok {
		return list, true
	}

	rv := reflect.ValueOf(items)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		list := make([]interface{}, rv.Len())
		for i := range list {
			list[i] = rv.Index(i).Interface()
		}
		return list, true
	}
	return nil, false
}

// dropMarksWithID strips the comment marks of one annotation from
// cloned elements, so copies of a repeated fragment do not trigger the
// repeat again.
func dropMarksWithID(elements []BodyElement, id int) []BodyElement {
	kept := elements[:0]
	for _, elem := range elements {
		switch el := elem.(type) {
		case *CommentMark:
			if el.ID == id {
				continue
			}
		case *Paragraph:
			dropParagraphMarksWithID(el, id)
		case *Table:
			for _, row := range el.Rows {
				for _, cell := range row.Cells {
					cell.Blocks = dropMarksWithID(cell.Blocks, id)
				}
			}
		}
		kept = append(kept, elem)
	}
	return kept
}

func dropParagraphMarksWithID(p *Paragraph, id int) {
	kept := p.Content[:0]
	for _, child := range p.Content {
		switch c := child.(type) {
		case *CommentMark:
			if c.ID == id {
				continue
			}
		case *Run:
			keptChildren := c.Children[:0]
			for _, rc := range c.Children {
				if mark, isMark := rc.(*CommentMark); isMark && mark.ID == id {
					continue
				}
				keptChildren = append(keptChildren, rc)
			}
			c.Children = keptChildren
		}
		kept = append(kept, child)
	}
	p.Content = kept
}

// retireMarksIn marks every range start in elements as executed.
// Detached fragments keep their marks, and a stale scan must not run
// those annotations again.
func retireMarksIn(elements []BodyElement) {
	for _, mark := range rangeStartsIn(elements) {
		mark.SetAttr(attrStatus, statusExecuted)
	}
}

// rangeStartsIn collects the range start marks inside elements, the
// anchors cloned annotations are rebound through.
func rangeStartsIn(elements []BodyElement) []*CommentMark {
	var marks []*CommentMark
	for _, elem := range elements {
		switch el := elem.(type) {
		case *CommentMark:
			if el.Kind == MarkRangeStart {
				marks = append(marks, el)
			}
		case *Paragraph:
			for _, mark := range el.Marks() {
				if mark.Kind == MarkRangeStart {
					marks = append(marks, mark)
				}
			}
		case *Table:
			for _, row := range el.Rows {
				for _, cell := range row.Cells {
					marks = append(marks, rangeStartsIn(cell.Blocks)...)
				}
			}
		}
	}
	return marks
}
