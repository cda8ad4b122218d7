package stamper

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
)

// Comments represents the comments part of a document.
type Comments struct {
	Attrs []xml.Attr
	Items []*Comment
}

// ByID returns the comment with the given id, or nil.
func (c *Comments) ByID(id int) *Comment {
	for _, item := range c.Items {
		if item.ID == id {
			return item
		}
	}
	return nil
}

// UnmarshalXML preserves the root attributes and parses the comments.
func (c *Comments) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	c.Attrs = start.Attr

	for {
		token, err := d.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}

		switch t := token.(type) {
		case xml.StartElement:
			if t.Name.Local == "comment" {
				var comment Comment
				if err := d.DecodeElement(&comment, &t); err != nil {
					return err
				}
				c.Items = append(c.Items, &comment)
			} else {
				if err := d.Skip(); err != nil {
					return err
				}
			}
		case xml.EndElement:
			if t.Name.Local == "comments" {
				return nil
			}
		}
	}

	return nil
}

// Comment represents a single comment with its block content.
type Comment struct {
	ID         int
	Author     string
	Initials   string
	Date       string
	Paragraphs []*Paragraph
	// Extra preserves comment children this engine does not interpret.
	Extra []*RawElement
}

// UnmarshalXML parses comment attributes and paragraphs.
func (c *Comment) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	for _, attr := range start.Attr {
		if attr.Name.Space == "xmlns" {
			continue
		}
		switch attr.Name.Local {
		case "id":
			id, err := strconv.Atoi(attr.Value)
			if err != nil {
				return fmt.Errorf("comment with non-numeric id %q", attr.Value)
			}
			c.ID = id
		case "author":
			c.Author = attr.Value
		case "initials":
			c.Initials = attr.Value
		case "date":
			c.Date = attr.Value
		}
	}

	for {
		token, err := d.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}

		switch t := token.(type) {
		case xml.StartElement:
			if t.Name.Local == "p" {
				var para Paragraph
				if err := d.DecodeElement(&para, &t); err != nil {
					return err
				}
				c.Paragraphs = append(c.Paragraphs, &para)
			} else {
				raw, err := captureRaw(d, t)
				if err != nil {
					return err
				}
				c.Extra = append(c.Extra, raw)
			}
		case xml.EndElement:
			if t.Name.Local == "comment" {
				return nil
			}
		}
	}

	return nil
}

// GetText returns the comment's plain text, paragraphs joined by newlines.
func (c *Comment) GetText() string {
	var texts []string
	for _, p := range c.Paragraphs {
		texts = append(texts, p.GetText())
	}
	return strings.Join(texts, "\n")
}

// ParseComments parses a comments part.
func ParseComments(r io.Reader) (*Comments, error) {
	decoder := xml.NewDecoder(r)

	var comments Comments
	if err := decoder.Decode(&comments); err != nil {
		return nil, fmt.Errorf("failed to parse comments: %w", err)
	}

	return &comments, nil
}

// MarshalComments serializes a comments part back to XML.
func MarshalComments(c *Comments) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>`)
	buf.WriteString("\n")

	buf.WriteString("<w:comments")
	if len(c.Attrs) > 0 {
		writeRootAttrs(&buf, c.Attrs)
	} else {
		buf.WriteString(` xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"`)
	}
	buf.WriteString(">")

	for _, comment := range c.Items {
		fmt.Fprintf(&buf, `<w:comment w:id="%d"`, comment.ID)
		if comment.Author != "" {
			fmt.Fprintf(&buf, ` w:author="%s"`, escapeXML(comment.Author))
		}
		if comment.Initials != "" {
			fmt.Fprintf(&buf, ` w:initials="%s"`, escapeXML(comment.Initials))
		}
		if comment.Date != "" {
			fmt.Fprintf(&buf, ` w:date="%s"`, escapeXML(comment.Date))
		}
		buf.WriteString(">")
		for _, p := range comment.Paragraphs {
			writeParagraph(&buf, p)
		}
		for _, raw := range comment.Extra {
			buf.Write(raw.Content)
		}
		buf.WriteString("</w:comment>")
	}

	buf.WriteString("</w:comments>")
	return buf.Bytes(), nil
}

// Fragment is the contiguous slice of container elements a comment
// range covers. Elements are tracked by identity, so a fragment stays
// valid while other fragments in the same container are spliced.
type Fragment struct {
	container *[]BodyElement
	elements  []BodyElement
}

// Elements returns the covered elements in order.
func (f *Fragment) Elements() []BodyElement {
	return f.elements
}

// Paragraphs returns the covered paragraphs in order.
func (f *Fragment) Paragraphs() []*Paragraph {
	var paragraphs []*Paragraph
	for _, elem := range f.elements {
		if p, ok := elem.(*Paragraph); ok {
			paragraphs = append(paragraphs, p)
		}
	}
	return paragraphs
}

// span locates the fragment's current index range in its container.
func (f *Fragment) span() (int, int, error) {
	first, last := -1, -1
	for _, elem := range f.elements {
		idx := indexOfElement(*f.container, elem)
		if idx < 0 {
			continue
		}
		if first < 0 || idx < first {
			first = idx
		}
		if idx > last {
			last = idx
		}
	}
	if first < 0 {
		return 0, 0, &StructuralError{Message: "comment range no longer present in document"}
	}
	return first, last, nil
}

// Remove deletes the fragment's elements from their container.
func (f *Fragment) Remove() error {
	return f.ReplaceWith(nil)
}

// ReplaceWith splices replacement elements over the fragment.
func (f *Fragment) ReplaceWith(replacement []BodyElement) error {
	first, last, err := f.span()
	if err != nil {
		return err
	}

	container := *f.container
	updated := make([]BodyElement, 0, len(container)-(last-first+1)+len(replacement))
	updated = append(updated, container[:first]...)
	updated = append(updated, replacement...)
	updated = append(updated, container[last+1:]...)
	*f.container = updated
	return nil
}

// CloneElements returns deep copies of the fragment's elements.
func (f *Fragment) CloneElements() []BodyElement {
	return cloneBodyElements(f.elements)
}

func cloneBodyElements(elements []BodyElement) []BodyElement {
	clones := make([]BodyElement, 0, len(elements))
	for _, elem := range elements {
		switch el := elem.(type) {
		case *Paragraph:
			clones = append(clones, el.Clone())
		case *Table:
			clones = append(clones, el.Clone())
		case *CommentMark:
			clones = append(clones, el.Clone())
		case *RawElement:
			clones = append(clones, el.Clone())
		}
	}
	return clones
}

// Clone returns a deep copy of the table.
func (t *Table) Clone() *Table {
	clone := &Table{}
	if t.Properties != nil {
		clone.Properties = t.Properties.Clone()
	}
	if t.Grid != nil {
		clone.Grid = t.Grid.Clone()
	}
	for _, row := range t.Rows {
		rowClone := &TableRow{}
		if row.Properties != nil {
			rowClone.Properties = row.Properties.Clone()
		}
		for _, cell := range row.Cells {
			cellClone := &TableCell{}
			if cell.Properties != nil {
				cellClone.Properties = cell.Properties.Clone()
			}
			cellClone.Blocks = cloneBodyElements(cell.Blocks)
			rowClone.Cells = append(rowClone.Cells, cellClone)
		}
		clone.Rows = append(clone.Rows, rowClone)
	}
	return clone
}

func indexOfElement(container []BodyElement, target BodyElement) int {
	for i, elem := range container {
		if elem == target {
			return i
		}
	}
	return -1
}

type pendingRange struct {
	seq       int
	mark      *CommentMark
	container *[]BodyElement
	index     int
	paragraph *Paragraph
}

type scannedAnnotation struct {
	seq        int
	annotation *Annotation
}

type annotationScanner struct {
	comments *Comments
	open     map[int][]*pendingRange
	seq      int
	found    []scannedAnnotation
}

// results returns the scanned annotations ordered by range start.
func (s *annotationScanner) results() []*Annotation {
	sort.Slice(s.found, func(i, j int) bool {
		return s.found[i].seq < s.found[j].seq
	})
	annotations := make([]*Annotation, 0, len(s.found))
	for _, f := range s.found {
		annotations = append(annotations, f.annotation)
	}
	return annotations
}

// ScanAnnotations pairs comment range marks with their comments and
// returns the resulting annotations ordered by range start position.
// Unpaired range marks are a structural failure.
func ScanAnnotations(doc *Document, comments *Comments) ([]*Annotation, error) {
	s := &annotationScanner{
		comments: comments,
		open:     make(map[int][]*pendingRange),
	}

	if doc.Body != nil {
		if err := s.walkContainer(&doc.Body.Elements); err != nil {
			return nil, err
		}
	}

	if err := s.checkOrphans(); err != nil {
		return nil, err
	}

	return s.results(), nil
}

// ScanElements scans a sub-slice of a container for annotations. Repeat
// processing uses this to discover annotations in cloned fragments.
func ScanElements(container *[]BodyElement, elements []BodyElement, comments *Comments) ([]*Annotation, error) {
	s := &annotationScanner{
		comments: comments,
		open:     make(map[int][]*pendingRange),
	}

	for _, elem := range elements {
		idx := indexOfElement(*container, elem)
		if idx < 0 {
			continue
		}
		if err := s.visitElement(container, idx, elem); err != nil {
			return nil, err
		}
	}

	if err := s.checkOrphans(); err != nil {
		return nil, err
	}

	return s.results(), nil
}

func (s *annotationScanner) checkOrphans() error {
	for id, pending := range s.open {
		if len(pending) > 0 {
			return &StructuralError{
				Message: fmt.Sprintf("comment range start without matching end, id %d", id),
				Part:    "word/document.xml",
			}
		}
	}
	return nil
}

func (s *annotationScanner) walkContainer(container *[]BodyElement) error {
	for i := 0; i < len(*container); i++ {
		if err := s.visitElement(container, i, (*container)[i]); err != nil {
			return err
		}
	}
	return nil
}

func (s *annotationScanner) visitElement(container *[]BodyElement, idx int, elem BodyElement) error {
	switch el := elem.(type) {
	case *CommentMark:
		return s.visitMark(el, container, idx, nil)
	case *Paragraph:
		for _, mark := range el.Marks() {
			if err := s.visitMark(mark, container, idx, el); err != nil {
				return err
			}
		}
	case *Table:
		for _, row := range el.Rows {
			for _, cell := range row.Cells {
				if err := s.walkContainer(&cell.Blocks); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func (s *annotationScanner) visitMark(mark *CommentMark, container *[]BodyElement, idx int, para *Paragraph) error {
	switch mark.Kind {
	case MarkRangeStart:
		s.seq++
		s.open[mark.ID] = append(s.open[mark.ID], &pendingRange{
			seq:       s.seq,
			mark:      mark,
			container: container,
			index:     idx,
			paragraph: para,
		})
	case MarkRangeEnd:
		pending := s.open[mark.ID]
		if len(pending) == 0 {
			return &StructuralError{
				Message: fmt.Sprintf("comment range end without matching start, id %d", mark.ID),
				Part:    "word/document.xml",
			}
		}
		last := pending[len(pending)-1]
		s.open[mark.ID] = pending[:len(pending)-1]

		if last.container != container {
			return &StructuralError{
				Message: fmt.Sprintf("comment range crosses table boundaries, id %d", mark.ID),
				Part:    "word/document.xml",
			}
		}

		// A range without a comment carries no expression and is left alone.
		var comment *Comment
		if s.comments != nil {
			comment = s.comments.ByID(mark.ID)
		}
		if comment == nil {
			return nil
		}

		elements := append([]BodyElement(nil), (*container)[last.index:idx+1]...)
		s.found = append(s.found, scannedAnnotation{
			seq: last.seq,
			annotation: &Annotation{
				ID:         mark.ID,
				Expression: comment.GetText(),
				Anchor:     last.mark,
				Paragraph:  last.paragraph,
				Fragment: &Fragment{
					container: container,
					elements:  elements,
				},
			},
		})
	}
	return nil
}

// PostProcessor runs over the document after all annotations and
// placeholders were processed.
type PostProcessor interface {
	Name() string
	Process(doc *Document, comments *Comments) error
}

// CommentRemover strips all comment marks and empties the comments
// part, so stamped documents carry no annotation residue.
type CommentRemover struct{}

// Name identifies the processor in logs.
func (CommentRemover) Name() string { return "comment-remover" }

// Process removes comment marks from the document tree and drops the
// comment contents.
func (CommentRemover) Process(doc *Document, comments *Comments) error {
	if doc.Body != nil {
		stripMarks(&doc.Body.Elements)
	}
	if comments != nil {
		comments.Items = nil
	}
	return nil
}

func stripMarks(container *[]BodyElement) {
	kept := (*container)[:0]
	for _, elem := range *container {
		switch el := elem.(type) {
		case *CommentMark:
			continue
		case *Paragraph:
			stripParagraphMarks(el)
		case *Table:
			for _, row := range el.Rows {
				for _, cell := range row.Cells {
					stripMarks(&cell.Blocks)
				}
			}
		}
		kept = append(kept, elem)
	}
	*container = kept
}

func stripParagraphMarks(p *Paragraph) {
	kept := p.Content[:0]
	for _, child := range p.Content {
		switch c := child.(type) {
		case *CommentMark:
			continue
		case *Run:
			keptChildren := c.Children[:0]
			for _, rc := range c.Children {
				if _, isMark := rc.(*CommentMark); isMark {
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
