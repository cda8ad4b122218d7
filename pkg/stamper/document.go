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

// Attribute names persisted on comment marks. The status attribute tracks
// annotation execution; the context attribute carries a scope-chain key.
const (
	attrStatus     = "status"
	attrContextKey = "context"

	statusExecuted = "executed"
)

// namespaceToPrefix converts a namespace URI to its conventional prefix.
func namespaceToPrefix(uri string) string {
	prefixMap := map[string]string{
		"http://schemas.openxmlformats.org/wordprocessingml/2006/main":           "w",
		"http://schemas.openxmlformats.org/officeDocument/2006/relationships":    "r",
		"http://schemas.openxmlformats.org/officeDocument/2006/math":             "m",
		"http://www.w3.org/XML/1998/namespace":                                   "xml",
		"http://schemas.openxmlformats.org/drawingml/2006/wordprocessingDrawing": "wp",
		"http://schemas.openxmlformats.org/drawingml/2006/main":                  "a",
		"http://schemas.openxmlformats.org/drawingml/2006/picture":               "pic",
		"http://schemas.microsoft.com/office/word/2010/wordprocessingDrawing":    "wp14",
		"http://schemas.microsoft.com/office/drawing/2010/main":                  "a14",
		"urn:schemas-microsoft-com:vml":                                          "v",
		"urn:schemas-microsoft-com:office:office":                                "o",
		"urn:schemas-microsoft-com:office:word":                                  "w10",
		"http://schemas.openxmlformats.org/markup-compatibility/2006":            "mc",
		"http://schemas.microsoft.com/office/word/2010/wordml":                   "w14",
		"http://schemas.microsoft.com/office/word/2012/wordml":                   "w15",
		"http://schemas.microsoft.com/office/word/2015/wordml/symex":             "w16se",
		"http://schemas.microsoft.com/office/word/2016/wordml/cid":               "w16cid",
		"http://schemas.microsoft.com/office/word/2018/wordml":                   "w16",
		"http://schemas.microsoft.com/office/word/2018/wordml/cex":               "w16cex",
		"http://schemas.microsoft.com/office/word/2006/wordml":                   "wne",
		"http://schemas.microsoft.com/office/word/2010/wordprocessingShape":      "wps",
		"http://schemas.microsoft.com/office/word/2010/wordprocessingCanvas":     "wpc",
		"http://schemas.microsoft.com/office/word/2010/wordprocessingGroup":      "wpg",
		"http://schemas.microsoft.com/office/word/2010/wordprocessingInk":        "wpi",
	}

	if prefix, ok := prefixMap[uri]; ok {
		return prefix
	}
	// xmlns declarations pass through, unknown URIs stay as written.
	return uri
}

// Document represents one WordprocessingML document part.
type Document struct {
	XMLName xml.Name   `xml:"document"`
	Body    *Body      `xml:"body"`
	Attrs   []xml.Attr `xml:"-"` // root element attributes, mostly namespaces
}

// UnmarshalXML preserves the root element attributes alongside the body.
func (doc *Document) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	doc.XMLName = start.Name
	doc.Attrs = start.Attr

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
			if t.Name.Local == "body" {
				var body Body
				if err := d.DecodeElement(&body, &t); err != nil {
					return err
				}
				doc.Body = &body
			} else {
				if err := d.Skip(); err != nil {
					return err
				}
			}
		case xml.EndElement:
			if t.Name.Local == "document" {
				return nil
			}
		}
	}

	return nil
}

// BodyElement represents any element that can appear in a document body.
type BodyElement interface {
	isBodyElement()
}

// ParagraphChild represents any content that can appear inside a paragraph.
type ParagraphChild interface {
	isParagraphChild()
}

// RunChild represents any content that can appear inside a run.
type RunChild interface {
	isRunChild()
}

// Body represents the document body.
type Body struct {
	// Elements maintains the order of all body elements.
	Elements []BodyElement
	// SectPr at the end of the body, preserved verbatim.
	SectPr *RawElement
}

func (b *Body) isBodyElement() {}

// UnmarshalXML walks the body token stream, parsing paragraphs, tables and
// comment marks and preserving everything else as raw XML.
func (b *Body) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
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
			switch t.Name.Local {
			case "p":
				var para Paragraph
				if err := d.DecodeElement(&para, &t); err != nil {
					return err
				}
				b.Elements = append(b.Elements, &para)
			case "tbl":
				var table Table
				if err := d.DecodeElement(&table, &t); err != nil {
					return err
				}
				b.Elements = append(b.Elements, &table)
			case "commentRangeStart", "commentRangeEnd":
				mark, err := decodeCommentMark(d, t)
				if err != nil {
					return err
				}
				b.Elements = append(b.Elements, mark)
			case "sectPr":
				raw, err := captureRaw(d, t)
				if err != nil {
					return err
				}
				b.SectPr = raw
			default:
				raw, err := captureRaw(d, t)
				if err != nil {
					return err
				}
				b.Elements = append(b.Elements, raw)
			}
		case xml.EndElement:
			if t.Name.Local == "body" {
				return nil
			}
		}
	}

	return nil
}

// Paragraph represents a paragraph in the document.
type Paragraph struct {
	// Properties holds the pPr element verbatim.
	Properties *RawElement
	// Content maintains the order of runs, comment marks and other children.
	Content []ParagraphChild
}

func (p *Paragraph) isBodyElement() {}

// UnmarshalXML preserves the order of paragraph children.
func (p *Paragraph) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
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
			switch t.Name.Local {
			case "pPr":
				raw, err := captureRaw(d, t)
				if err != nil {
					return err
				}
				p.Properties = raw
			case "r":
				var run Run
				if err := d.DecodeElement(&run, &t); err != nil {
					return err
				}
				p.Content = append(p.Content, &run)
			case "commentRangeStart", "commentRangeEnd":
				mark, err := decodeCommentMark(d, t)
				if err != nil {
					return err
				}
				p.Content = append(p.Content, mark)
			default:
				raw, err := captureRaw(d, t)
				if err != nil {
					return err
				}
				p.Content = append(p.Content, raw)
			}
		case xml.EndElement:
			if t.Name.Local == "p" {
				return nil
			}
		}
	}

	return nil
}

// Runs returns the paragraph's runs in order.
func (p *Paragraph) Runs() []*Run {
	var runs []*Run
	for _, child := range p.Content {
		if run, ok := child.(*Run); ok {
			runs = append(runs, run)
		}
	}
	return runs
}

// Marks returns the paragraph's comment marks in order.
func (p *Paragraph) Marks() []*CommentMark {
	var marks []*CommentMark
	for _, child := range p.Content {
		switch c := child.(type) {
		case *CommentMark:
			marks = append(marks, c)
		case *Run:
			marks = append(marks, c.Marks()...)
		}
	}
	return marks
}

// GetText returns the concatenated text of all runs in the paragraph.
func (p *Paragraph) GetText() string {
	var texts []string
	for _, child := range p.Content {
		if run, ok := child.(*Run); ok {
			if text := run.GetText(); text != "" {
				texts = append(texts, text)
			}
		}
	}
	return strings.Join(texts, "")
}

// SetText replaces the paragraph's text with a single value. The first
// run keeps its properties and receives the full text; remaining runs
// lose their text children but keep marks and raw content.
func (p *Paragraph) SetText(text string) {
	first := true
	for _, child := range p.Content {
		run, ok := child.(*Run)
		if !ok {
			continue
		}
		var kept []RunChild
		for _, rc := range run.Children {
			if _, isText := rc.(*Text); !isText {
				kept = append(kept, rc)
			}
		}
		if first {
			kept = append(kept, &Text{Space: "preserve", Content: text})
			first = false
		}
		run.Children = kept
	}
	if first {
		// Paragraph had no runs at all.
		p.Content = append(p.Content, &Run{
			Children: []RunChild{&Text{Space: "preserve", Content: text}},
		})
	}
}

// Clone returns a deep copy of the paragraph.
func (p *Paragraph) Clone() *Paragraph {
	clone := &Paragraph{}
	if p.Properties != nil {
		clone.Properties = p.Properties.Clone()
	}
	for _, child := range p.Content {
		switch c := child.(type) {
		case *Run:
			clone.Content = append(clone.Content, c.Clone())
		case *CommentMark:
			clone.Content = append(clone.Content, c.Clone())
		case *RawElement:
			clone.Content = append(clone.Content, c.Clone())
		}
	}
	return clone
}

// Run represents a run of text with common properties.
type Run struct {
	// Properties holds the rPr element verbatim.
	Properties *RawElement
	// Children maintains the order of text, breaks and other run content.
	Children []RunChild
}

func (r *Run) isParagraphChild() {}

// UnmarshalXML preserves the order of run children.
func (r *Run) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
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
			switch t.Name.Local {
			case "rPr":
				raw, err := captureRaw(d, t)
				if err != nil {
					return err
				}
				r.Properties = raw
			case "t":
				var text Text
				if err := d.DecodeElement(&text, &t); err != nil {
					return err
				}
				r.Children = append(r.Children, &text)
			case "br":
				var br Break
				if err := d.DecodeElement(&br, &t); err != nil {
					return err
				}
				r.Children = append(r.Children, &br)
			case "commentReference":
				mark, err := decodeCommentMark(d, t)
				if err != nil {
					return err
				}
				r.Children = append(r.Children, mark)
			default:
				raw, err := captureRaw(d, t)
				if err != nil {
					return err
				}
				r.Children = append(r.Children, raw)
			}
		case xml.EndElement:
			if t.Name.Local == "r" {
				return nil
			}
		}
	}

	return nil
}

// GetText returns the text content of the run.
func (r *Run) GetText() string {
	var texts []string
	for _, child := range r.Children {
		if text, ok := child.(*Text); ok {
			texts = append(texts, text.Content)
		}
	}
	return strings.Join(texts, "")
}

// SetText replaces the run's text children with a single text node.
func (r *Run) SetText(text string) {
	var kept []RunChild
	for _, child := range r.Children {
		if _, isText := child.(*Text); !isText {
			kept = append(kept, child)
		}
	}
	r.Children = append(kept, &Text{Space: "preserve", Content: text})
}

// Marks returns comment reference marks inside the run.
func (r *Run) Marks() []*CommentMark {
	var marks []*CommentMark
	for _, child := range r.Children {
		if mark, ok := child.(*CommentMark); ok {
			marks = append(marks, mark)
		}
	}
	return marks
}

// Clone returns a deep copy of the run.
func (r *Run) Clone() *Run {
	clone := &Run{}
	if r.Properties != nil {
		clone.Properties = r.Properties.Clone()
	}
	for _, child := range r.Children {
		switch c := child.(type) {
		case *Text:
			t := *c
			clone.Children = append(clone.Children, &t)
		case *Break:
			b := *c
			clone.Children = append(clone.Children, &b)
		case *CommentMark:
			clone.Children = append(clone.Children, c.Clone())
		case *RawElement:
			clone.Children = append(clone.Children, c.Clone())
		}
	}
	return clone
}

// Text represents text content inside a run.
type Text struct {
	XMLName xml.Name `xml:"t"`
	Space   string   `xml:"space,attr"`
	Content string   `xml:",chardata"`
}

func (t *Text) isRunChild() {}

// Break represents a line break.
type Break struct {
	Type string `xml:"type,attr,omitempty"`
}

func (b *Break) isRunChild() {}

// MarkKind identifies the flavor of a comment mark.
type MarkKind int

const (
	// MarkRangeStart is a commentRangeStart element, the anchor an
	// annotation's metadata attributes live on.
	MarkRangeStart MarkKind = iota
	// MarkRangeEnd is a commentRangeEnd element.
	MarkRangeEnd
	// MarkReference is a commentReference element inside a run.
	MarkReference
)

func (k MarkKind) String() string {
	switch k {
	case MarkRangeStart:
		return "commentRangeStart"
	case MarkRangeEnd:
		return "commentRangeEnd"
	case MarkReference:
		return "commentReference"
	default:
		return "unknown"
	}
}

// CommentMark is a comment anchor element. Range-start marks carry the
// annotation metadata attributes, which round-trip through serialization.
type CommentMark struct {
	Kind  MarkKind
	ID    int
	attrs map[string]string
}

func (m *CommentMark) isBodyElement()    {}
func (m *CommentMark) isParagraphChild() {}
func (m *CommentMark) isRunChild()       {}

// NewCommentMark creates a mark of the given kind.
func NewCommentMark(kind MarkKind, id int) *CommentMark {
	return &CommentMark{Kind: kind, ID: id}
}

// Attr returns the named metadata attribute.
func (m *CommentMark) Attr(name string) (string, bool) {
	value, ok := m.attrs[name]
	return value, ok
}

// SetAttr sets a metadata attribute on the mark.
func (m *CommentMark) SetAttr(name, value string) {
	if m.attrs == nil {
		m.attrs = make(map[string]string)
	}
	m.attrs[name] = value
}

// Clone returns a deep copy of the mark.
func (m *CommentMark) Clone() *CommentMark {
	clone := &CommentMark{Kind: m.Kind, ID: m.ID}
	for name, value := range m.attrs {
		clone.SetAttr(name, value)
	}
	return clone
}

func decodeCommentMark(d *xml.Decoder, start xml.StartElement) (*CommentMark, error) {
	mark := &CommentMark{}
	switch start.Name.Local {
	case "commentRangeStart":
		mark.Kind = MarkRangeStart
	case "commentRangeEnd":
		mark.Kind = MarkRangeEnd
	case "commentReference":
		mark.Kind = MarkReference
	default:
		return nil, fmt.Errorf("unexpected comment mark element %s", start.Name.Local)
	}

	for _, attr := range start.Attr {
		if attr.Name.Local == "id" && attr.Name.Space != "xmlns" {
			id, err := strconv.Atoi(attr.Value)
			if err != nil {
				return nil, fmt.Errorf("comment mark with non-numeric id %q", attr.Value)
			}
			mark.ID = id
			continue
		}
		if attr.Name.Space == "" {
			mark.SetAttr(attr.Name.Local, attr.Value)
		}
	}

	if err := d.Skip(); err != nil {
		return nil, err
	}
	return mark, nil
}

// Table represents a table in the document. Properties and grid round-trip
// verbatim; rows are parsed so cell paragraphs stay reachable.
type Table struct {
	Properties *RawElement
	Grid       *RawElement
	Rows       []*TableRow
}

func (t *Table) isBodyElement() {}

// UnmarshalXML parses table rows and preserves everything else raw.
func (t *Table) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	for {
		token, err := d.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}

		switch tok := token.(type) {
		case xml.StartElement:
			switch tok.Name.Local {
			case "tblPr":
				raw, err := captureRaw(d, tok)
				if err != nil {
					return err
				}
				t.Properties = raw
			case "tblGrid":
				raw, err := captureRaw(d, tok)
				if err != nil {
					return err
				}
				t.Grid = raw
			case "tr":
				var row TableRow
				if err := d.DecodeElement(&row, &tok); err != nil {
					return err
				}
				t.Rows = append(t.Rows, &row)
			default:
				if err := d.Skip(); err != nil {
					return err
				}
			}
		case xml.EndElement:
			if tok.Name.Local == "tbl" {
				return nil
			}
		}
	}

	return nil
}

// TableRow represents a row in a table.
type TableRow struct {
	Properties *RawElement
	Cells      []*TableCell
}

// UnmarshalXML parses row cells and preserves properties raw.
func (r *TableRow) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
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
			switch t.Name.Local {
			case "trPr":
				raw, err := captureRaw(d, t)
				if err != nil {
					return err
				}
				r.Properties = raw
			case "tc":
				var cell TableCell
				if err := d.DecodeElement(&cell, &t); err != nil {
					return err
				}
				r.Cells = append(r.Cells, &cell)
			default:
				if err := d.Skip(); err != nil {
					return err
				}
			}
		case xml.EndElement:
			if t.Name.Local == "tr" {
				return nil
			}
		}
	}

	return nil
}

// TableCell represents a cell in a table. Blocks holds the cell's
// paragraphs and nested tables in order.
type TableCell struct {
	Properties *RawElement
	Blocks     []BodyElement
}

// UnmarshalXML parses the cell's block content.
func (c *TableCell) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
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
			switch t.Name.Local {
			case "tcPr":
				raw, err := captureRaw(d, t)
				if err != nil {
					return err
				}
				c.Properties = raw
			case "p":
				var para Paragraph
				if err := d.DecodeElement(&para, &t); err != nil {
					return err
				}
				c.Blocks = append(c.Blocks, &para)
			case "tbl":
				var table Table
				if err := d.DecodeElement(&table, &t); err != nil {
					return err
				}
				c.Blocks = append(c.Blocks, &table)
			case "commentRangeStart", "commentRangeEnd":
				mark, err := decodeCommentMark(d, t)
				if err != nil {
					return err
				}
				c.Blocks = append(c.Blocks, mark)
			default:
				raw, err := captureRaw(d, t)
				if err != nil {
					return err
				}
				c.Blocks = append(c.Blocks, raw)
			}
		case xml.EndElement:
			if t.Name.Local == "tc" {
				return nil
			}
		}
	}

	return nil
}

// RawElement preserves an element this engine does not interpret. Content
// holds the complete element with namespace prefixes already applied, so
// serialization is a plain byte copy.
type RawElement struct {
	XMLName xml.Name
	Attrs   []xml.Attr
	Content []byte
}

func (r *RawElement) isBodyElement()    {}
func (r *RawElement) isParagraphChild() {}
func (r *RawElement) isRunChild()       {}

// Clone returns a deep copy of the raw element.
func (r *RawElement) Clone() *RawElement {
	clone := &RawElement{XMLName: r.XMLName}
	clone.Attrs = append(clone.Attrs, r.Attrs...)
	clone.Content = append(clone.Content, r.Content...)
	return clone
}

// captureRaw reads one element and its subtree into a RawElement,
// converting namespace URIs back to conventional prefixes.
func captureRaw(d *xml.Decoder, start xml.StartElement) (*RawElement, error) {
	raw := &RawElement{XMLName: start.Name, Attrs: start.Attr}

	var buf strings.Builder
	writeRawStart(&buf, start)

	depth := 1
	for depth > 0 {
		tok, err := d.Token()
		if err != nil {
			return nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			writeRawStart(&buf, t)
		case xml.EndElement:
			depth--
			buf.WriteString("</")
			writeRawName(&buf, t.Name)
			buf.WriteString(">")
		case xml.CharData:
			buf.WriteString(escapeXML(string(t)))
		}
	}

	raw.Content = []byte(buf.String())
	return raw, nil
}

func writeRawStart(buf *strings.Builder, t xml.StartElement) {
	buf.WriteString("<")
	writeRawName(buf, t.Name)
	for _, attr := range t.Attr {
		buf.WriteString(" ")
		writeRawName(buf, attr.Name)
		buf.WriteString("=\"")
		buf.WriteString(escapeXML(attr.Value))
		buf.WriteString("\"")
	}
	buf.WriteString(">")
}

func writeRawName(buf *strings.Builder, name xml.Name) {
	if name.Space != "" {
		buf.WriteString(namespaceToPrefix(name.Space))
		buf.WriteString(":")
	}
	buf.WriteString(name.Local)
}

func escapeXML(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	s = strings.ReplaceAll(s, "\"", "&quot;")
	return s
}

// ParseDocument parses a WordprocessingML document part.
func ParseDocument(r io.Reader) (*Document, error) {
	decoder := xml.NewDecoder(r)

	var doc Document
	if err := decoder.Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to parse document: %w", err)
	}
	if doc.Body == nil {
		doc.Body = &Body{}
	}

	return &doc, nil
}

// MarshalDocument serializes a document part back to XML.
func MarshalDocument(doc *Document) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>`)
	buf.WriteString("\n")

	buf.WriteString("<w:document")
	if len(doc.Attrs) > 0 {
		writeRootAttrs(&buf, doc.Attrs)
	} else {
		buf.WriteString(` xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"`)
	}
	buf.WriteString("><w:body>")

	if doc.Body != nil {
		for _, elem := range doc.Body.Elements {
			writeBodyElement(&buf, elem)
		}
		if doc.Body.SectPr != nil {
			buf.Write(doc.Body.SectPr.Content)
		}
	}

	buf.WriteString("</w:body></w:document>")
	return buf.Bytes(), nil
}

func writeRootAttrs(buf *bytes.Buffer, attrs []xml.Attr) {
	for _, attr := range attrs {
		buf.WriteString(" ")
		switch {
		case attr.Name.Space == "xmlns":
			buf.WriteString("xmlns:")
			buf.WriteString(attr.Name.Local)
		case attr.Name.Space != "":
			buf.WriteString(namespaceToPrefix(attr.Name.Space))
			buf.WriteString(":")
			buf.WriteString(attr.Name.Local)
		default:
			buf.WriteString(attr.Name.Local)
		}
		buf.WriteString(`="`)
		buf.WriteString(escapeXML(attr.Value))
		buf.WriteString(`"`)
	}
}

func writeBodyElement(buf *bytes.Buffer, elem BodyElement) {
	switch el := elem.(type) {
	case *Paragraph:
		writeParagraph(buf, el)
	case *Table:
		writeTable(buf, el)
	case *CommentMark:
		writeCommentMark(buf, el)
	case *RawElement:
		buf.Write(el.Content)
	}
}

func writeParagraph(buf *bytes.Buffer, p *Paragraph) {
	buf.WriteString("<w:p>")
	if p.Properties != nil {
		buf.Write(p.Properties.Content)
	}
	for _, child := range p.Content {
		switch c := child.(type) {
		case *Run:
			writeRun(buf, c)
		case *CommentMark:
			writeCommentMark(buf, c)
		case *RawElement:
			buf.Write(c.Content)
		}
	}
	buf.WriteString("</w:p>")
}

func writeRun(buf *bytes.Buffer, r *Run) {
	buf.WriteString("<w:r>")
	if r.Properties != nil {
		buf.Write(r.Properties.Content)
	}
	for _, child := range r.Children {
		switch c := child.(type) {
		case *Text:
			writeText(buf, c)
		case *Break:
			if c.Type != "" {
				fmt.Fprintf(buf, `<w:br w:type="%s"/>`, escapeXML(c.Type))
			} else {
				buf.WriteString("<w:br/>")
			}
		case *CommentMark:
			writeCommentMark(buf, c)
		case *RawElement:
			buf.Write(c.Content)
		}
	}
	buf.WriteString("</w:r>")
}

func writeText(buf *bytes.Buffer, t *Text) {
	if t.Space == "preserve" {
		buf.WriteString(`<w:t xml:space="preserve">`)
	} else {
		buf.WriteString("<w:t>")
	}
	buf.WriteString(escapeXML(t.Content))
	buf.WriteString("</w:t>")
}

func writeCommentMark(buf *bytes.Buffer, m *CommentMark) {
	buf.WriteString("<w:")
	buf.WriteString(m.Kind.String())
	fmt.Fprintf(buf, ` w:id="%d"`, m.ID)

	// Sorted for deterministic output.
	names := make([]string, 0, len(m.attrs))
	for name := range m.attrs {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(buf, ` %s="%s"`, name, escapeXML(m.attrs[name]))
	}

	buf.WriteString("/>")
}

func writeTable(buf *bytes.Buffer, t *Table) {
	buf.WriteString("<w:tbl>")
	if t.Properties != nil {
		buf.Write(t.Properties.Content)
	}
	if t.Grid != nil {
		buf.Write(t.Grid.Content)
	}
	for _, row := range t.Rows {
		buf.WriteString("<w:tr>")
		if row.Properties != nil {
			buf.Write(row.Properties.Content)
		}
		for _, cell := range row.Cells {
			buf.WriteString("<w:tc>")
			if cell.Properties != nil {
				buf.Write(cell.Properties.Content)
			}
			for _, block := range cell.Blocks {
				writeBodyElement(buf, block)
			}
			buf.WriteString("</w:tc>")
		}
		buf.WriteString("</w:tr>")
	}
	buf.WriteString("</w:tbl>")
}

// Paragraphs returns every paragraph in the document in document order,
// including paragraphs inside table cells.
func (doc *Document) Paragraphs() []*Paragraph {
	if doc.Body == nil {
		return nil
	}
	return collectParagraphs(doc.Body.Elements)
}

func collectParagraphs(elements []BodyElement) []*Paragraph {
	var paragraphs []*Paragraph
	for _, elem := range elements {
		switch el := elem.(type) {
		case *Paragraph:
			paragraphs = append(paragraphs, el)
		case *Table:
			for _, row := range el.Rows {
				for _, cell := range row.Cells {
					paragraphs = append(paragraphs, collectParagraphs(cell.Blocks)...)
				}
			}
		}
	}
	return paragraphs
}

// GetText returns the document's plain text, paragraphs joined by newlines.
func (doc *Document) GetText() string {
	var texts []string
	for _, p := range doc.Paragraphs() {
		texts = append(texts, p.GetText())
	}
	return strings.Join(texts, "\n")
}
