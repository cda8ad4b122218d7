package stamper

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"os"
	"sort"
)

const (
	partDocument = "word/document.xml"
	partComments = "word/comments.xml"
)

// DocxFile is an in-memory Word package. Parts that were never touched
// survive a read-write cycle byte for byte; only parts replaced through
// SetPart are rewritten.
type DocxFile struct {
	source   []byte
	order    []string
	parts    map[string][]byte
	modified map[string][]byte
}

// ReadDocx reads a Word package from r.
func ReadDocx(r io.Reader) (*DocxFile, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, NewDocumentError("read", "", err)
	}
	return docxFromBytes(content)
}

// OpenDocx reads a Word package from a file.
func OpenDocx(path string) (*DocxFile, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, NewDocumentError("open", path, err)
	}
	return docxFromBytes(content)
}

func docxFromBytes(content []byte) (*DocxFile, error) {
	zipReader, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, NewDocumentError("read", "", fmt.Errorf("not a zip archive: %w", err))
	}

	d := &DocxFile{
		source:   content,
		parts:    make(map[string][]byte, len(zipReader.File)),
		modified: make(map[string][]byte),
	}
	for _, file := range zipReader.File {
		rc, err := file.Open()
		if err != nil {
			return nil, NewDocumentError("read", file.Name, err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, NewDocumentError("read", file.Name, err)
		}
		d.parts[file.Name] = data
		d.order = append(d.order, file.Name)
	}

	if _, ok := d.parts[partDocument]; !ok {
		return nil, NewDocumentError("read", partDocument, fmt.Errorf("not a Word document: missing part"))
	}
	return d, nil
}

// Part returns the current content of a package part.
func (d *DocxFile) Part(name string) ([]byte, bool) {
	if data, ok := d.modified[name]; ok {
		return data, true
	}
	data, ok := d.parts[name]
	return data, ok
}

// SetPart replaces a part's content. Unknown names become new parts.
func (d *DocxFile) SetPart(name string, content []byte) {
	d.modified[name] = content
}

// clone returns a package sharing the original parts but with its own
// modification overlay, so concurrent stamp runs from one prepared
// template never see each other's writes.
func (d *DocxFile) clone() *DocxFile {
	return &DocxFile{
		source:   d.source,
		order:    d.order,
		parts:    d.parts,
		modified: make(map[string][]byte),
	}
}

// HasPart reports whether the package contains the named part.
func (d *DocxFile) HasPart(name string) bool {
	_, ok := d.Part(name)
	return ok
}

// PartNames lists all part names in the package, sorted.
func (d *DocxFile) PartNames() []string {
	seen := make(map[string]bool, len(d.parts))
	names := make([]string, 0, len(d.parts)+len(d.modified))
	for _, name := range d.order {
		names = append(names, name)
		seen[name] = true
	}
	for name := range d.modified {
		if !seen[name] {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Document parses the main document part.
func (d *DocxFile) Document() (*Document, error) {
	data, ok := d.Part(partDocument)
	if !ok {
		return nil, NewDocumentError("parse", partDocument, fmt.Errorf("part not found"))
	}
	doc, err := ParseDocument(bytes.NewReader(data))
	if err != nil {
		return nil, NewDocumentError("parse", partDocument, err)
	}
	return doc, nil
}

// Comments parses the comments part. A package without comments yields
// an empty collection.
func (d *DocxFile) Comments() (*Comments, error) {
	data, ok := d.Part(partComments)
	if !ok {
		return &Comments{}, nil
	}
	comments, err := ParseComments(bytes.NewReader(data))
	if err != nil {
		return nil, NewDocumentError("parse", partComments, err)
	}
	return comments, nil
}

// SetDocument serializes the document back into the package.
func (d *DocxFile) SetDocument(doc *Document) error {
	data, err := MarshalDocument(doc)
	if err != nil {
		return NewDocumentError("marshal", partDocument, err)
	}
	d.SetPart(partDocument, data)
	return nil
}

// SetComments serializes the comments part back into the package. When
// the package never had one, nothing is written.
func (d *DocxFile) SetComments(comments *Comments) error {
	if _, had := d.parts[partComments]; !had {
		return nil
	}
	data, err := MarshalComments(comments)
	if err != nil {
		return NewDocumentError("marshal", partComments, err)
	}
	d.SetPart(partComments, data)
	return nil
}

// Write assembles the package into w, keeping the original part order
// and appending newly created parts at the end.
func (d *DocxFile) Write(w io.Writer) error {
	zw := zip.NewWriter(w)

	written := make(map[string]bool, len(d.order))
	for _, name := range d.order {
		if err := d.writePart(zw, name); err != nil {
			return err
		}
		written[name] = true
	}

	var added []string
	for name := range d.modified {
		if !written[name] {
			added = append(added, name)
		}
	}
	sort.Strings(added)
	for _, name := range added {
		if err := d.writePart(zw, name); err != nil {
			return err
		}
	}

	if err := zw.Close(); err != nil {
		return NewDocumentError("write", "", err)
	}
	return nil
}

func (d *DocxFile) writePart(zw *zip.Writer, name string) error {
	data, _ := d.Part(name)
	fw, err := zw.Create(name)
	if err != nil {
		return NewDocumentError("write", name, err)
	}
	if _, err := fw.Write(data); err != nil {
		return NewDocumentError("write", name, err)
	}
	return nil
}

// Bytes assembles the package into a byte slice.
func (d *DocxFile) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := d.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Save writes the package to a file.
func (d *DocxFile) Save(path string) error {
	data, err := d.Bytes()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return NewDocumentError("save", path, err)
	}
	return nil
}
