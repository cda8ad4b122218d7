package stamper

import (
	"archive/zip"
	"bytes"
	"strings"
	"testing"
)

type testPart struct {
	name    string
	content string
}

func buildTestDocx(t *testing.T, parts []testPart) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, part := range parts {
		fw, err := zw.Create(part.name)
		if err != nil {
			t.Fatalf("zip create %s: %v", part.name, err)
		}
		if _, err := fw.Write([]byte(part.content)); err != nil {
			t.Fatalf("zip write %s: %v", part.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zip close: %v", err)
	}
	return buf.Bytes()
}

func minimalDocxParts() []testPart {
	return []testPart{
		{"[Content_Types].xml", `<?xml version="1.0"?><Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types"/>`},
		{"word/document.xml", annotatedDocumentXML(`<w:p><w:r><w:t>Hello</w:t></w:r></w:p>`)},
		{"word/styles.xml", `<w:styles xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"/>`},
	}
}

func TestReadDocx(t *testing.T) {
	data := buildTestDocx(t, minimalDocxParts())

	d, err := ReadDocx(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("ReadDocx() error = %v", err)
	}

	if !d.HasPart("word/document.xml") {
		t.Errorf("HasPart(document.xml) = false")
	}
	if d.HasPart("word/nothere.xml") {
		t.Errorf("HasPart(nothere) = true")
	}

	names := d.PartNames()
	if len(names) != 3 {
		t.Errorf("PartNames() = %v, want 3 parts", names)
	}

	doc, err := d.Document()
	if err != nil {
		t.Fatalf("Document() error = %v", err)
	}
	if got := doc.GetText(); got != "Hello" {
		t.Errorf("document text = %q, want %q", got, "Hello")
	}
}

func TestReadDocxRejectsNonZip(t *testing.T) {
	_, err := ReadDocx(strings.NewReader("plain text, not a zip"))
	if err == nil {
		t.Fatal("ReadDocx() on garbage should fail")
	}
	if !IsDocumentError(err) {
		t.Errorf("error = %T, want *DocumentError", err)
	}
}

func TestReadDocxRequiresDocumentPart(t *testing.T) {
	data := buildTestDocx(t, []testPart{
		{"[Content_Types].xml", "<Types/>"},
	})

	_, err := ReadDocx(bytes.NewReader(data))
	if err == nil {
		t.Fatal("ReadDocx() without document.xml should fail")
	}
	if !strings.Contains(err.Error(), "word/document.xml") {
		t.Errorf("error %q does not name the missing part", err)
	}
}

func TestDocxCommentsPart(t *testing.T) {
	t.Run("missing part yields empty comments", func(t *testing.T) {
		data := buildTestDocx(t, minimalDocxParts())
		d, err := ReadDocx(bytes.NewReader(data))
		if err != nil {
			t.Fatalf("ReadDocx() error = %v", err)
		}

		comments, err := d.Comments()
		if err != nil {
			t.Fatalf("Comments() error = %v", err)
		}
		if len(comments.Items) != 0 {
			t.Errorf("comments = %d, want 0", len(comments.Items))
		}
	})

	t.Run("present part parses", func(t *testing.T) {
		parts := append(minimalDocxParts(), testPart{"word/comments.xml", sampleCommentsXML})
		d, err := ReadDocx(bytes.NewReader(buildTestDocx(t, parts)))
		if err != nil {
			t.Fatalf("ReadDocx() error = %v", err)
		}

		comments, err := d.Comments()
		if err != nil {
			t.Fatalf("Comments() error = %v", err)
		}
		if len(comments.Items) != 2 {
			t.Errorf("comments = %d, want 2", len(comments.Items))
		}
	})
}

func TestDocxRoundTripPreservesUntouchedParts(t *testing.T) {
	parts := minimalDocxParts()
	d, err := ReadDocx(bytes.NewReader(buildTestDocx(t, parts)))
	if err != nil {
		t.Fatalf("ReadDocx() error = %v", err)
	}

	d.SetPart("word/document.xml", []byte(annotatedDocumentXML(`<w:p><w:r><w:t>Changed</w:t></w:r></w:p>`)))

	out, err := d.Bytes()
	if err != nil {
		t.Fatalf("Bytes() error = %v", err)
	}

	reread, err := ReadDocx(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("ReadDocx(output) error = %v", err)
	}

	doc, err := reread.Document()
	if err != nil {
		t.Fatalf("Document() error = %v", err)
	}
	if got := doc.GetText(); got != "Changed" {
		t.Errorf("document text = %q, want %q", got, "Changed")
	}

	// Untouched parts come through byte for byte.
	for _, part := range parts {
		if part.name == "word/document.xml" {
			continue
		}
		got, ok := reread.Part(part.name)
		if !ok {
			t.Fatalf("part %s missing from output", part.name)
		}
		if string(got) != part.content {
			t.Errorf("part %s changed across round trip", part.name)
		}
	}
}

func TestDocxWriteAppendsNewParts(t *testing.T) {
	d, err := ReadDocx(bytes.NewReader(buildTestDocx(t, minimalDocxParts())))
	if err != nil {
		t.Fatalf("ReadDocx() error = %v", err)
	}

	d.SetPart("word/extra.xml", []byte("<extra/>"))

	out, err := d.Bytes()
	if err != nil {
		t.Fatalf("Bytes() error = %v", err)
	}
	reread, err := ReadDocx(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("ReadDocx(output) error = %v", err)
	}
	data, ok := reread.Part("word/extra.xml")
	if !ok || string(data) != "<extra/>" {
		t.Errorf("added part = %q, %v", data, ok)
	}
}

func TestDocxSetCommentsOnlyWhenPartExists(t *testing.T) {
	d, err := ReadDocx(bytes.NewReader(buildTestDocx(t, minimalDocxParts())))
	if err != nil {
		t.Fatalf("ReadDocx() error = %v", err)
	}

	if err := d.SetComments(&Comments{}); err != nil {
		t.Fatalf("SetComments() error = %v", err)
	}
	if d.HasPart("word/comments.xml") {
		t.Errorf("SetComments created a comments part in a package that had none")
	}
}
