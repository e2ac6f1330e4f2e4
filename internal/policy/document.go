package policy

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ppiankov/invoicecheck/internal/model"
)

// Document is the ordered list of non-empty, trimmed paragraphs of a policy.
type Document []string

// Text joins paragraphs with newlines in document order
func (d Document) Text() string {
	return strings.Join(d, "\n")
}

// LoadDocument reads the paragraphs of a .docx policy document.
func LoadDocument(path string) (Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", model.ErrDocumentNotFound, path, err)
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", model.ErrDocumentNotFound, path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", model.ErrDocumentNotFound, path)
	}

	return ReadDocument(f, info.Size())
}

// ReadDocument parses a .docx archive held by r.
func ReadDocument(r io.ReaderAt, size int64) (Document, error) {
	reader, err := zip.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("%w: not a docx archive: %v", model.ErrDocumentUnreadable, err)
	}

	for _, file := range reader.File {
		if file.Name != "word/document.xml" {
			continue
		}

		rc, err := file.Open()
		if err != nil {
			return nil, fmt.Errorf("%w: open document.xml: %v", model.ErrDocumentUnreadable, err)
		}
		content, err := io.ReadAll(rc)
		_ = rc.Close()
		if err != nil {
			return nil, fmt.Errorf("%w: read document.xml: %v", model.ErrDocumentUnreadable, err)
		}

		return parseParagraphs(content)
	}

	return nil, fmt.Errorf("%w: word/document.xml missing", model.ErrDocumentUnreadable)
}

// parseParagraphs collects the text of each body-level w:p. Runs are read when
// they sit directly in the paragraph or inside a w:hyperlink; w:tab becomes a
// tab and w:br or w:cr a newline.
func parseParagraphs(content []byte) (Document, error) {
	dec := xml.NewDecoder(bytes.NewReader(content))

	var (
		paragraphs Document
		path       []string
		text       *strings.Builder
		depth      int // index of the open paragraph in path
	)

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: parse document.xml: %v", model.ErrDocumentUnreadable, err)
		}

		switch el := tok.(type) {
		case xml.StartElement:
			name := el.Name.Local
			switch {
			case text == nil && name == "p" && len(path) > 0 && path[len(path)-1] == "body":
				text = &strings.Builder{}
				depth = len(path)
			case text != nil && inRun(path[depth+1:]):
				switch name {
				case "tab":
					text.WriteByte('\t')
				case "br", "cr":
					text.WriteByte('\n')
				}
			}
			path = append(path, name)

		case xml.EndElement:
			path = path[:len(path)-1]
			if text != nil && len(path) == depth {
				if s := strings.TrimSpace(text.String()); s != "" {
					paragraphs = append(paragraphs, s)
				}
				text = nil
			}

		case xml.CharData:
			if text != nil && len(path) > depth+1 && path[len(path)-1] == "t" && inRun(path[depth+1:len(path)-1]) {
				text.Write(el)
			}
		}
	}

	if paragraphs == nil {
		paragraphs = Document{}
	}
	return paragraphs, nil
}

// inRun reports whether rel, the element path below a paragraph, is a run that
// contributes paragraph text.
func inRun(rel []string) bool {
	if len(rel) > 0 && rel[0] == "hyperlink" {
		rel = rel[1:]
	}
	return len(rel) == 1 && rel[0] == "r"
}
