package invoice

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ppiankov/invoicecheck/internal/model"
)

const (
	MIMEJPEG = "image/jpeg"
	MIMEPNG  = "image/png"
)

// Source is one invoice to judge: an in-memory upload (Data set) or a file (Path set).
type Source struct {
	Name     string // display identifier
	Path     string
	MIMEType string
	Data     []byte
}

// FromFile creates a filesystem source identified by its base name
func FromFile(path string) Source {
	return Source{Name: filepath.Base(path), Path: path}
}

// FromBytes creates an interactive source with a declared MIME type
func FromBytes(name, mimeType string, data []byte) Source {
	if data == nil {
		data = []byte{}
	}
	return Source{Name: name, MIMEType: mimeType, Data: data}
}

// FromReader reads an interactive upload fully into memory
func FromReader(name, mimeType string, r io.Reader) (Source, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Source{}, fmt.Errorf("%w: %s: %v", model.ErrUnreadableInvoice, name, err)
	}
	return FromBytes(name, mimeType, data), nil
}

// ID returns the display identifier
func (s Source) ID() string {
	if s.Name != "" {
		return s.Name
	}
	return filepath.Base(s.Path)
}

// Payload is the request-shaped image handed to the model, exactly one image.
type Payload struct {
	MIMEType string
	Data     []byte
}

// Encode resolves a source into a payload. Bytes are never modified.
func Encode(src Source) (Payload, error) {
	if src.Data != nil || src.Path == "" {
		if len(src.Data) == 0 {
			return Payload{}, fmt.Errorf("%w: %s", model.ErrEmptyInvoice, src.ID())
		}
		mimeType := src.MIMEType
		if mimeType == "" {
			mimeType = MIMEJPEG
		}
		return Payload{MIMEType: mimeType, Data: src.Data}, nil
	}

	data, err := os.ReadFile(src.Path)
	if err != nil {
		return Payload{}, fmt.Errorf("%w: %s: %v", model.ErrUnreadableInvoice, src.ID(), err)
	}
	if len(data) == 0 {
		return Payload{}, fmt.Errorf("%w: %s", model.ErrEmptyInvoice, src.ID())
	}

	mimeType := src.MIMEType
	if mimeType == "" {
		mimeType = MIMETypeFor(src.Path)
	}
	return Payload{MIMEType: mimeType, Data: data}, nil
}

// MIMETypeFor infers the image type from the extension. Unknown or missing
// extensions are treated as JPEG.
func MIMETypeFor(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return MIMEPNG
	default:
		return MIMEJPEG
	}
}
