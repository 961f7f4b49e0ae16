package graph

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	ferrors "github.com/matzehuels/forcegraph/pkg/errors"
)

// Document formats accepted by [ReadDocument] and [WriteDocument].
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// =============================================================================
// Document Serialization API
// =============================================================================

// ReadDocument decodes a graph document in the given format ("json" or "yaml").
// Decode failures carry the INVALID_INPUT code.
func ReadDocument(r io.Reader, format string) (Document, error) {
	var doc Document
	switch format {
	case FormatJSON:
		dec := json.NewDecoder(r)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&doc); err != nil {
			return Document{}, ferrors.Wrap(ferrors.ErrCodeInvalidInput, err, "decode JSON graph")
		}
	case FormatYAML:
		dec := yaml.NewDecoder(r)
		dec.KnownFields(true)
		if err := dec.Decode(&doc); err != nil && err != io.EOF {
			return Document{}, ferrors.Wrap(ferrors.ErrCodeInvalidInput, err, "decode YAML graph")
		}
	default:
		return Document{}, ferrors.New(ferrors.ErrCodeInvalidFormat, "unsupported graph format %q", format)
	}
	return doc, nil
}

// ReadFile reads a graph document from a .json, .yaml, or .yml file.
func ReadFile(path string) (Document, error) {
	format, err := ferrors.DocumentFormat(path)
	if err != nil {
		return Document{}, err
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Document{}, ferrors.Wrap(ferrors.ErrCodeFileNotFound, err, "open %s", path)
		}
		return Document{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return ReadDocument(f, format)
}

// ReadGraphFile reads a document file and builds the graph in one call.
func ReadGraphFile(path string, opts ...Option) (*Graph, error) {
	doc, err := ReadFile(path)
	if err != nil {
		return nil, err
	}
	return doc.Build(opts...)
}

// Marshal returns the compact JSON encoding of the document.
// The output is deterministic and is what layout cache keys are hashed from.
func (d Document) Marshal() ([]byte, error) {
	return json.Marshal(d)
}

// WriteDocument encodes the document to w in the given format.
func WriteDocument(w io.Writer, d Document, format string) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(d); err != nil {
			return fmt.Errorf("encode: %w", err)
		}
	case FormatYAML:
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(d); err != nil {
			return fmt.Errorf("encode: %w", err)
		}
		if err := enc.Close(); err != nil {
			return fmt.Errorf("encode: %w", err)
		}
		if _, err := w.Write(buf.Bytes()); err != nil {
			return err
		}
	default:
		return ferrors.New(ferrors.ErrCodeInvalidFormat, "unsupported graph format %q", format)
	}
	return nil
}
