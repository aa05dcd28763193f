// Package body selects how an inbound request body is re-encoded for the
// upstream request.
package body

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"strings"
)

// ErrDecode is wrapped when a body cannot be decoded as its declared type.
var ErrDecode = errors.New("body decode failed")

// Kind is the body representation chosen for a content type.
type Kind int

// Kinds in canonical precedence order. Classify checks them top to bottom.
const (
	KindJSON Kind = iota
	KindText
	KindFormURLEncoded
	KindMultipart
	KindBinary
)

var kindNames = map[Kind]string{
	KindJSON:           "json",
	KindText:           "text",
	KindFormURLEncoded: "form-urlencoded",
	KindMultipart:      "multipart",
	KindBinary:         "binary",
}

func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

type rule struct {
	kind    Kind
	markers []string
}

// precedence is walked in order; the first rule with a matching marker wins.
var precedence = []rule{
	{KindJSON, []string{"application/json"}},
	{KindText, []string{"application/text", "text/html"}},
	{KindFormURLEncoded, []string{"application/x-www-form-urlencoded"}},
	{KindMultipart, []string{"multipart/form-data"}},
}

// Classify maps a content type to a Kind. Matching is a case-insensitive
// substring test so parameters like charset do not matter.
func Classify(contentType string) Kind {
	ct := strings.ToLower(contentType)
	for _, r := range precedence {
		for _, m := range r.markers {
			if strings.Contains(ct, m) {
				return r.kind
			}
		}
	}
	return KindBinary
}

// Body is an encoded outbound request body.
type Body struct {
	Kind Kind
	Data []byte
	// Overridden is set when the body came from a "_body" override.
	Overridden bool
}

// Reader returns a fresh reader over the body.
func (b *Body) Reader() io.Reader {
	return bytes.NewReader(b.Data)
}

// Len returns the body size in bytes.
func (b *Body) Len() int {
	return len(b.Data)
}

// Override builds the body for an explicit "_body" override. It bypasses
// content type dispatch entirely.
func Override(s string) *Body {
	return &Body{Kind: KindText, Data: []byte(s), Overridden: true}
}

type encoder func(contentType string, r io.Reader) ([]byte, error)

var encoders = map[Kind]encoder{
	KindJSON:           encodeJSON,
	KindText:           readAll,
	KindFormURLEncoded: readAll,
	KindMultipart:      encodeMultipart,
	KindBinary:         readAll,
}

// Encode reads r and re-encodes it according to contentType.
func Encode(contentType string, r io.Reader) (*Body, error) {
	kind := Classify(contentType)
	if r == nil {
		r = bytes.NewReader(nil)
	}
	data, err := encoders[kind](contentType, r)
	if err != nil {
		return nil, err
	}
	return &Body{Kind: kind, Data: data}, nil
}

func readAll(_ string, r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return data, nil
}

// encodeJSON parses the body and serializes it again. Numbers keep their
// exact text and HTML characters are not escaped.
func encodeJSON(_ string, r io.Reader) ([]byte, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("%w: json: %v", ErrDecode, err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("%w: json: unexpected data after top-level value", ErrDecode)
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("%w: json: %v", ErrDecode, err)
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// encodeMultipart reads every part and writes it again under the same
// boundary, so the declared content type still describes the new body.
func encodeMultipart(contentType string, r io.Reader) ([]byte, error) {
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return nil, fmt.Errorf("%w: multipart: %v", ErrDecode, err)
	}
	boundary := params["boundary"]
	if boundary == "" {
		return nil, fmt.Errorf("%w: multipart: missing boundary", ErrDecode)
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if err := w.SetBoundary(boundary); err != nil {
		return nil, fmt.Errorf("%w: multipart: %v", ErrDecode, err)
	}

	mr := multipart.NewReader(r, boundary)
	for {
		part, err := mr.NextRawPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: multipart: %v", ErrDecode, err)
		}

		pw, err := w.CreatePart(part.Header)
		if err != nil {
			return nil, fmt.Errorf("multipart: create part: %w", err)
		}
		if _, err := io.Copy(pw, part); err != nil {
			return nil, fmt.Errorf("%w: multipart: %v", ErrDecode, err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("multipart: close: %w", err)
	}
	return buf.Bytes(), nil
}
