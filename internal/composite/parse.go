// Package composite decodes the relay's composite request path into a target
// URL and an optional object of override headers.
//
// The path has the shape
//
//	/<percent-encoded: [overrides-json/]<target-url>>
//
// where overrides-json may itself be percent-encoded a second time.
package composite

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"cors-relay-go/internal/headers"
)

// ErrMalformed is wrapped by every error Parse returns.
var ErrMalformed = errors.New("malformed composite URL")

// ParsedRequest is the decoded form of a composite URL.
type ParsedRequest struct {
	// URLBody is the percent-decoded path, kept for diagnostics.
	URLBody   string
	TargetURL string
	Overrides *headers.Ordered
}

// Parse decodes rawURL, the full inbound URL including the relay's own
// scheme and host. It extracts structure only; the target is not validated.
func Parse(rawURL string) (*ParsedRequest, error) {
	body, err := urlBody(rawURL)
	if err != nil {
		return nil, err
	}

	split := splitIndex(body)
	target := body[split+1:]
	if target == "" {
		return nil, fmt.Errorf("%w: invalid real URL: %s", ErrMalformed, body)
	}

	pr := &ParsedRequest{
		URLBody:   body,
		TargetURL: target,
		Overrides: &headers.Ordered{},
	}
	if split <= 0 {
		return pr, nil
	}

	overrides, err := parseOverrides(body[:split])
	if err != nil {
		return nil, err
	}
	pr.Overrides = overrides
	return pr, nil
}

// urlBody strips the relay's scheme and host and percent-decodes the rest.
func urlBody(rawURL string) (string, error) {
	rest := rawURL
	if i := strings.Index(rest, "://"); i >= 0 {
		rest = rest[i+len("://"):]
	}
	if i := strings.Index(rest, "/"); i >= 0 {
		rest = rest[i+1:]
	}

	decoded, err := url.PathUnescape(rest)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return decoded, nil
}

// splitIndex returns the index of the last "/" before the first "://", so a
// prefix that contains slashes can precede the target. Without "://" only a
// leading "/" counts. It returns -1 when there is no prefix separator.
func splitIndex(body string) int {
	scheme := strings.Index(body, "://")
	if scheme < 0 {
		if strings.HasPrefix(body, "/") {
			return 0
		}
		return -1
	}
	return strings.LastIndex(body[:scheme], "/")
}

func parseOverrides(prefix string) (*headers.Ordered, error) {
	if !strings.HasPrefix(prefix, "{") {
		decoded, err := url.PathUnescape(prefix)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid URL headers string: %s", ErrMalformed, prefix)
		}
		prefix = decoded
	}
	if !strings.HasPrefix(prefix, "{") {
		return nil, fmt.Errorf("%w: invalid URL headers string: %s", ErrMalformed, prefix)
	}

	overrides, err := decodeObject(prefix)
	if err != nil {
		return nil, fmt.Errorf("%w: headers JSON: %v", ErrMalformed, err)
	}
	return overrides, nil
}

// decodeObject decodes a flat JSON object of string values, keeping key order.
func decodeObject(s string) (*headers.Ordered, error) {
	dec := json.NewDecoder(strings.NewReader(s))

	if err := expectDelim(dec, '{'); err != nil {
		return nil, err
	}

	out := &headers.Ordered{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected token %v", tok)
		}

		tok, err = dec.Token()
		if err != nil {
			return nil, err
		}
		value, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("value of %q must be a string", key)
		}
		out.Set(key, value)
	}

	if err := expectDelim(dec, '}'); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.New("unexpected data after headers object")
	}
	return out, nil
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return fmt.Errorf("expected %q, got %v", want, tok)
	}
	return nil
}
