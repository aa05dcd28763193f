package service

import (
	"fmt"
)

// MalformedInputError reports a composite URL that cannot be decoded, or a
// decoded target that fails basic shape checks.
type MalformedInputError struct {
	Input string
	Err   error
}

func (e *MalformedInputError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed input %q: %v", e.Input, e.Err)
	}
	return fmt.Sprintf("malformed input %q", e.Input)
}

func (e *MalformedInputError) Unwrap() error { return e.Err }

// BodyDecodeError reports a request body that does not match its declared
// content type.
type BodyDecodeError struct {
	ContentType string
	Err         error
}

func (e *BodyDecodeError) Error() string {
	return fmt.Sprintf("decode %q body: %v", e.ContentType, e.Err)
}

func (e *BodyDecodeError) Unwrap() error { return e.Err }

// DomainRejectedError reports a target host outside the allow-list.
type DomainRejectedError struct {
	Hostname string
}

func (e *DomainRejectedError) Error() string {
	return fmt.Sprintf("Access denied: domain '%s' is not in the allowed list", e.Hostname)
}

// UpstreamFetchError reports a network, DNS or connection failure reaching
// the target.
type UpstreamFetchError struct {
	URL string
	Err error
}

func (e *UpstreamFetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *UpstreamFetchError) Unwrap() error { return e.Err }

// WellKnownRedirect is returned for favicon.ico and robots.txt, which are
// answered with a redirect instead of being relayed.
type WellKnownRedirect struct {
	Target   string
	Location string
}

func (r *WellKnownRedirect) Error() string {
	return fmt.Sprintf("%s redirected to %s", r.Target, r.Location)
}
