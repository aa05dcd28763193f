package headers

import (
	"net/http"
	"slices"
	"strings"
)

// Reserved override keys. They steer the outbound method and body and are
// never sent as headers.
const (
	MethodOverrideKey = "_method"
	BodyOverrideKey   = "_body"
)

const (
	allowedMethods      = "GET, POST, PUT, PATCH, DELETE, OPTIONS"
	defaultAllowHeaders = "Accept, Authorization, Cache-Control, Content-Type, DNT, If-Modified-Since, Keep-Alive, Origin, User-Agent, X-Requested-With, Token, x-access-token"
)

// excludedInbound are inbound header names (lowercased) left out of the
// generic merge. The transport recomputes content-length; content-type is
// re-added explicitly for bodied verbs.
var excludedInbound = []string{"content-length", "content-type"}

// passthroughHeaders are the upstream response headers relayed to the client.
var passthroughHeaders = []string{
	"subscription-userinfo",
	"profile-update-interval",
	"profile-title",
	"content-disposition",
}

// CORS returns the headers attached to every non-preflight response.
// requestedAllowHeaders is the inbound Access-Control-Allow-Headers value;
// when empty a default list is used.
func CORS(requestedAllowHeaders string) *Ordered {
	allow := requestedAllowHeaders
	if allow == "" {
		allow = defaultAllowHeaders
	}
	return NewOrdered(
		"Access-Control-Allow-Origin", "*",
		"Access-Control-Allow-Methods", allowedMethods,
		"Access-Control-Allow-Headers", allow,
	)
}

// Preflight returns the fixed header set for OPTIONS requests.
func Preflight() *Ordered {
	return NewOrdered(
		"Access-Control-Allow-Credentials", "true",
		"Access-Control-Allow-Headers", "*",
		"Access-Control-Allow-Methods", "*",
		"Access-Control-Allow-Origin", "*",
		"Access-Control-Max-Age", "31536000",
		"X-Request-Type", "CORS Preflight",
	)
}

// Outbound builds the upstream request headers. Inbound headers come first
// with lowercased names, minus content-length and content-type. Overrides are
// merged on top with their keys exactly as given. When bodied is set and the
// inbound request declared a content type, it is restored as "content-type".
func Outbound(inbound http.Header, overrides *Ordered, bodied bool) *Ordered {
	out := &Ordered{}

	keys := make([]string, 0, len(inbound))
	for k := range inbound {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	for _, k := range keys {
		name := strings.ToLower(k)
		if slices.Contains(excludedInbound, name) {
			continue
		}
		out.Set(name, strings.Join(inbound[k], ", "))
	}

	out.Merge(overrides)
	out.Del(MethodOverrideKey)
	out.Del(BodyOverrideKey)

	if bodied {
		if ct := inbound.Get("Content-Type"); ct != "" {
			out.Set("content-type", ct)
		}
	}
	return out
}

// Passthrough selects the curated upstream response headers, looked up
// case-insensitively and returned with lowercased names. Absent headers are
// omitted.
func Passthrough(upstream http.Header) *Ordered {
	out := &Ordered{}
	for _, name := range passthroughHeaders {
		if v := upstream.Get(name); v != "" {
			out.Set(name, v)
		}
	}
	return out
}
