// Package headers reconciles inbound, CORS and override headers for the relay.
package headers

import (
	"net/http"
	"strings"
)

// Ordered is an insertion-ordered string map with case-sensitive keys.
// The zero value is ready to use.
type Ordered struct {
	keys   []string
	values map[string]string
}

// NewOrdered returns an Ordered holding the given key/value pairs in order.
// kv must have an even length.
func NewOrdered(kv ...string) *Ordered {
	o := &Ordered{}
	for i := 0; i+1 < len(kv); i += 2 {
		o.Set(kv[i], kv[i+1])
	}
	return o
}

// Set stores value under key. An existing key keeps its position.
func (o *Ordered) Set(key, value string) {
	if o.values == nil {
		o.values = make(map[string]string)
	}
	if _, ok := o.values[key]; !ok {
		o.keys = append(o.keys, key)
	}
	o.values[key] = value
}

// Get returns the value stored under key.
func (o *Ordered) Get(key string) (string, bool) {
	if o == nil {
		return "", false
	}
	v, ok := o.values[key]
	return v, ok
}

// Del removes key.
func (o *Ordered) Del(key string) {
	if o == nil {
		return
	}
	if _, ok := o.values[key]; !ok {
		return
	}
	delete(o.values, key)
	for i, k := range o.keys {
		if k == key {
			o.keys = append(o.keys[:i], o.keys[i+1:]...)
			break
		}
	}
}

// Len returns the number of keys.
func (o *Ordered) Len() int {
	if o == nil {
		return 0
	}
	return len(o.keys)
}

// Each calls fn for every pair in insertion order.
func (o *Ordered) Each(fn func(key, value string)) {
	if o == nil {
		return
	}
	for _, k := range o.keys {
		fn(k, o.values[k])
	}
}

// Merge applies every pair of other on top of o, in other's order.
// On collision the value from other wins.
func (o *Ordered) Merge(other *Ordered) {
	other.Each(o.Set)
}

// Map returns the pairs as a plain map.
func (o *Ordered) Map() map[string]string {
	m := make(map[string]string, o.Len())
	o.Each(func(k, v string) { m[k] = v })
	return m
}

// Header converts o to an http.Header. Keys that differ only in case are
// combined under one canonical key, the way a fetch Headers object joins them.
func (o *Ordered) Header() http.Header {
	h := make(http.Header, o.Len())
	o.Each(h.Add)
	return h
}

// Apply sets every pair on dst, replacing values under the same canonical key.
// Keys are written verbatim so lowercased names stay lowercased on the wire.
func (o *Ordered) Apply(dst http.Header) {
	o.Each(func(k, v string) {
		for existing := range dst {
			if existing != k && strings.EqualFold(existing, k) {
				delete(dst, existing)
			}
		}
		dst[k] = []string{v}
	})
}
