package headers

import (
	"net/http"
	"slices"
	"testing"
)

// keysOf lists the keys of o in insertion order.
func keysOf(o *Ordered) []string {
	var keys []string
	o.Each(func(k, _ string) { keys = append(keys, k) })
	return keys
}

func has(o *Ordered, key string) bool {
	_, ok := o.Get(key)
	return ok
}

func TestOrdered_SetKeepsPosition(t *testing.T) {
	o := NewOrdered("a", "1", "b", "2", "c", "3")
	o.Set("b", "20")

	if got, want := keysOf(o), []string{"a", "b", "c"}; !slices.Equal(got, want) {
		t.Errorf("keys = %v, want %v", got, want)
	}
	if v, _ := o.Get("b"); v != "20" {
		t.Errorf("Get(b) = %q, want %q", v, "20")
	}
}

func TestOrdered_CaseSensitive(t *testing.T) {
	o := NewOrdered("accept", "text/html")
	o.Set("Accept", "application/json")

	if o.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", o.Len())
	}
	h := o.Header()
	if got := h.Values("Accept"); len(got) != 2 {
		t.Errorf("Header().Values(Accept) = %v, want both values", got)
	}
}

func TestOrdered_Del(t *testing.T) {
	o := NewOrdered("a", "1", "b", "2")
	o.Del("a")
	o.Del("missing")

	if got, want := keysOf(o), []string{"b"}; !slices.Equal(got, want) {
		t.Errorf("keys = %v, want %v", got, want)
	}
	if has(o, "a") {
		t.Error("a still present after Del")
	}
}

func TestOrdered_MergeOverrideWins(t *testing.T) {
	base := NewOrdered("x", "1", "y", "2")
	base.Merge(NewOrdered("y", "override", "z", "3"))

	want := map[string]string{"x": "1", "y": "override", "z": "3"}
	got := base.Map()
	for k, v := range want {
		if got[k] != v {
			t.Errorf("%s = %q, want %q", k, got[k], v)
		}
	}
	if keys := keysOf(base); !slices.Equal(keys, []string{"x", "y", "z"}) {
		t.Errorf("keys = %v", keys)
	}
}

func TestOrdered_NilSafe(t *testing.T) {
	var o *Ordered
	if o.Len() != 0 || has(o, "x") || keysOf(o) != nil {
		t.Error("nil Ordered should behave as empty")
	}
	c := NewOrdered("a", "1")
	c.Merge(o)
	if c.Len() != 1 {
		t.Errorf("Len() = %d, want 1", c.Len())
	}
}

func TestOrdered_Apply(t *testing.T) {
	dst := http.Header{"Content-Type": {"text/plain"}}
	NewOrdered("content-type", "application/json", "profile-title", "demo").Apply(dst)

	if _, ok := dst["Content-Type"]; ok {
		t.Error("canonical Content-Type should be replaced by lowercased key")
	}
	if got := dst["content-type"]; len(got) != 1 || got[0] != "application/json" {
		t.Errorf("content-type = %v", got)
	}
	if got := dst["profile-title"]; len(got) != 1 || got[0] != "demo" {
		t.Errorf("profile-title = %v", got)
	}
}

func TestCORS(t *testing.T) {
	tests := []struct {
		name      string
		requested string
		want      string
	}{
		{"default allow headers", "", defaultAllowHeaders},
		{"echoes requested", "X-Custom, Authorization", "X-Custom, Authorization"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := CORS(tt.requested)
			if v, _ := h.Get("Access-Control-Allow-Origin"); v != "*" {
				t.Errorf("Allow-Origin = %q", v)
			}
			if v, _ := h.Get("Access-Control-Allow-Methods"); v != "GET, POST, PUT, PATCH, DELETE, OPTIONS" {
				t.Errorf("Allow-Methods = %q", v)
			}
			if v, _ := h.Get("Access-Control-Allow-Headers"); v != tt.want {
				t.Errorf("Allow-Headers = %q, want %q", v, tt.want)
			}
		})
	}
}

func TestPreflight(t *testing.T) {
	want := map[string]string{
		"Access-Control-Allow-Credentials": "true",
		"Access-Control-Allow-Headers":     "*",
		"Access-Control-Allow-Methods":     "*",
		"Access-Control-Allow-Origin":      "*",
		"Access-Control-Max-Age":           "31536000",
	}
	h := Preflight()
	for k, v := range want {
		if got, _ := h.Get(k); got != v {
			t.Errorf("%s = %q, want %q", k, got, v)
		}
	}
}

func TestOutbound(t *testing.T) {
	inbound := http.Header{
		"Accept":         {"application/json"},
		"Content-Type":   {"application/json; charset=utf-8"},
		"Content-Length": {"42"},
		"Authorization":  {"Bearer inbound"},
		"X-Multi":        {"a", "b"},
	}

	t.Run("GET drops content headers", func(t *testing.T) {
		out := Outbound(inbound, nil, false)

		if has(out, "content-type") || has(out, "content-length") {
			t.Errorf("content headers leaked: %v", keysOf(out))
		}
		if v, _ := out.Get("accept"); v != "application/json" {
			t.Errorf("accept = %q", v)
		}
		if v, _ := out.Get("x-multi"); v != "a, b" {
			t.Errorf("x-multi = %q, want %q", v, "a, b")
		}
	})

	t.Run("bodied verb restores content-type", func(t *testing.T) {
		out := Outbound(inbound, nil, true)

		if v, _ := out.Get("content-type"); v != "application/json; charset=utf-8" {
			t.Errorf("content-type = %q", v)
		}
		if has(out, "content-length") {
			t.Error("content-length must never be forwarded")
		}
	})

	t.Run("bodied verb without content-type", func(t *testing.T) {
		out := Outbound(http.Header{"Accept": {"*/*"}}, nil, true)
		if has(out, "content-type") {
			t.Error("content-type should not be invented")
		}
	})

	t.Run("override wins and reserved keys are stripped", func(t *testing.T) {
		overrides := NewOrdered(
			"authorization", "Bearer override",
			"X-Extra", "1",
			MethodOverrideKey, "put",
			BodyOverrideKey, "payload",
		)
		out := Outbound(inbound, overrides, false)

		if v, _ := out.Get("authorization"); v != "Bearer override" {
			t.Errorf("authorization = %q, want override", v)
		}
		if v, _ := out.Get("X-Extra"); v != "1" {
			t.Errorf("X-Extra = %q", v)
		}
		if has(out, MethodOverrideKey) || has(out, BodyOverrideKey) {
			t.Error("reserved override keys must not become headers")
		}
	})

	t.Run("override keys are case-sensitive", func(t *testing.T) {
		out := Outbound(http.Header{"Accept": {"text/html"}}, NewOrdered("Accept", "text/plain"), false)
		if v, _ := out.Get("accept"); v != "text/html" {
			t.Errorf("accept = %q", v)
		}
		if v, _ := out.Get("Accept"); v != "text/plain" {
			t.Errorf("Accept = %q", v)
		}
	})
}

func TestPassthrough(t *testing.T) {
	upstream := http.Header{}
	upstream.Set("Subscription-Userinfo", "upload=1; download=2")
	upstream.Set("Profile-Title", "demo")
	upstream.Set("Set-Cookie", "session=abc")

	out := Passthrough(upstream)

	if got, want := keysOf(out), []string{"subscription-userinfo", "profile-title"}; !slices.Equal(got, want) {
		t.Errorf("keys = %v, want %v", got, want)
	}
	if v, _ := out.Get("subscription-userinfo"); v != "upload=1; download=2" {
		t.Errorf("subscription-userinfo = %q", v)
	}
	if has(out, "set-cookie") {
		t.Error("set-cookie must not pass through")
	}
}

func TestPassthrough_NoneUpstream(t *testing.T) {
	if out := Passthrough(http.Header{}); out.Len() != 0 {
		t.Errorf("Len() = %d, want 0", out.Len())
	}
}
