package beacon

import (
	"encoding/json"
	"strings"

	"github.com/tidwall/gjson"
)

// Common filter predicates for event subscriptions.

// FilterPrefix allows only events whose name starts with the given
// dotted prefix. Segment-aware: "render" matches "render.view" but not
// "renderer".
func FilterPrefix(prefix string) FilterFunc {
	return func(name string, _ Payload) bool {
		if !strings.HasPrefix(name, prefix) {
			return false
		}
		return len(name) == len(prefix) || name[len(prefix)] == '.'
	}
}

// FilterPayloadKey allows only events whose payload contains the key.
func FilterPayloadKey(key string) FilterFunc {
	return func(_ string, p Payload) bool {
		_, ok := p[key]
		return ok
	}
}

// FilterPayloadEquals allows only events whose payload value under key
// equals want (==, so comparable values only).
func FilterPayloadEquals(key string, want any) FilterFunc {
	return func(_ string, p Payload) bool {
		return p[key] == want
	}
}

// FilterFailed allows only events whose payload recorded a block failure.
func FilterFailed() FilterFunc {
	return FilterPayloadKey(ErrorKey)
}

// FilterPayloadPath allows only events whose payload, serialized as JSON,
// has a value at the given gjson path equal to want's string form.
//
// Paths reach into nested payload values: FilterPayloadPath("db.rows",
// "0") matches a payload {"db": {"rows": 0}}. Payload values that cannot
// be serialized are treated as non-matching.
func FilterPayloadPath(path, want string) FilterFunc {
	return func(_ string, p Payload) bool {
		data, err := json.Marshal(p)
		if err != nil {
			return false
		}
		res := gjson.GetBytes(data, path)
		return res.Exists() && res.String() == want
	}
}

// FilterAll composes filters with AND semantics.
func FilterAll(filters ...FilterFunc) FilterFunc {
	return func(name string, p Payload) bool {
		for _, f := range filters {
			if !f(name, p) {
				return false
			}
		}
		return true
	}
}

// FilterAny composes filters with OR semantics.
func FilterAny(filters ...FilterFunc) FilterFunc {
	return func(name string, p Payload) bool {
		for _, f := range filters {
			if f(name, p) {
				return true
			}
		}
		return false
	}
}

// FilterNot inverts a filter.
func FilterNot(f FilterFunc) FilterFunc {
	return func(name string, p Payload) bool {
		return !f(name, p)
	}
}
