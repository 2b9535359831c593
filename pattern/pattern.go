package pattern

import (
	"regexp"
	"strings"

	"github.com/tidwall/match"
)

// Separator is the character separating segments of an event name.
const Separator = "."

// Pattern is a match rule applied to event names.
type Pattern interface {
	// Matches reports whether the rule accepts the event name.
	Matches(name string) bool

	// String returns a human-readable form of the rule.
	String() string
}

// all matches every event name.
type all struct{}

// All returns a pattern that matches every event name.
func All() Pattern {
	return all{}
}

func (all) Matches(string) bool { return true }
func (all) String() string      { return "*" }

// exact matches one event name verbatim.
type exact string

// Exact returns a pattern that matches name verbatim and nothing else.
// Exact("render") does not match "render.extra".
func Exact(name string) Pattern {
	return exact(name)
}

func (e exact) Matches(name string) bool { return string(e) == name }
func (e exact) String() string           { return string(e) }

// prefix matches a name and all of its dotted descendants.
type prefix string

// Prefix returns a pattern matching p itself and any name nested under it.
// Matching is segment-aware: Prefix("render") matches "render.view" but
// not "renderer".
func Prefix(p string) Pattern {
	return prefix(p)
}

func (p prefix) Matches(name string) bool {
	s := string(p)
	if s == "" {
		return true
	}
	if !strings.HasPrefix(name, s) {
		return false
	}
	if len(name) == len(s) {
		return true
	}
	return name[len(s)] == '.'
}

func (p prefix) String() string { return string(p) + Separator + "**" }

// glob matches with '*' and '?' wildcards.
type glob string

// Glob returns a wildcard pattern. '*' matches any run of characters
// (including separators) and '?' matches any single character.
func Glob(expr string) Pattern {
	return glob(expr)
}

func (g glob) Matches(name string) bool { return match.Match(name, string(g)) }
func (g glob) String() string           { return string(g) }

// rePattern matches against a compiled regular expression.
type rePattern struct {
	re *regexp.Regexp
}

// Regexp returns a pattern backed by re. A nil re matches nothing.
func Regexp(re *regexp.Regexp) Pattern {
	return rePattern{re: re}
}

func (r rePattern) Matches(name string) bool {
	if r.re == nil {
		return false
	}
	return r.re.MatchString(name)
}

func (r rePattern) String() string {
	if r.re == nil {
		return "<nil>"
	}
	return r.re.String()
}

// Compile builds a pattern from a textual rule, the form used by
// configuration files. Rules:
//
//	""            -> All
//	"name.**"     -> Prefix("name")
//	contains * or ? -> Glob
//	"~expr"       -> Regexp (expr compiled; error on bad syntax)
//	anything else -> Exact
func Compile(rule string) (Pattern, error) {
	switch {
	case rule == "" || rule == "*":
		return All(), nil
	case strings.HasPrefix(rule, "~"):
		re, err := regexp.Compile(rule[1:])
		if err != nil {
			return nil, err
		}
		return Regexp(re), nil
	case strings.HasSuffix(rule, Separator+"**"):
		return Prefix(strings.TrimSuffix(rule, Separator+"**")), nil
	case strings.ContainsAny(rule, "*?"):
		return Glob(rule), nil
	default:
		return Exact(rule), nil
	}
}

// Segments splits an event name on the separator.
func Segments(name string) []string {
	if name == "" {
		return nil
	}
	return strings.Split(name, Separator)
}

// Valid reports whether name is a well-formed event name: non-empty, no
// leading/trailing separator, no empty segments.
func Valid(name string) bool {
	if name == "" {
		return false
	}
	if strings.HasPrefix(name, Separator) || strings.HasSuffix(name, Separator) {
		return false
	}
	return !strings.Contains(name, Separator+Separator)
}
