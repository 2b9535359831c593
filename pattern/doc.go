// Package pattern defines the match rules a subscription can register
// against event names.
//
// Event names are plain dotted strings chosen by the instrumenting caller
// ("render.action_view", "sql.query"). A Pattern answers a single
// question: does this subscription want notifications published under a
// given name?
//
// Five rules are provided:
//
//	All()                  - matches every name
//	Exact("render")        - matches "render" only, not "render.extra"
//	Prefix("render")       - matches "render" and any "render.*" descendant
//	Glob("sql.*")          - wildcard matching ('*' and '?')
//	Regexp(re)             - full regular-expression matching
//
// All rules are case-sensitive. Pattern values are immutable and safe for
// concurrent use.
package pattern
