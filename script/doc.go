// Package script compiles Lua expressions into beacon subscription
// filters.
//
// A filter expression is evaluated once per candidate notification with
// two globals in scope: name (the event name, a string) and payload (the
// event payload, converted to a Lua table). The expression must evaluate
// to a boolean; true delivers the notification.
//
//	f, err := script.NewFilter(`name == "sql.query" and payload.rows > 100`)
//	if err != nil { ... }
//	defer f.Close()
//	n.Subscribe(nil, handler, beacon.WithFilter(f.Func()))
//
// The Lua state is sandboxed: only the base, table, string, and math
// libraries are available. An expression that raises an error rejects
// the notification.
package script
