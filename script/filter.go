package script

import (
	"errors"
	"fmt"
	"sync"
	"time"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/beacon"
)

// ErrFilterClosed is returned when evaluating a closed filter.
var ErrFilterClosed = errors.New("filter is closed")

// Filter is a compiled Lua filter expression.
//
// gopher-lua states are not goroutine-safe; Filter serializes
// evaluations with a mutex, so one Filter may back subscriptions on
// multiple notifiers at the cost of contention. Compile separate Filters
// for hot concurrent paths.
type Filter struct {
	mu     sync.Mutex
	state  *lua.LState
	fn     *lua.LFunction
	source string
	closed bool
}

// NewFilter compiles source into a filter. Source is a Lua expression
// ("payload.rows > 0") or a chunk ending in a return statement.
func NewFilter(source string) (*Filter, error) {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	openSafeLibraries(L)

	fn, err := L.LoadString("return (" + source + ")")
	if err != nil {
		// Not an expression; try as a full chunk.
		fn, err = L.LoadString(source)
		if err != nil {
			L.Close()
			return nil, fmt.Errorf("compiling filter: %w", err)
		}
	}

	return &Filter{state: L, fn: fn, source: source}, nil
}

// openSafeLibraries opens only Lua libraries safe for filter evaluation.
// io, os, debug, and package stay closed.
func openSafeLibraries(L *lua.LState) {
	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)
}

// Source returns the filter's source text.
func (f *Filter) Source() string {
	return f.source
}

// Func returns the filter as a beacon.FilterFunc.
func (f *Filter) Func() beacon.FilterFunc {
	return func(name string, payload beacon.Payload) bool {
		ok, err := f.Eval(name, payload)
		return err == nil && ok
	}
}

// Eval evaluates the filter against one notification.
func (f *Filter) Eval(name string, payload beacon.Payload) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return false, ErrFilterClosed
	}

	L := f.state
	L.SetGlobal("name", lua.LString(name))
	L.SetGlobal("payload", toLValue(L, map[string]any(payload)))

	L.Push(f.fn)
	if err := L.PCall(0, 1, nil); err != nil {
		return false, fmt.Errorf("evaluating filter: %w", err)
	}

	ret := L.Get(-1)
	L.Pop(1)
	return lua.LVAsBool(ret), nil
}

// Close releases the underlying Lua state.
func (f *Filter) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.closed {
		f.state.Close()
		f.closed = true
	}
}

// toLValue converts a Go value into a Lua value. Maps and slices convert
// to tables; unsupported types convert to their string form.
func toLValue(L *lua.LState, v any) lua.LValue {
	switch val := v.(type) {
	case nil:
		return lua.LNil
	case bool:
		return lua.LBool(val)
	case string:
		return lua.LString(val)
	case int:
		return lua.LNumber(val)
	case int32:
		return lua.LNumber(val)
	case int64:
		return lua.LNumber(val)
	case uint64:
		return lua.LNumber(val)
	case float32:
		return lua.LNumber(val)
	case float64:
		return lua.LNumber(val)
	case time.Duration:
		return lua.LNumber(val.Seconds())
	case time.Time:
		return lua.LNumber(float64(val.UnixNano()) / 1e9)
	case beacon.Payload:
		return toLValue(L, map[string]any(val))
	case map[string]any:
		tbl := L.NewTable()
		for k, item := range val {
			tbl.RawSetString(k, toLValue(L, item))
		}
		return tbl
	case []any:
		tbl := L.NewTable()
		for _, item := range val {
			tbl.Append(toLValue(L, item))
		}
		return tbl
	case error:
		return lua.LString(val.Error())
	default:
		return lua.LString(fmt.Sprint(val))
	}
}
