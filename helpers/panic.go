package helpers

import "reflect"

// StrPanic panics with panicMessage if p is empty; otherwise returns p. Used for
// fail-fast validation of required config strings (base URL, network name, etc.).
//
// Parameters: p — string to check; panicMessage — value passed to panic.
//
// Returns: p unchanged when non-empty.
//
// Called from constructors (adapters.RouteTableHTTP, handlers.NewHTTPServer and others).
func StrPanic(p string, panicMessage string) string {
	if p == "" {
		panic(panicMessage)
	}
	return p
}

// NilPanic panics with panicMessage if v is nil (nil interface, pointer, slice, map,
// chan or func — checked via reflect); otherwise returns v.
//
// Parameters: v — value to check; panicMessage — panic value.
//
// Returns: v unchanged when non-nil.
//
// Called from service and adapter constructors when validating required dependencies.
func NilPanic[T any](v T, panicMessage string) T {
	if isNil(v) {
		panic(panicMessage)
	}
	return v
}

// isNil returns true if v is nil or a nil pointer/slice/map/chan/func/interface.
// Used only in NilPanic for types where plain v == nil is insufficient.
func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Slice, reflect.Map, reflect.Chan, reflect.Func, reflect.Interface:
		return rv.IsNil()
	default:
		return false
	}
}
