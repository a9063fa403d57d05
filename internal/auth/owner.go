package auth

import (
	"fmt"
	"reflect"
)

// hexer is implemented by database identifiers whose canonical string form
// is hexadecimal (bson ObjectIDs). Their String method decorates the value,
// so Hex is preferred.
type hexer interface {
	Hex() string
}

// IsOwner reports whether the session user owns a resource whose stored
// author is authorID.
//
// It is true iff both values are present and their string forms are equal,
// so an id held as a string and the same id held as a driver-specific type
// compare equal. A missing author is owned by nobody. Callers must reject
// anonymous requests before asking.
func IsOwner(sessionUserID, authorID any) bool {
	a, ok := idString(sessionUserID)
	if !ok {
		return false
	}
	b, ok := idString(authorID)
	if !ok {
		return false
	}
	return a == b
}

// idString returns the string form of an identifier, or false when the
// value is absent.
func idString(v any) (string, bool) {
	if v == nil {
		return "", false
	}
	if rv := reflect.ValueOf(v); rv.Kind() == reflect.Pointer && rv.IsNil() {
		return "", false
	}

	var s string
	switch x := v.(type) {
	case string:
		s = x
	case *string:
		s = *x
	case hexer:
		s = x.Hex()
	case fmt.Stringer:
		s = x.String()
	default:
		s = fmt.Sprint(x)
	}
	return s, s != ""
}
