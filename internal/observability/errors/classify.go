package errors

import (
	goerrors "errors"
	"reflect"
	"strings"

	apperrors "github.com/scoutline/scout-api/internal/errors"
)

// Classify returns a normalized error class suitable for tagging metrics and
// logs. Application errors classify by their error code; anything else falls
// back to the innermost concrete type name.
func Classify(err error) string {
	if err == nil {
		return ""
	}

	var app *apperrors.AppError
	if goerrors.As(err, &app) {
		return string(app.Code)
	}

	// Unwrap to the innermost error for better signal.
	for {
		unwrapped := goerrors.Unwrap(err)
		if unwrapped == nil {
			break
		}
		err = unwrapped
	}

	t := reflect.TypeOf(err)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil {
		return "unknown"
	}

	name := strings.ToLower(strings.ReplaceAll(t.String(), "*", ""))
	name = strings.ReplaceAll(name, ".", "_")
	if name == "" {
		return "unknown"
	}
	return name
}
