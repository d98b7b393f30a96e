package versioned

import (
	"errors"
	"fmt"
	"go/token"

	"github.com/albertocavalcante/go-versioned/filter"
	"github.com/albertocavalcante/go-versioned/tag"
)

// Sentinel errors for module-level failures. Failures inside tags wrap the
// sentinels of the tag and version packages instead.
var (
	// ErrEmptyModule indicates a module without any declarations.
	ErrEmptyModule = errors.New("module has no declarations")

	// ErrMissingDirective indicates that no target versions were given and
	// the module carries no directive listing them.
	ErrMissingDirective = errors.New("missing module directive")

	// ErrSyntax indicates that the module source is not valid Go.
	ErrSyntax = errors.New("syntax error")
)

// directiveName is the directive as users write it, used in error text.
const directiveName = "//" + tag.Marker

// Error is the single error kind returned by Generate and Emit. Its text
// names the position and cause; errors.Is reaches the wrapped sentinel.
type Error struct {
	Pos     token.Position
	Message string
	Wrapped error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s while using the %s directive", e.Message, directiveName)
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s: %s", e.Pos, msg)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Wrapped
}

// newError wraps err at pos, taking the position of filter errors when they
// carry one.
func newError(pos token.Position, err error) *Error {
	var existing *Error
	if errors.As(err, &existing) {
		return existing
	}
	var filterErr *filter.Error
	if errors.As(err, &filterErr) {
		if filterErr.Pos.IsValid() {
			pos = filterErr.Pos
		}
		err = filterErr.Err
	}
	return &Error{Pos: pos, Message: err.Error(), Wrapped: err}
}
