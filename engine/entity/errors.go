package entity

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/protoworld/protoworld/engine/attrs"
)

// ErrorKind classifies the failures of the object model
type ErrorKind int

const (
	// ConfigError is a malformed attribute declaration
	ConfigError ErrorKind = iota + 1
	// SchemaError is a document that does not match the target object
	SchemaError
	// IdentityError is a class, version or id mismatch
	IdentityError
	// UnsupportedValueError is a value the serializer cannot represent
	UnsupportedValueError
	// InvalidEntityError is an access to a removed or placeholder entity
	InvalidEntityError
)

var errorKindNames = map[ErrorKind]string{
	ConfigError:           "config error",
	SchemaError:           "schema error",
	IdentityError:         "identity error",
	UnsupportedValueError: "unsupported value",
	InvalidEntityError:    "invalid entity",
}

func (k ErrorKind) String() string {
	if s, ok := errorKindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// Sentinels for errors.Is
var (
	ErrConfig           = &Error{Kind: ConfigError}
	ErrSchema           = &Error{Kind: SchemaError}
	ErrIdentity         = &Error{Kind: IdentityError}
	ErrUnsupportedValue = &Error{Kind: UnsupportedValueError}
	ErrInvalidEntity    = &Error{Kind: InvalidEntityError}
)

// Error is the error type of serialization, deserialization and registry operations
type Error struct {
	Kind     ErrorKind
	Class    string
	Property string
	File     string
	Msg      string
}

func (e *Error) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Kind.String())
	if e.Class != "" || e.Property != "" {
		sb.WriteString(": ")
		sb.WriteString(e.Class)
		if e.Property != "" {
			if e.Class != "" {
				sb.WriteString(".")
			}
			sb.WriteString(e.Property)
		}
	}
	if e.Msg != "" {
		sb.WriteString(": ")
		sb.WriteString(e.Msg)
	}
	if e.File != "" {
		fmt.Fprintf(&sb, " (file %s)", e.File)
	}
	return sb.String()
}

// Is matches any *Error of the same kind, so errors.Is(err, ErrSchema) works
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

func newError(kind ErrorKind, class, prop string, format string, args ...interface{}) *Error {
	return &Error{
		Kind:     kind,
		Class:    class,
		Property: prop,
		Msg:      fmt.Sprintf(format, args...),
	}
}

// KindOf returns the ErrorKind of err, or 0 if err is not an *Error
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// WithFile attaches the path of the document that failed to load
func WithFile(err error, file string) error {
	if err == nil || file == "" {
		return err
	}
	var e *Error
	if errors.As(err, &e) && e.File == "" {
		ce := *e
		ce.File = file
		return &ce
	}
	return errors.Wrap(err, file)
}

func fromConfigError(err error) error {
	var ce *attrs.ConfigError
	if errors.As(err, &ce) {
		return &Error{Kind: ConfigError, Class: ce.Class, Property: ce.Property, Msg: ce.Reason}
	}
	return err
}
