package common

import (
	"errors"
)

// Gateway failures are classified as transient (a later attempt may succeed)
// or permanent. Only transient failures are retried.
var (
	ErrTransient = errors.New("transient gateway failure")
	ErrPermanent = errors.New("permanent gateway failure")
)

// classified keeps both the class sentinel and the provider cause reachable
// through errors.Is and errors.As.
type classified struct {
	class error
	cause error
}

func (c *classified) Error() string {
	return c.class.Error() + ": " + c.cause.Error()
}

func (c *classified) Unwrap() []error {
	return []error{c.class, c.cause}
}

// WrapTransient marks err as transient. A nil err yields ErrTransient.
func WrapTransient(err error) error {
	return wrap(ErrTransient, err)
}

// WrapPermanent marks err as permanent. A nil err yields ErrPermanent.
func WrapPermanent(err error) error {
	return wrap(ErrPermanent, err)
}

// IsTransient reports whether err was classified as transient.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransient)
}

func wrap(class, err error) error {
	if err == nil {
		return class
	}
	return &classified{class: class, cause: err}
}
