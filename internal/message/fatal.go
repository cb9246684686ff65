package message

import "errors"

type fatalError struct {
	err error
}

func (e *fatalError) Error() string { return e.err.Error() }
func (e *fatalError) Unwrap() error { return e.err }

// Fatal marks err as non-retryable. Transports drop such messages after
// logging them instead of redelivering.
func Fatal(err error) error {
	if err == nil {
		return nil
	}
	return &fatalError{err: err}
}

func IsFatal(err error) bool {
	var fe *fatalError
	return errors.As(err, &fe)
}
