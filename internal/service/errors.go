package service

// designNotFoundError signals a request referencing an unknown design id.
type designNotFoundError struct{ id string }

func (e designNotFoundError) Error() string { return "design not found: " + e.id }

// ErrDesignNotFound constructs a designNotFoundError.
func ErrDesignNotFound(id string) error { return designNotFoundError{id: id} }

// IsDesignNotFound reports whether err indicates a missing design id.
func IsDesignNotFound(err error) bool {
	_, ok := err.(designNotFoundError)
	return ok
}

// invalidRequestError signals a malformed render request (bad quality
// name, missing source) so the HTTP layer can return 400.
type invalidRequestError struct{ msg string }

func (e invalidRequestError) Error() string { return e.msg }

// ErrInvalidRequest constructs an invalidRequestError.
func ErrInvalidRequest(msg string) error { return invalidRequestError{msg: msg} }

// IsInvalidRequest reports whether err indicates a caller input error.
func IsInvalidRequest(err error) bool {
	_, ok := err.(invalidRequestError)
	return ok
}
