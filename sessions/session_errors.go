package sessions

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingRegisteredClient is a fatal precondition failure: the stored
	// session references a client registration that no longer resolves.
	ErrMissingRegisteredClient = errors.New("registered client not found")
)

// decodePreviewLen bounds how much of an offending document a DecodeError
// carries.
const decodePreviewLen = 64

// DecodeError reports a malformed or unparseable stored session document. It
// wraps the original cause and carries a truncated preview of the document.
type DecodeError struct {
	Preview string
	Err     error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode session document (preview %q): %v", e.Preview, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

func newDecodeError(document []byte, err error) *DecodeError {
	preview := string(document)
	if len(preview) > decodePreviewLen {
		preview = preview[:decodePreviewLen] + "..."
	}
	return &DecodeError{Preview: preview, Err: err}
}
