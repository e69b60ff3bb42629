package pager

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/acctql/internal/model"
)

// cursorPrefix tags encoded cursors so arbitrary base64 is not accepted.
const cursorPrefix = "cursor:"

// ErrCodeInvalidCursor identifies a cursor that cannot be decoded.
const ErrCodeInvalidCursor = "INVALID_CURSOR"

// CursorError reports a cursor that is not a valid encoding of a key.
type CursorError struct {
	Cursor string
	Reason string
}

// Error implements the error interface.
func (e *CursorError) Error() string {
	return fmt.Sprintf("%s: %s (cursor=%q)", ErrCodeInvalidCursor, e.Reason, e.Cursor)
}

// IsCursorError reports whether err is or wraps a CursorError.
func IsCursorError(err error) bool {
	var ce *CursorError
	return errors.As(err, &ce)
}

// EncodeCursor returns the opaque cursor for key.
// Equal keys always encode to equal cursors.
func EncodeCursor(key model.Key) string {
	return base64.StdEncoding.EncodeToString([]byte(cursorPrefix + key))
}

// DecodeCursor reverses EncodeCursor.
func DecodeCursor(cursor string) (model.Key, error) {
	raw, err := base64.StdEncoding.DecodeString(cursor)
	if err != nil {
		return "", &CursorError{Cursor: cursor, Reason: "not base64"}
	}
	key, ok := strings.CutPrefix(string(raw), cursorPrefix)
	if !ok {
		return "", &CursorError{Cursor: cursor, Reason: "missing cursor prefix"}
	}
	return key, nil
}
