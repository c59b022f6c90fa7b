package ba2

import (
	"errors"
	"fmt"
)

// Sentinel errors. Callers match them with errors.Is.
var (
	// ErrFormatMismatch means the input is not a BA2 archive (bad magic or version).
	ErrFormatMismatch = errors.New("not a BA2 archive")
	// ErrShortHeader means fewer than HeaderSize bytes were available.
	ErrShortHeader = errors.New("short archive header")
	// ErrStructural means the record table or a payload span does not fit the archive.
	ErrStructural = errors.New("malformed archive structure")
	// ErrDecode means a name table entry could not be decoded.
	ErrDecode = errors.New("malformed name table entry")
	// ErrNameRange means more names were requested than the archive has records.
	ErrNameRange = errors.New("name table exhausted")
	// ErrDecompression means a payload failed to inflate to its declared size.
	ErrDecompression = errors.New("decompression failed")
)

// RecordError ties an error to the index of the record that caused it.
type RecordError struct {
	Index int
	Err   error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("record %d: %v", e.Index, e.Err)
}

func (e *RecordError) Unwrap() error { return e.Err }
