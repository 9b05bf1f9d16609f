package card

import (
	"errors"
	"fmt"
)

// ErrMalformedRecord is matched by every MalformedRecordError.
var ErrMalformedRecord = errors.New("malformed card record")

// MalformedRecordError reports a raw card that cannot become a Record.
type MalformedRecordError struct {
	Field  string
	Reason string
}

func (e *MalformedRecordError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s: %s", ErrMalformedRecord, e.Reason)
	}
	return fmt.Sprintf("%s: missing required field %q", ErrMalformedRecord, e.Field)
}

func (e *MalformedRecordError) Is(target error) bool {
	return target == ErrMalformedRecord
}
