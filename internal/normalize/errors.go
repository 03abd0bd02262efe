package normalize

import (
	"errors"
	"fmt"
)

// ErrMalformedRecord is matched by every MalformedRecordError
var ErrMalformedRecord = errors.New("malformed record")

// MalformedRecordError names the required field missing from a record
type MalformedRecordError struct {
	Record string
	Field  string
}

func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("malformed %s record: missing %s", e.Record, e.Field)
}

// Is reports whether target is ErrMalformedRecord
func (e *MalformedRecordError) Is(target error) bool {
	return target == ErrMalformedRecord
}

func missing(record, field string) error {
	return &MalformedRecordError{Record: record, Field: field}
}
