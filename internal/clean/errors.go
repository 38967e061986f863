package clean

import (
	"errors"
	"fmt"
)

// ErrMissingColumn matches any MissingColumnError via errors.Is.
var ErrMissingColumn = errors.New("missing column")

// MissingColumnError is returned by a stage that needs a column the dataset
// does not have.
type MissingColumnError struct {
	Stage  string
	Column string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("missing column %q required by %s", e.Column, e.Stage)
}

// Is lets errors.Is(err, ErrMissingColumn) match.
func (e *MissingColumnError) Is(target error) bool {
	return target == ErrMissingColumn
}
