package pages

import (
	"errors"
	"fmt"
)

// ErrValidation is matched by every validation failure returned from a
// Collection mutation. Validation failures never change collection state.
var ErrValidation = errors.New("validation failed")

// EmptyNameError is returned when a page name is blank.
type EmptyNameError struct{}

func (e *EmptyNameError) Error() string        { return "page name must not be empty" }
func (e *EmptyNameError) Is(target error) bool { return target == ErrValidation }

// DuplicateNameError is returned when a page name is already taken.
type DuplicateNameError struct {
	Name string
}

func (e *DuplicateNameError) Error() string {
	return fmt.Sprintf("page %q already exists", e.Name)
}
func (e *DuplicateNameError) Is(target error) bool { return target == ErrValidation }

// EmptyFieldError is returned when a button name or command is blank.
type EmptyFieldError struct {
	Field string
}

func (e *EmptyFieldError) Error() string {
	return fmt.Sprintf("button %s must not be empty", e.Field)
}
func (e *EmptyFieldError) Is(target error) bool { return target == ErrValidation }

// LastPageError is returned when deleting the only remaining page.
type LastPageError struct{}

func (e *LastPageError) Error() string        { return "cannot delete the last remaining page" }
func (e *LastPageError) Is(target error) bool { return target == ErrValidation }

// IndexOutOfRangeError is returned when a page or button index no longer
// refers to an existing entry, typically because a queued UI callback
// outlived a concurrent delete.
type IndexOutOfRangeError struct {
	Kind  string // "page" or "button"
	Index int
	Len   int
}

func (e *IndexOutOfRangeError) Error() string {
	return fmt.Sprintf("%s index %d out of range [0,%d)", e.Kind, e.Index, e.Len)
}
func (e *IndexOutOfRangeError) Is(target error) bool { return target == ErrValidation }
