package casefile

import (
	"errors"
	"fmt"
)

// ErrAttributeNotFound marks a required case attribute that is absent. It is
// the Go rendition of a hard lookup failure: callers binding required
// parameters must propagate it, while optional probes test for it with
// errors.Is and skip.
var ErrAttributeNotFound = errors.New("attribute not found")

// ErrInitialConditionNotFound marks a missing initial condition entry.
// Several formulation transforms treat this as a benign skip.
var ErrInitialConditionNotFound = errors.New("initial condition not found")

// ErrElementNotFound marks a lookup against an unknown element ID.
var ErrElementNotFound = errors.New("element not found")

// LookupError carries the element kind, its identifier and the attribute
// that failed to resolve.
type LookupError struct {
	Kind      string
	ID        string
	Attribute string
	err       error
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("%s %s: attribute %s: %v", e.Kind, e.ID, e.Attribute, e.err)
}

func (e *LookupError) Unwrap() error { return e.err }

func newLookupError(kind, id, attribute string) *LookupError {
	return &LookupError{Kind: kind, ID: id, Attribute: attribute, err: ErrAttributeNotFound}
}

func newInitialConditionError(kind, id, condition string) *LookupError {
	return &LookupError{Kind: kind, ID: id, Attribute: condition, err: ErrInitialConditionNotFound}
}

func newElementError(kind, id string) *LookupError {
	return &LookupError{Kind: kind, ID: id, Attribute: "", err: ErrElementNotFound}
}

// ErrRunMode marks an unsupported run mode selection.
var ErrRunMode = errors.New("unhandled run mode")
