package mapper

import (
	"errors"
	"fmt"
)

var (
	ErrArity         = errors.New("genotype arity mismatch")
	ErrConfiguration = errors.New("invalid mapper configuration")
)

// ArityError reports a genotype whose length differs from the expected
// parameter count of the blueprint.
type ArityError struct {
	Expected int
	Found    int
}

func (e *ArityError) Error() string {
	return fmt.Sprintf("wrong number of params: %d expected, %d found", e.Expected, e.Found)
}

func (e *ArityError) Unwrap() error {
	return ErrArity
}

// ConfigurationError reports a blueprint that cannot be used with the
// requested mapping mode.
type ConfigurationError struct {
	Blueprint string
	Sizes     []int
	Reason    string
}

func (e *ConfigurationError) Error() string {
	if len(e.Sizes) == 0 {
		return fmt.Sprintf("blueprint %s: %s", e.Blueprint, e.Reason)
	}
	return fmt.Sprintf("blueprint %s: %s (sizes %v)", e.Blueprint, e.Reason, e.Sizes)
}

func (e *ConfigurationError) Unwrap() error {
	return ErrConfiguration
}
