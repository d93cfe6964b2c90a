package ecs

import (
	"errors"
	"fmt"
)

var (
	// ErrStaleHandle is returned when an operation addresses a dead entity
	// or a handle whose generation no longer matches its slot.
	ErrStaleHandle = errors.New("stale entity handle")
	// ErrDuplicateComponent is returned by Add in strict mode when the
	// entity already carries a component of that type.
	ErrDuplicateComponent = errors.New("duplicate component")
	// ErrMissingComponent is returned by Get when the component is absent.
	ErrMissingComponent = errors.New("missing component")
	// ErrBehaviourFault marks an error or panic raised inside a behaviour
	// callback. Tick logs these and never returns them.
	ErrBehaviourFault = errors.New("behaviour fault")
)

// ComponentError carries the component type and entity involved in a failed
// component operation.
type ComponentError struct {
	Op     string
	Type   string
	Entity Entity
	Err    error
}

func (e *ComponentError) Error() string {
	return fmt.Sprintf("ecs: %s %s on entity %s: %v", e.Op, e.Type, e.Entity, e.Err)
}

func (e *ComponentError) Unwrap() error { return e.Err }

// FaultError describes a contained behaviour failure.
type FaultError struct {
	Phase  string // "start", "update" or "spawn"
	Entity Entity
	Cause  error
}

func (e *FaultError) Error() string {
	return fmt.Sprintf("ecs: %s fault on entity %s: %v", e.Phase, e.Entity, e.Cause)
}

func (e *FaultError) Unwrap() []error { return []error{ErrBehaviourFault, e.Cause} }

func componentErr[T any](op string, e Entity, err error) error {
	return &ComponentError{Op: op, Type: typeNameOf[T](), Entity: e, Err: err}
}
