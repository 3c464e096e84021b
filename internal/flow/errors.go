package flow

import "errors"

var (
	// ErrUnhandledAction means an option carries an action kind the
	// dispatcher doesn't know. This is a configuration defect and must
	// surface as a 500, never as a silent hangup.
	ErrUnhandledAction = errors.New("flow: unhandled action kind")

	// ErrMenuCycle means submenu links form a cycle (A -> B -> A).
	// Also a configuration defect; rendering refuses instead of looping.
	ErrMenuCycle = errors.New("flow: menu cycle detected")
)
