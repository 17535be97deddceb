package state

import "errors"

var (
	// ErrMissingEvaluator reports a (Key, Tag) with no registered
	// evaluator where one is required.
	ErrMissingEvaluator = errors.New("state: no such evaluator")

	// ErrCyclicDependency reports a dependency cycle discovered
	// during a graph walk. The wrapping error carries the cycle path.
	ErrCyclicDependency = errors.New("state: cyclic dependency")
)
