// Package registry maps the evaluator kind names used in scenario
// config (e.g., "additive") to the Go constructors that build them.
//
// A Table is populated once during application startup and handed to
// the scenario builder; there is no process-global registry. Default
// returns a table with the stock scalar kinds, and callers register
// additional kinds on top of it before building a scenario.
package registry
