// Package scenario loads the declarative HCL description of a
// simulation and builds the fully wired state from it.
//
// A scenario names the simulated time period, the registry fields, the
// evaluator bound to each computed field, initial conditions, and the
// fields the driver observes each cycle. Files may be split freely; a
// directory is aggregated in sorted order. Validation is collect-all,
// so a malformed scenario reports every defect in one error.
package scenario
