// Package state implements the field registry and dependency-graph
// orchestrator at the center of the engine.
//
// A State owns every field record, every derivative record, and every
// evaluator. Fields are addressed by (Key, Tag): the Key names a
// physical quantity ("pressure"), the Tag names a version of it (the
// default tag is the accepted value, "next" a provisional one).
// Records enforce single-writer ownership: the collaborator that
// claimed a record is the only one that can obtain a mutable view.
//
// Evaluators form a directed acyclic graph over (Key, Tag) nodes and
// keep field values fresh lazily. A collaborator asks a node to
// Update itself for a named requester; the node recursively updates
// its dependencies, recomputes only if something underneath actually
// changed, and remembers which requesters it has serviced so repeat
// queries are cheap. UpdateDerivative walks the same graph
// accumulating exact first derivatives by the chain rule.
//
// Lifecycle is two-phase. Setup gives every evaluator one chance to
// declare requirements (field types, structures, derivatives) and
// then materializes storage. Initialize fills primary and independent
// fields, brings the computed fields up to date once, and verifies
// that nothing was left uninitialized.
package state
