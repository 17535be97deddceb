// Package evaluator provides the graph nodes that keep registry
// fields fresh.
//
// Three kinds exist. Primary nodes hold values written from outside
// the graph; they never recompute, they only track who has seen the
// current value and answer derivative queries with the identity.
// Independent nodes evaluate an explicit function of time.
// Secondary nodes compute from other fields and carry the recursive
// update and chain-rule machinery.
//
// Freshness is memoized per requester. A node recomputes when a
// dependency reports change, then forgets every requester except the
// one being serviced; a requester it has already serviced gets
// "unchanged" back without any work. Derivative freshness is tracked
// the same way per (wrt, requester) pair.
//
// The generic parameter is the value type. Chain-rule accumulation
// needs arithmetic on that type, supplied by an Algebra; float64
// nodes get one automatically, structured nodes take an elementwise
// algebra over their negotiated space.
package evaluator
