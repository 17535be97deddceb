package evaluator

import "github.com/karst-sim/karst/internal/keys"

// node carries the bookkeeping every graph node shares: identity and
// the per-requester memoization sets for the two walk protocols.
type node struct {
	key keys.Key
	tag keys.Tag

	requests      map[keys.KeyTag]struct{}
	derivRequests map[derivRequest]struct{}
}

type derivRequest struct {
	wrt       keys.KeyTag
	requester keys.KeyTag
}

func newNode(key keys.Key, tag keys.Tag) node {
	return node{
		key:           key,
		tag:           tag,
		requests:      map[keys.KeyTag]struct{}{},
		derivRequests: map[derivRequest]struct{}{},
	}
}

func (n *node) Key() keys.Key { return n.key }
func (n *node) Tag() keys.Tag { return n.tag }

func (n *node) me() keys.KeyTag { return keys.KeyTag{Key: n.key, Tag: n.tag} }

// serviced reports whether requester has been answered since the
// last recompute or invalidation.
func (n *node) serviced(r keys.KeyTag) bool {
	_, ok := n.requests[r]
	return ok
}

func (n *node) recordRequest(r keys.KeyTag) { n.requests[r] = struct{}{} }

// resetRequests forgets every requester except keep, which has just
// been handed the fresh value.
func (n *node) resetRequests(keep keys.KeyTag) {
	clear(n.requests)
	n.requests[keep] = struct{}{}
}

func (n *node) clearRequests() { clear(n.requests) }

func (n *node) derivServiced(wrt, r keys.KeyTag) bool {
	_, ok := n.derivRequests[derivRequest{wrt: wrt, requester: r}]
	return ok
}

func (n *node) recordDerivRequest(wrt, r keys.KeyTag) {
	n.derivRequests[derivRequest{wrt: wrt, requester: r}] = struct{}{}
}

// resetDerivRequests forgets every derivative requester, for every
// wrt, except the pair just serviced. Recomputing one derivative
// implies the node's value moved, so all cached derivative answers
// are suspect.
func (n *node) resetDerivRequests(wrt, r keys.KeyTag) {
	clear(n.derivRequests)
	n.derivRequests[derivRequest{wrt: wrt, requester: r}] = struct{}{}
}

func (n *node) clearDerivRequests() { clear(n.derivRequests) }

func (n *node) derivRequestCount() int { return len(n.derivRequests) }
