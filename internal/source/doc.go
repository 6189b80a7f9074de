// Package source defines the contract between the local mirror graph and
// the remote authoritative store.
//
// A Source is the proxy for one remote document. Subscribing registers a
// Handler that receives the document's change feed as Events: one Added
// event per existing child when the subscription starts, then every
// committed change exactly once, in commit order.
//
// Diffs are value snapshots. Nothing in this package holds a live reference
// to a local entity; the graph package owns that side.
package source
