// Package remote is an in-process authoritative document store that
// implements the source contracts.
//
// Each document has a kind, a target, confirmed fields and ordered child
// lists. Every mutation is a journal.Record: it is optionally appended to
// a journal, applied under the store lock and turned into notifications.
// Notifications are queued in an outbox and delivered by one goroutine at
// a time, so handlers observe changes in commit order.
//
// A document's Removed notification is final. Removing a document
// removes its subtree; every removed document with a listener is
// notified, descendants before ancestors.
package remote
