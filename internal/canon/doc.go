// Package canon produces RFC 8785 canonical JSON and domain-separated
// SHA-256 fingerprints.
//
// Canonical bytes are used wherever two processes must agree on identity
// without sharing state: journal record fingerprints and tree hashes that
// compare a mirror with the remote tree it follows.
//
// Rules:
//   - object keys sorted by UTF-16 code units
//   - strings NFC normalized, only quote, backslash and C0 controls escaped
//   - integers only, floats are rejected
//   - null is rejected
package canon
