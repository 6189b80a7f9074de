// Package graph is the local mirror of a remote project hierarchy.
//
// Project → System → Object → State/Action → Getter/Setter, plus Values
// owned by the Project. Every entity keeps a confirmed and a staged copy
// of its editable fields, writes go to the remote side through its
// source, and confirmed values only change when the entity's Updater
// applies an event delivered by the subscription.
//
// Removing an entity, locally or remotely, unregisters its whole subtree.
// A removed entity can never be revived; every later operation on it fails
// with IS_DELETED.
package graph
