// Package sync implements the engine that keeps the local store and the
// remote bookmark service eventually consistent.
//
// The engine is local-first: every mutation lands in the store and marks the
// entity dirty before any network activity, and a remote failure never rolls
// the local write back. Two consistency strategies are selectable per the
// persisted immediate-sync preference: immediate (each mutation attempts the
// matching remote call synchronously, degrading to dirty-until-push on
// failure) and manual (mutations only accumulate in the pending set until an
// explicit push).
//
// Push uploads every pending collection before any pending link, because
// attaching a link to a collection remotely requires the collection's remote
// id. Pull downloads the remote collection tree and merges it into the store
// keyed by normalized URL, preserving local creation times. Batches process
// items strictly sequentially and never abort mid-way; per-item failures are
// aggregated for the caller.
//
// One engine never runs two sync operations concurrently against the same
// store: an in-progress guard serializes push, pull, and immediate-strategy
// remote calls.
package sync
