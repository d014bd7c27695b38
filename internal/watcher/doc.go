// Package watcher turns operating system change notifications for a directory
// tree into a stream of "directory has changed" lines.
//
// A Session registers a recursive watch through a Backend, waits for the
// backend to signal, writes one message per signalled batch and re-arms.
// Changes are coalesced: a batch carries no detail about which entries
// changed, only that something under the root did.
package watcher
