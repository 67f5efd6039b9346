// Package observe provides logging, tracing and metrics for the relay.
//
// Every component receives a Logger and, where it talks to the upstream or
// runs a refresh, an Instrument built from the same Observer. Nothing in the
// relay logs through the standard library log package.
package observe
