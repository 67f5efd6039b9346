// Package contextstore holds the facts substituted into prompt text.
//
// A Store carries three kinds of facts:
//
//   - static facts, fixed at construction (system info, the emoji prompt
//     template)
//   - user facts whose names carry the reserved "Var" prefix
//   - dynamic facts written by refresh workers: the weather summary and one
//     asset list per agent
//
// plus two ordered rule sets of literal find/replace pairs.
//
// Readers call Snapshot and work from the copy; they never wait on a
// refresh. Writers are last-writer-wins.
package contextstore
