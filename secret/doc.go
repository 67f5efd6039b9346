// Package secret resolves configuration values that reference other values
// or secrets.
//
// It supports:
//   - Strict ${NAME} expansion against a lookup function (see ExpandStrict)
//   - Pluggable secret providers (see Provider)
//   - Resolving secret references in configuration values (see Resolver)
//
// References use the prefix "secretref:":
//   - Full value:  secretref:file:/run/secrets/upstream_key
//   - Inline use:  Bearer secretref:env:UPSTREAM_KEY
//
// Only the braced form is expanded. Prompt templates routinely contain
// bare dollar signs, so "$5" or "$HOME" pass through untouched.
package secret
