// Package refresh keeps upstream-derived facts current.
//
// Worker is the shared fetch, extract, validate and retry loop. Weather and
// Caption are its two instances: Weather fills one store slot on a schedule,
// Caption fills the content-addressed caption cache on demand. Assets and
// Watcher regenerate per-agent asset lists from the image directory tree.
//
// Nothing here fails a proxied request. Exhausted refreshes produce a
// sentinel text so readers always have a value.
package refresh
