// Package catalog loads the static catalog.yaml embedded at build time,
// validates it once (every dependency resolves, the whole graph is
// acyclic), and exposes Get/List/Closure/Required over the result. There
// is nothing to replicate here — the catalog is the same on every
// process that loads this binary.
package catalog
