// Package fetch retrieves bundle manifests, unit binaries and GUI
// descriptions by location.
//
// http and https locations are requested with GET; file URLs and bare paths
// are read from disk so bundles can be served from a local checkout. Each
// asset is requested once unless WithAttempts allows retrying transient
// failures (transport errors, 5xx and 429 responses).
package fetch
