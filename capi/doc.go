// Package capi is the Go side of the C library. It keeps modules behind
// opaque handles and rebuilds raw sample pointers into bounded views.
//
// A handle is a runtime/cgo.Handle carried as an integer; zero is null.
// Every entry except ModuleDelete treats a null handle as a contract
// violation and panics, which aborts the host process across cgo.
// ModuleDelete(0) does nothing.
//
// Construction and listing failures are logged and reported to C as the
// null handle or a null string. Set AA_LOG to a zap level name (debug, info,
// warn, error) to see them on stderr.
package capi
