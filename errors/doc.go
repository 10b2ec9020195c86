// Package errors provides structured error types for aa-wasm.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// The Error type carries the element path, the asset URL involved and a cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseFetch, errors.KindUnreachable).
//		URL(assetURL).
//		Path("wasm_url", "1").
//		Detail("status %d", resp.StatusCode).
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.MissingExport([]string{"node", "0"}, "compute")
//	err := errors.Construct(moduleID, cause)
//
// All errors implement the standard error interface and support errors.Is/As.
// Any failure during module construction is collapsed into a single
// PhaseConstruct error that keeps the original cause reachable via errors.Is.
package errors
