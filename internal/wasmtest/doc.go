// Package wasmtest assembles small core WebAssembly units for tests.
//
// Units follow the audio unit ABI: an exported memory, init, channel count
// and buffer queries, set_param_float, compute and optional note handlers.
// The arithmetic each unit performs is documented on Unit so tests can
// predict the exact output of a compute call.
package wasmtest
