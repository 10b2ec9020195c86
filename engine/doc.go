// Package engine runs WebAssembly audio units on wazero.
//
// A bundle with several binaries becomes a serial chain of nodes that share
// one runtime. Every node is a core module exporting the unit ABI:
//
//	memory                                   exported linear memory
//	init(sample_rate f64)                    prepare for a sample rate
//	get_number_inputs() i32                  input channel count
//	get_number_outputs() i32                 output channel count
//	get_max_frames() i32                     largest block compute accepts
//	get_input(channel i32) i32               byte offset of an input buffer
//	get_output(channel i32) i32              byte offset of an output buffer
//	set_param_float(index i32, value f32)    set a parameter
//	compute(frames i32)                      process one block
//	handle_note_on(note i32, velocity f32)   optional
//	handle_note_off(note i32, velocity f32)  optional
//
// The ABI is declared in WIT and checked against each compiled module before
// instantiation, so a unit with a missing or mistyped export is rejected with
// a structured link error.
//
// # Host imports
//
// Units may import libm functions from the "env" module in float32 (sinf,
// powf, ...) and float64 (sin, pow, ...) form, with or without a leading
// underscore. WASI preview1 is available when Config.EnableWASI is set.
//
// # Blocks
//
// Compute calls longer than the smallest get_max_frames of the chain are
// split into sub-blocks. Channel buffers are read through memory views taken
// per sub-block, so units may grow their memory during compute.
package engine
