// Command libaa builds the C library:
//
//	go build -buildmode=c-shared -o libaa.so ./cmd/libaa
//
// Module handles cross the boundary as uintptr_t; zero is null. Strings
// returned by aa_get_modules and get_gui_description are allocated with
// malloc and must be released with aa_string_free.
package main

/*
#include <stdint.h>
#include <stdlib.h>
*/
import "C"

import (
	"unsafe"

	"github.com/wippyai/aa-wasm/capi"
)

//export aa_module_new
func aa_module_new(url, module *C.char) C.uintptr_t {
	if url == nil || module == nil {
		return 0
	}
	return C.uintptr_t(capi.ModuleNew(C.GoString(url), C.GoString(module)))
}

//export aa_module_delete
func aa_module_delete(h C.uintptr_t) {
	capi.ModuleDelete(capi.Handle(h))
}

//export aa_get_modules
func aa_get_modules(url *C.char) *C.char {
	if url == nil {
		return nil
	}
	text, ok := capi.GetModules(C.GoString(url))
	if !ok {
		return nil
	}
	return C.CString(text)
}

//export get_gui_description
func get_gui_description(h C.uintptr_t) *C.char {
	text, ok := capi.GUIDescription(capi.Handle(h))
	if !ok {
		return nil
	}
	return C.CString(text)
}

//export aa_string_free
func aa_string_free(s *C.char) {
	C.free(unsafe.Pointer(s))
}

//export aa_module_init
func aa_module_init(h C.uintptr_t, sampleRate C.double) {
	capi.Init(capi.Handle(h), float64(sampleRate))
}

//export set_param_float
func set_param_float(h C.uintptr_t, node, index C.uint, value C.float) {
	capi.SetParam(capi.Handle(h), uint32(node), uint32(index), float32(value))
}

//export aa_module_handle_note_on
func aa_module_handle_note_on(h C.uintptr_t, note C.int, velocity C.float) {
	capi.NoteOn(capi.Handle(h), int32(note), float32(velocity))
}

//export aa_module_handle_note_off
func aa_module_handle_note_off(h C.uintptr_t, note C.int, velocity C.float) {
	capi.NoteOff(capi.Handle(h), int32(note), float32(velocity))
}

//export aa_module_get_number_inputs
func aa_module_get_number_inputs(h C.uintptr_t) C.int {
	return C.int(capi.InputCount(capi.Handle(h)))
}

//export aa_module_get_number_outputs
func aa_module_get_number_outputs(h C.uintptr_t) C.int {
	return C.int(capi.OutputCount(capi.Handle(h)))
}

//export aa_module_compute_zero_one
func aa_module_compute_zero_one(h C.uintptr_t, frames C.int, out *C.float) {
	capi.ComputeZeroOne(capi.Handle(h), int(frames), unsafe.Pointer(out))
}

//export aa_module_compute_one_one
func aa_module_compute_one_one(h C.uintptr_t, frames C.int, in, out *C.float) {
	capi.ComputeOneOne(capi.Handle(h), int(frames), unsafe.Pointer(in), unsafe.Pointer(out))
}

//export aa_module_compute_one_two_non
func aa_module_compute_one_two_non(h C.uintptr_t, frames C.int, in, out0, out1 *C.float) {
	capi.ComputeOneTwo(capi.Handle(h), int(frames),
		unsafe.Pointer(in), unsafe.Pointer(out0), unsafe.Pointer(out1))
}

//export aa_module_compute_two_two_non
func aa_module_compute_two_two_non(h C.uintptr_t, frames C.int, in0, in1, out0, out1 *C.float) {
	capi.ComputeTwoTwo(capi.Handle(h), int(frames),
		unsafe.Pointer(in0), unsafe.Pointer(in1), unsafe.Pointer(out0), unsafe.Pointer(out1))
}

//export aa_module_compute_zero_two_non
func aa_module_compute_zero_two_non(h C.uintptr_t, frames C.int, out0, out1 *C.float) {
	capi.ComputeZeroTwo(capi.Handle(h), int(frames), unsafe.Pointer(out0), unsafe.Pointer(out1))
}

func main() {}
