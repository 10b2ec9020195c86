package capi

import (
	"runtime/cgo"

	"github.com/wippyai/aa-wasm/module"
)

// Handle is the opaque module reference handed to C callers. Zero is the
// null handle.
type Handle uintptr

// NullHandleMessage is the panic value raised when a null handle is used.
const NullHandleMessage = "aa: null module handle"

func register(m *module.Module) Handle {
	return Handle(cgo.NewHandle(m))
}

// Module resolves h. A null handle is a caller contract violation and panics.
func (h Handle) Module() *module.Module {
	if h == 0 {
		panic(NullHandleMessage)
	}
	return cgo.Handle(h).Value().(*module.Module)
}

// release forgets h and returns the module it referenced.
func (h Handle) release() *module.Module {
	m := h.Module()
	cgo.Handle(h).Delete()
	return m
}
