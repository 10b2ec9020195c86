package wasmtest

import (
	"encoding/binary"
	"math"
)

// Binary format constants
const (
	magic   = 0x6d736100 // "\0asm"
	version = 1

	sectionType     = 1
	sectionImport   = 2
	sectionFunction = 3
	sectionMemory   = 5
	sectionExport   = 7
	sectionCode     = 10

	funcTypeByte = 0x60

	kindFunc   = 0x00
	kindMemory = 0x02
)

// ValType is a core value type
type ValType byte

const (
	I32 ValType = 0x7f
	I64 ValType = 0x7e
	F32 ValType = 0x7d
	F64 ValType = 0x7c
)

type funcType struct {
	params  []ValType
	results []ValType
}

type importFunc struct {
	module  string
	name    string
	typeIdx uint32
}

type function struct {
	typeIdx uint32
	locals  []ValType
	body    []byte
}

type export struct {
	name string
	kind byte
	idx  uint32
}

// Module assembles a core wasm binary. Imports must be declared before any
// defined function so function indices stay stable.
type Module struct {
	types    []funcType
	imports  []importFunc
	funcs    []function
	exports  []export
	memPages uint32
	hasMem   bool
}

// NewModule creates an empty module
func NewModule() *Module {
	return &Module{}
}

func (m *Module) typeIndex(params, results []ValType) uint32 {
	for i, t := range m.types {
		if equalTypes(t.params, params) && equalTypes(t.results, results) {
			return uint32(i)
		}
	}
	m.types = append(m.types, funcType{params: params, results: results})
	return uint32(len(m.types) - 1)
}

// ImportFunc declares an imported function and returns its function index
func (m *Module) ImportFunc(module, name string, params, results []ValType) uint32 {
	if len(m.funcs) > 0 {
		panic("wasmtest: imports must precede defined functions")
	}
	m.imports = append(m.imports, importFunc{
		module:  module,
		name:    name,
		typeIdx: m.typeIndex(params, results),
	})
	return uint32(len(m.imports) - 1)
}

// Func defines a function and returns its function index
func (m *Module) Func(params, results, locals []ValType, body *Code) uint32 {
	m.funcs = append(m.funcs, function{
		typeIdx: m.typeIndex(params, results),
		locals:  locals,
		body:    body.Bytes(),
	})
	return uint32(len(m.imports) + len(m.funcs) - 1)
}

// ExportFunc exports a function under name
func (m *Module) ExportFunc(name string, idx uint32) {
	m.exports = append(m.exports, export{name: name, kind: kindFunc, idx: idx})
}

// Memory declares memory 0 with the given minimum pages
func (m *Module) Memory(pages uint32) {
	m.memPages = pages
	m.hasMem = true
}

// ExportMemory exports memory 0 under name
func (m *Module) ExportMemory(name string) {
	m.exports = append(m.exports, export{name: name, kind: kindMemory, idx: 0})
}

// Bytes encodes the module
func (m *Module) Bytes() []byte {
	var w writer
	w.u32le(magic)
	w.u32le(version)

	if len(m.types) > 0 {
		var sec writer
		sec.u32(uint32(len(m.types)))
		for _, t := range m.types {
			sec.byte(funcTypeByte)
			sec.valTypes(t.params)
			sec.valTypes(t.results)
		}
		w.section(sectionType, sec.buf)
	}

	if len(m.imports) > 0 {
		var sec writer
		sec.u32(uint32(len(m.imports)))
		for _, imp := range m.imports {
			sec.name(imp.module)
			sec.name(imp.name)
			sec.byte(kindFunc)
			sec.u32(imp.typeIdx)
		}
		w.section(sectionImport, sec.buf)
	}

	if len(m.funcs) > 0 {
		var sec writer
		sec.u32(uint32(len(m.funcs)))
		for _, f := range m.funcs {
			sec.u32(f.typeIdx)
		}
		w.section(sectionFunction, sec.buf)
	}

	if m.hasMem {
		var sec writer
		sec.u32(1)
		sec.byte(0x00) // limits: min only
		sec.u32(m.memPages)
		w.section(sectionMemory, sec.buf)
	}

	if len(m.exports) > 0 {
		var sec writer
		sec.u32(uint32(len(m.exports)))
		for _, e := range m.exports {
			sec.name(e.name)
			sec.byte(e.kind)
			sec.u32(e.idx)
		}
		w.section(sectionExport, sec.buf)
	}

	if len(m.funcs) > 0 {
		var sec writer
		sec.u32(uint32(len(m.funcs)))
		for _, f := range m.funcs {
			var body writer
			body.u32(uint32(len(f.locals)))
			for _, l := range f.locals {
				body.u32(1)
				body.byte(byte(l))
			}
			body.bytes(f.body)
			sec.u32(uint32(len(body.buf)))
			sec.bytes(body.buf)
		}
		w.section(sectionCode, sec.buf)
	}

	return w.buf
}

func equalTypes(a, b []ValType) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

type writer struct {
	buf []byte
}

func (w *writer) byte(b byte) {
	w.buf = append(w.buf, b)
}

func (w *writer) bytes(b []byte) {
	w.buf = append(w.buf, b...)
}

func (w *writer) u32le(v uint32) {
	w.buf = binary.LittleEndian.AppendUint32(w.buf, v)
}

func (w *writer) u32(v uint32) {
	w.buf = AppendULEB128(w.buf, v)
}

func (w *writer) name(s string) {
	w.u32(uint32(len(s)))
	w.buf = append(w.buf, s...)
}

func (w *writer) valTypes(types []ValType) {
	w.u32(uint32(len(types)))
	for _, t := range types {
		w.byte(byte(t))
	}
}

func (w *writer) section(id byte, data []byte) {
	w.byte(id)
	w.u32(uint32(len(data)))
	w.bytes(data)
}

// AppendULEB128 appends the unsigned LEB128 encoding of v
func AppendULEB128(dst []byte, v uint32) []byte {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			b |= 0x80
		}
		dst = append(dst, b)
		if v == 0 {
			return dst
		}
	}
}

// AppendSLEB128 appends the signed LEB128 encoding of v
func AppendSLEB128(dst []byte, v int32) []byte {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		done := (v == 0 && b&0x40 == 0) || (v == -1 && b&0x40 != 0)
		if !done {
			b |= 0x80
		}
		dst = append(dst, b)
		if done {
			return dst
		}
	}
}

// Code is a function body under construction
type Code struct {
	buf []byte
}

// Bytes returns the body terminated with end
func (c *Code) Bytes() []byte {
	return append(append([]byte(nil), c.buf...), 0x0b)
}

func (c *Code) op(b ...byte) *Code {
	c.buf = append(c.buf, b...)
	return c
}

func (c *Code) memarg(align, offset uint32) *Code {
	c.buf = AppendULEB128(c.buf, align)
	c.buf = AppendULEB128(c.buf, offset)
	return c
}

func (c *Code) Unreachable() *Code { return c.op(0x00) }
func (c *Code) Block() *Code       { return c.op(0x02, 0x40) }
func (c *Code) Loop() *Code        { return c.op(0x03, 0x40) }
func (c *Code) End() *Code         { return c.op(0x0b) }

func (c *Code) Br(depth uint32) *Code {
	c.op(0x0c)
	c.buf = AppendULEB128(c.buf, depth)
	return c
}

func (c *Code) BrIf(depth uint32) *Code {
	c.op(0x0d)
	c.buf = AppendULEB128(c.buf, depth)
	return c
}

func (c *Code) Call(idx uint32) *Code {
	c.op(0x10)
	c.buf = AppendULEB128(c.buf, idx)
	return c
}

func (c *Code) LocalGet(idx uint32) *Code {
	c.op(0x20)
	c.buf = AppendULEB128(c.buf, idx)
	return c
}

func (c *Code) LocalSet(idx uint32) *Code {
	c.op(0x21)
	c.buf = AppendULEB128(c.buf, idx)
	return c
}

func (c *Code) I32Load(offset uint32) *Code  { return c.op(0x28).memarg(2, offset) }
func (c *Code) F32Load(offset uint32) *Code  { return c.op(0x2a).memarg(2, offset) }
func (c *Code) I32Store(offset uint32) *Code { return c.op(0x36).memarg(2, offset) }
func (c *Code) F32Store(offset uint32) *Code { return c.op(0x38).memarg(2, offset) }
func (c *Code) F64Store(offset uint32) *Code { return c.op(0x39).memarg(3, offset) }

func (c *Code) I32Const(v int32) *Code {
	c.op(0x41)
	c.buf = AppendSLEB128(c.buf, v)
	return c
}

func (c *Code) F32Const(v float32) *Code {
	c.op(0x43)
	c.buf = binary.LittleEndian.AppendUint32(c.buf, math.Float32bits(v))
	return c
}

func (c *Code) I32GeS() *Code         { return c.op(0x4e) }
func (c *Code) I32Add() *Code         { return c.op(0x6a) }
func (c *Code) I32Mul() *Code         { return c.op(0x6c) }
func (c *Code) I32And() *Code         { return c.op(0x71) }
func (c *Code) F32Add() *Code         { return c.op(0x92) }
func (c *Code) F32Mul() *Code         { return c.op(0x94) }
func (c *Code) F32ConvertI32S() *Code { return c.op(0xb2) }
func (c *Code) F32DemoteF64() *Code   { return c.op(0xb6) }
func (c *Code) F64PromoteF32() *Code  { return c.op(0xbb) }
