package wasmtest

// Memory layout shared by every generated unit.
const (
	ParamBase   = 0    // 16 float32 parameter slots
	SampleRate  = 64   // f64 written by init
	ComputeRuns = 80   // i32 count of compute calls
	LastFrames  = 84   // i32 frame count of the latest compute call
	BufferBase  = 1024 // first channel buffer
	paramSlots  = 16
	defaultMax  = 128
)

// Unit describes a generated audio unit.
//
// Every output channel c computes
//
//	out[c][i] = in[c % Inputs][i] * param[0] + param[1]
//
// where param[0] is 1 and param[1] is 0 after init. Units without inputs
// emit param[1]. With Notes, note-on stores pitch*velocity in param[1] and
// note-off clears it. With Sine the result is passed through env.sinf.
type Unit struct {
	Inputs    int
	Outputs   int
	MaxFrames int
	Notes     bool
	Sine      bool

	// TrapCompute makes compute execute unreachable.
	TrapCompute bool
	// Omit skips exporting the named function.
	Omit string
	// BadSignature exports the named function with the signature () -> ().
	BadSignature string
	// NoMemory skips the memory export.
	NoMemory bool
	// Import adds an env import the unit never calls.
	Import string
}

func (u Unit) maxFrames() int {
	if u.MaxFrames > 0 {
		return u.MaxFrames
	}
	return defaultMax
}

// InputOffset returns the byte offset of input channel c
func (u Unit) InputOffset(c int) uint32 {
	return uint32(BufferBase + c*u.maxFrames()*4)
}

// OutputOffset returns the byte offset of output channel c
func (u Unit) OutputOffset(c int) uint32 {
	return uint32(BufferBase + (u.Inputs+c)*u.maxFrames()*4)
}

// Bytes assembles the unit binary
func (u Unit) Bytes() []byte {
	m := NewModule()

	var sinf uint32
	if u.Sine {
		sinf = m.ImportFunc("env", "sinf", []ValType{F32}, []ValType{F32})
	}
	if u.Import != "" {
		m.ImportFunc("env", u.Import, []ValType{F32}, []ValType{F32})
	}

	bufBytes := int32(u.maxFrames() * 4)
	pages := uint32((BufferBase+int(bufBytes)*(u.Inputs+u.Outputs))/65536 + 1)
	m.Memory(pages)
	if !u.NoMemory {
		m.ExportMemory("memory")
	}

	def := func(name string, params, results, locals []ValType, body *Code) {
		if name == u.Omit {
			return
		}
		if name == u.BadSignature {
			idx := m.Func(nil, nil, nil, &Code{})
			m.ExportFunc(name, idx)
			return
		}
		m.ExportFunc(name, m.Func(params, results, locals, body))
	}

	def("init", []ValType{F64}, nil, nil, new(Code).
		I32Const(0).LocalGet(0).F64Store(SampleRate).
		I32Const(0).F32Const(1).F32Store(ParamBase).
		I32Const(0).F32Const(0).F32Store(ParamBase+4).
		I32Const(0).I32Const(0).I32Store(ComputeRuns))

	def("get_number_inputs", nil, []ValType{I32}, nil, new(Code).I32Const(int32(u.Inputs)))
	def("get_number_outputs", nil, []ValType{I32}, nil, new(Code).I32Const(int32(u.Outputs)))
	def("get_max_frames", nil, []ValType{I32}, nil, new(Code).I32Const(int32(u.maxFrames())))

	def("get_input", []ValType{I32}, []ValType{I32}, nil, new(Code).
		LocalGet(0).I32Const(bufBytes).I32Mul().I32Const(BufferBase).I32Add())
	def("get_output", []ValType{I32}, []ValType{I32}, nil, new(Code).
		LocalGet(0).I32Const(int32(u.Inputs)).I32Add().I32Const(bufBytes).I32Mul().I32Const(BufferBase).I32Add())

	def("set_param_float", []ValType{I32, F32}, nil, nil, new(Code).
		LocalGet(0).I32Const(paramSlots-1).I32And().I32Const(4).I32Mul().
		LocalGet(1).F32Store(ParamBase))

	def("compute", []ValType{I32}, nil, []ValType{I32}, u.computeBody(sinf))

	if u.Notes {
		def("handle_note_on", []ValType{I32, F32}, nil, nil, new(Code).
			I32Const(0).LocalGet(0).F32ConvertI32S().LocalGet(1).F32Mul().F32Store(ParamBase+4))
		def("handle_note_off", []ValType{I32, F32}, nil, nil, new(Code).
			I32Const(0).F32Const(0).F32Store(ParamBase+4))
	}

	return m.Bytes()
}

// computeBody emits compute(frames): local 0 is frames, local 1 the sample index.
func (u Unit) computeBody(sinf uint32) *Code {
	c := new(Code)
	if u.TrapCompute {
		return c.Unreachable()
	}

	c.I32Const(0).I32Const(0).I32Load(ComputeRuns).I32Const(1).I32Add().I32Store(ComputeRuns)
	c.I32Const(0).LocalGet(0).I32Store(LastFrames)

	for ch := 0; ch < u.Outputs; ch++ {
		c.I32Const(0).LocalSet(1)
		c.Block().Loop()
		c.LocalGet(1).LocalGet(0).I32GeS().BrIf(1)

		// store address
		c.LocalGet(1).I32Const(4).I32Mul()

		if u.Inputs > 0 {
			c.LocalGet(1).I32Const(4).I32Mul().F32Load(u.InputOffset(ch % u.Inputs))
			c.I32Const(0).F32Load(ParamBase).F32Mul()
			c.I32Const(0).F32Load(ParamBase + 4).F32Add()
		} else {
			c.I32Const(0).F32Load(ParamBase + 4)
		}
		if u.Sine {
			c.Call(sinf)
		}
		c.F32Store(u.OutputOffset(ch))

		c.LocalGet(1).I32Const(1).I32Add().LocalSet(1)
		c.Br(0)
		c.End().End()
	}
	return c
}

// Gain returns a unit with n inputs and n outputs
func Gain(n int) []byte {
	return Unit{Inputs: n, Outputs: n}.Bytes()
}

// Synth returns a note-driven generator with no inputs and n outputs
func Synth(n int) []byte {
	return Unit{Outputs: n, Notes: true}.Bytes()
}
