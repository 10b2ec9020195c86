package engine

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.bytecodealliance.org/wit"

	"github.com/wippyai/aa-wasm/errors"
)

// unitABI is the interface every node exports. Buffer queries return byte
// offsets into the exported memory of float32 buffers holding
// get-max-frames samples.
const unitABI = `
init: func(sample-rate: f64);
get-number-inputs: func() -> s32;
get-number-outputs: func() -> s32;
get-max-frames: func() -> s32;
get-input: func(channel: s32) -> s32;
get-output: func(channel: s32) -> s32;
set-param-float: func(index: u32, value: f32);
compute: func(frames: s32);
handle-note-on: func(note: s32, velocity: f32);
handle-note-off: func(note: s32, velocity: f32);
`

// MemoryExport is the name of the memory every node exports
const MemoryExport = "memory"

type slot int

const (
	slotInit slot = iota
	slotNumInputs
	slotNumOutputs
	slotMaxFrames
	slotGetInput
	slotGetOutput
	slotSetParam
	slotCompute
	slotNoteOn
	slotNoteOff
	slotCount
)

var slotNames = [slotCount]string{
	slotInit:       "init",
	slotNumInputs:  "get-number-inputs",
	slotNumOutputs: "get-number-outputs",
	slotMaxFrames:  "get-max-frames",
	slotGetInput:   "get-input",
	slotGetOutput:  "get-output",
	slotSetParam:   "set-param-float",
	slotCompute:    "compute",
	slotNoteOn:     "handle-note-on",
	slotNoteOff:    "handle-note-off",
}

func (s slot) optional() bool {
	return s == slotNoteOn || s == slotNoteOff
}

// exportName maps a WIT name to the core export name units use
func (s slot) exportName() string {
	return strings.ReplaceAll(slotNames[s], "-", "_")
}

type signature struct {
	params  []api.ValueType
	results []api.ValueType
}

func (s signature) String() string {
	return formatTypes(s.params) + " -> " + formatTypes(s.results)
}

func (s signature) matches(def api.FunctionDefinition) bool {
	return equalValueTypes(s.params, def.ParamTypes()) && equalValueTypes(s.results, def.ResultTypes())
}

var abiSignatures = sync.OnceValues(func() ([slotCount]signature, error) {
	var sigs [slotCount]signature
	parsed, err := parseWitFunctions(unitABI)
	if err != nil {
		return sigs, err
	}
	for s := slot(0); s < slotCount; s++ {
		sig, ok := parsed[slotNames[s]]
		if !ok {
			return sigs, fmt.Errorf("abi: %s not declared", slotNames[s])
		}
		sigs[s] = sig
	}
	return sigs, nil
})

var funcPattern = regexp.MustCompile(`([a-zA-Z_][a-zA-Z0-9_-]*)\s*:\s*func\s*\(([^)]*)\)(?:\s*->\s*([^;]+))?`)

// parseWitFunctions extracts flattened core signatures from WIT function
// declarations. Only primitive parameter and result types are supported.
func parseWitFunctions(witText string) (map[string]signature, error) {
	funcs := make(map[string]signature)

	for _, match := range funcPattern.FindAllStringSubmatch(witText, -1) {
		name := match[1]
		var sig signature

		if params := strings.TrimSpace(match[2]); params != "" {
			for _, p := range strings.Split(params, ",") {
				typStr := p
				if idx := strings.LastIndex(p, ":"); idx != -1 {
					typStr = p[idx+1:]
				}
				flat, err := flatType(typStr)
				if err != nil {
					return nil, fmt.Errorf("%s: param %q: %w", name, p, err)
				}
				sig.params = append(sig.params, flat)
			}
		}

		if result := strings.TrimSpace(match[3]); result != "" && result != "()" {
			flat, err := flatType(result)
			if err != nil {
				return nil, fmt.Errorf("%s: result: %w", name, err)
			}
			sig.results = []api.ValueType{flat}
		}

		funcs[name] = sig
	}

	return funcs, nil
}

// flatType lowers a primitive WIT type to its core value type
func flatType(s string) (api.ValueType, error) {
	t, err := wit.ParseType(strings.TrimSpace(s))
	if err != nil {
		return 0, err
	}
	switch t.(type) {
	case wit.Bool, wit.U8, wit.S8, wit.U16, wit.S16, wit.U32, wit.S32, wit.Char:
		return api.ValueTypeI32, nil
	case wit.U64, wit.S64:
		return api.ValueTypeI64, nil
	case wit.F32:
		return api.ValueTypeF32, nil
	case wit.F64:
		return api.ValueTypeF64, nil
	default:
		return 0, fmt.Errorf("type %s does not flatten to a single value", s)
	}
}

// validateExports checks a compiled unit against the ABI and reports which
// optional exports are present.
func validateExports(compiled wazero.CompiledModule, path []string) ([slotCount]bool, error) {
	var present [slotCount]bool

	sigs, err := abiSignatures()
	if err != nil {
		return present, errors.Load("unit abi", err)
	}

	if _, ok := compiled.ExportedMemories()[MemoryExport]; !ok {
		return present, errors.MissingExport(path, MemoryExport)
	}

	exports := compiled.ExportedFunctions()
	for s := slot(0); s < slotCount; s++ {
		name := s.exportName()
		def, ok := exports[name]
		if !ok {
			if s.optional() {
				continue
			}
			return present, errors.MissingExport(path, name)
		}
		if !sigs[s].matches(def) {
			got := signature{params: def.ParamTypes(), results: def.ResultTypes()}
			return present, errors.SignatureMismatch(path, name, sigs[s].String(), got.String())
		}
		present[s] = true
	}

	return present, nil
}

func formatTypes(types []api.ValueType) string {
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = api.ValueTypeName(t)
	}
	return "(" + strings.Join(names, ", ") + ")"
}

func equalValueTypes(a, b []api.ValueType) bool {
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
