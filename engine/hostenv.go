package engine

import (
	"context"
	"math"

	"github.com/tetratelabs/wazero"
)

// HostModule is the import namespace units use for libm functions
const HostModule = "env"

type unaryF64 func(float64) float64
type binaryF64 func(float64, float64) float64

// libm functions exported to units. Each is registered in float32 (name with
// an f suffix) and float64 form, with and without a leading underscore.
var (
	unaryMath = map[string]unaryF64{
		"acos":  math.Acos,
		"acosh": math.Acosh,
		"asin":  math.Asin,
		"asinh": math.Asinh,
		"atan":  math.Atan,
		"atanh": math.Atanh,
		"cbrt":  math.Cbrt,
		"ceil":  math.Ceil,
		"cos":   math.Cos,
		"cosh":  math.Cosh,
		"exp":   math.Exp,
		"exp2":  math.Exp2,
		"exp10": exp10,
		"expm1": math.Expm1,
		"fabs":  math.Abs,
		"floor": math.Floor,
		"log":   math.Log,
		"log10": math.Log10,
		"log1p": math.Log1p,
		"log2":  math.Log2,
		"rint":  math.RoundToEven,
		"round": math.Round,
		"sin":   math.Sin,
		"sinh":  math.Sinh,
		"sqrt":  math.Sqrt,
		"tan":   math.Tan,
		"tanh":  math.Tanh,
		"trunc": math.Trunc,
	}

	binaryMath = map[string]binaryF64{
		"atan2":     math.Atan2,
		"fmax":      math.Max,
		"fmin":      math.Min,
		"fmod":      math.Mod,
		"hypot":     math.Hypot,
		"pow":       math.Pow,
		"remainder": math.Remainder,
		"copysign":  math.Copysign,
	}
)

func exp10(x float64) float64 {
	return math.Pow(10, x)
}

// instantiateHostEnv registers the env math module on r
func instantiateHostEnv(ctx context.Context, r wazero.Runtime) error {
	b := r.NewHostModuleBuilder(HostModule)

	for name, fn := range unaryMath {
		f32 := unary32(fn)
		f64 := unary64(fn)
		for _, prefix := range []string{"", "_"} {
			b.NewFunctionBuilder().WithFunc(f32).Export(prefix + name + "f")
			b.NewFunctionBuilder().WithFunc(f64).Export(prefix + name)
		}
	}

	for name, fn := range binaryMath {
		f32 := binary32(fn)
		f64 := binary64(fn)
		for _, prefix := range []string{"", "_"} {
			b.NewFunctionBuilder().WithFunc(f32).Export(prefix + name + "f")
			b.NewFunctionBuilder().WithFunc(f64).Export(prefix + name)
		}
	}

	_, err := b.Instantiate(ctx)
	return err
}

func unary32(fn unaryF64) func(context.Context, float32) float32 {
	return func(_ context.Context, x float32) float32 {
		return float32(fn(float64(x)))
	}
}

func unary64(fn unaryF64) func(context.Context, float64) float64 {
	return func(_ context.Context, x float64) float64 {
		return fn(x)
	}
}

func binary32(fn binaryF64) func(context.Context, float32, float32) float32 {
	return func(_ context.Context, x, y float32) float32 {
		return float32(fn(float64(x), float64(y)))
	}
}

func binary64(fn binaryF64) func(context.Context, float64, float64) float64 {
	return func(_ context.Context, x, y float64) float64 {
		return fn(x, y)
	}
}
