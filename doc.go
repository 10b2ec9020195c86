// Package aawasm hosts WebAssembly audio units behind a real-time safe
// control bridge.
//
// A unit bundle is fetched from a server, its wasm binaries are compiled with
// wazero, and the resulting engine is driven by a single audio goroutine.
// Control goroutines never touch the engine: parameter edits and note events
// travel through a lock-free command queue that the audio goroutine drains at
// the start of every block.
//
// # Architecture Overview
//
//	aawasm/              Root package with the Engine and Fetcher interfaces
//	├── command/         Command sum type and lock-free MPSC queue
//	├── manifest/        Bundle manifest and module listing model
//	├── fetch/           Asset retrieval over http(s) and the filesystem
//	├── engine/          wazero-backed engine: node chain, unit ABI, host env
//	├── module/          Audio module lifecycle and per-block dispatch
//	├── capi/            Handle registry and helpers for the C boundary
//	├── errors/          Structured error types
//	└── cmd/
//	    ├── libaa/       C shared library entry points
//	    └── aa/          Command line tool: list, info, render, play
//
// # Quick Start
//
//	ctx := context.Background()
//	m, err := module.New(ctx, "https://example.com/aa", "synth.json")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer m.Close(ctx)
//
//	m.Init(48000)
//
//	// control goroutine
//	m.NoteOn(60, 0.8)
//
//	// audio goroutine, once per block
//	m.ComputeZeroTwo(len(left), left, right)
//
// # Thread Safety
//
// SetParam, NoteOn and NoteOff are safe from any goroutine. The Compute
// methods must be called from one goroutine at a time. Init, the count
// queries and Close must not run concurrently with compute.
package aawasm
