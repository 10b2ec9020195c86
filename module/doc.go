// Package module hosts one audio unit behind a command bridge.
//
// A Module is built from a bundle manifest: the manifest is fetched and
// parsed, every unit binary is fetched in declaration order, and the engine
// is built from them. Any failure aborts construction as a whole.
//
// Control goroutines call SetParam, NoteOn and NoteOff, which only enqueue
// commands. The audio goroutine calls one of the Compute methods per block;
// each drains the queue, applies the commands in order and then computes.
// A command enqueued before a compute call therefore affects that call's
// output, and nothing on the audio path blocks or returns an error.
//
//	m, err := module.New(ctx, base, "synth.json")
//	if err != nil {
//	    return err
//	}
//	defer m.Close(ctx)
//
//	if err := m.Init(48000); err != nil {
//	    return err
//	}
//	m.NoteOn(60, 1)
//	m.ComputeZeroTwo(256, left, right)
package module
