// Package command carries control events from control goroutines to the
// single audio goroutine that owns a compute engine.
//
// A Command is a closed three-variant value (Param, NoteOn, NoteOff). The
// Queue is a lock-free multi-producer single-consumer list: producers link
// nodes with one atomic swap, the consumer walks the links. Neither side ever
// blocks, so the audio callback can drain it under a hard deadline.
//
//	q := command.NewQueue()
//
//	// control goroutine
//	q.Enqueue(command.Param(0, 3, 0.5))
//	q.Enqueue(command.NoteOn(60, 1))
//
//	// audio goroutine, once per block
//	q.Drain(func(c command.Command) { apply(c) })
//
// # Capacity
//
// The queue is unbounded by default. If producers persistently outpace the
// block rate memory grows without bound; WithLimit caps the number of pending
// commands and drops (and counts) the newest ones instead.
package command
