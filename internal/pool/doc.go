// Package pool runs a set of named tasks concurrently and reports the
// outcome of each one.
//
// Lifecycle:
//
//	p := pool.New(cfg, tasks...)
//	p.Start(ctx)            // Idle -> Running, spawns queued tasks
//	p.Submit(task)          // spawned immediately while Running
//	report, err := p.Shutdown(ctx) // Running -> Draining -> Terminated
//
// A failing task never cancels its siblings. The task context is cancelled
// only when the parent context ends or when Shutdown gives up waiting.
package pool
