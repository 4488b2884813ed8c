package core

import "sync"

// Invoker tracks every background goroutine a Worker spawns (listener,
// timers, CS-requester loops) so shutdown can wait for them to exit
// cleanly, grounded on the teacher's test.TestInvoker (test/testing.go)
// generalized from a test-only helper into a runtime collaborator
// every Worker owns.
type Invoker struct {
	wg sync.WaitGroup
}

// NewInvoker creates an empty Invoker.
func NewInvoker() *Invoker {
	return &Invoker{}
}

// Spawn runs f in a new goroutine tracked by the Invoker.
func (i *Invoker) Spawn(f func()) {
	i.wg.Add(1)
	go func() {
		defer i.wg.Done()
		f()
	}()
}

// Wait blocks until every spawned goroutine has returned.
func (i *Invoker) Wait() {
	i.wg.Wait()
}
