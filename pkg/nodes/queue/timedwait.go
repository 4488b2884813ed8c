package queue

import (
	"sync"
	"time"
)

// timedWait waits on cond for at most d, waking the caller either when
// Signal/Broadcast fires or when the timer elapses, whichever is
// first. The caller must hold cond.L on entry and will hold it again
// on return, matching sync.Cond.Wait's contract.
func timedWait(cond *sync.Cond, d time.Duration) {
	timer := time.AfterFunc(d, func() {
		cond.Broadcast()
	})
	defer timer.Stop()
	cond.Wait()
}
