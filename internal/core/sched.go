package core

import "time"

// TimerHandle is one scheduled callback. Stop must be safe after firing;
// every armed timer needs a paired Stop on teardown so no callback outlives
// its owner.
type TimerHandle interface {
	Stop()
}

// Scheduler arms callbacks on the owning event loop. Callbacks run serialized
// with every other loop event, so handlers mutate shared state freely.
type Scheduler interface {
	After(d time.Duration, fn func()) TimerHandle
	Every(d time.Duration, fn func()) TimerHandle
}
