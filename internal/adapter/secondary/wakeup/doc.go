// Package wakeup provides the in-process exact wake-up registry.
// A single goroutine owns a min-heap of wake-ups ordered by fire time and
// sleeps at most one minute at a time, so wall-clock steps and host sleep
// delay a firing by no more than that cap. The heap is not persisted; it is
// rebuilt from the trigger store on restart.
package wakeup
