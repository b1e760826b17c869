package pool

import (
	"gfx.cafe/gfx/sqlpool/lib/util/pools"
	"gfx.cafe/gfx/sqlpool/lib/util/ring"
)

// waiter is signalled once with a wake-up, or closed when the pool is destroyed.
type waiter chan struct{}

// waitQueue is a fifo of waiters plus a free list of their channels. The zero value is ready
// to use. Not safe for concurrent use, the pool guards it with its mutex.
type waitQueue struct {
	queue ring.Ring[waiter]
	free  pools.Pool[waiter]
}

func (T *waitQueue) pushBack(w waiter) {
	T.queue.PushBack(w)
}

// pushFront puts a waiter that was woken but lost its slot back at the head of the line.
func (T *waitQueue) pushFront(w waiter) {
	T.queue.PushFront(w)
}

func (T *waitQueue) popFront() (waiter, bool) {
	return T.queue.PopFront()
}

// remove deletes w while keeping the order of everyone else. Reports whether w was queued.
func (T *waitQueue) remove(w waiter) bool {
	return T.queue.Remove(func(v waiter) bool {
		return v == w
	})
}

func (T *waitQueue) len() int {
	return T.queue.Length()
}

// drain empties the queue and returns everyone that was waiting.
func (T *waitQueue) drain() []waiter {
	out := make([]waiter, 0, T.queue.Length())
	for {
		w, ok := T.queue.PopFront()
		if !ok {
			return out
		}
		out = append(out, w)
	}
}

func (T *waitQueue) get() waiter {
	if w, ok := T.free.Get(); ok {
		return w
	}
	return make(waiter, 1)
}

// put recycles an empty, unclosed waiter.
func (T *waitQueue) put(w waiter) {
	T.free.Put(w)
}
