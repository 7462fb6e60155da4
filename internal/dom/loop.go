package dom

import (
	"container/heap"
	"context"
	"sync"
	"time"
)

// TimerID identifies a pending timeout.
type TimerID uint64

type timer struct {
	id  TimerID
	at  time.Duration
	seq uint64
	fn  func()
}

type timerHeap []*timer

func (h timerHeap) Len() int { return len(h) }
func (h timerHeap) Less(i, j int) bool {
	if h[i].at != h[j].at {
		return h[i].at < h[j].at
	}
	return h[i].seq < h[j].seq
}
func (h timerHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *timerHeap) Push(x any)   { *h = append(*h, x.(*timer)) }
func (h *timerHeap) Pop() any {
	old := *h
	t := old[len(old)-1]
	*h = old[:len(old)-1]
	return t
}

// Loop is the single-threaded event loop every document callback runs on.
// Time is virtual: it only moves when Advance is called, either directly
// (tests) or by Run (wall clock).
type Loop struct {
	now     time.Duration
	timers  timerHeap
	byID    map[TimerID]*timer
	nextID  TimerID
	nextSeq uint64

	mu     sync.Mutex
	posted []func()
	wake   chan struct{}
}

// NewLoop returns an idle loop at virtual time zero.
func NewLoop() *Loop {
	return &Loop{
		byID: map[TimerID]*timer{},
		wake: make(chan struct{}, 1),
	}
}

// Now returns the virtual time elapsed since the loop was created.
func (l *Loop) Now() time.Duration { return l.now }

// SetTimeout schedules fn to run once d has elapsed. Must be called on the loop.
func (l *Loop) SetTimeout(d time.Duration, fn func()) TimerID {
	if d < 0 {
		d = 0
	}
	l.nextID++
	l.nextSeq++
	t := &timer{id: l.nextID, at: l.now + d, seq: l.nextSeq, fn: fn}
	heap.Push(&l.timers, t)
	l.byID[t.id] = t
	return t.id
}

// ClearTimeout cancels a pending timeout. Unknown or fired ids are ignored.
func (l *Loop) ClearTimeout(id TimerID) {
	t, ok := l.byID[id]
	if !ok {
		return
	}
	delete(l.byID, id)
	for i, ht := range l.timers {
		if ht == t {
			heap.Remove(&l.timers, i)
			return
		}
	}
}

// Pending returns the number of scheduled timeouts.
func (l *Loop) Pending() int { return len(l.timers) }

// Post queues fn to run on the loop. Safe to call from any goroutine.
func (l *Loop) Post(fn func()) {
	l.mu.Lock()
	l.posted = append(l.posted, fn)
	l.mu.Unlock()
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Drain runs every posted task, including tasks posted while draining.
func (l *Loop) Drain() {
	for {
		l.mu.Lock()
		tasks := l.posted
		l.posted = nil
		l.mu.Unlock()
		if len(tasks) == 0 {
			return
		}
		for _, fn := range tasks {
			fn()
		}
	}
}

// Advance moves virtual time forward by d, running posted tasks first and
// then every timer that falls due, in deadline order.
func (l *Loop) Advance(d time.Duration) {
	l.Drain()
	target := l.now + d
	for len(l.timers) > 0 && l.timers[0].at <= target {
		t := heap.Pop(&l.timers).(*timer)
		delete(l.byID, t.id)
		if t.at > l.now {
			l.now = t.at
		}
		t.fn()
		l.Drain()
	}
	l.now = target
}

// Run drives the loop from the wall clock until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) error {
	last := time.Now()
	for {
		wait := time.Hour
		if len(l.timers) > 0 {
			wait = l.timers[0].at - l.now
		}
		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-l.wake:
		case <-t.C:
		}
		t.Stop()
		now := time.Now()
		l.Advance(now.Sub(last))
		last = now
	}
}
