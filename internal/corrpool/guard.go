package corrpool

import (
	"context"
	"sync"
)

// poolState is everything the pool lock protects. It is only reachable
// through guard, so no code path can read or mutate it unlocked.
type poolState struct {
	status    []BufferStatus
	counts    [numStatuses]int
	index     *readyIndex
	dupSecond bool
}

func (st *poolState) set(id BufferID, s BufferStatus) {
	st.counts[st.status[id]]--
	st.counts[s]++
	st.status[id] = s
}

// expect panics unless id is currently in status want.
func (st *poolState) expect(op string, id BufferID, want BufferStatus) {
	if got := st.status[id]; got != want {
		panic(contractViolation(op, id, want, got))
	}
}

// guard owns the pool lock, the condition variable bound to it and the
// state they protect.
type guard struct {
	mu   sync.Mutex
	cond *sync.Cond
	st   poolState
}

func newGuard(st poolState) *guard {
	g := &guard{st: st}
	g.cond = sync.NewCond(&g.mu)
	return g
}

// with runs fn holding the lock. The lock is released even if fn panics.
func (g *guard) with(fn func(st *poolState)) {
	g.mu.Lock()
	defer g.mu.Unlock()
	fn(&g.st)
}

// broadcast wakes all waiters. Called after the lock is released.
func (g *guard) broadcast() {
	g.cond.Broadcast()
}

// waitFor runs try under the lock until it reports true, sleeping on the
// condition variable between attempts. It returns ctx.Err() once ctx is
// done and try has not succeeded.
func (g *guard) waitFor(ctx context.Context, try func(st *poolState) bool) error {
	if ctx.Done() != nil {
		stop := context.AfterFunc(ctx, func() {
			// Taking the lock orders this broadcast after the waiter's
			// ctx check, so the wakeup cannot be lost.
			g.mu.Lock()
			g.cond.Broadcast()
			g.mu.Unlock()
		})
		defer stop()
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	for {
		if try(&g.st) {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		g.cond.Wait()
	}
}
