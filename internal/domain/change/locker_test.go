package change

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSessionLocker_SameSessionSerializes(t *testing.T) {
	l := newSessionLocker()
	var active int32
	var maxActive int32
	var wg sync.WaitGroup

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := l.Lock("s1")
			defer unlock()

			n := atomic.AddInt32(&active, 1)
			for {
				m := atomic.LoadInt32(&maxActive)
				if n <= m || atomic.CompareAndSwapInt32(&maxActive, m, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&active, -1)
		}()
	}
	wg.Wait()

	require.Equal(t, int32(1), maxActive, "at most one goroutine may hold session s1's lock at a time")
}

func TestSessionLocker_DifferentSessionsDoNotBlockEachOther(t *testing.T) {
	l := newSessionLocker()

	unlockA := l.Lock("s1")
	defer unlockA()

	done := make(chan struct{})
	go func() {
		unlockB := l.Lock("s2")
		defer unlockB()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("locking a different session must not block on s1's lock")
	}
}
