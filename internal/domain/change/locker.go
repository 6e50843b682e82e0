package change

import "sync"

// sessionLocker hands out a per-session mutex so that Enqueue and
// FlushStep for the same session never interleave, while different
// sessions proceed concurrently. Per §4.8 the simplest correct
// implementation shares one lock across both operations rather than
// attempting field- or step-level granularity.
type sessionLocker struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newSessionLocker() *sessionLocker {
	return &sessionLocker{locks: make(map[string]*sync.Mutex)}
}

// Lock acquires the mutex for sessionID, creating it on first use, and
// returns a function that releases it.
func (l *sessionLocker) Lock(sessionID string) (unlock func()) {
	l.mu.Lock()
	m, ok := l.locks[sessionID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[sessionID] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
