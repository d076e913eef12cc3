package engine

// --------------------------------------------------------------------------
// Lock Modes
// --------------------------------------------------------------------------

// LockMode selects how a segment lock is acquired.
type LockMode int

const (
	// ReadLock allows concurrent readers and excludes writers.
	ReadLock LockMode = iota
	// WriteLock grants exclusive access to the segment.
	WriteLock
)

func (m LockMode) String() string {
	switch m {
	case ReadLock:
		return "read"
	case WriteLock:
		return "write"
	default:
		return "unknown"
	}
}

// --------------------------------------------------------------------------
// Guard
// --------------------------------------------------------------------------

// Guard represents one acquisition of a segment lock. A guard is owned by
// exactly one operation context at a time and must be released exactly once;
// releasing twice is an error so that lifecycle bugs surface instead of
// silently unlocking someone else's critical section.
//
// Thread-safety: a Guard itself is not safe for concurrent use. This is by
// construction - it lives inside a single operation context.
type Guard struct {
	seg      *arenaSegment
	mode     LockMode
	released bool
}

// Mode returns the mode this guard was acquired in.
func (g *Guard) Mode() LockMode {
	return g.mode
}

// Held reports whether the guard still holds its lock.
func (g *Guard) Held() bool {
	return !g.released
}

// Release unlocks the segment. The first call releases the lock and returns
// nil; any further call returns ErrGuardReleased.
func (g *Guard) Release() error {
	if g.released {
		return ErrGuardReleased
	}
	g.released = true
	if g.mode == WriteLock {
		g.seg.mu.Unlock()
	} else {
		g.seg.mu.RUnlock()
	}
	return nil
}
