package conversation

import "sync"

const shardCount = 32

// Sessions is an in-memory session table keyed by user id. Access to one
// user's session is serialized; different users only contend on a shard
// lock for the map lookup.
type Sessions struct {
	shards [shardCount]sessionShard
}

type sessionShard struct {
	mu sync.Mutex
	m  map[int64]*sessionEntry
}

type sessionEntry struct {
	mu   sync.Mutex
	s    Session
	refs int // guarded by the shard lock
}

func NewSessions() *Sessions {
	st := &Sessions{}
	for i := range st.shards {
		st.shards[i].m = make(map[int64]*sessionEntry)
	}
	return st
}

func (st *Sessions) shard(userID int64) *sessionShard {
	return &st.shards[uint64(userID)%shardCount]
}

// With runs fn with exclusive access to the user's session. Sessions that
// end in Idle are dropped. The locks are released even if fn panics.
func (st *Sessions) With(userID int64, fn func(*Session)) {
	sh := st.shard(userID)

	sh.mu.Lock()
	e, ok := sh.m[userID]
	if !ok {
		e = &sessionEntry{}
		sh.m[userID] = e
	}
	e.refs++
	sh.mu.Unlock()

	defer func() {
		sh.mu.Lock()
		e.refs--
		// With no other holder, e.s is stable under the shard lock.
		if e.refs == 0 && e.s.State == Idle {
			delete(sh.m, userID)
		}
		sh.mu.Unlock()
	}()

	e.run(fn)
}

func (e *sessionEntry) run(fn func(*Session)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	fn(&e.s)
}

// Get returns a copy of the user's session.
func (st *Sessions) Get(userID int64) Session {
	var s Session
	st.With(userID, func(cur *Session) { s = *cur })
	return s
}

// Reset drops the user's session.
func (st *Sessions) Reset(userID int64) {
	st.With(userID, func(cur *Session) { *cur = Session{} })
}

// Len returns the number of sessions in the table: every non-idle session
// plus idle ones still held by a running With.
func (st *Sessions) Len() int {
	n := 0
	for i := range st.shards {
		sh := &st.shards[i]
		sh.mu.Lock()
		n += len(sh.m)
		sh.mu.Unlock()
	}
	return n
}
