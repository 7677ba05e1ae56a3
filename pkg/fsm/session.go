package fsm

import "sync"

type frame struct {
	conv  *Conversation
	state State
}

// Session is the per-chat scratch space: the conversation frame stack plus a
// free-form data map. The engine serializes turns of one chat on mu, so
// handlers access Data without further locking.
type Session struct {
	mu     sync.Mutex
	ChatID int64
	stack  []frame
	Data   map[string]interface{}
}

func newSession(chatID int64) *Session {
	return &Session{
		ChatID: chatID,
		Data:   make(map[string]interface{}),
	}
}

func (s *Session) Set(key string, value interface{}) {
	s.Data[key] = value
}

func (s *Session) Get(key string) (interface{}, bool) {
	v, ok := s.Data[key]
	return v, ok
}

func (s *Session) GetInt64(key string) (int64, bool) {
	v, ok := s.Data[key]
	if !ok {
		return 0, false
	}
	n, ok := v.(int64)
	return n, ok
}

func (s *Session) GetString(key string) (string, bool) {
	v, ok := s.Data[key]
	if !ok {
		return "", false
	}
	str, ok := v.(string)
	return str, ok
}

func (s *Session) GetBool(key string) bool {
	v, ok := s.Data[key]
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}

func (s *Session) Delete(key string) {
	delete(s.Data, key)
}

// ClearData empties the scratch map without touching the frame stack.
func (s *Session) ClearData() {
	s.Data = make(map[string]interface{})
}

// Empty reports whether the session holds no frames and no data.
func (s *Session) Empty() bool {
	return len(s.stack) == 0 && len(s.Data) == 0
}

// Depth returns how many conversations are stacked.
func (s *Session) Depth() int {
	return len(s.stack)
}

// Active returns the innermost conversation and its current state.
func (s *Session) Active() (*Conversation, State, bool) {
	if len(s.stack) == 0 {
		return nil, StateNone, false
	}
	top := s.stack[len(s.stack)-1]
	return top.conv, top.state, true
}

func (s *Session) push(c *Conversation) {
	s.stack = append(s.stack, frame{conv: c})
}

func (s *Session) pop() frame {
	top := s.stack[len(s.stack)-1]
	s.stack = s.stack[:len(s.stack)-1]
	return top
}

func (s *Session) setState(st State) {
	s.stack[len(s.stack)-1].state = st
}

func (s *Session) unwind() {
	s.stack = nil
	s.ClearData()
}

// SessionStore keeps one session per chat. The outer map lock is held only
// for lookups; turn serialization happens on the session's own mutex.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[int64]*Session
}

func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[int64]*Session)}
}

func (st *SessionStore) Get(chatID int64) *Session {
	st.mu.Lock()
	defer st.mu.Unlock()

	s, ok := st.sessions[chatID]
	if !ok {
		s = newSession(chatID)
		st.sessions[chatID] = s
	}
	return s
}

// Acquire returns the chat's session with its mutex held. A turn that ends a
// conversation stack deletes the session from the store, so a looked-up
// session may be stale by the time its lock is taken; the lookup is retried
// until the locked session is still the one the store tracks.
func (st *SessionStore) Acquire(chatID int64) *Session {
	for {
		s := st.Get(chatID)
		s.mu.Lock()

		st.mu.RLock()
		current := st.sessions[chatID]
		st.mu.RUnlock()

		if current == s {
			return s
		}
		s.mu.Unlock()
	}
}

func (st *SessionStore) Peek(chatID int64) (*Session, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	s, ok := st.sessions[chatID]
	return s, ok
}

func (st *SessionStore) Delete(chatID int64) {
	st.mu.Lock()
	defer st.mu.Unlock()
	delete(st.sessions, chatID)
}
