package fsm

import (
	"runtime/debug"

	"rescuebot/pkg/logger"
)

// SendFunc delivers one outbound message; opts carry transport extras such as
// keyboards.
type SendFunc func(text string, opts ...interface{}) error

// Turn is everything a handler may touch while processing one event.
type Turn struct {
	Event   Event
	Session *Session
	send    SendFunc
	edit    SendFunc
}

func NewTurn(ev Event, s *Session, send, edit SendFunc) *Turn {
	return &Turn{Event: ev, Session: s, send: send, edit: edit}
}

// Reply appends a message to the chat.
func (t *Turn) Reply(text string, opts ...interface{}) error {
	return t.send(text, opts...)
}

// Edit replaces the message the event originated from, falling back to a
// plain reply when the transport has nothing to edit.
func (t *Turn) Edit(text string, opts ...interface{}) error {
	if t.edit != nil {
		return t.edit(text, opts...)
	}
	return t.send(text, opts...)
}

// Engine routes events through the conversation hierarchy. One session per
// chat; one frame per nested conversation; first matching rule fires.
type Engine struct {
	root     *Conversation
	sessions *SessionStore
	log      logger.ILogger

	// FailureText is sent when a handler returns an error or panics.
	FailureText string
}

func NewEngine(root *Conversation, log logger.ILogger) *Engine {
	return &Engine{
		root:        root,
		sessions:    NewSessionStore(),
		log:         log,
		FailureText: "Something went wrong, please try again.",
	}
}

func (e *Engine) Sessions() *SessionStore {
	return e.sessions
}

// Dispatch handles one event for its chat. It returns false when neither an
// active conversation nor the root entry wanted the event, so the caller can
// produce its own fallback reply. Turns for the same chat run strictly one
// after another; other chats proceed concurrently.
func (e *Engine) Dispatch(ev Event, send, edit SendFunc) (handled bool, err error) {
	s := e.sessions.Acquire(ev.ChatID)
	defer s.mu.Unlock()

	t := NewTurn(ev, s, send, edit)

	defer func() {
		if r := recover(); r != nil {
			e.log.Error("panic in dialog handler",
				logger.Int64("chat_id", ev.ChatID),
				logger.Any("panic", r),
				logger.String("stack", string(debug.Stack())),
			)
			handled, err = true, nil
			_ = t.Reply(e.FailureText)
		}
	}()

	conv, st, active := s.Active()
	if !active {
		if e.root.EntryMatch == nil || !e.root.EntryMatch(ev) {
			return false, nil
		}
		s.push(e.root)
		e.runEntry(t, e.root)
		return true, nil
	}

	rule, ok := conv.findRule(st, ev)
	if !ok {
		e.log.Info("no rule matched",
			logger.Int64("chat_id", ev.ChatID),
			logger.String("conversation", conv.Name),
			logger.String("state", string(st)),
		)
		return false, nil
	}

	if rule.Enter != nil {
		s.push(rule.Enter)
		e.runEntry(t, rule.Enter)
		return true, nil
	}

	e.runHandler(t, rule.Handler)
	return true, nil
}

func (e *Engine) runEntry(t *Turn, c *Conversation) {
	e.runHandler(t, c.Entry)
}

// runHandler executes the handler and applies its transition. Handler errors
// leave the state untouched so the chat stays in a known-good step.
func (e *Engine) runHandler(t *Turn, h Handler) {
	next, err := h(t)
	if err != nil {
		conv, st, _ := t.Session.Active()
		name := ""
		if conv != nil {
			name = conv.Name
		}
		e.log.Error("dialog handler failed",
			logger.Int64("chat_id", t.Event.ChatID),
			logger.Int64("sender_id", t.Event.SenderID),
			logger.String("conversation", name),
			logger.String("state", string(st)),
			logger.Error(err),
		)
		_ = t.Reply(e.FailureText)
		return
	}

	e.transition(t, next)
}

func (e *Engine) transition(t *Turn, next State) {
	s := t.Session

	if next == StateNone {
		return
	}

	if !next.Terminal() {
		s.setState(next)
		return
	}

	popped := s.pop()

	if s.Depth() == 0 {
		s.ClearData()
		e.sessions.Delete(s.ChatID)
		return
	}

	parentState, ok := popped.conv.ExitMap[next]
	if !ok {
		// No mapping means the terminal token propagates: the whole
		// stack ends, not just the inner conversation.
		e.log.Info("terminal state not mapped, ending conversation stack",
			logger.String("conversation", popped.conv.Name),
			logger.String("state", string(next)),
		)
		s.unwind()
		e.sessions.Delete(s.ChatID)
		return
	}

	s.setState(parentState)

	parent, _, _ := s.Active()
	if parent.Resume != nil {
		if err := parent.Resume(t, parentState); err != nil {
			e.log.Error("resume failed",
				logger.Int64("chat_id", t.Event.ChatID),
				logger.String("conversation", parent.Name),
				logger.Error(err),
			)
		}
	}
}
