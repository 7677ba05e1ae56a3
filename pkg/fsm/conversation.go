package fsm

// State identifies one step of a conversation. State spaces are private to
// their conversation; the reserved tokens below cross conversation borders.
type State string

const (
	// StateNone keeps the current state (used by re-prompting handlers).
	StateNone State = ""
	// StateEnd finishes the conversation normally.
	StateEnd State = "__end__"
	// StateStopping aborts the conversation (cancel path).
	StateStopping State = "__stopping__"
)

// Terminal reports whether the token leaves the conversation.
func (s State) Terminal() bool {
	return s == StateEnd || s == StateStopping
}

// Handler runs one turn and names the next state.
type Handler func(t *Turn) (State, error)

// Rule binds an event pattern to a handler. When Enter is set the engine
// pushes that conversation and runs its Entry instead of Handler.
type Rule struct {
	Match   Matcher
	Handler Handler
	Enter   *Conversation
}

// Conversation is one level of the dialog hierarchy. Nested conversations are
// reached through Rule.Enter; their terminal tokens are translated back into
// the parent's state space through ExitMap.
type Conversation struct {
	Name string

	// EntryMatch starts this conversation from an empty stack. Only the
	// engine's root conversation needs it.
	EntryMatch Matcher
	Entry      Handler

	States    map[State][]Rule
	Fallbacks []Rule

	// ExitMap translates StateEnd/StateStopping into a state of the
	// enclosing conversation. A missing entry unwinds the whole stack.
	ExitMap map[State]State

	// Resume redisplays this conversation when a nested one pops back into
	// it at the mapped state.
	Resume func(t *Turn, st State) error
}

func (c *Conversation) findRule(st State, ev Event) (Rule, bool) {
	for _, r := range c.States[st] {
		if r.Match(ev) {
			return r, true
		}
	}
	for _, r := range c.Fallbacks {
		if r.Match(ev) {
			return r, true
		}
	}
	return Rule{}, false
}
