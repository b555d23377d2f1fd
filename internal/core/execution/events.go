package execution

// EventType identifies a controller notification.
type EventType string

const (
	// EventPromptBackground asks whether a long-running foreground command
	// should be moved to the background. Answer with MoveToBackground.
	EventPromptBackground EventType = "prompt_background"
	// EventBackgroundMoved closes a prompt: Detached reports whether the
	// command actually moved (false when it finished first).
	EventBackgroundMoved EventType = "background_moved"
)

// Event is delivered to the Notifier.
type Event struct {
	Type     EventType
	Token    string
	Command  string
	Output   string
	TaskID   string
	Detached bool
}

// Notifier receives controller events. Notify must not block.
type Notifier interface {
	Notify(Event)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Event)

// Notify calls f(ev).
func (f NotifierFunc) Notify(ev Event) { f(ev) }

// ChannelNotifier delivers events on a buffered channel. Events are dropped
// when the buffer is full.
type ChannelNotifier struct {
	ch chan Event
}

// NewChannelNotifier creates a notifier with the given buffer size.
func NewChannelNotifier(buffer int) *ChannelNotifier {
	if buffer <= 0 {
		buffer = 16
	}
	return &ChannelNotifier{ch: make(chan Event, buffer)}
}

// Notify implements Notifier.
func (n *ChannelNotifier) Notify(ev Event) {
	select {
	case n.ch <- ev:
	default:
	}
}

// Events returns the receive side.
func (n *ChannelNotifier) Events() <-chan Event {
	return n.ch
}
