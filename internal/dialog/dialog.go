// Package dialog models the progress/close/indeterminate channel contract
// that downloads and long-running orchestrator steps report through,
// without depending on any concrete UI toolkit: a blocking operation plus
// a cancellation channel, not an async runtime.
package dialog

import "errors"

// MessageKind discriminates the three message shapes sent over a Stream.
type MessageKind int

const (
	KindProgress MessageKind = iota
	KindIndeterminate
	KindClose
)

// Message is one update delivered to a dialog consumer. Progress is only
// meaningful when Kind == KindProgress, and ranges 0-100.
type Message struct {
	Kind     MessageKind
	Progress int16
}

// Stream is a single-shot, single-producer single-consumer channel of
// dialog messages. A Close message always wins over any pending progress
// message still queued behind it; Indeterminate supersedes prior progress
// values until either a new progress value or a Close arrives.
type Stream struct {
	ch chan Message
}

// NewStream creates a Stream with the given buffer depth. A small buffer
// (even a single slot) lets the producer coalesce bursts of
// progress updates without blocking on a slow consumer.
func NewStream(buffer int) *Stream {
	return &Stream{ch: make(chan Message, buffer)}
}

// ErrCancelled is returned by SendProgress/SendIndeterminate when a
// coalescing send still finds the buffer full after dropping the stale
// message (another sender refilled it). A consumer that stops reading is
// not detected: sends keep replacing the buffered message and succeed.
var ErrCancelled = errors.New("dialog: stream cancelled")

func (s *Stream) send(msg Message) error {
	select {
	case s.ch <- msg:
		return nil
	default:
		// Coalesce: drop the stale message sitting in the buffer and push
		// the latest one through; the consumer only cares about the most
		// recent value observed on its next poll.
		select {
		case <-s.ch:
		default:
		}
		select {
		case s.ch <- msg:
			return nil
		default:
			return ErrCancelled
		}
	}
}

// SendProgress reports a 0-100 progress value.
func (s *Stream) SendProgress(pct int16) error {
	return s.send(Message{Kind: KindProgress, Progress: pct})
}

// SendIndeterminate moves the dialog into indeterminate mode, used by the
// update orchestrator for the non-deterministic work between extraction and
// shortcut reconciliation.
func (s *Stream) SendIndeterminate() error {
	return s.send(Message{Kind: KindIndeterminate})
}

// Close sends the terminal Close message. A Close always wins over any
// progress message still queued: Receive drains to the first Close it sees.
func (s *Stream) Close() {
	// A direct non-coalescing send: Close must never be dropped by the
	// coalescing logic in send().
	select {
	case s.ch <- Message{Kind: KindClose}:
	default:
		<-s.ch
		s.ch <- Message{Kind: KindClose}
	}
}

// Receive returns the channel for range-based consumption. Consumers must
// stop reading after observing a KindClose message.
func (s *Stream) Receive() <-chan Message {
	return s.ch
}

// ProgressFunc adapts a Stream into the simple int-percentage callback
// shape used by internal/bundle and internal/feed.
func (s *Stream) ProgressFunc() func(pct int) {
	return func(pct int) {
		_ = s.SendProgress(int16(pct))
	}
}

