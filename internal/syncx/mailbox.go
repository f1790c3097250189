package syncx

import "sync"

// Mailbox is a single-slot queue with keep-latest semantics: putting a value
// while the slot is occupied evicts the older value through onDrop.
type Mailbox[T any] struct {
	mu     sync.Mutex
	ch     chan T
	onDrop func(T)
	closed bool
}

// NewMailbox creates an empty mailbox. onDrop may be nil.
func NewMailbox[T any](onDrop func(T)) *Mailbox[T] {
	return &Mailbox[T]{ch: make(chan T, 1), onDrop: onDrop}
}

// Put stores v, evicting any value not yet received. Returns false after Close,
// in which case v is handed to onDrop.
func (m *Mailbox[T]) Put(v T) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		m.drop(v)
		return false
	}
	for {
		select {
		case m.ch <- v:
			return true
		default:
		}
		select {
		case old := <-m.ch:
			m.drop(old)
		default:
		}
	}
}

// C returns the receive side of the mailbox.
func (m *Mailbox[T]) C() <-chan T {
	return m.ch
}

// Close rejects further puts and drops a pending value.
func (m *Mailbox[T]) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.closed = true
	select {
	case old := <-m.ch:
		m.drop(old)
	default:
	}
}

func (m *Mailbox[T]) drop(v T) {
	if m.onDrop != nil {
		m.onDrop(v)
	}
}
