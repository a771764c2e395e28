package tui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/robert-malhotra/stac-grid-explorer/internal/session"
)

// SnapshotMsg carries a session snapshot into the program.
type SnapshotMsg session.Snapshot

// NoticeMsg is a user-facing notification.
type NoticeMsg struct {
	Title   string
	Message string
}

// sender is the part of *tea.Program the bridge uses.
type sender interface {
	Send(msg tea.Msg)
}

// Bridge forwards session snapshots and notifications to a running program.
// It is created before the program so it can be handed to the session.
//
// Messages are queued and delivered in order by a single goroutine. A queued
// snapshot that has not been delivered yet is replaced by a newer one.
type Bridge struct {
	mu      sync.Mutex
	started bool
	closed  bool
	pending []tea.Msg

	wake chan struct{}
	done chan struct{}
}

// SetProgram attaches the program messages are sent to and starts delivery.
func (b *Bridge) SetProgram(p *tea.Program) {
	b.start(p)
}

func (b *Bridge) start(s sender) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.started || b.closed {
		return
	}
	b.started = true
	b.wake = make(chan struct{}, 1)
	b.done = make(chan struct{})
	go b.forward(s, b.wake, b.done)
}

// Close stops delivery. Queued messages are dropped.
func (b *Bridge) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	b.pending = nil
	if b.started {
		close(b.done)
	}
}

// Listen is a session.Listener.
func (b *Bridge) Listen(s session.Snapshot) {
	b.send(SnapshotMsg(s))
}

// Notify implements session.Notifier.
func (b *Bridge) Notify(title, message string) {
	b.send(NoticeMsg{Title: title, Message: message})
}

// send never blocks the caller: Program.Send waits for the event loop,
// which may itself be calling into the session.
func (b *Bridge) send(msg tea.Msg) {
	b.mu.Lock()
	if !b.started || b.closed {
		b.mu.Unlock()
		return
	}
	if _, ok := msg.(SnapshotMsg); ok && len(b.pending) > 0 {
		if _, ok := b.pending[len(b.pending)-1].(SnapshotMsg); ok {
			b.pending[len(b.pending)-1] = msg
			b.mu.Unlock()
			b.signal()
			return
		}
	}
	b.pending = append(b.pending, msg)
	b.mu.Unlock()
	b.signal()
}

func (b *Bridge) signal() {
	select {
	case b.wake <- struct{}{}:
	default:
	}
}

func (b *Bridge) forward(s sender, wake, done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		case <-wake:
		}

		b.mu.Lock()
		batch := b.pending
		b.pending = nil
		b.mu.Unlock()

		for _, msg := range batch {
			select {
			case <-done:
				return
			default:
			}
			s.Send(msg)
		}
	}
}
