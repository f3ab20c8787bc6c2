package tui

import "github.com/cieldm/ciel/internal/domain"

// QueueNotifier adapts a registry observer callback to a channel that Bubble
// Tea can wait on. Sends are non-blocking; a full channel already has a
// wakeup pending, so dropping the signal loses nothing.
type QueueNotifier struct {
	ch chan struct{}
}

func NewQueueNotifier() *QueueNotifier {
	return &QueueNotifier{ch: make(chan struct{}, 1)}
}

// Notify is registered as a registry observer.
func (n *QueueNotifier) Notify() {
	select {
	case n.ch <- struct{}{}:
	default:
	}
}

// C returns the wakeup channel.
func (n *QueueNotifier) C() <-chan struct{} { return n.ch }

// SettingsNotifier adapts a settings observer callback to a channel,
// carrying the latest snapshot. A newer snapshot replaces a pending one.
type SettingsNotifier struct {
	ch chan domain.Snapshot
}

func NewSettingsNotifier() *SettingsNotifier {
	return &SettingsNotifier{ch: make(chan domain.Snapshot, 1)}
}

// Notify is registered as a settings observer.
func (n *SettingsNotifier) Notify(snap domain.Snapshot) {
	for {
		select {
		case n.ch <- snap:
			return
		default:
			select {
			case <-n.ch:
			default:
			}
		}
	}
}

// C returns the snapshot channel.
func (n *SettingsNotifier) C() <-chan domain.Snapshot { return n.ch }

// CatchNotifier queues autocatch URLs for the UI prompt.
type CatchNotifier struct {
	ch chan string
}

func NewCatchNotifier() *CatchNotifier {
	return &CatchNotifier{ch: make(chan string, 8)}
}

// Notify is registered as the reconciler's autocatch handler.
func (n *CatchNotifier) Notify(url string) {
	select {
	case n.ch <- url:
	default:
	}
}

// C returns the caught-URL channel.
func (n *CatchNotifier) C() <-chan string { return n.ch }
