package domain

// Event is a push notification from the engine daemon. The set of event
// types is closed; the reconciler switches over all of them.
type Event interface {
	isEvent()
}

// ProgressEvent is a transient progress tick for one download. It is folded
// into the registry and discarded; it is never persisted.
type ProgressEvent struct {
	ID          string
	Total       int64 // Maps to Download.Size
	Downloaded  int64
	Speed       int64
	ETA         int64
	Connections int
	StatusText  string // Optional; "Paused" forces the paused status
}

// CompletedEvent signals a finished transfer. It carries no payload beyond
// the id because completion may change engine-side fields (category,
// auto-organize placement), so the client refreshes instead of patching.
type CompletedEvent struct {
	ID string
}

// ErrorEvent signals a failed transfer.
type ErrorEvent struct {
	ID      string
	Message string
}

// NameUpdatedEvent carries the real filename once asynchronous metadata
// resolution (torrent or video title) completes.
type NameUpdatedEvent struct {
	ID       string
	Filename string
}

// AutocatchEvent carries a URL detected on the system clipboard. It is not a
// registry mutation; it is offered to the add-download surface.
type AutocatchEvent struct {
	URL string
}

func (ProgressEvent) isEvent()    {}
func (CompletedEvent) isEvent()   {}
func (ErrorEvent) isEvent()       {}
func (NameUpdatedEvent) isEvent() {}
func (AutocatchEvent) isEvent()   {}
