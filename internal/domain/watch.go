package domain

import "sync"

// Notifier fans change notifications out to registered watchers. It replaces
// the live-query subscriptions of the original document store with an
// explicit listener interface: registration returns a cancellation handle,
// each watcher is invoked at most once per distinct change, and receivers
// are expected to recompute from the latest snapshot rather than apply
// deltas.
type Notifier struct {
	mu       sync.Mutex
	nextID   int
	messages map[int]watcher
	links    map[int]watcher
}

type watcher struct {
	key string
	fn  func()
}

// NewNotifier creates an empty notifier.
func NewNotifier() *Notifier {
	return &Notifier{
		messages: make(map[int]watcher),
		links:    make(map[int]watcher),
	}
}

// WatchMessages registers fn to run whenever a message involving key (as
// author or mention) is stored. An empty key watches every message. The
// returned cancel func must be called when the watcher goes away; calling
// it more than once is harmless.
func (n *Notifier) WatchMessages(key string, fn func()) (cancel func()) {
	return n.register(n.messages, key, fn)
}

// WatchLinks registers fn to run whenever the link document for key changes.
func (n *Notifier) WatchLinks(key string, fn func()) (cancel func()) {
	return n.register(n.links, key, fn)
}

func (n *Notifier) register(set map[int]watcher, key string, fn func()) func() {
	n.mu.Lock()
	id := n.nextID
	n.nextID++
	set[id] = watcher{key: key, fn: fn}
	n.mu.Unlock()

	return func() {
		n.mu.Lock()
		delete(set, id)
		n.mu.Unlock()
	}
}

// NotifyMessage fires every message watcher interested in msg: watchers of
// the author's key, of any mentioned key, and catch-all watchers.
func (n *Notifier) NotifyMessage(msg *Message) {
	n.mu.Lock()
	var fns []func()
	for _, w := range n.messages {
		if w.key == "" || w.key == msg.Username || contains(msg.Mentions, w.key) {
			fns = append(fns, w.fn)
		}
	}
	n.mu.Unlock()

	// Callbacks run outside the lock so a watcher may cancel itself.
	for _, fn := range fns {
		fn()
	}
}

// NotifyLinks fires every link watcher registered for key.
func (n *Notifier) NotifyLinks(key string) {
	n.mu.Lock()
	var fns []func()
	for _, w := range n.links {
		if w.key == "" || w.key == key {
			fns = append(fns, w.fn)
		}
	}
	n.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

func contains(list []string, v string) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}
