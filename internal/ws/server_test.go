package ws

import "testing"

func newTestFeed() *ordersFeed {
	return &ordersFeed{
		subs:     make(map[int64]map[*wsClient]struct{}),
		watching: make(map[int64]struct{}),
	}
}

func TestOrdersFeedWatcherHandoff(t *testing.T) {
	f := newTestFeed()
	a, b := &wsClient{}, &wsClient{}

	if !f.addSubscriber(1, a) {
		t.Fatal("first subscriber must start a watcher")
	}
	if f.addSubscriber(1, b) {
		t.Fatal("second subscriber must reuse the running watcher")
	}

	f.removeSubscriber(1, a)
	if f.unwatchIfIdle(1) {
		t.Fatal("watcher must keep running while a subscriber remains")
	}

	f.removeSubscriber(1, b)
	if !f.unwatchIfIdle(1) {
		t.Fatal("watcher must stop once the last subscriber leaves")
	}

	// The mark is cleared by the exiting watcher itself, so the next
	// subscriber starts a fresh one.
	if !f.addSubscriber(1, a) {
		t.Fatal("subscriber after watcher exit must start a new watcher")
	}
}

func TestOrdersFeedSubscribeDuringWatcherExit(t *testing.T) {
	f := newTestFeed()
	a, b := &wsClient{}, &wsClient{}

	f.addSubscriber(1, a)
	f.removeSubscriber(1, a)

	// A subscribe landing between the last unsubscribe and the watcher's
	// idle check must keep the running watcher alive rather than leave the
	// tenant with a dead feed.
	if f.addSubscriber(1, b) {
		t.Fatal("watcher is still marked; no second watcher may start")
	}
	if f.unwatchIfIdle(1) {
		t.Fatal("watcher must not exit after a subscriber raced back in")
	}
}

func TestOrdersFeedTenantsAreIndependent(t *testing.T) {
	f := newTestFeed()
	a, b := &wsClient{}, &wsClient{}

	if !f.addSubscriber(1, a) || !f.addSubscriber(2, b) {
		t.Fatal("each tenant's first subscriber must start its own watcher")
	}
	f.removeSubscriber(1, a)
	if f.unwatchIfIdle(2) {
		t.Fatal("another tenant's unsubscribe must not stop this watcher")
	}
	if !f.unwatchIfIdle(1) {
		t.Fatal("idle tenant's watcher must stop")
	}
}
