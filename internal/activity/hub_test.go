package activity

import "testing"

func TestHub_PublishInOrder(t *testing.T) {
	hub := NewHub()
	var order []string

	hub.Subscribe(KindTerminalOpened, func(Notification) { order = append(order, "first") })
	hub.Subscribe(KindTerminalOpened, func(Notification) { order = append(order, "second") })
	hub.Subscribe(KindTerminalClosed, func(Notification) { order = append(order, "other") })

	if n := hub.Publish(TerminalOpened{Terminal{Name: "bash"}}); n != 2 {
		t.Errorf("Publish delivered to %d subscribers, want 2", n)
	}
	if len(order) != 2 || order[0] != "first" || order[1] != "second" {
		t.Errorf("call order = %v", order)
	}
}

func TestHub_CancelStopsDelivery(t *testing.T) {
	hub := NewHub()
	calls := 0

	sub := hub.Subscribe(KindOpenDocument, func(Notification) { calls++ })
	hub.Publish(DocumentOpened{})
	sub.Cancel()
	sub.Cancel()
	hub.Publish(DocumentOpened{})

	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
	if n := hub.SubscriberCount(KindOpenDocument); n != 0 {
		t.Errorf("SubscriberCount = %d after cancel", n)
	}
}

func TestHub_CancelFromCallback(t *testing.T) {
	hub := NewHub()
	var sub Subscription
	calls := 0

	sub = hub.Subscribe(KindSaveDocument, func(Notification) {
		calls++
		sub.Cancel()
	})

	hub.Publish(DocumentSaved{})
	hub.Publish(DocumentSaved{})

	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestHub_CancelKeepsOthers(t *testing.T) {
	hub := NewHub()
	a, b := 0, 0

	subA := hub.Subscribe(KindEndTaskProcess, func(Notification) { a++ })
	hub.Subscribe(KindEndTaskProcess, func(Notification) { b++ })
	subA.Cancel()

	hub.Publish(TaskProcessEnded{TaskName: "build"})

	if a != 0 || b != 1 {
		t.Errorf("a=%d b=%d, want a=0 b=1", a, b)
	}
}
