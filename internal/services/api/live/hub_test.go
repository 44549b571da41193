package live

import "testing"

func TestHubDeliversToSubscribers(t *testing.T) {
	hub := NewHub()
	ch, cancel := hub.Subscribe("user-1")
	defer cancel()

	hub.Publish("user-1", Frame{Type: FrameBalance, SwopBalance: 500})
	select {
	case frame := <-ch:
		if frame.SwopBalance != 500 {
			t.Fatalf("balance = %d, want 500", frame.SwopBalance)
		}
	default:
		t.Fatal("expected a buffered frame")
	}
}

func TestHubScopesFramesToUser(t *testing.T) {
	hub := NewHub()
	ch, cancel := hub.Subscribe("user-1")
	defer cancel()

	hub.Publish("user-2", Frame{Type: FrameBalance})
	select {
	case frame := <-ch:
		t.Fatalf("unexpected frame %+v", frame)
	default:
	}
}

func TestHubCancelClosesChannel(t *testing.T) {
	hub := NewHub()
	ch, cancel := hub.Subscribe("user-1")
	cancel()
	cancel()

	if _, open := <-ch; open {
		t.Fatal("expected closed channel after cancel")
	}

	// publish after cancel must not panic or deliver
	hub.Publish("user-1", Frame{Type: FrameBalance})
}

func TestHubFullBufferDropsFrame(t *testing.T) {
	hub := NewHub()
	ch, cancel := hub.Subscribe("user-1")
	defer cancel()

	for i := 0; i < subscriberBuffer+3; i++ {
		hub.Publish("user-1", Frame{Type: FrameBalance, SwopBalance: int64(i)})
	}
	count := 0
	for {
		select {
		case <-ch:
			count++
			continue
		default:
		}
		break
	}
	if count != subscriberBuffer {
		t.Fatalf("buffered frames = %d, want %d", count, subscriberBuffer)
	}
}
