package store

import (
	"sync"
	"testing"
	"time"

	"github.com/Seeker14491/distancelog/internal/changelist"
)

func TestFeed_Subscribe(t *testing.T) {
	feed := NewFeed()

	ch := feed.Subscribe()
	if ch == nil {
		t.Fatal("Subscribe() = nil")
	}

	go feed.Publish([]changelist.Entry{{MapName: "first"}, {MapName: "second"}})

	for _, want := range []string{"first", "second"} {
		select {
		case e := <-ch:
			if e.MapName != want {
				t.Errorf("received MapName = %v, want %v", e.MapName, want)
			}
		case <-time.After(1 * time.Second):
			t.Fatal("Subscribe() channel did not receive entry")
		}
	}
}

func TestFeed_MultipleSubscribers(t *testing.T) {
	feed := NewFeed()

	ch1 := feed.Subscribe()
	ch2 := feed.Subscribe()
	ch3 := feed.Subscribe()

	go feed.Publish([]changelist.Entry{{MapName: "Test"}})

	received := 0
	timeout := time.After(1 * time.Second)

	for received < 3 {
		select {
		case <-ch1:
			received++
		case <-ch2:
			received++
		case <-ch3:
			received++
		case <-timeout:
			t.Fatalf("Only received %d/3 entries", received)
		}
	}
}

func TestFeed_Unsubscribe(t *testing.T) {
	feed := NewFeed()

	ch := feed.Subscribe()
	feed.Unsubscribe(ch)

	select {
	case _, ok := <-ch:
		if ok {
			t.Error("Unsubscribe() channel should be closed")
		}
	case <-time.After(100 * time.Millisecond):
		t.Error("Unsubscribe() channel should be closed immediately")
	}

	if feed.Subscribers() != 0 {
		t.Errorf("Subscribers() = %d, want 0", feed.Subscribers())
	}

	// second call is a no-op
	feed.Unsubscribe(ch)
}

func TestFeed_SlowSubscriberDoesNotBlock(t *testing.T) {
	feed := NewFeed()

	// never read
	_ = feed.Subscribe()

	ch2 := feed.Subscribe()
	go func() {
		for range ch2 {
		}
	}()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 200; i++ {
			feed.Publish([]changelist.Entry{{MapName: "Test"}})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Error("Publish() blocked on slow subscriber")
	}
}

func TestFeed_ConcurrentAccess(t *testing.T) {
	feed := NewFeed()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				feed.Publish([]changelist.Entry{{MapName: "x"}})
			}
		}()
		go func() {
			defer wg.Done()
			ch := feed.Subscribe()
			time.Sleep(10 * time.Millisecond)
			feed.Unsubscribe(ch)
		}()
	}
	wg.Wait()
}
