package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/redis/go-redis/v9"

	"github.com/Seeker14491/distancelog/internal/changelist"
	"github.com/Seeker14491/distancelog/internal/level"
)

// testLogger returns a logger that discards all output for clean test output.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type message struct {
	channel string
	payload []byte
}

// fakePublisher records published messages and fails the ones listed in
// failAt (by call index).
type fakePublisher struct {
	mu       sync.Mutex
	messages []message
	calls    int
	failAt   map[int]bool
}

func (p *fakePublisher) Publish(ctx context.Context, channel string, msg interface{}) *redis.IntCmd {
	p.mu.Lock()
	defer p.mu.Unlock()

	idx := p.calls
	p.calls++
	if p.failAt[idx] {
		return redis.NewIntResult(0, errors.New("connection reset"))
	}

	payload, _ := msg.([]byte)
	p.messages = append(p.messages, message{channel: channel, payload: payload})
	return redis.NewIntResult(1, nil)
}

func entries(names ...string) []changelist.Entry {
	out := make([]changelist.Entry, len(names))
	for i, name := range names {
		out[i] = changelist.Entry{
			MapName:                name,
			Mode:                   level.Sprint,
			NewRecordholder:        "alice",
			RecordNew:              "00:00:42.00",
			SteamIDNewRecordholder: "1",
		}
	}
	return out
}

func TestRedis_NotifyPublishesEachEntry(t *testing.T) {
	pub := &fakePublisher{}
	n := NewRedis(pub, "records", testLogger())

	published := n.Notify(context.Background(), entries("Dodge", "Broken Symmetry"))
	if published != 2 {
		t.Fatalf("Notify() = %d, want 2", published)
	}
	if len(pub.messages) != 2 {
		t.Fatalf("len(messages) = %d, want 2", len(pub.messages))
	}

	for i, want := range []string{"Dodge", "Broken Symmetry"} {
		msg := pub.messages[i]
		if msg.channel != "records" {
			t.Errorf("channel = %q, want %q", msg.channel, "records")
		}
		var got changelist.Entry
		if err := json.Unmarshal(msg.payload, &got); err != nil {
			t.Fatalf("invalid JSON payload: %v", err)
		}
		if got.MapName != want {
			t.Errorf("MapName = %q, want %q", got.MapName, want)
		}
		if got.Mode != level.Sprint {
			t.Errorf("Mode = %v, want %v", got.Mode, level.Sprint)
		}
	}
}

func TestRedis_PayloadUsesChangelistFormat(t *testing.T) {
	pub := &fakePublisher{}
	n := NewRedis(pub, "", testLogger())

	n.Notify(context.Background(), entries("Dodge"))

	var raw map[string]any
	if err := json.Unmarshal(pub.messages[0].payload, &raw); err != nil {
		t.Fatalf("invalid JSON payload: %v", err)
	}
	if raw["mode"] != "Sprint" {
		t.Errorf("mode = %v, want Sprint", raw["mode"])
	}
	if v, ok := raw["old_recordholder"]; !ok || v != nil {
		t.Errorf("old_recordholder = %v (present %v), want null", v, ok)
	}
}

func TestRedis_DefaultChannel(t *testing.T) {
	pub := &fakePublisher{}
	n := NewRedis(pub, "", nil)

	n.Notify(context.Background(), entries("Dodge"))

	if pub.messages[0].channel != DefaultChannel {
		t.Errorf("channel = %q, want %q", pub.messages[0].channel, DefaultChannel)
	}
}

func TestRedis_FailureDoesNotStopRemaining(t *testing.T) {
	pub := &fakePublisher{failAt: map[int]bool{0: true}}
	n := NewRedis(pub, "records", testLogger())

	published := n.Notify(context.Background(), entries("Dodge", "Broken Symmetry", "Aftermath"))
	if published != 2 {
		t.Errorf("Notify() = %d, want 2", published)
	}
	if pub.calls != 3 {
		t.Errorf("publish calls = %d, want 3", pub.calls)
	}
}

func TestRedis_NoEntries(t *testing.T) {
	pub := &fakePublisher{}
	n := NewRedis(pub, "records", testLogger())

	if published := n.Notify(context.Background(), nil); published != 0 {
		t.Errorf("Notify() = %d, want 0", published)
	}
	if pub.calls != 0 {
		t.Errorf("publish calls = %d, want 0", pub.calls)
	}
}

func TestConnect_Unreachable(t *testing.T) {
	// port 1 on loopback is never a redis server
	_, err := Connect(context.Background(), "127.0.0.1:1", "", 0)
	if err == nil {
		t.Fatal("Connect() error = nil, want error")
	}
}
