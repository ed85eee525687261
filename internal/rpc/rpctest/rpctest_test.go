package rpctest

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/Seeker14491/distancelog/internal/rpc"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// startClient serves sim on a loopback port and returns a client connected
// to it.
func startClient(t *testing.T, sim *Simulation) (*rpc.Client, *Server) {
	t.Helper()

	srv, err := NewServer("127.0.0.1:0", sim.Handle, testLogger())
	if err != nil {
		t.Fatalf("NewServer() error = %v", err)
	}
	t.Cleanup(func() { _ = srv.Close() })

	transport := rpc.Dial(srv.Addr(),
		rpc.WithReconnectDelay(10*time.Millisecond),
		rpc.WithIOTimeout(2*time.Second),
		rpc.WithTransportLogger(testLogger()),
	)
	t.Cleanup(func() { _ = transport.Close() })
	return rpc.NewClient(transport), srv
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestSimulation_LeaderboardRange(t *testing.T) {
	sim := NewSimulation(1, nil, nil)
	sim.ImproveChance = 0
	sim.SetRecord("Broken Symmetry_1_stable", DefaultPlayers[0].SteamID, 61234)

	client, _ := startClient(t, sim)
	resp, err := client.LeaderboardRange(testContext(t), "Broken Symmetry_1_stable", 1, 1)
	if err != nil {
		t.Fatalf("LeaderboardRange() error = %v", err)
	}

	first, ok := resp.First()
	if !ok {
		t.Fatal("LeaderboardRange() returned no entries")
	}
	if first.SteamID != DefaultPlayers[0].SteamID {
		t.Errorf("SteamID = %v, want %v", first.SteamID, DefaultPlayers[0].SteamID)
	}
	if first.Score != int32(61234) {
		t.Errorf("Score = %v, want 61234", first.Score)
	}
	if first.PlayerName != "alice" {
		t.Errorf("PlayerName = %q, want %q", first.PlayerName, "alice")
	}
	if first.GlobalRank != int32(1) {
		t.Errorf("GlobalRank = %v, want 1", first.GlobalRank)
	}
}

func TestSimulation_ImprovesRecords(t *testing.T) {
	tests := []struct {
		name  string
		board string
		score int32
		check func(old, new int32) bool
	}{
		{"time mode gets faster", "Broken Symmetry_1_stable", 60000, func(o, n int32) bool { return n < o }},
		{"stunt gets more points", "Refraction_2_stable", 5000, func(o, n int32) bool { return n > o }},
		{"workshop stunt", "canyon_2_76561197960265728_stable", 5000, func(o, n int32) bool { return n > o }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sim := NewSimulation(7, nil, nil)
			sim.ImproveChance = 1
			sim.SetRecord(tt.board, DefaultPlayers[1].SteamID, tt.score)

			resp := sim.leaderboardRange(tt.board, 1, 1)
			if len(resp.Entries) != 1 {
				t.Fatalf("len(Entries) = %d, want 1", len(resp.Entries))
			}
			if got := resp.Entries[0].Score; !tt.check(tt.score, got) {
				t.Errorf("Score = %d, want improvement over %d", got, tt.score)
			}
			if resp.TotalEntries != 2 {
				t.Errorf("TotalEntries = %d, want 2", resp.TotalEntries)
			}
		})
	}
}

func TestSimulation_LeaderboardPlayers(t *testing.T) {
	sim := NewSimulation(1, nil, nil)
	sim.SetRecord("Lost Society_8_stable", DefaultPlayers[2].SteamID, 90000)

	client, _ := startClient(t, sim)
	ctx := testContext(t)

	resp, err := client.LeaderboardPlayers(ctx, "Lost Society_8_stable", []uint64{DefaultPlayers[2].SteamID})
	if err != nil {
		t.Fatalf("LeaderboardPlayers() error = %v", err)
	}
	if got := len(resp.Entries); got != 1 {
		t.Errorf("len(Entries) = %v, want 1", got)
	}

	resp, err = client.LeaderboardPlayers(ctx, "Lost Society_8_stable", nil)
	if err != nil {
		t.Fatalf("LeaderboardPlayers() error = %v", err)
	}
	if got := len(resp.Entries); got != 0 {
		t.Errorf("len(Entries) = %v, want 0", got)
	}
}

func TestSimulation_WorkshopLevels(t *testing.T) {
	items := []rpc.WorkshopItem{
		{PublishedFileID: 1, FileName: "canyon.bytes", Title: "Canyon Run", Tags: []string{"Sprint"}},
		{PublishedFileID: 2, FileName: "loop.bytes", Title: "Loop", Tags: []string{"Stunt"}},
		{PublishedFileID: 3, FileName: "canyon2.bytes", Title: "Canyon Run II", Tags: []string{"Sprint"}},
	}
	sim := NewSimulation(1, nil, items)
	client, _ := startClient(t, sim)
	ctx := testContext(t)

	items, err := client.WorkshopLevels(ctx, 10, "")
	if err != nil {
		t.Fatalf("WorkshopLevels() error = %v", err)
	}
	if got := len(items); got != 3 {
		t.Errorf("len(items) = %v, want 3", got)
	}

	items, err = client.WorkshopLevels(ctx, 1, "canyon")
	if err != nil {
		t.Fatalf("WorkshopLevels() error = %v", err)
	}
	if got := len(items); got != 1 {
		t.Fatalf("len(items) = %v, want 1", got)
	}
	if got := items[0].PublishedFileID; got != uint64(1) {
		t.Errorf("PublishedFileID = %v, want 1", got)
	}
}

func TestSimulation_PersonaName(t *testing.T) {
	sim := NewSimulation(1, nil, nil)
	client, _ := startClient(t, sim)
	ctx := testContext(t)

	name, err := client.PersonaName(ctx, DefaultPlayers[3].SteamID)
	if err != nil {
		t.Fatalf("PersonaName() error = %v", err)
	}
	if name != "dave" {
		t.Errorf("PersonaName() = %q, want %q", name, "dave")
	}

	name, err = client.PersonaName(ctx, 5)
	if err != nil {
		t.Fatalf("PersonaName() error = %v", err)
	}
	if name != "player5" {
		t.Errorf("PersonaName() = %q, want %q", name, "player5")
	}
}

func TestServer_UnknownMethod(t *testing.T) {
	srv, err := NewServer("127.0.0.1:0", NewSimulation(1, nil, nil).Handle, testLogger())
	if err != nil {
		t.Fatalf("NewServer() error = %v", err)
	}
	defer func() { _ = srv.Close() }()

	transport := rpc.Dial(srv.Addr(), rpc.WithTransportLogger(testLogger()))
	defer func() { _ = transport.Close() }()

	body, err := transport.Send(testContext(t), []byte(`{"jsonrpc":"2.0","method":"Nope","params":[],"id":9}`))
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	want := `{"jsonrpc":"2.0","error":{"code":-32601,"message":"method not found: Nope"},"id":9}`
	if string(body) != want {
		t.Errorf("Send() = %s, want %s", body, want)
	}
}

func TestServer_HandlerError(t *testing.T) {
	handler := func(method string, params json.RawMessage) (any, error) {
		return nil, errors.New("boom")
	}
	srv, err := NewServer("127.0.0.1:0", handler, testLogger())
	if err != nil {
		t.Fatalf("NewServer() error = %v", err)
	}
	defer func() { _ = srv.Close() }()

	transport := rpc.Dial(srv.Addr(), rpc.WithTransportLogger(testLogger()))
	defer func() { _ = transport.Close() }()

	_, err = rpc.NewClient(transport).PersonaName(testContext(t), 1)
	var remote *rpc.RemoteError
	if !errors.As(err, &remote) {
		t.Fatalf("PersonaName() error = %v, want *rpc.RemoteError", err)
	}
	if remote.Code != codeInternalError {
		t.Errorf("Code = %v, want %v", remote.Code, codeInternalError)
	}
	if remote.Message != "boom" {
		t.Errorf("Message = %q, want %q", remote.Message, "boom")
	}
}

func TestServer_ReconnectAfterDrop(t *testing.T) {
	sim := NewSimulation(1, nil, nil)
	client, srv := startClient(t, sim)
	ctx := testContext(t)

	if _, err := client.PersonaName(ctx, 1); err != nil {
		t.Fatalf("PersonaName() error = %v", err)
	}

	srv.CloseConnections()

	// the in-flight request on the dropped connection may fail; a later one
	// reaches the server over a new connection
	deadline := time.Now().Add(3 * time.Second)
	for {
		_, err := client.PersonaName(ctx, 1)
		if err == nil {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("PersonaName() after drop error = %v", err)
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func TestNewServer_InvalidAddress(t *testing.T) {
	if _, err := NewServer("127.0.0.1:-1", nil, testLogger()); err == nil {
		t.Error("NewServer() error = nil, want error")
	}
}
