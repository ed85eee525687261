package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Seeker14491/distancelog"
	"github.com/Seeker14491/distancelog/internal/level"
	"github.com/Seeker14491/distancelog/internal/rpc"
	"github.com/Seeker14491/distancelog/internal/rpc/rpctest"
	"github.com/Seeker14491/distancelog/internal/server"
	"github.com/Seeker14491/distancelog/internal/store"
)

// demoWorkshop is the workshop listing served by the simulated service.
var demoWorkshop = []rpc.WorkshopItem{
	{
		PublishedFileID: 1001,
		SteamIDOwner:    76561197960265732,
		FileName:        "neon canyon.bytes",
		Title:           "Neon Canyon",
		Tags:            []string{"Sprint", "Level"},
		AuthorName:      "dave",
	},
	{
		PublishedFileID: 1002,
		SteamIDOwner:    76561197960265731,
		FileName:        "loop city.bytes",
		Title:           "Loop City",
		Tags:            []string{"Stunt", "Level"},
		AuthorName:      "carol",
	},
}

func main() {
	// simulated leaderboard service on an ephemeral port
	sim := rpctest.NewSimulation(time.Now().UnixNano(), nil, demoWorkshop)
	mock, err := rpctest.NewServer("127.0.0.1:0", sim.Handle, slog.Default())
	if err != nil {
		slog.Error("failed to start mock service", "error", err)
		os.Exit(1)
	}
	defer func() { _ = mock.Close() }()

	dir, err := os.MkdirTemp("", "distancelog-demo-")
	if err != nil {
		slog.Error("failed to create data dir", "error", err)
		os.Exit(1)
	}
	defer func() { _ = os.RemoveAll(dir) }()

	st := store.NewFileStore(dir)
	feed := store.NewFeed()

	transport := rpc.Dial(mock.Addr(), rpc.WithReconnectDelay(time.Second))
	defer func() { _ = transport.Close() }()

	// a handful of official levels keeps the demo changelist busy
	engine, err := distancelog.New(
		distancelog.WithClient(rpc.NewClient(transport)),
		distancelog.WithStore(st),
		distancelog.WithCatalog(&level.Catalog{
			Official: level.OfficialNames{
				level.Sprint:    {"Broken Symmetry", "Lost Society", "Negative Space"},
				level.Challenge: {"Dodge"},
				level.Stunt:     {"Refraction"},
			},
			Workshop: level.WorkshopQuery{Enabled: true, MaxResults: 100},
		}),
		distancelog.WithMaxConcurrency(4),
		distancelog.WithChangeCallback(feed.Publish),
	)
	if err != nil {
		slog.Error("failed to create engine", "error", err)
		os.Exit(1)
	}

	status := func() any {
		report, ok := engine.LastReport()
		if !ok {
			return map[string]string{"state": "waiting for first cycle"}
		}
		return report
	}

	fmt.Println()
	fmt.Println("  ╔═══════════════════════════════════════════════════════╗")
	fmt.Println("  ║                                                       ║")
	fmt.Println("  ║   Distance Leaderboard Log Demo                       ║")
	fmt.Println("  ║                                                       ║")
	fmt.Println("  ║   Changelist: http://localhost:8080/api/changelist    ║")
	fmt.Println("  ║   Live feed:  http://localhost:8080/api/sse           ║")
	fmt.Println("  ║                                                       ║")
	fmt.Println("  ║   Levels:                                             ║")
	fmt.Println("  ║   • 5 official (simulated records)                    ║")
	fmt.Println("  ║   • 2 workshop                                        ║")
	fmt.Println("  ║                                                       ║")
	fmt.Println("  ║   Press Ctrl+C to stop                                ║")
	fmt.Println("  ║                                                       ║")
	fmt.Println("  ╚═══════════════════════════════════════════════════════╝")
	fmt.Println()

	// set up context with signal handling for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := server.NewServer(st, feed, status, 8080, slog.Default()).Start(ctx); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	if err := engine.Run(ctx, 5*time.Second, false); err != nil {
		slog.Error("update loop error", "error", err)
		os.Exit(1)
	}
}
