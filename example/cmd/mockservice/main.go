// Standalone simulated leaderboard service for testing the CLI.
//
// Usage:
//
//	go run ./example/cmd/mockservice
//
// Then in another terminal:
//
//	go run ./cmd/distancelog serve -c example/config.yaml
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Seeker14491/distancelog/internal/rpc"
	"github.com/Seeker14491/distancelog/internal/rpc/rpctest"
)

func main() {
	addr := flag.String("addr", "127.0.0.1:9999", "listen address")
	chance := flag.Float64("improve", 0.2, "probability that a leaderboard query sees a new record")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	sim := rpctest.NewSimulation(time.Now().UnixNano(), nil, []rpc.WorkshopItem{
		{
			PublishedFileID: 1001,
			SteamIDOwner:    76561197960265732,
			FileName:        "neon canyon.bytes",
			Title:           "Neon Canyon",
			Tags:            []string{"Sprint", "Level"},
			AuthorName:      "dave",
		},
	})
	sim.ImproveChance = *chance

	srv, err := rpctest.NewServer(*addr, sim.Handle, logger)
	if err != nil {
		logger.Error("failed to start", "error", err)
		os.Exit(1)
	}

	fmt.Printf("Mock leaderboard service listening on %s\n", srv.Addr())
	fmt.Printf("Records improve on %.0f%% of range queries\n", *chance*100)
	fmt.Println("Press Ctrl+C to stop")
	fmt.Println()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	if err := srv.Close(); err != nil {
		logger.Warn("close failed", "error", err)
	}
}
