// Package distancelog tracks world-record changes on Distance leaderboards.
//
// It polls the top of every official and workshop leaderboard through a
// JSON-RPC leaderboard service, keeps the latest results as a snapshot, and
// appends an entry to a changelist whenever a level's best score improves.
//
// # Quick Start
//
//	transport := rpc.Dial("127.0.0.1:25565")
//	defer transport.Close()
//
//	engine, _ := distancelog.New(
//	    distancelog.WithClient(rpc.NewClient(transport)),
//	    distancelog.WithStore(store.NewFileStore("data")),
//	)
//
//	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
//	defer stop()
//
//	engine.Run(ctx, 5*time.Minute, false) // blocks until context is cancelled
//
// For a single update use [Engine.RunCycle].
//
// # The Update Cycle
//
// Each cycle:
//
//  1. loads the previous snapshot and changelist
//  2. enumerates the official levels and queries the workshop
//  3. fetches the rank 1-2 range of every leaderboard concurrently
//  4. fills levels that failed to fetch from the previous snapshot
//  5. appends an entry for every strictly improved top score
//  6. saves the changelist, then the snapshot
//
// Failed queries never fail the cycle. A fetch batch that makes no progress
// for the idle timeout is cut short and the cycle continues with what it has.
//
// # Architecture
//
// distancelog consists of several internal packages (under internal/):
//
//   - rpc: framed transport with reconnection and the JSON-RPC client
//   - level: game modes, score formatting and the level catalog
//   - fetch: bounded concurrent leaderboard fetching with an idle watchdog
//   - changelist: snapshot merge and record diffing
//   - store: atomic JSON file persistence and the change feed
//   - server: HTTP API with live change streams
//   - notify: Redis publication of changes
//
// The config package and cmd/distancelog run the engine from a YAML file.
package distancelog
