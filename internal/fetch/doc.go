// Package fetch queries the leaderboards of a level batch concurrently.
//
// A [Fetcher] runs one query per level through a worker pool of at most
// MaxConcurrency goroutines and delivers results on a [Stream] as they
// complete. An idle watchdog closes the stream early when no query has
// completed within the idle timeout; the unresolved levels are counted as
// abandoned rather than failed.
//
// Example:
//
//	f := fetch.New(client, fetch.WithMaxConcurrency(8))
//	stream := f.Fetch(ctx, levels)
//	for r := range stream.Results() {
//		if r.Err != nil {
//			log.Println(r.Err)
//			continue
//		}
//		use(r.Level)
//	}
//	if errors.Is(stream.Err(), fetch.ErrBatchTimeout) {
//		log.Printf("%d levels abandoned", stream.Abandoned())
//	}
package fetch
