// Package batch fetches several Gopher addresses concurrently.
//
// Concurrency is bounded with errgroup.SetLimit. Every request produces
// exactly one Outcome, whether it succeeded, failed or was never started
// because the context was cancelled.
package batch
