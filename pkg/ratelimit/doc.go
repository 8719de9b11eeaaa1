// Package ratelimit paces album downloads.
//
// The site serves a handful of archives per user before it starts answering
// slowly, so the orchestrator takes a token before opening each album:
//
//	limiter := ratelimit.PerMinute(cfg.Download.AlbumsPerMinute)
//	if err := limiter.Wait(ctx); err != nil {
//	    return err // cancelled
//	}
//
// A non-positive rate yields a limiter that never blocks.
package ratelimit
