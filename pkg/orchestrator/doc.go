// Package orchestrator runs one complete download pass: list the remote
// albums, skip what is already on disk, download the rest one at a time and
// optionally extract the archives.
//
// The orchestrator owns the browser for the whole run and releases it on
// every exit path. One album failing never stops the batch; only a bad
// download directory, a browser that cannot start, or cancellation end a run
// early.
package orchestrator
