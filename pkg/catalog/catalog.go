// Package catalog decides which remote albums still need downloading.
package catalog

import (
	"zonerama/pkg/library"
	"zonerama/pkg/normalize"
)

// Handle is the collaborator's opaque token for an album, such as its URL.
// It is only meaningful for the browser session that produced it.
type Handle string

// AlbumRef is one album as discovered in the remote listing
type AlbumRef struct {
	Name   string
	Handle Handle
}

// Key returns the normalized identity of the album
func (a AlbumRef) Key() normalize.Key {
	return normalize.Normalize(a.Name)
}

// Index is the part of library.Index the catalog needs
type Index interface {
	Contains(name string, kinds ...library.Kind) bool
}

// Result is the outcome of building the catalog
type Result struct {
	// Pending lists the albums to fetch in discovery order
	Pending []AlbumRef
	// AlreadyLocal lists albums dropped because they exist on disk
	AlreadyLocal []AlbumRef
	// Unique counts distinct album keys in the listing
	Unique int
	// RepeatedInListing counts listing entries whose key was already seen
	RepeatedInListing int
}

// Skipped returns how many listing entries will not be downloaded
func (r Result) Skipped() int {
	return r.RepeatedInListing + len(r.AlreadyLocal)
}

// Build deduplicates raw against itself, keeping first occurrences, and then
// drops albums already present as an archive or an extracted folder. It makes
// a single pass and performs no I/O.
func Build(raw []AlbumRef, idx Index) Result {
	var res Result
	seen := make(map[normalize.Key]struct{}, len(raw))

	for _, album := range raw {
		key := album.Key()
		if _, dup := seen[key]; dup {
			res.RepeatedInListing++
			continue
		}
		seen[key] = struct{}{}
		res.Unique++

		if idx != nil && idx.Contains(album.Name, library.KindArchive, library.KindExtractedFolder) {
			res.AlreadyLocal = append(res.AlreadyLocal, album)
			continue
		}
		res.Pending = append(res.Pending, album)
	}

	return res
}
