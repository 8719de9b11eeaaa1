// Package library indexes the albums already present in a download directory.
package library

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	errs "zonerama/pkg/errors"
	"zonerama/pkg/normalize"
)

// Kind says how an album is present on disk
type Kind int

const (
	KindArchive Kind = iota
	KindExtractedFolder
)

func (k Kind) String() string {
	switch k {
	case KindArchive:
		return "archive"
	case KindExtractedFolder:
		return "extracted_folder"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// WorkDirPrefix marks the hidden directories the extraction pipeline writes
// into before renaming. They are never treated as albums.
const WorkDirPrefix = ".extract-"

// Entry is one album already on disk
type Entry struct {
	Key  normalize.Key
	Kind Kind
	Path string
	Size int64
}

// Options controls what Scan recognises as an archive
type Options struct {
	// ArchiveExt is compared case-insensitively, including the dot
	ArchiveExt string
}

// DefaultOptions matches the archives the site hands out
func DefaultOptions() Options {
	return Options{ArchiveExt: ".zip"}
}

// Index is a read-only snapshot of a download directory
type Index struct {
	dir      string
	entries  map[Kind]map[normalize.Key]Entry
	shadowed map[Kind][]Entry
}

// Scan performs one flat read of dir. It never modifies the directory, so
// scanning twice yields the same index.
func Scan(dir string, opts Options) (*Index, error) {
	if opts.ArchiveExt == "" {
		opts = DefaultOptions()
	}

	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errs.Wrap(errs.ErrorTypeConfiguration, "library.Scan",
			fmt.Errorf("cannot read download directory %s: %w", dir, err))
	}

	idx := &Index{
		dir: dir,
		entries: map[Kind]map[normalize.Key]Entry{
			KindArchive:         {},
			KindExtractedFolder: {},
		},
		shadowed: map[Kind][]Entry{},
	}

	// os.ReadDir returns entries sorted by name, so the first of two
	// colliding names wins deterministically
	for _, de := range dirEntries {
		name := de.Name()
		path := filepath.Join(dir, name)

		info, err := entryInfo(path, de)
		if err != nil {
			// the browser may remove a file between listing and stat
			continue
		}

		switch {
		case info.IsDir():
			if strings.HasPrefix(name, WorkDirPrefix) {
				continue
			}
			idx.add(Entry{Key: normalize.Normalize(name), Kind: KindExtractedFolder, Path: path})
		case info.Mode().IsRegular() && strings.EqualFold(filepath.Ext(name), opts.ArchiveExt):
			stem := strings.TrimSuffix(name, filepath.Ext(name))
			idx.add(Entry{Key: normalize.Normalize(stem), Kind: KindArchive, Path: path, Size: info.Size()})
		}
	}

	return idx, nil
}

func entryInfo(path string, de fs.DirEntry) (fs.FileInfo, error) {
	if de.Type()&fs.ModeSymlink != 0 {
		return os.Stat(path)
	}
	return de.Info()
}

func (idx *Index) add(e Entry) {
	bucket := idx.entries[e.Kind]
	if _, exists := bucket[e.Key]; exists {
		idx.shadowed[e.Kind] = append(idx.shadowed[e.Kind], e)
		return
	}
	bucket[e.Key] = e
}

// Contains reports whether an album with the given name is present as any of
// the given kinds. With no kinds it checks every kind.
func (idx *Index) Contains(name string, kinds ...Kind) bool {
	return idx.ContainsKey(normalize.Normalize(name), kinds...)
}

// ContainsKey is Contains for an already normalized key
func (idx *Index) ContainsKey(key normalize.Key, kinds ...Kind) bool {
	if len(kinds) == 0 {
		kinds = []Kind{KindArchive, KindExtractedFolder}
	}
	for _, k := range kinds {
		if _, ok := idx.entries[k][key]; ok {
			return true
		}
	}
	return false
}

// Lookup returns the entry for key in the given bucket
func (idx *Index) Lookup(key normalize.Key, kind Kind) (Entry, bool) {
	e, ok := idx.entries[kind][key]
	return e, ok
}

// Entries returns every entry of kind ordered by path
func (idx *Index) Entries(kind Kind) []Entry {
	out := make([]Entry, 0, len(idx.entries[kind]))
	for _, e := range idx.entries[kind] {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// Len returns the number of entries of kind
func (idx *Index) Len(kind Kind) int {
	return len(idx.entries[kind])
}

// Collisions counts names dropped because another entry of the same kind
// already had their key
func (idx *Index) Collisions() int {
	n := 0
	for _, list := range idx.shadowed {
		n += len(list)
	}
	return n
}

// Shadowed returns the entries of kind that lost their key to an earlier
// name, ordered by path
func (idx *Index) Shadowed(kind Kind) []Entry {
	return append([]Entry(nil), idx.shadowed[kind]...)
}

// Dir returns the scanned directory
func (idx *Index) Dir() string {
	return idx.dir
}
