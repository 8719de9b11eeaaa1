package orchestrator

import (
	"zonerama/pkg/catalog"
	"zonerama/pkg/extract"
	"zonerama/pkg/session"
)

// Observer receives run events from the orchestrator goroutine, in order.
// Implementations render progress and must not block for long.
type Observer interface {
	RunStarted(dir string)
	CatalogBuilt(res catalog.Result)
	AlbumStarted(index, total int, album catalog.AlbumRef)
	AlbumStateChanged(t session.Transition)
	AlbumFinished(index, total int, res session.Result)
	ArchiveProcessed(res extract.Result)
	RunFinished(sum *Summary)
}

// NopObserver ignores every event
type NopObserver struct{}

func (NopObserver) RunStarted(string)                       {}
func (NopObserver) CatalogBuilt(catalog.Result)             {}
func (NopObserver) AlbumStarted(int, int, catalog.AlbumRef) {}
func (NopObserver) AlbumStateChanged(session.Transition)    {}
func (NopObserver) AlbumFinished(int, int, session.Result)  {}
func (NopObserver) ArchiveProcessed(extract.Result)         {}
func (NopObserver) RunFinished(*Summary)                    {}
