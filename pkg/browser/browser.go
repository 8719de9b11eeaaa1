// Package browser drives a real browser through the Zonerama web UI. It is the
// only package that knows page structure; everything else sees album names
// and opaque handles.
package browser

import (
	"context"
	"io"
	"os"
	"time"

	"zonerama/pkg/catalog"
	"zonerama/pkg/logger"
)

// Page selectors. They track the site's markup and are the first thing to
// check when OpenAlbum starts reporting structural errors.
const (
	SelectorCookieAccept    = "button[data-action='accept-all']"
	SelectorAlbumLink       = "a[href*='/album/']"
	SelectorSecretLink      = "a[href*='/POLeNo/'][href*='secret=']"
	SelectorDownloadButton  = "#header-album-download, a[data-target='#dialog-download']"
	SelectorModal           = "#dialog-download"
	SelectorOriginals       = "#dialog-download-org"
	SelectorOriginalsSwitch = "#dialog-download .switchery"
	SelectorModalSubmit     = "#dialog-download-submit"
)

// SkipLabels are navigation links that match the album selectors but are not
// albums, in both site locales.
var SkipLabels = []string{
	"Veřejná alba",
	"Skrytá alba",
	"Public albums",
	"Hidden albums",
	"inzerce",
	"advertisement",
}

// Browser is the collaborator the orchestrator holds for one run
type Browser interface {
	DismissConsentIfPresent(ctx context.Context) error
	ListAlbums(ctx context.Context) ([]catalog.AlbumRef, error)
	OpenAlbum(ctx context.Context, h catalog.Handle) error
	TriggerDownload(ctx context.Context, h catalog.Handle) (<-chan error, error)
	Close() error
}

// Options configures a Playwright browser
type Options struct {
	BaseURL   string
	AlbumsURL string

	DownloadDir   string
	PartialSuffix string

	Headless          bool
	SlowMo            time.Duration
	NavigationTimeout time.Duration
	ElementTimeout    time.Duration
	ModalCloseTimeout time.Duration

	// StorageState is a previously saved login, or nil
	StorageState []byte
	// SaveState receives the login state once the album list has loaded
	SaveState func(state []byte) error
	// Prompter asks the user to log in when no usable session exists
	Prompter Prompter
	// Guide receives the login instructions shown before prompting
	Guide io.Writer

	Logger logger.Logger
}

func (o *Options) applyDefaults() {
	if o.BaseURL == "" {
		o.BaseURL = "https://eu.zonerama.com"
	}
	if o.PartialSuffix == "" {
		o.PartialSuffix = ".crdownload"
	}
	if o.NavigationTimeout <= 0 {
		o.NavigationTimeout = 60 * time.Second
	}
	if o.ElementTimeout <= 0 {
		o.ElementTimeout = 10 * time.Second
	}
	if o.ModalCloseTimeout <= 0 {
		o.ModalCloseTimeout = 60 * time.Second
	}
	if o.Guide == nil {
		o.Guide = os.Stderr
	}
	if o.Logger == nil {
		o.Logger = logger.GetLogger()
	}
}

func ms(d time.Duration) *float64 {
	v := float64(d.Milliseconds())
	return &v
}
