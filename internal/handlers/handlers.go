package handlers

import (
	"iptv-viewer/internal/favorites"
	"iptv-viewer/internal/library"
	"iptv-viewer/internal/loader"
	"iptv-viewer/internal/startup"
	"iptv-viewer/internal/view"
)

type Handlers struct {
	view        *view.View
	loader      *loader.Loader
	library     *library.Library
	favorites   *favorites.Set
	playlistDir string
}

func New(v *view.View, l *loader.Loader, lib *library.Library, favs *favorites.Set, config *startup.Config) *Handlers {
	return &Handlers{
		view:        v,
		loader:      l,
		library:     lib,
		favorites:   favs,
		playlistDir: config.PlaylistDir,
	}
}
