package drives

import "log/slog"

// Options configures NewSystemLister.
type Options struct {
	// MediaRoots overrides the platform mount parents.
	MediaRoots []string

	// Prober fills in sizes. Defaults to OSSpace.
	Prober SpaceProber

	Logger *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.Prober == nil {
		o.Prober = OSSpace{}
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}
