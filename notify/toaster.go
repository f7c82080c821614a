package notify

import (
	"github.com/rs/zerolog/log"

	"github.com/abase/abase-manager/realtime"
)

var _ realtime.Notifier = (*Toaster)(nil)

// Toaster forwards catalog notices for realtime events to a sink, usually
// the UI's toast queue. Events without a catalog entry are ignored.
type Toaster struct {
	catalog Catalog
	sink    func(realtime.Notice)
	enabled bool
}

type Option func(*Toaster)

func WithCatalog(c Catalog) Option {
	return func(t *Toaster) {
		t.catalog = c
	}
}

// WithEnabled turns event notices on or off. The connection lost notice is
// always shown.
func WithEnabled(enabled bool) Option {
	return func(t *Toaster) {
		t.enabled = enabled
	}
}

func NewToaster(sink func(realtime.Notice), options ...Option) *Toaster {
	t := &Toaster{
		catalog: DefaultCatalog(),
		sink:    sink,
		enabled: true,
	}
	for _, opt := range options {
		opt(t)
	}
	return t
}

func (t *Toaster) Notify(ev realtime.Event) {
	if !t.enabled {
		return
	}
	n, ok := t.catalog.Lookup(ev.Type)
	if !ok {
		return
	}
	t.Show(n)
}

// Show hands n to the sink. It has the shape realtime.WithOnNotice expects.
func (t *Toaster) Show(n realtime.Notice) {
	if t.sink == nil {
		log.Info().Str("level", n.Level).Str("title", n.Title).Msg(n.Description)
		return
	}
	t.sink(n)
}
