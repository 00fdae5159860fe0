package catalog

import (
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

// Snapshot is one immutable generation of the catalog and its index
type Snapshot struct {
	Catalog  *Catalog
	Index    *Index
	Version  uint64
	LoadedAt time.Time
}

// Holder publishes the current catalog snapshot. Readers never block; a
// reload replaces the whole snapshot at once.
type Holder struct {
	dir     string
	logger  *logrus.Logger
	current atomic.Pointer[Snapshot]
	version atomic.Uint64
}

// NewHolder loads the catalog from dir. A load failure here is fatal for the
// caller; later reload failures keep the previous snapshot.
func NewHolder(dir string, logger *logrus.Logger) (*Holder, error) {
	h := &Holder{dir: dir, logger: logger}
	if err := h.Reload(); err != nil {
		return nil, err
	}
	return h, nil
}

// NewStaticHolder wraps an already built catalog. It cannot be reloaded from
// disk; used by tests and embedders.
func NewStaticHolder(c *Catalog, logger *logrus.Logger) *Holder {
	h := &Holder{logger: logger}
	h.publish(c)
	return h
}

// Current returns the snapshot in effect
func (h *Holder) Current() *Snapshot {
	return h.current.Load()
}

// Reload reads the catalog files again and swaps in a fresh snapshot
func (h *Holder) Reload() error {
	c, err := Load(h.dir)
	if err != nil {
		return err
	}
	snap := h.publish(c)

	h.logger.WithFields(logrus.Fields{
		"catalog_dir": h.dir,
		"artists":     len(c.Artists()),
		"albums":      len(c.Albums()),
		"version":     snap.Version,
	}).Info("Catalog loaded")
	return nil
}

func (h *Holder) publish(c *Catalog) *Snapshot {
	snap := &Snapshot{
		Catalog:  c,
		Index:    BuildIndex(c.Artists(), c.Albums()),
		Version:  h.version.Add(1),
		LoadedAt: time.Now(),
	}
	h.current.Store(snap)
	return snap
}
