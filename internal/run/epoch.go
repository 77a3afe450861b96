package run

import "sync/atomic"

// Epoch numbers runs. Every start or reset advances it, so a result tagged
// with an older value belongs to a superseded run and must be dropped.
type Epoch struct {
	n atomic.Uint64
}

// Next advances the epoch and returns the new value.
func (e *Epoch) Next() uint64 {
	return e.n.Add(1)
}

// Current returns the latest epoch.
func (e *Epoch) Current() uint64 {
	return e.n.Load()
}

// IsCurrent reports whether v is still the latest epoch.
func (e *Epoch) IsCurrent(v uint64) bool {
	return e.n.Load() == v
}
