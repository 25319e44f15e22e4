/* SPDX-License-Identifier: BSD-2-Clause */

package mmapdev

import (
	"sync/atomic"
)

// Device is a named, mappable pseudo-device. Opening it begins a
// session backed by one freshly allocated page; mapping an open handle
// attaches the device operation set to the binding.
type Device struct {
	name string
	pool *PagePool
}

// Option configures a Device.
type Option func(*Device)

// WithPageSize sets the session page size. Zero selects the host page
// size.
func WithPageSize(size int) Option {
	return func(d *Device) {
		d.pool = NewPagePool(size)
	}
}

// NewDevice returns a device with the given name.
func NewDevice(name string, opts ...Option) *Device {
	d := &Device{
		name: name,
		pool: NewPagePool(0),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Name returns the device name.
func (d *Device) Name() string {
	return d.name
}

// Pool returns the device's page pool.
func (d *Device) Pool() *PagePool {
	return d.pool
}

// Open begins a session: it allocates the session page, stamps the
// identifying byte sequence (PagePrefix followed by the device name) at
// offset 0, and returns a handle owning the session. Allocation failure
// is returned to the caller unretried.
func (d *Device) Open() (*Handle, error) {
	page, err := d.pool.Allocate()
	if err != nil {
		return nil, err
	}

	data := page.Data()
	n := copy(data, PagePrefix)
	copy(data[n:], d.name)

	logger.WithField("device", d.name).Debug("session opened")
	return &Handle{dev: d, session: newSession(page)}, nil
}

// Handle is one open reference to a Device, owning a session.
type Handle struct {
	dev     *Device
	session *Session
	closed  atomic.Bool
}

// Device returns the device the handle was opened from.
func (h *Handle) Device() *Device {
	return h.dev
}

// Session returns the handle's session.
func (h *Handle) Session() *Session {
	return h.session
}

// Close releases the handle. The session page is freed immediately if
// no mapping references it; otherwise it survives until the last
// referencing binding is torn down. Close is idempotent.
func (h *Handle) Close() error {
	if h.closed.Swap(true) {
		return nil
	}
	h.session.close()
	logger.WithField("device", h.dev.name).Debug("session closed")
	return nil
}

// EstablishMapping attaches the device operation set and the session
// reference to a new binding covering [start, start+length), marks the
// binding non-expandable and excluded from core dumps, and accounts for
// the initial reference by invoking MapOpen synchronously.
func (h *Handle) EstablishMapping(start, length uintptr) (*VMA, error) {
	if h.closed.Load() {
		return nil, ErrSessionClosed
	}

	vma := &VMA{
		Start:   start,
		End:     start + length,
		Flags:   VMADontExpand | VMADontDump,
		ops:     Ops,
		session: h.session,
	}
	vma.ops.MapOpen(vma)
	return vma, nil
}
