/* SPDX-License-Identifier: BSD-2-Clause */

package mmapdev

import (
	"fmt"
	"sync/atomic"

	"golang.org/x/sys/unix"
)

// Page is one zero-initialized, page-aligned unit of backing memory.
// Pages are reference-counted the way a host kernel counts page frames:
// the pool hands out a page holding one reference, the fault hook takes
// an additional reference per installation, and the memory is unmapped
// when the count drops to zero.
type Page struct {
	data []byte
	pool *PagePool
	refs atomic.Int64
}

// Data returns the page contents. The slice is valid while at least one
// reference is held.
func (p *Page) Data() []byte {
	return p.data
}

// Size returns the page size in bytes.
func (p *Page) Size() int {
	return len(p.data)
}

// IncRef takes a reference on the page.
func (p *Page) IncRef() {
	if p.refs.Add(1) <= 1 {
		panic("mmapdev: IncRef on released page")
	}
}

// DecRef drops a reference. The page is unmapped when the last
// reference is dropped.
func (p *Page) DecRef() {
	switch refs := p.refs.Add(-1); {
	case refs < 0:
		panic("mmapdev: page reference count below zero")
	case refs == 0:
		p.pool.free(p)
	}
}

// PagePool allocates and frees backing pages using anonymous memory
// mappings, so every page is aligned to the host page boundary and
// zero-filled on arrival.
type PagePool struct {
	pageSize int
	active   atomic.Int64

	// Replaced by tests to exercise allocation failure.
	mmap func(length int) ([]byte, error)
}

// NewPagePool returns a pool producing pages of the given size, rounded
// up to a host page multiple. Zero selects the host page size.
func NewPagePool(size int) *PagePool {
	hostPage := unix.Getpagesize()
	if size == 0 {
		size = hostPage
	}
	size = roundUp(size, hostPage)
	return &PagePool{
		pageSize: size,
		mmap: func(length int) ([]byte, error) {
			return unix.Mmap(-1, 0, length, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANONYMOUS)
		},
	}
}

// PageSize returns the size of pages produced by the pool.
func (pp *PagePool) PageSize() int {
	return pp.pageSize
}

// Active returns the number of pages currently live.
func (pp *PagePool) Active() int64 {
	return pp.active.Load()
}

// Allocate obtains one zero-filled page holding a single reference.
// Allocation failure is reported to the caller, never retried.
func (pp *PagePool) Allocate() (*Page, error) {
	data, err := pp.mmap(pp.pageSize)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOutOfMemory, err)
	}
	p := &Page{data: data, pool: pp}
	p.refs.Store(1)
	pp.active.Add(1)
	return p, nil
}

func (pp *PagePool) free(p *Page) {
	data := p.data
	p.data = nil
	pp.active.Add(-1)
	if err := unix.Munmap(data); err != nil {
		panic(fmt.Sprintf("mmapdev: munmap failed: %v", err))
	}
}
