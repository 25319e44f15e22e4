/* SPDX-License-Identifier: BSD-2-Clause */

package mmapdev

import (
	"errors"
	"sync"
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Mapping is a live binding of a session to real process memory served
// by userfaultfd. First touches of the memory fault into the device's
// fault hook; fork and unmap events re-enter the map-open and map-close
// hooks.
type Mapping struct {
	vma  *VMA
	uffd *Uffd
	mem  []byte

	faults  atomic.Int64
	stopped atomic.Bool
	wg      sync.WaitGroup

	closeBindingOnce sync.Once
	closeOnce        sync.Once
	closeErr         error
}

// Closing an fd does not wake a blocked poll(2), so serve loops poll
// with a bounded timeout and re-check the stop flag.
const pollIntervalMs = 100

// MapShared creates an anonymous mapping backed by the handle's
// session, registered for missing-page handling with a userfaultfd.
// A goroutine serves page faults by copying from the session page, so
// the memory is provisioned on first touch, not eagerly. uffdFlags is
// passed to userfaultfd(2) (e.g. UFFD_USER_MODE_ONLY).
//
// The caller must Close the mapping when done with the memory.
func (h *Handle) MapShared(uffdFlags int) (*Mapping, error) {
	pageSize := unix.Getpagesize()
	mapLen := roundUp(h.dev.pool.PageSize(), pageSize)

	// Mapping lifecycle events are preferred but optional; without them
	// the map-close hook fires from Close instead.
	const events = UFFD_FEATURE_EVENT_FORK | UFFD_FEATURE_EVENT_REMOVE | UFFD_FEATURE_EVENT_UNMAP
	u, err := NewUffd(uffdFlags, events)
	if errors.Is(err, ErrUnsupportedFeature) {
		u, err = NewUffd(uffdFlags, 0)
	}
	if err != nil {
		return nil, err
	}

	mem, err := unix.Mmap(-1, 0, mapLen, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANONYMOUS)
	if err != nil {
		u.Close()
		return nil, err
	}

	base := uintptr(unsafe.Pointer(&mem[0]))

	if _, err := u.Register(base, mapLen, UFFDIO_REGISTER_MODE_MISSING); err != nil {
		unix.Munmap(mem)
		u.Close()
		return nil, err
	}

	vma, err := h.EstablishMapping(base, uintptr(mapLen))
	if err != nil {
		u.Unregister(base, mapLen)
		unix.Munmap(mem)
		u.Close()
		return nil, err
	}

	m := &Mapping{
		vma:  vma,
		uffd: u,
		mem:  mem,
	}

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.serve(u, false)
	}()

	return m, nil
}

// Data returns the demand-paged memory.
func (m *Mapping) Data() []byte {
	return m.mem
}

// VMA returns the binding the mapping was established on.
func (m *Mapping) VMA() *VMA {
	return m.vma
}

// Faults returns the number of page-fault events served so far.
func (m *Mapping) Faults() int64 {
	return m.faults.Load()
}

// Close tears the mapping down: it unregisters the range, stops the
// serve loop, fires the map-close hook if the host did not already
// deliver an unmap event, and releases the memory. Close is idempotent.
func (m *Mapping) Close() error {
	m.closeOnce.Do(func() {
		m.stopped.Store(true)
		m.wg.Wait()

		err := m.uffd.Unregister(m.vma.Start, m.vma.Len())
		if cerr := m.uffd.Close(); err == nil {
			err = cerr
		}

		m.closeBinding()
		if merr := unix.Munmap(m.mem); err == nil {
			err = merr
		}
		m.closeErr = err
	})
	return m.closeErr
}

// closeBinding fires the map-close hook exactly once per binding,
// whether teardown is observed through a host unmap event or through
// Close.
func (m *Mapping) closeBinding() {
	m.closeBindingOnce.Do(func() {
		m.vma.Ops().MapClose(m.vma)
	})
}

// serve dispatches userfaultfd events to the VMA operation set until
// the descriptor is closed or the binding is fully unmapped. child
// marks loops serving a descriptor delivered by a fork event; those
// own one binding reference taken at fork time.
func (m *Mapping) serve(u *Uffd, child bool) {
	if child {
		// The fork event took a binding reference; drop it when the
		// child's descriptor is done.
		defer u.Close()
		defer m.vma.Ops().MapClose(m.vma)
	}

	for !m.stopped.Load() {
		msg, err := u.ReadMsg(pollIntervalMs)
		if err != nil {
			var perr *PollError
			if errors.Is(err, unix.EAGAIN) {
				continue
			}
			if errors.As(err, &perr) && !perr.IsHangup() && !perr.IsInvalid() {
				logger.WithError(err).Debug("serve: poll failed")
			}
			// Hangup, closed descriptor, or read failure: the loop's
			// work is over.
			return
		}

		switch msg.Event {
		case UFFD_EVENT_PAGEFAULT:
			m.handleFault(u, uintptr(msg.GetPagefault().Address))

		case UFFD_EVENT_FORK:
			// A child inherited the binding: account for the new
			// reference and serve the child's descriptor.
			cu := newChildUffd(int(msg.GetFork().Ufd), u)
			m.vma.Ops().MapOpen(m.vma)
			m.wg.Add(1)
			go func() {
				defer m.wg.Done()
				m.serve(cu, true)
			}()

		case UFFD_EVENT_REMOVE, UFFD_EVENT_UNMAP:
			rm := msg.GetRemove()
			if uintptr(rm.Start) <= m.vma.Start && uintptr(rm.End) >= m.vma.End {
				// The whole binding is gone.
				if child {
					return
				}
				m.closeBinding()
				return
			}
		}
	}
}

// handleFault routes one page-fault event through the device fault
// hook. A resolved fault is installed with UFFDIO_COPY from the session
// page and the host-side page reference is dropped once the copy is
// in place. A failed fault poisons the page so the faulting thread
// receives SIGBUS, matching the bus-error classification of fault
// errors.
func (m *Mapping) handleFault(u *Uffd, addr uintptr) {
	m.faults.Add(1)

	pageSize := unix.Getpagesize()
	dst := addr &^ uintptr(pageSize-1)

	page, err := m.vma.Ops().Fault(m.vma, addr)
	if err != nil {
		if _, perr := u.Poison(dst, pageSize, 0); perr != nil {
			// No poison support: zero-fill rather than leave the
			// faulting thread blocked forever.
			u.Zeropage(dst, pageSize, 0)
		}
		return
	}

	src := uintptr(unsafe.Pointer(&page.Data()[dst-m.vma.Start]))
	if _, cerr := u.Copy(dst, src, pageSize, 0); cerr != nil && !errors.Is(cerr, unix.EEXIST) {
		logger.WithError(cerr).Debug("serve: copy failed")
		u.Wake(dst, pageSize)
	}
	page.DecRef()
}
