/* SPDX-License-Identifier: BSD-2-Clause */

package mmapdev

import (
	"fmt"
)

// VMA flags, analogous to the host flags excluding a mapping from
// expansion and core dumps.
const (
	VMADontExpand = 1 << iota
	VMADontDump
)

// VMA is one virtual-address-range binding of a session. The binding
// itself is owned by the hosting virtual-memory layer; the device only
// attaches its operation set and a weak reference to the session.
type VMA struct {
	Start uintptr
	End   uintptr
	Flags int

	ops     VMOperations
	session *Session
}

// Session returns the session the binding references.
func (v *VMA) Session() *Session {
	return v.session
}

// Ops returns the operation set attached to the binding.
func (v *VMA) Ops() VMOperations {
	return v.ops
}

// Contains reports whether addr lies inside [Start, End).
func (v *VMA) Contains(addr uintptr) bool {
	return addr >= v.Start && addr < v.End
}

// Len returns the length of the binding in bytes.
func (v *VMA) Len() int {
	return int(v.End - v.Start)
}

func (v *VMA) String() string {
	return fmt.Sprintf("vma [%#x, %#x)", v.Start, v.End)
}

// VMOperations is the operation set the hosting virtual-memory layer
// invokes on a binding's lifecycle transitions. The host guarantees
// MapOpen precedes any Fault for a binding and MapClose follows the
// last one; no ordering holds between callbacks of different bindings
// of the same session, so implementations must tolerate concurrent
// invocation across bindings.
type VMOperations interface {
	// MapOpen records a new reference to the binding. It is invoked
	// once when the mapping is established and again each time the
	// binding is duplicated, e.g. into a forked child.
	MapOpen(vma *VMA)

	// MapClose records the teardown of a binding, whether by explicit
	// unmap or by process exit. Fired exactly once per binding.
	MapClose(vma *VMA)

	// Fault resolves a first-touch access to addr inside the binding.
	// On success it returns the backing page with a reference taken
	// for the host to consume. Failures are *BusError wrapped and the
	// host delivers a bus-error-class signal to the faulting process.
	Fault(vma *VMA, addr uintptr) (*Page, error)
}

// deviceOps is the single shared operation set attached to every
// binding. It is immutable; all per-session state is reached through
// the binding's session reference.
type deviceOps struct{}

// Ops is the device operation set. One value serves all sessions.
var Ops VMOperations = deviceOps{}

// MapOpen implements VMOperations.MapOpen.
func (deviceOps) MapOpen(vma *VMA) {
	vma.session.incRef()
	logger.WithField("vma", vma.String()).Debug("map open")
}

// MapClose implements VMOperations.MapClose.
func (deviceOps) MapClose(vma *VMA) {
	vma.session.decRef()
	logger.WithField("vma", vma.String()).Debug("map close")
}

// Fault implements VMOperations.Fault. The session page backs every
// offset of the binding, so any in-range address resolves to it.
func (deviceOps) Fault(vma *VMA, addr uintptr) (*Page, error) {
	if !vma.Contains(addr) {
		logger.WithField("addr", fmt.Sprintf("%#x", addr)).Debug("fault outside mapping")
		return nil, &BusError{ErrInvalidAddress}
	}

	page := vma.session.Page()
	if page == nil {
		logger.WithField("vma", vma.String()).Debug("fault with no backing page")
		return nil, &BusError{ErrNoBackingStore}
	}

	page.IncRef()
	logger.WithField("addr", fmt.Sprintf("%#x", addr)).Debug("fault resolved")
	return page, nil
}
