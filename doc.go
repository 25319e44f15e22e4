/* SPDX-License-Identifier: BSD-2-Clause */

// Package mmapdev implements a user-space, demand-paged, single-page
// memory device with file-like open/close semantics.
//
// Each open handle owns one zero-initialized, page-aligned page of
// memory stamped with an identifying byte sequence. The page is not
// provisioned into a mapping eagerly: mappings are populated lazily,
// on first touch, through the device's fault hook.
//
// The core of the package is the VMA operation set (VMOperations): the
// map-open, map-close, and fault callbacks a hosting virtual-memory
// layer invokes on a mapping's lifecycle transitions. The callbacks
// maintain a per-session reference count so that the backing page is
// released exactly once, when the handle has been closed and the last
// mapping referencing the page has been destroyed, in whichever order
// those two events occur.
//
// On Linux, MapShared binds a session to a real anonymous mapping
// registered with userfaultfd(2), so that genuine first-touch page
// faults are routed through the device's fault hook and resolved with
// UFFDIO_COPY from the session page.
package mmapdev
