/* SPDX-License-Identifier: BSD-2-Clause */

package mmapdev

import (
	"sync"
	"sync/atomic"
)

// Session is the per-open-handle state shared by every mapping derived
// from one open handle: the backing page and a count of the mappings
// that currently reference it.
//
// The page is released exactly once, when both the owning handle has
// been closed and the mapping count has reached zero, whichever of the
// two happens last. Closing the handle while mappings are live only
// marks the session; the page stays valid until the final map-close
// drops the count to zero. The page pointer never changes between
// session creation and release, so the count and the closed flag are
// the only contended state.
type Session struct {
	page atomic.Pointer[Page]

	refs    atomic.Int64
	closed  atomic.Bool
	release sync.Once
}

func newSession(page *Page) *Session {
	s := &Session{}
	s.page.Store(page)
	return s
}

// Page returns the session's backing page, or nil after release.
func (s *Session) Page() *Page {
	return s.page.Load()
}

// MappingCount returns the number of live mappings referencing the
// session's page.
func (s *Session) MappingCount() int64 {
	return s.refs.Load()
}

// Closed reports whether the owning handle has been closed.
func (s *Session) Closed() bool {
	return s.closed.Load()
}

// incRef records a new mapping referencing the session.
func (s *Session) incRef() {
	s.refs.Add(1)
}

// decRef records the destruction of a mapping. Dropping the count below
// zero is a lifecycle defect and panics. If the handle was already
// closed and this was the last mapping, the page is released here.
func (s *Session) decRef() {
	refs := s.refs.Add(-1)
	if refs < 0 {
		panic("mmapdev: session mapping count below zero")
	}
	if refs == 0 && s.closed.Load() {
		s.releasePage()
	}
}

// close marks the owning handle as closed. The page is released now
// only if no mapping references it; otherwise release is deferred to
// the decRef that takes the count to zero.
func (s *Session) close() {
	s.closed.Store(true)
	if s.refs.Load() == 0 {
		s.releasePage()
	}
}

// releasePage drops the session's page reference once. A close racing
// with the final decRef may route both paths here; the sync.Once keeps
// the release single.
func (s *Session) releasePage() {
	s.release.Do(func() {
		if page := s.page.Swap(nil); page != nil {
			page.DecRef()
		}
	})
}
