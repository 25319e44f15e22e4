/* SPDX-License-Identifier: BSD-2-Clause */

package mmapdev

import (
	"errors"
	"testing"
)

func TestMapSharedDemandPaging(t *testing.T) {
	skipNoUffd(t)

	dev, h := mustOpen(t, "my_mmap")

	m, err := h.MapShared(uffdFlags)
	if err != nil {
		t.Fatalf("MapShared failed: %v", err)
	}

	if got := h.Session().MappingCount(); got != 1 {
		t.Fatalf("MappingCount after MapShared = %d, want 1", got)
	}
	if got := m.Faults(); got != 0 {
		t.Fatalf("Faults before first touch = %d, want 0 (provisioning must be lazy)", got)
	}

	// First touch faults in the page and observes the stamp.
	data := m.Data()
	want := PagePrefix + "my_mmap"
	if got := string(data[:len(want)]); got != want {
		t.Fatalf("mapped page header = %q, want %q", got, want)
	}
	if got := m.Faults(); got != 1 {
		t.Fatalf("Faults after first touch = %d, want 1", got)
	}

	// The page is resident now; more touches in the same page do not
	// re-fault and see the same content.
	if got := string(data[:len(want)]); got != want {
		t.Fatalf("second read = %q, want %q", got, want)
	}
	if got := m.Faults(); got != 1 {
		t.Fatalf("Faults after second touch = %d, want 1", got)
	}

	if err := m.Close(); err != nil {
		t.Fatalf("mapping Close failed: %v", err)
	}
	if got := h.Session().MappingCount(); got != 0 {
		t.Fatalf("MappingCount after mapping Close = %d, want 0", got)
	}

	if err := h.Close(); err != nil {
		t.Fatalf("handle Close failed: %v", err)
	}
	if got := dev.Pool().Active(); got != 0 {
		t.Fatalf("pool active pages = %d, want 0", got)
	}
}

func TestMapSharedSeesPriorWrites(t *testing.T) {
	skipNoUffd(t)

	_, h := mustOpen(t, "my_mmap")
	defer h.Close()

	// Content written into the session page before provisioning must be
	// visible at the same offsets through the mapping.
	off := h.Device().Pool().PageSize() - 1
	h.Session().Page().Data()[off] = 0xC3

	m, err := h.MapShared(uffdFlags)
	if err != nil {
		t.Fatalf("MapShared failed: %v", err)
	}
	defer m.Close()

	if got := m.Data()[off]; got != 0xC3 {
		t.Fatalf("mapping byte at %d = %#x, want 0xC3", off, got)
	}
}

func TestMapSharedDeferredRelease(t *testing.T) {
	skipNoUffd(t)

	dev, h := mustOpen(t, "my_mmap")

	m, err := h.MapShared(uffdFlags)
	if err != nil {
		t.Fatalf("MapShared failed: %v", err)
	}
	_ = m.Data()[0]

	// Handle closed while the mapping is live: the page must survive
	// until the mapping goes away.
	if err := h.Close(); err != nil {
		t.Fatalf("handle Close failed: %v", err)
	}
	if got := dev.Pool().Active(); got != 1 {
		t.Fatalf("pool active pages after close = %d, want 1", got)
	}

	if err := m.Close(); err != nil {
		t.Fatalf("mapping Close failed: %v", err)
	}
	if got := dev.Pool().Active(); got != 0 {
		t.Fatalf("pool active pages after unmap = %d, want 0", got)
	}
}

func TestMapSharedClosedHandle(t *testing.T) {
	skipNoUffd(t)

	_, h := mustOpen(t, "my_mmap")
	if err := h.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	if _, err := h.MapShared(uffdFlags); !errors.Is(err, ErrSessionClosed) {
		t.Fatalf("MapShared on closed handle: err = %v, want ErrSessionClosed", err)
	}
}

func TestMapSharedCloseIdempotent(t *testing.T) {
	skipNoUffd(t)

	_, h := mustOpen(t, "my_mmap")
	defer h.Close()

	m, err := h.MapShared(uffdFlags)
	if err != nil {
		t.Fatalf("MapShared failed: %v", err)
	}

	if err := m.Close(); err != nil {
		t.Fatalf("first Close failed: %v", err)
	}
	if err := m.Close(); err != nil {
		t.Fatalf("second Close failed: %v", err)
	}
	if got := h.Session().MappingCount(); got != 0 {
		t.Fatalf("MappingCount = %d, want 0", got)
	}
}
