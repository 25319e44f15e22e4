/* SPDX-License-Identifier: BSD-2-Clause */

package mmapdev

import (
	"fmt"
	"os"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Uffd wraps a userfaultfd file descriptor.
type Uffd struct {
	File  *os.File
	api   *UffdioApi
	flags int

	// Full feature set the kernel advertised on the first handshake,
	// kept even when only a subset was enabled.
	supported uint64
}

// Force non-blocking so we can use poll()
// Also force close-on-exec
const forceFlags = unix.O_NONBLOCK | unix.O_CLOEXEC

// NewUffd creates a new userfaultfd and performs the two-step API
// handshake. Returns an *Uffd or an error.
func NewUffd(flags int, features uint64) (*Uffd, error) {
	flags |= forceFlags
	file, err := NewUffdFile(flags)
	if err != nil {
		return nil, err
	}

	api, err := ApiHandshake(int(file.Fd()), 0)
	if err != nil {
		file.Close()
		return nil, err
	}

	if api.Api != UFFD_API {
		file.Close()
		return nil, ErrInvalidApi
	}
	supported := api.Features

	// From UFFDIO_API(2) BUGS section: to enable a feature subset, the
	// fd must be closed after the UFFDIO_API that queries availability
	// and reopened before the UFFDIO_API that enables the features.
	if features != 0 {
		file.Close()
		if api.Features&features != features {
			return nil, ErrUnsupportedFeature
		}
		if file, err = NewUffdFile(flags); err != nil {
			return nil, err
		}
		if api, err = ApiHandshake(int(file.Fd()), features); err != nil {
			file.Close()
			return nil, err
		}
	}

	return &Uffd{
		File:      file,
		api:       api,
		flags:     flags,
		supported: supported,
	}, nil
}

// newChildUffd wraps an fd delivered by a UFFD_EVENT_FORK message. The
// child fd shares the parent's negotiated API.
func newChildUffd(fd int, parent *Uffd) *Uffd {
	return &Uffd{
		File:      os.NewFile(uintptr(fd), "userfaultfd[child]"),
		api:       parent.api,
		flags:     parent.flags,
		supported: parent.supported,
	}
}

// Close closes the underlying file descriptor.
func (u *Uffd) Close() error {
	return u.File.Close()
}

// Fd returns the underlying file descriptor.
func (u *Uffd) Fd() int {
	return int(u.File.Fd())
}

// Features returns the negotiated API features.
func (u *Uffd) Features() uint64 {
	return u.api.Features
}

// Ioctls returns the available ioctl mask.
func (u *Uffd) Ioctls() uint64 {
	return u.api.Ioctls
}

// String returns a string representation.
func (u *Uffd) String() string {
	return fmt.Sprintf("uffd(fd=%d, features=%#x, ioctls=%#x)", u.Fd(), u.api.Features, u.api.Ioctls)
}

// HasIoctl returns true if the ioctl index is advertised as available.
func (u *Uffd) HasIoctl(ioctl int) bool {
	return ioctl != -1 && u.api.Ioctls&(1<<ioctl) != 0
}

// Register registers a memory range with the given mode.
func (u *Uffd) Register(start uintptr, length int, mode int) (*UffdioRegister, error) {
	return RegisterRange(u.Fd(), start, length, mode)
}

// Unregister unregisters a previously registered range.
func (u *Uffd) Unregister(start uintptr, length int) error {
	return UnregisterRange(u.Fd(), start, length)
}

// Copy resolves a page fault by copying from src to dst.
func (u *Uffd) Copy(dst, src uintptr, length int, mode int) (int64, error) {
	return CopyPages(u.Fd(), dst, src, length, mode)
}

// Zeropage zero-fills a memory range.
func (u *Uffd) Zeropage(start uintptr, length int, mode int) (int64, error) {
	return ZeroPages(u.Fd(), start, length, mode)
}

// SupportsPoison returns true if the kernel supports UFFDIO_POISON.
func (u *Uffd) SupportsPoison() bool {
	return u.supported&UFFD_FEATURE_POISON != 0
}

// Poison poisons pages in the given range.
func (u *Uffd) Poison(start uintptr, length int, mode int) (int64, error) {
	if !u.SupportsPoison() {
		return 0, ErrMissingIoctl
	}
	return PoisonPages(u.Fd(), start, length, mode)
}

// Wake wakes blocked page faults in the given range.
func (u *Uffd) Wake(start uintptr, length int) error {
	return WakeRange(u.Fd(), start, length)
}

// ReadMsg reads one event message from the userfaultfd, blocking in
// poll(2) for up to timeout milliseconds. A negative timeout blocks
// until an event arrives. If no event is available within the timeout,
// it returns unix.EAGAIN.
func (u *Uffd) ReadMsg(timeout int) (*UffdMsg, error) {
	pfd := []unix.PollFd{{
		Fd:     int32(u.Fd()),
		Events: unix.POLLIN,
	}}

	if err := retryOnEINTR(func() error {
		n, err := unix.Poll(pfd, timeout)
		if err != nil {
			return err
		}
		if n == 0 {
			return unix.EAGAIN
		}

		re := pfd[0].Revents
		if re&(unix.POLLERR|unix.POLLHUP|unix.POLLNVAL) != 0 {
			return &PollError{Revents: re}
		}
		return nil
	}); err != nil {
		return nil, err
	}

	var msg UffdMsg
	buf := (*[unsafe.Sizeof(msg)]byte)(unsafe.Pointer(&msg))[:]

	if err := retryOnEINTR(func() error {
		n, err := unix.Read(u.Fd(), buf)
		if err != nil {
			return err
		}
		if n != len(buf) {
			return fmt.Errorf("truncated read: got %d, expected %d", n, len(buf))
		}
		return nil
	}); err != nil {
		return nil, err
	}

	return &msg, nil
}
