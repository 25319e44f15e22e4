/* SPDX-License-Identifier: BSD-2-Clause */

package mmapdev

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/sys/unix"
)

var (
	// ErrOutOfMemory is returned by Device.Open when the session page
	// cannot be allocated. It matches unix.ENOMEM under errors.Is.
	ErrOutOfMemory = fmt.Errorf("page allocation failed: %w", unix.ENOMEM)

	// ErrInvalidAddress is reported by the fault hook for addresses
	// outside the mapping's range.
	ErrInvalidAddress = errors.New("fault address outside mapping")

	// ErrNoBackingStore is reported by the fault hook when the session
	// has no page. Under a correct lifecycle this never fires.
	ErrNoBackingStore = errors.New("session has no backing page")

	// ErrSessionClosed is returned when establishing a mapping on a
	// closed handle.
	ErrSessionClosed = errors.New("session closed")

	ErrDeviceExists   = errors.New("device name already registered")
	ErrDeviceNotFound = errors.New("device not registered")

	ErrInvalidApi         = errors.New("kernel returned unexpected UFFD_API version")
	ErrMissingIoctl       = errors.New("missing ioctl")
	ErrUnsupportedFeature = errors.New("requested userfaultfd features not supported by kernel")
)

// BusError wraps a fault-hook failure that must surface to the faulting
// process as a bus-error-class signal rather than an ordinary error
// return. The fault transport converts it to a poisoned page.
type BusError struct {
	Err error
}

func (e *BusError) Error() string {
	return fmt.Sprintf("bus error: %v", e.Err)
}

func (e *BusError) Unwrap() error {
	return e.Err
}

func (e *BusError) Is(target error) bool {
	_, ok := target.(*BusError)
	return ok
}

// PollError indicates a poll(2) error condition such as POLLERR, POLLHUP, or POLLNVAL.
type PollError struct {
	Revents int16
}

// ReventString converts the poll event mask into a human-readable flag list.
func ReventString(revents int16) string {
	var parts []string

	if revents&unix.POLLIN != 0 {
		parts = append(parts, "POLLIN")
	}
	if revents&unix.POLLOUT != 0 {
		parts = append(parts, "POLLOUT")
	}
	if revents&unix.POLLERR != 0 {
		parts = append(parts, "POLLERR")
	}
	if revents&unix.POLLHUP != 0 {
		parts = append(parts, "POLLHUP")
	}
	if revents&unix.POLLNVAL != 0 {
		parts = append(parts, "POLLNVAL")
	}

	if len(parts) == 0 {
		return fmt.Sprintf("0x%x", revents)
	}
	return strings.Join(parts, "|")
}

func (e *PollError) Error() string {
	return fmt.Sprintf("poll error: %s", ReventString(e.Revents))
}

func (e *PollError) Is(target error) bool {
	_, ok := target.(*PollError)
	return ok
}

func (e *PollError) IsHangup() bool  { return e.Revents&unix.POLLHUP != 0 }
func (e *PollError) IsError() bool   { return e.Revents&unix.POLLERR != 0 }
func (e *PollError) IsInvalid() bool { return e.Revents&unix.POLLNVAL != 0 }
