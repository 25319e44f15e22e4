/* SPDX-License-Identifier: BSD-2-Clause */

package mmapdev

import (
	"os"
	"unsafe"

	"golang.org/x/sys/unix"
)

func ioctl(fd int, op uintptr, arg unsafe.Pointer) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), op, uintptr(arg))
	if errno != 0 {
		return os.NewSyscallError("ioctl", errno)
	}
	return nil
}

// NewUffdFile creates a userfaultfd using the best available method. It
// prefers the userfaultfd(2) syscall but falls back to /dev/userfaultfd
// if the syscall returns ENOSYS or EPERM.
func NewUffdFile(flags int) (*os.File, error) {
	fd, _, errno := unix.Syscall(uintptr(unix.SYS_USERFAULTFD), uintptr(flags), 0, 0)
	if errno == 0 {
		return os.NewFile(fd, "userfaultfd"), nil
	}

	// Fall back only for the expected errors.
	if errno != unix.ENOSYS && errno != unix.EPERM {
		return nil, os.NewSyscallError("userfaultfd", errno)
	}

	dev, err := os.OpenFile("/dev/userfaultfd", os.O_RDWR, 0)
	if err != nil {
		return nil, err
	}
	defer dev.Close()

	fd, _, errno = unix.Syscall(unix.SYS_IOCTL, dev.Fd(), uintptr(USERFAULTFD_IOC_NEW), uintptr(flags))
	if errno != 0 {
		return nil, os.NewSyscallError("ioctl(USERFAULTFD_IOC_NEW)", errno)
	}

	return os.NewFile(fd, "userfaultfd"), nil
}

// ApiHandshake negotiates the userfaultfd API version and features.
// Returns the negotiated info or an error.
func ApiHandshake(fd int, features uint64) (*UffdioApi, error) {
	api := &UffdioApi{Api: UFFD_API, Features: features}
	if err := ioctl(fd, UFFDIO_API, unsafe.Pointer(api)); err != nil {
		return nil, err
	}
	return api, nil
}

// RegisterRange registers a memory range for userfaultfd handling with
// the specified mode. Returns the registration info or an error.
func RegisterRange(fd int, start uintptr, length int, mode int) (*UffdioRegister, error) {
	reg := &UffdioRegister{Range: UffdioRange{Start: uint64(start), Len: uint64(length)}, Mode: uint64(mode)}
	if err := ioctl(fd, UFFDIO_REGISTER, unsafe.Pointer(reg)); err != nil {
		return nil, err
	}
	return reg, nil
}

// UnregisterRange unregisters a previously registered range.
func UnregisterRange(fd int, start uintptr, length int) error {
	r := &UffdioRange{Start: uint64(start), Len: uint64(length)}
	return ioctl(fd, UFFDIO_UNREGISTER, unsafe.Pointer(r))
}

// CopyPages resolves a page fault by copying content from src to dst.
// Returns the number of bytes copied or an error.
func CopyPages(fd int, dst, src uintptr, length int, mode int) (int64, error) {
	c := &UffdioCopy{Dst: uint64(dst), Src: uint64(src), Len: uint64(length), Mode: uint64(mode)}
	if err := ioctl(fd, UFFDIO_COPY, unsafe.Pointer(c)); err != nil {
		return 0, err
	}
	return c.Copy, nil
}

// ZeroPages resolves a page fault by zero-filling the memory range.
// Returns the length zeroed or an error.
func ZeroPages(fd int, start uintptr, length int, mode int) (int64, error) {
	z := &UffdioZeropage{Range: UffdioRange{Start: uint64(start), Len: uint64(length)}, Mode: uint64(mode)}
	if err := ioctl(fd, UFFDIO_ZEROPAGE, unsafe.Pointer(z)); err != nil {
		return 0, err
	}
	return z.Zeropage, nil
}

// PoisonPages marks pages in the given range as poisoned, so that
// subsequent accesses raise SIGBUS in the accessor. Returns the number
// of bytes updated as reported by the kernel.
func PoisonPages(fd int, start uintptr, length int, mode int) (int64, error) {
	p := &UffdioPoison{Range: UffdioRange{Start: uint64(start), Len: uint64(length)}, Mode: uint64(mode)}
	if err := ioctl(fd, UFFDIO_POISON, unsafe.Pointer(p)); err != nil {
		return 0, err
	}
	return p.Updated, nil
}

// WakeRange wakes up blocked page faults in the given range.
func WakeRange(fd int, start uintptr, length int) error {
	r := &UffdioRange{Start: uint64(start), Len: uint64(length)}
	return ioctl(fd, UFFDIO_WAKE, unsafe.Pointer(r))
}
